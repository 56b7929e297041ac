// Package marketdata defines the external data source contract and the
// Yahoo Finance implementation used to build ticker context.
package marketdata

import (
	"context"

	"github.com/finsight-ai/finsight/internal/models"
)

// Source provides scraped context documents and live market indicators for
// a ticker. Implementations classify failures into the fault taxonomy
// (NotFound for unknown tickers, Unavailable/RateLimited/Timeout otherwise).
type Source interface {
	// FetchContext returns fresh raw text documents (company profile,
	// recent headlines) for the ticker. Document IDs are assigned by the
	// caller after chunking.
	FetchContext(ctx context.Context, ticker string) ([]models.Document, error)

	// FetchLiveIndicators returns a price/series snapshot for the ticker.
	FetchLiveIndicators(ctx context.Context, ticker string) (*models.IndicatorSnapshot, error)
}
