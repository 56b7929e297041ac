package marketdata

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/models"
)

const (
	defaultAPIBase = "https://query1.finance.yahoo.com"
	defaultWebBase = "https://finance.yahoo.com"

	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36"
	maxHeadlines = 5
)

// YahooSource scrapes Yahoo Finance for company context and price history.
type YahooSource struct {
	client    *http.Client
	collector *metrics.Collector

	// Overridable in tests.
	apiBase string
	webBase string
}

var _ Source = (*YahooSource)(nil)

// NewYahooSource creates a source with the given per-request timeout.
func NewYahooSource(timeout time.Duration, collector *metrics.Collector) *YahooSource {
	return &YahooSource{
		client:    &http.Client{Timeout: timeout},
		collector: collector,
		apiBase:   defaultAPIBase,
		webBase:   defaultWebBase,
	}
}

// FetchContext gathers the company profile and recent headlines.
// The profile is required; headlines are best-effort.
func (s *YahooSource) FetchContext(ctx context.Context, ticker string) ([]models.Document, error) {
	ticker = strings.ToUpper(ticker)
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpScrape, time.Since(start)) }()

	profile, err := s.fetchProfile(ctx, ticker)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	docs := []models.Document{{
		Text:      profile,
		Source:    "yahoo/profile",
		FetchedAt: now,
	}}

	headlines, err := s.fetchHeadlines(ctx, ticker)
	if err != nil {
		// A profile without news is still a usable context set.
		slog.Warn("headline scrape failed", "ticker", ticker, "error", err)
	}
	for _, h := range headlines {
		docs = append(docs, models.Document{
			Text:      fmt.Sprintf("%s: Headline: %s", ticker, h),
			Source:    "yahoo/news",
			FetchedAt: now,
		})
	}

	slog.Info("context fetched", "ticker", ticker, "documents", len(docs))
	return docs, nil
}

// quoteSummaryResponse mirrors the fields we need from the Yahoo API.
type quoteSummaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			AssetProfile struct {
				Sector              string `json:"sector"`
				Industry            string `json:"industry"`
				LongBusinessSummary string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			Price struct {
				LongName string `json:"longName"`
			} `json:"price"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"quoteSummary"`
}

func (s *YahooSource) fetchProfile(ctx context.Context, ticker string) (string, error) {
	url := fmt.Sprintf("%s/v10/finance/quoteSummary/%s?modules=assetProfile%%2Cprice", s.apiBase, ticker)
	var resp quoteSummaryResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return "", fmt.Errorf("fetch profile for %s: %w", ticker, err)
	}

	if resp.QuoteSummary.Error != nil || len(resp.QuoteSummary.Result) == 0 {
		return "", fmt.Errorf("ticker %s: %w", ticker, fault.ErrNotFound)
	}

	r := resp.QuoteSummary.Result[0]
	if r.Price.LongName == "" {
		return "", fmt.Errorf("ticker %s has no company data: %w", ticker, fault.ErrNotFound)
	}

	return fmt.Sprintf("%s: Company: %s, Sector: %s, Industry: %s, Summary: %s",
		ticker, r.Price.LongName, r.AssetProfile.Sector, r.AssetProfile.Industry,
		r.AssetProfile.LongBusinessSummary), nil
}

func (s *YahooSource) fetchHeadlines(ctx context.Context, ticker string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fmt.Sprintf("%s/quote/%s/news", s.webBase, ticker), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fault.Classify(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fault.Classify(fmt.Errorf("news page returned %d", resp.StatusCode))
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse news page: %w", err)
	}

	var headlines []string
	doc.Find("h3").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		title := strings.TrimSpace(sel.Text())
		if title != "" {
			headlines = append(headlines, title)
		}
		return len(headlines) < maxHeadlines
	})

	return headlines, nil
}

// chartResponse mirrors the Yahoo v8 chart payload.
type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				RegularMarketPrice float64 `json:"regularMarketPrice"`
				Currency           string  `json:"currency"`
			} `json:"meta"`
			Indicators struct {
				Quote []struct {
					Close []float64 `json:"close"`
					High  []float64 `json:"high"`
					Low   []float64 `json:"low"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
	} `json:"chart"`
}

// FetchLiveIndicators returns one year of daily prices plus the last trade.
func (s *YahooSource) FetchLiveIndicators(ctx context.Context, ticker string) (*models.IndicatorSnapshot, error) {
	ticker = strings.ToUpper(ticker)
	start := time.Now()
	defer func() { s.collector.RecordTiming(metrics.OpScrape, time.Since(start)) }()

	url := fmt.Sprintf("%s/v8/finance/chart/%s?range=1y&interval=1d", s.apiBase, ticker)
	var resp chartResponse
	if err := s.getJSON(ctx, url, &resp); err != nil {
		return nil, fmt.Errorf("fetch indicators for %s: %w", ticker, err)
	}

	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, fault.ErrNotFound)
	}

	r := resp.Chart.Result[0]
	if len(r.Indicators.Quote) == 0 {
		return nil, fmt.Errorf("ticker %s has no price series: %w", ticker, fault.ErrNotFound)
	}

	q := r.Indicators.Quote[0]
	return &models.IndicatorSnapshot{
		Ticker:   ticker,
		AsOf:     time.Now().UTC(),
		Closes:   q.Close,
		Highs:    q.High,
		Lows:     q.Low,
		Price:    r.Meta.RegularMarketPrice,
		Currency: r.Meta.Currency,
	}, nil
}

func (s *YahooSource) getJSON(ctx context.Context, url string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fault.Classify(err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fault.ErrNotFound
	case resp.StatusCode == http.StatusTooManyRequests:
		return fault.ErrRateLimited
	case resp.StatusCode != http.StatusOK:
		return fault.Classify(fmt.Errorf("status %d", resp.StatusCode))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
