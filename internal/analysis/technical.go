package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/finsight-ai/finsight/internal/llm"
	"github.com/finsight-ai/finsight/internal/marketdata"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/finsight-ai/finsight/internal/ta"
)

// TechnicalAgent computes indicators from live price data and interprets
// them through the generative model.
type TechnicalAgent struct {
	source    marketdata.Source
	generator llm.Generator
}

var _ Agent = (*TechnicalAgent)(nil)

// NewTechnicalAgent creates the technical analyst stage.
func NewTechnicalAgent(source marketdata.Source, generator llm.Generator) *TechnicalAgent {
	return &TechnicalAgent{source: source, generator: generator}
}

// Kind implements Agent.
func (a *TechnicalAgent) Kind() models.AnalysisKind { return models.KindTechnical }

// Produce fetches the price series, computes indicators and generates the
// narrative.
func (a *TechnicalAgent) Produce(ctx context.Context, ticker string) models.AnalysisResult {
	slog.Debug("technical analyst running", "ticker", ticker)

	snap, err := a.source.FetchLiveIndicators(ctx, ticker)
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("fetch indicators: %v", err))
	}

	closes := dropNaN(snap.Closes)
	if len(closes) == 0 {
		return failed(a.Kind(), "empty price series")
	}

	indicators := computeIndicators(snap.Price, closes)
	narrative, err := a.generator.Generate(ctx, technicalPrompt(ticker, indicators))
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("generate narrative: %v", err))
	}

	return models.AnalysisResult{
		Kind:       a.Kind(),
		Narrative:  narrative,
		Supporting: indicators,
		Succeeded:  true,
	}
}

// computeIndicators derives the indicator values fed into the prompt and
// carried as supporting data.
func computeIndicators(price float64, closes []float64) map[string]any {
	out := map[string]any{
		"price":   price,
		"samples": len(closes),
	}
	if sma50 := ta.SMA(closes, 50); !math.IsNaN(sma50) {
		out["sma_50"] = sma50
	}
	if sma200 := ta.SMA(closes, 200); !math.IsNaN(sma200) {
		out["sma_200"] = sma200
	}
	if rsi := ta.RSI(closes, 14); !math.IsNaN(rsi) {
		out["rsi_14"] = rsi
	}
	if mid, up, low := ta.Bollinger(closes, 20, 2.0); !math.IsNaN(mid) {
		out["bollinger_mid"] = mid
		out["bollinger_upper"] = up
		out["bollinger_lower"] = low
	}
	return out
}

// dropNaN removes gaps Yahoo reports as NaN/zero-filled entries.
func dropNaN(series []float64) []float64 {
	out := make([]float64, 0, len(series))
	for _, v := range series {
		if !math.IsNaN(v) && v > 0 {
			out = append(out, v)
		}
	}
	return out
}
