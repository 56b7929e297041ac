package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finsight-ai/finsight/internal/llm"
	"github.com/finsight-ai/finsight/internal/marketdata"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/finsight-ai/finsight/internal/rag"
)

// MacroAgent analyzes macroeconomic trends relevant to the company, using
// the indexed company profile plus the live price for framing.
type MacroAgent struct {
	querier   Querier
	source    marketdata.Source
	generator llm.Generator
	topK      int
}

var _ Agent = (*MacroAgent)(nil)

// NewMacroAgent creates the macroeconomic analyst stage.
func NewMacroAgent(querier Querier, source marketdata.Source, generator llm.Generator, topK int) *MacroAgent {
	return &MacroAgent{querier: querier, source: source, generator: generator, topK: topK}
}

// Kind implements Agent.
func (a *MacroAgent) Kind() models.AnalysisKind { return models.KindMacro }

// Produce retrieves the company profile and generates the macro outlook.
func (a *MacroAgent) Produce(ctx context.Context, ticker string) models.AnalysisResult {
	slog.Debug("macro analyst running", "ticker", ticker)

	topic := fmt.Sprintf("Company profile, sector and industry of %s", ticker)
	docs, err := a.querier.Query(ctx, ticker, topic, a.topK)
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("retrieve profile: %v", err))
	}
	if len(docs) == 0 {
		return failed(a.Kind(), "no profile context available for ticker")
	}

	// The live quote is optional framing; the retrieved profile is required.
	var price float64
	if snap, err := a.source.FetchLiveIndicators(ctx, ticker); err == nil {
		price = snap.Price
	} else {
		slog.Warn("macro analyst proceeding without live quote", "ticker", ticker, "error", err)
	}

	narrative, err := a.generator.Generate(ctx, macroPrompt(ticker, rag.FormatContext(docs), price))
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("generate narrative: %v", err))
	}

	supporting := map[string]any{}
	if price > 0 {
		supporting["last_price"] = price
	}

	return models.AnalysisResult{
		Kind:       a.Kind(),
		Narrative:  narrative,
		Supporting: supporting,
		Succeeded:  true,
	}
}
