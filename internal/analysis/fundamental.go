package analysis

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/finsight-ai/finsight/internal/llm"
	"github.com/finsight-ai/finsight/internal/models"
	"github.com/finsight-ai/finsight/internal/rag"
)

// FundamentalAgent assesses financial health from retrieved ticker context.
type FundamentalAgent struct {
	querier   Querier
	generator llm.Generator
	topK      int
}

var _ Agent = (*FundamentalAgent)(nil)

// NewFundamentalAgent creates the fundamental analyst stage.
func NewFundamentalAgent(querier Querier, generator llm.Generator, topK int) *FundamentalAgent {
	return &FundamentalAgent{querier: querier, generator: generator, topK: topK}
}

// Kind implements Agent.
func (a *FundamentalAgent) Kind() models.AnalysisKind { return models.KindFundamental }

// Produce retrieves financial-health context and generates the narrative.
func (a *FundamentalAgent) Produce(ctx context.Context, ticker string) models.AnalysisResult {
	slog.Debug("fundamental analyst running", "ticker", ticker)

	topic := fmt.Sprintf("Summary of the financial health, business and recent news of %s", ticker)
	docs, err := a.querier.Query(ctx, ticker, topic, a.topK)
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("retrieve context: %v", err))
	}
	if len(docs) == 0 {
		return failed(a.Kind(), "no context available for ticker")
	}

	narrative, err := a.generator.Generate(ctx, fundamentalPrompt(ticker, rag.FormatContext(docs)))
	if err != nil {
		return failed(a.Kind(), fmt.Sprintf("generate narrative: %v", err))
	}

	sources := make([]string, 0, len(docs))
	for _, d := range docs {
		sources = append(sources, d.Document.ID)
	}

	return models.AnalysisResult{
		Kind:      a.Kind(),
		Narrative: narrative,
		Supporting: map[string]any{
			"document_ids": sources,
		},
		Succeeded: true,
	}
}
