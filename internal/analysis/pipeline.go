package analysis

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/llm"
	"github.com/finsight-ai/finsight/internal/marketdata"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/models"
)

// Pipeline fans out to the analyst stages, aggregates their results and
// feeds the synthesis stage. Stages are isolated: one failing never aborts
// the others, and a degraded report is produced as long as at least one
// stage succeeded.
type Pipeline struct {
	agents    []Agent
	generator llm.Generator
	collector *metrics.Collector
}

// NewPipeline wires the three analyst stages in their report order.
func NewPipeline(querier Querier, source marketdata.Source, generator llm.Generator, topK int, collector *metrics.Collector) *Pipeline {
	return &Pipeline{
		agents: []Agent{
			NewFundamentalAgent(querier, generator, topK),
			NewTechnicalAgent(source, generator),
			NewMacroAgent(querier, source, generator, topK),
		},
		generator: generator,
		collector: collector,
	}
}

// NewPipelineWithAgents builds a pipeline over an explicit agent list.
func NewPipelineWithAgents(agents []Agent, generator llm.Generator, collector *metrics.Collector) *Pipeline {
	return &Pipeline{agents: agents, generator: generator, collector: collector}
}

// Run executes all analyst stages concurrently, waits for every stage to
// finish, and synthesizes the final recommendation. It fails with
// fault.ErrAllStagesFailed only when no stage produced a narrative.
func (p *Pipeline) Run(ctx context.Context, ticker string) (*models.SynthesisResult, error) {
	slog.Info("analysis pipeline started", "ticker", ticker, "stages", len(p.agents))

	results := make([]models.AnalysisResult, len(p.agents))
	var wg sync.WaitGroup
	for i, agent := range p.agents {
		wg.Add(1)
		go func(i int, agent Agent) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					slog.Error("analyst stage panicked", "ticker", ticker, "kind", agent.Kind(), "panic", r)
					results[i] = failed(agent.Kind(), fmt.Sprintf("internal panic: %v", r))
				}
			}()
			results[i] = agent.Produce(ctx, ticker)
		}(i, agent)
	}
	wg.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Succeeded {
			succeeded++
		} else {
			slog.Warn("analyst stage failed", "ticker", ticker, "kind", r.Kind, "reason", r.FailureReason)
		}
	}
	if succeeded == 0 {
		return nil, fmt.Errorf("ticker %s: %w", ticker, fault.ErrAllStagesFailed)
	}

	start := time.Now()
	recommendation, err := p.generator.Generate(ctx, synthesisPrompt(ticker, results))
	p.collector.RecordTiming(metrics.OpGenerate, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("synthesize recommendation for %s: %w", ticker, fault.Classify(err))
	}

	slog.Info("analysis pipeline complete", "ticker", ticker, "succeeded_stages", succeeded)
	return &models.SynthesisResult{
		Ticker:         ticker,
		Recommendation: recommendation,
		Results:        results,
		GeneratedAt:    time.Now().UTC(),
	}, nil
}
