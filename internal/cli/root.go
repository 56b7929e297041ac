// Package cli provides the command-line interface for finsight.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/internal/analysis"
	"github.com/finsight-ai/finsight/internal/blobstore"
	"github.com/finsight-ai/finsight/internal/config"
	"github.com/finsight-ai/finsight/internal/embedding"
	"github.com/finsight-ai/finsight/internal/llm"
	"github.com/finsight-ai/finsight/internal/marketdata"
	"github.com/finsight-ai/finsight/internal/metrics"
	"github.com/finsight-ai/finsight/internal/orchestrator"
	"github.com/finsight-ai/finsight/internal/rag"
	"github.com/finsight-ai/finsight/internal/report"
	"github.com/finsight-ai/finsight/internal/vectorstore"
)

var (
	// Version is set at build time.
	Version = "0.1.0"

	// Global config
	cfg config.Config

	// Wired components, built once in PersistentPreRunE
	collector *metrics.Collector
	manager   *vectorstore.Manager
	source    *marketdata.YahooSource
	jobs      *orchestrator.Orchestrator

	logCleanup func() error
)

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "finsight",
	Short: "AI investment analyst",
	Long: `Finsight produces AI-generated investment reports for stock tickers.

It scrapes public market data into a per-ticker vector index, runs
fundamental, technical and macro analyst stages over it, and synthesizes
the results into a PDF recommendation report.`,
	Version: Version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == "version" || cmd.Name() == "help" {
			return nil
		}

		cfg = config.Load()

		logger, cleanup := config.SetupLogger(cfg.LogFile, cfg.LogLevel)
		logCleanup = cleanup
		slog.SetDefault(logger)

		embedder, err := embedding.New(cfg)
		if err != nil {
			return fmt.Errorf("init embedder: %w", err)
		}
		model, err := llm.NewModel(cfg)
		if err != nil {
			return fmt.Errorf("init model: %w", err)
		}

		store, err := newStore(cmd.Context())
		if err != nil {
			return err
		}

		collector = metrics.NewCollector()
		retriever := rag.NewRetriever(embedder, collector)
		manager = vectorstore.NewManager(embedder, store, retriever, collector, cfg.S3KeyPrefix)
		source = marketdata.NewYahooSource(cfg.DataTimeout, collector)

		pipeline := analysis.NewPipeline(manager, source, model, cfg.TopK, collector)
		sink, err := report.NewPDFSink(cfg.ReportDir, collector)
		if err != nil {
			return fmt.Errorf("init report sink: %w", err)
		}

		jobs = orchestrator.New(source, manager, pipeline, sink, orchestrator.Timeouts{
			Fetch:   cfg.DataTimeout,
			Ingest:  cfg.LLMTimeout,
			Analyze: 3 * cfg.LLMTimeout,
			Render:  cfg.StoreTimeout,
		}, cfg.MaxJobs)

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logCleanup != nil {
			if err := logCleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "Warning: failed to close log file: %v\n", err)
			}
		}
	},
}

// newStore picks the remote index store. Without a bucket the indexes live
// in process memory only and durability is off.
func newStore(ctx context.Context) (blobstore.Store, error) {
	if cfg.S3Bucket == "" {
		fmt.Fprintln(os.Stderr, "Warning: no S3 bucket configured, indexes will not be persisted")
		return blobstore.NewMemory(), nil
	}

	store, err := blobstore.NewS3Store(ctx, cfg.S3Bucket, cfg.S3Region)
	if err != nil {
		return nil, fmt.Errorf("init object store: %w", err)
	}
	return store, nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}
