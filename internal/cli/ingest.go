package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/internal/chunk"
	"github.com/finsight-ai/finsight/internal/fault"
	"github.com/finsight-ai/finsight/internal/orchestrator"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <ticker>",
	Short: "Rebuild the vector index for a ticker",
	Long: `Scrape fresh context for a ticker and rebuild its vector index
synchronously, without running the analysis stages.

Examples:
  finsight ingest AAPL`,
	Args: cobra.ExactArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ticker := strings.ToUpper(args[0])

	raw, err := source.FetchContext(ctx, ticker)
	if err != nil {
		return fmt.Errorf("fetch context for %s: %w", ticker, err)
	}

	docs := orchestrator.BuildDocuments(ticker, raw, chunk.DefaultConfig())
	if len(docs) == 0 {
		return fmt.Errorf("no usable context for %s", ticker)
	}

	version, err := manager.Ingest(ctx, ticker, docs)
	switch {
	case err == nil:
		fmt.Printf("Ingested %d documents for %s (index version %d)\n", len(docs), ticker, version)
	case errors.Is(err, fault.ErrPersistenceFailed):
		fmt.Printf("Ingested %d documents for %s (index version %d)\n", len(docs), ticker, version)
		fmt.Printf("Warning: index was not persisted remotely: %v\n", err)
	default:
		return fmt.Errorf("ingest %s: %w", ticker, err)
	}

	return nil
}
