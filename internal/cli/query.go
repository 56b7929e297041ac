package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/internal/fault"
)

var queryTopK int

var queryCmd = &cobra.Command{
	Use:   "query <ticker> <topic>",
	Short: "Search a ticker's index",
	Long: `Retrieve the documents most relevant to a topic from a ticker's
vector index. Useful for inspecting what the analyst stages will see.

Examples:
  finsight query AAPL "financial health"
  finsight query MSFT "cloud revenue" --top-k 3`,
	Args: cobra.ExactArgs(2),
	RunE: runQuery,
}

func init() {
	queryCmd.Flags().IntVarP(&queryTopK, "top-k", "k", 0, "number of documents to return (default from config)")
	rootCmd.AddCommand(queryCmd)
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	ticker := strings.ToUpper(args[0])
	topic := args[1]

	k := queryTopK
	if k <= 0 {
		k = cfg.TopK
	}

	scored, err := manager.Query(ctx, ticker, topic, k)
	if err != nil {
		if errors.Is(err, fault.ErrNotFound) {
			return fmt.Errorf("no index for %s, run: finsight ingest %s", ticker, ticker)
		}
		return fmt.Errorf("query %s: %w", ticker, err)
	}

	if len(scored) == 0 {
		fmt.Println("No matching documents")
		return nil
	}

	fmt.Printf("Top %d documents for %q in %s (index version %d):\n\n", len(scored), topic, ticker, manager.Version(ticker))
	for i, s := range scored {
		fmt.Printf("%d. [%s] score=%.4f source=%s\n", i+1, s.Document.ID, s.Score, s.Document.Source)
		fmt.Printf("   %s\n\n", preview(s.Document.Text, 200))
	}

	return nil
}

func preview(text string, max int) string {
	text = strings.Join(strings.Fields(text), " ")
	if len(text) <= max {
		return text
	}
	return text[:max] + "..."
}
