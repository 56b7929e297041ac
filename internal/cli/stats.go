package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show runtime statistics",
	Long:  `Show in-memory timing statistics for collaborator calls made by this process.`,
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	snap := collector.Snapshot()

	fmt.Printf("Runtime statistics (in-memory, since start)\n")
	fmt.Printf("Uptime: %.1f seconds\n\n", snap.UptimeSeconds)

	if len(snap.Operations) == 0 {
		fmt.Println("No operations recorded")
		return nil
	}

	ops := make([]string, 0, len(snap.Operations))
	for op := range snap.Operations {
		ops = append(ops, op)
	}
	sort.Strings(ops)

	fmt.Printf("%-15s %8s %10s %10s %8s %8s\n", "OPERATION", "CALLS", "TOTAL(ms)", "AVG(ms)", "MIN(ms)", "MAX(ms)")
	for _, op := range ops {
		s := snap.Operations[op]
		fmt.Printf("%-15s %8d %10d %10.1f %8d %8d\n", op, s.Count, s.TotalTimeMs, s.AvgTimeMs, s.MinTimeMs, s.MaxTimeMs)
	}

	return nil
}
