package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

var (
	reportWait bool
	reportPoll time.Duration
)

var reportCmd = &cobra.Command{
	Use:   "report <ticker>",
	Short: "Generate an investment report for a ticker",
	Long: `Submit an asynchronous report job for a ticker. The job scrapes fresh
context, rebuilds the ticker's vector index, runs the analyst stages and
writes a PDF report.

Examples:
  finsight report AAPL            # Submit and print the job ID
  finsight report AAPL --wait     # Submit and block until the report is done`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().BoolVarP(&reportWait, "wait", "w", false, "wait for the job to finish")
	reportCmd.Flags().DurationVar(&reportPoll, "poll-interval", 2*time.Second, "status poll interval with --wait")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	ticker := strings.ToUpper(args[0])

	jobID, err := jobs.Submit(ticker)
	if err != nil {
		return fmt.Errorf("submit report job: %w", err)
	}

	if !reportWait {
		fmt.Printf("Job %s submitted for %s\n", jobID, ticker)
		fmt.Printf("Check progress with: finsight jobs %s\n", jobID)
		return nil
	}

	fmt.Printf("Job %s submitted for %s, waiting...\n", jobID, ticker)

	lastState := ""
	for {
		snap, err := jobs.Status(jobID)
		if err != nil {
			return fmt.Errorf("poll job: %w", err)
		}

		if string(snap.State) != lastState {
			lastState = string(snap.State)
			fmt.Printf("  %s\n", snap.State)
		}

		if snap.State.Terminal() {
			if snap.Err != nil {
				return fmt.Errorf("job %s failed (%s): %v", jobID, snap.FailureReason(), snap.Err)
			}
			fmt.Printf("Report written to %s\n", snap.Artifact)
			return nil
		}

		time.Sleep(reportPoll)
	}
}
