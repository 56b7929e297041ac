package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/internal/orchestrator"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs [job-id]",
	Short: "List or inspect report jobs",
	Long: `List all report jobs or inspect a specific job by ID.

Examples:
  finsight jobs           # List all jobs
  finsight jobs abc123    # Show details for job abc123`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJobs,
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}

func runJobs(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		return showJob(args[0])
	}
	return listJobs()
}

func listJobs() error {
	all := jobs.Jobs()
	if len(all) == 0 {
		fmt.Println("No jobs found")
		return nil
	}

	fmt.Printf("%-10s %-8s %-12s %s\n", "ID", "TICKER", "STATE", "SUBMITTED")
	fmt.Println("--------------------------------------------------")
	for _, job := range all {
		fmt.Printf("%-10s %-8s %-12s %s\n", job.ID, job.Ticker, job.State, job.CreatedAt.Format("15:04:05"))
	}

	return nil
}

func showJob(id string) error {
	job, err := jobs.Status(id)
	if err != nil {
		return fmt.Errorf("job not found: %s", id)
	}

	fmt.Printf("Job: %s\n", job.ID)
	fmt.Printf("  Ticker: %s\n", job.Ticker)
	fmt.Printf("  State: %s\n", job.State)
	fmt.Printf("  Submitted: %s\n", job.CreatedAt.Format(time.RFC3339))
	if job.CompletedAt != nil {
		fmt.Printf("  Finished: %s\n", job.CompletedAt.Format(time.RFC3339))
		fmt.Printf("  Duration: %s\n", job.CompletedAt.Sub(job.CreatedAt).Round(time.Second))
	}
	if job.State == orchestrator.StateComplete {
		fmt.Printf("  Report: %s\n", job.Artifact)
	}
	if job.Err != nil {
		fmt.Printf("  Reason: %s\n", job.FailureReason())
		fmt.Printf("  Error: %v\n", job.Err)
	}

	return nil
}
