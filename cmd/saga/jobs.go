package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newJobsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "jobs",
		Short: "Observe and control generation jobs",
	}

	cmd.AddCommand(
		newJobsStatusCmd(),
		newJobsCancelCmd(),
	)

	return cmd
}

func newJobsStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the saga's most recent generation job",
		RunE:  runJobsStatus,
	}
}

func runJobsStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		job, err := d.JobsHandler.HandleStatus(ctx, d.SagaID)
		if err != nil {
			return err
		}

		fmt.Printf("Job %s\n", job.ID)
		fmt.Printf("  Status:              %s\n", job.Status)
		fmt.Printf("  Pairs scored:        %d/%d\n", job.PairsProcessed, job.PairsTotal)
		fmt.Printf("  Suggestions created: %d\n", job.SuggestionsCreated)
		fmt.Printf("  Created:             %s\n", job.CreatedAt.Format("2006-01-02 15:04:05"))
		if job.FinishedAt != nil {
			fmt.Printf("  Finished:            %s\n", job.FinishedAt.Format("2006-01-02 15:04:05"))
		}
		if job.FailureReason != "" {
			fmt.Printf("  Failure reason:      %s\n", job.FailureReason)
		}
		return nil
	})
}

func newJobsCancelCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel the saga's active generation job",
		RunE:  runJobsCancel,
	}
}

func runJobsCancel(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		if err := d.JobsHandler.HandleCancel(ctx, d.SagaID); err != nil {
			return err
		}
		fmt.Println("Job cancelled. Suggestions already created are retained.")
		return nil
	})
}
