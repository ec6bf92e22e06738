package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "generate",
		Short: "Generate relationship suggestions for a saga",
		Long: `Scores every unscored entity pair and stores suggestions above the
confidence floor. Pairs that already hold a suggestion are skipped, so
re-running is cheap. Suggestions at or above the auto-accept threshold are
materialized as relationships immediately.

Example:
  saga generate --saga star-wars`,
		RunE: runGenerate,
	}
}

func runGenerate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		job, err := d.SuggestHandler.HandleGenerate(ctx, d.SagaID)
		if err != nil {
			return err
		}

		fmt.Printf("Job %s: %s\n", job.ID, job.Status)
		fmt.Printf("  Pairs scored:        %d/%d\n", job.PairsProcessed, job.PairsTotal)
		fmt.Printf("  Suggestions created: %d\n", job.SuggestionsCreated)
		if job.FailureReason != "" {
			fmt.Printf("  Failure reason:      %s\n", job.FailureReason)
		}
		return nil
	})
}
