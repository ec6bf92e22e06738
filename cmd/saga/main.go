// Package main provides the entry point for the saga CLI application.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var (
	version    = "0.1.0-dev"
	globalSaga string
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	rootCmd := &cobra.Command{
		Use:     "saga",
		Short:   "A predictive relationship suggestion engine for saga universes",
		Version: version,
	}

	rootCmd.PersistentFlags().StringVarP(&globalSaga, "saga", "s", "", "Saga to operate on (required)")

	rootCmd.AddCommand(
		newInitCmd(),
		newEntityCmd(),
		newRelateCmd(),
		newGenerateCmd(),
		newJobsCmd(),
		newSuggestionsCmd(),
		newFeedbackCmd(),
		newWeightsCmd(),
		newSagasCmd(),
	)

	return rootCmd.ExecuteContext(ctx)
}
