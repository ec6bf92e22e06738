package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/domain/entities"
)

func newWeightsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "weights",
		Short: "Inspect learned feature weights",
		RunE:  runWeightsList,
	}

	cmd.AddCommand(newWeightsListCmd())

	return cmd
}

func newWeightsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the saga's weights and the global pool",
		RunE:  runWeightsList,
	}
}

func runWeightsList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		saga, global, err := d.SuggestHandler.HandleWeights(ctx, d.SagaID)
		if err != nil {
			return fmt.Errorf("listing weights: %w", err)
		}

		if len(saga) == 0 && len(global) == 0 {
			fmt.Println("No learned weights yet. Feedback on suggestions trains them.")
			return nil
		}

		if len(saga) > 0 {
			fmt.Printf("Saga weights (%s):\n", d.SagaID)
			printWeights(saga)
		}
		if len(global) > 0 {
			fmt.Println("Global weights:")
			printWeights(global)
		}
		return nil
	})
}

func printWeights(weights []entities.WeightVector) {
	fmt.Printf("  %-22s %-8s %-8s %-9s %s\n", "FEATURE", "WEIGHT", "SAMPLES", "ACCURACY", "UPDATED")
	for _, w := range weights {
		fmt.Printf("  %-22s %-8.3f %-8d %-9.2f %s\n",
			w.FeatureType, w.Weight, w.SampleCount, w.AccuracyScore,
			w.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	fmt.Println()
}
