package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/application/handlers"
)

func newSuggestionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggestions",
		Short: "Review relationship suggestions",
	}

	cmd.AddCommand(
		newSuggestionsListCmd(),
		newSuggestionsShowCmd(),
	)

	return cmd
}

func newSuggestionsListCmd() *cobra.Command {
	var opts handlers.ListOptions

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List suggestions ordered by review priority",
		Long: `Lists suggestions highest priority first. Filter by status
(pending, accepted, rejected, modified, auto_accepted, dismissed),
relationship type, or a minimum confidence.

Examples:
  saga suggestions list --saga star-wars
  saga suggestions list --status pending --min-confidence 60 --saga star-wars`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSuggestionsList(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Status, "status", "", "Filter by status")
	cmd.Flags().StringVar(&opts.Type, "type", "", "Filter by suggested relationship type")
	cmd.Flags().Float64Var(&opts.MinConfidence, "min-confidence", 0, "Minimum confidence filter")
	cmd.Flags().IntVar(&opts.Limit, "limit", DefaultSuggestionsLimit, "Maximum suggestions to show")
	cmd.Flags().IntVar(&opts.Offset, "offset", 0, "Pagination offset")

	return cmd
}

func runSuggestionsList(cmd *cobra.Command, opts handlers.ListOptions) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		result, err := d.SuggestHandler.HandleList(ctx, d.SagaID, opts)
		if err != nil {
			return fmt.Errorf("listing suggestions: %w", err)
		}

		if len(result.Suggestions) == 0 {
			fmt.Println("No suggestions. Run 'saga generate' to create some.")
			return nil
		}

		fmt.Printf("%-38s %-12s %-10s %-10s %s\n", "ID", "TYPE", "CONFIDENCE", "PRIORITY", "STATUS")
		for _, s := range result.Suggestions {
			fmt.Printf("%-38s %-12s %-10.1f %-10.1f %s\n",
				s.ID, s.SuggestedType, s.Confidence, s.PriorityScore, s.Status)
		}
		fmt.Printf("\nShowing %d of %d\n", len(result.Suggestions), result.Total)
		return nil
	})
}

func newSuggestionsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <suggestion-id>",
		Short: "Show a suggestion with its features and feedback",
		Args:  cobra.ExactArgs(1),
		RunE:  runSuggestionsShow,
	}
}

func runSuggestionsShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		detail, err := d.SuggestHandler.HandleShow(ctx, args[0])
		if err != nil {
			return err
		}

		s := detail.Suggestion
		sourceName, targetName := s.SourceEntityID, s.TargetEntityID
		if detail.Source != nil {
			sourceName = detail.Source.Name
		}
		if detail.Target != nil {
			targetName = detail.Target.Name
		}

		fmt.Printf("Suggestion %s\n", s.ID)
		fmt.Printf("  %s -[%s]-> %s\n", sourceName, s.SuggestedType, targetName)
		fmt.Printf("  Confidence: %.1f\n", s.Confidence)
		fmt.Printf("  Strength:   %d\n", s.Strength)
		fmt.Printf("  Priority:   %.1f\n", s.PriorityScore)
		fmt.Printf("  Status:     %s\n", s.Status)
		if s.CreatedRelationshipID != nil {
			fmt.Printf("  Relationship: %s\n", *s.CreatedRelationshipID)
		}
		if s.Reasoning != "" {
			fmt.Printf("  Reasoning:  %s\n", s.Reasoning)
		}

		fmt.Println("\nFeatures:")
		for _, f := range s.Features {
			fmt.Printf("  %-22s %.3f\n", f.Type, f.Value)
		}

		if len(detail.Feedback) > 0 {
			fmt.Printf("\nFeedback (%d):\n", len(detail.Feedback))
			for _, fb := range detail.Feedback {
				fmt.Printf("  %s  %s", fb.CreatedAt.Format("2006-01-02 15:04:05"), fb.Action)
				if fb.CorrectedType != nil {
					fmt.Printf("  type=%s", *fb.CorrectedType)
				}
				if fb.CorrectedStrength != nil {
					fmt.Printf("  strength=%d", *fb.CorrectedStrength)
				}
				if fb.Note != "" {
					fmt.Printf("  (%s)", fb.Note)
				}
				fmt.Println()
			}
		}
		return nil
	})
}
