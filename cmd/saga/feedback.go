package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/application/handlers"
)

func newFeedbackCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "feedback",
		Short: "Record decisions on suggestions",
	}

	cmd.AddCommand(
		newFeedbackActionCmd("accept", "Accept a suggestion and create the relationship"),
		newFeedbackActionCmd("reject", "Reject a suggestion"),
		newFeedbackModifyCmd(),
		newFeedbackActionCmd("dismiss", "Dismiss a suggestion without a verdict"),
	)

	return cmd
}

func newFeedbackActionCmd(action, short string) *cobra.Command {
	var note string

	cmd := &cobra.Command{
		Use:   action + " <suggestion-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFeedback(cmd, args[0], action, handlers.FeedbackOptions{Note: note})
		},
	}

	cmd.Flags().StringVar(&note, "note", "", "Optional reviewer note")

	return cmd
}

func newFeedbackModifyCmd() *cobra.Command {
	var opts handlers.FeedbackOptions

	cmd := &cobra.Command{
		Use:   "modify <suggestion-id>",
		Short: "Accept a suggestion with a corrected type or strength",
		Long: `Accepts a suggestion while correcting its relationship type, strength,
or both. The relationship is created with the corrected values.

Examples:
  saga feedback modify abc123 --type ally --saga star-wars
  saga feedback modify abc123 --strength 70 --note "weaker than scored" --saga star-wars`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts.HasStrength = cmd.Flags().Changed("strength")
			return runFeedback(cmd, args[0], "modify", opts)
		},
	}

	cmd.Flags().StringVar(&opts.CorrectedType, "type", "", "Corrected relationship type")
	cmd.Flags().IntVar(&opts.CorrectedStrength, "strength", 0, "Corrected strength [0,100]")
	cmd.Flags().StringVar(&opts.Note, "note", "", "Optional reviewer note")

	return cmd
}

func runFeedback(cmd *cobra.Command, suggestionID, action string, opts handlers.FeedbackOptions) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		result, err := d.FeedbackHandler.Handle(ctx, suggestionID, action, opts)
		if err != nil {
			return err
		}

		fmt.Printf("Suggestion %s: %s\n", suggestionID, result.Status)
		if result.RelationshipID != "" {
			fmt.Printf("  Created relationship: %s\n", result.RelationshipID)
		}
		return nil
	})
}
