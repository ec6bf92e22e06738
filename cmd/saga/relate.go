package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newRelateCmd() *cobra.Command {
	var strength int

	cmd := &cobra.Command{
		Use:   "relate <source-entity> <type> <target-entity>",
		Short: "Create a relationship between two entities",
		Long: `Creates a relationship link between two entities, referenced by ID or
name. Use quotes for entity names with spaces.

Valid relationship types:
  - mentor, ally, enemy, family, rival
  - member_of, located_in, owns, associated

Examples:
  saga relate "Obi-Wan" mentor Luke --saga star-wars
  saga relate Luke member_of "Rebel Alliance" --strength 90 --saga star-wars`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRelate(cmd, args, strength)
		},
	}

	cmd.Flags().IntVar(&strength, "strength", 50, "Relationship strength [0,100]")

	return cmd
}

func runRelate(cmd *cobra.Command, args []string, strength int) error {
	ctx := cmd.Context()
	source, relType, target := args[0], args[1], args[2]

	return withDeps(func(d *Deps) error {
		rel, err := d.EntityHandler.HandleRelate(ctx, d.SagaID, source, relType, target, strength)
		if err != nil {
			return fmt.Errorf("creating relationship: %w", err)
		}

		fmt.Printf("Created relationship: %s\n", rel.ID)
		fmt.Printf("  %s -[%s]-> %s (strength %d)\n", source, rel.Type, target, rel.Strength)
		return nil
	})
}
