package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/application/handlers"
)

func newEntityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entity",
		Short: "Manage saga entities",
	}

	cmd.AddCommand(
		newEntityAddCmd(),
		newEntityListCmd(),
		newEntityShowCmd(),
		newEntityImportCmd(),
	)

	return cmd
}

func newEntityAddCmd() *cobra.Command {
	var (
		entityType  string
		description string
		importance  float64
		timeline    float64
		attrs       []string
	)

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add an entity to a saga",
		Long: `Adds an entity (character, location, faction, item, or event).
Re-adding an existing name updates it in place.

Attributes are key=value pairs; birth_year, family_name, and opposes carry
engine meaning for type prediction.

Examples:
  saga entity add "Obi-Wan" --type character --importance 0.9 --saga star-wars
  saga entity add "Luke" --attr family_name=skywalker --attr birth_year=19 --saga star-wars
  saga entity add "Rebel Alliance" --type faction --attr "opposes=galactic empire" --saga star-wars`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := handlers.AddOptions{
				Type:        entityType,
				Description: description,
				Importance:  importance,
			}
			if cmd.Flags().Changed("timeline") {
				opts.TimelineAnchor = &timeline
			}
			var err error
			opts.Attributes, err = parseAttrs(attrs)
			if err != nil {
				return err
			}
			return runEntityAdd(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&entityType, "type", "t", "character", "Entity type (character, location, faction, item, event)")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Entity description text")
	cmd.Flags().Float64Var(&importance, "importance", 0.5, "Editorial importance [0,1]")
	cmd.Flags().Float64Var(&timeline, "timeline", 0, "Timeline anchor (story-time position)")
	cmd.Flags().StringArrayVar(&attrs, "attr", nil, "Attribute as key=value (repeatable)")

	return cmd
}

func runEntityAdd(cmd *cobra.Command, name string, opts handlers.AddOptions) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		entity, err := d.EntityHandler.HandleAdd(ctx, d.SagaID, name, opts)
		if err != nil {
			return fmt.Errorf("adding entity: %w", err)
		}
		fmt.Printf("Saved entity: %s (%s)\n", entity.Name, entity.ID)
		return nil
	})
}

func newEntityListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List entities in a saga",
		RunE:  runEntityList,
	}
}

func runEntityList(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		ents, err := d.EntityHandler.HandleList(ctx, d.SagaID)
		if err != nil {
			return fmt.Errorf("listing entities: %w", err)
		}

		if len(ents) == 0 {
			fmt.Println("No entities yet.")
			return nil
		}

		fmt.Printf("%-38s %-20s %-10s %s\n", "ID", "NAME", "TYPE", "IMPORTANCE")
		for _, e := range ents {
			fmt.Printf("%-38s %-20s %-10s %.2f\n", e.ID, e.Name, e.Type, e.Importance)
		}
		fmt.Printf("\n%d entities\n", len(ents))
		return nil
	})
}

func newEntityShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id-or-name>",
		Short: "Show an entity and its relationships",
		Args:  cobra.ExactArgs(1),
		RunE:  runEntityShow,
	}
}

func runEntityShow(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		detail, err := d.EntityHandler.HandleShow(ctx, d.SagaID, args[0])
		if err != nil {
			return err
		}

		e := detail.Entity
		fmt.Printf("Entity: %s\n", e.Name)
		fmt.Printf("  ID:         %s\n", e.ID)
		fmt.Printf("  Type:       %s\n", e.Type)
		fmt.Printf("  Importance: %.2f\n", e.Importance)
		if e.TimelineAnchor != nil {
			fmt.Printf("  Timeline:   %v\n", *e.TimelineAnchor)
		}
		if e.Description != "" {
			fmt.Printf("  Description: %s\n", e.Description)
		}
		for k, v := range e.Attributes {
			fmt.Printf("  Attr %s = %s\n", k, v)
		}

		if len(detail.Relationships) > 0 {
			fmt.Printf("\nRelationships (%d):\n", len(detail.Relationships))
			for _, rel := range detail.Relationships {
				fmt.Printf("  %s -[%s]-> %s (strength %d)\n",
					rel.SourceEntityID, rel.Type, rel.TargetEntityID, rel.Strength)
			}
		}
		return nil
	})
}

func newEntityImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file>",
		Short: "Bulk-import entities from a JSON or CSV file",
		Long: `Imports entities from a file. JSON files hold an array of entity
objects; CSV files need a name column and may add type, description,
importance, timeline_anchor, and attributes (key=value;key=value) columns.
Existing names are updated in place.`,
		Args: cobra.ExactArgs(1),
		RunE: runEntityImport,
	}
}

func runEntityImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return withDeps(func(d *Deps) error {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("opening import file: %w", err)
		}
		defer f.Close()

		result, err := d.EntityHandler.HandleImport(ctx, d.SagaID, args[0], f)
		if err != nil {
			return fmt.Errorf("importing entities: %w", err)
		}

		fmt.Printf("Imported %d entities (%d created, %d updated)\n",
			result.Created+result.Updated, result.Created, result.Updated)
		return nil
	})
}

// parseAttrs converts repeated key=value flags to a map.
func parseAttrs(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	attrs := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("invalid attribute %q (expected key=value)", pair)
		}
		attrs[key] = value
	}
	return attrs, nil
}
