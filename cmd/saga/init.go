package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/application/handlers"
)

func newInitCmd() *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "init <saga-name>",
		Short: "Initialize a new saga in the current directory",
		Long: `Creates the .saga configuration directory (on first run) and registers
a new saga. Each saga gets its own SQLite database and Qdrant collection.

Examples:
  saga init star-wars
  saga init middle-earth --description "Third Age chronicles"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(args[0], description)
		},
	}

	cmd.Flags().StringVarP(&description, "description", "d", "", "Saga description")

	return cmd
}

func runInit(sagaName, description string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	handler := handlers.NewInitHandler()
	result, err := handler.Handle(cwd, sagaName, description)
	if err != nil {
		return err
	}

	fmt.Printf("Initialized saga %q\n", result.SagaName)
	fmt.Printf("  Config:     %s\n", result.ConfigPath)
	fmt.Printf("  Collection: %s\n", result.CollectionName)
	fmt.Println()
	fmt.Println("Next steps:")
	fmt.Printf("  saga entity add \"Name\" --saga %s\n", result.SagaName)
	fmt.Printf("  saga generate --saga %s\n", result.SagaName)

	return nil
}
