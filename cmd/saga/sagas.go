package main

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ersonp/saga-core/internal/infrastructure/config"
)

func newSagasCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sagas",
		Short: "Manage sagas",
		RunE:  runSagasList,
	}

	cmd.AddCommand(newSagasListCmd())

	return cmd
}

func newSagasListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all sagas",
		RunE:  runSagasList,
	}
}

func runSagasList(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	sagas, err := config.LoadSagas(cwd)
	if err != nil {
		return err
	}

	if len(sagas.Sagas) == 0 {
		fmt.Println("No sagas configured.")
		fmt.Println("Use 'saga init NAME' to create a saga.")
		return nil
	}

	names := make([]string, 0, len(sagas.Sagas))
	for name := range sagas.Sagas {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Printf("%-20s %-25s %s\n", "NAME", "COLLECTION", "DESCRIPTION")
	fmt.Printf("%-20s %-25s %s\n", "----", "----------", "-----------")
	for _, name := range names {
		entry := sagas.Sagas[name]
		fmt.Printf("%-20s %-25s %s\n", name, entry.Collection, entry.Description)
	}

	return nil
}
