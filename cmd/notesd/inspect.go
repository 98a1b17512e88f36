package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/aretw0/introspection"
	"github.com/spf13/cobra"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print the internal state of the store and notes repository as JSON",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		notes := openNotes()
		// State reflects the last load; list once so it is current.
		if _, err := notes.ListNotes(context.Background()); err != nil {
			fatal("Error reading notes", err)
		}

		components := []introspection.Introspectable{notes}
		if store, ok := notes.Store().(introspection.Introspectable); ok {
			components = append(components, store)
		}

		report := make(map[string]any, len(components))
		for _, c := range components {
			name := "component"
			if typed, ok := c.(introspection.Component); ok {
				name = typed.ComponentType()
			}
			report[name] = c.State()
		}

		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(report); err != nil {
			fatal("Error encoding JSON", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(inspectCmd)
}
