package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/aretw0/notesd/pkg/core"
)

var notesJSON bool

var notesCmd = &cobra.Command{
	Use:   "notes",
	Short: "Read and edit notes directly in the store file",
}

var notesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all notes",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		notes, err := openNotes().ListNotes(context.Background())
		if err != nil {
			fatal("Error listing notes", err)
		}
		printNotes(notes)
	},
}

var notesSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "List notes whose title or content contains query",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		notes, err := openNotes().SearchNotes(context.Background(), args[0])
		if err != nil {
			fatal("Error searching notes", err)
		}
		printNotes(notes)
	},
}

var notesGetCmd = &cobra.Command{
	Use:   "get <id>",
	Short: "Print one note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		note, err := openNotes().GetNote(context.Background(), id)
		if err != nil {
			fatal("Error reading note", err)
		}
		printNotes([]core.Note{note})
	},
}

var notesAddCmd = &cobra.Command{
	Use:   "add <title> <content>",
	Short: "Create a note",
	Args:  cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		id, err := openNotes().CreateNote(context.Background(), args[0], args[1])
		if err != nil {
			fatal("Error creating note", err)
		}
		fmt.Printf("created note %d\n", id)
	},
}

var notesUpdateCmd = &cobra.Command{
	Use:   "update <id> <title> <content>",
	Short: "Overwrite the title and content of a note",
	Args:  cobra.ExactArgs(3),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		if err := openNotes().UpdateNote(context.Background(), id, args[1], args[2]); err != nil {
			fatal("Error updating note", err)
		}
		fmt.Printf("updated note %d\n", id)
	},
}

var notesDeleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a note",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		id := parseID(args[0])
		if err := openNotes().DeleteNote(context.Background(), id); err != nil {
			fatal("Error deleting note", err)
		}
		fmt.Printf("deleted note %d\n", id)
	},
}

func parseID(s string) int {
	id, err := core.CoerceID(s)
	if err != nil {
		fatal("Invalid id "+strconv.Quote(s), err)
	}
	return id
}

func printNotes(notes []core.Note) {
	if notesJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(notes); err != nil {
			fatal("Error encoding JSON", err)
		}
		return
	}
	for _, n := range notes {
		fmt.Printf("%d\t%s\t%s\n", n.ID, n.Title, n.Content)
	}
}

func init() {
	rootCmd.AddCommand(notesCmd)
	notesCmd.AddCommand(notesListCmd, notesSearchCmd, notesGetCmd, notesAddCmd, notesUpdateCmd, notesDeleteCmd)
	notesCmd.PersistentFlags().BoolVar(&notesJSON, "json", false, "Output in JSON format")
}
