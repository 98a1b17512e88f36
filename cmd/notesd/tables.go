package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
)

var exportFormat string

var tablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "Manage the tables of the store file",
}

var tablesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tables with their record counts",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()
		store := openStore()
		names, err := store.ListTables(ctx)
		if err != nil {
			fatal("Error listing tables", err)
		}
		for _, name := range names {
			t, err := store.GetTable(ctx, name)
			if err != nil {
				fatal("Error reading table", err)
			}
			fmt.Printf("%s\t%d\n", name, t.Len())
		}
	},
}

var tablesCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create an empty table",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := openStore().CreateTable(context.Background(), args[0]); err != nil {
			fatal("Error creating table", err)
		}
		fmt.Printf("created table %s\n", args[0])
	},
}

var tablesDropCmd = &cobra.Command{
	Use:   "drop <name>",
	Short: "Delete a table and all of its records",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if err := openStore().DeleteTable(context.Background(), args[0]); err != nil {
			fatal("Error dropping table", err)
		}
		fmt.Printf("dropped table %s\n", args[0])
	},
}

var tablesExportCmd = &cobra.Command{
	Use:   "export <name> [file]",
	Short: "Write the records of a table as JSON, YAML or CSV",
	Long: `Export writes to file, picking the format from its extension, or to
stdout in the format given by --format.`,
	Args: cobra.RangeArgs(1, 2),
	Run: func(cmd *cobra.Command, args []string) {
		format := exportFormat
		var out io.Writer = os.Stdout
		if len(args) == 2 {
			format = args[1]
			f, err := os.Create(args[1])
			if err != nil {
				fatal("Error creating export file", err)
			}
			defer f.Close()
			out = f
		}
		s, err := fs.SerializerFor(format)
		if err != nil {
			fatal("Error exporting table", err)
		}

		t, err := openStore().GetTable(context.Background(), args[0])
		if err != nil {
			fatal("Error reading table", err)
		}
		if err := s.Encode(out, t); err != nil {
			fatal("Error exporting table", err)
		}
	},
}

var tablesImportCmd = &cobra.Command{
	Use:   "import <name> <file>",
	Short: "Append the records of a JSON, YAML or CSV file to a table",
	Long: `Import creates the table when missing and inserts every record of the
file under a new id. Ids found in the file are ignored.`,
	Args: cobra.ExactArgs(2),
	Run: func(cmd *cobra.Command, args []string) {
		s, err := fs.SerializerFor(args[1])
		if err != nil {
			fatal("Error importing table", err)
		}
		f, err := os.Open(args[1])
		if err != nil {
			fatal("Error opening import file", err)
		}
		defer f.Close()
		records, err := s.Decode(f)
		if err != nil {
			fatal("Error decoding import file", err)
		}

		ctx := context.Background()
		store := openStore()
		if fileStore, ok := store.(*fs.Store); ok {
			importBatch(ctx, fileStore, args[0], records)
		} else {
			importEach(ctx, store, args[0], records)
		}
		fmt.Printf("imported %d records into %s\n", len(records), args[0])
	},
}

// importBatch writes every record with a single rewrite of the store file.
func importBatch(ctx context.Context, store *fs.Store, table string, records []core.Record) {
	tx, err := store.Begin(ctx)
	if err != nil {
		fatal("Error starting import", err)
	}
	if err := tx.EnsureTable(table); err != nil {
		fatal("Error staging table", err)
	}
	for _, r := range records {
		if err := tx.CreateRecord(table, r); err != nil {
			fatal("Error staging record", err)
		}
	}
	if err := tx.Commit(ctx, fmt.Sprintf("import %d records into %s", len(records), table)); err != nil {
		fatal("Error importing records", err)
	}
}

func importEach(ctx context.Context, store core.Store, table string, records []core.Record) {
	if err := store.CreateTable(ctx, table); err != nil && !errors.Is(err, core.ErrAlreadyExists) {
		fatal("Error creating table", err)
	}
	for _, r := range records {
		if _, err := store.CreateRecord(ctx, table, r); err != nil {
			fatal("Error importing record", err)
		}
	}
}

func init() {
	rootCmd.AddCommand(tablesCmd)
	tablesCmd.AddCommand(tablesListCmd, tablesCreateCmd, tablesDropCmd, tablesExportCmd, tablesImportCmd)
	tablesExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "Output format when writing to stdout (json, yaml, csv)")
}
