package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/aretw0/notesd/internal/platform"
	"github.com/aretw0/notesd/pkg/core"
)

var (
	verbose    bool
	configPath string
	dbPath     string
	readOnly   bool
	devSafety  bool

	// cfg is resolved once per invocation from notesd.yaml and flags.
	cfg platform.FileConfig
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "notesd",
	Short: "A tiny notes service backed by a single JSON file",
	Long: `notesd stores notes in one JSON document file and serves them over a
minimal HTTP API from a single-threaded polling loop.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := platform.LoadConfig(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
		if cmd.Flags().Changed("db") {
			cfg.DB = dbPath
		}
		if cmd.Flags().Changed("read-only") {
			cfg.ReadOnly = readOnly
		}

		level, err := platform.ParseLevel(cfg.LogLevel)
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		slog.SetDefault(newLogger(level))
		return nil
	},
}

func newLogger(level slog.Level) *slog.Logger {
	return slog.New(tint.NewHandler(colorable.NewColorable(os.Stderr), &tint.Options{
		Level:      level,
		TimeFormat: "15:04:05.000",
		NoColor:    !isatty.IsTerminal(os.Stderr.Fd()),
	}))
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main().
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// storeOptions turns the resolved configuration into platform options.
func storeOptions(extra ...platform.Option) []platform.Option {
	opts := append(cfg.Options(),
		platform.WithLogger(slog.Default()),
		platform.WithDevSafety(devSafety),
	)
	return append(opts, extra...)
}

func openStore(extra ...platform.Option) core.Store {
	store, err := platform.Init(cfg.DB, storeOptions(extra...)...)
	if err != nil {
		fatal("Error opening store", err)
	}
	return store
}

func openNotes(extra ...platform.Option) *core.NoteRepository {
	notes, err := platform.New(cfg.DB, storeOptions(extra...)...)
	if err != nil {
		fatal("Error opening notes", err)
	}
	return notes
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to notesd.yaml (default: search upwards)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", platform.DefaultStoreFile, "Path to the JSON store file")
	rootCmd.PersistentFlags().BoolVar(&readOnly, "read-only", false, "Reject every mutation")
	rootCmd.PersistentFlags().BoolVar(&devSafety, "dev-safety", true, "Sandbox the store under the temp dir when run via go run")
}
