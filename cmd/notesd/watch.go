package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/aretw0/notesd/internal/platform"
	"github.com/aretw0/notesd/pkg/adapters/lifecycle"
	"github.com/aretw0/notesd/pkg/core"
)

var watchTypes []string

var watchCmd = &cobra.Command{
	Use:   "watch [pattern]",
	Short: "Print changes other processes make to the store file",
	Long: `Watch prints one line per table or record changed by another process.
Pattern filters table names using glob syntax (default "*").
--type keeps only the given change kinds (create, modify, delete).`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		pattern := "*"
		if len(args) == 1 {
			pattern = args[0]
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
		defer stop()

		store := openStore(platform.WithWatcherErrorHandler(func(err error) {
			slog.Warn("watch error", "error", err)
		}))
		w, ok := store.(core.Watchable)
		if !ok {
			fatal("Error watching", fmt.Errorf("store does not support watching"))
		}
		events, err := w.Watch(ctx, pattern)
		if err != nil {
			fatal("Error watching", err)
		}

		kinds, unknown := lifecycle.ParseEventTypes(watchTypes)
		if len(unknown) > 0 {
			fatal("Error watching", fmt.Errorf("unknown event types: %s", strings.Join(unknown, ", ")))
		}
		src := lifecycle.NewSource(events, kinds...)
		if err := src.Start(ctx); err != nil {
			fatal("Error watching", err)
		}
		slog.Info("watching", "db", cfg.DB, "pattern", pattern, "types", watchTypes)
		for e := range src.Events() {
			fmt.Println(e.String())
		}
	},
}

func init() {
	watchCmd.Flags().StringSliceVar(&watchTypes, "type", nil, "Only print these change kinds (create, modify, delete)")
	rootCmd.AddCommand(watchCmd)
}
