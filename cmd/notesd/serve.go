package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/aretw0/lifecycle"
	"github.com/spf13/cobra"

	"github.com/aretw0/notesd"
	"github.com/aretw0/notesd/pkg/core"
)

var (
	serveHost      string
	servePort      int
	serveStaticDir string
	serveWatch     bool
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the notes API",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("host") {
			cfg.Host = serveHost
		}
		if cmd.Flags().Changed("port") {
			cfg.Port = servePort
		}
		if cmd.Flags().Changed("static-dir") {
			cfg.StaticDir = serveStaticDir
		}
		if err := cfg.Validate(); err != nil {
			fatal("Invalid configuration", err)
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
		defer stop()

		notes := openNotes()
		logger := slog.Default()

		if serveWatch {
			watchChanges(ctx, notes.Store(), logger)
		}

		srv := notesd.NewServer(notes, notesd.ServerConfig{
			Host:        cfg.Host,
			Port:        cfg.Port,
			ReadBuffer:  cfg.ReadBuffer,
			AcceptRate:  cfg.AcceptRate,
			AcceptBurst: cfg.AcceptBurst,
			Logger:      logger,
		}, cfg.StaticDir)

		logger.Info("notesd starting", "db", cfg.DB, "version", notesd.Version)
		if err := srv.ListenAndServe(ctx); err != nil {
			fatal("Error serving", err)
		}
	},
}

// watchChanges logs edits made to the store file by other processes.
func watchChanges(ctx context.Context, store core.Store, logger *slog.Logger) {
	w, ok := store.(core.Watchable)
	if !ok {
		logger.Warn("store does not support watching")
		return
	}
	events, err := w.Watch(ctx, "*")
	if err != nil {
		logger.Warn("failed to watch store", "error", err)
		return
	}
	lifecycle.Go(ctx, func(ctx context.Context) error {
		for e := range events {
			logger.Info("external change", "event", e.String())
		}
		return nil
	}, lifecycle.WithErrorHandler(func(err error) {
		logger.Error("watch logger panic", "error", err)
	}))
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveHost, "host", "0.0.0.0", "Address to bind")
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 8001, "Port to listen on (0 picks a free port)")
	serveCmd.Flags().StringVar(&serveStaticDir, "static-dir", "", "Directory holding index.html and api.js (default: embedded)")
	serveCmd.Flags().BoolVarP(&serveWatch, "watch", "w", false, "Log changes made to the store file by other processes")
}
