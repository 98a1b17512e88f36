package platform

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
)

// Init opens the store at path and prepares it for use.
func Init(path string, opts ...Option) (core.Store, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(o)
	}

	if o.store != nil {
		return o.store, nil
	}

	store, err := initFS(path, o)
	if err != nil {
		return nil, err
	}
	if err := store.Initialize(context.Background()); err != nil {
		return nil, err
	}
	return store, nil
}

// New opens the store at path and binds the notes schema to it.
//
//	notes, err := platform.New("db.json", platform.WithLogger(logger))
func New(path string, opts ...Option) (*core.NoteRepository, error) {
	store, err := Init(path, opts...)
	if err != nil {
		return nil, err
	}
	return core.NewNoteRepository(context.Background(), store)
}

// initFS resolves the configuration of the JSON file store.
func initFS(path string, o *options) (*fs.Store, error) {
	autoInit, _ := o.config["auto_init"].(bool)
	versioning, _ := o.config["versioning"].(bool)
	tempDir, _ := o.config["temp_dir"].(bool)
	mustExist, _ := o.config["must_exist"].(bool)
	isReadOnly, _ := o.config["read_only"].(bool)
	errorHandler, _ := o.config["watcher_error_handler"].(func(error))

	policy, _ := o.config["id_policy"].(core.IDPolicy)
	policy, err := core.ParseIDPolicy(string(policy))
	if err != nil {
		return nil, err
	}

	// Default to true (safe) if not present.
	devSafety := true
	if val, ok := o.config["dev_safety"].(bool); ok {
		devSafety = val
	}
	bypassSafety := isReadOnly || !devSafety

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	useTemp := tempDir || (IsDevRun() && !bypassSafety)
	resolvedPath := ResolveStorePath(path, useTemp)
	if useTemp && resolvedPath != path {
		logger.Warn("running in SAFE MODE (dev/test)", "original_path", path, "resolved_path", resolvedPath)
	} else if IsDevRun() && bypassSafety && !isReadOnly {
		logger.Debug("dev sandbox bypassed", "path", resolvedPath)
	}

	if resolvedPath == "" {
		return nil, fmt.Errorf("empty store path")
	}

	return fs.NewStore(fs.Config{
		Path:         resolvedPath,
		AutoInit:     autoInit,
		MustExist:    mustExist,
		ReadOnly:     isReadOnly,
		Versioning:   versioning,
		IDPolicy:     policy,
		Logger:       logger,
		ErrorHandler: errorHandler,
	}), nil
}
