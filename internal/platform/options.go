package platform

import (
	"log/slog"

	"github.com/aretw0/notesd/pkg/core"
)

// options holds the internal configuration for a notesd store.
type options struct {
	store  core.Store
	logger *slog.Logger
	config map[string]interface{}
}

// Option defines a functional option for configuring notesd.
type Option func(*options)

// defaultOptions returns the default configuration.
func defaultOptions() *options {
	return &options{
		store:  nil,
		logger: nil,
		config: make(map[string]interface{}),
	}
}

// WithAutoInit creates missing directories (and the git repository when
// versioning) on startup.
func WithAutoInit(auto bool) Option {
	return func(o *options) {
		o.config["auto_init"] = auto
	}
}

// WithVersioning commits the store file to git after every mutation.
// By default, versioning is disabled.
func WithVersioning(enabled bool) Option {
	return func(o *options) {
		o.config["versioning"] = enabled
	}
}

// WithForceTemp forces the store file into a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return func(o *options) {
		o.config["temp_dir"] = force
	}
}

// WithMustExist ensures the directory holding the store file must already exist.
func WithMustExist(must bool) Option {
	return func(o *options) {
		o.config["must_exist"] = must
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithStore injects a custom store (e.g. a mock). When provided, the default
// JSON file store is skipped.
func WithStore(store core.Store) Option {
	return func(o *options) {
		o.store = store
	}
}

// WithIDPolicy selects how new record ids are assigned.
func WithIDPolicy(policy core.IDPolicy) Option {
	return func(o *options) {
		o.config["id_policy"] = policy
	}
}

// WithWatcherErrorHandler registers a callback for errors raised while
// watching the store file, which are otherwise only logged.
func WithWatcherErrorHandler(fn func(error)) Option {
	return func(o *options) {
		o.config["watcher_error_handler"] = fn
	}
}

// WithReadOnly enables read-only mode.
// In this mode:
// 1. Every mutation returns core.ErrReadOnly.
// 2. Initialization (mkdir, git init) is skipped.
// 3. The dev sandbox is bypassed (uses the real path).
func WithReadOnly(enabled bool) Option {
	return func(o *options) {
		o.config["read_only"] = enabled
	}
}

// WithDevSafety controls the sandbox used when running via `go run`.
// By default (true), the store file is re-rooted into a temporary directory
// to prevent accidental data loss.
//
// CAUTION: Only disable this if you are sure your code is safe.
func WithDevSafety(enabled bool) Option {
	return func(o *options) {
		o.config["dev_safety"] = enabled
	}
}
