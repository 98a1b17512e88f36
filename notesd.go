package notesd

import (
	iofs "io/fs"
	"log/slog"
	"os"

	"github.com/aretw0/notesd/internal/platform"
	"github.com/aretw0/notesd/internal/server"
	"github.com/aretw0/notesd/pkg/core"
	"github.com/aretw0/notesd/web"
)

// --- Types ---

// Note is a public alias for the stored note.
type Note = core.Note

// NoteRepository is a public alias for the notes schema bound to a store.
type NoteRepository = core.NoteRepository

// Store is a public alias for the document store contract.
type Store = core.Store

// Server is a public alias for the polling notes server.
type Server = server.Server

// ServerConfig is a public alias for the server listener settings.
type ServerConfig = server.Config

// FileConfig is a public alias for the content of notesd.yaml.
type FileConfig = platform.FileConfig

// --- Configuration ---

// Option defines a functional option for configuring notesd.
type Option = platform.Option

// WithAutoInit creates missing directories (and the git repository when versioning).
func WithAutoInit(auto bool) Option {
	return platform.WithAutoInit(auto)
}

// WithVersioning commits the store file to git after every mutation.
func WithVersioning(enabled bool) Option {
	return platform.WithVersioning(enabled)
}

// WithForceTemp forces the store file into a temporary directory (useful for testing).
func WithForceTemp(force bool) Option {
	return platform.WithForceTemp(force)
}

// WithMustExist ensures the directory holding the store file must already exist.
func WithMustExist(must bool) Option {
	return platform.WithMustExist(must)
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return platform.WithLogger(logger)
}

// WithStore injects a custom store.
func WithStore(store core.Store) Option {
	return platform.WithStore(store)
}

// WithIDPolicy selects how new record ids are assigned.
func WithIDPolicy(policy core.IDPolicy) Option {
	return platform.WithIDPolicy(policy)
}

// WithReadOnly rejects every mutation with core.ErrReadOnly.
func WithReadOnly(enabled bool) Option {
	return platform.WithReadOnly(enabled)
}

// WithDevSafety controls the temp-dir sandbox used under `go run` and `go test`.
func WithDevSafety(enabled bool) Option {
	return platform.WithDevSafety(enabled)
}

// WithWatcherErrorHandler receives errors raised while watching the store file.
func WithWatcherErrorHandler(fn func(error)) Option {
	return platform.WithWatcherErrorHandler(fn)
}

// --- Factories ---

// Init opens the store at path without binding a schema.
func Init(path string, opts ...Option) (core.Store, error) {
	return platform.Init(path, opts...)
}

// New opens the store at path and returns the notes repository over it.
func New(path string, opts ...Option) (*core.NoteRepository, error) {
	return platform.New(path, opts...)
}

// LoadConfig reads notesd.yaml. An empty path searches upwards from the
// working directory.
func LoadConfig(path string) (FileConfig, error) {
	return platform.LoadConfig(path)
}

// Assets returns the static files served at / and /api.js: staticDir when
// set, the embedded defaults otherwise.
func Assets(staticDir string) iofs.FS {
	if staticDir != "" {
		return os.DirFS(staticDir)
	}
	return web.Assets
}

// NewServer builds the notes server over notes. Call Listen and Serve, or
// ListenAndServe, on the result.
func NewServer(notes *core.NoteRepository, cfg ServerConfig, staticDir string) *Server {
	router := server.NewRouter(notes, Assets(staticDir), cfg.Logger)
	return server.New(cfg, router)
}
