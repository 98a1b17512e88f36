package fs

import (
	"context"
	"crypto/sha256"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aretw0/notesd/pkg/core"
	"github.com/aretw0/notesd/pkg/git"
)

// Store implements core.Store on top of a single JSON file.
//
// Every operation reloads the whole file first, so edits made by other
// processes between calls are picked up. Mutations then rewrite the whole
// file atomically. Concurrent in-process callers are serialized.
type Store struct {
	Path   string
	git    *git.Client
	config Config

	mu            sync.Mutex
	data          *snapshot
	lastSum       [sha256.Size]byte
	hasSum        bool
	watcherActive bool
	lastReconcile *time.Time
	lastPersist   *time.Time
}

// Config holds the configuration for the file-backed store.
type Config struct {
	Path         string        // backing file, e.g. "db.json"
	AutoInit     bool          // create the parent directory and git repository when missing
	MustExist    bool          // fail Initialize if the parent directory is missing
	ReadOnly     bool          // reject every mutation with core.ErrReadOnly
	Versioning   bool          // commit the backing file after every mutation
	IDPolicy     core.IDPolicy // defaults to core.IDPolicySize
	FileMode     os.FileMode   // defaults to 0644
	Logger       *slog.Logger
	ErrorHandler func(error) // receives watcher errors; they are logged otherwise
}

// NewStore creates a file-backed store. Nothing is read until the first call.
func NewStore(config Config) *Store {
	if config.IDPolicy == "" {
		config.IDPolicy = core.IDPolicySize
	}
	if config.FileMode == 0 {
		config.FileMode = 0o644
	}
	if config.Logger == nil {
		config.Logger = slog.Default()
	}
	return &Store{
		Path:   config.Path,
		git:    git.NewClient(filepath.Dir(config.Path), config.Logger),
		config: config,
		data:   newSnapshot(),
	}
}

// Initialize prepares the directory holding the backing file and, with
// versioning enabled, its git repository.
func (s *Store) Initialize(ctx context.Context) error {
	if s.config.ReadOnly {
		return nil
	}

	dir := filepath.Dir(s.Path)
	if s.config.MustExist {
		info, err := os.Stat(dir)
		if os.IsNotExist(err) {
			return fmt.Errorf("store directory does not exist: %s", dir)
		}
		if err != nil {
			return fmt.Errorf("%w: %w", core.ErrIO, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("store directory is not a directory: %s", dir)
		}
	} else if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	if !s.config.Versioning {
		return nil
	}
	if !git.IsInstalled() {
		return fmt.Errorf("git is not installed")
	}
	if s.git.IsRepo() {
		return nil
	}
	if !s.config.AutoInit {
		return fmt.Errorf("path is not a git repository: %s", dir)
	}
	if err := s.git.Init(); err != nil {
		return fmt.Errorf("failed to git init: %w", err)
	}
	return nil
}

// load replaces the in-memory state with the backing file content.
// A missing file is an empty store. Callers hold s.mu.
func (s *Store) load() error {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if os.IsNotExist(err) {
			s.data = newSnapshot()
			return nil
		}
		return fmt.Errorf("%w: failed to read %s: %w", core.ErrIO, s.Path, err)
	}

	snap, err := decodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("failed to load %s: %w", s.Path, err)
	}
	s.data = snap
	return nil
}

// persist rewrites the backing file from the in-memory state. Callers hold s.mu.
func (s *Store) persist() error {
	data, err := encodeSnapshot(s.data)
	if err != nil {
		return err
	}
	if err := writeFileAtomic(s.Path, data, s.config.FileMode); err != nil {
		return fmt.Errorf("%w: %w", core.ErrIO, err)
	}
	s.lastSum = checksum(data)
	s.hasSum = true
	now := time.Now()
	s.lastPersist = &now
	return nil
}

// view runs fn against freshly loaded state.
func (s *Store) view(ctx context.Context, fn func(*snapshot) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	return fn(s.data)
}

// mutate runs the reload-mutate-persist sequence. fn returns the change
// description used for logs and commit messages; when it fails nothing is
// written. Once the file is persisted the mutation has happened: a failed
// git commit is logged and the change is picked up by the next commit.
func (s *Store) mutate(ctx context.Context, fn func(*snapshot) (string, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.config.ReadOnly {
		return core.ErrReadOnly
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}
	change, err := fn(s.data)
	if err != nil {
		return err
	}
	if err := s.persist(); err != nil {
		s.config.Logger.Error("persist failed", "path", s.Path, "change", change, "error", err)
		return err
	}
	s.config.Logger.Debug("store persisted", "path", s.Path, "change", change)

	if s.config.Versioning {
		if err := s.commit(change); err != nil {
			s.config.Logger.Error("git commit failed", "path", s.Path, "change", change, "error", err)
		}
	}
	return nil
}

func (s *Store) commit(msg string) error {
	unlock, err := s.git.Lock()
	if err != nil {
		return fmt.Errorf("failed to acquire git lock: %w", err)
	}
	defer unlock()

	file := filepath.Base(s.Path)
	if err := s.git.Add(file); err != nil {
		return fmt.Errorf("failed to git add: %w", err)
	}
	staged, err := s.git.HasStagedChanges()
	if err != nil {
		return fmt.Errorf("failed to inspect git index: %w", err)
	}
	if !staged {
		return nil
	}
	if err := s.git.Commit(msg); err != nil {
		return fmt.Errorf("failed to git commit: %w", err)
	}
	return nil
}

func tableNotFound(name string) error {
	return fmt.Errorf("table %q: %w", name, core.ErrNotFound)
}

func recordNotFound(table string, id int) error {
	return fmt.Errorf("record %d in table %q: %w", id, table, core.ErrNotFound)
}

// CreateTable adds an empty table.
func (s *Store) CreateTable(ctx context.Context, name string) error {
	return s.mutate(ctx, func(snap *snapshot) (string, error) {
		return createTable(snap, name)
	})
}

// GetTable returns a detached snapshot of the table.
func (s *Store) GetTable(ctx context.Context, name string) (core.Table, error) {
	var t core.Table
	err := s.view(ctx, func(snap *snapshot) error {
		rs, ok := snap.Get(name)
		if !ok {
			return tableNotFound(name)
		}
		t = tableSnapshot(name, rs)
		return nil
	})
	return t, err
}

// DeleteTable removes a table and its records.
func (s *Store) DeleteTable(ctx context.Context, name string) error {
	return s.mutate(ctx, func(snap *snapshot) (string, error) {
		return deleteTable(snap, name)
	})
}

// ListTables returns table names in the order they appear in the file.
func (s *Store) ListTables(ctx context.Context) ([]string, error) {
	var names []string
	err := s.view(ctx, func(snap *snapshot) error {
		names = make([]string, 0, snap.Len())
		for t := snap.Oldest(); t != nil; t = t.Next() {
			names = append(names, t.Key)
		}
		return nil
	})
	return names, err
}

// nextID applies the configured id policy.
func (s *Store) nextID(rs *rows) int {
	if s.config.IDPolicy == core.IDPolicyNext {
		next := 0
		for r := rs.Oldest(); r != nil; r = r.Next() {
			if r.Key >= next {
				next = r.Key + 1
			}
		}
		return next
	}
	return rs.Len()
}

// CreateRecord inserts a copy of fields under a new id and returns the id.
// With core.IDPolicySize the id may equal a live record's id after a
// deletion; that record is then replaced in place.
func (s *Store) CreateRecord(ctx context.Context, table string, fields core.Record) (int, error) {
	var id int
	err := s.mutate(ctx, func(snap *snapshot) (string, error) {
		var change string
		var err error
		id, change, err = s.insertRecord(snap, table, fields)
		return change, err
	})
	if err != nil {
		return 0, err
	}
	return id, nil
}

// GetRecord returns a copy of the record stored under id.
func (s *Store) GetRecord(ctx context.Context, table string, id int) (core.Record, error) {
	var r core.Record
	err := s.view(ctx, func(snap *snapshot) error {
		rs, ok := snap.Get(table)
		if !ok {
			return tableNotFound(table)
		}
		found, ok := rs.Get(id)
		if !ok {
			return recordNotFound(table, id)
		}
		r = found.Clone()
		return nil
	})
	return r, err
}

// UpdateRecord overwrites (or adds) the keys present in fields. The id
// field is owned by the store and is never overwritten.
func (s *Store) UpdateRecord(ctx context.Context, table string, id int, fields core.Record) error {
	return s.mutate(ctx, func(snap *snapshot) (string, error) {
		return updateRecord(snap, table, id, fields)
	})
}

// DeleteRecord removes the record stored under id.
func (s *Store) DeleteRecord(ctx context.Context, table string, id int) error {
	return s.mutate(ctx, func(snap *snapshot) (string, error) {
		return deleteRecord(snap, table, id)
	})
}

// The helpers below apply one change to a loaded snapshot and describe it.

func createTable(snap *snapshot, name string) (string, error) {
	if _, ok := snap.Get(name); ok {
		return "", fmt.Errorf("table %q: %w", name, core.ErrAlreadyExists)
	}
	snap.Set(name, newRows())
	return "create table " + name, nil
}

func deleteTable(snap *snapshot, name string) (string, error) {
	if _, ok := snap.Delete(name); !ok {
		return "", tableNotFound(name)
	}
	return "delete table " + name, nil
}

func (s *Store) insertRecord(snap *snapshot, table string, fields core.Record) (int, string, error) {
	rs, ok := snap.Get(table)
	if !ok {
		return 0, "", tableNotFound(table)
	}
	id := s.nextID(rs)
	r := fields.Clone()
	if r == nil {
		r = core.Record{}
	}
	r[core.IDField] = id
	if _, replaced := rs.Set(id, r); replaced {
		s.config.Logger.Warn("record id reused", "table", table, "id", id)
	}
	return id, fmt.Sprintf("create %s/%d", table, id), nil
}

func updateRecord(snap *snapshot, table string, id int, fields core.Record) (string, error) {
	rs, ok := snap.Get(table)
	if !ok {
		return "", tableNotFound(table)
	}
	r, ok := rs.Get(id)
	if !ok {
		return "", recordNotFound(table, id)
	}
	for k, v := range fields {
		if k == core.IDField {
			continue
		}
		r[k] = v
	}
	return fmt.Sprintf("update %s/%d", table, id), nil
}

func deleteRecord(snap *snapshot, table string, id int) (string, error) {
	rs, ok := snap.Get(table)
	if !ok {
		return "", tableNotFound(table)
	}
	if _, ok := rs.Delete(id); !ok {
		return "", recordNotFound(table, id)
	}
	return fmt.Sprintf("delete %s/%d", table, id), nil
}

var _ core.Store = (*Store)(nil)
var _ core.Watchable = (*Store)(nil)
