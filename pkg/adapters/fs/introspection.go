package fs

import (
	"time"

	"github.com/aretw0/introspection"
)

// StoreState exposes internal state for observability.
// It describes the last loaded state; it does not reload the file.
type StoreState struct {
	Path          string     `json:"path"`
	Tables        int        `json:"tables"`
	ReadOnly      bool       `json:"read_only"`
	Versioning    bool       `json:"versioning"`
	IDPolicy      string     `json:"id_policy"`
	WatcherActive bool       `json:"watcher_active"`
	LastPersist   *time.Time `json:"last_persist,omitempty"`
	LastReconcile *time.Time `json:"last_reconcile,omitempty"`
}

// State implements introspection.Introspectable.
func (s *Store) State() any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return StoreState{
		Path:          s.Path,
		Tables:        s.data.Len(),
		ReadOnly:      s.config.ReadOnly,
		Versioning:    s.config.Versioning,
		IDPolicy:      string(s.config.IDPolicy),
		WatcherActive: s.watcherActive,
		LastPersist:   s.lastPersist,
		LastReconcile: s.lastReconcile,
	}
}

// ComponentType implements introspection.Component.
func (s *Store) ComponentType() string {
	return "json-file-store"
}

var _ introspection.Introspectable = (*Store)(nil)
var _ introspection.Component = (*Store)(nil)
