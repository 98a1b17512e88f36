package core

import (
	"context"

	"github.com/aretw0/introspection"
)

// NoteRepositoryState exposes internal state for observability.
type NoteRepositoryState struct {
	Table     string `json:"table"`
	Notes     int    `json:"notes"`
	StoreType string `json:"store_type"`
	Error     string `json:"error,omitempty"`
}

// State implements introspection.Introspectable.
func (n *NoteRepository) State() any {
	storeType := "store"
	if comp, ok := n.store.(introspection.Component); ok {
		storeType = comp.ComponentType()
	}

	state := NoteRepositoryState{
		Table:     NotesTable,
		StoreType: storeType,
	}
	t, err := n.store.GetTable(context.Background(), NotesTable)
	if err != nil {
		state.Error = err.Error()
		return state
	}
	state.Notes = t.Len()
	return state
}

// ComponentType implements introspection.Component.
func (n *NoteRepository) ComponentType() string {
	return "note-repository"
}

var _ introspection.Introspectable = (*NoteRepository)(nil)
var _ introspection.Component = (*NoteRepository)(nil)
