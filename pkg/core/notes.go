package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// NotesTable is the table holding every note.
const NotesTable = "notes"

// Note is a record of the notes table.
type Note struct {
	ID      int    `json:"id"`
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteFromRecord converts a stored record into a Note.
func NoteFromRecord(r Record) (Note, error) {
	id, ok := r.ID()
	if !ok {
		return Note{}, fmt.Errorf("%w: missing id", ErrInvalidRecord)
	}
	title, ok := r.String("title")
	if !ok {
		return Note{}, fmt.Errorf("%w: note %d: title is not a string", ErrInvalidRecord, id)
	}
	content, ok := r.String("content")
	if !ok {
		return Note{}, fmt.Errorf("%w: note %d: content is not a string", ErrInvalidRecord, id)
	}
	return Note{ID: id, Title: title, Content: content}, nil
}

// NoteRepository binds the notes schema to a Store. It never touches any
// table other than NotesTable.
type NoteRepository struct {
	store Store
}

// NewNoteRepository wraps store, creating the notes table if absent.
func NewNoteRepository(ctx context.Context, store Store) (*NoteRepository, error) {
	n := &NoteRepository{store: store}
	if _, err := store.GetTable(ctx, NotesTable); err != nil {
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
		if err := n.ensureTable(ctx); err != nil {
			return nil, err
		}
	}
	return n, nil
}

func (n *NoteRepository) ensureTable(ctx context.Context) error {
	if err := n.store.CreateTable(ctx, NotesTable); err != nil && !errors.Is(err, ErrAlreadyExists) {
		return fmt.Errorf("failed to create %s table: %w", NotesTable, err)
	}
	return nil
}

// Store returns the underlying store.
func (n *NoteRepository) Store() Store {
	return n.store
}

// CreateNote inserts a note and returns its id. The notes table is
// recreated when something dropped it since the repository was built.
func (n *NoteRepository) CreateNote(ctx context.Context, title, content string) (int, error) {
	fields := Record{"title": title, "content": content}
	id, err := n.store.CreateRecord(ctx, NotesTable, fields)
	if !errors.Is(err, ErrNotFound) {
		return id, err
	}
	if err := n.ensureTable(ctx); err != nil {
		return 0, err
	}
	return n.store.CreateRecord(ctx, NotesTable, fields)
}

// GetNote retrieves a note. Fails with ErrNotFound.
func (n *NoteRepository) GetNote(ctx context.Context, id int) (Note, error) {
	r, err := n.store.GetRecord(ctx, NotesTable, id)
	if err != nil {
		return Note{}, err
	}
	return NoteFromRecord(r)
}

// UpdateNote overwrites both title and content.
func (n *NoteRepository) UpdateNote(ctx context.Context, id int, title, content string) error {
	return n.store.UpdateRecord(ctx, NotesTable, id, Record{"title": title, "content": content})
}

// DeleteNote removes a note. Fails with ErrNotFound.
func (n *NoteRepository) DeleteNote(ctx context.Context, id int) error {
	return n.store.DeleteRecord(ctx, NotesTable, id)
}

// ListNotes returns every note in table order. The result is never nil;
// a missing notes table reads as empty.
func (n *NoteRepository) ListNotes(ctx context.Context) ([]Note, error) {
	t, err := n.store.GetTable(ctx, NotesTable)
	if errors.Is(err, ErrNotFound) {
		return []Note{}, nil
	}
	if err != nil {
		return nil, err
	}
	notes := make([]Note, 0, t.Len())
	for _, r := range t.Records {
		note, err := NoteFromRecord(r)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, nil
}

// SearchNotes returns the notes whose title or content contains query
// (case-sensitive substring).
func (n *NoteRepository) SearchNotes(ctx context.Context, query string) ([]Note, error) {
	all, err := n.ListNotes(ctx)
	if err != nil {
		return nil, err
	}
	found := make([]Note, 0, len(all))
	for _, note := range all {
		if strings.Contains(note.Title, query) || strings.Contains(note.Content, query) {
			found = append(found, note)
		}
	}
	return found, nil
}
