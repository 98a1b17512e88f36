package core_test

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notesd/pkg/core"
)

// MockStore implements core.Store in memory with size-based ids.
type MockStore struct {
	order  []string
	tables map[string][]core.Record
}

func NewMockStore() *MockStore {
	return &MockStore{tables: make(map[string][]core.Record)}
}

func (m *MockStore) CreateTable(ctx context.Context, name string) error {
	if _, ok := m.tables[name]; ok {
		return core.ErrAlreadyExists
	}
	m.tables[name] = nil
	m.order = append(m.order, name)
	return nil
}

func (m *MockStore) GetTable(ctx context.Context, name string) (core.Table, error) {
	rows, ok := m.tables[name]
	if !ok {
		return core.Table{}, core.ErrNotFound
	}
	t := core.Table{Name: name}
	for _, r := range rows {
		t.Records = append(t.Records, r.Clone())
	}
	return t, nil
}

func (m *MockStore) DeleteTable(ctx context.Context, name string) error {
	if _, ok := m.tables[name]; !ok {
		return core.ErrNotFound
	}
	delete(m.tables, name)
	m.order = slices.DeleteFunc(m.order, func(s string) bool { return s == name })
	return nil
}

func (m *MockStore) ListTables(ctx context.Context) ([]string, error) {
	return slices.Clone(m.order), nil
}

func (m *MockStore) index(table string, id int) (int, error) {
	rows, ok := m.tables[table]
	if !ok {
		return 0, core.ErrNotFound
	}
	for i, r := range rows {
		if rid, _ := r.ID(); rid == id {
			return i, nil
		}
	}
	return 0, fmt.Errorf("record %d: %w", id, core.ErrNotFound)
}

func (m *MockStore) CreateRecord(ctx context.Context, table string, fields core.Record) (int, error) {
	rows, ok := m.tables[table]
	if !ok {
		return 0, core.ErrNotFound
	}
	id := len(rows)
	r := fields.Clone()
	r[core.IDField] = id
	m.tables[table] = append(rows, r)
	return id, nil
}

func (m *MockStore) GetRecord(ctx context.Context, table string, id int) (core.Record, error) {
	i, err := m.index(table, id)
	if err != nil {
		return nil, err
	}
	return m.tables[table][i].Clone(), nil
}

func (m *MockStore) UpdateRecord(ctx context.Context, table string, id int, fields core.Record) error {
	i, err := m.index(table, id)
	if err != nil {
		return err
	}
	for k, v := range fields {
		m.tables[table][i][k] = v
	}
	return nil
}

func (m *MockStore) DeleteRecord(ctx context.Context, table string, id int) error {
	i, err := m.index(table, id)
	if err != nil {
		return err
	}
	m.tables[table] = slices.Delete(m.tables[table], i, i+1)
	return nil
}

func TestNewNoteRepository_CreatesTable(t *testing.T) {
	store := NewMockStore()
	ctx := context.Background()

	_, err := core.NewNoteRepository(ctx, store)
	require.NoError(t, err)

	tables, _ := store.ListTables(ctx)
	assert.Equal(t, []string{core.NotesTable}, tables)

	// A second repository over the same store reuses the table.
	_, err = core.NewNoteRepository(ctx, store)
	require.NoError(t, err)
	tables, _ = store.ListTables(ctx)
	assert.Len(t, tables, 1)
}

func TestNoteRepository_CRUD(t *testing.T) {
	ctx := context.TODO()
	notes, err := core.NewNoteRepository(ctx, NewMockStore())
	require.NoError(t, err)

	id, err := notes.CreateNote(ctx, "A", "B")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	got, err := notes.GetNote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, core.Note{ID: 0, Title: "A", Content: "B"}, got)

	require.NoError(t, notes.UpdateNote(ctx, id, "A2", "B2"))
	got, err = notes.GetNote(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "A2", got.Title)
	assert.Equal(t, "B2", got.Content)

	require.NoError(t, notes.DeleteNote(ctx, id))
	_, err = notes.GetNote(ctx, id)
	assert.ErrorIs(t, err, core.ErrNotFound)

	all, err := notes.ListNotes(ctx)
	require.NoError(t, err)
	assert.NotNil(t, all)
	assert.Empty(t, all)
}

func TestNoteRepository_Search(t *testing.T) {
	ctx := context.TODO()
	notes, err := core.NewNoteRepository(ctx, NewMockStore())
	require.NoError(t, err)

	_, _ = notes.CreateNote(ctx, "groceries", "milk and eggs")
	_, _ = notes.CreateNote(ctx, "Todo", "call mom")
	_, _ = notes.CreateNote(ctx, "ideas", "a todo app")

	found, err := notes.SearchNotes(ctx, "todo")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "ideas", found[0].Title)

	found, err = notes.SearchNotes(ctx, "m")
	require.NoError(t, err)
	assert.Len(t, found, 2)

	found, err = notes.SearchNotes(ctx, "nothing here")
	require.NoError(t, err)
	assert.NotNil(t, found)
	assert.Empty(t, found)
}

func TestNoteFromRecord(t *testing.T) {
	t.Run("Decoded JSON Numbers", func(t *testing.T) {
		n, err := core.NoteFromRecord(core.Record{"id": float64(3), "title": "t", "content": "c"})
		require.NoError(t, err)
		assert.Equal(t, 3, n.ID)
	})

	t.Run("Wrong Field Type", func(t *testing.T) {
		_, err := core.NoteFromRecord(core.Record{"id": 1, "title": 42, "content": "c"})
		assert.ErrorIs(t, err, core.ErrInvalidRecord)
	})

	t.Run("Missing ID", func(t *testing.T) {
		_, err := core.NoteFromRecord(core.Record{"title": "t", "content": "c"})
		assert.ErrorIs(t, err, core.ErrInvalidRecord)
	})
}

func TestCoerceID(t *testing.T) {
	for _, tc := range []struct {
		in   any
		want int
		ok   bool
	}{
		{0, 0, true},
		{float64(7), 7, true},
		{float64(7.5), 0, false},
		{"12", 12, true},
		{"x", 0, false},
		{-1, 0, false},
		{true, 0, false},
		{nil, 0, false},
	} {
		got, err := core.CoerceID(tc.in)
		if !tc.ok {
			assert.ErrorIs(t, err, core.ErrInvalidRecord, "input %v", tc.in)
			continue
		}
		require.NoError(t, err, "input %v", tc.in)
		assert.Equal(t, tc.want, got)
	}
}

func TestNoteRepository_TableDropped(t *testing.T) {
	ctx := context.TODO()
	store := NewMockStore()
	notes, err := core.NewNoteRepository(ctx, store)
	require.NoError(t, err)
	_, err = notes.CreateNote(ctx, "A", "B")
	require.NoError(t, err)

	require.NoError(t, store.DeleteTable(ctx, core.NotesTable))

	all, err := notes.ListNotes(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	id, err := notes.CreateNote(ctx, "C", "D")
	require.NoError(t, err)
	assert.Equal(t, 0, id)

	all, err = notes.ListNotes(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Note{{ID: 0, Title: "C", Content: "D"}}, all)
}
