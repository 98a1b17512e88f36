package fs_test

import (
	"context"
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"pgregory.net/rapid"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
)

// newRapidRepo returns a note repository over a fresh file for one rapid run.
func newRapidRepo(rt *rapid.T, dir string, run *int) (*core.NoteRepository, string) {
	*run++
	path := filepath.Join(dir, fmt.Sprintf("run-%d.json", *run))
	store := fs.NewStore(fs.Config{Path: path, IDPolicy: core.IDPolicyNext})
	notes, err := core.NewNoteRepository(context.Background(), store)
	if err != nil {
		rt.Fatalf("NewNoteRepository: %v", err)
	}
	return notes, path
}

func TestProperty_RoundTripAndDurability(t *testing.T) {
	dir := t.TempDir()
	var run int

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		notes, path := newRapidRepo(rt, dir, &run)
		live := map[int]core.Note{}

		steps := rapid.IntRange(1, 20).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			title := rapid.String().Draw(rt, "title")
			content := rapid.String().Draw(rt, "content")

			ids := slices.Sorted(maps.Keys(live))

			op := rapid.IntRange(0, 2).Draw(rt, "op")
			if len(ids) == 0 {
				op = 0
			}
			switch op {
			case 0:
				id, err := notes.CreateNote(ctx, title, content)
				if err != nil {
					rt.Fatalf("CreateNote: %v", err)
				}
				live[id] = core.Note{ID: id, Title: title, Content: content}
				checkNote(rt, notes, live[id])
			case 1:
				id := rapid.SampledFrom(ids).Draw(rt, "update")
				if err := notes.UpdateNote(ctx, id, title, content); err != nil {
					rt.Fatalf("UpdateNote: %v", err)
				}
				live[id] = core.Note{ID: id, Title: title, Content: content}
				checkNote(rt, notes, live[id])
			case 2:
				id := rapid.SampledFrom(ids).Draw(rt, "delete")
				if err := notes.DeleteNote(ctx, id); err != nil {
					rt.Fatalf("DeleteNote: %v", err)
				}
				delete(live, id)
			}
		}

		// A second store over the same file sees identical contents.
		first, err := notes.Store().GetTable(ctx, core.NotesTable)
		if err != nil {
			rt.Fatalf("GetTable: %v", err)
		}
		second, err := fs.NewStore(fs.Config{Path: path}).GetTable(ctx, core.NotesTable)
		if err != nil {
			rt.Fatalf("reopened GetTable: %v", err)
		}
		if first.Len() != len(live) || second.Len() != len(live) {
			rt.Fatalf("expected %d notes, got %d and %d", len(live), first.Len(), second.Len())
		}
		for i := range first.Records {
			a, _ := core.NoteFromRecord(first.Records[i])
			b, _ := core.NoteFromRecord(second.Records[i])
			if a != b || a != live[a.ID] {
				rt.Fatalf("mismatch at %d: %+v / %+v / %+v", i, a, b, live[a.ID])
			}
		}
	})
}

func checkNote(rt *rapid.T, notes *core.NoteRepository, want core.Note) {
	got, err := notes.GetNote(context.Background(), want.ID)
	if err != nil {
		rt.Fatalf("GetNote(%d): %v", want.ID, err)
	}
	if got != want {
		rt.Fatalf("GetNote(%d) = %+v, want %+v", want.ID, got, want)
	}
}

func TestProperty_SearchIsSubstringSubset(t *testing.T) {
	dir := t.TempDir()
	var run int

	rapid.Check(t, func(rt *rapid.T) {
		ctx := context.Background()
		notes, _ := newRapidRepo(rt, dir, &run)

		alphabet := rapid.StringMatching(`[abAB ]{0,6}`)
		n := rapid.IntRange(0, 8).Draw(rt, "n")
		for i := 0; i < n; i++ {
			if _, err := notes.CreateNote(ctx, alphabet.Draw(rt, "title"), alphabet.Draw(rt, "content")); err != nil {
				rt.Fatalf("CreateNote: %v", err)
			}
		}
		query := rapid.StringMatching(`[abAB]{1,2}`).Draw(rt, "query")

		all, err := notes.ListNotes(ctx)
		if err != nil {
			rt.Fatalf("ListNotes: %v", err)
		}
		found, err := notes.SearchNotes(ctx, query)
		if err != nil {
			rt.Fatalf("SearchNotes: %v", err)
		}

		var want []core.Note
		for _, note := range all {
			if strings.Contains(note.Title, query) || strings.Contains(note.Content, query) {
				want = append(want, note)
			}
		}
		if len(found) != len(want) {
			rt.Fatalf("query %q: found %d notes, want %d", query, len(found), len(want))
		}
		for i := range want {
			if found[i] != want[i] {
				rt.Fatalf("query %q: result %d = %+v, want %+v", query, i, found[i], want[i])
			}
		}
	})
}
