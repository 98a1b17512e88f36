package fs_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
)

func collect(t *testing.T, events <-chan core.Event, n int) []core.Event {
	t.Helper()
	var got []core.Event
	timeout := time.After(5 * time.Second)
	for len(got) < n {
		select {
		case e, ok := <-events:
			if !ok {
				t.Fatalf("events channel closed after %d events", len(got))
			}
			got = append(got, e)
		case <-timeout:
			t.Fatalf("timed out waiting for events, got %v", got)
		}
	}
	return got
}

func TestStore_Watch(t *testing.T) {
	store, path := setupStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, store.CreateTable(ctx, "notes"))
	require.NoError(t, store.CreateTable(ctx, "private"))

	events, err := store.Watch(ctx, "notes")
	require.NoError(t, err)

	// Own writes are not reported.
	_, err = store.CreateRecord(ctx, "notes", core.Record{"title": "mine"})
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		return store.State().(fs.StoreState).LastReconcile != nil
	}, 5*time.Second, 10*time.Millisecond)

	// Another process rewrites the file.
	external := `{
  "notes": {"0": {"id": 0, "title": "mine"}, "1": {"id": 1, "title": "theirs"}},
  "private": {"0": {"id": 0}}
}`
	require.NoError(t, os.WriteFile(path, []byte(external), 0o644))

	got := collect(t, events, 1)
	assert.Equal(t, core.EventCreate, got[0].Type)
	assert.Equal(t, "notes", got[0].Table)
	assert.Equal(t, 1, got[0].ID)

	select {
	case e := <-events:
		t.Fatalf("unexpected event %v", e)
	case <-time.After(200 * time.Millisecond):
	}

	cancel()
	require.Eventually(t, func() bool {
		_, ok := <-events
		return !ok
	}, 5*time.Second, 10*time.Millisecond)
}

func TestStore_WatchInvalidPattern(t *testing.T) {
	store, _ := setupStore(t)
	_, err := store.Watch(context.Background(), "[")
	assert.Error(t, err)
}
