package fs_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/notesd/pkg/adapters/fs"
	"github.com/aretw0/notesd/pkg/core"
	"github.com/aretw0/notesd/pkg/git"
)

func TestTransaction_Commit(t *testing.T) {
	ctx := context.Background()
	store, path := setupStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureTable("notes"))
	require.NoError(t, tx.CreateRecord("notes", core.Record{"title": "a", "content": "1"}))
	require.NoError(t, tx.CreateRecord("notes", core.Record{"title": "b", "content": "2"}))
	require.NoError(t, tx.UpdateRecord("notes", 0, core.Record{"content": "changed"}))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err), "nothing is written before commit")

	require.NoError(t, tx.Commit(ctx, ""))
	assert.Equal(t, []int{0, 1}, tx.IDs())

	r, err := store.GetRecord(ctx, "notes", 0)
	require.NoError(t, err)
	assert.Equal(t, "changed", r["content"])

	assert.Error(t, tx.CreateTable("late"), "staging after commit")
	assert.Error(t, tx.Commit(ctx, ""), "double commit")
}

func TestTransaction_FailureLeavesFileUntouched(t *testing.T) {
	ctx := context.Background()
	store, path := setupStore(t)
	require.NoError(t, store.CreateTable(ctx, "notes"))
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateRecord("notes", core.Record{"title": "a"}))
	require.NoError(t, tx.DeleteRecord("notes", 7))

	err = tx.Commit(ctx, "")
	assert.ErrorIs(t, err, core.ErrNotFound)
	assert.Nil(t, tx.IDs())

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestTransaction_Rollback(t *testing.T) {
	ctx := context.Background()
	store, path := setupStore(t)

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateTable("notes"))
	require.NoError(t, tx.Rollback(ctx))
	require.NoError(t, tx.Rollback(ctx))

	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}

func TestTransaction_ReadOnly(t *testing.T) {
	store, _ := setupStore(t, func(c *fs.Config) { c.ReadOnly = true })
	_, err := store.Begin(context.Background())
	assert.ErrorIs(t, err, core.ErrReadOnly)
}

func TestTransaction_SingleCommit(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	store, path := setupStore(t, func(c *fs.Config) {
		c.Versioning = true
		c.AutoInit = true
	})

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.CreateTable("notes"))
	require.NoError(t, tx.CreateRecord("notes", core.Record{"title": "a"}))
	require.NoError(t, tx.Commit(ctx, "import notes"))

	log, err := git.NewClient(filepath.Dir(path), nil).Log(10)
	require.NoError(t, err)
	assert.Equal(t, []string{"import notes"}, log)
}

func TestTransaction_VersioningFailureStillCommits(t *testing.T) {
	if !git.IsInstalled() {
		t.Skip("git not installed")
	}
	ctx := context.Background()
	store, path := setupStore(t, func(c *fs.Config) {
		c.Versioning = true
		c.AutoInit = true
	})
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".git", "index.lock"), nil, 0o644))

	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.EnsureTable("notes"))
	require.NoError(t, tx.CreateRecord("notes", core.Record{"title": "a"}))
	require.NoError(t, tx.Commit(ctx, "import notes"))
	assert.Equal(t, []int{0}, tx.IDs())

	// A second commit must not re-apply the staged insert.
	assert.Error(t, tx.Commit(ctx, "import notes"))
	table, err := store.GetTable(ctx, "notes")
	require.NoError(t, err)
	assert.Equal(t, 1, table.Len())
}
