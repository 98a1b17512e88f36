package fs

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/aretw0/notesd/pkg/core"
)

var errTxClosed = errors.New("transaction closed")

// Transaction batches mutations so they share one reload, one write of the
// backing file and one git commit. Nothing touches the file before Commit.
//
// Staged changes are applied in order against the file content found at
// commit time; if any of them fails, the file is left as it was.
type Transaction struct {
	store  *Store
	ops    []func(*snapshot) (string, error)
	ids    []int
	mu     sync.Mutex
	closed bool
}

// Begin starts a transaction.
func (s *Store) Begin(ctx context.Context) (*Transaction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s.config.ReadOnly {
		return nil, core.ErrReadOnly
	}
	return &Transaction{store: s}, nil
}

func (t *Transaction) stage(op func(*snapshot) (string, error)) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return errTxClosed
	}
	t.ops = append(t.ops, op)
	return nil
}

// CreateTable stages the creation of an empty table.
func (t *Transaction) CreateTable(name string) error {
	return t.stage(func(snap *snapshot) (string, error) {
		return createTable(snap, name)
	})
}

// EnsureTable stages the creation of a table unless it already exists.
func (t *Transaction) EnsureTable(name string) error {
	return t.stage(func(snap *snapshot) (string, error) {
		if _, ok := snap.Get(name); ok {
			return "", nil
		}
		return createTable(snap, name)
	})
}

// DeleteTable stages the removal of a table.
func (t *Transaction) DeleteTable(name string) error {
	return t.stage(func(snap *snapshot) (string, error) {
		return deleteTable(snap, name)
	})
}

// CreateRecord stages an insert. The assigned id is reported by IDs after Commit.
func (t *Transaction) CreateRecord(table string, fields core.Record) error {
	fields = fields.Clone()
	return t.stage(func(snap *snapshot) (string, error) {
		id, change, err := t.store.insertRecord(snap, table, fields)
		if err == nil {
			t.ids = append(t.ids, id)
		}
		return change, err
	})
}

// UpdateRecord stages a partial update.
func (t *Transaction) UpdateRecord(table string, id int, fields core.Record) error {
	fields = fields.Clone()
	return t.stage(func(snap *snapshot) (string, error) {
		return updateRecord(snap, table, id, fields)
	})
}

// DeleteRecord stages a delete.
func (t *Transaction) DeleteRecord(table string, id int) error {
	return t.stage(func(snap *snapshot) (string, error) {
		return deleteRecord(snap, table, id)
	})
}

// Commit applies all staged changes. changeReason becomes the git commit
// message; when empty the individual changes are listed instead.
func (t *Transaction) Commit(ctx context.Context, changeReason string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return fmt.Errorf("transaction already closed")
	}
	if len(t.ops) == 0 {
		t.closed = true
		return nil
	}

	t.ids = nil
	err := t.store.mutate(ctx, func(snap *snapshot) (string, error) {
		var changes []string
		for _, op := range t.ops {
			change, err := op(snap)
			if err != nil {
				return "", err
			}
			if change != "" {
				changes = append(changes, change)
			}
		}
		if changeReason != "" {
			return changeReason, nil
		}
		if len(changes) == 0 {
			return "batch transaction update", nil
		}
		return strings.Join(changes, "; "), nil
	})
	if err != nil {
		t.ids = nil
		return err
	}
	t.closed = true
	return nil
}

// Rollback discards all staged changes.
func (t *Transaction) Rollback(ctx context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return nil
	}
	t.ops = nil
	t.closed = true
	return nil
}

// IDs returns the ids assigned by staged inserts, in staging order, once
// Commit has succeeded.
func (t *Transaction) IDs() []int {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.closed {
		return nil
	}
	return append([]int(nil), t.ids...)
}
