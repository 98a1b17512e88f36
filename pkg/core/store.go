package core

import "context"

// Store defines the contract of the document store: named tables of records
// keyed by integer id.
// Every mutation is persisted before it returns.
type Store interface {
	// CreateTable adds an empty table. Fails with ErrAlreadyExists.
	CreateTable(ctx context.Context, name string) error

	// GetTable returns a snapshot of the table. Fails with ErrNotFound.
	GetTable(ctx context.Context, name string) (Table, error)

	// DeleteTable removes a table and all its records. Fails with ErrNotFound.
	DeleteTable(ctx context.Context, name string) error

	// ListTables returns table names in insertion order.
	ListTables(ctx context.Context) ([]string, error)

	// CreateRecord inserts fields under a newly assigned id, injecting the
	// id field, and returns the id.
	CreateRecord(ctx context.Context, table string, fields Record) (int, error)

	// GetRecord returns the record stored under id.
	GetRecord(ctx context.Context, table string, id int) (Record, error)

	// UpdateRecord overwrites (or adds) only the keys present in fields.
	UpdateRecord(ctx context.Context, table string, id int, fields Record) error

	// DeleteRecord removes the record stored under id.
	DeleteRecord(ctx context.Context, table string, id int) error
}

// Watchable is implemented by stores able to report changes made by other processes.
type Watchable interface {
	Watch(ctx context.Context, pattern string) (<-chan Event, error)
}
