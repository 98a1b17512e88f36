package core

import "errors"

// Common errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrReadOnly      = errors.New("store is in read-only mode")
	ErrInvalidRecord = errors.New("invalid record")

	// ErrCorrupt reports a backing file whose content has an unexpected shape.
	ErrCorrupt = errors.New("corrupt store file")
	// ErrIO reports a failure reading or writing the backing file.
	ErrIO = errors.New("store i/o failure")
)
