package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrItemNotOpen   = errors.New("item is not open")
	ErrNotActive     = errors.New("assignment is not active")
	// ErrTransient marks failures worth retrying, such as a lost connection.
	ErrTransient = errors.New("transient store failure")
)
