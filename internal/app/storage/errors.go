package storage

import "errors"

// ErrNotFound is returned by every store when a record does not exist.
// Implementations wrap it with record context.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when a uniqueness constraint is violated.
var ErrDuplicate = errors.New("duplicate record")
