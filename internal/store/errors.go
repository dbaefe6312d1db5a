package store

import "errors"

var (
	// ErrNotFound is returned when no order matches the given id or number.
	ErrNotFound = errors.New("order not found")

	// ErrDuplicateOrderNumber is returned when the unique index rejects an
	// insert. The caller is expected to regenerate the number and retry.
	ErrDuplicateOrderNumber = errors.New("duplicate order number")

	// ErrConcurrentModification is returned when a conditional update loses a
	// race against another writer and the bounded retries are exhausted.
	ErrConcurrentModification = errors.New("order modified concurrently")
)
