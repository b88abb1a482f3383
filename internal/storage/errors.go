package storage

import "errors"

var (
	// ErrDuplicateURL indicates the URL is already indexed. Callers
	// treat this as "skip", not as a failure.
	ErrDuplicateURL = errors.New("url already indexed")

	// ErrNotFound indicates that the requested record was not found.
	ErrNotFound = errors.New("record not found")
)
