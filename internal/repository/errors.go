package repository

import "errors"

var (
	// ErrNotFound indicates a query returned no data.
	ErrNotFound = errors.New("not found")
)
