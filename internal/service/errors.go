package service

import "errors"

var (
	// ErrNotFound indicates requested resource does not exist.
	ErrNotFound = errors.New("service: not found")
	// ErrInvalidUpload indicates a match upload failed validation.
	ErrInvalidUpload = errors.New("service: invalid match upload")
	// ErrDuplicateMatch indicates the match was already uploaded.
	ErrDuplicateMatch = errors.New("service: match already exists")
)
