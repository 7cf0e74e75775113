package models

import "errors"

// Errors shared between the repository and service layers
var (
	ErrNotFound       = errors.New("record not found")
	ErrDuplicateEntry = errors.New("duplicate entry")
)
