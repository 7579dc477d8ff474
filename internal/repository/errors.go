package repository

import "errors"

var (
	ErrNotFound = errors.New("document not found")
	// ErrUnavailable is returned when the backing client was never initialized.
	ErrUnavailable = errors.New("remote backend unavailable")
)
