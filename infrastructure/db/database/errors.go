package database

import "github.com/pkg/errors"

// ErrNotFound is the cause of every read that finds no value for its key
var ErrNotFound = errors.New("not found")

// IsNotFoundError reports whether err wraps ErrNotFound
func IsNotFoundError(err error) bool {
	return errors.Is(err, ErrNotFound)
}
