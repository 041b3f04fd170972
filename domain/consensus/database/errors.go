package database

import (
	"github.com/duniter/duniter-rs-sub003/infrastructure/db/database"
)

// ErrNotFound is returned by every store read of an absent record
var ErrNotFound = database.ErrNotFound

// IsNotFoundError lets stores tell an absent record from a storage failure
func IsNotFoundError(err error) bool {
	return database.IsNotFoundError(err)
}
