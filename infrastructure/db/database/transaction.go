package database

// Transaction defines the interface of a generic database
// transaction.
//
// Note: transactions provide data consistency over the state of
// the database as it was when the transaction started. Puts and
// deletes are buffered and only become visible, all together, on
// Commit. There is NO guarantee that data put into the transaction
// is readable from within the same transaction; callers keep their
// pending writes in a staging area instead.
type Transaction interface {
	DataAccessor

	// Rollback rolls back whatever changes were made to the
	// database within this transaction.
	Rollback() error

	// Commit commits whatever changes were made to the database
	// within this transaction.
	Commit() error

	// RollbackUnlessClosed rolls back changes that were made to
	// the database within the transaction, unless the transaction
	// had already been closed using either Rollback or Commit.
	RollbackUnlessClosed() error
}
