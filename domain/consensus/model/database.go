package model

// DBCursor walks the entries of a bucket in key order
type DBCursor interface {
	// Next advances to the following entry and reports whether one exists
	Next() bool

	// First rewinds to the first entry and reports whether the bucket
	// holds any
	First() bool

	// Seek positions the cursor on the first entry whose key is at least
	// key, or returns ErrNotFound
	Seek(key DBKey) error

	// Key and Value return ErrNotFound once the cursor is exhausted. The
	// returned value must not be modified.
	Key() (DBKey, error)
	Value() ([]byte, error)

	Close() error
}

// DBReader is the read side of the store every consensus store is
// written against
type DBReader interface {
	// Get returns ErrNotFound when key is absent
	Get(key DBKey) ([]byte, error)
	Has(key DBKey) (bool, error)
	Cursor(bucket DBBucket) (DBCursor, error)
}

// DBWriter adds mutations to DBReader
type DBWriter interface {
	DBReader

	// Put overwrites any previous value of key
	Put(key DBKey, value []byte) error

	// Delete of an absent key is not an error
	Delete(key DBKey) error
}

// DBTransaction buffers writes until Commit. Reads see the transaction's
// own writes over a snapshot of the store taken at Begin.
type DBTransaction interface {
	DBWriter

	Rollback() error
	Commit() error

	// RollbackUnlessClosed is meant to be deferred right after Begin
	RollbackUnlessClosed() error
}

// DBManager is the handle consensus holds on its database
type DBManager interface {
	DBWriter

	Begin() (DBTransaction, error)
}

// DBKey is a suffix inside a bucket
type DBKey interface {
	Bytes() []byte
	Bucket() DBBucket
	Suffix() []byte
}

// DBBucket is a key prefix. Buckets nest.
type DBBucket interface {
	Bucket(bucketBytes []byte) DBBucket
	Key(suffix []byte) DBKey
	Path() []byte
}
