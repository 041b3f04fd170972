package database

// DataAccessor is implemented by both the database and its transactions
type DataAccessor interface {
	// Put overwrites any previous value of key
	Put(key *Key, value []byte) error

	// Get returns an error matching IsNotFoundError when key is absent
	Get(key *Key) ([]byte, error)

	Has(key *Key) (bool, error)

	// Delete of an absent key is not an error
	Delete(key *Key) error

	Cursor(bucket *Bucket) (Cursor, error)
}
