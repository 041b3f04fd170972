package transactionstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

var bucketName = []byte("transactions")

// transactionStore represents a store of applied transactions
type transactionStore struct {
	bucket model.DBBucket
}

// New instantiates a new TransactionStore
func New(prefixBucket model.DBBucket) model.TransactionStore {
	return &transactionStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the given transaction record under its transaction hash
func (ts *transactionStore) Stage(stagingArea *model.StagingArea, record *model.TransactionRecord) {
	stagingShard := ts.stagingShard(stagingArea)
	txHash := record.Transaction.Hash
	stagingShard.toAdd[txHash] = record
	delete(stagingShard.toDelete, txHash)
}

// Delete deletes the transaction with the given hash
func (ts *transactionStore) Delete(stagingArea *model.StagingArea, txHash externalapi.Hash) {
	stagingShard := ts.stagingShard(stagingArea)
	delete(stagingShard.toAdd, txHash)
	stagingShard.toDelete[txHash] = struct{}{}
}

// Transaction gets the record of the transaction with the given hash
func (ts *transactionStore) Transaction(dbContext model.DBReader, stagingArea *model.StagingArea,
	txHash externalapi.Hash) (*model.TransactionRecord, error) {

	stagingShard := ts.stagingShard(stagingArea)
	if record, ok := stagingShard.toAdd[txHash]; ok {
		return record, nil
	}
	if _, ok := stagingShard.toDelete[txHash]; ok {
		return nil, errors.Wrapf(database.ErrNotFound, "transaction %s is staged for deletion", txHash)
	}

	recordBytes, err := dbContext.Get(ts.hashAsKey(txHash))
	if err != nil {
		return nil, err
	}
	return ts.deserializeRecord(recordBytes)
}

// HasTransaction returns whether the transaction with the given hash exists in the store
func (ts *transactionStore) HasTransaction(dbContext model.DBReader, stagingArea *model.StagingArea,
	txHash externalapi.Hash) (bool, error) {

	stagingShard := ts.stagingShard(stagingArea)
	if _, ok := stagingShard.toAdd[txHash]; ok {
		return true, nil
	}
	if _, ok := stagingShard.toDelete[txHash]; ok {
		return false, nil
	}
	return dbContext.Has(ts.hashAsKey(txHash))
}

func (ts *transactionStore) serializeRecord(record *model.TransactionRecord) ([]byte, error) {
	return serialization.SerializeTransactionRecord(record)
}

func (ts *transactionStore) deserializeRecord(recordBytes []byte) (*model.TransactionRecord, error) {
	return serialization.DeserializeTransactionRecord(recordBytes)
}

func (ts *transactionStore) hashAsKey(txHash externalapi.Hash) model.DBKey {
	return ts.bucket.Key(txHash[:])
}
