package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// TransactionStore represents a store of applied transactions, by hash
type TransactionStore interface {
	Stage(stagingArea *StagingArea, record *TransactionRecord)
	Delete(stagingArea *StagingArea, txHash externalapi.Hash)
	Transaction(dbContext DBReader, stagingArea *StagingArea, txHash externalapi.Hash) (*TransactionRecord, error)
	HasTransaction(dbContext DBReader, stagingArea *StagingArea, txHash externalapi.Hash) (bool, error)
}
