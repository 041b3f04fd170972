package transactionstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type transactionStagingShard struct {
	store    *transactionStore
	toAdd    map[externalapi.Hash]*model.TransactionRecord
	toDelete map[externalapi.Hash]struct{}
}

func (ts *transactionStore) stagingShard(stagingArea *model.StagingArea) *transactionStagingShard {
	return stagingArea.GetOrCreateShard("TransactionStore", func() model.StagingShard {
		return &transactionStagingShard{
			store:    ts,
			toAdd:    make(map[externalapi.Hash]*model.TransactionRecord),
			toDelete: make(map[externalapi.Hash]struct{}),
		}
	}).(*transactionStagingShard)
}

func (tss *transactionStagingShard) Commit(dbTx model.DBTransaction) error {
	for txHash := range tss.toDelete {
		err := dbTx.Delete(tss.store.hashAsKey(txHash))
		if err != nil {
			return err
		}
	}

	for txHash, record := range tss.toAdd {
		recordBytes, err := tss.store.serializeRecord(record)
		if err != nil {
			return err
		}
		err = dbTx.Put(tss.store.hashAsKey(txHash), recordBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
