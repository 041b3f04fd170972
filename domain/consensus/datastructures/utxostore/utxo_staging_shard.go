package utxostore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type utxoStagingShard struct {
	store    *utxoStore
	toAdd    map[externalapi.SourceID]*externalapi.UTXO
	toDelete map[externalapi.SourceID]struct{}
}

func (us *utxoStore) stagingShard(stagingArea *model.StagingArea) *utxoStagingShard {
	return stagingArea.GetOrCreateShard("UTXOStore", func() model.StagingShard {
		return &utxoStagingShard{
			store:    us,
			toAdd:    make(map[externalapi.SourceID]*externalapi.UTXO),
			toDelete: make(map[externalapi.SourceID]struct{}),
		}
	}).(*utxoStagingShard)
}

func (uss *utxoStagingShard) Commit(dbTx model.DBTransaction) error {
	for sourceID := range uss.toDelete {
		err := dbTx.Delete(uss.store.sourceIDAsKey(sourceID))
		if err != nil {
			return err
		}
	}

	for sourceID, utxo := range uss.toAdd {
		utxoBytes, err := uss.store.serializeUTXO(utxo)
		if err != nil {
			return err
		}
		err = dbTx.Put(uss.store.sourceIDAsKey(sourceID), utxoBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
