package forkblockstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type forkBlockStagingShard struct {
	store    *forkBlockStore
	toAdd    map[externalapi.Blockstamp]*model.DALBlock
	toDelete map[externalapi.Blockstamp]struct{}
}

func (fbs *forkBlockStore) stagingShard(stagingArea *model.StagingArea) *forkBlockStagingShard {
	return stagingArea.GetOrCreateShard("ForkBlockStore", func() model.StagingShard {
		return &forkBlockStagingShard{
			store:    fbs,
			toAdd:    make(map[externalapi.Blockstamp]*model.DALBlock),
			toDelete: make(map[externalapi.Blockstamp]struct{}),
		}
	}).(*forkBlockStagingShard)
}

func (fbss *forkBlockStagingShard) Commit(dbTx model.DBTransaction) error {
	for blockstamp := range fbss.toDelete {
		err := dbTx.Delete(fbss.store.blockstampAsKey(blockstamp))
		if err != nil {
			return err
		}
	}

	for blockstamp, block := range fbss.toAdd {
		blockBytes, err := fbss.store.serializeBlock(block)
		if err != nil {
			return err
		}
		err = dbTx.Put(fbss.store.blockstampAsKey(blockstamp), blockBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
