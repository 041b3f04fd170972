package blockstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type blockStagingShard struct {
	store    *blockStore
	toAdd    map[externalapi.BlockNumber]*model.DALBlock
	toDelete map[externalapi.BlockNumber]struct{}
}

func (bs *blockStore) stagingShard(stagingArea *model.StagingArea) *blockStagingShard {
	return stagingArea.GetOrCreateShard("BlockStore", func() model.StagingShard {
		return &blockStagingShard{
			store:    bs,
			toAdd:    make(map[externalapi.BlockNumber]*model.DALBlock),
			toDelete: make(map[externalapi.BlockNumber]struct{}),
		}
	}).(*blockStagingShard)
}

func (bss *blockStagingShard) Commit(dbTx model.DBTransaction) error {
	for blockNumber := range bss.toDelete {
		err := dbTx.Delete(bss.store.numberAsKey(blockNumber))
		if err != nil {
			return err
		}
	}

	for blockNumber, block := range bss.toAdd {
		blockBytes, err := bss.store.serializeBlock(block)
		if err != nil {
			return err
		}
		err = dbTx.Put(bss.store.numberAsKey(blockNumber), blockBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
