package balancestore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type balanceStagingShard struct {
	store    *balanceStore
	toAdd    map[externalapi.Condition]*externalapi.Balance
	toDelete map[externalapi.Condition]struct{}
}

func (bs *balanceStore) stagingShard(stagingArea *model.StagingArea) *balanceStagingShard {
	return stagingArea.GetOrCreateShard("BalanceStore", func() model.StagingShard {
		return &balanceStagingShard{
			store:    bs,
			toAdd:    make(map[externalapi.Condition]*externalapi.Balance),
			toDelete: make(map[externalapi.Condition]struct{}),
		}
	}).(*balanceStagingShard)
}

func (bss *balanceStagingShard) Commit(dbTx model.DBTransaction) error {
	for condition := range bss.toDelete {
		err := dbTx.Delete(bss.store.conditionAsKey(condition))
		if err != nil {
			return err
		}
	}

	for condition, balance := range bss.toAdd {
		balanceBytes, err := bss.store.serializeBalance(balance)
		if err != nil {
			return err
		}
		err = dbTx.Put(bss.store.conditionAsKey(condition), balanceBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
