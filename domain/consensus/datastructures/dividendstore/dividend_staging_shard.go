package dividendstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type dividendStagingShard struct {
	store    *dividendStore
	toAdd    map[externalapi.PubKey][]externalapi.BlockNumber
	toDelete map[externalapi.PubKey]struct{}
}

func (ds *dividendStore) stagingShard(stagingArea *model.StagingArea) *dividendStagingShard {
	return stagingArea.GetOrCreateShard("DividendStore", func() model.StagingShard {
		return &dividendStagingShard{
			store:    ds,
			toAdd:    make(map[externalapi.PubKey][]externalapi.BlockNumber),
			toDelete: make(map[externalapi.PubKey]struct{}),
		}
	}).(*dividendStagingShard)
}

func (dss *dividendStagingShard) Commit(dbTx model.DBTransaction) error {
	for pubKey := range dss.toDelete {
		err := dbTx.Delete(dss.store.pubKeyAsKey(pubKey))
		if err != nil {
			return err
		}
	}

	for pubKey, blockNumbers := range dss.toAdd {
		blockNumbersBytes, err := serialization.SerializeBlockNumbers(blockNumbers)
		if err != nil {
			return err
		}
		err = dbTx.Put(dss.store.pubKeyAsKey(pubKey), blockNumbersBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
