package msexpirystore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type msExpiryStagingShard struct {
	store    *msExpiryStore
	toAdd    map[externalapi.BlockNumber][]externalapi.PubKey
	toDelete map[externalapi.BlockNumber]struct{}
}

func (mes *msExpiryStore) stagingShard(stagingArea *model.StagingArea) *msExpiryStagingShard {
	return stagingArea.GetOrCreateShard("MembershipExpiryStore", func() model.StagingShard {
		return &msExpiryStagingShard{
			store:    mes,
			toAdd:    make(map[externalapi.BlockNumber][]externalapi.PubKey),
			toDelete: make(map[externalapi.BlockNumber]struct{}),
		}
	}).(*msExpiryStagingShard)
}

func (mess *msExpiryStagingShard) Commit(dbTx model.DBTransaction) error {
	for blockNumber := range mess.toDelete {
		err := dbTx.Delete(mess.store.numberAsKey(blockNumber))
		if err != nil {
			return err
		}
	}

	for blockNumber, pubKeys := range mess.toAdd {
		pubKeysBytes, err := serialization.SerializePubKeys(pubKeys)
		if err != nil {
			return err
		}
		err = dbTx.Put(mess.store.numberAsKey(blockNumber), pubKeysBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
