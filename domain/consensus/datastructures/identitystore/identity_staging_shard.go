package identitystore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type identityStagingShard struct {
	store    *identityStore
	toAdd    map[externalapi.PubKey]*model.Identity
	toDelete map[externalapi.PubKey]struct{}
}

func (is *identityStore) stagingShard(stagingArea *model.StagingArea) *identityStagingShard {
	return stagingArea.GetOrCreateShard("IdentityStore", func() model.StagingShard {
		return &identityStagingShard{
			store:    is,
			toAdd:    make(map[externalapi.PubKey]*model.Identity),
			toDelete: make(map[externalapi.PubKey]struct{}),
		}
	}).(*identityStagingShard)
}

func (iss *identityStagingShard) Commit(dbTx model.DBTransaction) error {
	for pubKey := range iss.toDelete {
		err := dbTx.Delete(iss.store.pubKeyAsKey(pubKey))
		if err != nil {
			return err
		}
	}

	for pubKey, identity := range iss.toAdd {
		identityBytes, err := iss.store.serializeIdentity(identity)
		if err != nil {
			return err
		}
		err = dbTx.Put(iss.store.pubKeyAsKey(pubKey), identityBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
