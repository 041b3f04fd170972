package certexpirystore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

type certExpiryStagingShard struct {
	store    *certExpiryStore
	toAdd    map[externalapi.BlockNumber][]model.CertLink
	toDelete map[externalapi.BlockNumber]struct{}
}

func (ces *certExpiryStore) stagingShard(stagingArea *model.StagingArea) *certExpiryStagingShard {
	return stagingArea.GetOrCreateShard("CertificationExpiryStore", func() model.StagingShard {
		return &certExpiryStagingShard{
			store:    ces,
			toAdd:    make(map[externalapi.BlockNumber][]model.CertLink),
			toDelete: make(map[externalapi.BlockNumber]struct{}),
		}
	}).(*certExpiryStagingShard)
}

func (cess *certExpiryStagingShard) Commit(dbTx model.DBTransaction) error {
	for createdIn := range cess.toDelete {
		err := dbTx.Delete(cess.store.numberAsKey(createdIn))
		if err != nil {
			return err
		}
	}

	for createdIn, links := range cess.toAdd {
		linksBytes, err := serialization.SerializeCertLinks(links)
		if err != nil {
			return err
		}
		err = dbTx.Put(cess.store.numberAsKey(createdIn), linksBytes)
		if err != nil {
			return err
		}
	}
	return nil
}
