package wotgraphstore

import (
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/pkg/errors"
)

type wotGraphStagingShard struct {
	store    *wotGraphStore
	newGraph model.WebOfTrust
}

func (wgs *wotGraphStore) stagingShard(stagingArea *model.StagingArea) *wotGraphStagingShard {
	return stagingArea.GetOrCreateShard("WoTGraphStore", func() model.StagingShard {
		return &wotGraphStagingShard{
			store:    wgs,
			newGraph: nil,
		}
	}).(*wotGraphStagingShard)
}

func (wgss *wotGraphStagingShard) Commit(dbTx model.DBTransaction) error {
	if wgss.newGraph == nil {
		return nil
	}

	snapshotBytes, err := wgss.store.serializeGraph(wgss.newGraph)
	if err != nil {
		return err
	}
	lengthBytes := make([]byte, 8)
	binary.LittleEndian.PutUint64(lengthBytes, uint64(len(snapshotBytes)-checksumSize))
	err = dbTx.Put(wgss.store.lengthKey, lengthBytes)
	if err != nil {
		return errors.WithStack(err)
	}
	return dbTx.Put(wgss.store.snapshotKey, snapshotBytes)
}

func (wgss *wotGraphStagingShard) isStaged() bool {
	return wgss.newGraph != nil
}
