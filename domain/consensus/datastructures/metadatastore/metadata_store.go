package metadatastore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

var bucketName = []byte("metadata")

type metadataStagingShard struct {
	store             *metadataStore
	currentBlockstamp *externalapi.Blockstamp
	syncInProgress    *bool
}

func (ms *metadataStore) stagingShard(stagingArea *model.StagingArea) *metadataStagingShard {
	return stagingArea.GetOrCreateShard("MetadataStore", func() model.StagingShard {
		return &metadataStagingShard{store: ms}
	}).(*metadataStagingShard)
}

func (mss *metadataStagingShard) Commit(dbTx model.DBTransaction) error {
	if mss.currentBlockstamp != nil {
		err := dbTx.Put(mss.store.currentBlockstampKey, serialization.SerializeBlockstamp(*mss.currentBlockstamp))
		if err != nil {
			return err
		}
	}
	if mss.syncInProgress != nil {
		if *mss.syncInProgress {
			return dbTx.Put(mss.store.syncInProgressKey, []byte{1})
		}
		return dbTx.Delete(mss.store.syncInProgressKey)
	}
	return nil
}

type metadataStore struct {
	currentBlockstampKey model.DBKey
	syncInProgressKey    model.DBKey
}

// New instantiates a new MetadataStore
func New(prefixBucket model.DBBucket) model.MetadataStore {
	bucket := prefixBucket.Bucket(bucketName)
	return &metadataStore{
		currentBlockstampKey: bucket.Key([]byte("current-blockstamp")),
		syncInProgressKey:    bucket.Key([]byte("sync-in-progress")),
	}
}

func (ms *metadataStore) StageCurrentBlockstamp(stagingArea *model.StagingArea, blockstamp externalapi.Blockstamp) {
	ms.stagingShard(stagingArea).currentBlockstamp = &blockstamp
}

func (ms *metadataStore) CurrentBlockstamp(dbContext model.DBReader,
	stagingArea *model.StagingArea) (externalapi.Blockstamp, bool, error) {

	stagingShard := ms.stagingShard(stagingArea)
	if stagingShard.currentBlockstamp != nil {
		return *stagingShard.currentBlockstamp, true, nil
	}

	blockstampBytes, err := dbContext.Get(ms.currentBlockstampKey)
	if database.IsNotFoundError(err) {
		return externalapi.Blockstamp{}, false, nil
	}
	if err != nil {
		return externalapi.Blockstamp{}, false, err
	}
	blockstamp, err := serialization.DeserializeBlockstamp(blockstampBytes)
	if err != nil {
		return externalapi.Blockstamp{}, false, err
	}
	return blockstamp, true, nil
}

func (ms *metadataStore) StageSyncInProgress(stagingArea *model.StagingArea, inProgress bool) {
	ms.stagingShard(stagingArea).syncInProgress = &inProgress
}

func (ms *metadataStore) IsSyncInProgress(dbContext model.DBReader, stagingArea *model.StagingArea) (bool, error) {
	stagingShard := ms.stagingShard(stagingArea)
	if stagingShard.syncInProgress != nil {
		return *stagingShard.syncInProgress, nil
	}
	return dbContext.Has(ms.syncInProgressKey)
}
