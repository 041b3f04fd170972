package utxostore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

var bucketName = []byte("utxos")

// utxoStore represents a store of unspent sources
type utxoStore struct {
	bucket model.DBBucket
}

// New instantiates a new UTXOStore
func New(prefixBucket model.DBBucket) model.UTXOStore {
	return &utxoStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the given unspent source
func (us *utxoStore) Stage(stagingArea *model.StagingArea, utxo *externalapi.UTXO) {
	stagingShard := us.stagingShard(stagingArea)
	utxoCopy := *utxo
	stagingShard.toAdd[utxo.Source] = &utxoCopy
	delete(stagingShard.toDelete, utxo.Source)
}

// Delete deletes the unspent source with the given id
func (us *utxoStore) Delete(stagingArea *model.StagingArea, sourceID externalapi.SourceID) {
	stagingShard := us.stagingShard(stagingArea)
	delete(stagingShard.toAdd, sourceID)
	stagingShard.toDelete[sourceID] = struct{}{}
}

// UTXO gets the unspent source with the given id
func (us *utxoStore) UTXO(dbContext model.DBReader, stagingArea *model.StagingArea,
	sourceID externalapi.SourceID) (*externalapi.UTXO, error) {

	stagingShard := us.stagingShard(stagingArea)
	if utxo, ok := stagingShard.toAdd[sourceID]; ok {
		utxoCopy := *utxo
		return &utxoCopy, nil
	}
	if _, ok := stagingShard.toDelete[sourceID]; ok {
		return nil, errors.Wrapf(database.ErrNotFound, "source %s is staged for deletion", sourceID)
	}

	utxoBytes, err := dbContext.Get(us.sourceIDAsKey(sourceID))
	if err != nil {
		return nil, err
	}
	return us.deserializeUTXO(utxoBytes)
}

// HasUTXO returns whether the source with the given id is unspent
func (us *utxoStore) HasUTXO(dbContext model.DBReader, stagingArea *model.StagingArea,
	sourceID externalapi.SourceID) (bool, error) {

	stagingShard := us.stagingShard(stagingArea)
	if _, ok := stagingShard.toAdd[sourceID]; ok {
		return true, nil
	}
	if _, ok := stagingShard.toDelete[sourceID]; ok {
		return false, nil
	}
	return dbContext.Has(us.sourceIDAsKey(sourceID))
}

func (us *utxoStore) serializeUTXO(utxo *externalapi.UTXO) ([]byte, error) {
	return serialization.SerializeUTXO(utxo)
}

func (us *utxoStore) deserializeUTXO(utxoBytes []byte) (*externalapi.UTXO, error) {
	return serialization.DeserializeUTXO(utxoBytes)
}

func (us *utxoStore) sourceIDAsKey(sourceID externalapi.SourceID) model.DBKey {
	return us.bucket.Key(serialization.SourceIDToKey(sourceID))
}
