package forkblockstore

import (
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

var bucketName = []byte("fork-blocks")

// forkBlockStore represents a store of the fork blocks, stored along with
// their full transactions so that they can be applied on a refork
type forkBlockStore struct {
	bucket model.DBBucket
}

// New instantiates a new ForkBlockStore
func New(prefixBucket model.DBBucket) model.ForkBlockStore {
	return &forkBlockStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the given block under its blockstamp
func (fbs *forkBlockStore) Stage(stagingArea *model.StagingArea, block *model.DALBlock) {
	stagingShard := fbs.stagingShard(stagingArea)
	blockstamp := block.Blockstamp()
	stagingShard.toAdd[blockstamp] = block
	delete(stagingShard.toDelete, blockstamp)
}

// Delete deletes the block with the given blockstamp, if any
func (fbs *forkBlockStore) Delete(stagingArea *model.StagingArea, blockstamp externalapi.Blockstamp) {
	stagingShard := fbs.stagingShard(stagingArea)
	delete(stagingShard.toAdd, blockstamp)
	stagingShard.toDelete[blockstamp] = struct{}{}
}

// Block gets the block with the given blockstamp
func (fbs *forkBlockStore) Block(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockstamp externalapi.Blockstamp) (*model.DALBlock, error) {

	stagingShard := fbs.stagingShard(stagingArea)
	if block, ok := stagingShard.toAdd[blockstamp]; ok {
		return block, nil
	}
	if _, ok := stagingShard.toDelete[blockstamp]; ok {
		return nil, errors.Wrapf(database.ErrNotFound, "fork block %s is staged for deletion", blockstamp)
	}

	blockBytes, err := dbContext.Get(fbs.blockstampAsKey(blockstamp))
	if err != nil {
		return nil, err
	}
	return fbs.deserializeBlock(blockBytes)
}

// HasBlock returns whether a block with the given blockstamp exists in the store
func (fbs *forkBlockStore) HasBlock(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockstamp externalapi.Blockstamp) (bool, error) {

	stagingShard := fbs.stagingShard(stagingArea)
	if _, ok := stagingShard.toAdd[blockstamp]; ok {
		return true, nil
	}
	if _, ok := stagingShard.toDelete[blockstamp]; ok {
		return false, nil
	}
	return dbContext.Has(fbs.blockstampAsKey(blockstamp))
}

func (fbs *forkBlockStore) serializeBlock(block *model.DALBlock) ([]byte, error) {
	return serialization.SerializeDALBlock(block)
}

func (fbs *forkBlockStore) deserializeBlock(blockBytes []byte) (*model.DALBlock, error) {
	return serialization.DeserializeDALBlock(blockBytes)
}

func (fbs *forkBlockStore) blockstampAsKey(blockstamp externalapi.Blockstamp) model.DBKey {
	keyBytes := make([]byte, 4+externalapi.HashSize)
	binary.BigEndian.PutUint32(keyBytes, uint32(blockstamp.Number))
	copy(keyBytes[4:], blockstamp.Hash[:])
	return fbs.bucket.Key(keyBytes)
}
