package blockstore

import (
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

var bucketName = []byte("blocks")

// blockStore represents a store of the main branch blocks
type blockStore struct {
	bucket model.DBBucket
}

// New instantiates a new BlockStore
func New(prefixBucket model.DBBucket) model.BlockStore {
	return &blockStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the given block under its number
func (bs *blockStore) Stage(stagingArea *model.StagingArea, block *model.DALBlock) {
	stagingShard := bs.stagingShard(stagingArea)
	blockNumber := block.Block.Number
	stagingShard.toAdd[blockNumber] = block
	delete(stagingShard.toDelete, blockNumber)
}

// Delete deletes the block with the given number
func (bs *blockStore) Delete(stagingArea *model.StagingArea, blockNumber externalapi.BlockNumber) {
	stagingShard := bs.stagingShard(stagingArea)
	delete(stagingShard.toAdd, blockNumber)
	stagingShard.toDelete[blockNumber] = struct{}{}
}

// Block gets the block with the given number
func (bs *blockStore) Block(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber) (*model.DALBlock, error) {

	stagingShard := bs.stagingShard(stagingArea)
	if block, ok := stagingShard.toAdd[blockNumber]; ok {
		return block, nil
	}
	if _, ok := stagingShard.toDelete[blockNumber]; ok {
		return nil, errors.Wrapf(database.ErrNotFound, "block %d is staged for deletion", blockNumber)
	}

	blockBytes, err := dbContext.Get(bs.numberAsKey(blockNumber))
	if err != nil {
		return nil, err
	}
	return bs.deserializeBlock(blockBytes)
}

// HasBlock returns whether a block with the given number exists in the store
func (bs *blockStore) HasBlock(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber) (bool, error) {

	stagingShard := bs.stagingShard(stagingArea)
	if _, ok := stagingShard.toAdd[blockNumber]; ok {
		return true, nil
	}
	if _, ok := stagingShard.toDelete[blockNumber]; ok {
		return false, nil
	}
	return dbContext.Has(bs.numberAsKey(blockNumber))
}

func (bs *blockStore) serializeBlock(block *model.DALBlock) ([]byte, error) {
	return serialization.SerializeDALBlock(block)
}

func (bs *blockStore) deserializeBlock(blockBytes []byte) (*model.DALBlock, error) {
	return serialization.DeserializeDALBlock(blockBytes)
}

func (bs *blockStore) numberAsKey(blockNumber externalapi.BlockNumber) model.DBKey {
	var keyBytes [4]byte
	binary.BigEndian.PutUint32(keyBytes[:], uint32(blockNumber))
	return bs.bucket.Key(keyBytes[:])
}
