package dividendstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var bucketName = []byte("dividends")

type dividendStore struct {
	bucket model.DBBucket
}

// New instantiates a new DividendStore
func New(prefixBucket model.DBBucket) model.DividendStore {
	return &dividendStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Add indexes the dividend of pubKey created on blockNumber
func (ds *dividendStore) Add(dbContext model.DBReader, stagingArea *model.StagingArea,
	pubKey externalapi.PubKey, blockNumber externalapi.BlockNumber) error {

	blockNumbers, err := ds.BlockNumbers(dbContext, stagingArea, pubKey)
	if err != nil {
		return err
	}
	index, found := slices.BinarySearch(blockNumbers, blockNumber)
	if found {
		return errors.Errorf("dividend of %s on block %d is already indexed", pubKey, blockNumber)
	}
	ds.stage(stagingArea, pubKey, slices.Insert(blockNumbers, index, blockNumber))
	return nil
}

// Remove removes the dividend of pubKey created on blockNumber
func (ds *dividendStore) Remove(dbContext model.DBReader, stagingArea *model.StagingArea,
	pubKey externalapi.PubKey, blockNumber externalapi.BlockNumber) error {

	blockNumbers, err := ds.BlockNumbers(dbContext, stagingArea, pubKey)
	if err != nil {
		return err
	}
	index, found := slices.BinarySearch(blockNumbers, blockNumber)
	if !found {
		return errors.Wrapf(database.ErrNotFound, "dividend of %s on block %d is not indexed", pubKey, blockNumber)
	}
	ds.stage(stagingArea, pubKey, slices.Delete(blockNumbers, index, index+1))
	return nil
}

func (ds *dividendStore) stage(stagingArea *model.StagingArea, pubKey externalapi.PubKey,
	blockNumbers []externalapi.BlockNumber) {

	stagingShard := ds.stagingShard(stagingArea)
	if len(blockNumbers) == 0 {
		delete(stagingShard.toAdd, pubKey)
		stagingShard.toDelete[pubKey] = struct{}{}
		return
	}
	stagingShard.toAdd[pubKey] = blockNumbers
	delete(stagingShard.toDelete, pubKey)
}

// BlockNumbers returns the block numbers of the unspent dividends of
// pubKey in ascending order
func (ds *dividendStore) BlockNumbers(dbContext model.DBReader, stagingArea *model.StagingArea,
	pubKey externalapi.PubKey) ([]externalapi.BlockNumber, error) {

	stagingShard := ds.stagingShard(stagingArea)
	if blockNumbers, ok := stagingShard.toAdd[pubKey]; ok {
		return slices.Clone(blockNumbers), nil
	}
	if _, ok := stagingShard.toDelete[pubKey]; ok {
		return nil, nil
	}

	blockNumbersBytes, err := dbContext.Get(ds.pubKeyAsKey(pubKey))
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeBlockNumbers(blockNumbersBytes)
}

func (ds *dividendStore) pubKeyAsKey(pubKey externalapi.PubKey) model.DBKey {
	return ds.bucket.Key([]byte(pubKey))
}
