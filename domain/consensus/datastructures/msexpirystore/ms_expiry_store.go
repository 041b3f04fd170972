package msexpirystore

import (
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var bucketName = []byte("membership-expiries")

type msExpiryStore struct {
	bucket model.DBBucket
}

// New instantiates a new MembershipExpiryStore
func New(prefixBucket model.DBBucket) model.MembershipExpiryStore {
	return &msExpiryStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Add indexes the membership of pubKey signed on blockNumber
func (mes *msExpiryStore) Add(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber, pubKey externalapi.PubKey) error {

	pubKeys, err := mes.PubKeys(dbContext, stagingArea, blockNumber)
	if err != nil {
		return err
	}
	if slices.Contains(pubKeys, pubKey) {
		return errors.Errorf("membership of %s on block %d is already indexed", pubKey, blockNumber)
	}
	mes.stage(stagingArea, blockNumber, append(pubKeys, pubKey))
	return nil
}

// Remove removes the membership of pubKey signed on blockNumber
func (mes *msExpiryStore) Remove(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber, pubKey externalapi.PubKey) error {

	pubKeys, err := mes.PubKeys(dbContext, stagingArea, blockNumber)
	if err != nil {
		return err
	}
	index := slices.Index(pubKeys, pubKey)
	if index < 0 {
		return errors.Wrapf(database.ErrNotFound, "membership of %s on block %d is not indexed", pubKey, blockNumber)
	}
	mes.stage(stagingArea, blockNumber, slices.Delete(pubKeys, index, index+1))
	return nil
}

func (mes *msExpiryStore) stage(stagingArea *model.StagingArea, blockNumber externalapi.BlockNumber,
	pubKeys []externalapi.PubKey) {

	stagingShard := mes.stagingShard(stagingArea)
	if len(pubKeys) == 0 {
		delete(stagingShard.toAdd, blockNumber)
		stagingShard.toDelete[blockNumber] = struct{}{}
		return
	}
	stagingShard.toAdd[blockNumber] = pubKeys
	delete(stagingShard.toDelete, blockNumber)
}

// PubKeys returns the identities whose current membership was signed on
// blockNumber
func (mes *msExpiryStore) PubKeys(dbContext model.DBReader, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber) ([]externalapi.PubKey, error) {

	stagingShard := mes.stagingShard(stagingArea)
	if pubKeys, ok := stagingShard.toAdd[blockNumber]; ok {
		return slices.Clone(pubKeys), nil
	}
	if _, ok := stagingShard.toDelete[blockNumber]; ok {
		return nil, nil
	}

	pubKeysBytes, err := dbContext.Get(mes.numberAsKey(blockNumber))
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return serialization.DeserializePubKeys(pubKeysBytes)
}

func (mes *msExpiryStore) numberAsKey(blockNumber externalapi.BlockNumber) model.DBKey {
	var keyBytes [4]byte
	binary.BigEndian.PutUint32(keyBytes[:], uint32(blockNumber))
	return mes.bucket.Key(keyBytes[:])
}
