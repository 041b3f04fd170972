package certexpirystore

import (
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var bucketName = []byte("certification-expiries")

type certExpiryStore struct {
	bucket model.DBBucket
}

// New instantiates a new CertificationExpiryStore
func New(prefixBucket model.DBBucket) model.CertificationExpiryStore {
	return &certExpiryStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Add indexes link as written in block createdIn
func (ces *certExpiryStore) Add(dbContext model.DBReader, stagingArea *model.StagingArea,
	createdIn externalapi.BlockNumber, link model.CertLink) error {

	links, err := ces.Links(dbContext, stagingArea, createdIn)
	if err != nil {
		return err
	}
	if slices.Contains(links, link) {
		return errors.Errorf("certification %s of block %d is already indexed", link, createdIn)
	}
	ces.Stage(stagingArea, createdIn, append(links, link))
	return nil
}

// Remove removes link from the certifications written in block createdIn
func (ces *certExpiryStore) Remove(dbContext model.DBReader, stagingArea *model.StagingArea,
	createdIn externalapi.BlockNumber, link model.CertLink) error {

	links, err := ces.Links(dbContext, stagingArea, createdIn)
	if err != nil {
		return err
	}
	index := slices.Index(links, link)
	if index < 0 {
		return errors.Wrapf(database.ErrNotFound, "certification %s of block %d is not indexed", link, createdIn)
	}
	ces.Stage(stagingArea, createdIn, slices.Delete(links, index, index+1))
	return nil
}

// Stage replaces the certifications indexed under createdIn
func (ces *certExpiryStore) Stage(stagingArea *model.StagingArea, createdIn externalapi.BlockNumber,
	links []model.CertLink) {

	if len(links) == 0 {
		ces.Delete(stagingArea, createdIn)
		return
	}
	stagingShard := ces.stagingShard(stagingArea)
	stagingShard.toAdd[createdIn] = slices.Clone(links)
	delete(stagingShard.toDelete, createdIn)
}

// Delete removes every certification indexed under createdIn
func (ces *certExpiryStore) Delete(stagingArea *model.StagingArea, createdIn externalapi.BlockNumber) {
	stagingShard := ces.stagingShard(stagingArea)
	delete(stagingShard.toAdd, createdIn)
	stagingShard.toDelete[createdIn] = struct{}{}
}

// Links returns the certifications written in block createdIn that are
// still active
func (ces *certExpiryStore) Links(dbContext model.DBReader, stagingArea *model.StagingArea,
	createdIn externalapi.BlockNumber) ([]model.CertLink, error) {

	stagingShard := ces.stagingShard(stagingArea)
	if links, ok := stagingShard.toAdd[createdIn]; ok {
		return slices.Clone(links), nil
	}
	if _, ok := stagingShard.toDelete[createdIn]; ok {
		return nil, nil
	}

	linksBytes, err := dbContext.Get(ces.numberAsKey(createdIn))
	if database.IsNotFoundError(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeCertLinks(linksBytes)
}

// BlockNumbers returns every indexed block number in ascending order
func (ces *certExpiryStore) BlockNumbers(dbContext model.DBReader,
	stagingArea *model.StagingArea) ([]externalapi.BlockNumber, error) {

	stagingShard := ces.stagingShard(stagingArea)

	cursor, err := dbContext.Cursor(ces.bucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var blockNumbers []externalapi.BlockNumber
	for ok := cursor.First(); ok; ok = cursor.Next() {
		key, err := cursor.Key()
		if err != nil {
			return nil, err
		}
		suffix := key.Suffix()
		if len(suffix) != 4 {
			return nil, errors.Errorf("malformed certification expiry key %x", suffix)
		}
		createdIn := externalapi.BlockNumber(binary.BigEndian.Uint32(suffix))
		if _, ok := stagingShard.toDelete[createdIn]; ok {
			continue
		}
		if _, ok := stagingShard.toAdd[createdIn]; ok {
			continue
		}
		blockNumbers = append(blockNumbers, createdIn)
	}
	for createdIn := range stagingShard.toAdd {
		blockNumbers = append(blockNumbers, createdIn)
	}
	slices.Sort(blockNumbers)
	return blockNumbers, nil
}

func (ces *certExpiryStore) numberAsKey(createdIn externalapi.BlockNumber) model.DBKey {
	var keyBytes [4]byte
	binary.BigEndian.PutUint32(keyBytes[:], uint32(createdIn))
	return ces.bucket.Key(keyBytes[:])
}
