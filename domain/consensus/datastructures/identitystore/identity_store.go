package identitystore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

var bucketName = []byte("identities")

// identityStore represents a store of identities
type identityStore struct {
	bucket model.DBBucket
}

// New instantiates a new IdentityStore
func New(prefixBucket model.DBBucket) model.IdentityStore {
	return &identityStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the given identity. Later modifications of identity are
// not seen by the store.
func (is *identityStore) Stage(stagingArea *model.StagingArea, identity *model.Identity) {
	stagingShard := is.stagingShard(stagingArea)
	stagingShard.toAdd[identity.PubKey] = identity.Clone()
	delete(stagingShard.toDelete, identity.PubKey)
}

// Delete deletes the identity of pubKey
func (is *identityStore) Delete(stagingArea *model.StagingArea, pubKey externalapi.PubKey) {
	stagingShard := is.stagingShard(stagingArea)
	delete(stagingShard.toAdd, pubKey)
	stagingShard.toDelete[pubKey] = struct{}{}
}

// Identity gets the identity of pubKey
func (is *identityStore) Identity(dbContext model.DBReader, stagingArea *model.StagingArea,
	pubKey externalapi.PubKey) (*model.Identity, error) {

	stagingShard := is.stagingShard(stagingArea)
	if identity, ok := stagingShard.toAdd[pubKey]; ok {
		return identity.Clone(), nil
	}
	if _, ok := stagingShard.toDelete[pubKey]; ok {
		return nil, errors.Wrapf(database.ErrNotFound, "identity %s is staged for deletion", pubKey)
	}

	identityBytes, err := dbContext.Get(is.pubKeyAsKey(pubKey))
	if err != nil {
		return nil, err
	}
	return is.deserializeIdentity(identityBytes)
}

// HasIdentity returns whether pubKey has an identity in the store
func (is *identityStore) HasIdentity(dbContext model.DBReader, stagingArea *model.StagingArea,
	pubKey externalapi.PubKey) (bool, error) {

	stagingShard := is.stagingShard(stagingArea)
	if _, ok := stagingShard.toAdd[pubKey]; ok {
		return true, nil
	}
	if _, ok := stagingShard.toDelete[pubKey]; ok {
		return false, nil
	}
	return dbContext.Has(is.pubKeyAsKey(pubKey))
}

// All returns every identity, sorted by node id
func (is *identityStore) All(dbContext model.DBReader, stagingArea *model.StagingArea) ([]*model.Identity, error) {
	stagingShard := is.stagingShard(stagingArea)

	cursor, err := dbContext.Cursor(is.bucket)
	if err != nil {
		return nil, err
	}
	defer cursor.Close()

	var identities []*model.Identity
	for ok := cursor.First(); ok; ok = cursor.Next() {
		identityBytes, err := cursor.Value()
		if err != nil {
			return nil, err
		}
		identity, err := is.deserializeIdentity(identityBytes)
		if err != nil {
			return nil, err
		}
		if _, ok := stagingShard.toDelete[identity.PubKey]; ok {
			continue
		}
		if _, ok := stagingShard.toAdd[identity.PubKey]; ok {
			continue
		}
		identities = append(identities, identity)
	}
	for _, identity := range stagingShard.toAdd {
		identities = append(identities, identity.Clone())
	}

	slices.SortFunc(identities, func(a, b *model.Identity) int {
		return int(a.NodeID) - int(b.NodeID)
	})
	return identities, nil
}

func (is *identityStore) serializeIdentity(identity *model.Identity) ([]byte, error) {
	return serialization.SerializeIdentity(identity)
}

func (is *identityStore) deserializeIdentity(identityBytes []byte) (*model.Identity, error) {
	return serialization.DeserializeIdentity(identityBytes)
}

func (is *identityStore) pubKeyAsKey(pubKey externalapi.PubKey) model.DBKey {
	return is.bucket.Key([]byte(pubKey))
}
