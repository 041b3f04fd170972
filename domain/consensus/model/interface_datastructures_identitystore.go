package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// IdentityStore represents a store of identities, by public key
type IdentityStore interface {
	Stage(stagingArea *StagingArea, identity *Identity)
	Delete(stagingArea *StagingArea, pubKey externalapi.PubKey)
	Identity(dbContext DBReader, stagingArea *StagingArea, pubKey externalapi.PubKey) (*Identity, error)
	HasIdentity(dbContext DBReader, stagingArea *StagingArea, pubKey externalapi.PubKey) (bool, error)

	// All returns every identity, sorted by node id
	All(dbContext DBReader, stagingArea *StagingArea) ([]*Identity, error)
}
