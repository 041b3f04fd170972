package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// MembershipExpiryStore indexes the current membership of every identity
// by the block number it was signed on
type MembershipExpiryStore interface {
	Add(dbContext DBReader, stagingArea *StagingArea, blockNumber externalapi.BlockNumber, pubKey externalapi.PubKey) error
	Remove(dbContext DBReader, stagingArea *StagingArea, blockNumber externalapi.BlockNumber, pubKey externalapi.PubKey) error
	PubKeys(dbContext DBReader, stagingArea *StagingArea, blockNumber externalapi.BlockNumber) ([]externalapi.PubKey, error)
}
