package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// DividendStore indexes the block numbers of the unspent dividends of
// every member
type DividendStore interface {
	Add(dbContext DBReader, stagingArea *StagingArea, pubKey externalapi.PubKey, blockNumber externalapi.BlockNumber) error
	Remove(dbContext DBReader, stagingArea *StagingArea, pubKey externalapi.PubKey, blockNumber externalapi.BlockNumber) error
	BlockNumbers(dbContext DBReader, stagingArea *StagingArea, pubKey externalapi.PubKey) ([]externalapi.BlockNumber, error)
}
