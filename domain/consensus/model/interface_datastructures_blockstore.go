package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// BlockStore represents a store of the main branch blocks, by number
type BlockStore interface {
	Stage(stagingArea *StagingArea, block *DALBlock)
	Delete(stagingArea *StagingArea, blockNumber externalapi.BlockNumber)
	Block(dbContext DBReader, stagingArea *StagingArea, blockNumber externalapi.BlockNumber) (*DALBlock, error)
	HasBlock(dbContext DBReader, stagingArea *StagingArea, blockNumber externalapi.BlockNumber) (bool, error)
}
