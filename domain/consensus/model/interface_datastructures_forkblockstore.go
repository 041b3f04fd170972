package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// ForkBlockStore represents a store of the blocks of the fork tree that
// are not on the main branch, by blockstamp
type ForkBlockStore interface {
	Stage(stagingArea *StagingArea, block *DALBlock)
	Delete(stagingArea *StagingArea, blockstamp externalapi.Blockstamp)
	Block(dbContext DBReader, stagingArea *StagingArea, blockstamp externalapi.Blockstamp) (*DALBlock, error)
	HasBlock(dbContext DBReader, stagingArea *StagingArea, blockstamp externalapi.Blockstamp) (bool, error)
}
