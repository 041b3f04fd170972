package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// MetadataStore stores the position of the node in the chain and the
// marker of an interrupted bulk synchronization
type MetadataStore interface {
	StageCurrentBlockstamp(stagingArea *StagingArea, blockstamp externalapi.Blockstamp)
	CurrentBlockstamp(dbContext DBReader, stagingArea *StagingArea) (blockstamp externalapi.Blockstamp, found bool, err error)
	StageSyncInProgress(stagingArea *StagingArea, inProgress bool)
	IsSyncInProgress(dbContext DBReader, stagingArea *StagingArea) (bool, error)
}
