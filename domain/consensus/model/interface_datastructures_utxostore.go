package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// UTXOStore represents a store of unspent sources, both transaction
// outputs and dividends
type UTXOStore interface {
	Stage(stagingArea *StagingArea, utxo *externalapi.UTXO)
	Delete(stagingArea *StagingArea, sourceID externalapi.SourceID)
	UTXO(dbContext DBReader, stagingArea *StagingArea, sourceID externalapi.SourceID) (*externalapi.UTXO, error)
	HasUTXO(dbContext DBReader, stagingArea *StagingArea, sourceID externalapi.SourceID) (bool, error)
}
