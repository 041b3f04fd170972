package model

import "github.com/kaspanet/go-muhash"

// UTXOCommitmentStore stores the multiset hash of the set of unspent sources
type UTXOCommitmentStore interface {
	Stage(stagingArea *StagingArea, commitment *muhash.MuHash)
	Commitment(dbContext DBReader, stagingArea *StagingArea) (*muhash.MuHash, error)
}
