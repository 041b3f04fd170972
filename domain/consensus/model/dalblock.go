package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// DALBlock is the stored form of a block.
//
// ExpireCerts is the certification expiry map the block was applied with,
// kept verbatim so that the block can be reverted exactly. PreviouslyEnabled
// records, for every already-known identity whose membership flag the block
// touched, whether its node was enabled before the block.
type DALBlock struct {
	Block             *externalapi.BlockDocument
	IsFork            bool
	ExpireCerts       map[CertLink]externalapi.BlockNumber
	PreviouslyEnabled map[externalapi.PubKey]bool
}

// Blockstamp returns the blockstamp of the stored block
func (dalBlock *DALBlock) Blockstamp() externalapi.Blockstamp {
	return dalBlock.Block.Blockstamp()
}

// TransactionRecord is the stored form of an applied transaction, along with
// the sources that its application destroyed as dust
type TransactionRecord struct {
	Transaction      *externalapi.TransactionDocument
	BlockNumber      externalapi.BlockNumber
	DestroyedSources []*externalapi.UTXO
}
