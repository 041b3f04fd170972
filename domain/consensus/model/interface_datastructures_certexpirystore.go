package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// CertificationExpiryStore indexes active certifications by the block
// number they were written in
type CertificationExpiryStore interface {
	Add(dbContext DBReader, stagingArea *StagingArea, createdIn externalapi.BlockNumber, link CertLink) error
	Remove(dbContext DBReader, stagingArea *StagingArea, createdIn externalapi.BlockNumber, link CertLink) error
	Stage(stagingArea *StagingArea, createdIn externalapi.BlockNumber, links []CertLink)
	Delete(stagingArea *StagingArea, createdIn externalapi.BlockNumber)
	Links(dbContext DBReader, stagingArea *StagingArea, createdIn externalapi.BlockNumber) ([]CertLink, error)

	// BlockNumbers returns every indexed block number in ascending order
	BlockNumbers(dbContext DBReader, stagingArea *StagingArea) ([]externalapi.BlockNumber, error)
}
