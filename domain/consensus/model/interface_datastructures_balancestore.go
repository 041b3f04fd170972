package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// BalanceStore caches the balance of every condition owning sources
type BalanceStore interface {
	Stage(stagingArea *StagingArea, condition externalapi.Condition, balance *externalapi.Balance)
	Delete(stagingArea *StagingArea, condition externalapi.Condition)

	// Balance returns the balance of condition, which is empty when the
	// condition owns nothing
	Balance(dbContext DBReader, stagingArea *StagingArea, condition externalapi.Condition) (*externalapi.Balance, error)
}
