package balancestore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

var bucketName = []byte("balances")

// balanceStore caches the balance of every condition owning sources.
// Empty balances are never stored.
type balanceStore struct {
	bucket model.DBBucket
}

// New instantiates a new BalanceStore
func New(prefixBucket model.DBBucket) model.BalanceStore {
	return &balanceStore{
		bucket: prefixBucket.Bucket(bucketName),
	}
}

// Stage stages the balance of condition. Staging an empty balance
// deletes it.
func (bs *balanceStore) Stage(stagingArea *model.StagingArea, condition externalapi.Condition,
	balance *externalapi.Balance) {

	if balance.IsEmpty() {
		bs.Delete(stagingArea, condition)
		return
	}
	stagingShard := bs.stagingShard(stagingArea)
	stagingShard.toAdd[condition] = balance.Clone()
	delete(stagingShard.toDelete, condition)
}

// Delete deletes the balance of condition
func (bs *balanceStore) Delete(stagingArea *model.StagingArea, condition externalapi.Condition) {
	stagingShard := bs.stagingShard(stagingArea)
	delete(stagingShard.toAdd, condition)
	stagingShard.toDelete[condition] = struct{}{}
}

// Balance returns the balance of condition
func (bs *balanceStore) Balance(dbContext model.DBReader, stagingArea *model.StagingArea,
	condition externalapi.Condition) (*externalapi.Balance, error) {

	stagingShard := bs.stagingShard(stagingArea)
	if balance, ok := stagingShard.toAdd[condition]; ok {
		return balance.Clone(), nil
	}
	if _, ok := stagingShard.toDelete[condition]; ok {
		return externalapi.NewBalance(), nil
	}

	balanceBytes, err := dbContext.Get(bs.conditionAsKey(condition))
	if database.IsNotFoundError(err) {
		return externalapi.NewBalance(), nil
	}
	if err != nil {
		return nil, err
	}
	return serialization.DeserializeBalance(balanceBytes)
}

func (bs *balanceStore) serializeBalance(balance *externalapi.Balance) ([]byte, error) {
	return serialization.SerializeBalance(balance)
}

func (bs *balanceStore) conditionAsKey(condition externalapi.Condition) model.DBKey {
	return bs.bucket.Key([]byte(condition))
}
