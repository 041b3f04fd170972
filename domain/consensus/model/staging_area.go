package model

import "github.com/pkg/errors"

// StagingShardID is used to identify each of the store's staging shards
type StagingShardID string

// StagingShard is an interface that enables every store to have its own Commit logic
// See StagingArea for more details
type StagingShard interface {
	Commit(dbTx DBTransaction) error
}

// StagingArea is single changeset inside the engine, that might be either committed or discarded.
//
// Every store keeps its pending writes in a shard of the staging area, and reads
// through it first, so that a sequence of block applications and reversions can be
// performed on top of the persistent state and then flushed in one database
// transaction, or dropped by simply forgetting the staging area.
type StagingArea struct {
	shards      map[StagingShardID]StagingShard
	isCommitted bool
}

// NewStagingArea creates a new, empty staging area.
func NewStagingArea() *StagingArea {
	return &StagingArea{
		shards:      make(map[StagingShardID]StagingShard),
		isCommitted: false,
	}
}

// GetOrCreateShard attempts to retrieve a shard with the given name.
// If it does not exist - a new shard is created using `createFunc`.
func (sa *StagingArea) GetOrCreateShard(shardID StagingShardID, createFunc func() StagingShard) StagingShard {
	if _, ok := sa.shards[shardID]; !ok {
		sa.shards[shardID] = createFunc()
	}
	return sa.shards[shardID]
}

// Commit commits the staging area to the database
func (sa *StagingArea) Commit(dbTx DBTransaction) error {
	if sa.isCommitted {
		return errors.Errorf("Attempt to call Commit on already committed stagingArea")
	}

	for _, shard := range sa.shards {
		err := shard.Commit(dbTx)
		if err != nil {
			return err
		}
	}

	sa.isCommitted = true

	return nil
}
