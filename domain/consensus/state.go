package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/forktree"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/wot"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/util/panics"
	"github.com/pkg/errors"
)

// ErrSyncInterrupted indicates a database left half-written by an
// interrupted bulk synchronization
var ErrSyncInterrupted = errors.New("the database was left inconsistent by an interrupted synchronization, " +
	"delete the data directory and synchronize again")

// engineState is the in-memory part of the state of the engine. It is
// always a pure function of the committed stores.
type engineState struct {
	graph    model.WebOfTrust
	index    *identity.Index
	forkTree *forktree.ForkTree
}

// loadState reads the in-memory state back from the committed stores
func loadState(databaseContext model.DBReader, stores *stores,
	params *dubpconfig.CurrencyParameters) (*engineState, error) {

	onEnd := logger.LogAndMeasureExecutionTime(log, "loadState")
	defer onEnd()

	stagingArea := model.NewStagingArea()
	syncInProgress, err := stores.metadataStore.IsSyncInProgress(databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	if syncInProgress {
		return nil, errors.WithStack(ErrSyncInterrupted)
	}

	var graph model.WebOfTrust
	hasGraph, err := stores.wotGraphStore.HasGraph(databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	if hasGraph {
		graph, err = stores.wotGraphStore.Graph(databaseContext, stagingArea)
		if err != nil {
			return nil, err
		}
	} else {
		graph = wot.New(params.SigStock)
	}

	identities, err := stores.identityStore.All(databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	index := identity.NewIndex()
	for _, idty := range identities {
		err := index.Insert(idty.PubKey, idty.NodeID)
		if err != nil {
			return nil, errors.Wrap(err, "the identity store is corrupted")
		}
	}
	if index.Len() != graph.Size() {
		return nil, errors.Errorf("the identity store holds %d identities but the web of trust has %d nodes",
			index.Len(), graph.Size())
	}

	tree, err := stores.forkTreeStore.ForkTree(databaseContext, stagingArea, params.ForkWindowSize)
	if err != nil {
		return nil, err
	}
	current, found, err := stores.metadataStore.CurrentBlockstamp(databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	treeCurrent, treeFound := tree.CurrentBlockstamp()
	if found != treeFound || current != treeCurrent {
		return nil, errors.Errorf("the current block is %s but the fork tree ends at %s",
			describeBlockstamp(current, found), describeBlockstamp(treeCurrent, treeFound))
	}

	log.Infof("Loaded a web of trust of %d identities, current block is %s",
		graph.Size(), describeBlockstamp(current, found))
	return &engineState{graph: graph, index: index, forkTree: tree}, nil
}

func describeBlockstamp(blockstamp externalapi.Blockstamp, found bool) string {
	if !found {
		return "none"
	}
	return blockstamp.String()
}

// reloadState drops the in-memory state and reads it back from the
// committed stores. It is used after a failed block application, whose
// in-memory effects cannot be trusted anymore.
func (s *consensus) reloadState() {
	state, err := loadState(s.databaseContext, s.stores, s.params)
	if err != nil {
		panics.Fatal(log, "Failed to reload the state from the database: %s", err)
	}
	s.engineState = state
}

// commit flushes stagingArea to the database in a single transaction
func (s *consensus) commit(stagingArea *model.StagingArea) error {
	dbTx, err := s.databaseContext.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = stagingArea.Commit(dbTx)
	if err != nil {
		return err
	}
	return dbTx.Commit()
}

// stageSnapshots stages the in-memory web of trust and fork tree
func (s *consensus) stageSnapshots(stagingArea *model.StagingArea) {
	s.wotGraphStore.Stage(stagingArea, s.graph)
	s.forkTreeStore.Stage(stagingArea, s.forkTree)
}
