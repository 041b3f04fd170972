package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/syncpipeline"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/sasha-s/go-deadlock"
)

// Factory instantiates new Consensuses
type Factory interface {
	NewConsensus(params *dubpconfig.CurrencyParameters, databaseContext model.DBManager) (Consensus, error)
	NewSyncPipeline(params *dubpconfig.CurrencyParameters, databaseContext model.DBManager,
		chunkSize int) (*syncpipeline.Pipeline, error)
}

type factory struct{}

// NewFactory creates a new Consensus factory
func NewFactory() Factory {
	return &factory{}
}

// NewConsensus instantiates a new Consensus over the stores of the
// currency defined by params
func (f *factory) NewConsensus(params *dubpconfig.CurrencyParameters,
	databaseContext model.DBManager) (Consensus, error) {

	err := params.Validate()
	if err != nil {
		return nil, err
	}

	// Data Structures
	stores := newStores(params)

	// Processes
	ledger := stores.newLedger(databaseContext, params)
	requestExecutor := stores.newRequestExecutor(databaseContext, params, ledger)

	state, err := loadState(databaseContext, stores, params)
	if err != nil {
		return nil, err
	}

	c := &consensus{
		lock:            &deadlock.Mutex{},
		databaseContext: databaseContext,
		params:          params,

		stores:      stores,
		engineState: state,

		ledger:          ledger,
		requestExecutor: requestExecutor,

		orphans:       make(map[externalapi.Hash][]*externalapi.BlockDocument),
		invalidBlocks: make(map[externalapi.Blockstamp]struct{}),
	}
	c.recordStateMetrics()
	return c, nil
}

// NewSyncPipeline instantiates a bulk synchronization pipeline that
// appends blocks to the stores of the currency defined by params
func (f *factory) NewSyncPipeline(params *dubpconfig.CurrencyParameters, databaseContext model.DBManager,
	chunkSize int) (*syncpipeline.Pipeline, error) {

	err := params.Validate()
	if err != nil {
		return nil, err
	}

	stores := newStores(params)
	ledger := stores.newLedger(databaseContext, params)
	requestExecutor := stores.newRequestExecutor(databaseContext, params, ledger)

	state, err := loadState(databaseContext, stores, params)
	if err != nil {
		return nil, err
	}

	return syncpipeline.New(
		databaseContext,
		params,
		chunkSize,
		requestExecutor,
		stores.blockStore,
		stores.certificationExpiryStore,
		stores.metadataStore,
		stores.wotGraphStore,
		stores.forkTreeStore,
		state.graph,
		state.index,
		state.forkTree), nil
}
