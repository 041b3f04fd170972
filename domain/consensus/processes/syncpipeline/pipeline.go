package syncpipeline

import (
	"context"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/forktreestore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/blockapplicator"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/requestexecutor"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/forktree"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/infrastructure/metrics"
	"github.com/pkg/errors"
)

const workerChannelSize = 256

// Pipeline appends a stream of trusted blocks to the stores.
//
// A single producer applies the blocks to the in-memory web of trust and
// executes their block requests, while the WoT and currency requests are
// executed by two workers, each in its own staging area. Every chunk of
// blocks ends with a flush, where both workers commit before the producer
// does. The stores are marked as being synchronized for the whole run,
// since their commits do not happen at once.
type Pipeline struct {
	databaseContext model.DBManager
	params          *dubpconfig.CurrencyParameters
	chunkSize       int

	requestExecutor          *requestexecutor.RequestExecutor
	blockStore               model.BlockStore
	certificationExpiryStore model.CertificationExpiryStore
	metadataStore            model.MetadataStore
	wotGraphStore            model.WoTGraphStore
	forkTreeStore            *forktreestore.ForkTreeStore

	graph    model.WebOfTrust
	index    *identity.Index
	forkTree *forktree.ForkTree
}

// New instantiates a new Pipeline continuing from the given state
func New(
	databaseContext model.DBManager,
	params *dubpconfig.CurrencyParameters,
	chunkSize int,
	requestExecutor *requestexecutor.RequestExecutor,
	blockStore model.BlockStore,
	certificationExpiryStore model.CertificationExpiryStore,
	metadataStore model.MetadataStore,
	wotGraphStore model.WoTGraphStore,
	forkTreeStore *forktreestore.ForkTreeStore,
	graph model.WebOfTrust,
	index *identity.Index,
	forkTree *forktree.ForkTree) *Pipeline {

	if chunkSize <= 0 {
		chunkSize = 1
	}
	return &Pipeline{
		databaseContext:          databaseContext,
		params:                   params,
		chunkSize:                chunkSize,
		requestExecutor:          requestExecutor,
		blockStore:               blockStore,
		certificationExpiryStore: certificationExpiryStore,
		metadataStore:            metadataStore,
		wotGraphStore:            wotGraphStore,
		forkTreeStore:            forkTreeStore,
		graph:                    graph,
		index:                    index,
		forkTree:                 forkTree,
	}
}

// Run applies every block of source and returns how many were applied.
// Cancelling ctx stops the run between two blocks, and leaves the stores
// marked as being synchronized.
func (p *Pipeline) Run(ctx context.Context, source BlockSource) (int, error) {
	onEnd := logger.LogAndMeasureExecutionTime(log, "Pipeline.Run")
	defer onEnd()

	tracker, err := p.loadExpiryTracker()
	if err != nil {
		return 0, err
	}

	stagingArea := model.NewStagingArea()
	p.metadataStore.StageSyncInProgress(stagingArea, true)
	err = commit(p.databaseContext, stagingArea)
	if err != nil {
		return 0, err
	}

	wotWorker := newWorker("wot", p.databaseContext, p.requestExecutor, workerChannelSize)
	currencyWorker := newWorker("currency", p.databaseContext, p.requestExecutor, workerChannelSize)
	wotWorker.start()
	currencyWorker.start()
	defer wotWorker.stop()
	defer currencyWorker.stop()

	flush := func(stagingArea *model.StagingArea) error {
		err := wotWorker.flush()
		if err != nil {
			return err
		}
		err = currencyWorker.flush()
		if err != nil {
			return err
		}
		return commit(p.databaseContext, stagingArea)
	}

	applied := 0
	stagingArea = model.NewStagingArea()
	for {
		if err := ctx.Err(); err != nil {
			log.Warnf("Synchronization interrupted after %d blocks", applied)
			return applied, err
		}
		block, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return applied, err
		}

		requests, err := p.applyBlock(stagingArea, block, tracker)
		if err != nil {
			return applied, err
		}
		wotWorker.send(wotRequests(requests))
		currencyWorker.send(currencyRequests(requests))

		applied++
		if applied%p.chunkSize == 0 {
			err := flush(stagingArea)
			if err != nil {
				return applied, err
			}
			metrics.RecordSyncedBlocks(p.chunkSize)
			current, _ := p.forkTree.CurrentBlockstamp()
			log.Infof("Synchronized %d blocks, current block is %s", applied, current)
			stagingArea = model.NewStagingArea()
		}
	}

	p.wotGraphStore.Stage(stagingArea, p.graph)
	p.forkTreeStore.Stage(stagingArea, p.forkTree)
	p.metadataStore.StageSyncInProgress(stagingArea, false)
	err = flush(stagingArea)
	if err != nil {
		return applied, err
	}
	metrics.RecordSyncedBlocks(applied % p.chunkSize)

	log.Infof("Synchronization done: applied %d blocks, the web of trust has %d identities "+
		"and %d active certifications", applied, p.graph.Size(), tracker.len())
	return applied, nil
}

// applyBlock applies block to the in-memory state and executes its block
// requests in stagingArea
func (p *Pipeline) applyBlock(stagingArea *model.StagingArea, block *externalapi.BlockDocument,
	tracker *expiryTracker) (*model.WriteRequests, error) {

	blockstamp := block.Blockstamp()
	err := p.checkExtendsCurrent(block)
	if err != nil {
		return nil, err
	}

	requests, err := blockapplicator.ApplyBlock(block, p.index, p.graph, tracker.popExpiring(block))
	if err != nil {
		return nil, errors.Wrapf(err, "failed to apply block %s", blockstamp)
	}
	tracker.recordCertifications(block, requests.WoT)

	for _, request := range requests.Block {
		err := p.requestExecutor.Execute(stagingArea, request)
		if err != nil {
			return nil, err
		}
	}
	_, err = p.forkTree.InsertMainBranchNode(blockstamp)
	if err != nil {
		return nil, err
	}
	return requests, nil
}

func (p *Pipeline) checkExtendsCurrent(block *externalapi.BlockDocument) error {
	current, hasCurrent := p.forkTree.CurrentBlockstamp()
	if !hasCurrent {
		if block.Number != 0 {
			return errors.Wrapf(ruleerrors.ErrUnexpectedPreviousBlock,
				"block %s cannot be applied on an empty chain", block.Blockstamp())
		}
		return nil
	}
	if block.Number != current.Number+1 || block.PreviousHash != current.Hash {
		return errors.Wrapf(ruleerrors.ErrUnexpectedPreviousBlock,
			"block %s does not extend block %s", block.Blockstamp(), current)
	}
	return nil
}

// loadExpiryTracker fills an expiry tracker with the certifications
// already in the stores
func (p *Pipeline) loadExpiryTracker() (*expiryTracker, error) {
	tracker := newExpiryTracker(p.params.SigValidity)
	stagingArea := model.NewStagingArea()
	blockNumbers, err := p.certificationExpiryStore.BlockNumbers(p.databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	for _, createdIn := range blockNumbers {
		links, err := p.certificationExpiryStore.Links(p.databaseContext, stagingArea, createdIn)
		if err != nil {
			return nil, err
		}
		created, err := p.blockStore.Block(p.databaseContext, stagingArea, createdIn)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load block %d", createdIn)
		}
		tracker.add(createdIn, created.Block.MedianTime, links)
	}
	return tracker, nil
}

func wotRequests(requests *model.WriteRequests) []model.WriteRequest {
	wotRequests := make([]model.WriteRequest, len(requests.WoT))
	for i, request := range requests.WoT {
		wotRequests[i] = request
	}
	return wotRequests
}

func currencyRequests(requests *model.WriteRequests) []model.WriteRequest {
	currencyRequests := make([]model.WriteRequest, len(requests.Currency))
	for i, request := range requests.Currency {
		currencyRequests[i] = request
	}
	return currencyRequests
}
