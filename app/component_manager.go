package app

import (
	"context"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"

	"github.com/duniter/duniter-rs-sub003/domain/consensus"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/syncpipeline"
	"github.com/duniter/duniter-rs-sub003/infrastructure/config"
	"github.com/duniter/duniter-rs-sub003/infrastructure/metrics"
)

const metricsShutdownTimeout = 5 * time.Second

// ComponentManager is a wrapper for all the node services
type ComponentManager struct {
	cfg           *config.Config
	consensus     consensus.Consensus
	metricsServer *metrics.Server

	started, shutdown int32
}

// NewComponentManager returns a new ComponentManager instance.
// Use Start() to begin all services within this ComponentManager
func NewComponentManager(cfg *config.Config, db model.DBManager) (*ComponentManager, error) {
	consensusInstance, err := consensus.NewFactory().NewConsensus(cfg.CurrencyParams, db)
	if err != nil {
		return nil, err
	}

	var metricsServer *metrics.Server
	if !cfg.DisableMetrics {
		metricsServer = metrics.NewServer(cfg.MetricsListen)
	}

	return &ComponentManager{
		cfg:           cfg,
		consensus:     consensusInstance,
		metricsServer: metricsServer,
	}, nil
}

// Consensus returns the consensus instance driven by the manager
func (a *ComponentManager) Consensus() consensus.Consensus {
	return a.consensus
}

// Start launches all the node services.
func (a *ComponentManager) Start() {
	// Already started?
	if atomic.AddInt32(&a.started, 1) != 1 {
		return
	}

	log.Trace("Starting duniter")

	if a.metricsServer != nil {
		a.metricsServer.Start()
	}
	if current, ok := a.consensus.CurrentBlockstamp(); ok {
		log.Infof("Current block is %s", current)
	} else {
		log.Infof("Waiting for the genesis block")
	}
}

// Stop gracefully shuts down all the node services.
func (a *ComponentManager) Stop() {
	// Make sure this only happens once.
	if atomic.AddInt32(&a.shutdown, 1) != 1 {
		log.Infof("Duniter is already in the process of shutting down")
		return
	}

	log.Warnf("Duniter shutting down")

	if a.metricsServer != nil {
		ctx, cancel := context.WithTimeout(context.Background(), metricsShutdownTimeout)
		defer cancel()
		err := a.metricsServer.Stop(ctx)
		if err != nil {
			log.Errorf("Error stopping the metrics server: %+v", err)
		}
	}
}

// ProcessBlocks submits every block of source to consensus, in order.
// Rejected blocks are logged and skipped. It returns the number of blocks
// read from source.
func (a *ComponentManager) ProcessBlocks(ctx context.Context, source syncpipeline.BlockSource) (int, error) {
	processed := 0
	for {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		block, err := source.Next(ctx)
		if errors.Is(err, io.EOF) {
			return processed, nil
		}
		if err != nil {
			return processed, err
		}
		processed++

		status, err := a.consensus.ProcessBlock(block)
		if err != nil {
			log.Warnf("Block %d-%s was rejected: %s", block.Number, block.Hash, err)
			continue
		}
		log.Debugf("Block %d-%s: %s", block.Number, block.Hash, status)
	}
}

func (a *ComponentManager) processBlockFile(ctx context.Context, path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	processed, err := a.ProcessBlocks(ctx, syncpipeline.NewYAMLBlockSource(file))
	if err != nil {
		return err
	}
	log.Infof("Processed %d blocks from %s", processed, path)
	return nil
}

// importBlocks synchronizes the blocks of the YAML stream at path in bulk.
// It must run before the consensus instance is created, since consensus
// loads its state from the stores at construction.
func importBlocks(ctx context.Context, cfg *config.Config, db model.DBManager) error {
	file, err := os.Open(cfg.Import)
	if err != nil {
		return errors.WithStack(err)
	}
	defer file.Close()

	pipeline, err := consensus.NewFactory().NewSyncPipeline(cfg.CurrencyParams, db, cfg.SyncChunkSize)
	if err != nil {
		return err
	}
	applied, err := pipeline.Run(ctx, syncpipeline.NewYAMLBlockSource(file))
	if err != nil {
		return errors.Wrapf(err, "bulk synchronization stopped after %d blocks", applied)
	}
	log.Infof("Synchronized %d blocks from %s", applied, cfg.Import)
	return nil
}
