package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/blockapplicator"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/infrastructure/metrics"
	"github.com/pkg/errors"
)

func (s *consensus) RevertCurrentBlock() error {
	s.lock.Lock()
	defer s.lock.Unlock()

	onEnd := logger.LogAndMeasureExecutionTime(log, "RevertCurrentBlock")
	defer onEnd()

	current, ok := s.forkTree.CurrentBlockstamp()
	if !ok {
		return errors.New("there is no block to revert")
	}
	if current.Number == 0 {
		return errors.New("the genesis block cannot be reverted")
	}

	stagingArea := model.NewStagingArea()
	dalBlock, err := s.blockStore.Block(s.databaseContext, stagingArea, current.Number)
	if err != nil {
		return err
	}
	parent := dalBlock.Block.PreviousBlockstamp()
	if _, ok := s.forkTree.FindNodeWithBlockstamp(parent); !ok {
		return errors.Errorf("block %s cannot be reverted: its parent is out of the fork window", current)
	}

	err = s.revertMainBlock(stagingArea, dalBlock)
	if err == nil {
		var removed []externalapi.Blockstamp
		removed, err = s.forkTree.ChangeMainBranch(current, parent)
		if err == nil {
			s.deleteForkBlocks(stagingArea, removed)
			s.stageSnapshots(stagingArea)
			err = s.commit(stagingArea)
		}
	}
	if err != nil {
		s.reloadState()
		return err
	}

	metrics.RecordRevertedBlocks(1)
	s.recordStateMetrics()
	log.Infof("Reverted block %s", current)
	return nil
}

// revertMainBlock reverts dalBlock, the head of the main branch, on the
// in-memory web of trust and in the stores. The fork tree is left
// untouched. On error, the in-memory state must be reloaded.
func (s *consensus) revertMainBlock(stagingArea *model.StagingArea, dalBlock *model.DALBlock) error {
	requests, err := blockapplicator.RevertBlock(dalBlock, s.index, s.graph,
		&transactionGetter{consensus: s, stagingArea: stagingArea})
	if err != nil {
		return err
	}
	return s.requestExecutor.ExecuteAll(stagingArea, requests)
}

// refork replaces the main branch, from its block following the fork
// point up to current, with branch. Every change happens in a single
// staging area, so that a failure leaves the committed state on the old
// main branch.
func (s *consensus) refork(current externalapi.Blockstamp, branch []externalapi.Blockstamp,
	incoming externalapi.Blockstamp) (BlockStatus, error) {

	onEnd := logger.LogAndMeasureExecutionTime(log, "refork")
	defer onEnd()

	forkPoint := branch[0].Number - 1
	newTip := branch[len(branch)-1]
	log.Infof("Switching the main branch from %s to %s, forking after block %d", current, newTip, forkPoint)

	stagingArea := model.NewStagingArea()
	revertedCount := 0
	for number := current.Number; number > forkPoint; number-- {
		dalBlock, err := s.blockStore.Block(s.databaseContext, stagingArea, number)
		if err != nil {
			s.reloadState()
			return StatusInvalid, err
		}
		err = s.revertMainBlock(stagingArea, dalBlock)
		if err != nil {
			s.reloadState()
			return StatusInvalid, errors.Wrapf(err, "failed to revert block %s", dalBlock.Blockstamp())
		}
		revertedCount++
	}

	for _, blockstamp := range branch {
		dalBlock, err := s.forkBlockStore.Block(s.databaseContext, stagingArea, blockstamp)
		if err == nil {
			err = s.applyBlock(stagingArea, dalBlock.Block)
		}
		if err != nil {
			s.reloadState()
			if !ruleerrors.IsRuleError(err) {
				return StatusInvalid, err
			}
			s.invalidBlocks[blockstamp] = struct{}{}
			if blockstamp == incoming {
				log.Warnf("Rejected block %s: %s", blockstamp, err)
				return StatusInvalid, err
			}
			log.Warnf("Branch %s was not switched to: block %s is invalid: %s", newTip, blockstamp, err)
			return StatusFork, nil
		}
	}

	removed, err := s.forkTree.ChangeMainBranch(current, newTip)
	if err != nil {
		s.reloadState()
		return StatusInvalid, err
	}
	s.deleteForkBlocks(stagingArea, removed)
	s.stageSnapshots(stagingArea)
	err = s.commit(stagingArea)
	if err != nil {
		s.reloadState()
		return StatusInvalid, err
	}

	metrics.RecordRefork()
	metrics.RecordRevertedBlocks(revertedCount)
	log.Infof("Main branch switched to %s: reverted %d blocks, applied %d blocks",
		newTip, revertedCount, len(branch))
	return StatusReforked, nil
}
