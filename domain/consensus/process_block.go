package consensus

import (
	"time"

	"github.com/davecgh/go-spew/spew"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/forktree"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/infrastructure/metrics"
	"github.com/pkg/errors"
)

func (s *consensus) ProcessBlock(block *externalapi.BlockDocument) (BlockStatus, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	onEnd := logger.LogAndMeasureExecutionTime(log, "ProcessBlock")
	defer onEnd()
	log.Tracef("Processing block %s", logger.NewLogClosure(func() string {
		return spew.Sdump(block)
	}))

	status, err := s.processBlock(block)
	metrics.RecordBlock(status.String())
	if err == nil && status.extendsTree() {
		err = s.processOrphans(block.Blockstamp())
	}
	s.pruneOrphans()
	s.recordStateMetrics()
	return status, err
}

func (s *consensus) processBlock(block *externalapi.BlockDocument) (BlockStatus, error) {
	blockstamp := block.Blockstamp()
	if s.isKnownInvalid(block) {
		s.invalidBlocks[blockstamp] = struct{}{}
		return StatusInvalid, errors.Wrapf(ruleerrors.ErrKnownInvalid, "block %s", blockstamp)
	}
	if _, ok := s.forkTree.FindNodeWithBlockstamp(blockstamp); ok || s.isOrphan(block) {
		log.Debugf("Block %s is already known", blockstamp)
		return StatusDuplicate, nil
	}

	current, hasCurrent := s.forkTree.CurrentBlockstamp()
	if !hasCurrent {
		if block.Number != 0 {
			s.addOrphan(block)
			return StatusOrphan, nil
		}
		return s.processMainBlock(block)
	}
	if block.Number == current.Number+1 && block.PreviousHash == current.Hash {
		return s.processMainBlock(block)
	}
	return s.processForkBlock(block, current)
}

func (s *consensus) isKnownInvalid(block *externalapi.BlockDocument) bool {
	if _, ok := s.invalidBlocks[block.Blockstamp()]; ok {
		return true
	}
	if block.Number == 0 {
		return false
	}
	_, ok := s.invalidBlocks[block.PreviousBlockstamp()]
	return ok
}

// processMainBlock applies block on top of the main branch
func (s *consensus) processMainBlock(block *externalapi.BlockDocument) (BlockStatus, error) {
	blockstamp := block.Blockstamp()
	start := time.Now()

	stagingArea := model.NewStagingArea()
	err := s.applyMainBlock(stagingArea, block)
	if err == nil {
		s.stageSnapshots(stagingArea)
		err = s.commit(stagingArea)
	}
	if err != nil {
		s.reloadState()
		if ruleerrors.IsRuleError(err) {
			log.Warnf("Rejected block %s: %s", blockstamp, err)
			s.invalidBlocks[blockstamp] = struct{}{}
		}
		return StatusInvalid, err
	}

	metrics.ObserveBlockApplyDuration(time.Since(start))
	log.Infof("Applied block %s", blockstamp)
	return StatusApplied, nil
}

// processForkBlock attaches block to the fork tree, and switches the main
// branch if the branch of block wins
func (s *consensus) processForkBlock(block *externalapi.BlockDocument,
	current externalapi.Blockstamp) (BlockStatus, error) {

	blockstamp := block.Blockstamp()
	inserted, err := s.forkTree.InsertForkNode(blockstamp, block.PreviousHash)
	if err != nil {
		return StatusInvalid, err
	}
	if !inserted {
		s.addOrphan(block)
		return StatusOrphan, nil
	}

	stagingArea := model.NewStagingArea()
	s.forkBlockStore.Stage(stagingArea, &model.DALBlock{Block: block, IsFork: true})
	s.forkTreeStore.Stage(stagingArea, s.forkTree)
	err = s.commit(stagingArea)
	if err != nil {
		s.reloadState()
		return StatusInvalid, err
	}
	log.Infof("Block %s was added to a fork", blockstamp)

	branch, err := forktree.ResolveFork(s.forkTree, current, s.invalidBlocks,
		&medianTimeSource{consensus: s, stagingArea: model.NewStagingArea()}, s.params)
	if err != nil {
		return StatusInvalid, err
	}
	if branch == nil {
		return StatusFork, nil
	}
	return s.refork(current, branch, blockstamp)
}

// processOrphans processes the buffered descendants of parent, breadth
// first
func (s *consensus) processOrphans(parent externalapi.Blockstamp) error {
	queue := []externalapi.Blockstamp{parent}
	for len(queue) > 0 {
		parent := queue[0]
		queue = queue[1:]

		children := s.orphans[parent.Hash]
		delete(s.orphans, parent.Hash)
		for _, child := range children {
			if child.Number != parent.Number+1 {
				continue
			}
			status, err := s.processBlock(child)
			metrics.RecordBlock(status.String())
			if err != nil {
				if !ruleerrors.IsRuleError(err) {
					return err
				}
				log.Warnf("Orphan block %s was rejected: %s", child.Blockstamp(), err)
				continue
			}
			log.Debugf("Orphan block %s was processed with status %s", child.Blockstamp(), status)
			if status.extendsTree() {
				queue = append(queue, child.Blockstamp())
			}
		}
	}
	return nil
}

func (s *consensus) addOrphan(block *externalapi.BlockDocument) {
	log.Debugf("Block %s is an orphan", block.Blockstamp())
	s.orphans[block.PreviousHash] = append(s.orphans[block.PreviousHash], block)
}

func (s *consensus) isOrphan(block *externalapi.BlockDocument) bool {
	for _, orphan := range s.orphans[block.PreviousHash] {
		if orphan.Blockstamp() == block.Blockstamp() {
			return true
		}
	}
	return false
}

// pruneOrphans drops the orphans that can no longer be attached to the
// fork tree
func (s *consensus) pruneOrphans() {
	current, ok := s.forkTree.CurrentBlockstamp()
	if !ok {
		return
	}
	windowSize := uint64(s.params.ForkWindowSize)
	for previousHash, blocks := range s.orphans {
		kept := blocks[:0]
		for _, block := range blocks {
			if uint64(block.Number)+windowSize <= uint64(current.Number) {
				log.Debugf("Dropping orphan block %s", block.Blockstamp())
				continue
			}
			kept = append(kept, block)
		}
		if len(kept) == 0 {
			delete(s.orphans, previousHash)
			continue
		}
		s.orphans[previousHash] = kept
	}
}

func (s *consensus) orphanCount() int {
	count := 0
	for _, blocks := range s.orphans {
		count += len(blocks)
	}
	return count
}

func (s *consensus) recordStateMetrics() {
	metrics.SetWoTSize(s.graph.Size(), len(s.graph.Enabled()))
	metrics.SetOrphanCount(s.orphanCount())
	if current, ok := s.forkTree.CurrentBlockstamp(); ok {
		metrics.SetCurrentBlockNumber(uint32(current.Number))
	}
}
