package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/blockapplicator"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
)

// applyMainBlock applies block on top of the main branch. On error, the
// in-memory state must be reloaded.
func (s *consensus) applyMainBlock(stagingArea *model.StagingArea, block *externalapi.BlockDocument) error {
	err := s.applyBlock(stagingArea, block)
	if err != nil {
		return err
	}

	removed, err := s.forkTree.InsertMainBranchNode(block.Blockstamp())
	if err != nil {
		return err
	}
	s.deleteForkBlocks(stagingArea, removed)
	return nil
}

// applyBlock applies the web of trust and ledger effects of block and
// stages it as the head of the main branch, without touching the fork
// tree
func (s *consensus) applyBlock(stagingArea *model.StagingArea, block *externalapi.BlockDocument) error {
	expireCerts, err := s.expiringCertifications(stagingArea, block)
	if err != nil {
		return err
	}
	requests, err := blockapplicator.ApplyBlock(block, s.index, s.graph, expireCerts)
	if err != nil {
		return err
	}
	return s.requestExecutor.ExecuteAll(stagingArea, requests)
}

// expiringCertifications returns the certifications that expire when
// block is applied, mapped to the block they were written in
func (s *consensus) expiringCertifications(stagingArea *model.StagingArea,
	block *externalapi.BlockDocument) (map[model.CertLink]externalapi.BlockNumber, error) {

	blockNumbers, err := s.certificationExpiryStore.BlockNumbers(s.databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}

	expireCerts := make(map[model.CertLink]externalapi.BlockNumber)
	for _, createdIn := range blockNumbers {
		if createdIn >= block.Number {
			break
		}
		created, err := s.blockStore.Block(s.databaseContext, stagingArea, createdIn)
		if err != nil {
			return nil, errors.Wrapf(err, "failed to load block %d", createdIn)
		}
		// Median times never decrease along the main branch
		if created.Block.MedianTime+s.params.SigValidity > block.MedianTime {
			break
		}
		links, err := s.certificationExpiryStore.Links(s.databaseContext, stagingArea, createdIn)
		if err != nil {
			return nil, err
		}
		for _, link := range links {
			expireCerts[link] = createdIn
		}
	}
	if len(expireCerts) > 0 {
		log.Debugf("%d certifications expire in block %s", len(expireCerts), block.Blockstamp())
	}
	return expireCerts, nil
}

func (s *consensus) deleteForkBlocks(stagingArea *model.StagingArea, blockstamps []externalapi.Blockstamp) {
	for _, blockstamp := range blockstamps {
		s.forkBlockStore.Delete(stagingArea, blockstamp)
	}
}

// block returns a block of the fork tree, whether it is on the main
// branch or not
func (s *consensus) block(stagingArea *model.StagingArea, blockstamp externalapi.Blockstamp) (*model.DALBlock, error) {
	if mainBlockstamp, ok := s.forkTree.MainBranchBlockstamp(blockstamp.Number); ok && mainBlockstamp == blockstamp {
		return s.blockStore.Block(s.databaseContext, stagingArea, blockstamp.Number)
	}
	return s.forkBlockStore.Block(s.databaseContext, stagingArea, blockstamp)
}

type medianTimeSource struct {
	consensus   *consensus
	stagingArea *model.StagingArea
}

func (mts *medianTimeSource) MedianTime(blockstamp externalapi.Blockstamp) (uint64, error) {
	dalBlock, err := mts.consensus.block(mts.stagingArea, blockstamp)
	if err != nil {
		return 0, errors.Wrapf(err, "failed to load block %s", blockstamp)
	}
	return dalBlock.Block.MedianTime, nil
}

type transactionGetter struct {
	consensus   *consensus
	stagingArea *model.StagingArea
}

func (tg *transactionGetter) TransactionDocument(txHash externalapi.Hash) (*externalapi.TransactionDocument, error) {
	record, err := tg.consensus.transactionStore.Transaction(tg.consensus.databaseContext, tg.stagingArea, txHash)
	if err != nil {
		if database.IsNotFoundError(err) {
			return nil, errors.Wrapf(ruleerrors.ErrMissingTransaction, "transaction %s", txHash)
		}
		return nil, err
	}
	return record.Transaction, nil
}
