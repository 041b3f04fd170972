package consensus

import (
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/testutils"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/wot"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

const (
	alice externalapi.PubKey = "alice"
	bob   externalapi.PubKey = "bob"
	carol externalapi.PubKey = "carol"
	dave  externalapi.PubKey = "dave"
)

func testParams() *dubpconfig.CurrencyParameters {
	params := dubpconfig.G1TestParams
	params.Name = "test"
	params.ForkWindowSize = 10
	params.SigValidity = 3000
	return &params
}

func setupConsensus(t *testing.T, testName string) (Consensus, model.DBManager, func()) {
	db, teardown := testutils.PrepareDBForTest(t, testName)
	consensus, err := NewFactory().NewConsensus(testParams(), db)
	require.NoError(t, err)
	return consensus, db, teardown
}

func genesis(newcomers ...externalapi.PubKey) *externalapi.BlockDocument {
	block := &externalapi.BlockDocument{MedianTime: 1000}
	return withNewcomers(block, newcomers...)
}

// nextBlock returns an empty child of parent. branch tells apart the
// hashes of competing blocks of the same number.
func nextBlock(parent *externalapi.BlockDocument, branch byte) *externalapi.BlockDocument {
	number := parent.Number + 1
	return &externalapi.BlockDocument{
		Number:       number,
		Hash:         externalapi.Hash{byte(number), branch},
		PreviousHash: parent.Hash,
		MedianTime:   parent.MedianTime + 300,
	}
}

func withNewcomers(block *externalapi.BlockDocument, pubKeys ...externalapi.PubKey) *externalapi.BlockDocument {
	for _, pubKey := range pubKeys {
		block.Identities = append(block.Identities, &externalapi.IdentityDocument{
			Issuer:   pubKey,
			Username: string(pubKey),
		})
		block.Joiners = append(block.Joiners, &externalapi.MembershipDocument{
			Issuer:     pubKey,
			Username:   string(pubKey),
			Blockstamp: externalapi.Blockstamp{Number: block.Number},
		})
	}
	return block
}

func withCertification(block *externalapi.BlockDocument, issuer, target externalapi.PubKey) *externalapi.BlockDocument {
	block.Certifications = append(block.Certifications, &externalapi.CertificationDocument{
		Issuer:              issuer,
		Target:              target,
		SignedOnBlockNumber: block.Number,
	})
	return block
}

func withTransaction(block *externalapi.BlockDocument, tx *externalapi.TransactionDocument) *externalapi.BlockDocument {
	block.Transactions = append(block.Transactions, &externalapi.TxDocOrHash{Document: tx})
	return block
}

func processBlocks(t *testing.T, consensus Consensus, expectedStatus BlockStatus, blocks ...*externalapi.BlockDocument) {
	for _, block := range blocks {
		status, err := consensus.ProcessBlock(block)
		require.NoError(t, err, "block %s", block.Blockstamp())
		require.Equal(t, expectedStatus, status, "block %s", block.Blockstamp())
	}
}

func requireCurrent(t *testing.T, consensus Consensus, expected *externalapi.BlockDocument) {
	current, ok := consensus.CurrentBlockstamp()
	require.True(t, ok)
	require.Equal(t, expected.Blockstamp(), current)
}

func balanceAmount(t *testing.T, consensus Consensus, pubKey externalapi.PubKey) uint64 {
	balance, err := consensus.Balance(externalapi.SigCondition(pubKey))
	require.NoError(t, err)
	return balance.Amount
}

type stateSnapshot struct {
	graph      model.WebOfTrust
	identities map[externalapi.PubKey]*model.Identity
	balances   map[externalapi.PubKey]*externalapi.Balance
	commitment string
}

func takeSnapshot(t *testing.T, consensus Consensus, pubKeys ...externalapi.PubKey) *stateSnapshot {
	snapshot := &stateSnapshot{
		graph:      consensus.WoT(),
		identities: make(map[externalapi.PubKey]*model.Identity),
		balances:   make(map[externalapi.PubKey]*externalapi.Balance),
	}
	for _, pubKey := range pubKeys {
		idty, err := consensus.Identity(pubKey)
		if err == nil {
			snapshot.identities[pubKey] = idty
		}
		balance, err := consensus.Balance(externalapi.SigCondition(pubKey))
		require.NoError(t, err)
		snapshot.balances[pubKey] = balance
	}
	commitment, err := consensus.UTXOCommitment()
	require.NoError(t, err)
	snapshot.commitment = commitment.String()
	return snapshot
}

func requireSameState(t *testing.T, expected, actual *stateSnapshot) {
	require.True(t, wot.Equal(expected.graph, actual.graph), "the web of trust differs")
	require.Len(t, actual.identities, len(expected.identities))
	for pubKey, idty := range expected.identities {
		require.True(t, idty.Equal(actual.identities[pubKey]), "identity %s differs: %+v != %+v",
			pubKey, idty, actual.identities[pubKey])
	}
	for pubKey, balance := range expected.balances {
		require.True(t, balance.Equal(actual.balances[pubKey]), "balance of %s differs", pubKey)
	}
	require.Equal(t, expected.commitment, actual.commitment)
}

func TestApplyThenRevertRestoresState(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestApplyThenRevertRestoresState")
	defer teardown()

	block0 := genesis(alice, bob, carol)
	processBlocks(t, consensus, StatusApplied, block0)
	initial := takeSnapshot(t, consensus, alice, bob, carol, dave)

	dividend := uint64(100)
	block1 := withCertification(withCertification(nextBlock(block0, 0), alice, bob), bob, carol)
	block1.Dividend = &dividend
	block2 := withTransaction(nextBlock(block1, 0), &externalapi.TransactionDocument{
		Hash:    externalapi.Hash{0xee},
		Issuers: []externalapi.PubKey{alice},
		Inputs: []*externalapi.TransactionInput{
			{Amount: 100, Source: externalapi.NewDividendSourceID(alice, 1)},
		},
		Outputs: []*externalapi.TransactionOutput{
			{Amount: 60, Condition: externalapi.SigCondition(dave)},
			{Amount: 40, Condition: externalapi.SigCondition(alice)},
		},
	})
	block3 := nextBlock(block2, 0)
	block3.Excluded = []externalapi.PubKey{carol}
	processBlocks(t, consensus, StatusApplied, block1, block2, block3)

	require.Equal(t, uint64(40), balanceAmount(t, consensus, alice))
	require.Equal(t, uint64(100), balanceAmount(t, consensus, bob))
	require.Equal(t, uint64(100), balanceAmount(t, consensus, carol))
	require.Equal(t, uint64(60), balanceAmount(t, consensus, dave))
	carolID, ok := consensus.NodeID(carol)
	require.True(t, ok)
	enabled, _ := consensus.WoT().IsEnabled(carolID)
	require.False(t, enabled)

	for i := 0; i < 3; i++ {
		require.NoError(t, consensus.RevertCurrentBlock())
	}
	requireCurrent(t, consensus, block0)
	requireSameState(t, initial, takeSnapshot(t, consensus, alice, bob, carol, dave))

	err := consensus.RevertCurrentBlock()
	require.Error(t, err, "the genesis block must not be revertable")

	// The reverted blocks are kept as forks, so they come back as duplicates
	status, err := consensus.ProcessBlock(block1)
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
}

func TestDividendDistribution(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestDividendDistribution")
	defer teardown()

	block0 := genesis(alice, bob, carol)
	processBlocks(t, consensus, StatusApplied, block0)

	dividend := uint64(100)
	block1 := nextBlock(block0, 0)
	block1.Dividend = &dividend
	processBlocks(t, consensus, StatusApplied, block1)

	for _, pubKey := range []externalapi.PubKey{alice, bob, carol} {
		utxos, err := consensus.UTXOs(externalapi.SigCondition(pubKey))
		require.NoError(t, err)
		require.Equal(t, []*externalapi.UTXO{{
			Source:    externalapi.NewDividendSourceID(pubKey, 1),
			Condition: externalapi.SigCondition(pubKey),
			Amount:    100,
		}}, utxos)
	}

	require.NoError(t, consensus.RevertCurrentBlock())
	for _, pubKey := range []externalapi.PubKey{alice, bob, carol} {
		require.Zero(t, balanceAmount(t, consensus, pubKey))
		utxos, err := consensus.UTXOs(externalapi.SigCondition(pubKey))
		require.NoError(t, err)
		require.Empty(t, utxos)
	}
}

func TestCertificationExpiry(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestCertificationExpiry")
	defer teardown()

	block0 := genesis(alice, bob)
	block1 := withCertification(nextBlock(block0, 0), alice, bob)
	processBlocks(t, consensus, StatusApplied, block0, block1)

	graph := consensus.WoT()
	issued, _ := graph.IssuedCount(0)
	require.Equal(t, 1, issued)
	sources, _ := graph.LinksSource(1)
	require.Equal(t, []model.NodeID{0}, sources)

	// The certification written at median time 1300 lives until 4300,
	// the median time of block 11
	parent := block1
	for number := 2; number <= 10; number++ {
		block := nextBlock(parent, 0)
		processBlocks(t, consensus, StatusApplied, block)
		parent = block
	}
	sources, _ = consensus.WoT().LinksSource(1)
	require.Equal(t, []model.NodeID{0}, sources)

	block11 := nextBlock(parent, 0)
	processBlocks(t, consensus, StatusApplied, block11)
	graph = consensus.WoT()
	sources, _ = graph.LinksSource(1)
	require.Empty(t, sources)
	issued, _ = graph.IssuedCount(0)
	require.Zero(t, issued)

	require.NoError(t, consensus.RevertCurrentBlock())
	sources, _ = consensus.WoT().LinksSource(1)
	require.Equal(t, []model.NodeID{0}, sources)

	stored, err := consensus.Block(10)
	require.NoError(t, err)
	require.Equal(t, parent.Blockstamp(), stored.Blockstamp())
}

// buildBranch returns count blocks extending parent on the given branch
func buildBranch(parent *externalapi.BlockDocument, branch byte, count int) []*externalapi.BlockDocument {
	blocks := make([]*externalapi.BlockDocument, count)
	for i := range blocks {
		blocks[i] = nextBlock(parent, branch)
		parent = blocks[i]
	}
	return blocks
}

func TestRefork(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestRefork")
	defer teardown()

	block0 := genesis(alice, bob)
	main := buildBranch(block0, 0, 4)
	withCertification(main[2], alice, bob)
	processBlocks(t, consensus, StatusApplied, block0)
	processBlocks(t, consensus, StatusApplied, main...)
	requireCurrent(t, consensus, main[3])

	// A branch forking after block 2 must lead by 3 blocks and 900 seconds
	fork := buildBranch(main[1], 1, 5)
	withNewcomers(fork[0], dave)
	processBlocks(t, consensus, StatusFork, fork[:4]...)
	requireCurrent(t, consensus, main[3])
	_, ok := consensus.NodeID(dave)
	require.False(t, ok)

	status, err := consensus.ProcessBlock(fork[4])
	require.NoError(t, err)
	require.Equal(t, StatusReforked, status)
	requireCurrent(t, consensus, fork[4])

	_, ok = consensus.NodeID(dave)
	require.True(t, ok)
	sources, _ := consensus.WoT().LinksSource(1)
	require.Empty(t, sources, "the certification of the abandoned branch must be reverted")
	stored, err := consensus.Block(3)
	require.NoError(t, err)
	require.Equal(t, fork[0].Blockstamp(), stored.Blockstamp())

	// The abandoned blocks stay in the fork tree
	status, err = consensus.ProcessBlock(main[3])
	require.NoError(t, err)
	require.Equal(t, StatusDuplicate, status)
}

func TestReforkToInvalidBranch(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestReforkToInvalidBranch")
	defer teardown()

	block0 := genesis(alice, bob)
	main := buildBranch(block0, 0, 4)
	processBlocks(t, consensus, StatusApplied, block0)
	processBlocks(t, consensus, StatusApplied, main...)
	before := takeSnapshot(t, consensus, alice, bob)

	fork := buildBranch(main[1], 1, 6)
	withTransaction(fork[2], &externalapi.TransactionDocument{
		Hash: externalapi.Hash{0xdd},
		Inputs: []*externalapi.TransactionInput{
			{Amount: 100, Source: externalapi.NewDividendSourceID(alice, 3)},
		},
		Outputs: []*externalapi.TransactionOutput{
			{Amount: 100, Condition: externalapi.SigCondition(bob)},
		},
	})
	processBlocks(t, consensus, StatusFork, fork[:5]...)
	requireCurrent(t, consensus, main[3])
	requireSameState(t, before, takeSnapshot(t, consensus, alice, bob))

	// The branch holding the invalid block is not considered anymore
	processBlocks(t, consensus, StatusFork, fork[5])
	requireCurrent(t, consensus, main[3])

	status, err := consensus.ProcessBlock(nextBlock(fork[2], 2))
	require.True(t, errors.Is(err, ruleerrors.ErrKnownInvalid), "unexpected error %v", err)
	require.Equal(t, StatusInvalid, status)
}

func TestOrphans(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestOrphans")
	defer teardown()

	block0 := genesis(alice)
	blocks := buildBranch(block0, 0, 3)
	processBlocks(t, consensus, StatusOrphan, blocks[1])
	processBlocks(t, consensus, StatusApplied, block0)
	processBlocks(t, consensus, StatusOrphan, blocks[2])
	processBlocks(t, consensus, StatusDuplicate, blocks[2])
	_, ok := consensus.CurrentBlockstamp()
	require.True(t, ok)
	requireCurrent(t, consensus, block0)

	processBlocks(t, consensus, StatusApplied, blocks[0])
	requireCurrent(t, consensus, blocks[2])
}

func TestInvalidBlocks(t *testing.T) {
	consensus, _, teardown := setupConsensus(t, "TestInvalidBlocks")
	defer teardown()

	block0 := genesis(alice, bob)
	processBlocks(t, consensus, StatusApplied, block0)
	before := takeSnapshot(t, consensus, alice, bob)

	invalid := withNewcomers(nextBlock(block0, 1), carol)
	invalid.Excluded = []externalapi.PubKey{"mallory"}
	status, err := consensus.ProcessBlock(invalid)
	require.True(t, errors.Is(err, ruleerrors.ErrExcludeUnknownNodeID), "unexpected error %v", err)
	require.Equal(t, StatusInvalid, status)
	requireCurrent(t, consensus, block0)
	requireSameState(t, before, takeSnapshot(t, consensus, alice, bob))
	_, ok := consensus.NodeID(carol)
	require.False(t, ok)

	status, err = consensus.ProcessBlock(invalid)
	require.True(t, errors.Is(err, ruleerrors.ErrKnownInvalid), "unexpected error %v", err)
	require.Equal(t, StatusInvalid, status)
	status, err = consensus.ProcessBlock(nextBlock(invalid, 1))
	require.True(t, errors.Is(err, ruleerrors.ErrKnownInvalid), "unexpected error %v", err)
	require.Equal(t, StatusInvalid, status)

	unbalanced := withTransaction(nextBlock(block0, 2), &externalapi.TransactionDocument{
		Hash: externalapi.Hash{0xcc},
		Inputs: []*externalapi.TransactionInput{
			{Amount: 100, Source: externalapi.NewDividendSourceID(alice, 0)},
		},
	})
	status, err = consensus.ProcessBlock(unbalanced)
	require.True(t, ruleerrors.IsRuleError(err), "unexpected error %v", err)
	require.Equal(t, StatusInvalid, status)
	requireSameState(t, before, takeSnapshot(t, consensus, alice, bob))

	valid := withCertification(nextBlock(block0, 0), alice, bob)
	processBlocks(t, consensus, StatusApplied, valid)
}

func TestStateIsReloadedFromDatabase(t *testing.T) {
	consensus, db, teardown := setupConsensus(t, "TestStateIsReloadedFromDatabase")
	defer teardown()

	block0 := genesis(alice, bob)
	block1 := withCertification(nextBlock(block0, 0), alice, bob)
	processBlocks(t, consensus, StatusApplied, block0, block1)
	before := takeSnapshot(t, consensus, alice, bob)

	reloaded, err := NewFactory().NewConsensus(testParams(), db)
	require.NoError(t, err)
	requireCurrent(t, reloaded, block1)
	requireSameState(t, before, takeSnapshot(t, reloaded, alice, bob))
	processBlocks(t, reloaded, StatusApplied, nextBlock(block1, 0))

	stores := newStores(testParams())
	stagingArea := model.NewStagingArea()
	stores.metadataStore.StageSyncInProgress(stagingArea, true)
	testutils.CommitStagingArea(t, db, stagingArea)
	_, err = NewFactory().NewConsensus(testParams(), db)
	require.True(t, errors.Is(err, ErrSyncInterrupted), "unexpected error %v", err)
}
