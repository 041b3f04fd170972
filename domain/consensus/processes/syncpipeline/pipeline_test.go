package syncpipeline_test

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/syncpipeline"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/testutils"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/wot"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/require"
)

func testParams() *dubpconfig.CurrencyParameters {
	params := dubpconfig.G1TestParams
	params.Name = "test"
	params.ForkWindowSize = 5
	params.SigValidity = 1500
	return &params
}

// testChain returns a chain of count blocks where three members join in
// the genesis block, certify each other in block 1, receive a dividend
// every 4 blocks and see their certifications expire in block 6
func testChain(count int) []*externalapi.BlockDocument {
	pubKeys := []externalapi.PubKey{"alice", "bob", "carol"}
	dividend := uint64(100)
	blocks := make([]*externalapi.BlockDocument, count)
	for i := range blocks {
		number := externalapi.BlockNumber(i)
		block := &externalapi.BlockDocument{
			Number:     number,
			Hash:       externalapi.Hash{byte(number), 0xaa},
			MedianTime: 1000 + uint64(number)*300,
		}
		if i > 0 {
			block.PreviousHash = blocks[i-1].Hash
		}
		switch {
		case i == 0:
			for _, pubKey := range pubKeys {
				block.Identities = append(block.Identities, &externalapi.IdentityDocument{Issuer: pubKey, Username: string(pubKey)})
				block.Joiners = append(block.Joiners, &externalapi.MembershipDocument{Issuer: pubKey, Username: string(pubKey)})
			}
		case i == 1:
			for j, issuer := range pubKeys {
				block.Certifications = append(block.Certifications, &externalapi.CertificationDocument{
					Issuer: issuer,
					Target: pubKeys[(j+1)%len(pubKeys)],
				})
			}
		case i%4 == 0:
			block.Dividend = &dividend
		}
		blocks[i] = block
	}
	return blocks
}

func TestSyncMatchesBlockProcessing(t *testing.T) {
	blocks := testChain(20)

	processedDB, teardownProcessed := testutils.PrepareDBForTest(t, "TestSyncMatchesBlockProcessing-processed")
	defer teardownProcessed()
	processed, err := consensus.NewFactory().NewConsensus(testParams(), processedDB)
	require.NoError(t, err)
	for _, block := range blocks {
		status, err := processed.ProcessBlock(block)
		require.NoError(t, err)
		require.Equal(t, consensus.StatusApplied, status)
	}

	syncedDB, teardownSynced := testutils.PrepareDBForTest(t, "TestSyncMatchesBlockProcessing-synced")
	defer teardownSynced()
	pipeline, err := consensus.NewFactory().NewSyncPipeline(testParams(), syncedDB, 3)
	require.NoError(t, err)
	applied, err := pipeline.Run(context.Background(), syncpipeline.NewSliceBlockSource(blocks))
	require.NoError(t, err)
	require.Equal(t, len(blocks), applied)

	synced, err := consensus.NewFactory().NewConsensus(testParams(), syncedDB)
	require.NoError(t, err)

	current, ok := synced.CurrentBlockstamp()
	require.True(t, ok)
	require.Equal(t, blocks[len(blocks)-1].Blockstamp(), current)
	require.True(t, wot.Equal(processed.WoT(), synced.WoT()))
	sources, _ := synced.WoT().LinksSource(1)
	require.Empty(t, sources, "certifications written in block 1 expire in block 6")

	for _, pubKey := range []externalapi.PubKey{"alice", "bob", "carol"} {
		expected, err := processed.Identity(pubKey)
		require.NoError(t, err)
		actual, err := synced.Identity(pubKey)
		require.NoError(t, err)
		require.True(t, expected.Equal(actual), "identity %s differs", pubKey)

		balance, err := synced.Balance(externalapi.SigCondition(pubKey))
		require.NoError(t, err)
		require.Equal(t, uint64(400), balance.Amount)
	}
	expectedCommitment, err := processed.UTXOCommitment()
	require.NoError(t, err)
	actualCommitment, err := synced.UTXOCommitment()
	require.NoError(t, err)
	require.Equal(t, expectedCommitment.String(), actualCommitment.String())

	// The synchronized stores accept the following blocks
	next := &externalapi.BlockDocument{
		Number:       current.Number + 1,
		Hash:         externalapi.Hash{0xff},
		PreviousHash: current.Hash,
		MedianTime:   blocks[len(blocks)-1].MedianTime + 300,
	}
	status, err := synced.ProcessBlock(next)
	require.NoError(t, err)
	require.Equal(t, consensus.StatusApplied, status)
	require.NoError(t, synced.RevertCurrentBlock())
}

type cancellingBlockSource struct {
	syncpipeline.BlockSource
	cancel      context.CancelFunc
	cancelAfter int
	served      int
}

func (cbs *cancellingBlockSource) Next(ctx context.Context) (*externalapi.BlockDocument, error) {
	if cbs.served == cbs.cancelAfter {
		cbs.cancel()
	}
	cbs.served++
	return cbs.BlockSource.Next(ctx)
}

func TestInterruptedSyncIsDetected(t *testing.T) {
	db, teardown := testutils.PrepareDBForTest(t, "TestInterruptedSyncIsDetected")
	defer teardown()

	pipeline, err := consensus.NewFactory().NewSyncPipeline(testParams(), db, 2)
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	source := &cancellingBlockSource{
		BlockSource: syncpipeline.NewSliceBlockSource(testChain(10)),
		cancel:      cancel,
		cancelAfter: 5,
	}
	applied, err := pipeline.Run(ctx, source)
	require.True(t, errors.Is(err, context.Canceled), "unexpected error %v", err)
	require.Equal(t, 5, applied)

	_, err = consensus.NewFactory().NewConsensus(testParams(), db)
	require.True(t, errors.Is(err, consensus.ErrSyncInterrupted), "unexpected error %v", err)
}

func TestSyncRejectsDisconnectedBlocks(t *testing.T) {
	db, teardown := testutils.PrepareDBForTest(t, "TestSyncRejectsDisconnectedBlocks")
	defer teardown()

	blocks := testChain(4)
	blocks[2].PreviousHash = externalapi.Hash{0x12}
	pipeline, err := consensus.NewFactory().NewSyncPipeline(testParams(), db, 10)
	require.NoError(t, err)
	applied, err := pipeline.Run(context.Background(), syncpipeline.NewSliceBlockSource(blocks))
	require.Error(t, err)
	require.Equal(t, 2, applied)
}

func TestYAMLBlockSource(t *testing.T) {
	const stream = `
number: 0
hash: "0100000000000000000000000000000000000000000000000000000000000000"
medianTime: 1000
identities:
  - issuer: alice
    username: alice
joiners:
  - issuer: alice
    username: alice
---
number: 1
hash: "0200000000000000000000000000000000000000000000000000000000000000"
previousHash: "0100000000000000000000000000000000000000000000000000000000000000"
medianTime: 1300
dividend: 100
`
	source := syncpipeline.NewYAMLBlockSource(strings.NewReader(stream))
	genesis, err := source.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, externalapi.BlockNumber(0), genesis.Number)
	require.Len(t, genesis.Joiners, 1)
	require.Equal(t, externalapi.PubKey("alice"), genesis.Identities[0].Issuer)

	block1, err := source.Next(context.Background())
	require.NoError(t, err)
	require.Equal(t, genesis.Hash, block1.PreviousHash)
	require.Equal(t, uint64(100), *block1.Dividend)

	db, teardown := testutils.PrepareDBForTest(t, "TestYAMLBlockSource")
	defer teardown()
	pipeline, err := consensus.NewFactory().NewSyncPipeline(testParams(), db, 10)
	require.NoError(t, err)
	applied, err := pipeline.Run(context.Background(),
		syncpipeline.NewSliceBlockSource([]*externalapi.BlockDocument{genesis, block1}))
	require.NoError(t, err)
	require.Equal(t, 2, applied)

	_, err = source.Next(context.Background())
	require.ErrorIs(t, err, io.EOF)
}
