package requestexecutor

import (
	"reflect"
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/balancestore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/blockstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/certexpirystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/dividendstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/forkblockstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/identitystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/metadatastore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/msexpirystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/transactionstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxocommitmentstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxostore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/ledger"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/testutils"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/duniter/duniter-rs-sub003/util/panics"
)

type testContext struct {
	db       model.DBManager
	executor *RequestExecutor
}

func setup(t *testing.T, testName string, params *dubpconfig.CurrencyParameters) (*testContext, func()) {
	db, teardown := testutils.PrepareDBForTest(t, testName)
	prefixBucket := database.MakeBucket(nil)
	currencyLedger := ledger.New(db,
		utxostore.New(prefixBucket),
		dividendstore.New(prefixBucket),
		balancestore.New(prefixBucket),
		transactionstore.New(prefixBucket),
		utxocommitmentstore.New(prefixBucket),
		params.DustThreshold)
	executor := New(db, params,
		blockstore.New(prefixBucket),
		forkblockstore.New(prefixBucket),
		metadatastore.New(prefixBucket),
		identitystore.New(prefixBucket),
		msexpirystore.New(prefixBucket),
		certexpirystore.New(prefixBucket),
		currencyLedger)
	return &testContext{db: db, executor: executor}, teardown
}

func (tc *testContext) execute(t *testing.T, stagingArea *model.StagingArea, requests ...model.WriteRequest) {
	for _, request := range requests {
		err := tc.executor.Execute(stagingArea, request)
		if err != nil {
			t.Fatalf("Execute %T: %s", request, err)
		}
	}
}

func (tc *testContext) identity(t *testing.T, stagingArea *model.StagingArea, pubKey externalapi.PubKey) *model.Identity {
	idty, err := tc.executor.identityStore.Identity(tc.db, stagingArea, pubKey)
	if err != nil {
		t.Fatalf("Identity: %s", err)
	}
	return idty
}

func (tc *testContext) membershipExpiries(t *testing.T, stagingArea *model.StagingArea,
	blockNumber externalapi.BlockNumber) []externalapi.PubKey {

	pubKeys, err := tc.executor.membershipExpiryStore.PubKeys(tc.db, stagingArea, blockNumber)
	if err != nil {
		t.Fatalf("PubKeys: %s", err)
	}
	return pubKeys
}

func TestIdentityLifecycleRequests(t *testing.T) {
	testutils.ForAllCurrencies(t, func(t *testing.T, params *dubpconfig.CurrencyParameters) {
		tc, teardown := setup(t, "TestIdentityLifecycleRequests", params)
		defer teardown()

		alice := &externalapi.IdentityDocument{Issuer: "alice", Username: "alice"}
		joinedOn := externalapi.Blockstamp{Number: 1, Hash: externalapi.Hash{1}}
		join := &model.CreateIdentityRequest{
			NodeID:     0,
			Identity:   alice,
			Membership: &externalapi.MembershipDocument{Issuer: "alice", Blockstamp: externalapi.Blockstamp{Number: 1}},
			CreatedOn:  joinedOn,
			MedianTime: 1000,
		}
		stagingArea := model.NewStagingArea()
		tc.execute(t, stagingArea, join)
		testutils.CommitStagingArea(t, tc.db, stagingArea)

		stagingArea = model.NewStagingArea()
		joined := tc.identity(t, stagingArea, "alice")
		if joined.State.Kind != model.IdentityStateMember {
			t.Fatalf("newcomer is in state %s", joined.State)
		}
		if joined.MembershipChainableOn[0] != 1000+params.MsPeriod {
			t.Fatalf("membership is chainable on %d, expected %d", joined.MembershipChainableOn[0], 1000+params.MsPeriod)
		}

		renewal := &model.RenewIdentityRequest{
			NodeID:     0,
			PubKey:     "alice",
			Membership: &externalapi.MembershipDocument{Issuer: "alice", Blockstamp: externalapi.Blockstamp{Number: 5}},
			MedianTime: 5000,
		}
		exclusion := &model.ExcludeIdentityRequest{PubKey: "alice", Blockstamp: externalapi.Blockstamp{Number: 6}}
		certification := &model.CreateCertificationRequest{
			SourcePubKey: "alice",
			Link:         model.CertLink{Source: 0, Target: 3},
			CreatedIn:    6,
			MedianTime:   6000,
		}
		tc.execute(t, stagingArea, renewal, certification, exclusion)

		updated := tc.identity(t, stagingArea, "alice")
		if updated.State.Kind != model.IdentityStateExpiredMember {
			t.Fatalf("excluded identity is in state %s", updated.State)
		}
		if !reflect.DeepEqual(updated.CertificationChainableOn, []uint64{6000 + params.SigPeriod}) {
			t.Fatalf("unexpected certification chainability %v", updated.CertificationChainableOn)
		}
		if expiries := tc.membershipExpiries(t, stagingArea, 1); len(expiries) != 0 {
			t.Fatalf("membership of block 1 should have been replaced, found %v", expiries)
		}
		if expiries := tc.membershipExpiries(t, stagingArea, 5); !reflect.DeepEqual(expiries, []externalapi.PubKey{"alice"}) {
			t.Fatalf("unexpected membership expiries of block 5: %v", expiries)
		}
		testutils.CommitStagingArea(t, tc.db, stagingArea)

		stagingArea = model.NewStagingArea()
		exclusion.Revert = true
		certification.Revert = true
		renewal.Revert = true
		tc.execute(t, stagingArea, exclusion, certification, renewal)
		if reverted := tc.identity(t, stagingArea, "alice"); !reverted.Equal(joined) {
			t.Fatalf("identity after the reversions differs:\n%+v\nexpected\n%+v", reverted, joined)
		}
		links, err := tc.executor.certificationExpiryStore.Links(tc.db, stagingArea, 6)
		if err != nil {
			t.Fatalf("Links: %s", err)
		}
		if len(links) != 0 {
			t.Fatalf("reverted certification is still indexed: %v", links)
		}

		tc.execute(t, stagingArea, &model.RevertCreateIdentityRequest{NodeID: 0, PubKey: "alice", Membership: join.Membership})
		exists, err := tc.executor.identityStore.HasIdentity(tc.db, stagingArea, "alice")
		if err != nil {
			t.Fatalf("HasIdentity: %s", err)
		}
		if exists {
			t.Fatalf("reverted newcomer is still stored")
		}
		if expiries := tc.membershipExpiries(t, stagingArea, 1); len(expiries) != 0 {
			t.Fatalf("reverted newcomer is still indexed for expiry: %v", expiries)
		}
	})
}

func TestContractViolationIsFatal(t *testing.T) {
	tc, teardown := setup(t, "TestContractViolationIsFatal", &dubpconfig.G1TestParams)
	defer teardown()

	stagingArea := model.NewStagingArea()
	tc.execute(t, stagingArea, &model.CreateIdentityRequest{
		Identity:   &externalapi.IdentityDocument{Issuer: "alice"},
		Membership: &externalapi.MembershipDocument{Issuer: "alice"},
	})

	defer func() {
		if _, ok := recover().(panics.InvariantViolation); !ok {
			t.Fatalf("reverting an exclusion that never happened should be fatal")
		}
	}()
	_ = tc.executor.Execute(stagingArea, &model.ExcludeIdentityRequest{PubKey: "alice", Revert: true})
}

func TestBlockRequests(t *testing.T) {
	tc, teardown := setup(t, "TestBlockRequests", &dubpconfig.G1Params)
	defer teardown()

	block := &model.DALBlock{Block: &externalapi.BlockDocument{
		Number:       4,
		Hash:         externalapi.Hash{4},
		PreviousHash: externalapi.Hash{3},
	}}
	stagingArea := model.NewStagingArea()
	tc.execute(t, stagingArea, &model.WriteBlockRequest{Block: block})
	current, found, err := tc.executor.metadataStore.CurrentBlockstamp(tc.db, stagingArea)
	if err != nil || !found || current != block.Blockstamp() {
		t.Fatalf("current blockstamp is %s (found: %t, err: %v), expected %s", current, found, err, block.Blockstamp())
	}

	forkBlock := *block
	forkBlock.IsFork = true
	tc.execute(t, stagingArea, &model.RevertBlockRequest{Block: &forkBlock})
	current, _, _ = tc.executor.metadataStore.CurrentBlockstamp(tc.db, stagingArea)
	if current != block.Block.PreviousBlockstamp() {
		t.Fatalf("current blockstamp is %s after the revert, expected %s", current, block.Block.PreviousBlockstamp())
	}
	hasBlock, err := tc.executor.blockStore.HasBlock(tc.db, stagingArea, 4)
	if err != nil || hasBlock {
		t.Fatalf("reverted block is still on the main branch (err: %v)", err)
	}
	hasForkBlock, err := tc.executor.forkBlockStore.HasBlock(tc.db, stagingArea, block.Blockstamp())
	if err != nil || !hasForkBlock {
		t.Fatalf("reverted block was not kept as a fork block (err: %v)", err)
	}

	genesis := &model.DALBlock{Block: &externalapi.BlockDocument{Number: 0}}
	if err := tc.executor.Execute(stagingArea, &model.RevertBlockRequest{Block: genesis}); err == nil {
		t.Fatalf("reverting the genesis block should fail")
	}
}
