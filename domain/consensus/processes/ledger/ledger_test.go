package ledger

import (
	"fmt"
	"math"
	"reflect"
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/balancestore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/dividendstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/transactionstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxocommitmentstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxostore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/testutils"
	"github.com/pkg/errors"
)

const (
	alice externalapi.PubKey = "alice"
	bob   externalapi.PubKey = "bob"
	carol externalapi.PubKey = "carol"
)

func setupLedger(t *testing.T, testName string) (*Ledger, model.DBManager, func()) {
	db, teardown := testutils.PrepareDBForTest(t, testName)
	prefixBucket := database.MakeBucket(nil)
	ledger := New(db,
		utxostore.New(prefixBucket),
		dividendstore.New(prefixBucket),
		balancestore.New(prefixBucket),
		transactionstore.New(prefixBucket),
		utxocommitmentstore.New(prefixBucket),
		100)
	return ledger, db, teardown
}

func balanceAmount(t *testing.T, ledger *Ledger, stagingArea *model.StagingArea, pubKey externalapi.PubKey) uint64 {
	balance, err := ledger.Balance(stagingArea, externalapi.SigCondition(pubKey))
	if err != nil {
		t.Fatalf("Balance: %s", err)
	}
	return balance.Amount
}

func commitmentHash(t *testing.T, ledger *Ledger, stagingArea *model.StagingArea) string {
	commitment, err := ledger.Commitment(stagingArea)
	if err != nil {
		t.Fatalf("Commitment: %s", err)
	}
	return fmt.Sprintf("%x", commitment.Finalize())
}

func TestDividendDistribution(t *testing.T) {
	ledger, db, teardown := setupLedger(t, "TestDividendDistribution")
	defer teardown()

	members := []externalapi.PubKey{alice, bob, carol}
	stagingArea := model.NewStagingArea()
	emptyCommitment := commitmentHash(t, ledger, stagingArea)
	err := ledger.CreateDividend(stagingArea, 100, 0, 1, members)
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	err = ledger.CreateDividend(stagingArea, 1, 2, 7, members)
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	for _, member := range members {
		if amount := balanceAmount(t, ledger, stagingArea, member); amount != 200 {
			t.Fatalf("balance of %s is %d, expected 200", member, amount)
		}
		dividends, err := ledger.Dividends(stagingArea, member)
		if err != nil {
			t.Fatalf("Dividends: %s", err)
		}
		if !reflect.DeepEqual(dividends, []externalapi.BlockNumber{1, 7}) {
			t.Fatalf("dividends of %s are %v, expected [1 7]", member, dividends)
		}
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	err = ledger.RevertDividend(stagingArea, 7, members)
	if err != nil {
		t.Fatalf("RevertDividend: %s", err)
	}
	err = ledger.RevertDividend(stagingArea, 1, members)
	if err != nil {
		t.Fatalf("RevertDividend: %s", err)
	}
	for _, member := range members {
		balance, err := ledger.Balance(stagingArea, externalapi.SigCondition(member))
		if err != nil {
			t.Fatalf("Balance: %s", err)
		}
		if !balance.IsEmpty() {
			t.Fatalf("balance of %s is not empty after the revert: %d", member, balance.Amount)
		}
	}
	if commitment := commitmentHash(t, ledger, stagingArea); commitment != emptyCommitment {
		t.Fatalf("commitment is %s after the revert, expected %s", commitment, emptyCommitment)
	}
}

func spendDividend(hash byte, owner externalapi.PubKey, blockNumber externalapi.BlockNumber, amount uint64,
	outputs ...*externalapi.TransactionOutput) *externalapi.TransactionDocument {

	return &externalapi.TransactionDocument{
		Hash:    externalapi.Hash{hash},
		Issuers: []externalapi.PubKey{owner},
		Inputs: []*externalapi.TransactionInput{{
			Amount: amount,
			Source: externalapi.NewDividendSourceID(owner, blockNumber),
		}},
		Outputs: outputs,
	}
}

func output(amount uint64, owner externalapi.PubKey) *externalapi.TransactionOutput {
	return &externalapi.TransactionOutput{Amount: amount, Condition: externalapi.SigCondition(owner)}
}

func TestApplyAndRevertTransactions(t *testing.T) {
	ledger, db, teardown := setupLedger(t, "TestApplyAndRevertTransactions")
	defer teardown()

	stagingArea := model.NewStagingArea()
	err := ledger.CreateDividend(stagingArea, 1000, 0, 1, []externalapi.PubKey{alice, bob})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)
	stagingArea = model.NewStagingArea()
	initialCommitment := commitmentHash(t, ledger, stagingArea)

	first := spendDividend(1, alice, 1, 1000, output(600, bob), output(400, alice))
	err = ledger.ApplyTransaction(stagingArea, first, 2)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	second := &externalapi.TransactionDocument{
		Hash:    externalapi.Hash{2},
		Issuers: []externalapi.PubKey{bob},
		Inputs: []*externalapi.TransactionInput{
			{Amount: 6, Base: 2, Source: externalapi.NewTransactionOutputSourceID(first.Hash, 0)},
			{Amount: 1000, Source: externalapi.NewDividendSourceID(bob, 1)},
		},
		Outputs: []*externalapi.TransactionOutput{output(1500, carol), output(100, bob)},
	}
	err = ledger.ApplyTransaction(stagingArea, second, 2)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	expectedBalances := map[externalapi.PubKey]uint64{alice: 400, bob: 100, carol: 1500}
	for pubKey, expected := range expectedBalances {
		if amount := balanceAmount(t, ledger, stagingArea, pubKey); amount != expected {
			t.Fatalf("balance of %s is %d, expected %d", pubKey, amount, expected)
		}
	}
	utxos, err := ledger.UTXOs(stagingArea, externalapi.SigCondition(carol))
	if err != nil {
		t.Fatalf("UTXOs: %s", err)
	}
	if len(utxos) != 1 || utxos[0].Source != externalapi.NewTransactionOutputSourceID(second.Hash, 0) {
		t.Fatalf("unexpected sources of carol: %v", utxos)
	}

	err = ledger.RevertTransaction(stagingArea, second.Hash)
	if err != nil {
		t.Fatalf("RevertTransaction: %s", err)
	}
	err = ledger.RevertTransaction(stagingArea, first.Hash)
	if err != nil {
		t.Fatalf("RevertTransaction: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	expectedBalances = map[externalapi.PubKey]uint64{alice: 1000, bob: 1000, carol: 0}
	for pubKey, expected := range expectedBalances {
		if amount := balanceAmount(t, ledger, stagingArea, pubKey); amount != expected {
			t.Fatalf("balance of %s is %d after the revert, expected %d", pubKey, amount, expected)
		}
	}
	if commitment := commitmentHash(t, ledger, stagingArea); commitment != initialCommitment {
		t.Fatalf("commitment is %s after the revert, expected %s", commitment, initialCommitment)
	}
}

func TestDustSweep(t *testing.T) {
	ledger, db, teardown := setupLedger(t, "TestDustSweep")
	defer teardown()

	stagingArea := model.NewStagingArea()
	err := ledger.CreateDividend(stagingArea, 150, 0, 1, []externalapi.PubKey{alice})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	err = ledger.CreateDividend(stagingArea, 60, 0, 2, []externalapi.PubKey{alice})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	initialCommitment := commitmentHash(t, ledger, stagingArea)
	tx := spendDividend(1, alice, 1, 150, output(140, bob), output(10, alice))
	err = ledger.ApplyTransaction(stagingArea, tx, 3)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	if amount := balanceAmount(t, ledger, stagingArea, alice); amount != 10 {
		t.Fatalf("balance of alice is %d, expected only the change output", amount)
	}
	dividends, err := ledger.Dividends(stagingArea, alice)
	if err != nil {
		t.Fatalf("Dividends: %s", err)
	}
	if len(dividends) != 0 {
		t.Fatalf("the dividend of block 2 should have been swept, found %v", dividends)
	}
	record, err := ledger.transactionStore.Transaction(db, stagingArea, tx.Hash)
	if err != nil {
		t.Fatalf("Transaction: %s", err)
	}
	expectedDestroyed := []*externalapi.UTXO{{
		Source:    externalapi.NewDividendSourceID(alice, 2),
		Condition: externalapi.SigCondition(alice),
		Amount:    60,
	}}
	if !reflect.DeepEqual(record.DestroyedSources, expectedDestroyed) {
		t.Fatalf("destroyed sources are %v, expected %v", record.DestroyedSources, expectedDestroyed)
	}

	err = ledger.RevertTransaction(stagingArea, tx.Hash)
	if err != nil {
		t.Fatalf("RevertTransaction: %s", err)
	}
	if amount := balanceAmount(t, ledger, stagingArea, alice); amount != 210 {
		t.Fatalf("balance of alice is %d after the revert, expected 210", amount)
	}
	if amount := balanceAmount(t, ledger, stagingArea, bob); amount != 0 {
		t.Fatalf("balance of bob is %d after the revert, expected 0", amount)
	}
	if commitment := commitmentHash(t, ledger, stagingArea); commitment != initialCommitment {
		t.Fatalf("commitment is %s after the revert, expected %s", commitment, initialCommitment)
	}
}

func TestRejectedTransactionsStageNothing(t *testing.T) {
	ledger, db, teardown := setupLedger(t, "TestRejectedTransactionsStageNothing")
	defer teardown()

	stagingArea := model.NewStagingArea()
	err := ledger.CreateDividend(stagingArea, 500, 0, 1, []externalapi.PubKey{alice})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	tests := []struct {
		name          string
		tx            *externalapi.TransactionDocument
		expectedError error
	}{
		{
			name:          "unknown source",
			tx:            spendDividend(1, alice, 9, 500, output(500, bob)),
			expectedError: ruleerrors.ErrMissingSources{},
		},
		{
			name:          "outputs exceed inputs",
			tx:            spendDividend(2, alice, 1, 500, output(501, bob)),
			expectedError: ruleerrors.ErrUnbalancedTransaction,
		},
		{
			name:          "wrong input amount",
			tx:            spendDividend(3, alice, 1, 400, output(400, bob)),
			expectedError: ruleerrors.ErrUnbalancedTransaction,
		},
	}
	for _, test := range tests {
		stagingArea := model.NewStagingArea()
		err := ledger.ApplyTransaction(stagingArea, test.tx, 2)
		if err == nil {
			t.Fatalf("%s: ApplyTransaction unexpectedly succeeded", test.name)
		}
		if _, ok := test.expectedError.(ruleerrors.ErrMissingSources); ok {
			if !errors.As(err, &ruleerrors.ErrMissingSources{}) {
				t.Fatalf("%s: expected missing sources, got %s", test.name, err)
			}
		} else if !errors.Is(err, test.expectedError) {
			t.Fatalf("%s: expected %s, got %s", test.name, test.expectedError, err)
		}
		if amount := balanceAmount(t, ledger, stagingArea, alice); amount != 500 {
			t.Fatalf("%s: balance of alice is %d, expected 500", test.name, amount)
		}
		hasTransaction, err := ledger.transactionStore.HasTransaction(db, stagingArea, test.tx.Hash)
		if err != nil {
			t.Fatalf("HasTransaction: %s", err)
		}
		if hasTransaction {
			t.Fatalf("%s: rejected transaction was staged", test.name)
		}
	}

	stagingArea = model.NewStagingArea()
	tx := spendDividend(4, alice, 1, 500, output(500, bob))
	tx.Inputs = append(tx.Inputs, tx.Inputs[0])
	err = ledger.ApplyTransaction(stagingArea, tx, 2)
	missing := &ruleerrors.ErrMissingSources{}
	if !errors.As(err, missing) || len(missing.MissingSources) != 1 {
		t.Fatalf("a source spent twice should be reported missing once, got %v", err)
	}

	err = ledger.ApplyTransaction(stagingArea, spendDividend(5, alice, 1, 500, output(500, bob)), 2)
	if err != nil {
		t.Fatalf("ApplyTransaction: %s", err)
	}
	err = ledger.ApplyTransaction(stagingArea, spendDividend(5, bob, 1, 0), 2)
	if !errors.Is(err, ruleerrors.ErrDuplicateTransaction) {
		t.Fatalf("expected ErrDuplicateTransaction, got %v", err)
	}
}

func TestAmountOverflow(t *testing.T) {
	ledger, db, teardown := setupLedger(t, "TestAmountOverflow")
	defer teardown()

	stagingArea := model.NewStagingArea()
	err := ledger.CreateDividend(stagingArea, 100, 0, 1, []externalapi.PubKey{alice})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	wrappingOutputs := spendDividend(1, alice, 1, 100, output(1<<63, bob), output(1<<63+50, carol))
	largeBaseOutput := spendDividend(2, alice, 1, 100, output(1, bob))
	largeBaseOutput.Outputs[0].Base = 20
	largeBaseInput := spendDividend(3, alice, 1, 1, output(100, bob))
	largeBaseInput.Inputs[0].Base = 64

	for _, tx := range []*externalapi.TransactionDocument{wrappingOutputs, largeBaseOutput, largeBaseInput} {
		stagingArea := model.NewStagingArea()
		err := ledger.ApplyTransaction(stagingArea, tx, 2)
		if !errors.Is(err, ruleerrors.ErrUnbalancedTransaction) {
			t.Fatalf("transaction %s: expected ErrUnbalancedTransaction, got %v", tx.Hash, err)
		}
		if amount := balanceAmount(t, ledger, stagingArea, alice); amount != 100 {
			t.Fatalf("transaction %s: balance of alice is %d, expected 100", tx.Hash, amount)
		}
		for _, owner := range []externalapi.PubKey{bob, carol} {
			if amount := balanceAmount(t, ledger, stagingArea, owner); amount != 0 {
				t.Fatalf("transaction %s: balance of %s is %d, expected 0", tx.Hash, owner, amount)
			}
		}
	}

	stagingArea = model.NewStagingArea()
	err = ledger.CreateDividend(stagingArea, 1, 20, 2, []externalapi.PubKey{alice})
	if !errors.Is(err, ruleerrors.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow for a dividend in base 20, got %v", err)
	}

	stagingArea = model.NewStagingArea()
	err = ledger.CreateDividend(stagingArea, math.MaxUint64, 0, 3, []externalapi.PubKey{bob})
	if err != nil {
		t.Fatalf("CreateDividend: %s", err)
	}
	testutils.CommitStagingArea(t, db, stagingArea)

	stagingArea = model.NewStagingArea()
	err = ledger.CreateDividend(stagingArea, 1, 0, 4, []externalapi.PubKey{bob})
	if !errors.Is(err, ruleerrors.ErrAmountOverflow) {
		t.Fatalf("expected ErrAmountOverflow for a balance exceeding 64 bits, got %v", err)
	}
	if amount := balanceAmount(t, ledger, stagingArea, bob); amount != math.MaxUint64 {
		t.Fatalf("balance of bob is %d, expected %d", amount, uint64(math.MaxUint64))
	}
}
