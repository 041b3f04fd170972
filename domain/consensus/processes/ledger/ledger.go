package ledger

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/kaspanet/go-muhash"
	"golang.org/x/exp/slices"
)

// Ledger applies the currency effects of transactions and dividends to
// the unspent sources, the balance cache and the UTXO commitment.
type Ledger struct {
	databaseContext model.DBReader

	utxoStore           model.UTXOStore
	dividendStore       model.DividendStore
	balanceStore        model.BalanceStore
	transactionStore    model.TransactionStore
	utxoCommitmentStore model.UTXOCommitmentStore

	dustThreshold uint64
}

// New instantiates a new Ledger
func New(
	databaseContext model.DBReader,
	utxoStore model.UTXOStore,
	dividendStore model.DividendStore,
	balanceStore model.BalanceStore,
	transactionStore model.TransactionStore,
	utxoCommitmentStore model.UTXOCommitmentStore,
	dustThreshold uint64) *Ledger {

	return &Ledger{
		databaseContext:     databaseContext,
		utxoStore:           utxoStore,
		dividendStore:       dividendStore,
		balanceStore:        balanceStore,
		transactionStore:    transactionStore,
		utxoCommitmentStore: utxoCommitmentStore,
		dustThreshold:       dustThreshold,
	}
}

// Balance returns the balance of condition
func (l *Ledger) Balance(stagingArea *model.StagingArea, condition externalapi.Condition) (*externalapi.Balance, error) {
	return l.balanceStore.Balance(l.databaseContext, stagingArea, condition)
}

// UTXOs returns the unspent sources locked by condition, ordered by source id
func (l *Ledger) UTXOs(stagingArea *model.StagingArea, condition externalapi.Condition) ([]*externalapi.UTXO, error) {
	balance, err := l.Balance(stagingArea, condition)
	if err != nil {
		return nil, err
	}
	utxos := make([]*externalapi.UTXO, 0, len(balance.Sources))
	for _, sourceID := range sortedSources(balance) {
		utxo, err := l.utxoStore.UTXO(l.databaseContext, stagingArea, sourceID)
		if err != nil {
			return nil, err
		}
		utxos = append(utxos, utxo)
	}
	return utxos, nil
}

// Dividends returns the block numbers of the unspent dividends of pubKey
func (l *Ledger) Dividends(stagingArea *model.StagingArea, pubKey externalapi.PubKey) ([]externalapi.BlockNumber, error) {
	return l.dividendStore.BlockNumbers(l.databaseContext, stagingArea, pubKey)
}

// Commitment returns the multiset hash of the unspent sources
func (l *Ledger) Commitment(stagingArea *model.StagingArea) (*muhash.MuHash, error) {
	return l.utxoCommitmentStore.Commitment(l.databaseContext, stagingArea)
}

func sortedSources(balance *externalapi.Balance) []externalapi.SourceID {
	sources := make([]externalapi.SourceID, 0, len(balance.Sources))
	for sourceID := range balance.Sources {
		sources = append(sources, sourceID)
	}
	slices.SortFunc(sources, compareSourceIDs)
	return sources
}

func compareSourceIDs(a, b externalapi.SourceID) int {
	if a.Kind != b.Kind {
		if a.Kind < b.Kind {
			return -1
		}
		return 1
	}
	if a.Kind == externalapi.SourceKindDividend {
		if a.PubKey != b.PubKey {
			if a.PubKey < b.PubKey {
				return -1
			}
			return 1
		}
		return compareUint32(uint32(a.BlockNumber), uint32(b.BlockNumber))
	}
	if cmp := a.TxHash.Compare(b.TxHash); cmp != 0 {
		return cmp
	}
	return compareUint32(a.OutputIndex, b.OutputIndex)
}

func compareUint32(a, b uint32) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
