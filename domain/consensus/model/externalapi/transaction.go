package externalapi

import "fmt"

// SourceKind distinguishes the two kinds of spendable sources
type SourceKind uint8

const (
	// SourceKindTransactionOutput is an output written by a transaction
	SourceKindTransactionOutput SourceKind = iota

	// SourceKindDividend is a universal dividend credited to a member
	SourceKindDividend
)

// SourceID identifies a spendable source: either a transaction
// output (TxHash, OutputIndex) or a dividend (PubKey, BlockNumber).
// SourceID is comparable and may be used as a map key.
type SourceID struct {
	Kind        SourceKind  `yaml:"kind"`
	TxHash      Hash        `yaml:"txHash"`
	OutputIndex uint32      `yaml:"outputIndex"`
	PubKey      PubKey      `yaml:"pubKey"`
	BlockNumber BlockNumber `yaml:"blockNumber"`
}

// NewTransactionOutputSourceID returns the SourceID of the given transaction output
func NewTransactionOutputSourceID(txHash Hash, outputIndex uint32) SourceID {
	return SourceID{Kind: SourceKindTransactionOutput, TxHash: txHash, OutputIndex: outputIndex}
}

// NewDividendSourceID returns the SourceID of the dividend credited to
// pubKey in the given block
func NewDividendSourceID(pubKey PubKey, blockNumber BlockNumber) SourceID {
	return SourceID{Kind: SourceKindDividend, PubKey: pubKey, BlockNumber: blockNumber}
}

func (id SourceID) String() string {
	if id.Kind == SourceKindDividend {
		return fmt.Sprintf("D:%s:%d", id.PubKey, id.BlockNumber)
	}
	return fmt.Sprintf("T:%s:%d", id.TxHash, id.OutputIndex)
}

// TransactionInput references the source consumed by a transaction
type TransactionInput struct {
	Amount uint64   `yaml:"amount"`
	Base   uint32   `yaml:"base"`
	Source SourceID `yaml:"source"`
}

// TransactionOutput is an amount locked by a condition
type TransactionOutput struct {
	Amount    uint64    `yaml:"amount"`
	Base      uint32    `yaml:"base"`
	Condition Condition `yaml:"condition"`
}

// TransactionDocument is a validated transaction
type TransactionDocument struct {
	Hash    Hash                 `yaml:"hash"`
	Issuers []PubKey             `yaml:"issuers"`
	Inputs  []*TransactionInput  `yaml:"inputs"`
	Outputs []*TransactionOutput `yaml:"outputs"`
}

// TxDocOrHash is a transaction as carried by a block: either the full
// document, or once the block is reduced for storage, only its hash.
type TxDocOrHash struct {
	Document *TransactionDocument `yaml:"document"`
	Hash     Hash                 `yaml:"hash"`
}

// TxHash returns the hash of the transaction
func (t *TxDocOrHash) TxHash() Hash {
	if t.Document != nil {
		return t.Document.Hash
	}
	return t.Hash
}

// Reduce returns the hash-only form of the transaction
func (t *TxDocOrHash) Reduce() *TxDocOrHash {
	return &TxDocOrHash{Hash: t.TxHash()}
}

// UTXO is an unspent source, with its amount normalized to base-0 units
type UTXO struct {
	Source    SourceID
	Condition Condition
	Amount    uint64
}

// Balance is the cached aggregate of the sources locked by a condition
type Balance struct {
	Amount  uint64
	Sources map[SourceID]struct{}
}

// NewBalance returns an empty balance
func NewBalance() *Balance {
	return &Balance{Sources: make(map[SourceID]struct{})}
}

// Clone returns a deep copy of the balance
func (b *Balance) Clone() *Balance {
	clone := &Balance{Amount: b.Amount, Sources: make(map[SourceID]struct{}, len(b.Sources))}
	for source := range b.Sources {
		clone.Sources[source] = struct{}{}
	}
	return clone
}

// Equal returns whether b equals to other
func (b *Balance) Equal(other *Balance) bool {
	if b == nil || other == nil {
		return b == other
	}
	if b.Amount != other.Amount || len(b.Sources) != len(other.Sources) {
		return false
	}
	for source := range b.Sources {
		if _, ok := other.Sources[source]; !ok {
			return false
		}
	}
	return true
}

// IsEmpty returns whether the balance holds no source
func (b *Balance) IsEmpty() bool {
	return b.Amount == 0 && len(b.Sources) == 0
}
