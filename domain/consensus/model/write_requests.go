package model

import "github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"

// StoreKind names the group of stores a write request targets
type StoreKind uint8

const (
	// StoreKindBlocks is the group of block, fork-tree and metadata stores
	StoreKindBlocks StoreKind = iota

	// StoreKindWoT is the group of identity and expiry index stores
	StoreKindWoT

	// StoreKindCurrency is the group of ledger stores
	StoreKindCurrency
)

func (kind StoreKind) String() string {
	switch kind {
	case StoreKindBlocks:
		return "blocks"
	case StoreKindWoT:
		return "wot"
	case StoreKindCurrency:
		return "currency"
	}
	return "unknown"
}

// WriteRequest is a single mutation of the persistent state
type WriteRequest interface {
	StoreKind() StoreKind
}

// BlockRequest is a WriteRequest targeting the block stores
type BlockRequest interface {
	WriteRequest
	isBlockRequest()
}

// WoTRequest is a WriteRequest targeting the WoT stores
type WoTRequest interface {
	WriteRequest
	isWoTRequest()
}

// CurrencyRequest is a WriteRequest targeting the currency stores
type CurrencyRequest interface {
	WriteRequest
	isCurrencyRequest()
}

// WriteBlockRequest stores a block as the new tip of the main chain
type WriteBlockRequest struct {
	Block *DALBlock
}

// RevertBlockRequest removes the tip of the main chain and keeps the
// block as a fork block. Block carries its full transactions.
type RevertBlockRequest struct {
	Block *DALBlock
}

// CreateIdentityRequest creates the identity of a newcomer
type CreateIdentityRequest struct {
	NodeID     NodeID
	Identity   *externalapi.IdentityDocument
	Membership *externalapi.MembershipDocument
	CreatedOn  externalapi.Blockstamp
	MedianTime uint64
}

// RevertCreateIdentityRequest deletes the identity of a newcomer
type RevertCreateIdentityRequest struct {
	NodeID     NodeID
	PubKey     externalapi.PubKey
	Membership *externalapi.MembershipDocument
}

// RenewIdentityRequest renews the membership of a known identity
type RenewIdentityRequest struct {
	NodeID     NodeID
	PubKey     externalapi.PubKey
	Membership *externalapi.MembershipDocument
	MedianTime uint64
	Revert     bool
}

// ExcludeIdentityRequest excludes a member
type ExcludeIdentityRequest struct {
	PubKey     externalapi.PubKey
	Blockstamp externalapi.Blockstamp
	Revert     bool
}

// RevokeIdentityRequest revokes an identity
type RevokeIdentityRequest struct {
	PubKey     externalapi.PubKey
	Blockstamp externalapi.Blockstamp
	Explicit   bool
	Revert     bool
}

// CreateCertificationRequest records a new certification link
type CreateCertificationRequest struct {
	SourcePubKey externalapi.PubKey
	Link         CertLink
	CreatedIn    externalapi.BlockNumber
	MedianTime   uint64
	Revert       bool
}

// ExpireCertificationsRequest expires every certification created in
// CreatedIn. Links is what the expiry index held for CreatedIn.
type ExpireCertificationsRequest struct {
	CreatedIn externalapi.BlockNumber
	Links     []CertLink
	Revert    bool
}

// CreateDividendRequest credits a universal dividend to every member
type CreateDividendRequest struct {
	Amount      uint64
	Base        uint32
	BlockNumber externalapi.BlockNumber
	Members     []externalapi.PubKey
	Revert      bool
}

// TransactionRequest applies or reverts the ledger effects of a transaction
type TransactionRequest struct {
	Transaction *externalapi.TransactionDocument
	BlockNumber externalapi.BlockNumber
	Revert      bool
}

// StoreKind implements WriteRequest
func (*WriteBlockRequest) StoreKind() StoreKind { return StoreKindBlocks }

// StoreKind implements WriteRequest
func (*RevertBlockRequest) StoreKind() StoreKind { return StoreKindBlocks }

// StoreKind implements WriteRequest
func (*CreateIdentityRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*RevertCreateIdentityRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*RenewIdentityRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*ExcludeIdentityRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*RevokeIdentityRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*CreateCertificationRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*ExpireCertificationsRequest) StoreKind() StoreKind { return StoreKindWoT }

// StoreKind implements WriteRequest
func (*CreateDividendRequest) StoreKind() StoreKind { return StoreKindCurrency }

// StoreKind implements WriteRequest
func (*TransactionRequest) StoreKind() StoreKind { return StoreKindCurrency }

func (*WriteBlockRequest) isBlockRequest() {}
func (*RevertBlockRequest) isBlockRequest() {}
func (*CreateIdentityRequest) isWoTRequest() {}
func (*RevertCreateIdentityRequest) isWoTRequest() {}
func (*RenewIdentityRequest) isWoTRequest() {}
func (*ExcludeIdentityRequest) isWoTRequest() {}
func (*RevokeIdentityRequest) isWoTRequest() {}
func (*CreateCertificationRequest) isWoTRequest() {}
func (*ExpireCertificationsRequest) isWoTRequest() {}
func (*CreateDividendRequest) isCurrencyRequest() {}
func (*TransactionRequest) isCurrencyRequest() {}

// WriteRequests are the mutations produced by the application or the
// reversion of a single block, grouped per store
type WriteRequests struct {
	Block    []BlockRequest
	WoT      []WoTRequest
	Currency []CurrencyRequest

	// Revert is set for requests produced by a block reversion
	Revert bool
}

// Ordered returns the requests in the order they must be executed:
// blocks, WoT then currency when applying a block, and the reverse
// store order when reverting one.
func (wr *WriteRequests) Ordered() []WriteRequest {
	ordered := make([]WriteRequest, 0, len(wr.Block)+len(wr.WoT)+len(wr.Currency))
	appendBlock := func() {
		for _, request := range wr.Block {
			ordered = append(ordered, request)
		}
	}
	appendWoT := func() {
		for _, request := range wr.WoT {
			ordered = append(ordered, request)
		}
	}
	appendCurrency := func() {
		for _, request := range wr.Currency {
			ordered = append(ordered, request)
		}
	}

	if wr.Revert {
		appendCurrency()
		appendWoT()
		appendBlock()
	} else {
		appendBlock()
		appendWoT()
		appendCurrency()
	}
	return ordered
}
