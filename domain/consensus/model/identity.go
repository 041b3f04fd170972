package model

import (
	"fmt"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"golang.org/x/exp/slices"
)

// IdentityStateKind is the lifecycle stage of an identity
type IdentityStateKind uint8

const (
	// IdentityStateMember is an active member
	IdentityStateMember IdentityStateKind = iota

	// IdentityStateExpiredMember is a member that did not renew in time,
	// or that was excluded
	IdentityStateExpiredMember

	// IdentityStateExplicitlyRevoked is a member revoked by its owner
	IdentityStateExplicitlyRevoked

	// IdentityStateExplicitlyRevokedAfterExpiry is an expired member revoked
	// by its owner
	IdentityStateExplicitlyRevokedAfterExpiry

	// IdentityStateImplicitlyRevoked is an identity revoked for staying
	// expired for too long
	IdentityStateImplicitlyRevoked
)

var identityStateKindStrings = map[IdentityStateKind]string{
	IdentityStateMember:                       "Member",
	IdentityStateExpiredMember:                "ExpiredMember",
	IdentityStateExplicitlyRevoked:            "ExplicitlyRevoked",
	IdentityStateExplicitlyRevokedAfterExpiry: "ExplicitlyRevokedAfterExpiry",
	IdentityStateImplicitlyRevoked:            "ImplicitlyRevoked",
}

func (kind IdentityStateKind) String() string {
	if str, ok := identityStateKindStrings[kind]; ok {
		return str
	}
	return fmt.Sprintf("IdentityStateKind(%d)", uint8(kind))
}

// IsRevoked returns whether the kind is one of the revoked states
func (kind IdentityStateKind) IsRevoked() bool {
	return kind == IdentityStateExplicitlyRevoked ||
		kind == IdentityStateExplicitlyRevokedAfterExpiry ||
		kind == IdentityStateImplicitlyRevoked
}

// IdentityState is the lifecycle state of an identity. RenewalCounts holds
// one entry per membership era, each counting the renewals within it.
type IdentityState struct {
	Kind          IdentityStateKind
	RenewalCounts []uint32
}

func (state IdentityState) String() string {
	return fmt.Sprintf("%s(%v)", state.Kind, state.RenewalCounts)
}

// Identity is the persisted record of an identity
type Identity struct {
	PubKey   externalapi.PubKey
	Username string
	Hash     externalapi.Hash
	NodeID   NodeID
	State    IdentityState

	JoinedOn  externalapi.Blockstamp
	ExpiredOn *externalapi.Blockstamp
	RevokedOn *externalapi.Blockstamp

	// Expiries stacks the blockstamp of every exclusion, so that
	// reverting a re-join can restore ExpiredOn.
	Expiries []externalapi.Blockstamp

	// Memberships stacks the block number each membership was signed on.
	// The last one is the entry of the identity in the membership expiry index.
	Memberships []externalapi.BlockNumber

	MembershipChainableOn    []uint64
	CertificationChainableOn []uint64
}

// Clone returns a deep copy of the identity
func (idty *Identity) Clone() *Identity {
	clone := *idty
	clone.State.RenewalCounts = append([]uint32(nil), idty.State.RenewalCounts...)
	if idty.ExpiredOn != nil {
		expiredOn := *idty.ExpiredOn
		clone.ExpiredOn = &expiredOn
	}
	if idty.RevokedOn != nil {
		revokedOn := *idty.RevokedOn
		clone.RevokedOn = &revokedOn
	}
	clone.Expiries = append([]externalapi.Blockstamp(nil), idty.Expiries...)
	clone.Memberships = append([]externalapi.BlockNumber(nil), idty.Memberships...)
	clone.MembershipChainableOn = append([]uint64(nil), idty.MembershipChainableOn...)
	clone.CertificationChainableOn = append([]uint64(nil), idty.CertificationChainableOn...)
	return &clone
}

// Equal returns whether idty equals to other
func (idty *Identity) Equal(other *Identity) bool {
	if idty == nil || other == nil {
		return idty == other
	}
	if idty.PubKey != other.PubKey || idty.Username != other.Username ||
		idty.Hash != other.Hash || idty.NodeID != other.NodeID ||
		idty.State.Kind != other.State.Kind || idty.JoinedOn != other.JoinedOn {
		return false
	}
	if !blockstampPointersEqual(idty.ExpiredOn, other.ExpiredOn) ||
		!blockstampPointersEqual(idty.RevokedOn, other.RevokedOn) {
		return false
	}
	return slices.Equal(idty.State.RenewalCounts, other.State.RenewalCounts) &&
		slices.Equal(idty.Expiries, other.Expiries) &&
		slices.Equal(idty.Memberships, other.Memberships) &&
		slices.Equal(idty.MembershipChainableOn, other.MembershipChainableOn) &&
		slices.Equal(idty.CertificationChainableOn, other.CertificationChainableOn)
}

func blockstampPointersEqual(a, b *externalapi.Blockstamp) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
