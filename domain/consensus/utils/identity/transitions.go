package identity

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// ErrContractViolation indicates a transition that the lifecycle does not
// allow from the current state. For reversions this means the stored
// state diverged from the history that produced it.
var ErrContractViolation = errors.New("identity state machine contract violation")

func violation(idty *model.Identity, format string, args ...interface{}) error {
	return errors.Wrapf(ErrContractViolation, "identity %s in state %s: "+format,
		append([]interface{}{idty.PubKey, idty.State}, args...)...)
}

// New returns the record of a newcomer: a member in its first era
func New(document *externalapi.IdentityDocument, nodeID model.NodeID, joinedOn externalapi.Blockstamp,
	membershipBlockNumber externalapi.BlockNumber, membershipChainableOn uint64) *model.Identity {

	return &model.Identity{
		PubKey:   document.Issuer,
		Username: document.Username,
		Hash:     document.Hash,
		NodeID:   nodeID,
		State: model.IdentityState{
			Kind:          model.IdentityStateMember,
			RenewalCounts: []uint32{0},
		},
		JoinedOn:              joinedOn,
		Memberships:           []externalapi.BlockNumber{membershipBlockNumber},
		MembershipChainableOn: []uint64{membershipChainableOn},
	}
}

// Renew applies a membership renewal. A member gets its renewal count
// incremented, an expired member starts a new era.
func Renew(idty *model.Identity, membershipBlockNumber externalapi.BlockNumber, membershipChainableOn uint64) error {
	counts := idty.State.RenewalCounts
	if len(counts) == 0 {
		return violation(idty, "no membership era")
	}

	switch idty.State.Kind {
	case model.IdentityStateMember:
		counts[len(counts)-1]++
	case model.IdentityStateExpiredMember:
		idty.State = model.IdentityState{
			Kind:          model.IdentityStateMember,
			RenewalCounts: append(counts, 0),
		}
		idty.ExpiredOn = nil
	default:
		return violation(idty, "cannot renew")
	}

	idty.Memberships = append(idty.Memberships, membershipBlockNumber)
	idty.MembershipChainableOn = append(idty.MembershipChainableOn, membershipChainableOn)
	return nil
}

// RevertRenewal undoes the last renewal
func RevertRenewal(idty *model.Identity) error {
	if idty.State.Kind != model.IdentityStateMember {
		return violation(idty, "cannot revert a renewal")
	}
	if len(idty.Memberships) < 2 || len(idty.MembershipChainableOn) < 2 {
		return violation(idty, "no renewal to revert")
	}

	counts := idty.State.RenewalCounts
	last := len(counts) - 1
	switch {
	case counts[last] > 0:
		counts[last]--
	case last > 0:
		if len(idty.Expiries) != last {
			return violation(idty, "%d expiries for %d eras", len(idty.Expiries), len(counts))
		}
		idty.State = model.IdentityState{
			Kind:          model.IdentityStateExpiredMember,
			RenewalCounts: counts[:last],
		}
		expiredOn := idty.Expiries[len(idty.Expiries)-1]
		idty.ExpiredOn = &expiredOn
	default:
		return violation(idty, "the renewal count of the first era is already zero")
	}

	idty.Memberships = idty.Memberships[:len(idty.Memberships)-1]
	idty.MembershipChainableOn = idty.MembershipChainableOn[:len(idty.MembershipChainableOn)-1]
	return nil
}

// Exclude moves a member to the expired state
func Exclude(idty *model.Identity, blockstamp externalapi.Blockstamp) error {
	if idty.State.Kind != model.IdentityStateMember {
		return violation(idty, "cannot exclude")
	}
	idty.State.Kind = model.IdentityStateExpiredMember
	idty.Expiries = append(idty.Expiries, blockstamp)
	expiredOn := blockstamp
	idty.ExpiredOn = &expiredOn
	return nil
}

// RevertExclusion undoes an exclusion made at blockstamp
func RevertExclusion(idty *model.Identity, blockstamp externalapi.Blockstamp) error {
	if idty.State.Kind != model.IdentityStateExpiredMember {
		return violation(idty, "cannot revert an exclusion")
	}
	if len(idty.Expiries) == 0 || idty.Expiries[len(idty.Expiries)-1] != blockstamp {
		return violation(idty, "was not excluded at %s", blockstamp)
	}
	idty.State.Kind = model.IdentityStateMember
	idty.Expiries = idty.Expiries[:len(idty.Expiries)-1]
	idty.ExpiredOn = nil
	return nil
}

// Revoke revokes a member or an expired member
func Revoke(idty *model.Identity, blockstamp externalapi.Blockstamp, explicit bool) error {
	switch idty.State.Kind {
	case model.IdentityStateMember:
		if explicit {
			idty.State.Kind = model.IdentityStateExplicitlyRevoked
		} else {
			idty.State.Kind = model.IdentityStateImplicitlyRevoked
		}
	case model.IdentityStateExpiredMember:
		if explicit {
			idty.State.Kind = model.IdentityStateExplicitlyRevokedAfterExpiry
		} else {
			idty.State.Kind = model.IdentityStateImplicitlyRevoked
		}
	default:
		return violation(idty, "cannot revoke")
	}
	revokedOn := blockstamp
	idty.RevokedOn = &revokedOn
	return nil
}

// RevertRevocation undoes a revocation, restoring the state the identity
// was revoked from
func RevertRevocation(idty *model.Identity, explicit bool) error {
	wasMember := len(idty.Expiries) == len(idty.State.RenewalCounts)-1
	switch {
	case explicit && idty.State.Kind == model.IdentityStateExplicitlyRevoked && wasMember:
		idty.State.Kind = model.IdentityStateMember
	case explicit && idty.State.Kind == model.IdentityStateExplicitlyRevokedAfterExpiry && !wasMember:
		idty.State.Kind = model.IdentityStateExpiredMember
	case !explicit && idty.State.Kind == model.IdentityStateImplicitlyRevoked:
		if wasMember {
			idty.State.Kind = model.IdentityStateMember
		} else {
			idty.State.Kind = model.IdentityStateExpiredMember
		}
	default:
		return violation(idty, "cannot revert an explicit=%t revocation", explicit)
	}
	idty.RevokedOn = nil
	return nil
}

// AddCertification records that the identity issued a certification
func AddCertification(idty *model.Identity, certificationChainableOn uint64) {
	idty.CertificationChainableOn = append(idty.CertificationChainableOn, certificationChainableOn)
}

// RevertCertification undoes AddCertification
func RevertCertification(idty *model.Identity) error {
	if len(idty.CertificationChainableOn) == 0 {
		return violation(idty, "no certification to revert")
	}
	idty.CertificationChainableOn = idty.CertificationChainableOn[:len(idty.CertificationChainableOn)-1]
	return nil
}

// IsMember returns whether the identity is an active member
func IsMember(idty *model.Identity) bool {
	return idty.State.Kind == model.IdentityStateMember
}
