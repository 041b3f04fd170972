package identity

import (
	"testing"

	"github.com/davecgh/go-spew/spew"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

func blockstamp(number externalapi.BlockNumber) externalapi.Blockstamp {
	return externalapi.Blockstamp{Number: number, Hash: externalapi.Hash{byte(number)}}
}

func newMember() *model.Identity {
	document := &externalapi.IdentityDocument{Issuer: "alice", Username: "alice", Hash: externalapi.Hash{0xa}}
	return New(document, 0, blockstamp(1), 1, 100)
}

type event struct {
	name   string
	apply  func(idty *model.Identity) error
	revert func(idty *model.Identity) error
}

var (
	renewal = event{
		name:   "renewal",
		apply:  func(idty *model.Identity) error { return Renew(idty, 7, 700) },
		revert: RevertRenewal,
	}
	exclusion = event{
		name:   "exclusion",
		apply:  func(idty *model.Identity) error { return Exclude(idty, blockstamp(8)) },
		revert: func(idty *model.Identity) error { return RevertExclusion(idty, blockstamp(8)) },
	}
	explicitRevocation = event{
		name:   "explicit revocation",
		apply:  func(idty *model.Identity) error { return Revoke(idty, blockstamp(9), true) },
		revert: func(idty *model.Identity) error { return RevertRevocation(idty, true) },
	}
	implicitRevocation = event{
		name:   "implicit revocation",
		apply:  func(idty *model.Identity) error { return Revoke(idty, blockstamp(9), false) },
		revert: func(idty *model.Identity) error { return RevertRevocation(idty, false) },
	}
)

// states returns one identity per reachable state, built through the
// transitions themselves
func states(t *testing.T) map[string]*model.Identity {
	member := newMember()

	renewedMember := newMember()
	mustApply(t, renewedMember, renewal)

	expired := newMember()
	mustApply(t, expired, renewal)
	mustApply(t, expired, exclusion)

	rejoined := expired.Clone()
	mustApply(t, rejoined, renewal)

	explicitlyRevoked := newMember()
	mustApply(t, explicitlyRevoked, explicitRevocation)

	revokedAfterExpiry := expired.Clone()
	mustApply(t, revokedAfterExpiry, explicitRevocation)

	implicitlyRevoked := expired.Clone()
	mustApply(t, implicitlyRevoked, implicitRevocation)

	return map[string]*model.Identity{
		"member":               member,
		"renewed member":       renewedMember,
		"expired member":       expired,
		"rejoined member":      rejoined,
		"explicitly revoked":   explicitlyRevoked,
		"revoked after expiry": revokedAfterExpiry,
		"implicitly revoked":   implicitlyRevoked,
	}
}

func mustApply(t *testing.T, idty *model.Identity, e event) {
	err := e.apply(idty)
	if err != nil {
		t.Fatalf("%s: %s", e.name, err)
	}
}

func TestTransitionsAreExactlyReversible(t *testing.T) {
	events := []event{renewal, exclusion, explicitRevocation, implicitRevocation}
	for stateName, original := range states(t) {
		for _, e := range events {
			idty := original.Clone()
			err := e.apply(idty)
			if err != nil {
				if !errors.Is(err, ErrContractViolation) {
					t.Fatalf("%s from %s: unexpected error %s", e.name, stateName, err)
				}
				if !idty.Equal(original) {
					t.Fatalf("%s from %s failed but mutated the identity", e.name, stateName)
				}
				continue
			}
			err = e.revert(idty)
			if err != nil {
				t.Fatalf("reverting %s from %s: %s", e.name, stateName, err)
			}
			if !idty.Equal(original) {
				t.Fatalf("reverting %s from %s did not restore the identity. Want: %s, got: %s",
					e.name, stateName, spew.Sdump(original), spew.Sdump(idty))
			}
		}
	}
}

func TestTransitionTable(t *testing.T) {
	tests := []struct {
		state         string
		event         event
		expectedKind  model.IdentityStateKind
		expectedCount []uint32
		expectError   bool
	}{
		{state: "member", event: renewal, expectedKind: model.IdentityStateMember, expectedCount: []uint32{1}},
		{state: "renewed member", event: renewal, expectedKind: model.IdentityStateMember, expectedCount: []uint32{2}},
		{state: "expired member", event: renewal, expectedKind: model.IdentityStateMember, expectedCount: []uint32{1, 0}},
		{state: "member", event: exclusion, expectedKind: model.IdentityStateExpiredMember, expectedCount: []uint32{0}},
		{state: "expired member", event: exclusion, expectError: true},
		{state: "member", event: explicitRevocation, expectedKind: model.IdentityStateExplicitlyRevoked, expectedCount: []uint32{0}},
		{state: "expired member", event: explicitRevocation, expectedKind: model.IdentityStateExplicitlyRevokedAfterExpiry, expectedCount: []uint32{1}},
		{state: "member", event: implicitRevocation, expectedKind: model.IdentityStateImplicitlyRevoked, expectedCount: []uint32{0}},
		{state: "expired member", event: implicitRevocation, expectedKind: model.IdentityStateImplicitlyRevoked, expectedCount: []uint32{1}},
		{state: "explicitly revoked", event: renewal, expectError: true},
		{state: "explicitly revoked", event: exclusion, expectError: true},
		{state: "revoked after expiry", event: explicitRevocation, expectError: true},
		{state: "implicitly revoked", event: implicitRevocation, expectError: true},
	}

	all := states(t)
	for _, test := range tests {
		idty := all[test.state].Clone()
		err := test.event.apply(idty)
		if test.expectError {
			if !errors.Is(err, ErrContractViolation) {
				t.Fatalf("%s from %s: got %v, want ErrContractViolation", test.event.name, test.state, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("%s from %s: %s", test.event.name, test.state, err)
		}
		if idty.State.Kind != test.expectedKind || !slices.Equal(idty.State.RenewalCounts, test.expectedCount) {
			t.Fatalf("%s from %s: got %s, want %s(%v)", test.event.name, test.state,
				idty.State, test.expectedKind, test.expectedCount)
		}
	}
}

func TestRevertFromWrongState(t *testing.T) {
	all := states(t)

	err := RevertRenewal(all["member"].Clone())
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("reverting a renewal of a fresh member: got %v, want ErrContractViolation", err)
	}
	err = RevertExclusion(all["member"].Clone(), blockstamp(8))
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("reverting an exclusion of a member: got %v, want ErrContractViolation", err)
	}
	err = RevertExclusion(all["expired member"].Clone(), blockstamp(9))
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("reverting an exclusion made at another block: got %v, want ErrContractViolation", err)
	}
	err = RevertRevocation(all["explicitly revoked"].Clone(), false)
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("reverting an implicit revocation of an explicitly revoked identity: got %v, "+
			"want ErrContractViolation", err)
	}
	err = RevertCertification(all["member"].Clone())
	if !errors.Is(err, ErrContractViolation) {
		t.Fatalf("reverting a certification that was never issued: got %v, want ErrContractViolation", err)
	}
}

func TestRejoinKeepsExpiryHistory(t *testing.T) {
	idty := states(t)["rejoined member"]
	if idty.ExpiredOn != nil {
		t.Fatalf("a rejoined member has ExpiredOn set to %s", idty.ExpiredOn)
	}
	err := RevertRenewal(idty)
	if err != nil {
		t.Fatalf("RevertRenewal: %s", err)
	}
	if idty.State.Kind != model.IdentityStateExpiredMember || idty.ExpiredOn == nil ||
		*idty.ExpiredOn != blockstamp(8) {
		t.Fatalf("reverting a rejoin did not restore the expiry: %s", spew.Sdump(idty))
	}
}
