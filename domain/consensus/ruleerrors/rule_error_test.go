package ruleerrors

import (
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

func TestNewErrMissingSources(t *testing.T) {
	missing := externalapi.NewDividendSourceID("alice", 5)
	outer := NewErrMissingSources([]externalapi.SourceID{missing})
	expectedOuterErr := "ErrMissingSources: missing the following sources: [" + missing.String() + "]"

	inner := &ErrMissingSources{}
	if !errors.As(outer, inner) {
		t.Fatal("TestNewErrMissingSources: Outer should contain ErrMissingSources in it")
	}
	if len(inner.MissingSources) != 1 || inner.MissingSources[0] != missing {
		t.Fatalf("TestNewErrMissingSources: Expected [%s], found: %v", missing, inner.MissingSources)
	}

	rule := &RuleError{}
	if !errors.As(outer, rule) {
		t.Fatal("TestNewErrMissingSources: Outer should contain RuleError in it")
	}
	if rule.message != "ErrMissingSources" {
		t.Fatalf("TestNewErrMissingSources: Expected message = 'ErrMissingSources', found: '%s'", rule.message)
	}
	if outer.Error() != expectedOuterErr {
		t.Fatalf("TestNewErrMissingSources: Expected %s. found: %s", expectedOuterErr, outer.Error())
	}
}

func TestWrappedRuleError(t *testing.T) {
	err := errors.Wrapf(ErrExcludeUnknownNodeID, "cannot exclude %s", "alice")
	if !errors.Is(err, ErrExcludeUnknownNodeID) {
		t.Fatalf("TestWrappedRuleError: %s should wrap ErrExcludeUnknownNodeID", err)
	}
	if errors.Is(err, ErrRevokeUnknownNodeID) {
		t.Fatalf("TestWrappedRuleError: %s should not match ErrRevokeUnknownNodeID", err)
	}
	if !IsRuleError(err) {
		t.Fatalf("TestWrappedRuleError: %s should be a rule error", err)
	}
	if IsRuleError(errors.New("storage failure")) {
		t.Fatalf("TestWrappedRuleError: a plain error should not be a rule error")
	}
}
