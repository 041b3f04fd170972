package ruleerrors

import (
	"fmt"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// These constants are used to identify a specific RuleError.
var (
	// ErrExcludeUnknownNodeID indicates a block excluding an identity that
	// is not in the web of trust.
	ErrExcludeUnknownNodeID = newRuleError("ErrExcludeUnknownNodeID")

	// ErrRevokeUnknownNodeID indicates a block revoking an identity that
	// is not in the web of trust.
	ErrRevokeUnknownNodeID = newRuleError("ErrRevokeUnknownNodeID")

	// ErrStoreCorrupted indicates a block referencing identities the local
	// stores cannot resolve, although local validation accepted it.
	ErrStoreCorrupted = newRuleError("ErrStoreCorrupted")

	// ErrRenewUnknownIdentity indicates a membership of an identity that
	// is neither known nor written in the same block.
	ErrRenewUnknownIdentity = newRuleError("ErrRenewUnknownIdentity")

	// ErrDuplicateIdentity indicates a newcomer whose public key is
	// already in the web of trust.
	ErrDuplicateIdentity = newRuleError("ErrDuplicateIdentity")

	// ErrIdentityStateTransition indicates a membership, exclusion or
	// revocation that the identity lifecycle does not allow from the
	// current state of the identity.
	ErrIdentityStateTransition = newRuleError("ErrIdentityStateTransition")

	// ErrCertificationRejected indicates a certification the web of trust
	// cannot hold: a self certification, a duplicate, or one issued by an
	// identity without certifications left.
	ErrCertificationRejected = newRuleError("ErrCertificationRejected")

	// ErrDuplicateBlock indicates a block that is already known.
	ErrDuplicateBlock = newRuleError("ErrDuplicateBlock")

	// ErrKnownInvalid indicates a block that was previously found invalid,
	// or that descends from such a block.
	ErrKnownInvalid = newRuleError("ErrKnownInvalid")

	// ErrUnexpectedPreviousBlock indicates a block that does not extend the
	// block it is applied on.
	ErrUnexpectedPreviousBlock = newRuleError("ErrUnexpectedPreviousBlock")

	// ErrMissingTransaction indicates a reduced transaction whose full
	// document is not in the transaction store.
	ErrMissingTransaction = newRuleError("ErrMissingTransaction")

	// ErrDuplicateTransaction indicates a transaction whose hash was
	// already applied.
	ErrDuplicateTransaction = newRuleError("ErrDuplicateTransaction")

	// ErrUnbalancedTransaction indicates a transaction whose outputs
	// exceed its inputs.
	ErrUnbalancedTransaction = newRuleError("ErrUnbalancedTransaction")

	// ErrAmountOverflow indicates an amount, or a sum of amounts, that
	// does not fit in 64 bits once expressed in base-0 units.
	ErrAmountOverflow = newRuleError("ErrAmountOverflow")
)

// RuleError identifies a rule violation. It is used to indicate that
// processing of a block failed because of a protocol violation that local
// validation should have caught. The block is rejected and nothing it
// touched is committed.
type RuleError struct {
	message string
	inner   error
}

// Error satisfies the error interface and prints human-readable errors.
func (e RuleError) Error() string {
	if e.inner != nil {
		return e.message + ": " + e.inner.Error()
	}
	return e.message
}

// Unwrap satisfies the errors.Unwrap interface
func (e RuleError) Unwrap() error {
	return e.inner
}

// Cause satisfies the github.com/pkg/errors.Cause interface
func (e RuleError) Cause() error {
	return e.inner
}

func newRuleError(message string) RuleError {
	return RuleError{message: message, inner: nil}
}

// ErrMissingSources indicates transaction inputs referencing sources that
// either do not exist or were already consumed.
type ErrMissingSources struct {
	MissingSources []externalapi.SourceID
}

func (e ErrMissingSources) Error() string {
	return fmt.Sprintf("missing the following sources: %v", e.MissingSources)
}

// NewErrMissingSources creates a new ErrMissingSources error wrapped in a RuleError
func NewErrMissingSources(missingSources []externalapi.SourceID) error {
	return errors.WithStack(RuleError{
		message: "ErrMissingSources",
		inner:   ErrMissingSources{missingSources},
	})
}

// IsRuleError returns whether err is, or wraps, a RuleError
func IsRuleError(err error) bool {
	return errors.As(err, &RuleError{})
}
