package wot

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrSelfLinkingForbidden indicates an attempt to certify oneself
	ErrSelfLinkingForbidden = errors.New("self linking is forbidden")

	// ErrUnknownSource indicates that the link source is not in the graph
	ErrUnknownSource = errors.New("unknown source")

	// ErrUnknownTarget indicates that the link target is not in the graph
	ErrUnknownTarget = errors.New("unknown target")

	// ErrUnknownCert indicates that the link to remove does not exist
	ErrUnknownCert = errors.New("unknown certification")

	// ErrTruncatedSnapshot indicates that a graph snapshot was not consumed
	// exactly. Snapshots are not self-synchronizing, so this means the
	// stored graph is corrupted.
	ErrTruncatedSnapshot = errors.New("truncated web of trust snapshot")
)

// AllCertificationsUsedError indicates that the source already issued
// as many certifications as allowed
type AllCertificationsUsedError struct {
	InboundCount int
}

func (e AllCertificationsUsedError) Error() string {
	return fmt.Sprintf("all certifications used (target has %d certifications)", e.InboundCount)
}

// AlreadyCertifiedError indicates that the link already exists
type AlreadyCertifiedError struct {
	InboundCount int
}

func (e AlreadyCertifiedError) Error() string {
	return fmt.Sprintf("already certified (target has %d certifications)", e.InboundCount)
}
