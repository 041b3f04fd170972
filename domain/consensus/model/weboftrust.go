package model

import "fmt"

// NodeID is the dense index of an identity in the web of trust graph
type NodeID uint32

// CertLink is a certification edge from Source to Target
type CertLink struct {
	Source NodeID
	Target NodeID
}

func (link CertLink) String() string {
	return fmt.Sprintf("%d->%d", link.Source, link.Target)
}

// WebOfTrust is the certification graph of the identities.
// Nodes are never removed except the last one, so that a NodeID
// stays valid for the whole lifetime of its identity.
type WebOfTrust interface {
	// AddNode appends a new enabled node without links and returns its id
	AddNode() NodeID

	// RemoveLastNode pops the highest-id node. It returns false if the
	// graph is empty.
	RemoveLastNode() (NodeID, bool)

	// SetEnabled sets whether the node is an active member. It returns the
	// previous value, and false if the node does not exist.
	SetEnabled(id NodeID, enabled bool) (previous bool, ok bool)

	// IsEnabled returns whether the node is enabled, and false if the node
	// does not exist.
	IsEnabled(id NodeID) (enabled bool, ok bool)

	// AddLink adds a certification from source to target and returns the
	// new count of certifications received by target.
	AddLink(source, target NodeID) (int, error)

	// RemoveLink removes the certification from source to target and returns
	// the new count of certifications received by target.
	RemoveLink(source, target NodeID) (int, error)

	// Enabled returns the enabled nodes in ascending order
	Enabled() []NodeID

	// LinksSource returns the certifiers of target in ascending order
	LinksSource(target NodeID) ([]NodeID, bool)

	// IssuedCount returns the number of certifications currently issued by id
	IssuedCount(id NodeID) (int, bool)

	// Size returns the number of nodes
	Size() int

	// MaxLinks returns the maximum number of certifications a node may issue
	MaxLinks() int

	// Clone returns a deep copy of the graph
	Clone() WebOfTrust
}
