package wot

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

type node struct {
	enabled     bool
	linksSource map[model.NodeID]struct{}
	issuedCount int
}

func newNode() *node {
	return &node{
		enabled:     true,
		linksSource: make(map[model.NodeID]struct{}),
	}
}

// Graph is the dense-vector implementation of model.WebOfTrust
type Graph struct {
	nodes    []*node
	maxLinks int
}

// New returns an empty graph whose nodes may each issue at most maxLinks certifications
func New(maxLinks int) *Graph {
	return &Graph{maxLinks: maxLinks}
}

// AddNode implements model.WebOfTrust
func (g *Graph) AddNode() model.NodeID {
	g.nodes = append(g.nodes, newNode())
	return model.NodeID(len(g.nodes) - 1)
}

// RemoveLastNode implements model.WebOfTrust
func (g *Graph) RemoveLastNode() (model.NodeID, bool) {
	if len(g.nodes) == 0 {
		return 0, false
	}
	lastID := model.NodeID(len(g.nodes) - 1)
	last := g.nodes[lastID]
	for source := range last.linksSource {
		g.nodes[source].issuedCount--
	}
	for _, other := range g.nodes[:lastID] {
		delete(other.linksSource, lastID)
	}
	g.nodes = g.nodes[:lastID]
	return lastID, true
}

func (g *Graph) node(id model.NodeID) (*node, bool) {
	if int(id) >= len(g.nodes) {
		return nil, false
	}
	return g.nodes[id], true
}

// SetEnabled implements model.WebOfTrust
func (g *Graph) SetEnabled(id model.NodeID, enabled bool) (bool, bool) {
	n, ok := g.node(id)
	if !ok {
		return false, false
	}
	previous := n.enabled
	n.enabled = enabled
	return previous, true
}

// IsEnabled implements model.WebOfTrust
func (g *Graph) IsEnabled(id model.NodeID) (bool, bool) {
	n, ok := g.node(id)
	if !ok {
		return false, false
	}
	return n.enabled, true
}

// AddLink implements model.WebOfTrust
func (g *Graph) AddLink(source, target model.NodeID) (int, error) {
	if source == target {
		return 0, errors.WithStack(ErrSelfLinkingForbidden)
	}
	sourceNode, ok := g.node(source)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownSource, "node %d", source)
	}
	targetNode, ok := g.node(target)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTarget, "node %d", target)
	}
	if sourceNode.issuedCount >= g.maxLinks {
		return 0, errors.WithStack(AllCertificationsUsedError{InboundCount: len(targetNode.linksSource)})
	}
	if _, ok := targetNode.linksSource[source]; ok {
		return 0, errors.WithStack(AlreadyCertifiedError{InboundCount: len(targetNode.linksSource)})
	}

	sourceNode.issuedCount++
	targetNode.linksSource[source] = struct{}{}
	return len(targetNode.linksSource), nil
}

// RemoveLink implements model.WebOfTrust
func (g *Graph) RemoveLink(source, target model.NodeID) (int, error) {
	sourceNode, ok := g.node(source)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownSource, "node %d", source)
	}
	targetNode, ok := g.node(target)
	if !ok {
		return 0, errors.Wrapf(ErrUnknownTarget, "node %d", target)
	}
	if _, ok := targetNode.linksSource[source]; !ok {
		return 0, errors.Wrapf(ErrUnknownCert, "link %d->%d", source, target)
	}

	sourceNode.issuedCount--
	delete(targetNode.linksSource, source)
	return len(targetNode.linksSource), nil
}

// Enabled implements model.WebOfTrust
func (g *Graph) Enabled() []model.NodeID {
	enabled := make([]model.NodeID, 0, len(g.nodes))
	for i, n := range g.nodes {
		if n.enabled {
			enabled = append(enabled, model.NodeID(i))
		}
	}
	return enabled
}

// LinksSource implements model.WebOfTrust
func (g *Graph) LinksSource(target model.NodeID) ([]model.NodeID, bool) {
	n, ok := g.node(target)
	if !ok {
		return nil, false
	}
	sources := maps.Keys(n.linksSource)
	slices.Sort(sources)
	return sources, true
}

// IssuedCount implements model.WebOfTrust
func (g *Graph) IssuedCount(id model.NodeID) (int, bool) {
	n, ok := g.node(id)
	if !ok {
		return 0, false
	}
	return n.issuedCount, true
}

// Size implements model.WebOfTrust
func (g *Graph) Size() int {
	return len(g.nodes)
}

// MaxLinks implements model.WebOfTrust
func (g *Graph) MaxLinks() int {
	return g.maxLinks
}

// Clone implements model.WebOfTrust
func (g *Graph) Clone() model.WebOfTrust {
	clone := &Graph{
		nodes:    make([]*node, len(g.nodes)),
		maxLinks: g.maxLinks,
	}
	for i, n := range g.nodes {
		clone.nodes[i] = &node{
			enabled:     n.enabled,
			linksSource: maps.Clone(n.linksSource),
			issuedCount: n.issuedCount,
		}
	}
	return clone
}

// CheckInvariants verifies that no node certifies itself, that every
// issued count matches the links pointing out of its node, and that no
// issued count exceeds MaxLinks.
func CheckInvariants(graph model.WebOfTrust) error {
	issued := make([]int, graph.Size())
	for target := 0; target < graph.Size(); target++ {
		sources, _ := graph.LinksSource(model.NodeID(target))
		for _, source := range sources {
			if int(source) == target {
				return errors.Errorf("node %d certifies itself", target)
			}
			if int(source) >= graph.Size() {
				return errors.Errorf("node %d is certified by unknown node %d", target, source)
			}
			issued[source]++
		}
	}
	for id, expected := range issued {
		issuedCount, _ := graph.IssuedCount(model.NodeID(id))
		if issuedCount != expected {
			return errors.Errorf("node %d has an issued count of %d but issued %d links",
				id, issuedCount, expected)
		}
		if issuedCount > graph.MaxLinks() {
			return errors.Errorf("node %d issued %d links, more than the maximum of %d",
				id, issuedCount, graph.MaxLinks())
		}
	}
	return nil
}

// Equal returns whether both graphs hold the same nodes and links
func Equal(a, b model.WebOfTrust) bool {
	if a.Size() != b.Size() || a.MaxLinks() != b.MaxLinks() {
		return false
	}
	for i := 0; i < a.Size(); i++ {
		id := model.NodeID(i)
		enabledA, _ := a.IsEnabled(id)
		enabledB, _ := b.IsEnabled(id)
		if enabledA != enabledB {
			return false
		}
		issuedA, _ := a.IssuedCount(id)
		issuedB, _ := b.IssuedCount(id)
		if issuedA != issuedB {
			return false
		}
		sourcesA, _ := a.LinksSource(id)
		sourcesB, _ := b.LinksSource(id)
		if !slices.Equal(sourcesA, sourcesB) {
			return false
		}
	}
	return true
}
