package wot

import (
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

func TestAddAndRemoveNodes(t *testing.T) {
	graph := New(3)
	if graph.Size() != 0 {
		t.Fatalf("new graph has %d nodes", graph.Size())
	}
	if _, ok := graph.RemoveLastNode(); ok {
		t.Fatalf("RemoveLastNode on an empty graph unexpectedly succeeded")
	}

	for i := 0; i < 3; i++ {
		id := graph.AddNode()
		if id != model.NodeID(i) {
			t.Fatalf("AddNode returned %d, want %d", id, i)
		}
		enabled, ok := graph.IsEnabled(id)
		if !ok || !enabled {
			t.Fatalf("new node %d is not enabled", id)
		}
	}

	previous, ok := graph.SetEnabled(1, false)
	if !ok || !previous {
		t.Fatalf("SetEnabled(1, false) returned (%t, %t)", previous, ok)
	}
	if _, ok := graph.SetEnabled(3, false); ok {
		t.Fatalf("SetEnabled on an unknown node unexpectedly succeeded")
	}
	if !slices.Equal(graph.Enabled(), []model.NodeID{0, 2}) {
		t.Fatalf("Enabled() returned %v", graph.Enabled())
	}

	// Links from and to the last node go away with it
	mustAddLink(t, graph, 2, 0)
	mustAddLink(t, graph, 1, 2)
	id, ok := graph.RemoveLastNode()
	if !ok || id != 2 {
		t.Fatalf("RemoveLastNode returned (%d, %t)", id, ok)
	}
	if issued, _ := graph.IssuedCount(1); issued != 0 {
		t.Fatalf("issued count of node 1 is %d after removing its target", issued)
	}
	if sources, _ := graph.LinksSource(0); len(sources) != 0 {
		t.Fatalf("node 0 is still certified by %v", sources)
	}
	err := CheckInvariants(graph)
	if err != nil {
		t.Fatalf("CheckInvariants: %s", err)
	}
}

func mustAddLink(t *testing.T, graph *Graph, source, target model.NodeID) int {
	count, err := graph.AddLink(source, target)
	if err != nil {
		t.Fatalf("AddLink(%d, %d): %s", source, target, err)
	}
	return count
}

func TestAddLinkErrors(t *testing.T) {
	graph := New(2)
	for i := 0; i < 4; i++ {
		graph.AddNode()
	}

	if count := mustAddLink(t, graph, 0, 1); count != 1 {
		t.Fatalf("AddLink(0, 1) returned %d, want 1", count)
	}
	if count := mustAddLink(t, graph, 2, 1); count != 2 {
		t.Fatalf("AddLink(2, 1) returned %d, want 2", count)
	}

	_, err := graph.AddLink(1, 1)
	if !errors.Is(err, ErrSelfLinkingForbidden) {
		t.Fatalf("AddLink(1, 1): got %v, want ErrSelfLinkingForbidden", err)
	}
	_, err = graph.AddLink(4, 1)
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("AddLink(4, 1): got %v, want ErrUnknownSource", err)
	}
	_, err = graph.AddLink(1, 4)
	if !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("AddLink(1, 4): got %v, want ErrUnknownTarget", err)
	}

	var alreadyCertified AlreadyCertifiedError
	_, err = graph.AddLink(0, 1)
	if !errors.As(err, &alreadyCertified) || alreadyCertified.InboundCount != 2 {
		t.Fatalf("AddLink(0, 1) twice: got %v, want AlreadyCertifiedError(2)", err)
	}

	mustAddLink(t, graph, 0, 3)
	var allUsed AllCertificationsUsedError
	_, err = graph.AddLink(0, 2)
	if !errors.As(err, &allUsed) || allUsed.InboundCount != 0 {
		t.Fatalf("AddLink(0, 2) beyond the maximum: got %v, want AllCertificationsUsedError(0)", err)
	}

	err = CheckInvariants(graph)
	if err != nil {
		t.Fatalf("CheckInvariants: %s", err)
	}
}

func TestRemoveLink(t *testing.T) {
	graph := New(5)
	for i := 0; i < 3; i++ {
		graph.AddNode()
	}
	mustAddLink(t, graph, 0, 1)
	mustAddLink(t, graph, 2, 1)

	count, err := graph.RemoveLink(0, 1)
	if err != nil {
		t.Fatalf("RemoveLink(0, 1): %s", err)
	}
	if count != 1 {
		t.Fatalf("RemoveLink(0, 1) returned %d, want 1", count)
	}
	if issued, _ := graph.IssuedCount(0); issued != 0 {
		t.Fatalf("issued count of node 0 is %d, want 0", issued)
	}

	_, err = graph.RemoveLink(0, 1)
	if !errors.Is(err, ErrUnknownCert) {
		t.Fatalf("RemoveLink(0, 1) twice: got %v, want ErrUnknownCert", err)
	}
	_, err = graph.RemoveLink(3, 1)
	if !errors.Is(err, ErrUnknownSource) {
		t.Fatalf("RemoveLink(3, 1): got %v, want ErrUnknownSource", err)
	}
	_, err = graph.RemoveLink(0, 3)
	if !errors.Is(err, ErrUnknownTarget) {
		t.Fatalf("RemoveLink(0, 3): got %v, want ErrUnknownTarget", err)
	}
}

// TestInvariantsUnderRandomOperations drives the graph through a
// deterministic pseudo-random sequence of operations and checks the
// graph invariants after each of them.
func TestInvariantsUnderRandomOperations(t *testing.T) {
	graph := New(4)
	seed := uint32(12345)
	next := func(n int) int {
		seed = seed*1103515245 + 12345
		return int((seed >> 16) % uint32(n))
	}

	for step := 0; step < 2000; step++ {
		switch next(6) {
		case 0:
			graph.AddNode()
		case 1:
			if next(4) == 0 {
				graph.RemoveLastNode()
			}
		case 2:
			if graph.Size() > 0 {
				graph.SetEnabled(model.NodeID(next(graph.Size())), next(2) == 0)
			}
		case 3, 4:
			if graph.Size() > 0 {
				graph.AddLink(model.NodeID(next(graph.Size()+1)), model.NodeID(next(graph.Size()+1)))
			}
		case 5:
			if graph.Size() > 0 {
				graph.RemoveLink(model.NodeID(next(graph.Size())), model.NodeID(next(graph.Size())))
			}
		}
		err := CheckInvariants(graph)
		if err != nil {
			t.Fatalf("step %d: %s", step, err)
		}
	}
}

func TestClone(t *testing.T) {
	graph := New(3)
	graph.AddNode()
	graph.AddNode()
	mustAddLink(t, graph, 0, 1)

	clone := graph.Clone()
	if !Equal(graph, clone) {
		t.Fatalf("clone differs from its origin")
	}
	_, err := clone.RemoveLink(0, 1)
	if err != nil {
		t.Fatalf("RemoveLink: %s", err)
	}
	if Equal(graph, clone) {
		t.Fatalf("mutating the clone mutated its origin")
	}
	if sources, _ := graph.LinksSource(1); !slices.Equal(sources, []model.NodeID{0}) {
		t.Fatalf("origin links of node 1 are %v", sources)
	}
}
