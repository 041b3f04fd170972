package forktree

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// TreeNodeID is the arena index of a node in the fork tree
type TreeNodeID uint32

type treeNode struct {
	blockstamp externalapi.Blockstamp
	parent     *TreeNodeID
	children   []TreeNodeID
}

// ForkTree tracks the blocks of the fork window: the main branch and
// every competing branch rooted inside it. Nodes live in an arena whose
// freed slots are reused.
type ForkTree struct {
	nodes      []*treeNode
	freeSlots  []TreeNodeID
	root       *TreeNodeID
	mainBranch map[externalapi.BlockNumber]TreeNodeID
	tip        externalapi.BlockNumber // meaningful only when mainBranch is not empty
	sheets     map[TreeNodeID]struct{}
	byStamp    map[externalapi.Blockstamp]TreeNodeID
	windowSize uint32
}

// Sheet is a leaf of the fork tree
type Sheet struct {
	ID         TreeNodeID
	Blockstamp externalapi.Blockstamp
}

// New returns an empty fork tree keeping windowSize main branch blocks
func New(windowSize uint32) *ForkTree {
	return &ForkTree{
		mainBranch: make(map[externalapi.BlockNumber]TreeNodeID),
		sheets:     make(map[TreeNodeID]struct{}),
		byStamp:    make(map[externalapi.Blockstamp]TreeNodeID),
		windowSize: windowSize,
	}
}

// WindowSize returns the number of main branch blocks the tree keeps
func (ft *ForkTree) WindowSize() uint32 {
	return ft.windowSize
}

// Size returns the number of blocks in the tree
func (ft *ForkTree) Size() int {
	return len(ft.byStamp)
}

// MainBranchSize returns the number of main branch blocks in the tree
func (ft *ForkTree) MainBranchSize() int {
	return len(ft.mainBranch)
}

// CurrentBlockstamp returns the tip of the main branch
func (ft *ForkTree) CurrentBlockstamp() (externalapi.Blockstamp, bool) {
	if len(ft.mainBranch) == 0 {
		return externalapi.Blockstamp{}, false
	}
	tip := ft.nodes[ft.mainBranch[ft.tipNumber()]]
	return tip.blockstamp, true
}

func (ft *ForkTree) tipNumber() externalapi.BlockNumber {
	return ft.tip
}

// MainBranchBlockstamp returns the main branch block with the given number
func (ft *ForkTree) MainBranchBlockstamp(number externalapi.BlockNumber) (externalapi.Blockstamp, bool) {
	id, ok := ft.mainBranch[number]
	if !ok {
		return externalapi.Blockstamp{}, false
	}
	return ft.nodes[id].blockstamp, true
}

// FindNodeWithBlockstamp returns the id of the node holding blockstamp
func (ft *ForkTree) FindNodeWithBlockstamp(blockstamp externalapi.Blockstamp) (TreeNodeID, bool) {
	id, ok := ft.byStamp[blockstamp]
	return id, ok
}

// Blockstamp returns the blockstamp held by a node
func (ft *ForkTree) Blockstamp(id TreeNodeID) (externalapi.Blockstamp, bool) {
	node, ok := ft.node(id)
	if !ok {
		return externalapi.Blockstamp{}, false
	}
	return node.blockstamp, true
}

// IsMainBranch returns whether the node is on the main branch
func (ft *ForkTree) IsMainBranch(id TreeNodeID) bool {
	node, ok := ft.node(id)
	if !ok {
		return false
	}
	mainID, ok := ft.mainBranch[node.blockstamp.Number]
	return ok && mainID == id
}

func (ft *ForkTree) node(id TreeNodeID) (*treeNode, bool) {
	if int(id) >= len(ft.nodes) || ft.nodes[id] == nil {
		return nil, false
	}
	return ft.nodes[id], true
}

// Sheets returns the leaves of the tree, highest block number first
func (ft *ForkTree) Sheets() []Sheet {
	sheets := make([]Sheet, 0, len(ft.sheets))
	for id := range ft.sheets {
		sheets = append(sheets, Sheet{ID: id, Blockstamp: ft.nodes[id].blockstamp})
	}
	slices.SortFunc(sheets, func(a, b Sheet) int {
		if a.Blockstamp.Number != b.Blockstamp.Number {
			if a.Blockstamp.Number > b.Blockstamp.Number {
				return -1
			}
			return 1
		}
		return a.Blockstamp.Hash.Compare(b.Blockstamp.Hash)
	})
	return sheets
}

// PathFromRoot returns the blockstamps from the root of the tree down to
// the given node
func (ft *ForkTree) PathFromRoot(id TreeNodeID) ([]externalapi.Blockstamp, error) {
	path, err := ft.pathUntil(id, func(TreeNodeID) bool { return false })
	if err != nil {
		return nil, err
	}
	return path, nil
}

// ForkBranch returns the blockstamps of the branch ending at the given
// node, from its first node outside of the main branch down to the node
// itself. It is empty for a main branch node.
func (ft *ForkTree) ForkBranch(id TreeNodeID) ([]externalapi.Blockstamp, error) {
	return ft.pathUntil(id, ft.IsMainBranch)
}

func (ft *ForkTree) pathUntil(id TreeNodeID, stop func(TreeNodeID) bool) ([]externalapi.Blockstamp, error) {
	var path []externalapi.Blockstamp
	current := id
	for {
		node, ok := ft.node(current)
		if !ok {
			return nil, errors.Errorf("fork tree has no node %d", current)
		}
		if stop(current) {
			break
		}
		path = append(path, node.blockstamp)
		if node.parent == nil {
			break
		}
		current = *node.parent
	}
	slices.Reverse(path)
	return path, nil
}

func (ft *ForkTree) insertNode(blockstamp externalapi.Blockstamp, parent *TreeNodeID) TreeNodeID {
	node := &treeNode{blockstamp: blockstamp, parent: parent}

	var id TreeNodeID
	if len(ft.freeSlots) > 0 {
		id = ft.freeSlots[len(ft.freeSlots)-1]
		ft.freeSlots = ft.freeSlots[:len(ft.freeSlots)-1]
		ft.nodes[id] = node
	} else {
		id = TreeNodeID(len(ft.nodes))
		ft.nodes = append(ft.nodes, node)
	}

	if parent == nil {
		ft.root = &id
	} else {
		parentNode := ft.nodes[*parent]
		parentNode.children = append(parentNode.children, id)
		delete(ft.sheets, *parent)
	}
	ft.sheets[id] = struct{}{}
	ft.byStamp[blockstamp] = id
	return id
}

// InsertMainBranchNode appends blockstamp to the main branch and returns
// the blockstamps that fell out of the fork window, oldest first
func (ft *ForkTree) InsertMainBranchNode(blockstamp externalapi.Blockstamp) ([]externalapi.Blockstamp, error) {
	if _, exists := ft.byStamp[blockstamp]; exists {
		return nil, errors.Errorf("block %s is already in the fork tree", blockstamp)
	}

	var parent *TreeNodeID
	if len(ft.mainBranch) == 0 && len(ft.byStamp) > 0 {
		return nil, errors.Errorf("cannot insert block %s: the fork tree has no main branch", blockstamp)
	}
	if len(ft.mainBranch) > 0 {
		tipNumber := ft.tipNumber()
		if blockstamp.Number != tipNumber+1 {
			return nil, errors.Errorf("cannot append block %s to a main branch ending at block %d",
				blockstamp, tipNumber)
		}
		tipID := ft.mainBranch[tipNumber]
		parent = &tipID
	}

	id := ft.insertNode(blockstamp, parent)
	ft.mainBranch[blockstamp.Number] = id
	ft.tip = blockstamp.Number
	return ft.pruneWindow(), nil
}

// InsertForkNode attaches blockstamp under the node whose hash is
// previousHash. It returns false when no such node exists, in which case
// the block is an orphan.
func (ft *ForkTree) InsertForkNode(blockstamp externalapi.Blockstamp, previousHash externalapi.Hash) (bool, error) {
	if blockstamp.Number == 0 {
		return false, nil
	}
	if _, exists := ft.byStamp[blockstamp]; exists {
		return false, errors.Errorf("block %s is already in the fork tree", blockstamp)
	}
	parentID, ok := ft.byStamp[externalapi.Blockstamp{Number: blockstamp.Number - 1, Hash: previousHash}]
	if !ok {
		return false, nil
	}
	ft.insertNode(blockstamp, &parentID)
	return true, nil
}

// ChangeMainBranch makes the branch ending at newTip the main branch, in
// place of the one ending at oldTip, and returns the blockstamps that fell
// out of the fork window. Setting newTip to the parent of oldTip reverts
// the current block, which stays in the tree as a fork.
func (ft *ForkTree) ChangeMainBranch(oldTip, newTip externalapi.Blockstamp) ([]externalapi.Blockstamp, error) {
	current, ok := ft.CurrentBlockstamp()
	if !ok || current != oldTip {
		return nil, errors.Errorf("cannot switch main branch from %s: current block is %s", oldTip, current)
	}
	newTipID, ok := ft.byStamp[newTip]
	if !ok {
		return nil, errors.Errorf("cannot switch main branch to unknown block %s", newTip)
	}

	for number := newTip.Number + 1; number <= ft.tip; number++ {
		delete(ft.mainBranch, number)
	}
	ft.tip = newTip.Number
	id := newTipID
	for {
		node := ft.nodes[id]
		if mainID, ok := ft.mainBranch[node.blockstamp.Number]; ok && mainID == id {
			break
		}
		ft.mainBranch[node.blockstamp.Number] = id
		if node.parent == nil {
			break
		}
		id = *node.parent
	}

	log.Debugf("Main branch switched from %s to %s", oldTip, newTip)
	return ft.pruneWindow(), nil
}

// pruneWindow removes the oldest main branch nodes, along with the fork
// branches rooted on them, until the main branch fits the window
func (ft *ForkTree) pruneWindow() []externalapi.Blockstamp {
	var removed []externalapi.Blockstamp
	for uint32(len(ft.mainBranch)) > ft.windowSize && ft.root != nil {
		rootID := *ft.root
		root := ft.nodes[rootID]

		var nextRoot *TreeNodeID
		for _, childID := range root.children {
			if ft.IsMainBranch(childID) {
				id := childID
				nextRoot = &id
				continue
			}
			removed = ft.removeSubtree(childID, removed)
		}

		removed = append(removed, root.blockstamp)
		ft.freeNode(rootID)
		delete(ft.mainBranch, root.blockstamp.Number)

		ft.root = nextRoot
		if nextRoot != nil {
			ft.nodes[*nextRoot].parent = nil
		}
	}
	if len(removed) > 0 {
		log.Tracef("Removed %d blocks out of the fork window", len(removed))
	}
	return removed
}

func (ft *ForkTree) removeSubtree(id TreeNodeID, removed []externalapi.Blockstamp) []externalapi.Blockstamp {
	node := ft.nodes[id]
	removed = append(removed, node.blockstamp)
	for _, childID := range node.children {
		removed = ft.removeSubtree(childID, removed)
	}
	ft.freeNode(id)
	return removed
}

func (ft *ForkTree) freeNode(id TreeNodeID) {
	delete(ft.byStamp, ft.nodes[id].blockstamp)
	delete(ft.sheets, id)
	ft.nodes[id] = nil
	ft.freeSlots = append(ft.freeSlots, id)
}

// Clone returns a deep copy of the tree
func (ft *ForkTree) Clone() *ForkTree {
	clone := &ForkTree{
		nodes:      make([]*treeNode, len(ft.nodes)),
		freeSlots:  append([]TreeNodeID(nil), ft.freeSlots...),
		mainBranch: maps.Clone(ft.mainBranch),
		tip:        ft.tip,
		sheets:     maps.Clone(ft.sheets),
		byStamp:    maps.Clone(ft.byStamp),
		windowSize: ft.windowSize,
	}
	if ft.root != nil {
		root := *ft.root
		clone.root = &root
	}
	for i, node := range ft.nodes {
		if node == nil {
			continue
		}
		nodeClone := &treeNode{
			blockstamp: node.blockstamp,
			children:   append([]TreeNodeID(nil), node.children...),
		}
		if node.parent != nil {
			parent := *node.parent
			nodeClone.parent = &parent
		}
		clone.nodes[i] = nodeClone
	}
	return clone
}
