package forktree

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/util/binaryserializer"
	"github.com/pkg/errors"
)

// Serialize writes the tree in its arena layout. Free slots are written
// as absent nodes so that node ids survive a round trip.
func (ft *ForkTree) Serialize() ([]byte, error) {
	w := &bytes.Buffer{}
	err := binaryserializer.PutUint32(w, ft.windowSize)
	if err != nil {
		return nil, err
	}
	err = binaryserializer.PutUint32(w, uint32(len(ft.nodes)))
	if err != nil {
		return nil, err
	}

	for id, node := range ft.nodes {
		err = binaryserializer.PutBool(w, node != nil)
		if err != nil {
			return nil, err
		}
		if node == nil {
			continue
		}
		err = binaryserializer.PutUint32(w, uint32(node.blockstamp.Number))
		if err != nil {
			return nil, err
		}
		_, err = w.Write(node.blockstamp.Hash[:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		err = binaryserializer.PutBool(w, ft.IsMainBranch(TreeNodeID(id)))
		if err != nil {
			return nil, err
		}
		err = binaryserializer.PutUint32(w, uint32(len(node.children)))
		if err != nil {
			return nil, err
		}
		for _, childID := range node.children {
			err = binaryserializer.PutUint32(w, uint32(childID))
			if err != nil {
				return nil, err
			}
		}
	}
	return w.Bytes(), nil
}

// Deserialize rebuilds a tree written by Serialize
func Deserialize(serialized []byte) (*ForkTree, error) {
	r := bytes.NewReader(serialized)
	windowSize, err := binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}
	slotCount, err := binaryserializer.Uint32(r)
	if err != nil {
		return nil, err
	}
	if uint64(slotCount) > uint64(len(serialized)) {
		return nil, errors.Errorf("fork tree slot count %d exceeds its serialized size", slotCount)
	}

	ft := New(windowSize)
	ft.nodes = make([]*treeNode, slotCount)
	for i := range ft.nodes {
		id := TreeNodeID(i)
		present, err := binaryserializer.Bool(r)
		if err != nil {
			return nil, err
		}
		if !present {
			ft.freeSlots = append(ft.freeSlots, id)
			continue
		}

		node := &treeNode{}
		number, err := binaryserializer.Uint32(r)
		if err != nil {
			return nil, err
		}
		node.blockstamp.Number = externalapi.BlockNumber(number)
		_, err = io.ReadFull(r, node.blockstamp.Hash[:])
		if err != nil {
			return nil, errors.WithStack(err)
		}
		isMain, err := binaryserializer.Bool(r)
		if err != nil {
			return nil, err
		}
		childCount, err := binaryserializer.Uint32(r)
		if err != nil {
			return nil, err
		}
		if childCount > slotCount {
			return nil, errors.Errorf("fork tree node %d has %d children out of %d slots", id, childCount, slotCount)
		}
		node.children = make([]TreeNodeID, childCount)
		for j := range node.children {
			childID, err := binaryserializer.Uint32(r)
			if err != nil {
				return nil, err
			}
			if childID >= slotCount {
				return nil, errors.Errorf("fork tree node %d has out of range child %d", id, childID)
			}
			node.children[j] = TreeNodeID(childID)
		}

		ft.nodes[id] = node
		ft.byStamp[node.blockstamp] = id
		if isMain {
			ft.mainBranch[node.blockstamp.Number] = id
			if node.blockstamp.Number > ft.tip {
				ft.tip = node.blockstamp.Number
			}
		}
		if len(node.children) == 0 {
			ft.sheets[id] = struct{}{}
		}
	}
	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes after the fork tree", r.Len())
	}

	for id, node := range ft.nodes {
		if node == nil {
			continue
		}
		for _, childID := range node.children {
			child := ft.nodes[childID]
			if child == nil || child.parent != nil {
				return nil, errors.Errorf("fork tree node %d has invalid child %d", id, childID)
			}
			parentID := TreeNodeID(id)
			child.parent = &parentID
		}
	}
	for id, node := range ft.nodes {
		if node != nil && node.parent == nil {
			if ft.root != nil {
				return nil, errors.Errorf("fork tree has two roots: %d and %d", *ft.root, id)
			}
			rootID := TreeNodeID(id)
			ft.root = &rootID
		}
	}
	return ft, nil
}
