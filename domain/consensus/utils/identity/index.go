package identity

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
	"golang.org/x/exp/maps"
)

// Index maps public keys to WoT node ids and back. Both directions are
// only ever mutated together.
type Index struct {
	nodeIDs []externalapi.PubKey
	pubKeys map[externalapi.PubKey]model.NodeID
}

// NewIndex returns an empty index
func NewIndex() *Index {
	return &Index{
		pubKeys: make(map[externalapi.PubKey]model.NodeID),
	}
}

// Insert indexes pubKey under the next node id, which must be nodeID
func (idx *Index) Insert(pubKey externalapi.PubKey, nodeID model.NodeID) error {
	if int(nodeID) != len(idx.nodeIDs) {
		return errors.Errorf("cannot index %s under node %d: next node id is %d",
			pubKey, nodeID, len(idx.nodeIDs))
	}
	if existing, ok := idx.pubKeys[pubKey]; ok {
		return errors.Errorf("%s is already indexed under node %d", pubKey, existing)
	}
	idx.nodeIDs = append(idx.nodeIDs, pubKey)
	idx.pubKeys[pubKey] = nodeID
	return nil
}

// RemoveLast removes the identity with the highest node id, which must
// be pubKey
func (idx *Index) RemoveLast(pubKey externalapi.PubKey) error {
	if len(idx.nodeIDs) == 0 {
		return errors.Errorf("cannot remove %s from an empty index", pubKey)
	}
	last := idx.nodeIDs[len(idx.nodeIDs)-1]
	if last != pubKey {
		return errors.Errorf("cannot remove %s: the last indexed identity is %s", pubKey, last)
	}
	idx.nodeIDs = idx.nodeIDs[:len(idx.nodeIDs)-1]
	delete(idx.pubKeys, pubKey)
	return nil
}

// NodeID returns the node id of pubKey
func (idx *Index) NodeID(pubKey externalapi.PubKey) (model.NodeID, bool) {
	nodeID, ok := idx.pubKeys[pubKey]
	return nodeID, ok
}

// PubKey returns the public key of nodeID
func (idx *Index) PubKey(nodeID model.NodeID) (externalapi.PubKey, bool) {
	if int(nodeID) >= len(idx.nodeIDs) {
		return "", false
	}
	return idx.nodeIDs[nodeID], true
}

// PubKeysOf returns the public keys of the given node ids, in order,
// skipping unknown ids
func (idx *Index) PubKeysOf(nodeIDs []model.NodeID) []externalapi.PubKey {
	pubKeys := make([]externalapi.PubKey, 0, len(nodeIDs))
	for _, nodeID := range nodeIDs {
		if pubKey, ok := idx.PubKey(nodeID); ok {
			pubKeys = append(pubKeys, pubKey)
		}
	}
	return pubKeys
}

// Len returns the number of indexed identities
func (idx *Index) Len() int {
	return len(idx.nodeIDs)
}

// Clone returns a deep copy of the index
func (idx *Index) Clone() *Index {
	return &Index{
		nodeIDs: append([]externalapi.PubKey(nil), idx.nodeIDs...),
		pubKeys: maps.Clone(idx.pubKeys),
	}
}

// Equal returns whether both indexes hold the same identities
func (idx *Index) Equal(other *Index) bool {
	return maps.Equal(idx.pubKeys, other.pubKeys) && len(idx.nodeIDs) == len(other.nodeIDs)
}
