package wot

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/util/binaryserializer"
	"github.com/pkg/errors"
)

// Serialize writes a snapshot of the graph:
//
//	node count          u32 big endian
//	enabled bit vector  ceil(count/8) bytes, most significant bit first
//	for every node      u32 BE link count, followed by the u32 BE source ids
//
// Issued counts are not written, they are recomputed from the links.
func Serialize(graph model.WebOfTrust) ([]byte, error) {
	w := &bytes.Buffer{}
	size := graph.Size()
	err := binaryserializer.PutUint32BE(w, uint32(size))
	if err != nil {
		return nil, err
	}

	enabledBits := make([]byte, (size+7)/8)
	for i := 0; i < size; i++ {
		enabled, _ := graph.IsEnabled(model.NodeID(i))
		if enabled {
			enabledBits[i/8] |= 0x80 >> (i % 8)
		}
	}
	_, err = w.Write(enabledBits)
	if err != nil {
		return nil, errors.WithStack(err)
	}

	for i := 0; i < size; i++ {
		sources, _ := graph.LinksSource(model.NodeID(i))
		err = binaryserializer.PutUint32BE(w, uint32(len(sources)))
		if err != nil {
			return nil, err
		}
		for _, source := range sources {
			err = binaryserializer.PutUint32BE(w, uint32(source))
			if err != nil {
				return nil, err
			}
		}
	}
	return w.Bytes(), nil
}

// Deserialize rebuilds a graph from a snapshot of exactly length bytes.
// A snapshot that is shorter or longer than length, or that references
// nodes it does not contain, yields ErrTruncatedSnapshot.
func Deserialize(snapshot []byte, length int, maxLinks int) (*Graph, error) {
	if len(snapshot) != length {
		return nil, errors.Wrapf(ErrTruncatedSnapshot, "read %d bytes out of %d", len(snapshot), length)
	}

	r := bytes.NewReader(snapshot)
	size, err := binaryserializer.Uint32BE(r)
	if err != nil {
		return nil, errors.Wrapf(ErrTruncatedSnapshot, "cannot read node count: %s", err)
	}
	if uint64(size) > uint64(len(snapshot)) {
		return nil, errors.Wrapf(ErrTruncatedSnapshot, "node count %d exceeds snapshot length", size)
	}

	enabledBits := make([]byte, (size+7)/8)
	_, err = io.ReadFull(r, enabledBits)
	if err != nil {
		return nil, errors.Wrapf(ErrTruncatedSnapshot, "cannot read enabled bits: %s", err)
	}

	graph := New(maxLinks)
	graph.nodes = make([]*node, size)
	for i := range graph.nodes {
		graph.nodes[i] = newNode()
		graph.nodes[i].enabled = enabledBits[i/8]&(0x80>>(i%8)) != 0
	}

	for target := range graph.nodes {
		linkCount, err := binaryserializer.Uint32BE(r)
		if err != nil {
			return nil, errors.Wrapf(ErrTruncatedSnapshot, "cannot read link count of node %d: %s", target, err)
		}
		for j := uint32(0); j < linkCount; j++ {
			source, err := binaryserializer.Uint32BE(r)
			if err != nil {
				return nil, errors.Wrapf(ErrTruncatedSnapshot, "cannot read link of node %d: %s", target, err)
			}
			if source >= size || int(source) == target {
				return nil, errors.Wrapf(ErrTruncatedSnapshot, "invalid link %d->%d", source, target)
			}
			if _, ok := graph.nodes[target].linksSource[model.NodeID(source)]; ok {
				return nil, errors.Wrapf(ErrTruncatedSnapshot, "duplicate link %d->%d", source, target)
			}
			graph.nodes[target].linksSource[model.NodeID(source)] = struct{}{}
			graph.nodes[source].issuedCount++
		}
	}

	consumed := length - r.Len()
	if consumed != length {
		return nil, errors.Wrapf(ErrTruncatedSnapshot, "consumed %d bytes out of %d", consumed, length)
	}
	return graph, nil
}
