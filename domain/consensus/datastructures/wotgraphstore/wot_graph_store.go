package wotgraphstore

import (
	"bytes"
	"encoding/binary"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/wot"
	"github.com/pkg/errors"
	"golang.org/x/crypto/blake2b"
)

const checksumSize = blake2b.Size256

var bucketName = []byte("wot-graph")

// ErrChecksumMismatch indicates a stored snapshot whose content does not
// match the checksum it was written with
var ErrChecksumMismatch = errors.New("web of trust snapshot checksum mismatch")

// wotGraphStore stores the web of trust graph as a snapshot prefixed by
// its blake2b checksum. The snapshot length is kept under a separate key
// so that a truncated snapshot is detected on load.
type wotGraphStore struct {
	snapshotKey model.DBKey
	lengthKey   model.DBKey
	maxLinks    int
}

// New instantiates a new WoTGraphStore for graphs of the given sig stock
func New(prefixBucket model.DBBucket, maxLinks int) model.WoTGraphStore {
	bucket := prefixBucket.Bucket(bucketName)
	return &wotGraphStore{
		snapshotKey: bucket.Key([]byte("snapshot")),
		lengthKey:   bucket.Key([]byte("length")),
		maxLinks:    maxLinks,
	}
}

// Stage stages a copy of graph
func (wgs *wotGraphStore) Stage(stagingArea *model.StagingArea, graph model.WebOfTrust) {
	stagingShard := wgs.stagingShard(stagingArea)
	stagingShard.newGraph = graph.Clone()
}

func (wgs *wotGraphStore) IsStaged(stagingArea *model.StagingArea) bool {
	return wgs.stagingShard(stagingArea).isStaged()
}

// Graph loads the graph. A snapshot that does not match its length or
// its checksum yields an error wrapping wot.ErrTruncatedSnapshot or
// ErrChecksumMismatch, both of which mean the store is corrupted.
func (wgs *wotGraphStore) Graph(dbContext model.DBReader, stagingArea *model.StagingArea) (model.WebOfTrust, error) {
	stagingShard := wgs.stagingShard(stagingArea)
	if stagingShard.newGraph != nil {
		return stagingShard.newGraph.Clone(), nil
	}

	lengthBytes, err := dbContext.Get(wgs.lengthKey)
	if err != nil {
		return nil, err
	}
	if len(lengthBytes) != 8 {
		return nil, errors.Wrap(wot.ErrTruncatedSnapshot, "malformed snapshot length")
	}
	length := binary.LittleEndian.Uint64(lengthBytes)

	storedBytes, err := dbContext.Get(wgs.snapshotKey)
	if err != nil {
		return nil, err
	}
	if len(storedBytes) < checksumSize {
		return nil, errors.Wrapf(wot.ErrTruncatedSnapshot, "stored snapshot is %d bytes long", len(storedBytes))
	}
	checksum, snapshot := storedBytes[:checksumSize], storedBytes[checksumSize:]
	if uint64(len(snapshot)) == length {
		expectedChecksum := blake2b.Sum256(snapshot)
		if !bytes.Equal(checksum, expectedChecksum[:]) {
			return nil, errors.WithStack(ErrChecksumMismatch)
		}
	}

	graph, err := wot.Deserialize(snapshot, int(length), wgs.maxLinks)
	if err != nil {
		return nil, err
	}
	return graph, nil
}

// HasGraph returns whether a graph was ever stored
func (wgs *wotGraphStore) HasGraph(dbContext model.DBReader, stagingArea *model.StagingArea) (bool, error) {
	if wgs.stagingShard(stagingArea).isStaged() {
		return true, nil
	}
	return dbContext.Has(wgs.lengthKey)
}

func (wgs *wotGraphStore) serializeGraph(graph model.WebOfTrust) ([]byte, error) {
	snapshot, err := wot.Serialize(graph)
	if err != nil {
		return nil, err
	}
	checksum := blake2b.Sum256(snapshot)
	return append(checksum[:], snapshot...), nil
}
