package wotgraphstore

import (
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/testutils"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/wot"
	"github.com/pkg/errors"
)

func buildGraph(t *testing.T) *wot.Graph {
	graph := wot.New(3)
	for i := 0; i < 4; i++ {
		graph.AddNode()
	}
	for _, link := range []model.CertLink{{Source: 0, Target: 1}, {Source: 1, Target: 0}, {Source: 2, Target: 0}} {
		_, err := graph.AddLink(link.Source, link.Target)
		if err != nil {
			t.Fatalf("AddLink(%s): %s", link, err)
		}
	}
	graph.SetEnabled(3, false)
	return graph
}

func TestGraphRoundTrip(t *testing.T) {
	db, teardown := testutils.PrepareDBForTest(t, "TestGraphRoundTrip")
	defer teardown()

	store := New(database.MakeBucket(nil), 3)
	has, err := store.HasGraph(db, model.NewStagingArea())
	if err != nil || has {
		t.Fatalf("HasGraph on an empty store: (%t, %v)", has, err)
	}

	graph := buildGraph(t)
	stagingArea := model.NewStagingArea()
	store.Stage(stagingArea, graph)
	graph.AddNode()
	testutils.CommitStagingArea(t, db, stagingArea)

	loaded, err := store.Graph(db, model.NewStagingArea())
	if err != nil {
		t.Fatalf("Graph: %s", err)
	}
	if !wot.Equal(loaded, buildGraph(t)) {
		t.Fatalf("loaded graph differs from the staged one")
	}
}

func TestCorruptedSnapshot(t *testing.T) {
	db, teardown := testutils.PrepareDBForTest(t, "TestCorruptedSnapshot")
	defer teardown()

	store := New(database.MakeBucket(nil), 3).(*wotGraphStore)
	stagingArea := model.NewStagingArea()
	store.Stage(stagingArea, buildGraph(t))
	testutils.CommitStagingArea(t, db, stagingArea)

	storedBytes, err := db.Get(store.snapshotKey)
	if err != nil {
		t.Fatalf("Get: %s", err)
	}

	err = db.Put(store.snapshotKey, storedBytes[:len(storedBytes)-2])
	if err != nil {
		t.Fatalf("Put: %s", err)
	}
	_, err = store.Graph(db, model.NewStagingArea())
	if !errors.Is(err, wot.ErrTruncatedSnapshot) {
		t.Fatalf("loading a truncated snapshot: got %v, want ErrTruncatedSnapshot", err)
	}

	corrupted := append([]byte(nil), storedBytes...)
	corrupted[len(corrupted)-1] ^= 0xff
	err = db.Put(store.snapshotKey, corrupted)
	if err != nil {
		t.Fatalf("Put: %s", err)
	}
	_, err = store.Graph(db, model.NewStagingArea())
	if !errors.Is(err, ErrChecksumMismatch) {
		t.Fatalf("loading a corrupted snapshot: got %v, want ErrChecksumMismatch", err)
	}
}
