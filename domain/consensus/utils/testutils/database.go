package testutils

import (
	"os"
	"testing"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/infrastructure/db/database/ldb"
)

// PrepareDBForTest opens a leveldb database in a temporary directory. The
// returned teardown function closes it and removes the directory.
func PrepareDBForTest(t *testing.T, testName string) (db model.DBManager, teardownFunc func()) {
	path, err := os.MkdirTemp("", testName)
	if err != nil {
		t.Fatalf("%s: TempDir unexpectedly failed: %s", testName, err)
	}
	levelDB, err := ldb.NewLevelDB(path, 8)
	if err != nil {
		t.Fatalf("%s: Open unexpectedly failed: %s", testName, err)
	}
	teardownFunc = func() {
		err := levelDB.Close()
		if err != nil {
			t.Fatalf("%s: Close unexpectedly failed: %s", testName, err)
		}
		os.RemoveAll(path)
	}
	return database.New(levelDB), teardownFunc
}

// CommitStagingArea commits stagingArea in a single database transaction
func CommitStagingArea(t *testing.T, db model.DBManager, stagingArea *model.StagingArea) {
	dbTx, err := db.Begin()
	if err != nil {
		t.Fatalf("Begin: %s", err)
	}
	defer dbTx.RollbackUnlessClosed()

	err = stagingArea.Commit(dbTx)
	if err != nil {
		t.Fatalf("Commit staging area: %s", err)
	}
	err = dbTx.Commit()
	if err != nil {
		t.Fatalf("Commit transaction: %s", err)
	}
}
