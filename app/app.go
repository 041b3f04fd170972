package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/pkg/errors"

	"github.com/duniter/duniter-rs-sub003/domain/consensus"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/infrastructure/config"
	"github.com/duniter/duniter-rs-sub003/infrastructure/db/database/ldb"
	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
	"github.com/duniter/duniter-rs-sub003/infrastructure/os/signal"
	"github.com/duniter/duniter-rs-sub003/util/panics"
	"github.com/duniter/duniter-rs-sub003/util/profiling"
	"github.com/duniter/duniter-rs-sub003/version"
)

const leveldbDirname = "leveldb"

type duniterApp struct {
	cfg *config.Config
}

// StartApp starts the node, and blocks until it finishes running
func StartApp() error {
	// Catch interrupt signals first so a shutdown requested during
	// initialization is not lost
	interrupt := signal.InterruptListener()

	cfg, err := config.LoadConfig(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	logger.InitLog(cfg.LogFile(), cfg.ErrLogFile())
	defer logger.BackendLog.Close()
	defer panics.HandlePanic(log, "MAIN", nil)

	app := &duniterApp{cfg: cfg}
	return app.main(interrupt)
}

func (app *duniterApp) main(interrupt <-chan struct{}) error {
	log.Infof("Version %s", version.Version())
	log.Infof("Following currency %s", app.cfg.CurrencyParams.Name)
	log.Debugf("GOMAXPROCS: %d", runtime.GOMAXPROCS(0))

	if app.cfg.Profile != "" {
		profiling.Start(app.cfg.Profile, log)
	}

	ctx, cancel := signal.InterruptContext(context.Background(), interrupt)
	defer cancel()

	dbPath := filepath.Join(app.cfg.DataDir, leveldbDirname)
	levelDB, err := openDB(dbPath, app.cfg.DBCacheSizeMiB)
	if err != nil {
		log.Errorf("Loading database failed: %+v", err)
		return err
	}
	defer func() {
		log.Infof("Gracefully shutting down the database...")
		err := levelDB.Close()
		if err != nil {
			log.Errorf("Failed to close the database: %s", err)
		}
	}()
	db := database.New(levelDB)

	if app.cfg.Import != "" {
		err := importBlocks(ctx, app.cfg, db)
		if err != nil {
			log.Errorf("Import of %s failed: %+v", app.cfg.Import, err)
			return err
		}
	}

	componentManager, err := NewComponentManager(app.cfg, db)
	if err != nil {
		if errors.Is(err, consensus.ErrSyncInterrupted) {
			log.Criticalf("A bulk synchronization of %s was interrupted. "+
				"Delete it and synchronize again", dbPath)
		}
		log.Errorf("Unable to start duniter: %+v", err)
		return err
	}
	defer log.Info("Shutdown complete")

	componentManager.Start()
	defer componentManager.Stop()

	if app.cfg.Process != "" {
		spawn("processBlockFile", func() {
			err := componentManager.processBlockFile(ctx, app.cfg.Process)
			if err != nil && !errors.Is(err, context.Canceled) {
				log.Errorf("Processing %s failed: %+v", app.cfg.Process, err)
			}
		})
	}

	<-interrupt
	return nil
}

func openDB(dbPath string, cacheSizeMiB int) (*ldb.LevelDB, error) {
	err := os.MkdirAll(dbPath, 0700)
	if err != nil {
		return nil, errors.WithStack(err)
	}
	versionExists, err := checkDatabaseVersion(dbPath)
	if err != nil {
		return nil, err
	}

	log.Infof("Loading database from '%s'", dbPath)
	levelDB, err := ldb.NewLevelDB(dbPath, cacheSizeMiB)
	if err != nil {
		return nil, err
	}

	if !versionExists {
		err := createDatabaseVersionFile(dbPath)
		if err != nil {
			levelDB.Close()
			return nil, err
		}
	}
	return levelDB, nil
}
