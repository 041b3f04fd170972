package syncpipeline

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/requestexecutor"
	"github.com/pkg/errors"
)

type workerMessage struct {
	requests []model.WriteRequest
	flush    chan error
}

// worker executes the write requests of one store group in its own
// staging area, which it commits on every flush
type worker struct {
	name            string
	databaseContext model.DBManager
	requestExecutor *requestexecutor.RequestExecutor
	messages        chan workerMessage
	done            chan struct{}
}

func newWorker(name string, databaseContext model.DBManager, requestExecutor *requestexecutor.RequestExecutor,
	channelSize int) *worker {

	return &worker{
		name:            name,
		databaseContext: databaseContext,
		requestExecutor: requestExecutor,
		messages:        make(chan workerMessage, channelSize),
		done:            make(chan struct{}),
	}
}

func (w *worker) start() {
	spawn("syncpipeline.worker-"+w.name, w.run)
}

func (w *worker) run() {
	defer close(w.done)

	stagingArea := model.NewStagingArea()
	var failure error
	for message := range w.messages {
		if message.flush != nil {
			if failure == nil {
				failure = commit(w.databaseContext, stagingArea)
				stagingArea = model.NewStagingArea()
			}
			message.flush <- failure
			continue
		}
		if failure != nil {
			continue
		}
		for _, request := range message.requests {
			err := w.requestExecutor.Execute(stagingArea, request)
			if err != nil {
				failure = errors.Wrapf(err, "%s worker failed", w.name)
				log.Errorf("%s", failure)
				break
			}
		}
	}
	log.Debugf("The %s worker stopped", w.name)
}

func (w *worker) send(requests []model.WriteRequest) {
	if len(requests) == 0 {
		return
	}
	w.messages <- workerMessage{requests: requests}
}

// flush commits everything sent so far. It returns the first error the
// worker ran into, after which the worker ignores everything it receives.
func (w *worker) flush() error {
	reply := make(chan error, 1)
	w.messages <- workerMessage{flush: reply}
	return <-reply
}

func (w *worker) stop() {
	close(w.messages)
	<-w.done
}

func commit(databaseContext model.DBManager, stagingArea *model.StagingArea) error {
	dbTx, err := databaseContext.Begin()
	if err != nil {
		return err
	}
	defer dbTx.RollbackUnlessClosed()

	err = stagingArea.Commit(dbTx)
	if err != nil {
		return err
	}
	return dbTx.Commit()
}
