package panics

import (
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"time"

	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
)

const exitHandlerTimeout = 5 * time.Second

// fatalOutput receives the reason of a Fatal call synchronously
var fatalOutput io.Writer = os.Stderr

// resyncAdvice is appended to every fatal message: once in-memory consensus
// state may be corrupted, the only safe way forward is a fresh state.
const resyncAdvice = "the node state may be corrupted; stop the node and " +
	"resynchronize from a trusted snapshot"

// HandlePanic recovers panics and then initiates a clean shutdown.
func HandlePanic(log *logger.Logger, goroutineName string, goroutineStackTrace []byte) {
	err := recover()
	if err == nil {
		return
	}

	reason := fmt.Sprintf("Fatal error in goroutine `%s`: %+v", goroutineName, err)
	exit(log, reason, debug.Stack(), goroutineStackTrace)
}

// GoroutineWrapperFunc returns a goroutine wrapper function that handles panics and writes them to the log.
func GoroutineWrapperFunc(log *logger.Logger) func(name string, spawnedFunction func()) {
	return func(name string, f func()) {
		stackTrace := debug.Stack()
		go func() {
			defer HandlePanic(log, name, stackTrace)
			f()
		}()
	}
}

// Exit prints the given reason to log and initiates a clean shutdown.
func Exit(log *logger.Logger, reason string) {
	exit(log, reason, nil, nil)
}

// InvariantViolation is the panic value raised by Fatal. Tests recover it to
// assert that a contract violation was detected.
type InvariantViolation struct {
	Reason string
}

func (iv InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation: %s: %s", iv.Reason, resyncAdvice)
}

// Fatal reports a broken consensus invariant. The reason is written to
// stderr and to the log, which is flushed before Fatal panics with an
// InvariantViolation. When the panic reaches a goroutine wrapped by
// GoroutineWrapperFunc the process exits.
func Fatal(log *logger.Logger, format string, args ...interface{}) {
	violation := InvariantViolation{Reason: fmt.Sprintf(format, args...)}
	fmt.Fprintf(fatalOutput, "%s\n", violation.Error())
	log.Criticalf("%s", violation.Error())
	log.Backend().Flush(exitHandlerTimeout)
	panic(violation)
}

// exit prints the given reason, prints either of the given stack traces (if not nil),
// waits for them to finish writing, and exits.
func exit(log *logger.Logger, reason string, currentThreadStackTrace []byte, goroutineStackTrace []byte) {
	exitHandlerDone := make(chan struct{})
	go func() {
		log.Criticalf("Exiting: %s", reason)
		if goroutineStackTrace != nil {
			log.Criticalf("Goroutine stack trace: %s", goroutineStackTrace)
		}
		if currentThreadStackTrace != nil {
			log.Criticalf("Stack trace: %s", currentThreadStackTrace)
		}
		log.Backend().Close()
		close(exitHandlerDone)
	}()

	select {
	case <-time.After(exitHandlerTimeout):
		fmt.Fprintln(os.Stderr, "Couldn't exit gracefully.")
	case <-exitHandlerDone:
	}
	fmt.Println("Exiting...")
	os.Exit(1)
}
