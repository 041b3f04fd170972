package panics

import (
	"bytes"
	"strings"
	"testing"

	"github.com/duniter/duniter-rs-sub003/infrastructure/logger"
)

func TestFatalPanicsWithInvariantViolation(t *testing.T) {
	log := logger.RegisterSubSystem("PNCT")
	defer func() {
		recovered := recover()
		violation, ok := recovered.(InvariantViolation)
		if !ok {
			t.Fatalf("expected an InvariantViolation, got %T: %v", recovered, recovered)
		}
		if violation.Reason != "node 3 is out of range" {
			t.Fatalf("unexpected reason %q", violation.Reason)
		}
		if !strings.Contains(violation.Error(), "resynchronize") {
			t.Fatalf("error %q does not advise the operator to resynchronize", violation.Error())
		}
	}()
	Fatal(log, "node %d is out of range", 3)
}

type bufferCloser struct {
	bytes.Buffer
}

func (bc *bufferCloser) Close() error {
	return nil
}

func TestFatalWritesTheReasonBeforePanicking(t *testing.T) {
	backend := logger.NewBackendWithFlags(0)
	logOutput := &bufferCloser{}
	err := backend.AddLogWriter(logOutput, logger.LevelInfo)
	if err != nil {
		t.Fatalf("AddLogWriter: %s", err)
	}
	err = backend.Run()
	if err != nil {
		t.Fatalf("Run: %s", err)
	}
	defer backend.Close()
	log := backend.Logger("PNCF")
	log.SetLevel(logger.LevelInfo)

	stderr := &bytes.Buffer{}
	originalFatalOutput := fatalOutput
	fatalOutput = stderr
	defer func() { fatalOutput = originalFatalOutput }()

	func() {
		defer func() {
			if _, ok := recover().(InvariantViolation); !ok {
				t.Fatalf("expected an InvariantViolation")
			}
		}()
		Fatal(log, "snapshot of %d bytes is truncated", 7)
	}()

	if !strings.Contains(stderr.String(), "snapshot of 7 bytes is truncated") ||
		!strings.Contains(stderr.String(), "resynchronize") {
		t.Fatalf("unexpected stderr output %q", stderr.String())
	}
	if !strings.Contains(logOutput.String(), "[CRT] PNCF: invariant violation: snapshot of 7 bytes is truncated") {
		t.Fatalf("the reason was not written to the log before the panic: %q", logOutput.String())
	}
}
