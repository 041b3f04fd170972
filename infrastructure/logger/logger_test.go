package logger

import (
	"bytes"
	"strings"
	"testing"
	"time"
)

type bufferCloser struct {
	bytes.Buffer
}

func (bc *bufferCloser) Close() error {
	return nil
}

func TestBackendLevelFiltering(t *testing.T) {
	backend := NewBackendWithFlags(0)
	infoAndAbove := &bufferCloser{}
	warnAndAbove := &bufferCloser{}
	if err := backend.AddLogWriter(infoAndAbove, LevelInfo); err != nil {
		t.Fatalf("AddLogWriter: %s", err)
	}
	if err := backend.AddLogWriter(warnAndAbove, LevelWarn); err != nil {
		t.Fatalf("AddLogWriter: %s", err)
	}
	if err := backend.Run(); err != nil {
		t.Fatalf("Run: %s", err)
	}

	log := backend.Logger("TEST")
	log.SetLevel(LevelDebug)
	log.Tracef("dropped by the logger")
	log.Debugf("dropped by both writers")
	log.Infof("only info")
	log.Warnf("both %d", 2)
	backend.Close()

	if strings.Contains(infoAndAbove.String(), "dropped") {
		t.Fatalf("unexpected filtered line in output: %q", infoAndAbove.String())
	}
	if !strings.Contains(infoAndAbove.String(), "[INF] TEST: only info") {
		t.Fatalf("missing info line in output: %q", infoAndAbove.String())
	}
	if strings.Contains(warnAndAbove.String(), "only info") {
		t.Fatalf("warn writer received an info line: %q", warnAndAbove.String())
	}
	if !strings.Contains(warnAndAbove.String(), "[WRN] TEST: both 2") {
		t.Fatalf("missing warn line in output: %q", warnAndAbove.String())
	}
}

func TestParseAndSetLogLevels(t *testing.T) {
	engineLog := RegisterSubSystem("TST1")
	forkLog := RegisterSubSystem("TST2")

	err := ParseAndSetLogLevels("TST1=debug,TST2=error")
	if err != nil {
		t.Fatalf("ParseAndSetLogLevels: %s", err)
	}
	if engineLog.Level() != LevelDebug {
		t.Fatalf("unexpected level %s", engineLog.Level())
	}
	if forkLog.Level() != LevelError {
		t.Fatalf("unexpected level %s", forkLog.Level())
	}

	err = ParseAndSetLogLevels("TST1=loud")
	if err == nil {
		t.Fatalf("expected an error for an invalid level")
	}
	err = ParseAndSetLogLevels("NOPE=info,TST1=info")
	if err == nil {
		t.Fatalf("expected an error for an unknown subsystem")
	}
}

func TestBackendFlush(t *testing.T) {
	backend := NewBackendWithFlags(0)
	output := &bufferCloser{}
	if err := backend.AddLogWriter(output, LevelInfo); err != nil {
		t.Fatalf("AddLogWriter: %s", err)
	}
	if err := backend.Run(); err != nil {
		t.Fatalf("Run: %s", err)
	}

	log := backend.Logger("TEST")
	log.SetLevel(LevelInfo)
	log.Criticalf("written before returning")
	if !backend.Flush(5 * time.Second) {
		t.Fatalf("Flush timed out")
	}
	if !strings.Contains(output.String(), "[CRT] TEST: written before returning") {
		t.Fatalf("missing critical line after Flush: %q", output.String())
	}

	backend.Close()
	if !backend.Flush(time.Second) {
		t.Fatalf("Flush of a closed backend should return immediately")
	}
}

func TestLevelFromString(t *testing.T) {
	tests := []struct {
		name     string
		expected Level
		ok       bool
	}{
		{"trace", LevelTrace, true},
		{"DBG", LevelDebug, true},
		{"Warn", LevelWarn, true},
		{"critical", LevelCritical, true},
		{"off", LevelOff, true},
		{"verbose", LevelInfo, false},
	}
	for _, test := range tests {
		level, ok := LevelFromString(test.name)
		if level != test.expected || ok != test.ok {
			t.Fatalf("LevelFromString(%q): got (%s, %t), want (%s, %t)",
				test.name, level, ok, test.expected, test.ok)
		}
	}
	if Level(42).String() != "OFF" {
		t.Fatalf("out of range level should print as OFF, got %s", Level(42))
	}
}
