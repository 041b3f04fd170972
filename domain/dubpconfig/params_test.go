package dubpconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/pkg/errors"
)

func TestParseKeepsBaseValues(t *testing.T) {
	content := []byte("name: custom\nforkWindowSize: 10\nsigStock: 5\n")
	params, err := Parse(content, &G1Params)
	if err != nil {
		t.Fatalf("Parse: %s", err)
	}
	if params.Name != "custom" || params.ForkWindowSize != 10 || params.SigStock != 5 {
		t.Fatalf("Parse did not apply the file values: %+v", params)
	}
	if params.AdvanceBlocks != G1Params.AdvanceBlocks || params.MsPeriod != G1Params.MsPeriod {
		t.Fatalf("Parse did not keep the base values: %+v", params)
	}
	if G1Params.ForkWindowSize != 100 {
		t.Fatalf("Parse modified the base parameters")
	}
}

func TestParseRejectsInvalidParameters(t *testing.T) {
	_, err := Parse([]byte("forkWindowSize: 0\n"), &G1Params)
	if !errors.Is(err, ErrInvalidParameters) {
		t.Fatalf("Parse: got %v, want ErrInvalidParameters", err)
	}
	_, err = Parse([]byte("sigStock: [1, 2]\n"), &G1Params)
	if err == nil {
		t.Fatalf("Parse of a malformed file unexpectedly succeeded")
	}
}

func TestLoad(t *testing.T) {
	dir, err := os.MkdirTemp("", "TestLoad")
	if err != nil {
		t.Fatalf("MkdirTemp: %s", err)
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "currency.yaml")
	err = os.WriteFile(path, []byte("advanceTime: 60\n"), 0600)
	if err != nil {
		t.Fatalf("WriteFile: %s", err)
	}
	params, err := Load(path, &G1TestParams)
	if err != nil {
		t.Fatalf("Load: %s", err)
	}
	if params.AdvanceTime != 60 || params.Name != G1TestParams.Name {
		t.Fatalf("unexpected parameters %+v", params)
	}

	_, err = Load(filepath.Join(dir, "missing.yaml"), &G1Params)
	if err == nil {
		t.Fatalf("Load of a missing file unexpectedly succeeded")
	}
}

func TestByName(t *testing.T) {
	params, err := ByName("g1")
	if err != nil {
		t.Fatalf("ByName: %s", err)
	}
	params.SigStock = 1
	if G1Params.SigStock != 100 {
		t.Fatalf("ByName returned the shared parameters instead of a copy")
	}
	_, err = ByName("unknown")
	if err == nil {
		t.Fatalf("ByName of an unknown currency unexpectedly succeeded")
	}
}
