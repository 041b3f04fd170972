package binaryserializer

import (
	"bytes"
	"io"
	"testing"

	"github.com/pkg/errors"
)

func TestRoundTripPrimitives(t *testing.T) {
	buf := &bytes.Buffer{}
	if err := PutUint8(buf, 0xab); err != nil {
		t.Fatalf("PutUint8: %s", err)
	}
	if err := PutUint32(buf, 0xdeadbeef); err != nil {
		t.Fatalf("PutUint32: %s", err)
	}
	if err := PutUint32BE(buf, 0x01020304); err != nil {
		t.Fatalf("PutUint32BE: %s", err)
	}
	if err := PutUint64(buf, 1<<40+7); err != nil {
		t.Fatalf("PutUint64: %s", err)
	}
	if err := PutBool(buf, true); err != nil {
		t.Fatalf("PutBool: %s", err)
	}
	if err := PutString(buf, "g1"); err != nil {
		t.Fatalf("PutString: %s", err)
	}

	// The big endian word must be laid out most significant byte first.
	if !bytes.Equal(buf.Bytes()[5:9], []byte{1, 2, 3, 4}) {
		t.Fatalf("unexpected big endian layout %x", buf.Bytes()[5:9])
	}

	u8, _ := Uint8(buf)
	u32, _ := Uint32(buf)
	u32be, _ := Uint32BE(buf)
	u64, _ := Uint64(buf)
	b, _ := Bool(buf)
	s, err := String(buf)
	if err != nil {
		t.Fatalf("String: %s", err)
	}
	if u8 != 0xab || u32 != 0xdeadbeef || u32be != 0x01020304 || u64 != 1<<40+7 || !b || s != "g1" {
		t.Fatalf("unexpected values %x %x %x %x %t %q", u8, u32, u32be, u64, b, s)
	}
}

func TestTruncatedInput(t *testing.T) {
	_, err := Uint32(bytes.NewReader([]byte{1, 2}))
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected io.ErrUnexpectedEOF, got %v", err)
	}

	tooLong := &bytes.Buffer{}
	_ = PutUint32(tooLong, MaxVarBytesLength+1)
	_, err = VarBytes(tooLong)
	if !errors.Is(err, ErrVarBytesTooLong) {
		t.Fatalf("expected ErrVarBytesTooLong, got %v", err)
	}
}
