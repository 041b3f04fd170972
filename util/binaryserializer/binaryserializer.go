package binaryserializer

import (
	"encoding/binary"
	"io"

	"github.com/pkg/errors"
)

// maxItems is the number of buffers to keep in the free
// list to use for binary serialization and deserialization.
const maxItems = 1024

// MaxVarBytesLength bounds the length prefix accepted by VarBytes so that a
// corrupted prefix can't trigger a huge allocation.
const MaxVarBytesLength = 32 * 1024 * 1024

// ErrVarBytesTooLong is returned by VarBytes when the length prefix exceeds
// MaxVarBytesLength.
var ErrVarBytesTooLong = errors.New("variable length byte array is too long")

// Borrow returns a byte slice from the free list with a length of 8. A new
// buffer is allocated if there are not any available on the free list.
func Borrow() []byte {
	var buf []byte
	select {
	case buf = <-binaryFreeList:
	default:
		buf = make([]byte, 8)
	}
	return buf[:8]
}

// Return puts the provided byte slice back on the free list. The buffer MUST
// have been obtained via the Borrow function and therefore have a cap of 8.
func Return(buf []byte) {
	select {
	case binaryFreeList <- buf:
	default:
		// Let it go to the garbage collector.
	}
}

// Uint8 reads a single byte from the provided reader.
func Uint8(r io.Reader) (uint8, error) {
	buf := Borrow()[:1]
	defer Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.WithStack(err)
	}
	return buf[0], nil
}

// Uint32 reads four little endian bytes from the provided reader.
func Uint32(r io.Reader) (uint32, error) {
	return readUint32(r, binary.LittleEndian)
}

// Uint32BE reads four big endian bytes from the provided reader.
func Uint32BE(r io.Reader) (uint32, error) {
	return readUint32(r, binary.BigEndian)
}

func readUint32(r io.Reader, byteOrder binary.ByteOrder) (uint32, error) {
	buf := Borrow()[:4]
	defer Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.WithStack(err)
	}
	return byteOrder.Uint32(buf), nil
}

// Uint64 reads eight little endian bytes from the provided reader.
func Uint64(r io.Reader) (uint64, error) {
	buf := Borrow()[:8]
	defer Return(buf)
	if _, err := io.ReadFull(r, buf); err != nil {
		return 0, errors.WithStack(err)
	}
	return binary.LittleEndian.Uint64(buf), nil
}

// Bool reads a single byte and interprets any non zero value as true.
func Bool(r io.Reader) (bool, error) {
	value, err := Uint8(r)
	if err != nil {
		return false, err
	}
	return value != 0, nil
}

// VarBytes reads a little endian uint32 length prefix followed by that many
// bytes.
func VarBytes(r io.Reader) ([]byte, error) {
	length, err := Uint32(r)
	if err != nil {
		return nil, err
	}
	if length > MaxVarBytesLength {
		return nil, errors.Wrapf(ErrVarBytesTooLong, "length prefix %d", length)
	}
	data := make([]byte, length)
	if _, err := io.ReadFull(r, data); err != nil {
		return nil, errors.WithStack(err)
	}
	return data, nil
}

// String reads a string encoded by PutString.
func String(r io.Reader) (string, error) {
	data, err := VarBytes(r)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// FixedBytes reads exactly len(dst) bytes into dst.
func FixedBytes(r io.Reader, dst []byte) error {
	_, err := io.ReadFull(r, dst)
	return errors.WithStack(err)
}

// PutUint8 writes a single byte to the given writer.
func PutUint8(w io.Writer, val uint8) error {
	buf := Borrow()[:1]
	defer Return(buf)
	buf[0] = val
	_, err := w.Write(buf)
	return errors.WithStack(err)
}

// PutUint32 writes val as four little endian bytes.
func PutUint32(w io.Writer, val uint32) error {
	return putUint32(w, val, binary.LittleEndian)
}

// PutUint32BE writes val as four big endian bytes.
func PutUint32BE(w io.Writer, val uint32) error {
	return putUint32(w, val, binary.BigEndian)
}

func putUint32(w io.Writer, val uint32, byteOrder binary.ByteOrder) error {
	buf := Borrow()[:4]
	defer Return(buf)
	byteOrder.PutUint32(buf, val)
	_, err := w.Write(buf)
	return errors.WithStack(err)
}

// PutUint64 writes val as eight little endian bytes.
func PutUint64(w io.Writer, val uint64) error {
	buf := Borrow()[:8]
	defer Return(buf)
	binary.LittleEndian.PutUint64(buf, val)
	_, err := w.Write(buf)
	return errors.WithStack(err)
}

// PutBool writes val as a single byte.
func PutBool(w io.Writer, val bool) error {
	if val {
		return PutUint8(w, 0x01)
	}
	return PutUint8(w, 0x00)
}

// PutVarBytes writes a little endian uint32 length prefix followed by data.
func PutVarBytes(w io.Writer, data []byte) error {
	err := PutUint32(w, uint32(len(data)))
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return errors.WithStack(err)
}

// PutString writes s as length prefixed bytes.
func PutString(w io.Writer, s string) error {
	return PutVarBytes(w, []byte(s))
}

// binaryFreeList provides a free list of buffers to use for serializing and
// deserializing primitive integer values to and from io.Readers and io.Writers.
//
// It is a concurrent safe free list of byte slices with a cap of 8, bounded
// by maxItems.
var binaryFreeList = make(chan []byte, maxItems)
