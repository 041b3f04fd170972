package externalapi

import (
	"bytes"
	"encoding/hex"
	"strings"

	"github.com/pkg/errors"
)

// HashSize of array used to store hashes.
const HashSize = 32

// Hash is a block, identity or transaction hash
type Hash [HashSize]byte

// NewHashFromByteSlice creates a Hash from the given byte slice
func NewHashFromByteSlice(hashBytes []byte) (Hash, error) {
	var hash Hash
	if len(hashBytes) != HashSize {
		return hash, errors.Errorf("invalid hash size. Want: %d, got: %d",
			HashSize, len(hashBytes))
	}
	copy(hash[:], hashBytes)
	return hash, nil
}

// NewHashFromString parses the hexadecimal representation of a hash
func NewHashFromString(hashString string) (Hash, error) {
	expectedLength := HashSize * 2
	if len(hashString) != expectedLength {
		return Hash{}, errors.Errorf("hash string length is %d, while it should be be %d",
			len(hashString), expectedLength)
	}

	hashBytes, err := hex.DecodeString(hashString)
	if err != nil {
		return Hash{}, errors.WithStack(err)
	}

	return NewHashFromByteSlice(hashBytes)
}

// String returns the Hash as the upper-case hexadecimal string of the hash.
func (hash Hash) String() string {
	return strings.ToUpper(hex.EncodeToString(hash[:]))
}

// ByteSlice returns a copy of the hash bytes
func (hash Hash) ByteSlice() []byte {
	hashBytes := make([]byte, HashSize)
	copy(hashBytes, hash[:])
	return hashBytes
}

// IsZero returns whether the hash is all zeroes
func (hash Hash) IsZero() bool {
	return hash == Hash{}
}

// Compare returns -1, 0 or 1 as hash sorts before, equal to or after other
func (hash Hash) Compare(other Hash) int {
	return bytes.Compare(hash[:], other[:])
}

// MarshalText implements encoding.TextMarshaler
func (hash Hash) MarshalText() ([]byte, error) {
	return []byte(hash.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (hash *Hash) UnmarshalText(text []byte) error {
	parsed, err := NewHashFromString(string(text))
	if err != nil {
		return err
	}
	*hash = parsed
	return nil
}
