package externalapi

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// BlockNumber is the height of a block in the chain
type BlockNumber uint32

// Blockstamp uniquely identifies a block by its number and hash
type Blockstamp struct {
	Number BlockNumber
	Hash   Hash
}

// String returns the "NUMBER-HASH" form of the blockstamp
func (bs Blockstamp) String() string {
	return fmt.Sprintf("%d-%s", bs.Number, bs.Hash)
}

// Equal returns whether bs equals to other
func (bs Blockstamp) Equal(other Blockstamp) bool {
	return bs.Number == other.Number && bs.Hash == other.Hash
}

// ParseBlockstamp parses the "NUMBER-HASH" form of a blockstamp
func ParseBlockstamp(blockstampString string) (Blockstamp, error) {
	parts := strings.SplitN(blockstampString, "-", 2)
	if len(parts) != 2 {
		return Blockstamp{}, errors.Errorf("malformed blockstamp %q", blockstampString)
	}
	number, err := strconv.ParseUint(parts[0], 10, 32)
	if err != nil {
		return Blockstamp{}, errors.Wrapf(err, "malformed blockstamp number %q", parts[0])
	}
	hash, err := NewHashFromString(parts[1])
	if err != nil {
		return Blockstamp{}, err
	}
	return Blockstamp{Number: BlockNumber(number), Hash: hash}, nil
}

// MarshalText implements encoding.TextMarshaler
func (bs Blockstamp) MarshalText() ([]byte, error) {
	return []byte(bs.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (bs *Blockstamp) UnmarshalText(text []byte) error {
	parsed, err := ParseBlockstamp(string(text))
	if err != nil {
		return err
	}
	*bs = parsed
	return nil
}
