package serialization

import (
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/util/binaryserializer"
	"github.com/pkg/errors"
)

// errNoEncodingForType signifies that there's no encoding for the given type.
var errNoEncodingForType = errors.New("there's no encoding for this type")

// ErrMalformed is returned when stored bytes can't be decoded, or when
// bytes remain after decoding a record.
var ErrMalformed = errors.New("malformed record")

// maxCollectionLength bounds every decoded collection length
const maxCollectionLength = 1 << 24

// writeElement writes the little endian representation of element to w.
func writeElement(w io.Writer, element interface{}) error {
	switch e := element.(type) {
	case uint8:
		return binaryserializer.PutUint8(w, e)

	case uint32:
		return binaryserializer.PutUint32(w, e)

	case uint64:
		return binaryserializer.PutUint64(w, e)

	case bool:
		return binaryserializer.PutBool(w, e)

	case string:
		return binaryserializer.PutString(w, e)

	case externalapi.Hash:
		_, err := w.Write(e[:])
		return errors.WithStack(err)

	case externalapi.BlockNumber:
		return binaryserializer.PutUint32(w, uint32(e))

	case externalapi.Blockstamp:
		return writeElements(w, e.Number, e.Hash)

	case externalapi.PubKey:
		return binaryserializer.PutString(w, string(e))

	case externalapi.Condition:
		return binaryserializer.PutString(w, string(e))

	case externalapi.SourceKind:
		return binaryserializer.PutUint8(w, uint8(e))

	case externalapi.SourceID:
		return writeSourceID(w, e)

	case model.NodeID:
		return binaryserializer.PutUint32(w, uint32(e))

	case model.IdentityStateKind:
		return binaryserializer.PutUint8(w, uint8(e))

	case model.CertLink:
		return writeElements(w, e.Source, e.Target)
	}

	return errors.Wrapf(errNoEncodingForType, "couldn't find a way to write type %T", element)
}

// writeElements writes multiple items to w. It is equivalent to multiple
// calls to writeElement.
func writeElements(w io.Writer, elements ...interface{}) error {
	for _, element := range elements {
		err := writeElement(w, element)
		if err != nil {
			return err
		}
	}
	return nil
}

// readElement reads the next sequence of bytes from r using little endian
// depending on the concrete type of element pointed to.
func readElement(r io.Reader, element interface{}) error {
	switch e := element.(type) {
	case *uint8:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *uint32:
		rv, err := binaryserializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *uint64:
		rv, err := binaryserializer.Uint64(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *bool:
		rv, err := binaryserializer.Bool(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *string:
		rv, err := binaryserializer.String(r)
		if err != nil {
			return err
		}
		*e = rv
		return nil

	case *externalapi.Hash:
		return binaryserializer.FixedBytes(r, e[:])

	case *externalapi.BlockNumber:
		rv, err := binaryserializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = externalapi.BlockNumber(rv)
		return nil

	case *externalapi.Blockstamp:
		return readElements(r, &e.Number, &e.Hash)

	case *externalapi.PubKey:
		rv, err := binaryserializer.String(r)
		if err != nil {
			return err
		}
		*e = externalapi.PubKey(rv)
		return nil

	case *externalapi.Condition:
		rv, err := binaryserializer.String(r)
		if err != nil {
			return err
		}
		*e = externalapi.Condition(rv)
		return nil

	case *externalapi.SourceKind:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		if rv > uint8(externalapi.SourceKindDividend) {
			return errors.Wrapf(ErrMalformed, "unknown source kind %d", rv)
		}
		*e = externalapi.SourceKind(rv)
		return nil

	case *externalapi.SourceID:
		sourceID, err := readSourceID(r)
		if err != nil {
			return err
		}
		*e = sourceID
		return nil

	case *model.NodeID:
		rv, err := binaryserializer.Uint32(r)
		if err != nil {
			return err
		}
		*e = model.NodeID(rv)
		return nil

	case *model.IdentityStateKind:
		rv, err := binaryserializer.Uint8(r)
		if err != nil {
			return err
		}
		if rv > uint8(model.IdentityStateImplicitlyRevoked) {
			return errors.Wrapf(ErrMalformed, "unknown identity state %d", rv)
		}
		*e = model.IdentityStateKind(rv)
		return nil

	case *model.CertLink:
		return readElements(r, &e.Source, &e.Target)
	}

	return errors.Wrapf(errNoEncodingForType, "couldn't find a way to read type %T", element)
}

// readElements reads multiple items from r. It is equivalent to multiple
// calls to readElement.
func readElements(r io.Reader, elements ...interface{}) error {
	for _, element := range elements {
		err := readElement(r, element)
		if err != nil {
			return err
		}
	}
	return nil
}

func writeLength(w io.Writer, length int) error {
	return binaryserializer.PutUint32(w, uint32(length))
}

func readLength(r io.Reader) (int, error) {
	length, err := binaryserializer.Uint32(r)
	if err != nil {
		return 0, err
	}
	if length > maxCollectionLength {
		return 0, errors.Wrapf(ErrMalformed, "collection length %d is too large", length)
	}
	return int(length), nil
}

func writeOptionalBlockstamp(w io.Writer, blockstamp *externalapi.Blockstamp) error {
	if blockstamp == nil {
		return writeElement(w, false)
	}
	return writeElements(w, true, *blockstamp)
}

func readOptionalBlockstamp(r io.Reader) (*externalapi.Blockstamp, error) {
	var isSet bool
	err := readElement(r, &isSet)
	if err != nil {
		return nil, err
	}
	if !isSet {
		return nil, nil
	}
	blockstamp := &externalapi.Blockstamp{}
	err = readElement(r, blockstamp)
	if err != nil {
		return nil, err
	}
	return blockstamp, nil
}

func writeSourceID(w io.Writer, sourceID externalapi.SourceID) error {
	err := writeElement(w, sourceID.Kind)
	if err != nil {
		return err
	}
	if sourceID.Kind == externalapi.SourceKindDividend {
		return writeElements(w, sourceID.PubKey, sourceID.BlockNumber)
	}
	return writeElements(w, sourceID.TxHash, sourceID.OutputIndex)
}

func readSourceID(r io.Reader) (externalapi.SourceID, error) {
	var kind externalapi.SourceKind
	err := readElement(r, &kind)
	if err != nil {
		return externalapi.SourceID{}, err
	}
	if kind == externalapi.SourceKindDividend {
		var pubKey externalapi.PubKey
		var blockNumber externalapi.BlockNumber
		err = readElements(r, &pubKey, &blockNumber)
		if err != nil {
			return externalapi.SourceID{}, err
		}
		return externalapi.NewDividendSourceID(pubKey, blockNumber), nil
	}
	var txHash externalapi.Hash
	var outputIndex uint32
	err = readElements(r, &txHash, &outputIndex)
	if err != nil {
		return externalapi.SourceID{}, err
	}
	return externalapi.NewTransactionOutputSourceID(txHash, outputIndex), nil
}

// checkFullyConsumed makes sure no bytes remain once a record is decoded
func checkFullyConsumed(r io.Reader) error {
	var trailing [1]byte
	n, _ := r.Read(trailing[:])
	if n != 0 {
		return errors.Wrapf(ErrMalformed, "unexpected trailing bytes")
	}
	return nil
}
