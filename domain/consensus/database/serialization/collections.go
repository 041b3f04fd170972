package serialization

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

// SerializePubKeys serializes a list of public keys
func SerializePubKeys(pubKeys []externalapi.PubKey) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeLength(w, len(pubKeys))
	if err != nil {
		return nil, err
	}
	for _, pubKey := range pubKeys {
		err = writeElement(w, pubKey)
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DeserializePubKeys deserializes a list of public keys
func DeserializePubKeys(pubKeysBytes []byte) ([]externalapi.PubKey, error) {
	r := bytes.NewReader(pubKeysBytes)
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	pubKeys := make([]externalapi.PubKey, count)
	for i := range pubKeys {
		err = readElement(r, &pubKeys[i])
		if err != nil {
			return nil, err
		}
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return pubKeys, nil
}

// SerializeCertLinks serializes a list of certification links
func SerializeCertLinks(links []model.CertLink) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeLength(w, len(links))
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		err = writeElement(w, link)
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DeserializeCertLinks deserializes a list of certification links
func DeserializeCertLinks(linksBytes []byte) ([]model.CertLink, error) {
	r := bytes.NewReader(linksBytes)
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	links := make([]model.CertLink, count)
	for i := range links {
		err = readElement(r, &links[i])
		if err != nil {
			return nil, err
		}
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return links, nil
}

// SerializeBlockNumbers serializes a list of block numbers
func SerializeBlockNumbers(blockNumbers []externalapi.BlockNumber) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeBlockNumbers(w, blockNumbers)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DeserializeBlockNumbers deserializes a list of block numbers
func DeserializeBlockNumbers(blockNumbersBytes []byte) ([]externalapi.BlockNumber, error) {
	r := bytes.NewReader(blockNumbersBytes)
	blockNumbers, err := readBlockNumbers(r)
	if err != nil {
		return nil, err
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return blockNumbers, nil
}

// SerializeBlockstamp serializes a blockstamp
func SerializeBlockstamp(blockstamp externalapi.Blockstamp) []byte {
	w := &bytes.Buffer{}
	// Writing to a bytes.Buffer never fails
	_ = writeElement(w, blockstamp)
	return w.Bytes()
}

// DeserializeBlockstamp deserializes a blockstamp
func DeserializeBlockstamp(blockstampBytes []byte) (externalapi.Blockstamp, error) {
	r := bytes.NewReader(blockstampBytes)
	var blockstamp externalapi.Blockstamp
	err := readElement(r, &blockstamp)
	if err != nil {
		return externalapi.Blockstamp{}, err
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return externalapi.Blockstamp{}, err
	}
	return blockstamp, nil
}

func writeBlockNumbers(w io.Writer, blockNumbers []externalapi.BlockNumber) error {
	err := writeLength(w, len(blockNumbers))
	if err != nil {
		return err
	}
	for _, blockNumber := range blockNumbers {
		err = writeElement(w, blockNumber)
		if err != nil {
			return err
		}
	}
	return nil
}

func readBlockNumbers(r io.Reader) ([]externalapi.BlockNumber, error) {
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	blockNumbers := make([]externalapi.BlockNumber, count)
	for i := range blockNumbers {
		err = readElement(r, &blockNumbers[i])
		if err != nil {
			return nil, err
		}
	}
	return blockNumbers, nil
}

func writeUint32s(w io.Writer, values []uint32) error {
	err := writeLength(w, len(values))
	if err != nil {
		return err
	}
	for _, value := range values {
		err = writeElement(w, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func readUint32s(r io.Reader) ([]uint32, error) {
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	values := make([]uint32, count)
	for i := range values {
		err = readElement(r, &values[i])
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}

func writeUint64s(w io.Writer, values []uint64) error {
	err := writeLength(w, len(values))
	if err != nil {
		return err
	}
	for _, value := range values {
		err = writeElement(w, value)
		if err != nil {
			return err
		}
	}
	return nil
}

func readUint64s(r io.Reader) ([]uint64, error) {
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	values := make([]uint64, count)
	for i := range values {
		err = readElement(r, &values[i])
		if err != nil {
			return nil, err
		}
	}
	return values, nil
}
