package serialization

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"golang.org/x/exp/slices"
)

// SourceIDToKey serializes a source id for use as a database key suffix
func SourceIDToKey(sourceID externalapi.SourceID) []byte {
	w := &bytes.Buffer{}
	// Writing to a bytes.Buffer never fails
	_ = writeSourceID(w, sourceID)
	return w.Bytes()
}

// SerializeUTXO serializes an unspent source
func SerializeUTXO(utxo *externalapi.UTXO) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeUTXO(w, utxo)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DeserializeUTXO deserializes an unspent source
func DeserializeUTXO(utxoBytes []byte) (*externalapi.UTXO, error) {
	r := bytes.NewReader(utxoBytes)
	utxo, err := readUTXO(r)
	if err != nil {
		return nil, err
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return utxo, nil
}

func writeUTXO(w io.Writer, utxo *externalapi.UTXO) error {
	return writeElements(w, utxo.Source, utxo.Condition, utxo.Amount)
}

func readUTXO(r io.Reader) (*externalapi.UTXO, error) {
	utxo := &externalapi.UTXO{}
	err := readElements(r, &utxo.Source, &utxo.Condition, &utxo.Amount)
	if err != nil {
		return nil, err
	}
	return utxo, nil
}

// SerializeBalance serializes the balance of a condition
func SerializeBalance(balance *externalapi.Balance) ([]byte, error) {
	sources := make([]externalapi.SourceID, 0, len(balance.Sources))
	for source := range balance.Sources {
		sources = append(sources, source)
	}
	slices.SortFunc(sources, func(a, b externalapi.SourceID) int {
		return bytes.Compare(SourceIDToKey(a), SourceIDToKey(b))
	})

	w := &bytes.Buffer{}
	err := writeElement(w, balance.Amount)
	if err != nil {
		return nil, err
	}
	err = writeLength(w, len(sources))
	if err != nil {
		return nil, err
	}
	for _, source := range sources {
		err = writeElement(w, source)
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DeserializeBalance deserializes the balance of a condition
func DeserializeBalance(balanceBytes []byte) (*externalapi.Balance, error) {
	r := bytes.NewReader(balanceBytes)
	balance := externalapi.NewBalance()
	err := readElement(r, &balance.Amount)
	if err != nil {
		return nil, err
	}
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	for i := 0; i < count; i++ {
		var source externalapi.SourceID
		err = readElement(r, &source)
		if err != nil {
			return nil, err
		}
		balance.Sources[source] = struct{}{}
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return balance, nil
}
