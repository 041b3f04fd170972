package serialization

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

// SerializeTransactionRecord serializes an applied transaction
func SerializeTransactionRecord(record *model.TransactionRecord) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeTransactionDocument(w, record.Transaction)
	if err != nil {
		return nil, err
	}
	err = writeElement(w, record.BlockNumber)
	if err != nil {
		return nil, err
	}
	err = writeLength(w, len(record.DestroyedSources))
	if err != nil {
		return nil, err
	}
	for _, utxo := range record.DestroyedSources {
		err = writeUTXO(w, utxo)
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DeserializeTransactionRecord deserializes an applied transaction
func DeserializeTransactionRecord(recordBytes []byte) (*model.TransactionRecord, error) {
	r := bytes.NewReader(recordBytes)
	tx, err := readTransactionDocument(r)
	if err != nil {
		return nil, err
	}
	record := &model.TransactionRecord{Transaction: tx}
	err = readElement(r, &record.BlockNumber)
	if err != nil {
		return nil, err
	}
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	record.DestroyedSources = make([]*externalapi.UTXO, count)
	for i := range record.DestroyedSources {
		record.DestroyedSources[i], err = readUTXO(r)
		if err != nil {
			return nil, err
		}
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return record, nil
}

func writeTransactionDocument(w io.Writer, tx *externalapi.TransactionDocument) error {
	err := writeElement(w, tx.Hash)
	if err != nil {
		return err
	}
	err = writeLength(w, len(tx.Issuers))
	if err != nil {
		return err
	}
	for _, issuer := range tx.Issuers {
		err = writeElement(w, issuer)
		if err != nil {
			return err
		}
	}
	err = writeLength(w, len(tx.Inputs))
	if err != nil {
		return err
	}
	for _, input := range tx.Inputs {
		err = writeElements(w, input.Amount, input.Base, input.Source)
		if err != nil {
			return err
		}
	}
	err = writeLength(w, len(tx.Outputs))
	if err != nil {
		return err
	}
	for _, output := range tx.Outputs {
		err = writeElements(w, output.Amount, output.Base, output.Condition)
		if err != nil {
			return err
		}
	}
	return nil
}

func readTransactionDocument(r io.Reader) (*externalapi.TransactionDocument, error) {
	tx := &externalapi.TransactionDocument{}
	err := readElement(r, &tx.Hash)
	if err != nil {
		return nil, err
	}
	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	tx.Issuers = make([]externalapi.PubKey, count)
	for i := range tx.Issuers {
		err = readElement(r, &tx.Issuers[i])
		if err != nil {
			return nil, err
		}
	}
	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	tx.Inputs = make([]*externalapi.TransactionInput, count)
	for i := range tx.Inputs {
		input := &externalapi.TransactionInput{}
		err = readElements(r, &input.Amount, &input.Base, &input.Source)
		if err != nil {
			return nil, err
		}
		tx.Inputs[i] = input
	}
	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	tx.Outputs = make([]*externalapi.TransactionOutput, count)
	for i := range tx.Outputs {
		output := &externalapi.TransactionOutput{}
		err = readElements(r, &output.Amount, &output.Base, &output.Condition)
		if err != nil {
			return nil, err
		}
		tx.Outputs[i] = output
	}
	return tx, nil
}
