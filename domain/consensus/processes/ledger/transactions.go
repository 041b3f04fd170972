package ledger

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// ApplyTransaction consumes the sources referenced by the inputs of tx,
// sweeps the dust left to their owners and creates its outputs.
// Nothing is staged if the transaction is rejected.
func (l *Ledger) ApplyTransaction(stagingArea *model.StagingArea, tx *externalapi.TransactionDocument,
	blockNumber externalapi.BlockNumber) error {

	exists, err := l.transactionStore.HasTransaction(l.databaseContext, stagingArea, tx.Hash)
	if err != nil {
		return err
	}
	if exists {
		return errors.Wrapf(ruleerrors.ErrDuplicateTransaction, "transaction %s is already applied", tx.Hash)
	}

	consumed, err := l.resolveInputs(stagingArea, tx)
	if err != nil {
		return err
	}
	outputAmounts, err := checkAmounts(tx, consumed)
	if err != nil {
		return err
	}

	mutation, err := l.newMutation(stagingArea)
	if err != nil {
		return err
	}
	var issuerConditions []externalapi.Condition
	for _, utxo := range consumed {
		err := mutation.destroyUTXO(utxo)
		if err != nil {
			return err
		}
		if !slices.Contains(issuerConditions, utxo.Condition) {
			issuerConditions = append(issuerConditions, utxo.Condition)
		}
	}
	slices.Sort(issuerConditions)
	destroyed, err := mutation.sweepDust(issuerConditions)
	if err != nil {
		return err
	}
	for i, output := range tx.Outputs {
		err := mutation.createUTXO(&externalapi.UTXO{
			Source:    externalapi.NewTransactionOutputSourceID(tx.Hash, uint32(i)),
			Condition: output.Condition,
			Amount:    outputAmounts[i],
		})
		if err != nil {
			return err
		}
	}

	l.transactionStore.Stage(stagingArea, &model.TransactionRecord{
		Transaction:      tx,
		BlockNumber:      blockNumber,
		DestroyedSources: destroyed,
	})
	mutation.stage()
	log.Tracef("Applied transaction %s with %d inputs, %d outputs and %d swept sources",
		tx.Hash, len(tx.Inputs), len(tx.Outputs), len(destroyed))
	return nil
}

func (l *Ledger) resolveInputs(stagingArea *model.StagingArea,
	tx *externalapi.TransactionDocument) ([]*externalapi.UTXO, error) {

	consumed := make([]*externalapi.UTXO, 0, len(tx.Inputs))
	seen := make(map[externalapi.SourceID]struct{}, len(tx.Inputs))
	var missingSources []externalapi.SourceID
	for _, input := range tx.Inputs {
		if _, ok := seen[input.Source]; ok {
			missingSources = append(missingSources, input.Source)
			continue
		}
		seen[input.Source] = struct{}{}

		utxo, err := l.utxoStore.UTXO(l.databaseContext, stagingArea, input.Source)
		if database.IsNotFoundError(err) {
			missingSources = append(missingSources, input.Source)
			continue
		}
		if err != nil {
			return nil, err
		}
		consumed = append(consumed, utxo)
	}
	if len(missingSources) > 0 {
		return nil, ruleerrors.NewErrMissingSources(missingSources)
	}
	return consumed, nil
}

// checkAmounts verifies that the inputs of tx declare the amounts of the
// sources they consume and that its outputs do not exceed its inputs. It
// returns the normalized amounts of the outputs.
func checkAmounts(tx *externalapi.TransactionDocument, consumed []*externalapi.UTXO) ([]uint64, error) {
	var inputsAmount, outputsAmount uint64
	for i, input := range tx.Inputs {
		declared, ok := externalapi.NormalizedAmount(input.Amount, input.Base)
		if !ok || declared != consumed[i].Amount {
			return nil, errors.Wrapf(ruleerrors.ErrUnbalancedTransaction, "input %d of transaction %s declares "+
				"%d in base %d while source %s holds %d", i, tx.Hash, input.Amount, input.Base,
				input.Source, consumed[i].Amount)
		}
		inputsAmount, ok = externalapi.AddAmounts(inputsAmount, declared)
		if !ok {
			return nil, errors.Wrapf(ruleerrors.ErrUnbalancedTransaction,
				"inputs of transaction %s overflow", tx.Hash)
		}
	}
	outputAmounts := make([]uint64, len(tx.Outputs))
	for i, output := range tx.Outputs {
		amount, ok := externalapi.NormalizedAmount(output.Amount, output.Base)
		if ok {
			outputsAmount, ok = externalapi.AddAmounts(outputsAmount, amount)
		}
		if !ok {
			return nil, errors.Wrapf(ruleerrors.ErrUnbalancedTransaction,
				"outputs of transaction %s overflow at output %d", tx.Hash, i)
		}
		outputAmounts[i] = amount
	}
	if outputsAmount > inputsAmount {
		return nil, errors.Wrapf(ruleerrors.ErrUnbalancedTransaction, "transaction %s creates %d units "+
			"out of %d", tx.Hash, outputsAmount, inputsAmount)
	}
	return outputAmounts, nil
}

// RevertTransaction undoes ApplyTransaction: it removes the outputs of the
// transaction, resurrects the sources swept as dust and re-creates the
// consumed sources.
func (l *Ledger) RevertTransaction(stagingArea *model.StagingArea, txHash externalapi.Hash) error {
	record, err := l.transactionStore.Transaction(l.databaseContext, stagingArea, txHash)
	if database.IsNotFoundError(err) {
		return errors.Wrapf(ruleerrors.ErrMissingTransaction, "transaction %s is not applied", txHash)
	}
	if err != nil {
		return err
	}
	tx := record.Transaction

	mutation, err := l.newMutation(stagingArea)
	if err != nil {
		return err
	}
	for i := len(tx.Outputs) - 1; i >= 0; i-- {
		sourceID := externalapi.NewTransactionOutputSourceID(tx.Hash, uint32(i))
		utxo, err := l.utxoStore.UTXO(l.databaseContext, stagingArea, sourceID)
		if err != nil {
			return errors.Wrapf(err, "output %d of transaction %s is not unspent", i, tx.Hash)
		}
		err = mutation.destroyUTXO(utxo)
		if err != nil {
			return err
		}
	}
	for i := len(record.DestroyedSources) - 1; i >= 0; i-- {
		err := mutation.createUTXO(record.DestroyedSources[i])
		if err != nil {
			return err
		}
	}
	for i := len(tx.Inputs) - 1; i >= 0; i-- {
		utxo, err := l.consumedSource(stagingArea, tx.Inputs[i])
		if err != nil {
			return err
		}
		err = mutation.createUTXO(utxo)
		if err != nil {
			return err
		}
	}

	l.transactionStore.Delete(stagingArea, txHash)
	mutation.stage()
	log.Tracef("Reverted transaction %s", txHash)
	return nil
}

// consumedSource rebuilds the source an input consumed. The owner of a
// transaction output is read back from the transaction that created it.
func (l *Ledger) consumedSource(stagingArea *model.StagingArea,
	input *externalapi.TransactionInput) (*externalapi.UTXO, error) {

	source := input.Source
	if source.Kind == externalapi.SourceKindDividend {
		amount, err := normalizedAmount(input.Amount, input.Base)
		if err != nil {
			return nil, err
		}
		return &externalapi.UTXO{
			Source:    source,
			Condition: externalapi.SigCondition(source.PubKey),
			Amount:    amount,
		}, nil
	}

	record, err := l.transactionStore.Transaction(l.databaseContext, stagingArea, source.TxHash)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to find the transaction that created %s", source)
	}
	outputs := record.Transaction.Outputs
	if int(source.OutputIndex) >= len(outputs) {
		return nil, errors.Errorf("transaction %s has no output %d", source.TxHash, source.OutputIndex)
	}
	output := outputs[source.OutputIndex]
	amount, err := normalizedAmount(output.Amount, output.Base)
	if err != nil {
		return nil, err
	}
	return &externalapi.UTXO{
		Source:    source,
		Condition: output.Condition,
		Amount:    amount,
	}, nil
}

func normalizedAmount(amount uint64, base uint32) (uint64, error) {
	normalized, ok := externalapi.NormalizedAmount(amount, base)
	if !ok {
		return 0, errors.Wrapf(ruleerrors.ErrAmountOverflow, "%d in base %d", amount, base)
	}
	return normalized, nil
}
