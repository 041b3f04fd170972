package ledger

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database/serialization"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"
)

// mutation accumulates the balance and commitment changes of a single
// ledger operation, and stages them once the operation succeeded.
type mutation struct {
	ledger      *Ledger
	stagingArea *model.StagingArea

	balances   map[externalapi.Condition]*externalapi.Balance
	commitment *muhash.MuHash
}

func (l *Ledger) newMutation(stagingArea *model.StagingArea) (*mutation, error) {
	commitment, err := l.utxoCommitmentStore.Commitment(l.databaseContext, stagingArea)
	if err != nil {
		return nil, err
	}
	return &mutation{
		ledger:      l,
		stagingArea: stagingArea,
		balances:    make(map[externalapi.Condition]*externalapi.Balance),
		commitment:  commitment,
	}, nil
}

func (m *mutation) balance(condition externalapi.Condition) (*externalapi.Balance, error) {
	if balance, ok := m.balances[condition]; ok {
		return balance, nil
	}
	balance, err := m.ledger.balanceStore.Balance(m.ledger.databaseContext, m.stagingArea, condition)
	if err != nil {
		return nil, err
	}
	m.balances[condition] = balance
	return balance, nil
}

func (m *mutation) createUTXO(utxo *externalapi.UTXO) error {
	balance, err := m.balance(utxo.Condition)
	if err != nil {
		return err
	}
	if _, ok := balance.Sources[utxo.Source]; ok {
		return errors.Errorf("source %s is already owned by %s", utxo.Source, utxo.Condition)
	}
	newAmount, ok := externalapi.AddAmounts(balance.Amount, utxo.Amount)
	if !ok {
		return errors.Wrapf(ruleerrors.ErrAmountOverflow, "balance of %s cannot receive the %d of source %s",
			utxo.Condition, utxo.Amount, utxo.Source)
	}
	utxoBytes, err := serialization.SerializeUTXO(utxo)
	if err != nil {
		return err
	}

	if utxo.Source.Kind == externalapi.SourceKindDividend {
		err := m.ledger.dividendStore.Add(m.ledger.databaseContext, m.stagingArea,
			utxo.Source.PubKey, utxo.Source.BlockNumber)
		if err != nil {
			return err
		}
	}
	m.ledger.utxoStore.Stage(m.stagingArea, utxo)
	balance.Amount = newAmount
	balance.Sources[utxo.Source] = struct{}{}
	m.commitment.Add(utxoBytes)
	return nil
}

func (m *mutation) destroyUTXO(utxo *externalapi.UTXO) error {
	balance, err := m.balance(utxo.Condition)
	if err != nil {
		return err
	}
	if _, ok := balance.Sources[utxo.Source]; !ok {
		return errors.Errorf("source %s is missing from the balance of %s", utxo.Source, utxo.Condition)
	}
	if balance.Amount < utxo.Amount {
		return errors.Errorf("balance of %s is %d, which is lower than the %d of source %s",
			utxo.Condition, balance.Amount, utxo.Amount, utxo.Source)
	}
	utxoBytes, err := serialization.SerializeUTXO(utxo)
	if err != nil {
		return err
	}

	if utxo.Source.Kind == externalapi.SourceKindDividend {
		err := m.ledger.dividendStore.Remove(m.ledger.databaseContext, m.stagingArea,
			utxo.Source.PubKey, utxo.Source.BlockNumber)
		if err != nil {
			return err
		}
	}
	m.ledger.utxoStore.Delete(m.stagingArea, utxo.Source)
	balance.Amount -= utxo.Amount
	delete(balance.Sources, utxo.Source)
	m.commitment.Remove(utxoBytes)
	return nil
}

// sweepDust destroys every remaining source of the given conditions
// whose balance fell under the dust threshold
func (m *mutation) sweepDust(conditions []externalapi.Condition) ([]*externalapi.UTXO, error) {
	var destroyed []*externalapi.UTXO
	for _, condition := range conditions {
		balance, err := m.balance(condition)
		if err != nil {
			return nil, err
		}
		if len(balance.Sources) == 0 || balance.Amount >= m.ledger.dustThreshold {
			continue
		}
		for _, sourceID := range sortedSources(balance) {
			utxo, err := m.ledger.utxoStore.UTXO(m.ledger.databaseContext, m.stagingArea, sourceID)
			if err != nil {
				return nil, errors.Wrapf(err, "failed to sweep source %s of %s", sourceID, condition)
			}
			err = m.destroyUTXO(utxo)
			if err != nil {
				return nil, err
			}
			destroyed = append(destroyed, utxo)
		}
		log.Debugf("Swept the dust of %s", condition)
	}
	return destroyed, nil
}

func (m *mutation) stage() {
	for condition, balance := range m.balances {
		m.ledger.balanceStore.Stage(m.stagingArea, condition, balance)
	}
	m.ledger.utxoCommitmentStore.Stage(m.stagingArea, m.commitment)
}
