package ledger

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/pkg/errors"
)

// CreateDividend credits a dividend source to every member
func (l *Ledger) CreateDividend(stagingArea *model.StagingArea, amount uint64, base uint32,
	blockNumber externalapi.BlockNumber, members []externalapi.PubKey) error {

	mutation, err := l.newMutation(stagingArea)
	if err != nil {
		return err
	}
	dividendAmount, err := normalizedAmount(amount, base)
	if err != nil {
		return err
	}
	for _, pubKey := range members {
		err := mutation.createUTXO(&externalapi.UTXO{
			Source:    externalapi.NewDividendSourceID(pubKey, blockNumber),
			Condition: externalapi.SigCondition(pubKey),
			Amount:    dividendAmount,
		})
		if err != nil {
			return err
		}
	}
	mutation.stage()
	log.Debugf("Created a dividend of %d units for %d members in block %d",
		dividendAmount, len(members), blockNumber)
	return nil
}

// RevertDividend removes the dividend sources created by CreateDividend.
// Transactions spending them must have been reverted first.
func (l *Ledger) RevertDividend(stagingArea *model.StagingArea, blockNumber externalapi.BlockNumber,
	members []externalapi.PubKey) error {

	mutation, err := l.newMutation(stagingArea)
	if err != nil {
		return err
	}
	for i := len(members) - 1; i >= 0; i-- {
		sourceID := externalapi.NewDividendSourceID(members[i], blockNumber)
		utxo, err := l.utxoStore.UTXO(l.databaseContext, stagingArea, sourceID)
		if err != nil {
			return errors.Wrapf(err, "dividend %s is not unspent", sourceID)
		}
		err = mutation.destroyUTXO(utxo)
		if err != nil {
			return err
		}
	}
	mutation.stage()
	log.Debugf("Reverted the dividend of block %d", blockNumber)
	return nil
}
