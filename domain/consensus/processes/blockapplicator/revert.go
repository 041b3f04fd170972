package blockapplicator

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/duniter/duniter-rs-sub003/util/panics"
	"github.com/pkg/errors"
)

// TransactionGetter returns the document of an applied transaction
type TransactionGetter interface {
	TransactionDocument(txHash externalapi.Hash) (*externalapi.TransactionDocument, error)
}

// RevertBlock undoes the application of the stored block dalBlock on index
// and graph, which must be the state ApplyBlock left. The returned write
// requests are ordered for reversion and keep the block, with its full
// transactions, as a fork block.
func RevertBlock(dalBlock *model.DALBlock, index *identity.Index, graph model.WebOfTrust,
	txGetter TransactionGetter) (*model.WriteRequests, error) {

	block := dalBlock.Block
	identities := identitiesByIssuer(block)
	err := validateReversion(block, index)
	if err != nil {
		return nil, err
	}
	transactions := make([]*externalapi.TxDocOrHash, len(block.Transactions))
	for i, tx := range block.Transactions {
		if tx.Document != nil {
			transactions[i] = tx
			continue
		}
		document, err := txGetter.TransactionDocument(tx.Hash)
		if err != nil {
			return nil, err
		}
		transactions[i] = &externalapi.TxDocOrHash{Document: document}
	}

	blockstamp := block.Blockstamp()
	requests := &model.WriteRequests{Revert: true}
	for i := len(transactions) - 1; i >= 0; i-- {
		requests.Currency = append(requests.Currency, &model.TransactionRequest{
			Transaction: transactions[i].Document,
			BlockNumber: block.Number,
			Revert:      true,
		})
	}
	if block.Dividend != nil && *block.Dividend > 0 {
		requests.Currency = append(requests.Currency, &model.CreateDividendRequest{
			Amount:      *block.Dividend,
			Base:        block.UnitBase,
			BlockNumber: block.Number,
			Members:     index.PubKeysOf(graph.Enabled()),
			Revert:      true,
		})
	}

	createdIns, linksByCreatedIn := groupExpiredCerts(dalBlock.ExpireCerts)
	for i := len(createdIns) - 1; i >= 0; i-- {
		links := linksByCreatedIn[createdIns[i]]
		for j := len(links) - 1; j >= 0; j-- {
			_, err := graph.AddLink(links[j].Source, links[j].Target)
			if err != nil {
				panics.Fatal(log, "failed to restore expired certification %s: %s", links[j], err)
			}
		}
		requests.WoT = append(requests.WoT, &model.ExpireCertificationsRequest{
			CreatedIn: createdIns[i],
			Links:     links,
			Revert:    true,
		})
	}
	for i := len(block.Certifications) - 1; i >= 0; i-- {
		certification := block.Certifications[i]
		source, _ := index.NodeID(certification.Issuer)
		target, _ := index.NodeID(certification.Target)
		_, err := graph.RemoveLink(source, target)
		if err != nil {
			panics.Fatal(log, "failed to remove the certification of %s by %s: %s",
				certification.Target, certification.Issuer, err)
		}
		requests.WoT = append(requests.WoT, &model.CreateCertificationRequest{
			SourcePubKey: certification.Issuer,
			Link:         model.CertLink{Source: source, Target: target},
			CreatedIn:    block.Number,
			MedianTime:   block.MedianTime,
			Revert:       true,
		})
	}

	restoreEnabled := func(pubKey externalapi.PubKey) model.NodeID {
		nodeID, _ := index.NodeID(pubKey)
		enabled, ok := dalBlock.PreviouslyEnabled[pubKey]
		if !ok {
			enabled = true
		}
		if _, ok := graph.SetEnabled(nodeID, enabled); !ok {
			panics.Fatal(log, "node %d of %s is not in the web of trust", nodeID, pubKey)
		}
		return nodeID
	}
	for i := len(block.Revoked) - 1; i >= 0; i-- {
		pubKey := block.Revoked[i].Issuer
		restoreEnabled(pubKey)
		requests.WoT = append(requests.WoT, &model.RevokeIdentityRequest{
			PubKey:     pubKey,
			Blockstamp: blockstamp,
			Explicit:   true,
			Revert:     true,
		})
	}
	for i := len(block.Excluded) - 1; i >= 0; i-- {
		pubKey := block.Excluded[i]
		restoreEnabled(pubKey)
		requests.WoT = append(requests.WoT, &model.ExcludeIdentityRequest{
			PubKey:     pubKey,
			Blockstamp: blockstamp,
			Revert:     true,
		})
	}
	revertRenewal := func(membership *externalapi.MembershipDocument) {
		nodeID := restoreEnabled(membership.Issuer)
		requests.WoT = append(requests.WoT, &model.RenewIdentityRequest{
			NodeID:     nodeID,
			PubKey:     membership.Issuer,
			Membership: membership,
			MedianTime: block.MedianTime,
			Revert:     true,
		})
	}
	for i := len(block.Actives) - 1; i >= 0; i-- {
		if _, isNewcomer := identities[block.Actives[i].Issuer]; !isNewcomer {
			revertRenewal(block.Actives[i])
		}
	}
	for i := len(block.Joiners) - 1; i >= 0; i-- {
		if _, isNewcomer := identities[block.Joiners[i].Issuer]; !isNewcomer {
			revertRenewal(block.Joiners[i])
		}
	}
	for i := len(block.Joiners) - 1; i >= 0; i-- {
		membership := block.Joiners[i]
		if _, isNewcomer := identities[membership.Issuer]; !isNewcomer {
			continue
		}
		nodeID, _ := index.NodeID(membership.Issuer)
		removed, ok := graph.RemoveLastNode()
		if !ok || removed != nodeID {
			panics.Fatal(log, "newcomer %s has node %d, which is not the last node of the web of trust",
				membership.Issuer, nodeID)
		}
		err := index.RemoveLast(membership.Issuer)
		if err != nil {
			panics.Fatal(log, "failed to unindex newcomer %s: %s", membership.Issuer, err)
		}
		requests.WoT = append(requests.WoT, &model.RevertCreateIdentityRequest{
			NodeID:     nodeID,
			PubKey:     membership.Issuer,
			Membership: membership,
		})
	}

	fullBlock := *block
	fullBlock.Transactions = transactions
	requests.Block = append(requests.Block, &model.RevertBlockRequest{
		Block: &model.DALBlock{
			Block:             &fullBlock,
			IsFork:            true,
			ExpireCerts:       dalBlock.ExpireCerts,
			PreviouslyEnabled: dalBlock.PreviouslyEnabled,
		},
	})
	log.Tracef("Reverted block %s", blockstamp)
	return requests, nil
}

func validateReversion(block *externalapi.BlockDocument, index *identity.Index) error {

	for _, pubKey := range block.Excluded {
		if _, ok := index.NodeID(pubKey); !ok {
			return errors.Wrapf(ruleerrors.ErrExcludeUnknownNodeID, "cannot revert the exclusion of %s", pubKey)
		}
	}
	for _, revocation := range block.Revoked {
		if _, ok := index.NodeID(revocation.Issuer); !ok {
			return errors.Wrapf(ruleerrors.ErrRevokeUnknownNodeID, "cannot revert the revocation of %s",
				revocation.Issuer)
		}
	}
	known := func(pubKey externalapi.PubKey) bool {
		_, ok := index.NodeID(pubKey)
		return ok
	}
	for _, memberships := range [][]*externalapi.MembershipDocument{block.Joiners, block.Actives} {
		for _, membership := range memberships {
			if !known(membership.Issuer) {
				return errors.Wrapf(ruleerrors.ErrStoreCorrupted, "identity %s of block %s is unknown",
					membership.Issuer, block.Blockstamp())
			}
		}
	}
	for _, certification := range block.Certifications {
		if !known(certification.Issuer) || !known(certification.Target) {
			return errors.Wrapf(ruleerrors.ErrStoreCorrupted, "certification of %s by %s in block %s "+
				"references an unknown identity", certification.Target, certification.Issuer, block.Blockstamp())
		}
	}
	return nil
}
