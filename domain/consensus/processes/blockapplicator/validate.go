package blockapplicator

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/ruleerrors"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"
)

// validateBlock checks everything that could make the application of block
// fail, so that a rejected block leaves the index and the graph untouched.
func validateBlock(block *externalapi.BlockDocument, identities map[externalapi.PubKey]*externalapi.IdentityDocument,
	index *identity.Index, graph model.WebOfTrust, expireCerts map[model.CertLink]externalapi.BlockNumber) error {

	newcomers := make(map[externalapi.PubKey]model.NodeID)
	nextNodeID := model.NodeID(graph.Size())
	for _, membership := range block.Joiners {
		_, isKnown := index.NodeID(membership.Issuer)
		if _, hasIdentity := identities[membership.Issuer]; !hasIdentity {
			if !isKnown {
				return errors.Wrapf(ruleerrors.ErrRenewUnknownIdentity, "joiner %s has no identity", membership.Issuer)
			}
			continue
		}
		if _, isNewcomer := newcomers[membership.Issuer]; isKnown || isNewcomer {
			return errors.Wrapf(ruleerrors.ErrDuplicateIdentity, "identity %s already exists", membership.Issuer)
		}
		newcomers[membership.Issuer] = nextNodeID
		nextNodeID++
	}
	for _, membership := range block.Actives {
		if _, hasIdentity := identities[membership.Issuer]; hasIdentity {
			continue
		}
		if _, ok := index.NodeID(membership.Issuer); !ok {
			return errors.Wrapf(ruleerrors.ErrRenewUnknownIdentity, "active %s has no identity", membership.Issuer)
		}
	}
	for _, pubKey := range block.Excluded {
		if _, ok := index.NodeID(pubKey); !ok {
			return errors.Wrapf(ruleerrors.ErrExcludeUnknownNodeID, "cannot exclude %s", pubKey)
		}
	}
	for _, revocation := range block.Revoked {
		if _, ok := index.NodeID(revocation.Issuer); !ok {
			return errors.Wrapf(ruleerrors.ErrRevokeUnknownNodeID, "cannot revoke %s", revocation.Issuer)
		}
	}

	resolve := func(pubKey externalapi.PubKey) (model.NodeID, bool) {
		if nodeID, ok := index.NodeID(pubKey); ok {
			return nodeID, true
		}
		nodeID, ok := newcomers[pubKey]
		return nodeID, ok
	}
	err := validateCertifications(block.Certifications, resolve, graph)
	if err != nil {
		return err
	}

	for link := range expireCerts {
		if !hasLink(graph, link) {
			return errors.Errorf("expiring certification %s is not in the web of trust", link)
		}
	}
	for _, tx := range block.Transactions {
		if tx.Document == nil {
			return errors.Wrapf(ruleerrors.ErrMissingTransaction, "block %s carries transaction %s "+
				"without its document", block.Blockstamp(), tx.Hash)
		}
	}
	return nil
}

func validateCertifications(certifications []*externalapi.CertificationDocument,
	resolve func(externalapi.PubKey) (model.NodeID, bool), graph model.WebOfTrust) error {

	added := make(map[model.CertLink]struct{}, len(certifications))
	issued := make(map[model.NodeID]int)
	for _, certification := range certifications {
		source, ok := resolve(certification.Issuer)
		if !ok {
			return errors.Wrapf(ruleerrors.ErrStoreCorrupted, "certification issuer %s is unknown", certification.Issuer)
		}
		target, ok := resolve(certification.Target)
		if !ok {
			return errors.Wrapf(ruleerrors.ErrStoreCorrupted, "certification target %s is unknown", certification.Target)
		}
		link := model.CertLink{Source: source, Target: target}

		if source == target {
			return errors.Wrapf(ruleerrors.ErrCertificationRejected, "%s certifies itself", certification.Issuer)
		}
		if _, ok := added[link]; ok || hasLink(graph, link) {
			return errors.Wrapf(ruleerrors.ErrCertificationRejected, "%s already certified %s",
				certification.Issuer, certification.Target)
		}
		issuedCount, _ := graph.IssuedCount(source)
		if issuedCount+issued[source] >= graph.MaxLinks() {
			return errors.Wrapf(ruleerrors.ErrCertificationRejected, "%s has no certification left",
				certification.Issuer)
		}
		added[link] = struct{}{}
		issued[source]++
	}
	return nil
}

func hasLink(graph model.WebOfTrust, link model.CertLink) bool {
	sources, ok := graph.LinksSource(link.Target)
	if !ok {
		return false
	}
	_, found := slices.BinarySearch(sources, link.Source)
	return found
}
