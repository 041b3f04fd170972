package blockapplicator

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/duniter/duniter-rs-sub003/util/panics"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"
)

// ApplyBlock applies the web of trust effects of block to index and graph,
// and returns the write requests persisting the block. expireCerts maps
// every certification that expires because of block to the block the
// certification was written in.
//
// A block that fails validation returns a rule error and leaves index and
// graph untouched.
func ApplyBlock(block *externalapi.BlockDocument, index *identity.Index, graph model.WebOfTrust,
	expireCerts map[model.CertLink]externalapi.BlockNumber) (*model.WriteRequests, error) {

	identities := identitiesByIssuer(block)
	err := validateBlock(block, identities, index, graph, expireCerts)
	if err != nil {
		return nil, err
	}

	blockstamp := block.Blockstamp()
	requests := &model.WriteRequests{}
	newcomers := make(map[externalapi.PubKey]struct{})
	previouslyEnabled := make(map[externalapi.PubKey]bool)
	setEnabled := func(pubKey externalapi.PubKey, enabled bool) model.NodeID {
		nodeID, _ := index.NodeID(pubKey)
		previous, ok := graph.SetEnabled(nodeID, enabled)
		if !ok {
			panics.Fatal(log, "node %d of %s is not in the web of trust", nodeID, pubKey)
		}
		_, isNewcomer := newcomers[pubKey]
		if _, recorded := previouslyEnabled[pubKey]; !recorded && !isNewcomer {
			previouslyEnabled[pubKey] = previous
		}
		return nodeID
	}
	renew := func(membership *externalapi.MembershipDocument) {
		nodeID := setEnabled(membership.Issuer, true)
		requests.WoT = append(requests.WoT, &model.RenewIdentityRequest{
			NodeID:     nodeID,
			PubKey:     membership.Issuer,
			Membership: membership,
			MedianTime: block.MedianTime,
		})
	}

	for _, membership := range block.Joiners {
		document, isNewcomer := identities[membership.Issuer]
		if !isNewcomer {
			renew(membership)
			continue
		}
		nodeID := graph.AddNode()
		err := index.Insert(membership.Issuer, nodeID)
		if err != nil {
			panics.Fatal(log, "failed to index newcomer %s: %s", membership.Issuer, err)
		}
		newcomers[membership.Issuer] = struct{}{}
		requests.WoT = append(requests.WoT, &model.CreateIdentityRequest{
			NodeID:     nodeID,
			Identity:   document,
			Membership: membership,
			CreatedOn:  blockstamp,
			MedianTime: block.MedianTime,
		})
	}
	for _, membership := range block.Actives {
		if _, isNewcomer := identities[membership.Issuer]; !isNewcomer {
			renew(membership)
		}
	}
	for _, pubKey := range block.Excluded {
		setEnabled(pubKey, false)
		requests.WoT = append(requests.WoT, &model.ExcludeIdentityRequest{
			PubKey:     pubKey,
			Blockstamp: blockstamp,
		})
	}
	for _, revocation := range block.Revoked {
		setEnabled(revocation.Issuer, false)
		requests.WoT = append(requests.WoT, &model.RevokeIdentityRequest{
			PubKey:     revocation.Issuer,
			Blockstamp: blockstamp,
			Explicit:   true,
		})
	}

	for _, certification := range block.Certifications {
		source, _ := index.NodeID(certification.Issuer)
		target, _ := index.NodeID(certification.Target)
		_, err := graph.AddLink(source, target)
		if err != nil {
			panics.Fatal(log, "failed to add the certification of %s by %s: %s",
				certification.Target, certification.Issuer, err)
		}
		requests.WoT = append(requests.WoT, &model.CreateCertificationRequest{
			SourcePubKey: certification.Issuer,
			Link:         model.CertLink{Source: source, Target: target},
			CreatedIn:    block.Number,
			MedianTime:   block.MedianTime,
		})
	}

	createdIns, linksByCreatedIn := groupExpiredCerts(expireCerts)
	for _, createdIn := range createdIns {
		for _, link := range linksByCreatedIn[createdIn] {
			_, err := graph.RemoveLink(link.Source, link.Target)
			if err != nil {
				panics.Fatal(log, "failed to expire certification %s: %s", link, err)
			}
		}
		requests.WoT = append(requests.WoT, &model.ExpireCertificationsRequest{
			CreatedIn: createdIn,
			Links:     linksByCreatedIn[createdIn],
		})
	}

	if block.Dividend != nil && *block.Dividend > 0 {
		requests.Currency = append(requests.Currency, &model.CreateDividendRequest{
			Amount:      *block.Dividend,
			Base:        block.UnitBase,
			BlockNumber: block.Number,
			Members:     index.PubKeysOf(graph.Enabled()),
		})
	}
	for _, tx := range block.Transactions {
		requests.Currency = append(requests.Currency, &model.TransactionRequest{
			Transaction: tx.Document,
			BlockNumber: block.Number,
		})
	}

	requests.Block = append(requests.Block, &model.WriteBlockRequest{
		Block: &model.DALBlock{
			Block:             block.Reduce(),
			ExpireCerts:       maps.Clone(expireCerts),
			PreviouslyEnabled: previouslyEnabled,
		},
	})
	log.Tracef("Applied block %s: %d newcomers, %d certifications, %d expired certifications",
		blockstamp, len(newcomers), len(block.Certifications), len(expireCerts))
	return requests, nil
}

func identitiesByIssuer(block *externalapi.BlockDocument) map[externalapi.PubKey]*externalapi.IdentityDocument {
	identities := make(map[externalapi.PubKey]*externalapi.IdentityDocument, len(block.Identities))
	for _, document := range block.Identities {
		identities[document.Issuer] = document
	}
	return identities
}

// groupExpiredCerts groups the expiring certifications by the block they
// were written in. Both the blocks and the links are sorted.
func groupExpiredCerts(expireCerts map[model.CertLink]externalapi.BlockNumber) (
	[]externalapi.BlockNumber, map[externalapi.BlockNumber][]model.CertLink) {

	linksByCreatedIn := make(map[externalapi.BlockNumber][]model.CertLink)
	for link, createdIn := range expireCerts {
		linksByCreatedIn[createdIn] = append(linksByCreatedIn[createdIn], link)
	}
	createdIns := maps.Keys(linksByCreatedIn)
	slices.Sort(createdIns)
	for _, links := range linksByCreatedIn {
		slices.SortFunc(links, compareCertLinks)
	}
	return createdIns, linksByCreatedIn
}

func compareCertLinks(a, b model.CertLink) int {
	if a.Source != b.Source {
		if a.Source < b.Source {
			return -1
		}
		return 1
	}
	switch {
	case a.Target < b.Target:
		return -1
	case a.Target > b.Target:
		return 1
	}
	return 0
}
