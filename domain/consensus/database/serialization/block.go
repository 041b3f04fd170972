package serialization

import (
	"bytes"
	"io"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"golang.org/x/exp/slices"
)

// SerializeDALBlock serializes a stored block
func SerializeDALBlock(dalBlock *model.DALBlock) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeBlockDocument(w, dalBlock.Block)
	if err != nil {
		return nil, err
	}
	err = writeElement(w, dalBlock.IsFork)
	if err != nil {
		return nil, err
	}

	// Maps are written sorted so that equal blocks serialize identically
	links := make([]model.CertLink, 0, len(dalBlock.ExpireCerts))
	for link := range dalBlock.ExpireCerts {
		links = append(links, link)
	}
	slices.SortFunc(links, compareCertLinks)
	err = writeLength(w, len(links))
	if err != nil {
		return nil, err
	}
	for _, link := range links {
		err = writeElements(w, link, dalBlock.ExpireCerts[link])
		if err != nil {
			return nil, err
		}
	}

	pubKeys := make([]externalapi.PubKey, 0, len(dalBlock.PreviouslyEnabled))
	for pubKey := range dalBlock.PreviouslyEnabled {
		pubKeys = append(pubKeys, pubKey)
	}
	slices.Sort(pubKeys)
	err = writeLength(w, len(pubKeys))
	if err != nil {
		return nil, err
	}
	for _, pubKey := range pubKeys {
		err = writeElements(w, pubKey, dalBlock.PreviouslyEnabled[pubKey])
		if err != nil {
			return nil, err
		}
	}
	return w.Bytes(), nil
}

// DeserializeDALBlock deserializes a stored block
func DeserializeDALBlock(dalBlockBytes []byte) (*model.DALBlock, error) {
	r := bytes.NewReader(dalBlockBytes)
	block, err := readBlockDocument(r)
	if err != nil {
		return nil, err
	}
	dalBlock := &model.DALBlock{Block: block}
	err = readElement(r, &dalBlock.IsFork)
	if err != nil {
		return nil, err
	}

	linkCount, err := readLength(r)
	if err != nil {
		return nil, err
	}
	dalBlock.ExpireCerts = make(map[model.CertLink]externalapi.BlockNumber, linkCount)
	for i := 0; i < linkCount; i++ {
		var link model.CertLink
		var createdIn externalapi.BlockNumber
		err = readElements(r, &link, &createdIn)
		if err != nil {
			return nil, err
		}
		dalBlock.ExpireCerts[link] = createdIn
	}

	pubKeyCount, err := readLength(r)
	if err != nil {
		return nil, err
	}
	dalBlock.PreviouslyEnabled = make(map[externalapi.PubKey]bool, pubKeyCount)
	for i := 0; i < pubKeyCount; i++ {
		var pubKey externalapi.PubKey
		var enabled bool
		err = readElements(r, &pubKey, &enabled)
		if err != nil {
			return nil, err
		}
		dalBlock.PreviouslyEnabled[pubKey] = enabled
	}

	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return dalBlock, nil
}

func compareCertLinks(a, b model.CertLink) int {
	if a.Source != b.Source {
		if a.Source < b.Source {
			return -1
		}
		return 1
	}
	if a.Target < b.Target {
		return -1
	}
	if a.Target > b.Target {
		return 1
	}
	return 0
}

func writeBlockDocument(w io.Writer, block *externalapi.BlockDocument) error {
	err := writeElements(w, block.Number, block.Hash, block.PreviousHash, block.MedianTime,
		block.Issuer, block.Dividend != nil, block.UnitBase)
	if err != nil {
		return err
	}
	if block.Dividend != nil {
		err = writeElement(w, *block.Dividend)
		if err != nil {
			return err
		}
	}

	err = writeLength(w, len(block.Identities))
	if err != nil {
		return err
	}
	for _, identity := range block.Identities {
		err = writeElements(w, identity.Issuer, identity.Username, identity.Blockstamp, identity.Hash)
		if err != nil {
			return err
		}
	}

	for _, memberships := range [][]*externalapi.MembershipDocument{block.Joiners, block.Actives, block.Leavers} {
		err = writeLength(w, len(memberships))
		if err != nil {
			return err
		}
		for _, membership := range memberships {
			err = writeElements(w, membership.Issuer, membership.Username,
				membership.Blockstamp, membership.IdentityBlockstamp)
			if err != nil {
				return err
			}
		}
	}

	err = writeLength(w, len(block.Revoked))
	if err != nil {
		return err
	}
	for _, revocation := range block.Revoked {
		err = writeElements(w, revocation.Issuer, revocation.Username)
		if err != nil {
			return err
		}
	}

	err = writeLength(w, len(block.Excluded))
	if err != nil {
		return err
	}
	for _, excluded := range block.Excluded {
		err = writeElement(w, excluded)
		if err != nil {
			return err
		}
	}

	err = writeLength(w, len(block.Certifications))
	if err != nil {
		return err
	}
	for _, certification := range block.Certifications {
		err = writeElements(w, certification.Issuer, certification.Target, certification.SignedOnBlockNumber)
		if err != nil {
			return err
		}
	}

	err = writeLength(w, len(block.Transactions))
	if err != nil {
		return err
	}
	for _, tx := range block.Transactions {
		err = writeElement(w, tx.Document != nil)
		if err != nil {
			return err
		}
		if tx.Document == nil {
			err = writeElement(w, tx.Hash)
		} else {
			err = writeTransactionDocument(w, tx.Document)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func readBlockDocument(r io.Reader) (*externalapi.BlockDocument, error) {
	block := &externalapi.BlockDocument{}
	var hasDividend bool
	err := readElements(r, &block.Number, &block.Hash, &block.PreviousHash, &block.MedianTime,
		&block.Issuer, &hasDividend, &block.UnitBase)
	if err != nil {
		return nil, err
	}
	if hasDividend {
		var dividend uint64
		err = readElement(r, &dividend)
		if err != nil {
			return nil, err
		}
		block.Dividend = &dividend
	}

	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	block.Identities = make([]*externalapi.IdentityDocument, count)
	for i := range block.Identities {
		identity := &externalapi.IdentityDocument{}
		err = readElements(r, &identity.Issuer, &identity.Username, &identity.Blockstamp, &identity.Hash)
		if err != nil {
			return nil, err
		}
		block.Identities[i] = identity
	}

	for _, memberships := range []*[]*externalapi.MembershipDocument{&block.Joiners, &block.Actives, &block.Leavers} {
		count, err = readLength(r)
		if err != nil {
			return nil, err
		}
		*memberships = make([]*externalapi.MembershipDocument, count)
		for i := range *memberships {
			membership := &externalapi.MembershipDocument{}
			err = readElements(r, &membership.Issuer, &membership.Username,
				&membership.Blockstamp, &membership.IdentityBlockstamp)
			if err != nil {
				return nil, err
			}
			(*memberships)[i] = membership
		}
	}

	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	block.Revoked = make([]*externalapi.RevocationDocument, count)
	for i := range block.Revoked {
		revocation := &externalapi.RevocationDocument{}
		err = readElements(r, &revocation.Issuer, &revocation.Username)
		if err != nil {
			return nil, err
		}
		block.Revoked[i] = revocation
	}

	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	block.Excluded = make([]externalapi.PubKey, count)
	for i := range block.Excluded {
		err = readElement(r, &block.Excluded[i])
		if err != nil {
			return nil, err
		}
	}

	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	block.Certifications = make([]*externalapi.CertificationDocument, count)
	for i := range block.Certifications {
		certification := &externalapi.CertificationDocument{}
		err = readElements(r, &certification.Issuer, &certification.Target, &certification.SignedOnBlockNumber)
		if err != nil {
			return nil, err
		}
		block.Certifications[i] = certification
	}

	count, err = readLength(r)
	if err != nil {
		return nil, err
	}
	block.Transactions = make([]*externalapi.TxDocOrHash, count)
	for i := range block.Transactions {
		var isDocument bool
		err = readElement(r, &isDocument)
		if err != nil {
			return nil, err
		}
		tx := &externalapi.TxDocOrHash{}
		if isDocument {
			tx.Document, err = readTransactionDocument(r)
		} else {
			err = readElement(r, &tx.Hash)
		}
		if err != nil {
			return nil, err
		}
		block.Transactions[i] = tx
	}
	return block, nil
}
