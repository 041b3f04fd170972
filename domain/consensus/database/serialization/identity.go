package serialization

import (
	"bytes"

	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
)

// SerializeIdentity serializes an identity record
func SerializeIdentity(identity *model.Identity) ([]byte, error) {
	w := &bytes.Buffer{}
	err := writeElements(w, identity.PubKey, identity.Username, identity.Hash, identity.NodeID,
		identity.State.Kind, identity.JoinedOn)
	if err != nil {
		return nil, err
	}
	err = writeUint32s(w, identity.State.RenewalCounts)
	if err != nil {
		return nil, err
	}
	err = writeOptionalBlockstamp(w, identity.ExpiredOn)
	if err != nil {
		return nil, err
	}
	err = writeOptionalBlockstamp(w, identity.RevokedOn)
	if err != nil {
		return nil, err
	}

	err = writeLength(w, len(identity.Expiries))
	if err != nil {
		return nil, err
	}
	for _, expiry := range identity.Expiries {
		err = writeElement(w, expiry)
		if err != nil {
			return nil, err
		}
	}
	err = writeBlockNumbers(w, identity.Memberships)
	if err != nil {
		return nil, err
	}
	err = writeUint64s(w, identity.MembershipChainableOn)
	if err != nil {
		return nil, err
	}
	err = writeUint64s(w, identity.CertificationChainableOn)
	if err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// DeserializeIdentity deserializes an identity record
func DeserializeIdentity(identityBytes []byte) (*model.Identity, error) {
	r := bytes.NewReader(identityBytes)
	identity := &model.Identity{}
	err := readElements(r, &identity.PubKey, &identity.Username, &identity.Hash, &identity.NodeID,
		&identity.State.Kind, &identity.JoinedOn)
	if err != nil {
		return nil, err
	}
	identity.State.RenewalCounts, err = readUint32s(r)
	if err != nil {
		return nil, err
	}
	identity.ExpiredOn, err = readOptionalBlockstamp(r)
	if err != nil {
		return nil, err
	}
	identity.RevokedOn, err = readOptionalBlockstamp(r)
	if err != nil {
		return nil, err
	}

	count, err := readLength(r)
	if err != nil {
		return nil, err
	}
	if count > 0 {
		identity.Expiries = make([]externalapi.Blockstamp, count)
	}
	for i := range identity.Expiries {
		err = readElement(r, &identity.Expiries[i])
		if err != nil {
			return nil, err
		}
	}
	identity.Memberships, err = readBlockNumbers(r)
	if err != nil {
		return nil, err
	}
	identity.MembershipChainableOn, err = readUint64s(r)
	if err != nil {
		return nil, err
	}
	identity.CertificationChainableOn, err = readUint64s(r)
	if err != nil {
		return nil, err
	}
	err = checkFullyConsumed(r)
	if err != nil {
		return nil, err
	}
	return identity, nil
}
