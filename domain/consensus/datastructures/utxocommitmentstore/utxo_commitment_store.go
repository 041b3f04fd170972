package utxocommitmentstore

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/kaspanet/go-muhash"
	"github.com/pkg/errors"
)

var bucketName = []byte("utxo-commitment")

type utxoCommitmentStagingShard struct {
	store         *utxoCommitmentStore
	newCommitment *muhash.MuHash
}

func (ucs *utxoCommitmentStore) stagingShard(stagingArea *model.StagingArea) *utxoCommitmentStagingShard {
	return stagingArea.GetOrCreateShard("UTXOCommitmentStore", func() model.StagingShard {
		return &utxoCommitmentStagingShard{
			store:         ucs,
			newCommitment: nil,
		}
	}).(*utxoCommitmentStagingShard)
}

func (ucss *utxoCommitmentStagingShard) Commit(dbTx model.DBTransaction) error {
	if ucss.newCommitment == nil {
		return nil
	}
	serialized := ucss.newCommitment.Serialize()
	return dbTx.Put(ucss.store.key, serialized[:])
}

// utxoCommitmentStore stores the multiset hash of the unspent sources
type utxoCommitmentStore struct {
	key model.DBKey
}

// New instantiates a new UTXOCommitmentStore
func New(prefixBucket model.DBBucket) model.UTXOCommitmentStore {
	return &utxoCommitmentStore{
		key: prefixBucket.Bucket(bucketName).Key([]byte("muhash")),
	}
}

// Stage stages a copy of commitment
func (ucs *utxoCommitmentStore) Stage(stagingArea *model.StagingArea, commitment *muhash.MuHash) {
	ucs.stagingShard(stagingArea).newCommitment = commitment.Clone()
}

// Commitment returns the current commitment, which is the empty multiset
// hash until one is staged
func (ucs *utxoCommitmentStore) Commitment(dbContext model.DBReader,
	stagingArea *model.StagingArea) (*muhash.MuHash, error) {

	stagingShard := ucs.stagingShard(stagingArea)
	if stagingShard.newCommitment != nil {
		return stagingShard.newCommitment.Clone(), nil
	}

	commitmentBytes, err := dbContext.Get(ucs.key)
	if database.IsNotFoundError(err) {
		return muhash.NewMuHash(), nil
	}
	if err != nil {
		return nil, err
	}
	if len(commitmentBytes) != muhash.SerializedMuHashSize {
		return nil, errors.Errorf("stored UTXO commitment is %d bytes long instead of %d",
			len(commitmentBytes), muhash.SerializedMuHashSize)
	}
	var serialized muhash.SerializedMuHash
	copy(serialized[:], commitmentBytes)
	return muhash.DeserializeMuHash(&serialized)
}
