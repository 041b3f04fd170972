package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/ledger"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/requestexecutor"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/kaspanet/go-muhash"
	"github.com/sasha-s/go-deadlock"
)

// Consensus maintains the web of trust and the ledger of a currency
// along the main branch of its chain
type Consensus interface {
	// ProcessBlock applies block to the main branch, attaches it to a fork
	// or buffers it until its parent is known. Blocks that were waiting
	// for block are processed as well.
	ProcessBlock(block *externalapi.BlockDocument) (BlockStatus, error)

	// RevertCurrentBlock reverts the head of the main branch, which stays
	// in the fork tree as a fork block
	RevertCurrentBlock() error

	CurrentBlockstamp() (externalapi.Blockstamp, bool)
	Block(blockNumber externalapi.BlockNumber) (*model.DALBlock, error)
	WoT() model.WebOfTrust
	NodeID(pubKey externalapi.PubKey) (model.NodeID, bool)
	Identity(pubKey externalapi.PubKey) (*model.Identity, error)
	Balance(condition externalapi.Condition) (*externalapi.Balance, error)
	UTXOs(condition externalapi.Condition) ([]*externalapi.UTXO, error)
	UTXOCommitment() (*muhash.Hash, error)
}

type consensus struct {
	lock            *deadlock.Mutex
	databaseContext model.DBManager
	params          *dubpconfig.CurrencyParameters

	*stores
	*engineState

	ledger          *ledger.Ledger
	requestExecutor *requestexecutor.RequestExecutor

	orphans       map[externalapi.Hash][]*externalapi.BlockDocument
	invalidBlocks map[externalapi.Blockstamp]struct{}
}

func (s *consensus) CurrentBlockstamp() (externalapi.Blockstamp, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.forkTree.CurrentBlockstamp()
}

func (s *consensus) Block(blockNumber externalapi.BlockNumber) (*model.DALBlock, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.blockStore.Block(s.databaseContext, model.NewStagingArea(), blockNumber)
}

// WoT returns a copy of the web of trust
func (s *consensus) WoT() model.WebOfTrust {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.graph.Clone()
}

func (s *consensus) NodeID(pubKey externalapi.PubKey) (model.NodeID, bool) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.index.NodeID(pubKey)
}

func (s *consensus) Identity(pubKey externalapi.PubKey) (*model.Identity, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.identityStore.Identity(s.databaseContext, model.NewStagingArea(), pubKey)
}

func (s *consensus) Balance(condition externalapi.Condition) (*externalapi.Balance, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.Balance(model.NewStagingArea(), condition)
}

func (s *consensus) UTXOs(condition externalapi.Condition) ([]*externalapi.UTXO, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	return s.ledger.UTXOs(model.NewStagingArea(), condition)
}

// UTXOCommitment returns the multiset hash of the unspent sources
func (s *consensus) UTXOCommitment() (*muhash.Hash, error) {
	s.lock.Lock()
	defer s.lock.Unlock()

	commitment, err := s.ledger.Commitment(model.NewStagingArea())
	if err != nil {
		return nil, err
	}
	hash := commitment.Finalize()
	return &hash, nil
}
