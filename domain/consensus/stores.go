package consensus

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/balancestore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/blockstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/certexpirystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/dividendstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/forkblockstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/forktreestore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/identitystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/metadatastore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/msexpirystore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/transactionstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxocommitmentstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/utxostore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/datastructures/wotgraphstore"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/ledger"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/requestexecutor"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
)

type stores struct {
	blockStore               model.BlockStore
	forkBlockStore           model.ForkBlockStore
	forkTreeStore            *forktreestore.ForkTreeStore
	metadataStore            model.MetadataStore
	wotGraphStore            model.WoTGraphStore
	identityStore            model.IdentityStore
	membershipExpiryStore    model.MembershipExpiryStore
	certificationExpiryStore model.CertificationExpiryStore
	utxoStore                model.UTXOStore
	dividendStore            model.DividendStore
	balanceStore             model.BalanceStore
	transactionStore         model.TransactionStore
	utxoCommitmentStore      model.UTXOCommitmentStore
}

// newStores instantiates the stores of a currency. Every store lives
// under a bucket named after the currency.
func newStores(params *dubpconfig.CurrencyParameters) *stores {
	prefixBucket := database.MakeBucket([]byte(params.Name))
	return &stores{
		blockStore:               blockstore.New(prefixBucket),
		forkBlockStore:           forkblockstore.New(prefixBucket),
		forkTreeStore:            forktreestore.New(prefixBucket),
		metadataStore:            metadatastore.New(prefixBucket),
		wotGraphStore:            wotgraphstore.New(prefixBucket, params.SigStock),
		identityStore:            identitystore.New(prefixBucket),
		membershipExpiryStore:    msexpirystore.New(prefixBucket),
		certificationExpiryStore: certexpirystore.New(prefixBucket),
		utxoStore:                utxostore.New(prefixBucket),
		dividendStore:            dividendstore.New(prefixBucket),
		balanceStore:             balancestore.New(prefixBucket),
		transactionStore:         transactionstore.New(prefixBucket),
		utxoCommitmentStore:      utxocommitmentstore.New(prefixBucket),
	}
}

func (s *stores) newLedger(databaseContext model.DBReader, params *dubpconfig.CurrencyParameters) *ledger.Ledger {
	return ledger.New(
		databaseContext,
		s.utxoStore,
		s.dividendStore,
		s.balanceStore,
		s.transactionStore,
		s.utxoCommitmentStore,
		params.DustThreshold)
}

func (s *stores) newRequestExecutor(databaseContext model.DBReader, params *dubpconfig.CurrencyParameters,
	ledger *ledger.Ledger) *requestexecutor.RequestExecutor {

	return requestexecutor.New(
		databaseContext,
		params,
		s.blockStore,
		s.forkBlockStore,
		s.metadataStore,
		s.identityStore,
		s.membershipExpiryStore,
		s.certificationExpiryStore,
		ledger)
}
