package requestexecutor

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/processes/ledger"
	"github.com/duniter/duniter-rs-sub003/domain/dubpconfig"
	"github.com/pkg/errors"
)

// RequestExecutor stages write requests into the stores they target
type RequestExecutor struct {
	databaseContext model.DBReader
	params          *dubpconfig.CurrencyParameters

	blockStore               model.BlockStore
	forkBlockStore           model.ForkBlockStore
	metadataStore            model.MetadataStore
	identityStore            model.IdentityStore
	membershipExpiryStore    model.MembershipExpiryStore
	certificationExpiryStore model.CertificationExpiryStore
	ledger                   *ledger.Ledger
}

// New instantiates a new RequestExecutor
func New(
	databaseContext model.DBReader,
	params *dubpconfig.CurrencyParameters,
	blockStore model.BlockStore,
	forkBlockStore model.ForkBlockStore,
	metadataStore model.MetadataStore,
	identityStore model.IdentityStore,
	membershipExpiryStore model.MembershipExpiryStore,
	certificationExpiryStore model.CertificationExpiryStore,
	ledger *ledger.Ledger) *RequestExecutor {

	return &RequestExecutor{
		databaseContext:          databaseContext,
		params:                   params,
		blockStore:               blockStore,
		forkBlockStore:           forkBlockStore,
		metadataStore:            metadataStore,
		identityStore:            identityStore,
		membershipExpiryStore:    membershipExpiryStore,
		certificationExpiryStore: certificationExpiryStore,
		ledger:                   ledger,
	}
}

// ExecuteAll stages every request of requests, in execution order
func (re *RequestExecutor) ExecuteAll(stagingArea *model.StagingArea, requests *model.WriteRequests) error {
	for _, request := range requests.Ordered() {
		err := re.Execute(stagingArea, request)
		if err != nil {
			return err
		}
	}
	return nil
}

// Execute stages a single request
func (re *RequestExecutor) Execute(stagingArea *model.StagingArea, request model.WriteRequest) error {
	switch request := request.(type) {
	case model.BlockRequest:
		return re.executeBlockRequest(stagingArea, request)
	case model.WoTRequest:
		return re.executeWoTRequest(stagingArea, request)
	case model.CurrencyRequest:
		return re.executeCurrencyRequest(stagingArea, request)
	}
	return errors.Errorf("unknown write request %T", request)
}

func (re *RequestExecutor) executeBlockRequest(stagingArea *model.StagingArea, request model.BlockRequest) error {
	switch request := request.(type) {
	case *model.WriteBlockRequest:
		blockstamp := request.Block.Blockstamp()
		re.forkBlockStore.Delete(stagingArea, blockstamp)
		re.blockStore.Stage(stagingArea, request.Block)
		re.metadataStore.StageCurrentBlockstamp(stagingArea, blockstamp)
	case *model.RevertBlockRequest:
		block := request.Block.Block
		if block.Number == 0 {
			return errors.New("the genesis block cannot be reverted")
		}
		re.blockStore.Delete(stagingArea, block.Number)
		re.forkBlockStore.Stage(stagingArea, request.Block)
		re.metadataStore.StageCurrentBlockstamp(stagingArea, block.PreviousBlockstamp())
	default:
		return errors.Errorf("unknown block request %T", request)
	}
	return nil
}

func (re *RequestExecutor) executeCurrencyRequest(stagingArea *model.StagingArea, request model.CurrencyRequest) error {
	switch request := request.(type) {
	case *model.CreateDividendRequest:
		if request.Revert {
			return re.ledger.RevertDividend(stagingArea, request.BlockNumber, request.Members)
		}
		return re.ledger.CreateDividend(stagingArea, request.Amount, request.Base, request.BlockNumber, request.Members)
	case *model.TransactionRequest:
		if request.Revert {
			return re.ledger.RevertTransaction(stagingArea, request.Transaction.Hash)
		}
		return re.ledger.ApplyTransaction(stagingArea, request.Transaction, request.BlockNumber)
	}
	return errors.Errorf("unknown currency request %T", request)
}
