package requestexecutor

import (
	"github.com/duniter/duniter-rs-sub003/domain/consensus/database"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/model/externalapi"
	"github.com/duniter/duniter-rs-sub003/domain/consensus/utils/identity"
	"github.com/duniter/duniter-rs-sub003/util/panics"
	"github.com/pkg/errors"
)

func (re *RequestExecutor) executeWoTRequest(stagingArea *model.StagingArea, request model.WoTRequest) error {
	switch request := request.(type) {
	case *model.CreateIdentityRequest:
		return re.createIdentity(stagingArea, request)
	case *model.RevertCreateIdentityRequest:
		return re.revertCreateIdentity(stagingArea, request)
	case *model.RenewIdentityRequest:
		return re.renewIdentity(stagingArea, request)
	case *model.ExcludeIdentityRequest:
		return re.updateIdentity(stagingArea, request.PubKey, func(idty *model.Identity) error {
			if request.Revert {
				return identity.RevertExclusion(idty, request.Blockstamp)
			}
			return identity.Exclude(idty, request.Blockstamp)
		})
	case *model.RevokeIdentityRequest:
		return re.updateIdentity(stagingArea, request.PubKey, func(idty *model.Identity) error {
			if request.Revert {
				return identity.RevertRevocation(idty, request.Explicit)
			}
			return identity.Revoke(idty, request.Blockstamp, request.Explicit)
		})
	case *model.CreateCertificationRequest:
		return re.createCertification(stagingArea, request)
	case *model.ExpireCertificationsRequest:
		for _, link := range request.Links {
			var err error
			if request.Revert {
				err = re.certificationExpiryStore.Add(re.databaseContext, stagingArea, request.CreatedIn, link)
			} else {
				err = re.certificationExpiryStore.Remove(re.databaseContext, stagingArea, request.CreatedIn, link)
			}
			if err != nil {
				return errors.Wrapf(err, "failed to expire certification %s written in block %d",
					link, request.CreatedIn)
			}
		}
		return nil
	}
	return errors.Errorf("unknown web of trust request %T", request)
}

func (re *RequestExecutor) createIdentity(stagingArea *model.StagingArea, request *model.CreateIdentityRequest) error {
	pubKey := request.Identity.Issuer
	exists, err := re.identityStore.HasIdentity(re.databaseContext, stagingArea, pubKey)
	if err != nil {
		return err
	}
	if exists {
		panics.Fatal(log, "identity %s is already stored", pubKey)
	}

	membershipNumber := request.Membership.Blockstamp.Number
	idty := identity.New(request.Identity, request.NodeID, request.CreatedOn, membershipNumber,
		request.MedianTime+re.params.MsPeriod)
	re.identityStore.Stage(stagingArea, idty)
	return re.membershipExpiryStore.Add(re.databaseContext, stagingArea, membershipNumber, pubKey)
}

func (re *RequestExecutor) revertCreateIdentity(stagingArea *model.StagingArea,
	request *model.RevertCreateIdentityRequest) error {

	idty, err := re.loadIdentity(stagingArea, request.PubKey)
	if err != nil {
		return err
	}
	if idty.NodeID != request.NodeID || len(idty.Memberships) != 1 {
		panics.Fatal(log, "identity %s with node %d and %d memberships is not the newcomer of node %d",
			request.PubKey, idty.NodeID, len(idty.Memberships), request.NodeID)
	}
	re.identityStore.Delete(stagingArea, request.PubKey)
	return re.membershipExpiryStore.Remove(re.databaseContext, stagingArea, idty.Memberships[0], request.PubKey)
}

// renewIdentity moves the identity from the expiry entry of its previous
// membership to the entry of the new one, or back when reverting
func (re *RequestExecutor) renewIdentity(stagingArea *model.StagingArea, request *model.RenewIdentityRequest) error {
	idty, err := re.loadIdentity(stagingArea, request.PubKey)
	if err != nil {
		return err
	}
	previousMembership := idty.Memberships[len(idty.Memberships)-1]
	if request.Revert {
		err = identity.RevertRenewal(idty)
	} else {
		err = identity.Renew(idty, request.Membership.Blockstamp.Number, request.MedianTime+re.params.MsPeriod)
	}
	if err != nil {
		panics.Fatal(log, "%s", err)
	}
	currentMembership := idty.Memberships[len(idty.Memberships)-1]

	re.identityStore.Stage(stagingArea, idty)
	err = re.membershipExpiryStore.Remove(re.databaseContext, stagingArea, previousMembership, request.PubKey)
	if err != nil {
		return err
	}
	return re.membershipExpiryStore.Add(re.databaseContext, stagingArea, currentMembership, request.PubKey)
}

func (re *RequestExecutor) createCertification(stagingArea *model.StagingArea,
	request *model.CreateCertificationRequest) error {

	err := re.updateIdentity(stagingArea, request.SourcePubKey, func(idty *model.Identity) error {
		if idty.NodeID != request.Link.Source {
			return errors.Wrapf(identity.ErrContractViolation, "identity %s has node %d instead of %d",
				idty.PubKey, idty.NodeID, request.Link.Source)
		}
		if request.Revert {
			return identity.RevertCertification(idty)
		}
		identity.AddCertification(idty, request.MedianTime+re.params.SigPeriod)
		return nil
	})
	if err != nil {
		return err
	}

	if request.Revert {
		return re.certificationExpiryStore.Remove(re.databaseContext, stagingArea, request.CreatedIn, request.Link)
	}
	return re.certificationExpiryStore.Add(re.databaseContext, stagingArea, request.CreatedIn, request.Link)
}

// updateIdentity applies transition to the stored identity. A failing
// transition means the stored identity diverged from the chain, which is
// fatal.
func (re *RequestExecutor) updateIdentity(stagingArea *model.StagingArea, pubKey externalapi.PubKey,
	transition func(idty *model.Identity) error) error {

	idty, err := re.loadIdentity(stagingArea, pubKey)
	if err != nil {
		return err
	}
	err = transition(idty)
	if err != nil {
		panics.Fatal(log, "%s", err)
	}
	re.identityStore.Stage(stagingArea, idty)
	return nil
}

func (re *RequestExecutor) loadIdentity(stagingArea *model.StagingArea, pubKey externalapi.PubKey) (*model.Identity, error) {
	idty, err := re.identityStore.Identity(re.databaseContext, stagingArea, pubKey)
	if database.IsNotFoundError(err) {
		panics.Fatal(log, "identity %s is not stored", pubKey)
	}
	if err != nil {
		return nil, err
	}
	return idty.Clone(), nil
}
