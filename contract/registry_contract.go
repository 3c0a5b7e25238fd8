package contract

import (
	"accessregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var logger = flogging.MustGetLogger("accessregistry.contract")

// AccessRegistryContract binds principals to identity records and time-bounded access
// grants. Each exported method is one transaction; a returned error discards the
// transaction's writes and event.
// @contract:AccessRegistryContract
type AccessRegistryContract struct {
	contractapi.Contract
}

// Instantiate is called during chaincode instantiation.
func (s *AccessRegistryContract) Instantiate(ctx contractapi.TransactionContextInterface) {
	logger.Info("AccessRegistryContract Instantiated/Upgraded")
}

// InitLedger records the caller as owner, the implicit verifier. Runs once per ledger.
func (s *AccessRegistryContract) InitLedger(ctx contractapi.TransactionContextInterface) error {
	logger.Info("Chaincode Call: InitLedger")
	_, err := NewIdentityManager(ctx).InitializeOwner()
	return err
}

// --- Identity & verifier transactions ---

func (s *AccessRegistryContract) RegisterIdentity(ctx contractapi.TransactionContextInterface, name, email string) error {
	logger.Info("Chaincode Call: RegisterIdentity")
	return NewIdentityManager(ctx).RegisterIdentity(name, email)
}

func (s *AccessRegistryContract) VerifyIdentity(ctx contractapi.TransactionContextInterface, target string) error {
	logger.Infof("Chaincode Call: VerifyIdentity for '%s'", target)
	return NewIdentityManager(ctx).VerifyIdentity(target)
}

func (s *AccessRegistryContract) SetVerifier(ctx contractapi.TransactionContextInterface, principal string, status bool) error {
	logger.Infof("Chaincode Call: SetVerifier '%s' -> %t", principal, status)
	return NewIdentityManager(ctx).SetVerifier(principal, status)
}

// --- Access request transactions ---

func (s *AccessRegistryContract) RequestAccess(ctx contractapi.TransactionContextInterface, target, resourceID string, expiryDurationSeconds int64) (uint64, error) {
	logger.Infof("Chaincode Call: RequestAccess on '%s' from target '%s' for %ds", resourceID, target, expiryDurationSeconds)
	return NewAccessManager(ctx).RequestAccess(target, resourceID, expiryDurationSeconds)
}

func (s *AccessRegistryContract) ProcessAccessRequest(ctx contractapi.TransactionContextInterface, requestID uint64, approve bool) error {
	logger.Infof("Chaincode Call: ProcessAccessRequest %d approve=%t", requestID, approve)
	return NewAccessManager(ctx).ProcessAccessRequest(requestID, approve)
}

// --- Queries ---

func (s *AccessRegistryContract) HasValidAccess(ctx contractapi.TransactionContextInterface, user string, requestID uint64) (bool, error) {
	logger.Debugf("Chaincode Call: HasValidAccess for '%s' on %d", user, requestID)
	return NewAccessManager(ctx).HasValidAccess(user, requestID)
}

// GetIdentityInfo omits name and email; the identity hash stands in for them.
func (s *AccessRegistryContract) GetIdentityInfo(ctx contractapi.TransactionContextInterface, user string) (model.IdentityView, error) {
	logger.Debugf("Chaincode Call: GetIdentityInfo for '%s'", user)
	return NewIdentityManager(ctx).GetIdentityInfo(user)
}

func (s *AccessRegistryContract) GetUserAccessRequests(ctx contractapi.TransactionContextInterface, user string) ([]uint64, error) {
	logger.Debugf("Chaincode Call: GetUserAccessRequests for '%s'", user)
	return NewAccessManager(ctx).GetUserAccessRequests(user)
}

func (s *AccessRegistryContract) GetAccessRequest(ctx contractapi.TransactionContextInterface, requestID uint64) (*model.AccessRequestView, error) {
	logger.Debugf("Chaincode Call: GetAccessRequest %d", requestID)
	return NewAccessManager(ctx).GetAccessRequest(requestID)
}

func (s *AccessRegistryContract) GetRegistryStats(ctx contractapi.TransactionContextInterface) (*model.RegistryStats, error) {
	logger.Debug("Chaincode Call: GetRegistryStats")
	return NewIdentityManager(ctx).GetRegistryStats()
}

func (s *AccessRegistryContract) IsVerifier(ctx contractapi.TransactionContextInterface, principal string) (bool, error) {
	logger.Debugf("Chaincode Call: IsVerifier for '%s'", principal)
	return NewIdentityManager(ctx).IsVerifier(principal)
}

func (s *AccessRegistryContract) GetOwner(ctx contractapi.TransactionContextInterface) (string, error) {
	logger.Debug("Chaincode Call: GetOwner")
	owner, err := NewIdentityManager(ctx).GetOwner()
	if err != nil {
		return "", err
	}
	if owner == "" {
		return "", ErrNotInitialized
	}
	return owner, nil
}
