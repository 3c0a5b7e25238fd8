package contract

import (
	"encoding/json"
	"errors"
	"fmt"

	"accessregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var idLogger = flogging.MustGetLogger("accessregistry.identitymanager")

// IdentityManager handles the owner record, verifier roles and the identity lifecycle
// (unregistered -> registered -> verified).
type IdentityManager struct {
	Ctx contractapi.TransactionContextInterface
}

// NewIdentityManager creates a new instance of IdentityManager.
func NewIdentityManager(ctx contractapi.TransactionContextInterface) *IdentityManager {
	return &IdentityManager{Ctx: ctx}
}

type registrationArgs struct {
	Name  string `json:"name" validate:"required"`
	Email string `json:"email" validate:"required"`
}

// --- Caller and owner ---

// GetCurrentIdentityFullID retrieves the client identity ID of the current transactor.
func (im *IdentityManager) GetCurrentIdentityFullID() (string, error) {
	clientIdentity := im.Ctx.GetClientIdentity()
	if clientIdentity == nil {
		return "", errors.New("client identity is nil from context")
	}
	id, err := clientIdentity.GetID()
	if err != nil {
		return "", fmt.Errorf("failed to get client identity ID from context: %w", err)
	}
	if id == "" {
		return "", errors.New("client identity ID from context is empty")
	}
	if !isValidX509ID(id) {
		idLogger.Warningf("Current client ID '%s' does not appear to be a standard X.509 format.", id)
	}
	return id, nil
}

// GetOwner returns the owner principal, or "" when the ledger was never initialized.
func (im *IdentityManager) GetOwner() (string, error) {
	ownerKey, err := createOwnerKey(im.Ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create owner key: %w", err)
	}
	ownerBytes, err := im.Ctx.GetStub().GetState(ownerKey)
	if err != nil {
		return "", fmt.Errorf("failed to read owner: %w", err)
	}
	return string(ownerBytes), nil
}

// InitializeOwner records the caller as owner. It succeeds once per ledger.
func (im *IdentityManager) InitializeOwner() (string, error) {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return "", err
	}
	owner, err := im.GetOwner()
	if err != nil {
		return "", err
	}
	if owner != "" {
		return "", fmt.Errorf("%w: owner is '%s'", ErrAlreadyInitialized, owner)
	}
	now, err := getCurrentTxTimestamp(im.Ctx)
	if err != nil {
		return "", err
	}

	ownerKey, err := createOwnerKey(im.Ctx)
	if err != nil {
		return "", fmt.Errorf("failed to create owner key: %w", err)
	}
	if err := im.Ctx.GetStub().PutState(ownerKey, []byte(callerFullID)); err != nil {
		return "", fmt.Errorf("failed to save owner '%s': %w", callerFullID, err)
	}
	idLogger.Infof("Registry initialized. Owner is '%s'.", callerFullID)

	return callerFullID, emitEvent(im.Ctx, model.EventRegistryInitialized, model.RegistryInitializedEvent{
		Owner:     callerFullID,
		Timestamp: formatEventTime(now),
	})
}

func (im *IdentityManager) isOwner(principal string) (bool, error) {
	owner, err := im.GetOwner()
	if err != nil {
		return false, err
	}
	return owner != "" && owner == principal, nil
}

func (im *IdentityManager) requireOwner(callerFullID string) error {
	isOwner, err := im.isOwner(callerFullID)
	if err != nil {
		return fmt.Errorf("failed to check owner status: %w", err)
	}
	if !isOwner {
		return fmt.Errorf("%w: caller '%s' is not the owner", ErrUnauthorized, callerFullID)
	}
	return nil
}

// --- Verifier roles ---

// IsVerifier is the capability check isOwner(p) || verifierSet[p].
func (im *IdentityManager) IsVerifier(principal string) (bool, error) {
	isOwner, err := im.isOwner(principal)
	if err != nil {
		return false, err
	}
	if isOwner {
		return true, nil
	}
	verifierKey, err := createVerifierKey(im.Ctx, principal)
	if err != nil {
		return false, fmt.Errorf("failed to create verifier key for '%s': %w", principal, err)
	}
	flagBytes, err := im.Ctx.GetStub().GetState(verifierKey)
	if err != nil {
		return false, fmt.Errorf("ledger error checking verifier flag for '%s': %w", principal, err)
	}
	return flagBytes != nil && string(flagBytes) == "true", nil
}

// SetVerifier grants or clears the verifier flag. Owner only.
func (im *IdentityManager) SetVerifier(principal string, status bool) error {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return err
	}
	if err := im.requireOwner(callerFullID); err != nil {
		return err
	}
	if err := validatePrincipal(principal, "principal"); err != nil {
		return err
	}
	now, err := getCurrentTxTimestamp(im.Ctx)
	if err != nil {
		return err
	}

	verifierKey, err := createVerifierKey(im.Ctx, principal)
	if err != nil {
		return fmt.Errorf("failed to create verifier key for '%s': %w", principal, err)
	}
	if status {
		err = im.Ctx.GetStub().PutState(verifierKey, []byte("true"))
	} else {
		err = im.Ctx.GetStub().DelState(verifierKey)
	}
	if err != nil {
		return fmt.Errorf("failed to update verifier flag for '%s': %w", principal, err)
	}
	idLogger.Infof("Verifier flag for '%s' set to %t by owner '%s'.", principal, status, callerFullID)

	return emitEvent(im.Ctx, model.EventVerifierUpdated, model.VerifierUpdatedEvent{
		Principal: principal,
		Status:    status,
		UpdatedBy: callerFullID,
		Timestamp: formatEventTime(now),
	})
}

// --- Identity lifecycle ---

// GetIdentity returns the stored identity for principal, or nil when none exists.
func (im *IdentityManager) GetIdentity(principal string) (*model.Identity, error) {
	identityKey, err := createIdentityKey(im.Ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity key for '%s': %w", principal, err)
	}
	identityBytes, err := im.Ctx.GetStub().GetState(identityKey)
	if err != nil {
		return nil, fmt.Errorf("ledger error retrieving identity for '%s': %w", principal, err)
	}
	if identityBytes == nil {
		return nil, nil
	}
	var identity model.Identity
	if err := json.Unmarshal(identityBytes, &identity); err != nil {
		return nil, fmt.Errorf("failed to unmarshal identity for '%s': %w", principal, err)
	}
	return &identity, nil
}

func (im *IdentityManager) putIdentity(identity *model.Identity) error {
	identityKey, err := createIdentityKey(im.Ctx, identity.Principal)
	if err != nil {
		return fmt.Errorf("failed to create identity key for '%s': %w", identity.Principal, err)
	}
	identityBytes, err := json.Marshal(identity)
	if err != nil {
		return fmt.Errorf("failed to marshal identity for '%s': %w", identity.Principal, err)
	}
	if err := im.Ctx.GetStub().PutState(identityKey, identityBytes); err != nil {
		return fmt.Errorf("failed to save identity for '%s': %w", identity.Principal, err)
	}
	return nil
}

// RegisterIdentity creates the caller's identity record. A second call always fails.
func (im *IdentityManager) RegisterIdentity(name, email string) error {
	args := registrationArgs{Name: name, Email: email}
	if err := validate.Struct(args); err != nil {
		if field, ok := firstInvalidField(err); ok {
			return fmt.Errorf("%w: %s", ErrEmptyField, field)
		}
		return fmt.Errorf("failed to validate registration: %w", err)
	}

	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return err
	}
	existing, err := im.GetIdentity(callerFullID)
	if err != nil {
		return err
	}
	if existing.Exists() {
		return fmt.Errorf("%w: '%s'", ErrAlreadyRegistered, callerFullID)
	}

	now, err := getCurrentTxTimestamp(im.Ctx)
	if err != nil {
		return err
	}
	totalUsers, err := readCounter(im.Ctx, totalUsersCounter)
	if err != nil {
		return err
	}

	identity := &model.Identity{
		ObjectType:       identityObjectType,
		Principal:        callerFullID,
		Name:             args.Name,
		Email:            args.Email,
		IsVerified:       false,
		IsActive:         true,
		RegistrationTime: now,
		IdentityHash:     computeIdentityHash(args.Name, args.Email, callerFullID, now),
	}
	if err := im.putIdentity(identity); err != nil {
		return err
	}
	if err := writeCounter(im.Ctx, totalUsersCounter, totalUsers+1); err != nil {
		return err
	}
	idLogger.Infof("Registered identity '%s' (hash %s). Total users: %d.", callerFullID, identity.IdentityHash, totalUsers+1)

	return emitEvent(im.Ctx, model.EventIdentityRegistered, model.IdentityRegisteredEvent{
		Principal: callerFullID,
		Name:      args.Name,
		Timestamp: formatEventTime(now),
	})
}

// VerifyIdentity marks target verified. Callable by the owner or a verifier.
func (im *IdentityManager) VerifyIdentity(target string) error {
	callerFullID, err := im.GetCurrentIdentityFullID()
	if err != nil {
		return err
	}
	isVerifier, err := im.IsVerifier(callerFullID)
	if err != nil {
		return fmt.Errorf("failed to check verifier status for '%s': %w", callerFullID, err)
	}
	if !isVerifier {
		return fmt.Errorf("%w: caller '%s' is not a verifier", ErrUnauthorized, callerFullID)
	}
	if err := validatePrincipal(target, "target"); err != nil {
		return err
	}

	identity, err := im.GetIdentity(target)
	if err != nil {
		return err
	}
	if !identity.Exists() {
		return fmt.Errorf("%w: '%s'", ErrNotRegistered, target)
	}
	if identity.IsVerified {
		return fmt.Errorf("%w: '%s'", ErrAlreadyVerified, target)
	}

	now, err := getCurrentTxTimestamp(im.Ctx)
	if err != nil {
		return err
	}
	identity.IsVerified = true
	if err := im.putIdentity(identity); err != nil {
		return err
	}
	idLogger.Infof("Identity '%s' verified by '%s'.", target, callerFullID)

	return emitEvent(im.Ctx, model.EventIdentityVerified, model.IdentityVerifiedEvent{
		Principal: target,
		Verifier:  callerFullID,
		Timestamp: formatEventTime(now),
	})
}

// GetIdentityInfo returns the public view of principal's identity. An unregistered
// principal yields the zero view.
func (im *IdentityManager) GetIdentityInfo(principal string) (model.IdentityView, error) {
	identity, err := im.GetIdentity(principal)
	if err != nil {
		return model.IdentityView{}, err
	}
	return identity.View(), nil
}

// GetRegistryStats reads both global counters.
func (im *IdentityManager) GetRegistryStats() (*model.RegistryStats, error) {
	totalUsers, err := readCounter(im.Ctx, totalUsersCounter)
	if err != nil {
		return nil, err
	}
	totalAccessRequests, err := readCounter(im.Ctx, totalAccessRequestsCounter)
	if err != nil {
		return nil, err
	}
	return &model.RegistryStats{TotalUsers: totalUsers, TotalAccessRequests: totalAccessRequests}, nil
}
