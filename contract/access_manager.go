package contract

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"accessregistry/model"

	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"github.com/hyperledger/fabric/common/flogging"
)

var accessLogger = flogging.MustGetLogger("accessregistry.accessmanager")

// AccessManager runs the access request state machine: Created -> Approved | Denied.
// Expiry is derived from the transaction timestamp and never stored.
type AccessManager struct {
	Ctx contractapi.TransactionContextInterface
	im  *IdentityManager
}

// NewAccessManager creates a new instance of AccessManager.
func NewAccessManager(ctx contractapi.TransactionContextInterface) *AccessManager {
	return &AccessManager{Ctx: ctx, im: NewIdentityManager(ctx)}
}

func (am *AccessManager) getAccessRequest(id uint64) (*model.AccessRequest, error) {
	requestKey, err := createAccessRequestKey(am.Ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to create key for access request %d: %w", id, err)
	}
	requestBytes, err := am.Ctx.GetStub().GetState(requestKey)
	if err != nil {
		return nil, fmt.Errorf("failed to read access request %d: %w", id, err)
	}
	if requestBytes == nil {
		// Allocated IDs always have a record; a gap means the counter and table disagree.
		return nil, fmt.Errorf("access request %d is allocated but has no record", id)
	}
	var request model.AccessRequest
	if err := json.Unmarshal(requestBytes, &request); err != nil {
		return nil, fmt.Errorf("failed to unmarshal access request %d: %w", id, err)
	}
	return &request, nil
}

func (am *AccessManager) putAccessRequest(request *model.AccessRequest) error {
	requestKey, err := createAccessRequestKey(am.Ctx, request.ID)
	if err != nil {
		return fmt.Errorf("failed to create key for access request %d: %w", request.ID, err)
	}
	requestBytes, err := json.Marshal(request)
	if err != nil {
		return fmt.Errorf("failed to marshal access request %d: %w", request.ID, err)
	}
	if err := am.Ctx.GetStub().PutState(requestKey, requestBytes); err != nil {
		return fmt.Errorf("failed to save access request %d: %w", request.ID, err)
	}
	return nil
}

// lookupAllocated returns the request when id < totalAccessRequests, or (nil, nil)
// when the ID was never allocated.
func (am *AccessManager) lookupAllocated(id uint64) (*model.AccessRequest, error) {
	total, err := readCounter(am.Ctx, totalAccessRequestsCounter)
	if err != nil {
		return nil, err
	}
	if id >= total {
		return nil, nil
	}
	return am.getAccessRequest(id)
}

// RequestAccess files a request by the caller for resourceID, to be decided by target
// within expiryDurationSeconds. It returns the allocated request ID.
func (am *AccessManager) RequestAccess(target, resourceID string, expiryDurationSeconds int64) (uint64, error) {
	callerFullID, err := am.im.GetCurrentIdentityFullID()
	if err != nil {
		return 0, err
	}
	identity, err := am.im.GetIdentity(callerFullID)
	if err != nil {
		return 0, err
	}
	if identity == nil || !identity.IsActive {
		return 0, fmt.Errorf("%w: '%s'", ErrIdentityInactive, callerFullID)
	}
	if err := validatePrincipal(target, "target"); err != nil {
		return 0, err
	}
	if err := validate.Var(resourceID, "required"); err != nil {
		return 0, ErrEmptyResourceID
	}
	if !identity.IsVerified {
		return 0, fmt.Errorf("%w: '%s'", ErrNotVerified, callerFullID)
	}
	if err := validate.Var(expiryDurationSeconds, fmt.Sprintf("gt=0,lte=%d", maxExpiryDurationSeconds)); err != nil {
		return 0, fmt.Errorf("%w: %d seconds (must be in (0, %d])", ErrInvalidDuration, expiryDurationSeconds, maxExpiryDurationSeconds)
	}

	now, err := getCurrentTxTimestamp(am.Ctx)
	if err != nil {
		return 0, err
	}
	requestID, err := readCounter(am.Ctx, totalAccessRequestsCounter)
	if err != nil {
		return 0, err
	}

	request := &model.AccessRequest{
		ObjectType:  accessRequestObjectType,
		ID:          requestID,
		Requester:   callerFullID,
		Target:      target,
		ResourceID:  resourceID,
		IsApproved:  false,
		IsProcessed: false,
		RequestTime: now,
		ExpiryTime:  now.Add(time.Duration(expiryDurationSeconds) * time.Second),
	}
	if err := am.putAccessRequest(request); err != nil {
		return 0, err
	}
	indexKey, err := createUserAccessRequestKey(am.Ctx, callerFullID, requestID)
	if err != nil {
		return 0, fmt.Errorf("failed to create index key for access request %d: %w", requestID, err)
	}
	// Fabric treats a nil value as a delete; store a one-byte marker.
	if err := am.Ctx.GetStub().PutState(indexKey, []byte{0x00}); err != nil {
		return 0, fmt.Errorf("failed to index access request %d for '%s': %w", requestID, callerFullID, err)
	}
	if err := writeCounter(am.Ctx, totalAccessRequestsCounter, requestID+1); err != nil {
		return 0, err
	}
	accessLogger.Infof("Access request %d filed by '%s' for resource '%s', target '%s', expires %s.",
		requestID, callerFullID, resourceID, target, request.ExpiryTime.Format(time.RFC3339))

	return requestID, emitEvent(am.Ctx, model.EventAccessRequested, model.AccessRequestedEvent{
		RequestID:  requestID,
		Requester:  callerFullID,
		Target:     target,
		ResourceID: resourceID,
	})
}

// ProcessAccessRequest records the target's one-time decision on an unexpired request.
func (am *AccessManager) ProcessAccessRequest(requestID uint64, approve bool) error {
	callerFullID, err := am.im.GetCurrentIdentityFullID()
	if err != nil {
		return err
	}
	request, err := am.lookupAllocated(requestID)
	if err != nil {
		return err
	}
	if request == nil {
		return fmt.Errorf("%w: %d", ErrInvalidRequestID, requestID)
	}
	if request.Target != callerFullID {
		return fmt.Errorf("%w: caller '%s' is not the target of access request %d", ErrUnauthorized, callerFullID, requestID)
	}
	if request.IsProcessed {
		return fmt.Errorf("%w: %d", ErrAlreadyProcessed, requestID)
	}
	now, err := getCurrentTxTimestamp(am.Ctx)
	if err != nil {
		return err
	}
	if request.IsExpiredAt(now) {
		return fmt.Errorf("%w: request %d expired at %s", ErrExpired, requestID, request.ExpiryTime.Format(time.RFC3339))
	}

	request.IsApproved = approve
	request.IsProcessed = true
	if err := am.putAccessRequest(request); err != nil {
		return err
	}

	eventName := model.EventAccessDenied
	if approve {
		eventName = model.EventAccessGranted
	}
	accessLogger.Infof("Access request %d decided by '%s': %s.", requestID, callerFullID, eventName)

	return emitEvent(am.Ctx, eventName, model.AccessDecisionEvent{
		RequestID: requestID,
		DecidedBy: callerFullID,
		Timestamp: formatEventTime(now),
	})
}

// HasValidAccess reports whether user holds an approved, unexpired grant under requestID.
// Unknown IDs and mismatched users yield false rather than an error.
func (am *AccessManager) HasValidAccess(user string, requestID uint64) (bool, error) {
	request, err := am.lookupAllocated(requestID)
	if err != nil {
		return false, err
	}
	if request == nil || request.Requester != user {
		return false, nil
	}
	now, err := getCurrentTxTimestamp(am.Ctx)
	if err != nil {
		return false, err
	}
	return request.IsValidAt(now), nil
}

// GetAccessRequest returns the request with its expiry evaluated at the transaction time.
func (am *AccessManager) GetAccessRequest(requestID uint64) (*model.AccessRequestView, error) {
	request, err := am.lookupAllocated(requestID)
	if err != nil {
		return nil, err
	}
	if request == nil {
		return nil, fmt.Errorf("%w: %d", ErrInvalidRequestID, requestID)
	}
	now, err := getCurrentTxTimestamp(am.Ctx)
	if err != nil {
		return nil, err
	}
	view := request.ViewAt(now)
	return &view, nil
}

// GetUserAccessRequests returns user's request IDs in creation order.
func (am *AccessManager) GetUserAccessRequests(user string) ([]uint64, error) {
	resultsIterator, err := am.Ctx.GetStub().GetStateByPartialCompositeKey(userAccessRequestObjectType, []string{user})
	if err != nil {
		return nil, fmt.Errorf("failed to get access request index for '%s': %w", user, err)
	}
	defer resultsIterator.Close()

	ids := []uint64{}
	for resultsIterator.HasNext() {
		queryResponse, err := resultsIterator.Next()
		if err != nil {
			return nil, fmt.Errorf("failed to iterate access request index for '%s': %w", user, err)
		}
		_, attributes, err := am.Ctx.GetStub().SplitCompositeKey(queryResponse.Key)
		if err != nil {
			return nil, fmt.Errorf("failed to split index key '%s': %w", queryResponse.Key, err)
		}
		if len(attributes) != 2 {
			return nil, fmt.Errorf("index key '%s' has %d attributes, expected 2", queryResponse.Key, len(attributes))
		}
		id, err := strconv.ParseUint(attributes[1], 10, 64)
		if err != nil {
			return nil, fmt.Errorf("index key '%s' holds corrupt request id: %w", queryResponse.Key, err)
		}
		ids = append(ids, id)
	}
	accessLogger.Debugf("GetUserAccessRequests: '%s' has %d requests.", user, len(ids))
	return ids, nil
}
