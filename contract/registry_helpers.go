package contract

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/hyperledger/fabric-contract-api-go/contractapi"
	"golang.org/x/crypto/sha3"
)

// Object types for composite keys.
const (
	identityObjectType          = "Identity"          // Attribute: principal.
	verifierObjectType          = "Verifier"          // Attribute: principal. Value "true"; key deleted when cleared.
	accessRequestObjectType     = "AccessRequest"     // Attribute: padded request ID.
	userAccessRequestObjectType = "UserAccessRequest" // Attributes: requester, padded request ID.
	counterObjectType           = "Counter"           // Attribute: counter name.
	ownerObjectType             = "Owner"             // No attributes.
)

const (
	totalUsersCounter          = "totalUsers"
	totalAccessRequestsCounter = "totalAccessRequests"
)

// maxExpiryDurationSeconds is 365 days.
const maxExpiryDurationSeconds int64 = 365 * 24 * 60 * 60

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// firstInvalidField returns the JSON name of the first field that failed validation.
func firstInvalidField(err error) (string, bool) {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return verrs[0].Field(), true
	}
	return "", false
}

func getCurrentTxTimestamp(ctx contractapi.TransactionContextInterface) (time.Time, error) {
	ts, err := ctx.GetStub().GetTxTimestamp()
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get transaction timestamp: %w", err)
	}
	return ts.AsTime(), nil
}

func isValidX509ID(id string) bool {
	return strings.HasPrefix(id, "x509::") || strings.HasPrefix(id, "eDUwOTo6") // "eDUwOTo6" is "x509::" base64 encoded
}

// validatePrincipal rejects blank and non-X.509 principals.
func validatePrincipal(principal, field string) error {
	if strings.TrimSpace(principal) == "" {
		return fmt.Errorf("%w: %s is empty", ErrInvalidAddress, field)
	}
	if !isValidX509ID(principal) {
		return fmt.Errorf("%w: %s '%s' is not a valid X.509 ID", ErrInvalidAddress, field, principal)
	}
	return nil
}

// --- Keys ---

// formatRequestID zero-pads so lexicographic key order matches allocation order.
func formatRequestID(id uint64) string {
	return fmt.Sprintf("%020d", id)
}

func createIdentityKey(ctx contractapi.TransactionContextInterface, principal string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(identityObjectType, []string{principal})
}

func createVerifierKey(ctx contractapi.TransactionContextInterface, principal string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(verifierObjectType, []string{principal})
}

func createAccessRequestKey(ctx contractapi.TransactionContextInterface, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(accessRequestObjectType, []string{formatRequestID(id)})
}

func createUserAccessRequestKey(ctx contractapi.TransactionContextInterface, requester string, id uint64) (string, error) {
	return ctx.GetStub().CreateCompositeKey(userAccessRequestObjectType, []string{requester, formatRequestID(id)})
}

func createCounterKey(ctx contractapi.TransactionContextInterface, name string) (string, error) {
	return ctx.GetStub().CreateCompositeKey(counterObjectType, []string{name})
}

func createOwnerKey(ctx contractapi.TransactionContextInterface) (string, error) {
	return ctx.GetStub().CreateCompositeKey(ownerObjectType, []string{})
}

// --- Counters ---

// readCounter returns 0 for a counter that was never written.
func readCounter(ctx contractapi.TransactionContextInterface, name string) (uint64, error) {
	key, err := createCounterKey(ctx, name)
	if err != nil {
		return 0, fmt.Errorf("failed to create counter key '%s': %w", name, err)
	}
	raw, err := ctx.GetStub().GetState(key)
	if err != nil {
		return 0, fmt.Errorf("failed to read counter '%s': %w", name, err)
	}
	if raw == nil {
		return 0, nil
	}
	value, err := strconv.ParseUint(string(raw), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("counter '%s' holds corrupt value '%s': %w", name, string(raw), err)
	}
	return value, nil
}

func writeCounter(ctx contractapi.TransactionContextInterface, name string, value uint64) error {
	key, err := createCounterKey(ctx, name)
	if err != nil {
		return fmt.Errorf("failed to create counter key '%s': %w", name, err)
	}
	if err := ctx.GetStub().PutState(key, []byte(strconv.FormatUint(value, 10))); err != nil {
		return fmt.Errorf("failed to save counter '%s': %w", name, err)
	}
	return nil
}

// --- Hashing ---

// computeIdentityHash commits to keccak256(name || email || principal || uint64be(unix seconds)).
func computeIdentityHash(name, email, principal string, registeredAt time.Time) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(name))
	h.Write([]byte(email))
	h.Write([]byte(principal))
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], uint64(registeredAt.Unix()))
	h.Write(ts[:])
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

// --- Events ---

// emitEvent sets the transaction's chaincode event. Fabric keeps one event per
// transaction, so each operation calls this exactly once, after all writes.
func emitEvent(ctx contractapi.TransactionContextInterface, eventName string, payload interface{}) error {
	eventBytes, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload for event '%s': %w", eventName, err)
	}
	if err := ctx.GetStub().SetEvent(eventName, eventBytes); err != nil {
		logger.Warningf("emitEvent: failed to set event '%s': %v", eventName, err)
		return fmt.Errorf("failed to set event '%s': %w", eventName, err)
	}
	return nil
}

func formatEventTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}
