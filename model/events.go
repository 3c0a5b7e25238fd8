// File: model/events.go
package model

// Chaincode event names. One event is emitted per committed transaction.
const (
	EventRegistryInitialized = "RegistryInitialized"
	EventIdentityRegistered  = "IdentityRegistered"
	EventIdentityVerified    = "IdentityVerified"
	EventVerifierUpdated     = "VerifierUpdated"
	EventAccessRequested     = "AccessRequested"
	EventAccessGranted       = "AccessGranted"
	EventAccessDenied        = "AccessDenied"
)

// RegistryInitializedEvent is emitted once, when the owner is recorded.
type RegistryInitializedEvent struct {
	Owner     string `json:"owner"`
	Timestamp string `json:"timestamp"`
}

// IdentityRegisteredEvent carries the declared name but never the email.
type IdentityRegisteredEvent struct {
	Principal string `json:"principal"`
	Name      string `json:"name"`
	Timestamp string `json:"timestamp"`
}

type IdentityVerifiedEvent struct {
	Principal string `json:"principal"`
	Verifier  string `json:"verifier"`
	Timestamp string `json:"timestamp"`
}

type VerifierUpdatedEvent struct {
	Principal string `json:"principal"`
	Status    bool   `json:"status"`
	UpdatedBy string `json:"updatedBy"`
	Timestamp string `json:"timestamp"`
}

type AccessRequestedEvent struct {
	RequestID  uint64 `json:"requestId"`
	Requester  string `json:"requester"`
	Target     string `json:"target"`
	ResourceID string `json:"resourceId"`
}

// AccessDecisionEvent is the payload of both AccessGranted and AccessDenied.
type AccessDecisionEvent struct {
	RequestID uint64 `json:"requestId"`
	DecidedBy string `json:"decidedBy"`
	Timestamp string `json:"timestamp"`
}
