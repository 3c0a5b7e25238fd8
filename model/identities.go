// File: model/identities.go
package model

import "time"

// Identity is the registry record binding a principal to its declared name and email.
// Name and Email are stored as supplied; only IdentityView is returned to readers.
type Identity struct {
	ObjectType       string    `json:"objectType"`       // Set to the composite key object type (Identity)
	Principal        string    `json:"principal"`        // Client identity ID of the owner of this record
	Name             string    `json:"name"`             // Non-empty; existence of the record is tested on this field
	Email            string    `json:"email"`            // Opaque, never format-checked
	IsVerified       bool      `json:"isVerified"`       // Only ever flips false -> true
	IsActive         bool      `json:"isActive"`         // True at creation, nothing clears it
	RegistrationTime time.Time `json:"registrationTime"` // Transaction timestamp of registration
	IdentityHash     string    `json:"identityHash"`     // 0x-prefixed keccak256 digest, see contract.computeIdentityHash
}

// Exists reports whether the record was ever registered.
func (i *Identity) Exists() bool {
	return i != nil && i.Name != ""
}

// IdentityView is the public read path for an identity. Plaintext fields are withheld.
type IdentityView struct {
	IsVerified       bool      `json:"isVerified"`
	IsActive         bool      `json:"isActive"`
	RegistrationTime time.Time `json:"registrationTime"`
	IdentityHash     string    `json:"identityHash"`
}

// View projects the identity onto its public fields.
func (i *Identity) View() IdentityView {
	if i == nil {
		return IdentityView{}
	}
	return IdentityView{
		IsVerified:       i.IsVerified,
		IsActive:         i.IsActive,
		RegistrationTime: i.RegistrationTime,
		IdentityHash:     i.IdentityHash,
	}
}

// RegistryStats holds the global counters.
type RegistryStats struct {
	TotalUsers          uint64 `json:"totalUsers"`
	TotalAccessRequests uint64 `json:"totalAccessRequests"`
}
