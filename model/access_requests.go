// File: model/access_requests.go
package model

import "time"

// AccessRequest is a time-bounded claim by Requester on ResourceID, adjudicated by Target.
// IsApproved is only meaningful once IsProcessed is true; both are written at most once.
type AccessRequest struct {
	ObjectType  string    `json:"objectType"`
	ID          uint64    `json:"id"`
	Requester   string    `json:"requester"`
	Target      string    `json:"target"`
	ResourceID  string    `json:"resourceId"`
	IsApproved  bool      `json:"isApproved"`
	IsProcessed bool      `json:"isProcessed"`
	RequestTime time.Time `json:"requestTime"`
	ExpiryTime  time.Time `json:"expiryTime"`
}

// IsExpiredAt reports whether the request can no longer be acted on at now.
func (r *AccessRequest) IsExpiredAt(now time.Time) bool {
	return !now.Before(r.ExpiryTime)
}

// IsValidAt reports whether the request grants access at now.
func (r *AccessRequest) IsValidAt(now time.Time) bool {
	return r.IsProcessed && r.IsApproved && !r.IsExpiredAt(now)
}

// AccessRequestView is the stored request plus its derived expiry state.
type AccessRequestView struct {
	ID          uint64    `json:"id"`
	Requester   string    `json:"requester"`
	Target      string    `json:"target"`
	ResourceID  string    `json:"resourceId"`
	IsApproved  bool      `json:"isApproved"`
	IsProcessed bool      `json:"isProcessed"`
	IsExpired   bool      `json:"isExpired"`
	RequestTime time.Time `json:"requestTime"`
	ExpiryTime  time.Time `json:"expiryTime"`
}

// ViewAt projects the request and evaluates expiry at now.
func (r *AccessRequest) ViewAt(now time.Time) AccessRequestView {
	return AccessRequestView{
		ID:          r.ID,
		Requester:   r.Requester,
		Target:      r.Target,
		ResourceID:  r.ResourceID,
		IsApproved:  r.IsApproved,
		IsProcessed: r.IsProcessed,
		IsExpired:   r.IsExpiredAt(now),
		RequestTime: r.RequestTime,
		ExpiryTime:  r.ExpiryTime,
	}
}
