package jobs

import "time"

// DeleteUserPayload asks the worker to remove one user record.
// Keep payload minimal and ID-based; the worker owns the actual delete.
type DeleteUserPayload struct {
	UserID      string    `json:"userId"`
	RequestedAt time.Time `json:"requestedAt"`
	RequestID   string    `json:"requestId,omitempty"` // optional: correlation
}
