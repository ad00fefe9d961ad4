package models

import "time"

// Audit outcomes other than domain error codes.
const (
	AuditOutcomeSuccess = "success"
)

// AuditEvent records one gateway operation.  It carries no credential, no
// session id and no Canvas payload.
type AuditEvent struct {
	ID string `json:"id" bson:"_id"`

	// Operation is the gateway operation name, e.g. "list_courses".
	Operation string `json:"operation" bson:"operation"`

	// SessionRef is a one-way digest of the session id, enough to group
	// events of one session.
	SessionRef string `json:"sessionRef,omitempty" bson:"sessionRef,omitempty"`

	Institution string `json:"institution,omitempty" bson:"institution,omitempty"`

	// Outcome is AuditOutcomeSuccess or a domain error code.
	Outcome string `json:"outcome" bson:"outcome"`

	UpstreamStatus int   `json:"upstreamStatus,omitempty" bson:"upstreamStatus,omitempty"`
	DurationMs     int64 `json:"durationMs" bson:"durationMs"`

	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
