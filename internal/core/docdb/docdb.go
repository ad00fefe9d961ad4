// Package docdb defines the document database interface.
package docdb

import (
	"context"
	"time"

	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

// AuditEventsCollection defines the interface for audit event storage.
type AuditEventsCollection interface {
	// Insert stores a new audit event.
	Insert(ctx context.Context, event *models.AuditEvent) error

	// EnsureIndexes creates necessary indexes for the collection.  A
	// positive retention adds an expiry index on createdAt.
	EnsureIndexes(ctx context.Context, retention time.Duration) error
}
