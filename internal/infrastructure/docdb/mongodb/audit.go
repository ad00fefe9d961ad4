// Package mongodb provides the audit events collection implementation.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

// AuditEventsCollectionName is the name of the audit events collection.
const AuditEventsCollectionName = "audit_events"

// AuditEventsCollection implements the docdb.AuditEventsCollection interface
// for MongoDB.
type AuditEventsCollection struct {
	events *mongo.Collection
}

// NewAuditEventsCollection creates a new audit events collection wrapper.
func NewAuditEventsCollection(db *mongo.Database) *AuditEventsCollection {
	return &AuditEventsCollection{
		events: db.Collection(AuditEventsCollectionName),
	}
}

// Insert stores a new audit event.
func (c *AuditEventsCollection) Insert(ctx context.Context, event *models.AuditEvent) error {
	if event.ID == "" {
		return fmt.Errorf("audit event ID is required")
	}

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	if _, err := c.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("failed to insert audit event: %w", err)
	}

	return nil
}

// EnsureIndexes creates necessary indexes for the audit events collection.
func (c *AuditEventsCollection) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	createdAt := options.Index().SetName("idx_created_at")
	if retention > 0 {
		createdAt.SetName("idx_created_at_ttl").SetExpireAfterSeconds(int32(retention / time.Second))
	}

	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "createdAt", Value: 1}},
			Options: createdAt,
		},
		{
			Keys: bson.D{
				{Key: "sessionRef", Value: 1},
				{Key: "createdAt", Value: -1},
			},
			Options: options.Index().SetName("idx_session_created"),
		},
		{
			Keys: bson.D{
				{Key: "operation", Value: 1},
				{Key: "outcome", Value: 1},
			},
			Options: options.Index().SetName("idx_operation_outcome"),
		},
	}

	if _, err := c.events.Indexes().CreateMany(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create audit event indexes: %w", err)
	}

	return nil
}
