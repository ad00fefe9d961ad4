package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/canvas-gateway/internal/core/docdb"
	"github.com/unifiedui/canvas-gateway/internal/domain/models"
)

// MockAuditEventsCollection is a mock implementation of
// docdb.AuditEventsCollection.
type MockAuditEventsCollection struct {
	mock.Mock
}

// Insert stores an audit event.
func (m *MockAuditEventsCollection) Insert(ctx context.Context, event *models.AuditEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

// EnsureIndexes creates indexes.
func (m *MockAuditEventsCollection) EnsureIndexes(ctx context.Context, retention time.Duration) error {
	args := m.Called(ctx, retention)
	return args.Error(0)
}

// MockDocDBClient is a mock implementation of docdb.Client.
type MockDocDBClient struct {
	mock.Mock
	auditEvents *MockAuditEventsCollection
}

// NewMockDocDBClient creates a new MockDocDBClient.
func NewMockDocDBClient() *MockDocDBClient {
	return &MockDocDBClient{
		auditEvents: &MockAuditEventsCollection{},
	}
}

// AuditEvents returns the audit events collection.
func (m *MockDocDBClient) AuditEvents() docdb.AuditEventsCollection {
	return m.auditEvents
}

// AuditEventsMock returns the audit events collection mock for setting
// expectations.
func (m *MockDocDBClient) AuditEventsMock() *MockAuditEventsCollection {
	return m.auditEvents
}

// Ping checks the database connection.
func (m *MockDocDBClient) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// Close closes the database connection.
func (m *MockDocDBClient) Close(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
