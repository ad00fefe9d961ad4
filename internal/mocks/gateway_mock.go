package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/canvas-gateway/internal/services/credentials"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
)

// MockGateway is a mock implementation of gateway.Service.
type MockGateway struct {
	mock.Mock
}

// Authenticate opens a session.
func (m *MockGateway) Authenticate(ctx context.Context, req *gateway.AuthenticateRequest) (*gateway.AuthResult, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.AuthResult), args.Error(1)
}

// Logout destroys a session.
func (m *MockGateway) Logout(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

// SessionInfo describes a session.
func (m *MockGateway) SessionInfo(ctx context.Context, sessionID string) (*gateway.SessionInfo, error) {
	args := m.Called(ctx, sessionID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.SessionInfo), args.Error(1)
}

// Invoke forwards an operation.
func (m *MockGateway) Invoke(ctx context.Context, sessionID, operation string, params map[string]string) (*gateway.Result, error) {
	args := m.Called(ctx, sessionID, operation, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*gateway.Result), args.Error(1)
}

// PinDefaultSession opens the shared session.
func (m *MockGateway) PinDefaultSession(ctx context.Context, source credentials.Source) error {
	args := m.Called(ctx, source)
	return args.Error(0)
}
