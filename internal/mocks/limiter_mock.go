package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
)

// MockLimiter is a mock implementation of ratelimit.Limiter.
type MockLimiter struct {
	mock.Mock
}

// Allow counts a request.
func (m *MockLimiter) Allow(ctx context.Context, key string) (*ratelimit.Decision, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ratelimit.Decision), args.Error(1)
}

// Reset forgets a window.
func (m *MockLimiter) Reset(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

// Ping checks the backing store.
func (m *MockLimiter) Ping(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
