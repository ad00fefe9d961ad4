// Package mocks provides mock implementations for testing.
package mocks

import (
	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
)

// MockEncryptor is a mock implementation of encryption.Encryptor.
type MockEncryptor struct {
	mock.Mock
}

// Encrypt encrypts the given plaintext.
func (m *MockEncryptor) Encrypt(plaintext []byte) (*encryption.Ciphertext, error) {
	args := m.Called(plaintext)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*encryption.Ciphertext), args.Error(1)
}

// Decrypt decrypts the given ciphertext.
func (m *MockEncryptor) Decrypt(ct *encryption.Ciphertext) ([]byte, error) {
	args := m.Called(ct)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
