// Package vault defines the vault interface for secrets retrieval.
package vault

import (
	"context"
	"errors"
)

// ErrSecretNotFound is returned when a vault holds no value for a key.
var ErrSecretNotFound = errors.New("secret not found")

// Vault defines the interface for read-only secrets access.
type Vault interface {
	// GetSecret retrieves a secret by key or URI.
	// Returns ErrSecretNotFound (possibly wrapped) if it does not exist.
	GetSecret(ctx context.Context, uri string) (string, error)

	// Ping checks if the vault connection is alive.
	Ping(ctx context.Context) error

	// Close closes the vault connection.
	Close() error
}
