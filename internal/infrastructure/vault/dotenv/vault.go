// Package dotenv provides a dotenv-based vault implementation.
package dotenv

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"

	"github.com/unifiedui/canvas-gateway/internal/core/vault"
)

// uriScheme is the optional prefix of secret URIs.
const uriScheme = "dotenv://"

// Vault implements the vault.Vault interface using a secrets file and
// environment variables.  Values from the file take precedence.
type Vault struct {
	// secrets holds values read from the secrets file.  It is never
	// written after construction.
	secrets map[string]string
}

// NewVault creates a new DotEnv vault.  If path is not empty the file is
// parsed with godotenv without touching the process environment.
func NewVault(path string) (*Vault, error) {
	secrets := map[string]string{}

	if path != "" {
		values, err := godotenv.Read(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read secrets file: %w", err)
		}
		secrets = values
	}

	return &Vault{
		secrets: secrets,
	}, nil
}

// GetSecret retrieves a secret from the secrets file or the environment.
// uri is either a bare key or "dotenv://{key}".
func (v *Vault) GetSecret(_ context.Context, uri string) (string, error) {
	key := strings.TrimPrefix(uri, uriScheme)

	if value := v.secrets[key]; value != "" {
		return value, nil
	}

	if value := os.Getenv(key); value != "" {
		return value, nil
	}

	return "", fmt.Errorf("%w: %s", vault.ErrSecretNotFound, key)
}

// Ping checks if the vault is available (always returns nil for dotenv).
func (v *Vault) Ping(_ context.Context) error {
	return nil
}

// Close closes the vault (no-op for dotenv).
func (v *Vault) Close() error {
	return nil
}
