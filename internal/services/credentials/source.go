// Package credentials loads the shared Canvas credential used in single
// tenant mode.
package credentials

import (
	"context"
	"errors"
	"fmt"

	"github.com/unifiedui/canvas-gateway/internal/core/vault"
)

// Default vault keys.
const (
	DefaultTokenKey       = "CANVAS_API_TOKEN"
	DefaultURLKey         = "CANVAS_API_URL"
	DefaultInstitutionKey = "CANVAS_INSTITUTION_NAME"
)

// Credentials is a Canvas token and the API it belongs to.
type Credentials struct {
	Token       string
	BaseURL     string
	Institution string
}

// Source provides the shared credential.
type Source interface {
	Load(ctx context.Context) (*Credentials, error)
}

// VaultSourceConfig holds the configuration for a vault-backed Source.
type VaultSourceConfig struct {
	Vault          vault.Vault
	TokenKey       string
	URLKey         string
	InstitutionKey string
}

// vaultSource implements Source over a vault.
type vaultSource struct {
	vault          vault.Vault
	tokenKey       string
	urlKey         string
	institutionKey string
}

// NewVaultSource creates a Source that reads the credential from a vault.
func NewVaultSource(cfg *VaultSourceConfig) (Source, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Vault == nil {
		return nil, fmt.Errorf("vault is required")
	}

	s := &vaultSource{
		vault:          cfg.Vault,
		tokenKey:       cfg.TokenKey,
		urlKey:         cfg.URLKey,
		institutionKey: cfg.InstitutionKey,
	}
	if s.tokenKey == "" {
		s.tokenKey = DefaultTokenKey
	}
	if s.urlKey == "" {
		s.urlKey = DefaultURLKey
	}
	if s.institutionKey == "" {
		s.institutionKey = DefaultInstitutionKey
	}

	return s, nil
}

// Load implements Source.  The institution label is optional.
func (s *vaultSource) Load(ctx context.Context) (*Credentials, error) {
	token, err := s.vault.GetSecret(ctx, s.tokenKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load canvas token: %w", err)
	}

	baseURL, err := s.vault.GetSecret(ctx, s.urlKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load canvas url: %w", err)
	}

	institution, err := s.vault.GetSecret(ctx, s.institutionKey)
	if err != nil && !errors.Is(err, vault.ErrSecretNotFound) {
		return nil, fmt.Errorf("failed to load institution name: %w", err)
	}

	return &Credentials{
		Token:       token,
		BaseURL:     baseURL,
		Institution: institution,
	}, nil
}
