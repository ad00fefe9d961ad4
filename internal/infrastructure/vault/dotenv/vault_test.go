package dotenv_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/canvas-gateway/internal/core/vault"
	"github.com/unifiedui/canvas-gateway/internal/infrastructure/vault/dotenv"
)

func TestDotEnvVault_GetSecretFromEnv(t *testing.T) {
	t.Setenv("TEST_ENV_SECRET", "env-secret-value")

	v, err := dotenv.NewVault("")
	require.NoError(t, err)

	value, err := v.GetSecret(context.Background(), "dotenv://TEST_ENV_SECRET")
	assert.NoError(t, err)
	assert.Equal(t, "env-secret-value", value)

	value, err = v.GetSecret(context.Background(), "TEST_ENV_SECRET")
	assert.NoError(t, err)
	assert.Equal(t, "env-secret-value", value)
}

func TestDotEnvVault_FileTakesPrecedence(t *testing.T) {
	// Arrange
	path := filepath.Join(t.TempDir(), "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("CANVAS_API_TOKEN=file-token\n"), 0o600))
	t.Setenv("CANVAS_API_TOKEN", "env-token")

	v, err := dotenv.NewVault(path)
	require.NoError(t, err)

	// Act
	value, err := v.GetSecret(context.Background(), "CANVAS_API_TOKEN")

	// Assert
	assert.NoError(t, err)
	assert.Equal(t, "file-token", value)
}

func TestDotEnvVault_FileDoesNotTouchEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "secrets.env")
	require.NoError(t, os.WriteFile(path, []byte("GATEWAY_TEST_ONLY_IN_FILE=x\n"), 0o600))

	_, err := dotenv.NewVault(path)
	require.NoError(t, err)

	assert.Empty(t, os.Getenv("GATEWAY_TEST_ONLY_IN_FILE"))
}

func TestDotEnvVault_MissingFile(t *testing.T) {
	v, err := dotenv.NewVault(filepath.Join(t.TempDir(), "missing.env"))

	assert.Nil(t, v)
	assert.Error(t, err)
}

func TestDotEnvVault_GetSecretNotFound(t *testing.T) {
	v, err := dotenv.NewVault("")
	require.NoError(t, err)

	value, err := v.GetSecret(context.Background(), "dotenv://non-existent")

	assert.ErrorIs(t, err, vault.ErrSecretNotFound)
	assert.Empty(t, value)
	assert.Contains(t, err.Error(), "secret not found")
}

func TestDotEnvVault_PingAndClose(t *testing.T) {
	v, err := dotenv.NewVault("")
	require.NoError(t, err)

	assert.NoError(t, v.Ping(context.Background()))
	assert.NoError(t, v.Close())
}
