// Package config handles application configuration loading and management.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/unifiedui/canvas-gateway/internal/core/cache"
	"github.com/unifiedui/canvas-gateway/internal/core/docdb"
	"github.com/unifiedui/canvas-gateway/internal/core/vault"
	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
)

// Tenancy modes.
const (
	TenancyMulti  = "multi"
	TenancySingle = "single"
)

// Config holds all configuration for the application.
type Config struct {
	Server    ServerConfig
	Session   SessionConfig
	RateLimit RateLimitConfig
	Cache     CacheConfig
	Security  SecurityConfig
	Canvas    CanvasConfig
	Vault     VaultConfig
	Tenancy   TenancyConfig
	DocDB     DocDBConfig
	Log       LogConfig
}

// ServerConfig holds server-related configuration.
type ServerConfig struct {
	Host            string
	Port            int
	GinMode         string
	MaxBodyBytes    int64
	CORSOrigins     []string
	ShutdownTimeout time.Duration
}

// Address returns the server address in host:port format.
func (c ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// SessionConfig holds session store configuration.
type SessionConfig struct {
	IdleTimeout      time.Duration
	SweepInterval    time.Duration
	MaxPerCredential int
}

// RateLimitConfig holds request limits.  PerIPRequests of 0 disables the
// per-address limit.
type RateLimitConfig struct {
	Requests      int64
	Window        time.Duration
	PerIPRequests int64
}

// CacheConfig holds cache-related configuration.
type CacheConfig struct {
	Type      string
	Host      string
	Port      string
	Password  string
	DB        int
	KeyPrefix string
}

// SecurityConfig holds credential encryption configuration.
type SecurityConfig struct {
	// SessionSecret is the server secret keys are derived from, raw or
	// "base64:"-prefixed.  When empty an ephemeral secret is generated at
	// startup.
	SessionSecret string
	KDFIterations int
}

// CanvasConfig holds Canvas client configuration.
type CanvasConfig struct {
	Timeout          time.Duration
	MaxResponseBytes int64
}

// VaultConfig holds vault configuration.
type VaultConfig struct {
	Type        string
	SecretsFile string
}

// TenancyConfig selects between per-caller sessions and one shared
// credential.
type TenancyConfig struct {
	Mode string
}

// DocDBConfig holds document database configuration for audit events.
type DocDBConfig struct {
	Type           string
	URI            string
	Database       string
	AuditRetention time.Duration
}

// LogConfig holds logging configuration.
type LogConfig struct {
	Level  string
	Format string
}

// Load loads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getEnvAsInt("SERVER_PORT", 8080),
			GinMode:         getEnv("GIN_MODE", "release"),
			MaxBodyBytes:    int64(getEnvAsInt("SERVER_MAX_BODY_BYTES", 10*1024)),
			CORSOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS", nil),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Session: SessionConfig{
			IdleTimeout:      getEnvAsDuration("SESSION_IDLE_TIMEOUT", 24*time.Hour),
			SweepInterval:    getEnvAsDuration("SESSION_SWEEP_INTERVAL", 30*time.Minute),
			MaxPerCredential: getEnvAsInt("SESSION_MAX_PER_CREDENTIAL", 5),
		},
		RateLimit: RateLimitConfig{
			Requests:      int64(getEnvAsInt("RATE_LIMIT_REQUESTS", 60)),
			Window:        getEnvAsDuration("RATE_LIMIT_WINDOW", time.Minute),
			PerIPRequests: int64(getEnvAsInt("RATE_LIMIT_PER_IP_REQUESTS", 0)),
		},
		Cache: CacheConfig{
			Type:      getEnv("CACHE_TYPE", string(cache.TypeNone)),
			Host:      getEnv("REDIS_HOST", "localhost"),
			Port:      getEnv("REDIS_PORT", "6379"),
			Password:  getEnv("REDIS_PASSWORD", ""),
			DB:        getEnvAsInt("REDIS_DB", 0),
			KeyPrefix: getEnv("REDIS_KEY_PREFIX", "canvas-gateway:"),
		},
		Security: SecurityConfig{
			SessionSecret: getEnv("SESSION_SECRET", ""),
			KDFIterations: getEnvAsInt("PBKDF2_ITERATIONS", encryption.DefaultIterations),
		},
		Canvas: CanvasConfig{
			Timeout:          getEnvAsDuration("CANVAS_TIMEOUT", 30*time.Second),
			MaxResponseBytes: int64(getEnvAsInt("CANVAS_MAX_RESPONSE_BYTES", 10<<20)),
		},
		Vault: VaultConfig{
			Type:        getEnv("VAULT_TYPE", string(vault.TypeDotEnv)),
			SecretsFile: getEnv("VAULT_SECRETS_FILE", ""),
		},
		Tenancy: TenancyConfig{
			Mode: getEnv("TENANCY_MODE", TenancyMulti),
		},
		DocDB: DocDBConfig{
			Type:           getEnv("DOCDB_TYPE", string(docdb.TypeNone)),
			URI:            getEnv("MONGODB_URI", "mongodb://localhost:27017"),
			Database:       getEnv("MONGODB_DATABASE", "canvas_gateway"),
			AuditRetention: getEnvAsDuration("AUDIT_RETENTION", 30*24*time.Hour),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings the service cannot run with.
func (c *Config) Validate() error {
	switch {
	case c.Server.Port < 1 || c.Server.Port > 65535:
		return fmt.Errorf("invalid SERVER_PORT %d", c.Server.Port)
	case c.Server.MaxBodyBytes < 1:
		return fmt.Errorf("SERVER_MAX_BODY_BYTES must be positive")
	case c.Session.IdleTimeout <= 0:
		return fmt.Errorf("SESSION_IDLE_TIMEOUT must be positive")
	case c.Session.SweepInterval <= 0:
		return fmt.Errorf("SESSION_SWEEP_INTERVAL must be positive")
	case c.Session.MaxPerCredential < 1:
		return fmt.Errorf("SESSION_MAX_PER_CREDENTIAL must be at least 1")
	case c.RateLimit.Requests < 1:
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	case c.RateLimit.Window <= 0:
		return fmt.Errorf("RATE_LIMIT_WINDOW must be positive")
	case c.RateLimit.PerIPRequests < 0:
		return fmt.Errorf("RATE_LIMIT_PER_IP_REQUESTS must not be negative")
	case c.Security.KDFIterations < encryption.MinIterations:
		return fmt.Errorf("PBKDF2_ITERATIONS must be at least %d", encryption.MinIterations)
	case c.Canvas.Timeout <= 0:
		return fmt.Errorf("CANVAS_TIMEOUT must be positive")
	case c.Canvas.MaxResponseBytes < 1:
		return fmt.Errorf("CANVAS_MAX_RESPONSE_BYTES must be positive")
	}

	switch cache.Type(c.Cache.Type) {
	case cache.TypeNone, cache.TypeRedis:
	default:
		return fmt.Errorf("unsupported CACHE_TYPE %q", c.Cache.Type)
	}

	switch docdb.Type(c.DocDB.Type) {
	case docdb.TypeNone, docdb.TypeMongoDB:
	default:
		return fmt.Errorf("unsupported DOCDB_TYPE %q", c.DocDB.Type)
	}

	if vault.Type(c.Vault.Type) != vault.TypeDotEnv {
		return fmt.Errorf("unsupported VAULT_TYPE %q", c.Vault.Type)
	}

	switch c.Tenancy.Mode {
	case TenancyMulti, TenancySingle:
	default:
		return fmt.Errorf("unsupported TENANCY_MODE %q", c.Tenancy.Mode)
	}

	return nil
}

// getEnv gets an environment variable with a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value.
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsDuration gets an environment variable as a duration ("90s",
// "24h") with a default value.
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList gets a comma-separated environment variable as a list.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}
