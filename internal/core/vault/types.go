// Package vault provides the vault type constants.
package vault

// Type represents the type of vault.
type Type string

const (
	// TypeDotEnv represents a DotEnv vault backed by the environment and an
	// optional secrets file.
	TypeDotEnv Type = "dotenv"
)
