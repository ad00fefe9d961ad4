// Package encryption provides PBKDF2 + AES-256-GCM encryption for Canvas
// credentials held in process memory.
package encryption

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	// DefaultIterations is the PBKDF2 cost used when none is configured.
	DefaultIterations = 100_000

	// MinIterations is the lowest accepted PBKDF2 cost.
	MinIterations = 100_000

	// SaltSize is the size of the per-call random salt in bytes.
	SaltSize = 16

	// Base64Prefix marks a secret given in standard base64.  Secrets
	// without it are used as raw bytes.
	Base64Prefix = "base64:"

	// keySize is the AES-256 key size in bytes.
	keySize = 32
)

// ErrDecryption is returned for every decryption failure.  Callers cannot
// tell a wrong key from corrupted data.
var ErrDecryption = errors.New("decryption failed")

// Ciphertext is a sealed secret together with the salt its key was derived
// from.  Data is the GCM nonce followed by the sealed bytes.
type Ciphertext struct {
	Data []byte
	Salt []byte
}

// Wipe zeroes the ciphertext and salt in place.
func (c *Ciphertext) Wipe() {
	if c == nil {
		return
	}
	clear(c.Data)
	clear(c.Salt)
	c.Data = nil
	c.Salt = nil
}

// Clone returns a deep copy of c.
func (c *Ciphertext) Clone() *Ciphertext {
	if c == nil {
		return nil
	}
	return &Ciphertext{
		Data: append([]byte(nil), c.Data...),
		Salt: append([]byte(nil), c.Salt...),
	}
}

// Encryptor provides methods for encrypting and decrypting data.
type Encryptor interface {
	// Encrypt seals plaintext under a key derived from a fresh random salt.
	Encrypt(plaintext []byte) (*Ciphertext, error)

	// Decrypt opens c.  Any failure is reported as ErrDecryption.
	Decrypt(c *Ciphertext) ([]byte, error)
}

// PBKDF2Encryptor implements Encryptor with a key derived per call by
// PBKDF2-HMAC-SHA256 from a server-side secret and a random salt.
type PBKDF2Encryptor struct {
	secret     []byte
	iterations int
}

// NewPBKDF2Encryptor creates a new encryptor.  A secret prefixed with
// Base64Prefix is decoded first; any other secret is taken as raw bytes.
// Either way it must be at least 32 bytes.  iterations of 0 selects
// DefaultIterations.
func NewPBKDF2Encryptor(secret string, iterations int) (*PBKDF2Encryptor, error) {
	secretBytes, err := parseSecret(secret)
	if err != nil {
		return nil, err
	}

	if len(secretBytes) < keySize {
		return nil, fmt.Errorf("encryption secret must be at least %d bytes, got %d", keySize, len(secretBytes))
	}

	if iterations == 0 {
		iterations = DefaultIterations
	}
	if iterations < MinIterations {
		return nil, fmt.Errorf("pbkdf2 iterations must be at least %d, got %d", MinIterations, iterations)
	}

	return &PBKDF2Encryptor{
		secret:     secretBytes,
		iterations: iterations,
	}, nil
}

func parseSecret(secret string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(secret, Base64Prefix)
	if !ok {
		return []byte(secret), nil
	}

	b, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("encryption secret is not valid base64: %w", err)
	}
	return b, nil
}

// Encrypt seals plaintext.  Two calls with the same plaintext produce
// different salts and thus unrelated ciphertexts.
func (e *PBKDF2Encryptor) Encrypt(plaintext []byte) (*Ciphertext, error) {
	salt := make([]byte, SaltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("failed to generate salt: %w", err)
	}

	gcm, err := e.aead(salt)
	if err != nil {
		return nil, err
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return &Ciphertext{
		Data: gcm.Seal(nonce, nonce, plaintext, nil),
		Salt: salt,
	}, nil
}

// Decrypt opens c.
func (e *PBKDF2Encryptor) Decrypt(c *Ciphertext) ([]byte, error) {
	if c == nil || len(c.Salt) != SaltSize {
		return nil, ErrDecryption
	}

	gcm, err := e.aead(c.Salt)
	if err != nil {
		return nil, ErrDecryption
	}

	nonceSize := gcm.NonceSize()
	if len(c.Data) < nonceSize+gcm.Overhead() {
		return nil, ErrDecryption
	}

	nonce, sealed := c.Data[:nonceSize], c.Data[nonceSize:]
	plaintext, err := gcm.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrDecryption
	}

	return plaintext, nil
}

// aead derives the key for salt and returns the GCM instance for it.
func (e *PBKDF2Encryptor) aead(salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key(e.secret, salt, e.iterations, keySize, sha256.New)
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM: %w", err)
	}

	return gcm, nil
}

// GenerateKey generates a new random 32-byte secret in the prefixed base64
// form NewPBKDF2Encryptor accepts.
func GenerateKey() (string, error) {
	key := make([]byte, keySize)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return "", fmt.Errorf("failed to generate key: %w", err)
	}
	return Base64Prefix + base64.StdEncoding.EncodeToString(key), nil
}
