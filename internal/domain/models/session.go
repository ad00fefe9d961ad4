// Package models contains domain models for the Canvas gateway.
package models

import (
	"time"

	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
)

// Session binds an opaque id to one user's encrypted Canvas credential.
type Session struct {
	// ID is the opaque session identifier handed to the caller.
	ID string `json:"-"`

	// Credential is the encrypted Canvas API token.
	Credential *encryption.Ciphertext `json:"-"`

	// BaseURL is the Canvas API root, always ending in /api/v1.
	BaseURL string `json:"baseUrl"`

	// Institution is the optional label supplied on authentication.
	Institution string `json:"institution,omitempty"`

	// UserID is the Canvas id of the token owner.
	UserID string `json:"userId"`

	// Fingerprint is a keyed hash of the credential, used only to count
	// sessions opened with the same token.
	Fingerprint string `json:"-"`

	// Pinned sessions back single-tenant mode and never expire.
	Pinned bool `json:"pinned,omitempty"`

	// ClientIP is the source address that authenticated.
	ClientIP string `json:"-"`

	CreatedAt  time.Time `json:"createdAt"`
	LastUsedAt time.Time `json:"lastUsedAt"`
}

// IsIdle reports whether the session has been unused for longer than
// timeout at now.  Pinned sessions are never idle.
func (s *Session) IsIdle(now time.Time, timeout time.Duration) bool {
	if s.Pinned {
		return false
	}
	return now.Sub(s.LastUsedAt) > timeout
}

// ExpiresIn returns the time left before the session becomes idle.  It
// returns 0 for pinned sessions, which do not expire.
func (s *Session) ExpiresIn(now time.Time, timeout time.Duration) time.Duration {
	if s.Pinned {
		return 0
	}
	left := s.LastUsedAt.Add(timeout).Sub(now)
	if left < 0 {
		return 0
	}
	return left
}

// Clone returns a deep copy of s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.Credential = s.Credential.Clone()
	return &c
}

// Wipe zeroes the credential material held by s.
func (s *Session) Wipe() {
	s.Credential.Wipe()
	s.Credential = nil
	s.Fingerprint = ""
}
