// Package session provides the session store: creation, lookup with lazy
// expiry, touch, destroy and the periodic idle sweep.
package session

import (
	"context"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/domain/models"
	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
)

const (
	// DefaultIdleTimeout is the default inactivity period after which a
	// session expires.
	DefaultIdleTimeout = 24 * time.Hour

	// DefaultSweepInterval is the default period of the background sweep.
	DefaultSweepInterval = 30 * time.Minute

	// DefaultMaxPerCredential is the default number of concurrent sessions
	// one Canvas token may hold.
	DefaultMaxPerCredential = 5

	// apiPath is the Canvas REST API root every base URL is normalized to.
	apiPath = "/api/v1"
)

// CreateRequest carries the inputs of Create.
type CreateRequest struct {
	Token       string
	BaseURL     string
	Institution string
	UserID      string
	ClientIP    string
	Pinned      bool
}

// Service is the session store.
type Service interface {
	// Create encrypts the token and stores a new session.
	Create(ctx context.Context, req *CreateRequest) (*models.Session, error)

	// Get returns the session or a SESSION_NOT_FOUND / SESSION_EXPIRED
	// domain error.  An idle session is deleted on lookup.
	Get(ctx context.Context, id string) (*models.Session, error)

	// Touch records activity on the session.
	Touch(ctx context.Context, id string) error

	// Destroy wipes and removes the session.  It is idempotent.
	Destroy(ctx context.Context, id string) error

	// Sweep removes every idle session and returns how many were removed.
	Sweep(ctx context.Context) (int, error)

	// Run sweeps periodically until ctx is cancelled.
	Run(ctx context.Context)

	// IdleTimeout returns the configured idle timeout.
	IdleTimeout() time.Duration
}

// service implements the Service interface.
type service struct {
	repository       Repository
	encryptor        encryption.Encryptor
	clock            clock.Clock
	fingerprintKey   []byte
	idleTimeout      time.Duration
	sweepInterval    time.Duration
	maxPerCredential int

	// createMu serializes Create so the per-credential cap holds.
	createMu sync.Mutex
}

// Config holds the configuration for the session service.
type Config struct {
	Repository       Repository
	Encryptor        encryption.Encryptor
	Clock            clock.Clock
	IdleTimeout      time.Duration
	SweepInterval    time.Duration
	MaxPerCredential int
}

// NewService creates a new session service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Repository == nil {
		return nil, fmt.Errorf("repository is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	c := cfg.Clock
	if c == nil {
		c = clock.System{}
	}

	idleTimeout := cfg.IdleTimeout
	if idleTimeout == 0 {
		idleTimeout = DefaultIdleTimeout
	}

	sweepInterval := cfg.SweepInterval
	if sweepInterval == 0 {
		sweepInterval = DefaultSweepInterval
	}

	maxPerCredential := cfg.MaxPerCredential
	if maxPerCredential == 0 {
		maxPerCredential = DefaultMaxPerCredential
	}

	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("failed to generate fingerprint key: %w", err)
	}

	return &service{
		repository:       cfg.Repository,
		encryptor:        cfg.Encryptor,
		clock:            c,
		fingerprintKey:   key,
		idleTimeout:      idleTimeout,
		sweepInterval:    sweepInterval,
		maxPerCredential: maxPerCredential,
	}, nil
}

// Create implements Service.
func (s *service) Create(ctx context.Context, req *CreateRequest) (*models.Session, error) {
	if req == nil || req.Token == "" {
		return nil, domainerrors.NewInvalidInputError("api token is required", "")
	}

	baseURL, err := NormalizeBaseURL(req.BaseURL)
	if err != nil {
		return nil, err
	}

	ciphertext, err := s.encryptor.Encrypt([]byte(req.Token))
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to secure credentials", err)
	}

	id, err := GenerateID()
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to create session", err)
	}

	now := s.clock.Now()
	sess := &models.Session{
		ID:          id,
		Credential:  ciphertext,
		BaseURL:     baseURL,
		Institution: req.Institution,
		UserID:      req.UserID,
		Fingerprint: s.fingerprint(req.Token, baseURL),
		Pinned:      req.Pinned,
		ClientIP:    req.ClientIP,
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	s.createMu.Lock()
	defer s.createMu.Unlock()

	if err := s.enforceCap(ctx, sess.Fingerprint); err != nil {
		return nil, err
	}

	if err := s.repository.Insert(ctx, sess); err != nil {
		return nil, domainerrors.NewInternalError("failed to store session", err)
	}

	log.Debug().
		Str("session", ShortID(id)).
		Str("institution", req.Institution).
		Bool("pinned", req.Pinned).
		Msg("session created")

	return sess, nil
}

// enforceCap evicts the oldest sessions of fingerprint so that one more fits
// under the per-credential limit.  createMu must be held.
func (s *service) enforceCap(ctx context.Context, fingerprint string) error {
	all, err := s.repository.List(ctx)
	if err != nil {
		return domainerrors.NewInternalError("failed to list sessions", err)
	}

	var same []*models.Session
	for _, existing := range all {
		if existing.Fingerprint == fingerprint && !existing.Pinned {
			same = append(same, existing)
		}
	}

	if len(same) < s.maxPerCredential {
		return nil
	}

	sort.Slice(same, func(i, j int) bool {
		return same[i].CreatedAt.Before(same[j].CreatedAt)
	})

	for _, old := range same[:len(same)-s.maxPerCredential+1] {
		if _, err := s.repository.Delete(ctx, old.ID); err != nil {
			return domainerrors.NewInternalError("failed to evict session", err)
		}
		log.Info().Str("session", ShortID(old.ID)).Msg("session evicted, credential limit reached")
	}

	return nil
}

// Get implements Service.
func (s *service) Get(ctx context.Context, id string) (*models.Session, error) {
	if id == "" {
		return nil, domainerrors.NewSessionNotFoundError()
	}

	sess, err := s.repository.Get(ctx, id)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to load session", err)
	}
	if sess == nil {
		return nil, domainerrors.NewSessionNotFoundError()
	}

	if sess.IsIdle(s.clock.Now(), s.idleTimeout) {
		sess.Wipe()
		if _, err := s.repository.Delete(ctx, id); err != nil {
			return nil, domainerrors.NewInternalError("failed to delete expired session", err)
		}
		log.Debug().Str("session", ShortID(id)).Msg("session expired on lookup")
		return nil, domainerrors.NewSessionExpiredError()
	}

	return sess, nil
}

// Touch implements Service.
func (s *service) Touch(ctx context.Context, id string) error {
	ok, err := s.repository.Touch(ctx, id, s.clock.Now())
	if err != nil {
		return domainerrors.NewInternalError("failed to touch session", err)
	}
	if !ok {
		return domainerrors.NewSessionNotFoundError()
	}
	return nil
}

// Destroy implements Service.
func (s *service) Destroy(ctx context.Context, id string) error {
	if id == "" {
		return nil
	}

	deleted, err := s.repository.Delete(ctx, id)
	if err != nil {
		return domainerrors.NewInternalError("failed to destroy session", err)
	}
	if deleted {
		log.Debug().Str("session", ShortID(id)).Msg("session destroyed")
	}
	return nil
}

// Sweep implements Service.
func (s *service) Sweep(ctx context.Context) (int, error) {
	all, err := s.repository.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to list sessions: %w", err)
	}

	now := s.clock.Now()
	evicted := 0
	for _, sess := range all {
		idle := sess.IsIdle(now, s.idleTimeout)
		sess.Wipe()
		if !idle {
			continue
		}

		deleted, err := s.repository.Delete(ctx, sess.ID)
		if err != nil {
			return evicted, fmt.Errorf("failed to delete session: %w", err)
		}
		if deleted {
			evicted++
		}
	}

	return evicted, nil
}

// Run implements Service.
func (s *service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted, err := s.Sweep(ctx)
			if err != nil {
				log.Error().Err(err).Msg("session sweep failed")
				continue
			}
			if evicted > 0 {
				log.Info().Int("evicted", evicted).Msg("idle sessions swept")
			}
		}
	}
}

// IdleTimeout implements Service.
func (s *service) IdleTimeout() time.Duration {
	return s.idleTimeout
}

// fingerprint returns a keyed hash identifying the credential pair.
func (s *service) fingerprint(token, baseURL string) string {
	mac := hmac.New(sha256.New, s.fingerprintKey)
	mac.Write([]byte(token))
	mac.Write([]byte{0})
	mac.Write([]byte(baseURL))
	return hex.EncodeToString(mac.Sum(nil))
}

// NormalizeBaseURL validates a Canvas URL and returns its API root.  The URL
// must be absolute HTTPS without credentials, query or fragment.  A missing
// /api/v1 suffix is appended.
func NormalizeBaseURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", domainerrors.NewInvalidInputError("api url is required", "")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", domainerrors.NewInvalidInputError("api url is malformed", "")
	}

	switch {
	case u.Scheme != "https":
		return "", domainerrors.NewInvalidInputError("api url must use https", "")
	case u.Host == "" || u.Hostname() == "":
		return "", domainerrors.NewInvalidInputError("api url must include a host", "")
	case u.User != nil:
		return "", domainerrors.NewInvalidInputError("api url must not contain credentials", "")
	case u.RawQuery != "" || u.Fragment != "":
		return "", domainerrors.NewInvalidInputError("api url must not contain a query or fragment", "")
	case strings.Contains(u.Path, ".."):
		return "", domainerrors.NewInvalidInputError("api url path is invalid", "")
	}

	p := strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(p, apiPath) {
		p += apiPath
	}

	return (&url.URL{Scheme: u.Scheme, Host: u.Host, Path: p}).String(), nil
}

// ShortID returns a log-safe prefix of a session id.
func ShortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8] + "..."
}
