// Package gateway implements the operations exposed to callers: session
// management and the forwarding of allow-listed reads to Canvas.
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/domain/models"
	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
	"github.com/unifiedui/canvas-gateway/internal/pkg/encryption"
	"github.com/unifiedui/canvas-gateway/internal/services/anonymize"
	"github.com/unifiedui/canvas-gateway/internal/services/audit"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/credentials"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
	"github.com/unifiedui/canvas-gateway/internal/services/session"
)

// Operation names that are not Canvas reads.
const (
	OpAuthenticate   = "authenticate"
	OpLogout         = "logout"
	OpGetSessionInfo = "get_session_info"
)

// Token length bounds accepted by Authenticate.
const (
	MinTokenLength = 10
	MaxTokenLength = 512
)

// AuthenticateRequest carries the inputs of Authenticate.
type AuthenticateRequest struct {
	Token       string
	BaseURL     string
	Institution string
	ClientIP    string
}

// AuthResult is returned by a successful Authenticate.
type AuthResult struct {
	SessionID   string
	UserID      string
	DisplayName string
	Institution string
	BaseURL     string
	ExpiresIn   time.Duration
}

// SessionInfo describes a live session without exposing its credential.
type SessionInfo struct {
	UserID      string
	Institution string
	BaseURL     string
	Pinned      bool
	CreatedAt   time.Time
	LastUsedAt  time.Time
	ExpiresIn   time.Duration
}

// Result is the anonymized outcome of a forwarded operation.
type Result struct {
	Operation  string
	Data       any
	Pagination *canvas.Pagination
	RateLimit  *ratelimit.Decision
}

// Service is the gateway.
type Service interface {
	// Authenticate verifies the token against Canvas and opens a session.
	Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResult, error)

	// Logout destroys the session.  Unknown ids are not an error.
	Logout(ctx context.Context, sessionID string) error

	// SessionInfo describes the session.
	SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error)

	// Invoke forwards one allow-listed Canvas read.
	Invoke(ctx context.Context, sessionID, operation string, params map[string]string) (*Result, error)

	// PinDefaultSession opens the shared session used by requests that do
	// not carry a session id.
	PinDefaultSession(ctx context.Context, source credentials.Source) error
}

// service implements the Service interface.
type service struct {
	sessions  session.Service
	limiter   ratelimit.Limiter
	canvas    canvas.Client
	encryptor encryption.Encryptor
	recorder  audit.Recorder
	clock     clock.Clock

	mu             sync.RWMutex
	defaultSession string
}

// Config holds the configuration for the gateway service.
type Config struct {
	Sessions  session.Service
	Limiter   ratelimit.Limiter
	Canvas    canvas.Client
	Encryptor encryption.Encryptor

	// Recorder is optional; events are discarded when nil.
	Recorder audit.Recorder

	Clock clock.Clock
}

// NewService creates a new gateway service.
func NewService(cfg *Config) (Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	if cfg.Sessions == nil {
		return nil, fmt.Errorf("session service is required")
	}
	if cfg.Limiter == nil {
		return nil, fmt.Errorf("rate limiter is required")
	}
	if cfg.Canvas == nil {
		return nil, fmt.Errorf("canvas client is required")
	}
	if cfg.Encryptor == nil {
		return nil, fmt.Errorf("encryptor is required")
	}

	recorder := cfg.Recorder
	if recorder == nil {
		recorder = audit.NewNopRecorder()
	}

	c := cfg.Clock
	if c == nil {
		c = clock.System{}
	}

	return &service{
		sessions:  cfg.Sessions,
		limiter:   cfg.Limiter,
		canvas:    cfg.Canvas,
		encryptor: cfg.Encryptor,
		recorder:  recorder,
		clock:     c,
	}, nil
}

// Authenticate implements Service.
func (s *service) Authenticate(ctx context.Context, req *AuthenticateRequest) (*AuthResult, error) {
	return s.authenticate(ctx, req, false)
}

func (s *service) authenticate(ctx context.Context, req *AuthenticateRequest, pinned bool) (result *AuthResult, err error) {
	start := s.clock.Now()
	event := &models.AuditEvent{Operation: OpAuthenticate}
	defer func() {
		if result != nil {
			event.SessionRef = audit.SessionRef(result.SessionID)
		}
		s.record(event, start, err)
	}()

	if req == nil {
		return nil, domainerrors.NewInvalidInputError("request is required", "")
	}
	if err := validateToken(req.Token); err != nil {
		return nil, err
	}

	institution := canvas.SanitizeText(strings.TrimSpace(req.Institution))
	event.Institution = institution

	baseURL, err := session.NormalizeBaseURL(req.BaseURL)
	if err != nil {
		return nil, err
	}

	userID, err := s.verify(ctx, baseURL, req.Token)
	if err != nil {
		return nil, err
	}

	sess, err := s.sessions.Create(ctx, &session.CreateRequest{
		Token:       req.Token,
		BaseURL:     baseURL,
		Institution: institution,
		UserID:      userID,
		ClientIP:    req.ClientIP,
		Pinned:      pinned,
	})
	if err != nil {
		return nil, err
	}
	defer sess.Wipe()

	log.Info().
		Str("session", session.ShortID(sess.ID)).
		Str("institution", institution).
		Msg("canvas session authenticated")

	return &AuthResult{
		SessionID:   sess.ID,
		UserID:      userID,
		DisplayName: anonymize.Name(userID),
		Institution: institution,
		BaseURL:     sess.BaseURL,
		ExpiresIn:   sess.ExpiresIn(s.clock.Now(), s.sessions.IdleTimeout()),
	}, nil
}

// verify checks the token by fetching the caller's profile and returns the
// Canvas user id.
func (s *service) verify(ctx context.Context, baseURL, token string) (string, error) {
	op, _ := canvas.Lookup(canvas.OpGetProfile)
	req, err := op.Build(nil)
	if err != nil {
		return "", err
	}

	tokenBytes := []byte(token)
	defer wipe(tokenBytes)

	resp, err := s.canvas.Do(ctx, baseURL, tokenBytes, req)
	if err != nil {
		return "", err
	}

	profile, ok := resp.Body.(map[string]any)
	if !ok {
		return "", domainerrors.NewUpstreamError(resp.Status, "unexpected profile response")
	}

	switch id := profile["id"].(type) {
	case json.Number:
		return id.String(), nil
	case string:
		return id, nil
	default:
		return "", domainerrors.NewUpstreamError(resp.Status, "profile response has no user id")
	}
}

// Logout implements Service.
func (s *service) Logout(ctx context.Context, sessionID string) (err error) {
	start := s.clock.Now()
	event := &models.AuditEvent{Operation: OpLogout, SessionRef: audit.SessionRef(sessionID)}
	defer func() { s.record(event, start, err) }()

	if sessionID == "" || sessionID == s.pinnedID() {
		return nil
	}

	if err := s.sessions.Destroy(ctx, sessionID); err != nil {
		return err
	}

	if err := s.limiter.Reset(ctx, ratelimit.SessionKey(sessionID)); err != nil {
		log.Warn().Err(err).Str("session", session.ShortID(sessionID)).Msg("failed to reset session rate limit")
	}

	return nil
}

// SessionInfo implements Service.
func (s *service) SessionInfo(ctx context.Context, sessionID string) (*SessionInfo, error) {
	sess, err := s.sessions.Get(ctx, s.resolve(sessionID))
	if err != nil {
		return nil, err
	}
	defer sess.Wipe()

	return &SessionInfo{
		UserID:      sess.UserID,
		Institution: sess.Institution,
		BaseURL:     sess.BaseURL,
		Pinned:      sess.Pinned,
		CreatedAt:   sess.CreatedAt,
		LastUsedAt:  sess.LastUsedAt,
		ExpiresIn:   sess.ExpiresIn(s.clock.Now(), s.sessions.IdleTimeout()),
	}, nil
}

// Invoke implements Service.
func (s *service) Invoke(ctx context.Context, sessionID, operation string, params map[string]string) (result *Result, err error) {
	id := s.resolve(sessionID)

	start := s.clock.Now()
	event := &models.AuditEvent{Operation: canvas.SanitizeText(operation), SessionRef: audit.SessionRef(id)}
	defer func() { s.record(event, start, err) }()

	sess, err := s.sessions.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	defer sess.Wipe()
	event.Institution = sess.Institution

	decision, err := s.limiter.Allow(ctx, ratelimit.SessionKey(id))
	if err != nil {
		return nil, domainerrors.NewInternalError("rate limiter unavailable", err)
	}
	if !decision.Allowed {
		log.Warn().Str("session", session.ShortID(id)).Msg("session rate limit exceeded")
		return nil, domainerrors.NewRateLimitExceededError(ratelimit.RetryAfterSeconds(decision.RetryAfter))
	}

	op, ok := canvas.Lookup(operation)
	if !ok {
		return nil, domainerrors.NewInvalidInputError("unknown operation", event.Operation)
	}

	req, err := op.Build(params)
	if err != nil {
		return nil, err
	}

	token, err := s.encryptor.Decrypt(sess.Credential)
	if err != nil {
		s.destroy(ctx, id, "credential could not be decrypted")
		return nil, domainerrors.NewDecryptionError(err)
	}

	resp, err := s.canvas.Do(ctx, sess.BaseURL, token, req)
	wipe(token)
	if err != nil {
		if domainErr, ok := domainerrors.GetDomainError(err); ok {
			event.UpstreamStatus = domainErr.UpstreamStatus
			if domainErr.Code == domainerrors.ErrCodeUpstreamAuth {
				s.destroy(ctx, id, "canvas rejected the credential")
			}
		}
		return nil, err
	}
	event.UpstreamStatus = resp.Status

	data := anonymize.Value(resp.Body)

	if err := s.sessions.Touch(ctx, id); err != nil {
		log.Warn().Err(err).Str("session", session.ShortID(id)).Msg("failed to touch session")
	}

	return &Result{
		Operation:  op.Name,
		Data:       data,
		Pagination: resp.Pagination,
		RateLimit:  decision,
	}, nil
}

// PinDefaultSession implements Service.
func (s *service) PinDefaultSession(ctx context.Context, source credentials.Source) error {
	if source == nil {
		return fmt.Errorf("credential source is required")
	}

	creds, err := source.Load(ctx)
	if err != nil {
		return err
	}

	result, err := s.authenticate(ctx, &AuthenticateRequest{
		Token:       creds.Token,
		BaseURL:     creds.BaseURL,
		Institution: creds.Institution,
	}, true)
	if err != nil {
		return fmt.Errorf("failed to open default session: %w", err)
	}

	s.mu.Lock()
	previous := s.defaultSession
	s.defaultSession = result.SessionID
	s.mu.Unlock()

	if previous != "" {
		s.destroy(ctx, previous, "default session replaced")
	}

	return nil
}

// resolve maps an empty session id to the pinned default session.
func (s *service) resolve(sessionID string) string {
	if sessionID != "" {
		return sessionID
	}
	return s.pinnedID()
}

func (s *service) pinnedID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.defaultSession
}

// destroy removes a session that can no longer be used.
func (s *service) destroy(ctx context.Context, id, reason string) {
	if err := s.sessions.Destroy(ctx, id); err != nil {
		log.Error().Err(err).Str("session", session.ShortID(id)).Msg("failed to destroy session")
		return
	}
	log.Warn().Str("session", session.ShortID(id)).Str("reason", reason).Msg("session destroyed")
}

// record finishes and queues an audit event.
func (s *service) record(event *models.AuditEvent, start time.Time, err error) {
	event.Outcome = models.AuditOutcomeSuccess
	if err != nil {
		event.Outcome = domainerrors.ErrCodeInternal
		if domainErr, ok := domainerrors.GetDomainError(err); ok {
			event.Outcome = domainErr.Code
		}
	}
	event.DurationMs = s.clock.Now().Sub(start).Milliseconds()
	event.CreatedAt = start

	s.recorder.Record(event)
}

// validateToken checks the shape of a Canvas API token.
func validateToken(token string) error {
	if token == "" {
		return domainerrors.NewInvalidInputError("api token is required", "")
	}
	if len(token) < MinTokenLength || len(token) > MaxTokenLength {
		return domainerrors.NewInvalidInputError(
			"api token has an invalid length",
			fmt.Sprintf("expected %d to %d characters", MinTokenLength, MaxTokenLength),
		)
	}
	if strings.IndexFunc(token, unicode.IsSpace) >= 0 {
		return domainerrors.NewInvalidInputError("api token must not contain whitespace", "")
	}
	return nil
}

// wipe zeroes b.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
