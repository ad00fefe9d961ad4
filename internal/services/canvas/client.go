// Package canvas forwards validated read operations to the Canvas LMS REST
// API.
package canvas

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/pkg/redact"
)

const (
	// DefaultTimeout bounds every Canvas call.
	DefaultTimeout = 30 * time.Second

	// DefaultMaxResponseBytes caps the size of a Canvas response body.
	DefaultMaxResponseBytes = 10 << 20

	// maxErrorBody is the longest upstream error body passed to callers.
	maxErrorBody = 1024

	userAgent = "canvas-gateway/1.0"
)

// Response is a decoded Canvas response.
type Response struct {
	Status     int
	Body       any
	Pagination *Pagination
}

// Client calls the Canvas API on behalf of one credential.
type Client interface {
	// Do sends req to the API rooted at baseURL, authenticated with token.
	// The caller owns token and may wipe it once Do returns.
	Do(ctx context.Context, baseURL string, token []byte, req *Request) (*Response, error)
}

// ClientConfig holds the configuration for the Canvas client.
type ClientConfig struct {
	// HTTPClient overrides the transport.  Certificate verification must
	// stay enabled on it.
	HTTPClient *http.Client

	Timeout          time.Duration
	MaxResponseBytes int64
}

// client implements the Client interface.
type client struct {
	httpClient       *http.Client
	timeout          time.Duration
	maxResponseBytes int64
}

// NewClient creates a new Canvas API client.
func NewClient(cfg *ClientConfig) (Client, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	maxResponseBytes := cfg.MaxResponseBytes
	if maxResponseBytes == 0 {
		maxResponseBytes = DefaultMaxResponseBytes
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: timeout,
		}
	}

	return &client{
		httpClient:       httpClient,
		timeout:          timeout,
		maxResponseBytes: maxResponseBytes,
	}, nil
}

// Do implements Client.
func (c *client) Do(ctx context.Context, baseURL string, token []byte, req *Request) (*Response, error) {
	target, err := resolve(baseURL, req)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, domainerrors.NewInternalError("failed to create request", err)
	}

	c.setHeaders(httpReq, token)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if isTimeout(err) {
			return nil, domainerrors.NewUpstreamTimeoutError(req.Operation, err)
		}
		return nil, domainerrors.NewUpstreamUnavailableError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxResponseBytes+1))
	if err != nil {
		if isTimeout(err) {
			return nil, domainerrors.NewUpstreamTimeoutError(req.Operation, err)
		}
		return nil, domainerrors.NewUpstreamUnavailableError(err)
	}

	log.Debug().
		Str("operation", req.Operation).
		Int("status", resp.StatusCode).
		Dur("latency", time.Since(start)).
		Msg("canvas request completed")

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, domainerrors.NewUpstreamAuthError(resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, domainerrors.NewUpstreamError(resp.StatusCode, errorBody(body, token))
	case int64(len(body)) > c.maxResponseBytes:
		return nil, domainerrors.NewUpstreamError(resp.StatusCode, "response too large")
	}

	decoded, err := decode(body)
	if err != nil {
		return nil, domainerrors.NewUpstreamError(resp.StatusCode, "response is not valid JSON")
	}

	return &Response{
		Status:     resp.StatusCode,
		Body:       decoded,
		Pagination: ParseLinkHeader(resp.Header.Get("Link")),
	}, nil
}

// setHeaders sets the required headers for Canvas API requests.
func (c *client) setHeaders(req *http.Request, token []byte) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "Bearer "+string(token))
}

// resolve joins req onto baseURL and makes sure the result stays under the
// API root.
func resolve(baseURL string, req *Request) (string, error) {
	if req == nil {
		return "", domainerrors.NewInvalidInputError("request is required", "")
	}

	root, err := url.Parse(baseURL)
	if err != nil || root.Scheme != "https" || root.Host == "" {
		return "", domainerrors.NewInvalidInputError("invalid canvas url", "")
	}

	if !strings.HasPrefix(req.Path, "/") || strings.Contains(req.Path, "..") {
		return "", domainerrors.NewInvalidInputError("invalid endpoint", "")
	}

	rootPath := strings.TrimRight(root.Path, "/")
	full := rootPath + req.Path

	if path.Clean(full) != full || !strings.HasPrefix(full, rootPath+"/") {
		return "", domainerrors.NewInvalidInputError("invalid endpoint", "")
	}

	u := url.URL{
		Scheme:   root.Scheme,
		Host:     root.Host,
		Path:     full,
		RawQuery: req.Query.Encode(),
	}

	return u.String(), nil
}

// decode parses a JSON body keeping numbers exact.  An empty body decodes
// to nil.
func decode(body []byte) (any, error) {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

// errorBody prepares an upstream error body for the caller.
func errorBody(body, token []byte) string {
	s := redact.Secret(string(body), string(token))
	if len(s) > maxErrorBody {
		n := maxErrorBody
		for n > 0 && !utf8.RuneStart(s[n]) {
			n--
		}
		s = s[:n]
	}
	return strings.TrimSpace(strings.ToValidUTF8(s, ""))
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
