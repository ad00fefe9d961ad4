package middleware_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/mocks"
	"github.com/unifiedui/canvas-gateway/internal/pkg/clock"
	"github.com/unifiedui/canvas-gateway/internal/services/ratelimit"
	"github.com/unifiedui/canvas-gateway/internal/testutils"
)

func TestHandleError_RedactsMessageAndDetails(t *testing.T) {
	// Setup
	router := testutils.SetupTestRouter()
	router.GET("/", func(c *gin.Context) {
		middleware.HandleError(c, domainerrors.NewInvalidInputError(
			"bad token abcdefghijklmnopqrstuvwxyz",
			"Authorization: Bearer tok_abc123",
		))
	})

	// Execute
	w := testutils.PerformRequest(router, "GET", "/", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusBadRequest, w)

	var response dto.ErrorResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, "bad token [REDACTED]", response.Message)
	assert.Equal(t, "Authorization: Bearer [REDACTED]", response.Details)
}

func TestHandleError_InternalCauseHidden(t *testing.T) {
	router := testutils.SetupTestRouter()
	router.GET("/", func(c *gin.Context) {
		middleware.HandleError(c, domainerrors.NewInternalError("failed to store session", assert.AnError))
	})

	w := testutils.PerformRequest(router, "GET", "/", nil, nil)

	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
	assert.NotContains(t, w.Body.String(), assert.AnError.Error())
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeInternal)
}

func TestRecovery(t *testing.T) {
	router := testutils.SetupTestRouter()
	router.Use(middleware.NewErrorMiddleware().Recovery())
	router.GET("/", func(c *gin.Context) {
		panic("boom")
	})

	w := testutils.PerformRequest(router, "GET", "/", nil, nil)

	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
	assert.NotContains(t, w.Body.String(), "boom")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	router := testutils.SetupTestRouter()
	router.HandleMethodNotAllowed = true
	router.NoRoute(middleware.NotFound())
	router.NoMethod(middleware.MethodNotAllowed())
	router.GET("/session", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutils.PerformRequest(router, "GET", "/nope", nil, nil)
	testutils.AssertStatusCode(t, http.StatusNotFound, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeNotFound)

	w = testutils.PerformRequest(router, "PUT", "/session", nil, nil)
	testutils.AssertStatusCode(t, http.StatusMethodNotAllowed, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeMethodNotAllowed)
}

func TestSessionMiddleware_Extract(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    string
	}{
		{name: "bearer", headers: map[string]string{"Authorization": "Bearer abc"}, want: "abc"},
		{name: "lowercase scheme", headers: map[string]string{"Authorization": "bearer abc"}, want: "abc"},
		{name: "session header", headers: map[string]string{middleware.SessionHeader: "xyz"}, want: "xyz"},
		{name: "bearer wins", headers: map[string]string{"Authorization": "Bearer abc", middleware.SessionHeader: "xyz"}, want: "abc"},
		{name: "basic scheme ignored", headers: map[string]string{"Authorization": "Basic Zm9vOmJhcg=="}, want: ""},
		{name: "none", headers: nil, want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				got    string
				caller middleware.Caller
				ok     bool
			)
			router := testutils.SetupTestRouter()
			router.Use(middleware.NewSessionMiddleware().Extract())
			router.GET("/", func(c *gin.Context) {
				got = middleware.GetSessionID(c)
				caller, ok = middleware.CallerFromContext(c.Request.Context())
				c.Status(http.StatusOK)
			})

			testutils.PerformRequest(router, "GET", "/", nil, tt.headers)

			assert.Equal(t, tt.want, got)
			require.True(t, ok)
			assert.Equal(t, tt.want, caller.SessionID)
			assert.Equal(t, tt.want, middleware.SessionIDFromHeader(headerOf(tt.headers)))
		})
	}
}

func headerOf(m map[string]string) http.Header {
	h := http.Header{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

func TestCallerFromRequest(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/mcp", nil)
	req.RemoteAddr = "192.0.2.7:51234"
	req.Header.Set(middleware.SessionHeader, "sess-9")

	caller := middleware.CallerFromRequest(req)

	assert.Equal(t, middleware.Caller{SessionID: "sess-9", ClientIP: "192.0.2.7"}, caller)
}

func TestRequestLogger_AssignsRequestID(t *testing.T) {
	router := testutils.SetupTestRouter()
	logging := middleware.NewLoggingMiddleware()
	router.Use(logging.RequestLogger(), logging.Logger())

	var got string
	router.GET("/", func(c *gin.Context) {
		got = middleware.GetRequestID(c)
		c.Status(http.StatusOK)
	})

	w := testutils.PerformRequest(router, "GET", "/", nil, map[string]string{"X-Request-ID": "not-a-uuid"})

	assert.Len(t, got, 36)
	assert.NotEqual(t, "not-a-uuid", got)
	assert.Equal(t, got, w.Header().Get("X-Request-ID"))

	id := "0b6f1f76-1d54-4a3c-9a59-6f1b0d5c7e21"
	w = testutils.PerformRequest(router, "GET", "/", nil, map[string]string{"X-Request-ID": id})
	assert.Equal(t, id, w.Header().Get("X-Request-ID"))
}

func TestLogger_AccessLine(t *testing.T) {
	// Setup
	var buf bytes.Buffer
	logging := middleware.NewLoggingMiddlewareWithLogger(zerolog.New(&buf))
	router := testutils.SetupTestRouter()
	router.Use(logging.RequestLogger(), logging.Logger(), middleware.NewSessionMiddleware().Extract())
	router.GET("/courses/:course_id", func(c *gin.Context) {
		c.Header(middleware.HeaderRateLimitRemaining, "4")
		c.Status(http.StatusOK)
	})

	// Execute
	w := testutils.PerformRequest(router, "GET", "/courses/101?search_term=bio", nil,
		testutils.SessionHeader(testutils.TestSessionID))

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "/courses/:course_id", line["route"])
	assert.Equal(t, w.Header().Get(middleware.HeaderRequestID), line["request_id"])
	assert.Equal(t, true, line["has_session"])
	assert.Equal(t, "4", line["quota_remaining"])
	assert.NotContains(t, buf.String(), "/courses/101")
	assert.NotContains(t, buf.String(), "bio")
	assert.NotContains(t, buf.String(), testutils.TestSessionID)
}

func TestLogger_UnmatchedRoute(t *testing.T) {
	var buf bytes.Buffer
	logging := middleware.NewLoggingMiddlewareWithLogger(zerolog.New(&buf))
	router := testutils.SetupTestRouter()
	router.Use(logging.RequestLogger(), logging.Logger())

	testutils.PerformRequest(router, "GET", "/users/55", nil, nil)

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "unmatched", line["route"])
	assert.Equal(t, float64(http.StatusNotFound), line["status"])
	assert.Equal(t, false, line["has_session"])
}

func TestRateLimitMiddleware_DeniedIsLogged(t *testing.T) {
	// Setup
	var buf bytes.Buffer
	logging := middleware.NewLoggingMiddlewareWithLogger(zerolog.New(&buf))
	limiter := &mocks.MockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).
		Return(&ratelimit.Decision{Allowed: false, Limit: 1, RetryAfter: 30 * time.Second}, nil)

	router := testutils.SetupTestRouter()
	router.Use(logging.RequestLogger(), logging.Logger(), middleware.NewRateLimitMiddleware(limiter).PerIP())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Execute
	w := testutils.PerformRequest(router, "GET", "/", nil, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusTooManyRequests, w)
	out := buf.String()
	assert.Contains(t, out, "address rate limit exceeded")
	assert.Contains(t, out, `"level":"warn"`)
	assert.Contains(t, out, `"retry_after":"30"`)
}

func TestRateLimitMiddleware_PerIP(t *testing.T) {
	// Setup
	limiter, err := ratelimit.NewMemoryLimiter(ratelimit.Config{Limit: 2, Window: time.Minute},
		clock.NewFake(time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	router := testutils.SetupTestRouter()
	router.Use(middleware.NewRateLimitMiddleware(limiter).PerIP())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Execute & Assert
	for i := 0; i < 2; i++ {
		w := testutils.PerformRequest(router, "GET", "/", nil, nil)
		testutils.AssertStatusCode(t, http.StatusOK, w)
	}

	w := testutils.PerformRequest(router, "GET", "/", nil, nil)
	testutils.AssertStatusCode(t, http.StatusTooManyRequests, w)
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitMiddleware_LimiterFailure(t *testing.T) {
	limiter := &mocks.MockLimiter{}
	limiter.On("Allow", mock.Anything, mock.Anything).Return(nil, assert.AnError)

	router := testutils.SetupTestRouter()
	router.Use(middleware.NewRateLimitMiddleware(limiter).PerIP())
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := testutils.PerformRequest(router, "GET", "/", nil, nil)

	testutils.AssertStatusCode(t, http.StatusInternalServerError, w)
}

func TestCORS(t *testing.T) {
	cfg := middleware.DefaultCORSConfig()
	cfg.AllowOrigins = []string{"https://app.example"}

	router := testutils.SetupTestRouter()
	router.Use(middleware.NewCORSMiddleware(cfg))
	router.GET("/", func(c *gin.Context) { c.Status(http.StatusOK) })

	// Allowed origin preflight
	req := httptest.NewRequest(http.MethodOptions, "/", nil)
	req.Header.Set("Origin", "https://app.example")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), middleware.SessionHeader)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Credentials"))

	// Unknown origin
	w = testutils.PerformRequest(router, "GET", "/", nil, map[string]string{"Origin": "https://evil.example"})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestBodyLimit(t *testing.T) {
	router := testutils.SetupTestRouter()
	router.Use(middleware.BodyLimit(16))
	router.POST("/", func(c *gin.Context) {
		var body map[string]any
		if err := c.ShouldBindJSON(&body); err != nil {
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	w := testutils.PerformRawRequest(router, "POST", "/", []byte(`{"a":"b"}`), nil)
	testutils.AssertStatusCode(t, http.StatusOK, w)

	w = testutils.PerformRawRequest(router, "POST", "/", []byte(`{"a":"0123456789abcdef"}`), nil)
	testutils.AssertStatusCode(t, http.StatusRequestEntityTooLarge, w)
	assert.Contains(t, w.Body.String(), domainerrors.ErrCodeInvalidInput)
}
