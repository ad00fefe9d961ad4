package handlers_test

import (
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/handlers"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/mocks"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
	"github.com/unifiedui/canvas-gateway/internal/testutils"
)

func setupAuthRouter(gw *mocks.MockGateway) *gin.Engine {
	handler := handlers.NewAuthHandler(gw)

	router := testutils.SetupTestRouter()
	router.Use(middleware.NewSessionMiddleware().Extract())
	router.POST("/auth", handler.Authenticate)
	router.DELETE("/auth", handler.Logout)
	router.GET("/session", handler.SessionInfo)
	return router
}

func TestAuthHandler_Authenticate_Success(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("Authenticate", mock.Anything, mock.MatchedBy(func(req *gateway.AuthenticateRequest) bool {
		return req.Token == testutils.TestToken &&
			req.BaseURL == testutils.TestCanvasURL &&
			req.Institution == testutils.TestInstitution &&
			req.ClientIP != ""
	})).Return(testutils.NewTestAuthResult(), nil)

	router := setupAuthRouter(gw)

	// Execute
	w := testutils.PerformRequest(router, "POST", "/auth", dto.AuthenticateRequest{
		APIToken:        testutils.TestToken,
		APIURL:          testutils.TestCanvasURL,
		InstitutionName: testutils.TestInstitution,
	}, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusCreated, w)

	var response dto.AuthenticateResponse
	testutils.ParseJSONResponse(t, w, &response)

	assert.Equal(t, testutils.TestSessionID, response.SessionID)
	assert.Equal(t, "User_42", response.DisplayName)
	assert.Equal(t, int64(86400), response.ExpiresInSeconds)
	assert.NotContains(t, w.Body.String(), testutils.TestToken)

	gw.AssertExpectations(t)
}

func TestAuthHandler_Authenticate_MissingFields(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	router := setupAuthRouter(gw)

	// Execute
	w := testutils.PerformRequest(router, "POST", "/auth", map[string]string{"api_url": testutils.TestCanvasURL}, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusBadRequest, w)

	var response dto.ErrorResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeInvalidInput, response.Code)

	gw.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuthHandler_Authenticate_RejectedByCanvas(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("Authenticate", mock.Anything, mock.Anything).Return(nil, domainerrors.NewUpstreamAuthError(http.StatusUnauthorized))

	router := setupAuthRouter(gw)

	// Execute
	w := testutils.PerformRequest(router, "POST", "/auth", dto.AuthenticateRequest{
		APIToken: testutils.TestToken,
		APIURL:   testutils.TestCanvasURL,
	}, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusUnauthorized, w)

	var response dto.ErrorResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeUpstreamAuth, response.Code)
	assert.Equal(t, http.StatusUnauthorized, response.UpstreamStatus)
}

func TestAuthHandler_Authenticate_BodyTooLarge(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	handler := handlers.NewAuthHandler(gw)

	router := testutils.SetupTestRouter()
	router.Use(middleware.BodyLimit(64))
	router.POST("/auth", handler.Authenticate)

	// Execute
	w := testutils.PerformRequest(router, "POST", "/auth", dto.AuthenticateRequest{
		APIToken: strings.Repeat("a", 200),
		APIURL:   testutils.TestCanvasURL,
	}, nil)

	// Assert
	testutils.AssertStatusCode(t, http.StatusRequestEntityTooLarge, w)
	gw.AssertNotCalled(t, "Authenticate", mock.Anything, mock.Anything)
}

func TestAuthHandler_Logout(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		wantID  string
	}{
		{name: "bearer header", headers: testutils.SessionHeader(testutils.TestSessionID), wantID: testutils.TestSessionID},
		{name: "session header", headers: map[string]string{middleware.SessionHeader: "abc"}, wantID: "abc"},
		{name: "no session", headers: nil, wantID: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			// Setup
			gw := &mocks.MockGateway{}
			gw.On("Logout", mock.Anything, tt.wantID).Return(nil)

			router := setupAuthRouter(gw)

			// Execute
			w := testutils.PerformRequest(router, "DELETE", "/auth", nil, tt.headers)

			// Assert
			testutils.AssertStatusCode(t, http.StatusOK, w)
			assert.Contains(t, w.Body.String(), "logged_out")
			gw.AssertExpectations(t)
		})
	}
}

func TestAuthHandler_SessionInfo(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("SessionInfo", mock.Anything, testutils.TestSessionID).Return(testutils.NewTestSessionInfo(), nil)

	router := setupAuthRouter(gw)

	// Execute
	w := testutils.PerformRequest(router, "GET", "/session", nil, testutils.SessionHeader(testutils.TestSessionID))

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)

	var response dto.SessionResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, testutils.TestUserID, response.UserID)
	assert.Equal(t, testutils.TestAPIURL, response.APIURL)
	assert.Equal(t, testutils.TestTime, response.CreatedAt)
}

func TestAuthHandler_SessionInfo_Expired(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("SessionInfo", mock.Anything, "old").Return(nil, domainerrors.NewSessionExpiredError())

	router := setupAuthRouter(gw)

	// Execute
	w := testutils.PerformRequest(router, "GET", "/session", nil, testutils.SessionHeader("old"))

	// Assert
	testutils.AssertStatusCode(t, http.StatusUnauthorized, w)

	var response dto.ErrorResponse
	testutils.ParseJSONResponse(t, w, &response)
	assert.Equal(t, domainerrors.ErrCodeSessionExpired, response.Code)
}
