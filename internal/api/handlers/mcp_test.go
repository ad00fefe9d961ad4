package handlers_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/handlers"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/mocks"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
	"github.com/unifiedui/canvas-gateway/internal/testutils"
)

// rpcResponse is a JSON-RPC 2.0 response with a raw result.
type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// toolCallResult is the result of tools/call.
type toolCallResult struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	IsError bool `json:"isError"`
}

// toolsListResult is the result of tools/list.
type toolsListResult struct {
	Tools []struct {
		Name        string `json:"name"`
		Description string `json:"description"`
		InputSchema struct {
			Type       string                    `json:"type"`
			Properties map[string]map[string]any `json:"properties"`
			Required   []string                  `json:"required"`
		} `json:"inputSchema"`
	} `json:"tools"`
}

var mcpHeaders = map[string]string{"Accept": "application/json, text/event-stream"}

func setupMCPRouter(gw *mocks.MockGateway) *gin.Engine {
	handler := handlers.NewMCPHandler(gw, "1.0.0")

	router := testutils.SetupTestRouter()
	router.Use(middleware.NewSessionMiddleware().Extract())
	router.POST("/mcp", gin.WrapH(handler.Handler()))
	return router
}

func withHeaders(extra map[string]string) map[string]string {
	h := make(map[string]string, len(mcpHeaders)+len(extra))
	for k, v := range mcpHeaders {
		h[k] = v
	}
	for k, v := range extra {
		h[k] = v
	}
	return h
}

func callMCP(t *testing.T, router *gin.Engine, body string, headers map[string]string) rpcResponse {
	t.Helper()

	w := testutils.PerformRawRequest(router, "POST", "/mcp", []byte(body), withHeaders(headers))
	testutils.AssertStatusCode(t, http.StatusOK, w)

	var resp rpcResponse
	testutils.ParseJSONResponse(t, w, &resp)
	assert.Equal(t, "2.0", resp.JSONRPC)
	return resp
}

func toolCall(t *testing.T, resp rpcResponse) toolCallResult {
	t.Helper()

	require.Nil(t, resp.Error)
	var result toolCallResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	require.Len(t, result.Content, 1)
	assert.Equal(t, "text", result.Content[0].Type)
	return result
}

func TestMCPHandler_Initialize(t *testing.T) {
	router := setupMCPRouter(&mocks.MockGateway{})

	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{
		"protocolVersion":"2025-03-26","capabilities":{},"clientInfo":{"name":"test","version":"1"}}}`, nil)

	require.Nil(t, resp.Error)
	assert.JSONEq(t, "1", string(resp.ID))

	var result struct {
		Capabilities map[string]any `json:"capabilities"`
		ServerInfo   struct {
			Name    string `json:"name"`
			Version string `json:"version"`
		} `json:"serverInfo"`
		Instructions string `json:"instructions"`
	}
	require.NoError(t, json.Unmarshal(resp.Result, &result))
	assert.Equal(t, handlers.MCPServerName, result.ServerInfo.Name)
	assert.Equal(t, "1.0.0", result.ServerInfo.Version)
	assert.Contains(t, result.Capabilities, "tools")
	assert.Contains(t, result.Instructions, handlers.ToolAuthenticate)
}

func TestMCPHandler_ToolsList(t *testing.T) {
	router := setupMCPRouter(&mocks.MockGateway{})

	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":"a","method":"tools/list"}`, nil)

	require.Nil(t, resp.Error)
	var result toolsListResult
	require.NoError(t, json.Unmarshal(resp.Result, &result))

	byName := make(map[string]int)
	for i, tool := range result.Tools {
		byName[tool.Name] = i
	}

	assert.Len(t, result.Tools, len(canvas.Operations())+3)
	assert.Contains(t, byName, handlers.ToolAuthenticate)
	assert.Contains(t, byName, gateway.OpLogout)
	assert.Contains(t, byName, gateway.OpGetSessionInfo)

	require.Contains(t, byName, canvas.OpGetGrades)
	grades := result.Tools[byName[canvas.OpGetGrades]].InputSchema
	assert.Equal(t, []string{"course_id"}, grades.Required)
	assert.Equal(t, "^[0-9]{1,20}$", grades.Properties["course_id"]["pattern"])
	assert.Contains(t, grades.Properties, "session_id")

	require.Contains(t, byName, canvas.OpListCourses)
	perPage := result.Tools[byName[canvas.OpListCourses]].InputSchema.Properties["per_page"]
	assert.Equal(t, "number", perPage["type"])
	assert.Equal(t, float64(100), perPage["maximum"])
	assert.Equal(t, "boolean", result.Tools[byName[canvas.OpListCourses]].InputSchema.Properties["include_concluded"]["type"])
}

func TestMCPHandler_CallAuthenticate(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("Authenticate", mock.Anything, mock.MatchedBy(func(req *gateway.AuthenticateRequest) bool {
		return req.Token == testutils.TestToken && req.BaseURL == testutils.TestCanvasURL && req.ClientIP != ""
	})).Return(testutils.NewTestAuthResult(), nil)

	router := setupMCPRouter(gw)

	// Execute
	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":2,"method":"tools/call","params":{
		"name":"authenticate_canvas",
		"arguments":{"api_token":"tok_abc123","api_url":"https://school.instructure.com"}}}`, nil)

	// Assert
	result := toolCall(t, resp)
	assert.False(t, result.IsError)

	var auth dto.AuthenticateResponse
	require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &auth))
	assert.Equal(t, testutils.TestSessionID, auth.SessionID)
	gw.AssertExpectations(t)
}

func TestMCPHandler_CallOperation(t *testing.T) {
	// Setup
	gw := &mocks.MockGateway{}
	gw.On("Invoke", mock.Anything, "sess-1", canvas.OpListCourses,
		map[string]string{"include_concluded": "true", "per_page": "10"}).
		Return(testutils.NewTestCoursesResult(), nil)

	router := setupMCPRouter(gw)

	// Execute
	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{
		"name":"list_courses",
		"arguments":{"session_id":"sess-1","include_concluded":true,"per_page":10}}}`, nil)

	// Assert
	result := toolCall(t, resp)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "COURSE_101")
	gw.AssertExpectations(t)
}

func TestMCPHandler_CallUsesHeaderSession(t *testing.T) {
	gw := &mocks.MockGateway{}
	gw.On("SessionInfo", mock.Anything, "from-header").Return(testutils.NewTestSessionInfo(), nil)

	router := setupMCPRouter(gw)

	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":4,"method":"tools/call","params":{"name":"get_session_info"}}`,
		testutils.SessionHeader("from-header"))

	result := toolCall(t, resp)
	assert.False(t, result.IsError)
	gw.AssertExpectations(t)
}

func TestMCPHandler_BareTransportReadsHeaders(t *testing.T) {
	// Setup: no gin session middleware in front of the transport
	gw := &mocks.MockGateway{}
	gw.On("Logout", mock.Anything, "bare-session").Return(nil)
	handler := handlers.NewMCPHandler(gw, "1.0.0")

	req := httptest.NewRequest(http.MethodPost, "/mcp", strings.NewReader(
		`{"jsonrpc":"2.0","id":8,"method":"tools/call","params":{"name":"logout"}}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", mcpHeaders["Accept"])
	req.Header.Set(middleware.SessionHeader, "bare-session")
	w := httptest.NewRecorder()

	// Execute
	handler.Handler().ServeHTTP(w, req)

	// Assert
	testutils.AssertStatusCode(t, http.StatusOK, w)
	var resp rpcResponse
	testutils.ParseJSONResponse(t, w, &resp)
	result := toolCall(t, resp)
	assert.False(t, result.IsError)
	assert.Contains(t, result.Content[0].Text, "logged_out")
	gw.AssertExpectations(t)
}

func TestMCPHandler_CallErrors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		setup    func(gw *mocks.MockGateway)
		wantCode string
	}{
		{
			name:     "object argument",
			body:     `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"get_grades","arguments":{"course_id":{"$gt":1}}}}`,
			wantCode: domainerrors.ErrCodeInvalidInput,
		},
		{
			name:     "fractional page size",
			body:     `{"jsonrpc":"2.0","id":6,"method":"tools/call","params":{"name":"list_courses","arguments":{"per_page":2.5}}}`,
			wantCode: domainerrors.ErrCodeInvalidInput,
		},
		{
			name: "session expired",
			body: `{"jsonrpc":"2.0","id":7,"method":"tools/call","params":{"name":"get_grades","arguments":{"session_id":"s","course_id":"1"}}}`,
			setup: func(gw *mocks.MockGateway) {
				gw.On("Invoke", mock.Anything, "s", canvas.OpGetGrades, map[string]string{"course_id": "1"}).
					Return(nil, domainerrors.NewSessionExpiredError())
			},
			wantCode: domainerrors.ErrCodeSessionExpired,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &mocks.MockGateway{}
			if tt.setup != nil {
				tt.setup(gw)
			}
			router := setupMCPRouter(gw)

			result := toolCall(t, callMCP(t, router, tt.body, nil))

			assert.True(t, result.IsError)
			var body dto.ErrorResponse
			require.NoError(t, json.Unmarshal([]byte(result.Content[0].Text), &body))
			assert.Equal(t, tt.wantCode, body.Code)
			gw.AssertExpectations(t)
		})
	}
}

func TestMCPHandler_UnknownTool(t *testing.T) {
	gw := &mocks.MockGateway{}
	router := setupMCPRouter(gw)

	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":5,"method":"tools/call","params":{"name":"drop_tables"}}`, nil)

	assert.NotNil(t, resp.Error)
	gw.AssertNotCalled(t, "Invoke", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestMCPHandler_Notification(t *testing.T) {
	router := setupMCPRouter(&mocks.MockGateway{})

	w := testutils.PerformRawRequest(router, "POST", "/mcp",
		[]byte(`{"jsonrpc":"2.0","method":"notifications/initialized"}`), mcpHeaders)

	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestMCPHandler_Ping(t *testing.T) {
	router := setupMCPRouter(&mocks.MockGateway{})

	resp := callMCP(t, router, `{"jsonrpc":"2.0","id":9,"method":"ping"}`, nil)

	assert.Nil(t, resp.Error)
	assert.JSONEq(t, "{}", string(resp.Result))
}
