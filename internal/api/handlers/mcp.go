package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/services/canvas"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
)

const (
	// MCPServerName is reported to MCP clients on initialize.
	MCPServerName = "canvas-gateway"

	// ToolAuthenticate is the tool name of the authenticate operation.
	ToolAuthenticate = "authenticate_canvas"

	argSessionID   = "session_id"
	argAPIToken    = "api_token"
	argAPIURL      = "api_url"
	argInstitution = "institution_name"
)

const mcpInstructions = "Call " + ToolAuthenticate + " first and pass the returned sessionId as session_id to every other tool."

// MCPHandler serves the gateway operations as MCP tools over the streamable
// HTTP transport.
type MCPHandler struct {
	gateway   gateway.Service
	server    *server.MCPServer
	transport *server.StreamableHTTPServer
}

// NewMCPHandler creates a new MCPHandler with every tool registered.
func NewMCPHandler(gw gateway.Service, version string) *MCPHandler {
	h := &MCPHandler{gateway: gw}

	h.server = server.NewMCPServer(MCPServerName, version,
		server.WithToolCapabilities(false),
		server.WithRecovery(),
		server.WithInstructions(mcpInstructions),
	)
	h.registerTools()

	h.transport = server.NewStreamableHTTPServer(h.server,
		server.WithStateLess(true),
		server.WithHTTPContextFunc(callerContext),
	)

	return h
}

// Handler returns the transport for mounting on a route.
// @Summary MCP endpoint
// @Description MCP streamable HTTP endpoint (JSON-RPC 2.0: initialize, ping, tools/list, tools/call)
// @Tags MCP
// @Accept json
// @Produce json
// @Success 200 {object} object
// @Success 202 "Notification accepted"
// @Router /api/v1/canvas-gateway/mcp [post]
func (h *MCPHandler) Handler() http.Handler {
	return h.transport
}

// callerContext fills in the caller from the raw request when the session
// middleware has not run.
func callerContext(ctx context.Context, r *http.Request) context.Context {
	if _, ok := middleware.CallerFromContext(ctx); ok {
		return ctx
	}
	return middleware.ContextWithCaller(ctx, middleware.CallerFromRequest(r))
}

func (h *MCPHandler) registerTools() {
	session := mcp.WithString(argSessionID, mcp.Description("Session id returned by "+ToolAuthenticate))

	h.server.AddTool(mcp.NewTool(ToolAuthenticate,
		mcp.WithDescription("Authenticate with your Canvas API token and open a session"),
		mcp.WithString(argAPIToken, mcp.Required(), mcp.Description("Canvas API access token")),
		mcp.WithString(argAPIURL, mcp.Required(), mcp.Description("Canvas base URL, e.g. https://school.instructure.com")),
		mcp.WithString(argInstitution, mcp.Description("Institution name")),
	), h.authenticate)

	h.server.AddTool(mcp.NewTool(gateway.OpGetSessionInfo,
		mcp.WithDescription("Describe the current session"),
		session,
	), h.sessionInfo)

	h.server.AddTool(mcp.NewTool(gateway.OpLogout,
		mcp.WithDescription("End the session and discard the stored credential"),
		session,
	), h.logout)

	for _, op := range canvas.Operations() {
		opts := []mcp.ToolOption{mcp.WithDescription(op.Description), session}
		for _, p := range op.AllParams() {
			opts = append(opts, paramOption(p))
		}
		h.server.AddTool(mcp.NewTool(op.Name, opts...), h.invoke(op.Name))
	}
}

// paramOption maps an operation parameter onto its tool argument schema.
func paramOption(p canvas.Param) mcp.ToolOption {
	props := []mcp.PropertyOption{mcp.Description(p.Description)}
	if p.Required {
		props = append(props, mcp.Required())
	}

	switch p.Kind {
	case canvas.KindBool:
		return mcp.WithBoolean(p.Name, props...)
	case canvas.KindPerPage:
		props = append(props, mcp.Min(1), mcp.Max(float64(canvas.MaxPerPage)))
		return mcp.WithNumber(p.Name, props...)
	case canvas.KindID:
		props = append(props, mcp.Pattern(fmt.Sprintf("^[0-9]{1,%d}$", canvas.MaxIDLength)))
	}

	return mcp.WithString(p.Name, props...)
}

func (h *MCPHandler) authenticate(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, caller, err := toolArgs(ctx, req)
	if err != nil {
		return toolError(err), nil
	}

	result, err := h.gateway.Authenticate(ctx, &gateway.AuthenticateRequest{
		Token:       args[argAPIToken],
		BaseURL:     args[argAPIURL],
		Institution: args[argInstitution],
		ClientIP:    caller.ClientIP,
	})
	if err != nil {
		return toolError(err), nil
	}

	return toolResult(dto.AuthenticateResponse{
		SessionID:        result.SessionID,
		UserID:           result.UserID,
		DisplayName:      result.DisplayName,
		Institution:      result.Institution,
		APIURL:           result.BaseURL,
		ExpiresInSeconds: int64(result.ExpiresIn.Seconds()),
	}), nil
}

func (h *MCPHandler) sessionInfo(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, caller, err := toolArgs(ctx, req)
	if err != nil {
		return toolError(err), nil
	}

	info, err := h.gateway.SessionInfo(ctx, caller.SessionID)
	if err != nil {
		return toolError(err), nil
	}

	return toolResult(dto.SessionResponse{
		UserID:           info.UserID,
		Institution:      info.Institution,
		APIURL:           info.BaseURL,
		Pinned:           info.Pinned,
		CreatedAt:        info.CreatedAt,
		LastUsedAt:       info.LastUsedAt,
		ExpiresInSeconds: int64(info.ExpiresIn.Seconds()),
	}), nil
}

func (h *MCPHandler) logout(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	_, caller, err := toolArgs(ctx, req)
	if err != nil {
		return toolError(err), nil
	}

	if err := h.gateway.Logout(ctx, caller.SessionID); err != nil {
		return toolError(err), nil
	}
	return toolResult(dto.LogoutResponse{Status: "logged_out"}), nil
}

// invoke returns the tool handler of a Canvas operation.
func (h *MCPHandler) invoke(operation string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args, caller, err := toolArgs(ctx, req)
		if err != nil {
			return toolError(err), nil
		}

		result, err := h.gateway.Invoke(ctx, caller.SessionID, operation, args)
		if err != nil {
			return toolError(err), nil
		}
		return toolResult(toOperationResponse(result)), nil
	}
}

// toolArgs flattens the call arguments to strings and resolves the caller.
// A session_id argument overrides the session carried by the request.
func toolArgs(ctx context.Context, req mcp.CallToolRequest) (map[string]string, middleware.Caller, error) {
	caller, _ := middleware.CallerFromContext(ctx)

	args, err := stringArgs(req.GetArguments())
	if err != nil {
		return nil, caller, err
	}

	if id := args[argSessionID]; id != "" {
		caller.SessionID = id
	}
	delete(args, argSessionID)

	return args, caller, nil
}

// stringArgs flattens scalar tool arguments to strings.
func stringArgs(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for key, v := range in {
		switch t := v.(type) {
		case nil:
			continue
		case string:
			out[key] = t
		case bool:
			out[key] = strconv.FormatBool(t)
		case json.Number:
			out[key] = t.String()
		case float64:
			if t != math.Trunc(t) || math.IsInf(t, 0) {
				return nil, domainerrors.NewInvalidInputError(
					fmt.Sprintf("argument %s must be an integer", canvas.SanitizeText(key)), "")
			}
			out[key] = strconv.FormatFloat(t, 'f', -1, 64)
		default:
			return nil, domainerrors.NewInvalidInputError(
				fmt.Sprintf("argument %s must be a scalar", canvas.SanitizeText(key)), "")
		}
	}
	return out, nil
}

func toolResult(v any) *mcp.CallToolResult {
	text, err := json.Marshal(v)
	if err != nil {
		return toolError(domainerrors.NewInternalError("failed to encode result", err))
	}
	return mcp.NewToolResultText(string(text))
}

// toolError reports a failure as a tool result carrying the same error body
// as the REST routes.
func toolError(err error) *mcp.CallToolResult {
	_, body := middleware.ErrorResponseFor(err)
	text, _ := json.Marshal(body)
	return mcp.NewToolResultError(string(text))
}
