package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/unifiedui/canvas-gateway/internal/api/dto"
	"github.com/unifiedui/canvas-gateway/internal/api/middleware"
	domainerrors "github.com/unifiedui/canvas-gateway/internal/domain/errors"
	"github.com/unifiedui/canvas-gateway/internal/services/gateway"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	gateway gateway.Service
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(gw gateway.Service) *AuthHandler {
	return &AuthHandler{
		gateway: gw,
	}
}

// Authenticate handles POST /auth
// @Summary Authenticate
// @Description Verifies a Canvas API token and opens a session. The token is kept encrypted and never returned.
// @Tags Auth
// @Accept json
// @Produce json
// @Param request body dto.AuthenticateRequest true "Canvas credentials"
// @Success 201 {object} dto.AuthenticateResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 401 {object} dto.ErrorResponse
// @Failure 429 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/v1/canvas-gateway/auth [post]
func (h *AuthHandler) Authenticate(c *gin.Context) {
	var req dto.AuthenticateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.HandleError(c, domainerrors.NewInvalidInputError("invalid request body", "api_token and api_url are required"))
		return
	}

	result, err := h.gateway.Authenticate(c.Request.Context(), &gateway.AuthenticateRequest{
		Token:       req.APIToken,
		BaseURL:     req.APIURL,
		Institution: req.InstitutionName,
		ClientIP:    c.ClientIP(),
	})
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.AuthenticateResponse{
		SessionID:        result.SessionID,
		UserID:           result.UserID,
		DisplayName:      result.DisplayName,
		Institution:      result.Institution,
		APIURL:           result.BaseURL,
		ExpiresInSeconds: int64(result.ExpiresIn.Seconds()),
	})
}

// Logout handles DELETE /auth
// @Summary Logout
// @Description Destroys the caller's session. Succeeds for unknown sessions.
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.LogoutResponse
// @Failure 500 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/auth [delete]
func (h *AuthHandler) Logout(c *gin.Context) {
	if err := h.gateway.Logout(c.Request.Context(), middleware.GetSessionID(c)); err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LogoutResponse{Status: "logged_out"})
}

// SessionInfo handles GET /session
// @Summary Session info
// @Description Describes the caller's session
// @Tags Auth
// @Produce json
// @Success 200 {object} dto.SessionResponse
// @Failure 401 {object} dto.ErrorResponse
// @Security SessionAuth
// @Router /api/v1/canvas-gateway/session [get]
func (h *AuthHandler) SessionInfo(c *gin.Context) {
	info, err := h.gateway.SessionInfo(c.Request.Context(), middleware.GetSessionID(c))
	if err != nil {
		middleware.HandleError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionResponse{
		UserID:           info.UserID,
		Institution:      info.Institution,
		APIURL:           info.BaseURL,
		Pinned:           info.Pinned,
		CreatedAt:        info.CreatedAt,
		LastUsedAt:       info.LastUsedAt,
		ExpiresInSeconds: int64(info.ExpiresIn.Seconds()),
	})
}
