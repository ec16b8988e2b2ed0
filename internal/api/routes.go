package api

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/satriahrh/rolecall/domain/repositories"
	"github.com/satriahrh/rolecall/internal/auth"
	"github.com/satriahrh/rolecall/internal/websocket"
	"github.com/satriahrh/rolecall/usecase"
)

// maxUploadSize bounds the audio accepted by the voice chat endpoint
const maxUploadSize = 25 << 20

// Dependencies holds what the routes need. A nil Auth disables authentication.
type Dependencies struct {
	Hub   *websocket.Hub
	Roles repositories.RoleRepository
	Chat  *usecase.ChatService
	Auth  *auth.Authenticator
}

type handlers struct {
	Dependencies
	logger *zap.Logger
}

// InitRoutes initializes all API routes
func InitRoutes(e *echo.Echo, deps Dependencies, logger *zap.Logger) {
	h := &handlers{Dependencies: deps, logger: logger}

	// Health check
	e.GET("/health", h.health)

	var guard []echo.MiddlewareFunc
	if deps.Auth != nil {
		guard = append(guard, RequireClient(deps.Auth, logger))
	}

	apiGroup := e.Group("/api", guard...)
	apiGroup.GET("/roles", h.listRoles)
	apiGroup.GET("/roles/:id", h.getRole)
	apiGroup.POST("/chat", h.chat)
	apiGroup.POST("/voice-chat", h.voiceChat)

	// Conversation sessions
	e.GET("/ws", deps.Hub.ServeWS, guard...)
}

// RequireClient rejects requests without a valid client token
func RequireClient(authenticator *auth.Authenticator, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, err := auth.TokenFromRequest(c)
			if err != nil {
				logger.Warn("Request rejected: missing token", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "missing_token",
					Message: "A client token is required",
				})
			}

			claims, err := authenticator.ValidateToken(token)
			if err != nil {
				logger.Warn("Request rejected: invalid token", zap.String("path", c.Path()), zap.Error(err))
				return c.JSON(http.StatusUnauthorized, ErrorResponse{
					Error:   "invalid_token",
					Message: "Invalid or expired token",
				})
			}

			c.Set(websocket.ClientIDKey, claims.ClientID)
			return next(c)
		}
	}
}

func (h *handlers) health(c echo.Context) error {
	return c.JSON(http.StatusOK, HealthResponse{
		Status:   "ok",
		Service:  "rolecall",
		Sessions: h.Hub.Count(),
	})
}

func (h *handlers) listRoles(c echo.Context) error {
	roles, err := h.Roles.List(c.Request().Context())
	if err != nil {
		h.logger.Error("Failed to list roles", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to list roles",
		})
	}
	return c.JSON(http.StatusOK, roles)
}

func (h *handlers) getRole(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Role id must be an integer",
		})
	}

	role, err := h.Roles.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repositories.ErrRoleNotFound) {
			return c.JSON(http.StatusNotFound, ErrorResponse{
				Error:   "role_not_found",
				Message: "Role not found",
			})
		}
		h.logger.Error("Failed to get role", zap.Int64("roleID", id), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "Failed to get role",
		})
	}
	return c.JSON(http.StatusOK, role)
}

func (h *handlers) chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		h.logger.Error("Failed to bind chat request", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Invalid request format",
		})
	}

	result, err := h.Chat.ChatText(c.Request().Context(), req.RoleID, req.UserMessage, req.Backend)
	if err != nil {
		return h.turnError(c, req.RoleID, err)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *handlers) voiceChat(c echo.Context) error {
	roleID, err := strconv.ParseInt(c.FormValue("roleId"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "roleId must be an integer",
		})
	}

	file, err := c.FormFile("audio")
	if err != nil {
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_audio",
			Message: "An audio file is required",
		})
	}
	if file.Size > maxUploadSize {
		return c.JSON(http.StatusRequestEntityTooLarge, ErrorResponse{
			Error:   "audio_too_large",
			Message: "Audio file is too large",
		})
	}

	src, err := file.Open()
	if err != nil {
		h.logger.Error("Failed to open upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read audio file",
		})
	}
	defer src.Close()

	upload, err := io.ReadAll(io.LimitReader(src, maxUploadSize))
	if err != nil {
		h.logger.Error("Failed to read upload", zap.Error(err))
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_request",
			Message: "Failed to read audio file",
		})
	}

	result, err := h.Chat.ChatVoice(c.Request().Context(), roleID, upload, c.FormValue("backend"))
	if err != nil {
		return h.turnError(c, roleID, err)
	}
	return c.JSON(http.StatusOK, result)
}

// turnError maps chat turn failures to responses
func (h *handlers) turnError(c echo.Context, roleID int64, err error) error {
	switch {
	case errors.Is(err, repositories.ErrRoleNotFound):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "role_not_found",
			Message: "Role not found",
		})
	case errors.Is(err, repositories.ErrUnknownBackend):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "unknown_backend",
			Message: err.Error(),
		})
	case errors.Is(err, usecase.ErrEmptyMessage):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_message",
			Message: "userMessage must not be empty",
		})
	case errors.Is(err, usecase.ErrEmptyAudio):
		return c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "empty_audio",
			Message: "The audio file is empty",
		})
	case errors.Is(err, usecase.ErrTranscriptionFailed):
		return c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "transcription_failed",
			Message: "Speech recognition failed",
		})
	}

	h.logger.Error("Chat turn failed", zap.Int64("roleID", roleID), zap.Error(err))
	return c.JSON(http.StatusInternalServerError, ErrorResponse{
		Error:   "internal_error",
		Message: "Failed to process the message",
	})
}
