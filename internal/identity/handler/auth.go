package handler

import (
	"net/http"

	"github.com/stockroom/stockroom-backend/internal/identity/domain"
	"github.com/stockroom/stockroom-backend/internal/identity/service"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// AuthHandler handles registration and session endpoints
type AuthHandler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(svc *service.Service, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: svc,
		logger:  log,
	}
}

// Register handles public account registration
// POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req domain.RegisterRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	user, err := h.service.Register(r.Context(), &req, httputil.ClientIP(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, user)
}

// Login handles user login
// POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req domain.LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	response, err := h.service.Login(r.Context(), &req, httputil.ClientIP(r))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, response)
}

// Logout records the end of the current session
// POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Logout(r.Context(), actor.FromContext(r.Context())); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

// Refresh handles token refresh
// POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token" validate:"required"`
	}

	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	tokens, err := h.service.Refresh(r.Context(), req.RefreshToken)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, tokens)
}

// Me returns the current user's identity
// GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	act := actor.MustFromContext(r.Context())
	httputil.JSON(w, http.StatusOK, act)
}
