package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	auditrepo "github.com/stockroom/stockroom-backend/internal/audit/repository"
	auditservice "github.com/stockroom/stockroom-backend/internal/audit/service"
	directoryservice "github.com/stockroom/stockroom-backend/internal/directory/service"
	"github.com/stockroom/stockroom-backend/internal/identity/domain"
	"github.com/stockroom/stockroom-backend/internal/identity/service"
	inventoryservice "github.com/stockroom/stockroom-backend/internal/inventory/service"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// AdminHandler handles the administrative user-management endpoints and
// the admin dashboard.
type AdminHandler struct {
	identity  *service.Service
	directory *directoryservice.Service
	inventory *inventoryservice.Service
	audit     *auditservice.Service
	logger    *logger.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(
	identity *service.Service,
	directory *directoryservice.Service,
	inventory *inventoryservice.Service,
	audit *auditservice.Service,
	log *logger.Logger,
) *AdminHandler {
	return &AdminHandler{
		identity:  identity,
		directory: directory,
		inventory: inventory,
		audit:     audit,
		logger:    log,
	}
}

// DashboardResponse is the admin dashboard payload
type DashboardResponse struct {
	UserCount       int64              `json:"user_count"`
	ActiveUsers     int64              `json:"active_users"`
	InactiveUsers   int64              `json:"inactive_users"`
	ItemCount       int64              `json:"item_count"`
	DepartmentCount int64              `json:"department_count"`
	RecentActivity  []*auditrepo.Entry `json:"recent_activity"`
	HasNewUsers     bool               `json:"has_new_users"`
}

// Dashboard returns counts, the 10 most recent audit entries and the
// caller's new-user notification flag
// GET /admin/dashboard
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	act := actor.MustFromContext(ctx)

	activeUsers, inactiveUsers, err := h.identity.CountUsersByActivity(ctx)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	itemCount, err := h.inventory.Count(ctx)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	departments, err := h.directory.ListDepartments(ctx)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	recent, err := h.audit.Recent(ctx, 10)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	seen, err := h.directory.HasSeenNewUsers(ctx, act.ID)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, &DashboardResponse{
		UserCount:       activeUsers + inactiveUsers,
		ActiveUsers:     activeUsers,
		InactiveUsers:   inactiveUsers,
		ItemCount:       itemCount,
		DepartmentCount: int64(len(departments)),
		RecentActivity:  recent,
		HasNewUsers:     !seen,
	})
}

// ListUsers returns all accounts and clears the caller's notification flag
// GET /admin/users
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.identity.ListUsers(r.Context(), actor.MustFromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, users)
}

// DeactivateUser soft-deletes an account
// POST /admin/users/{id}/deactivate
func (h *AdminHandler) DeactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.identity.Deactivate(r.Context(), actor.MustFromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONMessage(w, http.StatusOK, nil, "user deactivated")
}

// ReactivateUser restores a deactivated account
// POST /admin/users/{id}/reactivate
func (h *AdminHandler) ReactivateUser(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.identity.Reactivate(r.Context(), actor.MustFromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONMessage(w, http.StatusOK, nil, "user reactivated")
}

// SetPassword resets another user's password
// PUT /admin/users/{id}/password
func (h *AdminHandler) SetPassword(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req domain.SetPasswordRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.identity.SetPassword(r.Context(), actor.MustFromContext(r.Context()), id, req.Password); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONMessage(w, http.StatusOK, nil, "password updated")
}

// SetDepartments replaces a user's department memberships
// PUT /admin/users/{id}/departments
func (h *AdminHandler) SetDepartments(w http.ResponseWriter, r *http.Request) {
	id, err := userID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req struct {
		DepartmentIDs []int64 `json:"department_ids"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	ctx := r.Context()
	act := actor.MustFromContext(ctx)

	user, err := h.identity.GetUser(ctx, act, id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.directory.SetUserDepartments(ctx, act, user, req.DepartmentIDs); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSONMessage(w, http.StatusOK, nil, "departments updated")
}

func userID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("invalid user id")
	}
	return id, nil
}
