package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom/stockroom-backend/internal/directory/service"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// Handler handles department endpoints
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new directory handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// List returns all departments
// GET /admin/departments
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	departments, err := h.service.ListDepartments(r.Context())
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, departments)
}

// Get returns one department
// GET /admin/departments/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := departmentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	dept, err := h.service.GetDepartment(r.Context(), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, dept)
}

// Create adds a department
// POST /admin/departments
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.DepartmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	dept, err := h.service.CreateDepartment(r.Context(), actor.MustFromContext(r.Context()), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, dept)
}

// Update renames a department
// PUT /admin/departments/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := departmentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.DepartmentRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	dept, err := h.service.UpdateDepartment(r.Context(), actor.MustFromContext(r.Context()), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, dept)
}

// Delete removes a department. Rejected while items still reference it.
// DELETE /admin/departments/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := departmentID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.DeleteDepartment(r.Context(), actor.MustFromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

func departmentID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("invalid department id")
	}
	return id, nil
}
