package handler

import (
	"net/http"
	"strconv"

	"github.com/stockroom/stockroom-backend/internal/audit/service"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// Handler serves the administrative audit log views
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new audit handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// List returns the full audit log, newest first
// GET /admin/audit with query params page and per_page
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}

	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	if perPage < 1 || perPage > 100 {
		perPage = 50
	}

	entries, total, err := h.service.List(r.Context(), page, perPage)
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to list audit entries")
		httputil.Error(w, err)
		return
	}

	totalPages := int(total) / perPage
	if int(total)%perPage > 0 {
		totalPages++
	}

	httputil.JSONWithMeta(w, http.StatusOK, entries, &httputil.Meta{
		Page:       page,
		PerPage:    perPage,
		Total:      total,
		TotalPages: totalPages,
	})
}
