package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom/stockroom-backend/internal/inventory/service"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/errors"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
	"github.com/stockroom/stockroom-backend/pkg/logger"
)

// Handler handles inventory item endpoints
type Handler struct {
	service *service.Service
	logger  *logger.Logger
}

// NewHandler creates a new inventory handler
func NewHandler(svc *service.Service, log *logger.Logger) *Handler {
	return &Handler{
		service: svc,
		logger:  log,
	}
}

// List returns the items visible to the caller
// GET /items
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context(), actor.MustFromContext(r.Context()))
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, items)
}

// Get returns one item
// GET /items/{id}
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Get(r.Context(), actor.MustFromContext(r.Context()), id)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Create adds an item with the caller as owner
// POST /items
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req service.ItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Create(r.Context(), actor.MustFromContext(r.Context()), &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.Created(w, item)
}

// Update mutates an item
// PUT /items/{id}
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	var req service.ItemRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.Error(w, err)
		return
	}

	if err := httputil.Validate(&req); err != nil {
		httputil.Error(w, err)
		return
	}

	item, err := h.service.Update(r.Context(), actor.MustFromContext(r.Context()), id, &req)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, item)
}

// Delete removes an item
// DELETE /items/{id}
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := itemID(r)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	if err := h.service.Delete(r.Context(), actor.MustFromContext(r.Context()), id); err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.NoContent(w)
}

func itemID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, errors.BadRequest("invalid item id")
	}
	return id, nil
}
