package handler

import (
	"net/http"

	"github.com/stockroom/stockroom-backend/internal/inventory/repository"
	"github.com/stockroom/stockroom-backend/pkg/actor"
	"github.com/stockroom/stockroom-backend/pkg/httputil"
)

// DashboardResponse is the member dashboard payload
type DashboardResponse struct {
	Username  string             `json:"username"`
	ItemCount int                `json:"item_count"`
	Items     []*repository.Item `json:"items"`
}

// Dashboard returns the caller's visible items
// GET /dashboard
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	act := actor.MustFromContext(r.Context())

	items, err := h.service.List(r.Context(), act)
	if err != nil {
		httputil.Error(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, &DashboardResponse{
		Username:  act.Username,
		ItemCount: len(items),
		Items:     items,
	})
}
