package handlers

import (
	"context"
	"net/http"

	"github.com/refdesk-ai/refdesk/internal/api"
	"github.com/refdesk-ai/refdesk/internal/service"
)

type DashboardService interface {
	Dashboard(ctx context.Context) (*service.DashboardStats, error)
}

type DashboardHandler struct {
	svc DashboardService
}

func NewDashboardHandler(svc DashboardService) *DashboardHandler {
	return &DashboardHandler{svc: svc}
}

func (h *DashboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	stats, err := h.svc.Dashboard(r.Context())
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.Success(w, http.StatusOK, stats)
}
