package analytics_api

import (
	"fmt"
	"net/http"
	"strconv"

	"sooicy-orders/internal/analytics"
	"sooicy-orders/internal/logger"
	"sooicy-orders/internal/utils"

	"github.com/go-chi/chi/v5"
)

// Handler handles analytics HTTP endpoints
type Handler struct {
	Service *analytics.Service
	Logger  *logger.Logger
}

// NewHandler creates a new analytics handler
func NewHandler(service *analytics.Service, logger *logger.Logger) *Handler {
	return &Handler{
		Service: service,
		Logger:  logger,
	}
}

// RegisterRoutes registers the analytics routes on a chi router
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/dashboard", func(r chi.Router) {
		r.Get("/stats", h.GetDashboardStats)
		r.Get("/analytics", h.GetSalesAnalytics)
	})
}

func (h *Handler) send(w http.ResponseWriter, status int, body utils.APIResponse) {
	if err := utils.WriteJSON(w, status, body); err != nil {
		h.Logger.Error("ANALYTICS", fmt.Sprintf("Failed to encode response: %v", err))
	}
}

func (h *Handler) GetDashboardStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.Service.GetDashboardStats(r.Context())
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting dashboard stats: "+err.Error())
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to get dashboard stats", err.Error()))
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Dashboard stats", stats))
}

// GetSalesAnalytics serves delivered sales for the trailing ?days window.
func (h *Handler) GetSalesAnalytics(w http.ResponseWriter, r *http.Request) {
	days := analytics.DefaultAnalyticsDays
	if raw := r.URL.Query().Get("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			h.send(w, http.StatusBadRequest, utils.ErrorResponse("Invalid days", fmt.Sprintf("days must be a positive integer, got %q", raw)))
			return
		}
		days = n
	}

	result, err := h.Service.GetSalesAnalytics(r.Context(), days)
	if err != nil {
		h.Logger.Error("ANALYTICS", "Error getting sales analytics: "+err.Error())
		h.send(w, http.StatusInternalServerError, utils.ErrorResponse("Failed to get analytics", err.Error()))
		return
	}
	h.send(w, http.StatusOK, utils.SuccessResponse("Sales analytics", result))
}
