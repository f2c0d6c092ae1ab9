package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/vasiliy-maslov/campus-cafe/internal/auth"
	"github.com/vasiliy-maslov/campus-cafe/internal/report"
)

type ReportHandler struct {
	service report.Service
}

func NewReportHandler(service report.Service) *ReportHandler {
	return &ReportHandler{service: service}
}

func (h *ReportHandler) RegisterRoutes(router chi.Router, authz Authorizer) {
	router.With(authz.Authorize(auth.ResourceDashboard, auth.ActionRead)).Get("/dashboard/stats", h.handleDashboard)
	router.With(authz.Authorize(auth.ResourceReports, auth.ActionRead)).Get("/reports/sales", h.handleSales)
}

func (h *ReportHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.DashboardStats(r.Context())
	if err != nil {
		respondWithServiceError(w, err, "Failed to load dashboard statistics")
		return
	}
	respondWithJSON(w, http.StatusOK, stats)
}

func (h *ReportHandler) handleSales(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.SalesReport(r.Context(), report.Period(r.URL.Query().Get("period")))
	if err != nil {
		respondWithServiceError(w, err, "Failed to build sales report")
		return
	}
	respondWithJSON(w, http.StatusOK, rep)
}
