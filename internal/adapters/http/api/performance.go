package api

import (
	"net/http"
)

const (
	defaultHistoryDays = 30
	defaultTrendDays   = 90
)

// PerformanceHandler serves worker and team performance.
type PerformanceHandler struct {
	svc PerformanceService
}

// NewPerformanceHandler creates a performance handler.
func NewPerformanceHandler(svc PerformanceService) *PerformanceHandler {
	return &PerformanceHandler{svc: svc}
}

// HandleSummary handles GET /workers/{id}/performance.
func (h *PerformanceHandler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.svc.PerformanceSummary(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// HandleHistory handles GET /workers/{id}/performance/history.
func (h *PerformanceHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultHistoryDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	recs, err := h.svc.PerformanceHistory(r.Context(), pathID(r), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newPerformanceRecordViews(recs))
}

// HandleTrends handles GET /workers/{id}/performance/trends.
func (h *PerformanceHandler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	days, err := queryInt(r, "days", defaultTrendDays)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	series, err := h.svc.PerformanceTrends(r.Context(), pathID(r), days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, series)
}

// HandleTeam handles GET /organizations/{id}/performance.
func (h *PerformanceHandler) HandleTeam(w http.ResponseWriter, r *http.Request) {
	team, err := h.svc.TeamSummary(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}
