package api

import (
	"fmt"
	"net/http"
)

// AssignmentsHandler serves assignment completion.
type AssignmentsHandler struct {
	svc AssignmentService
}

// NewAssignmentsHandler creates an assignments handler.
func NewAssignmentsHandler(svc AssignmentService) *AssignmentsHandler {
	return &AssignmentsHandler{svc: svc}
}

type completeRequest struct {
	ActualHours *float64 `json:"actual_hours"`
}

// HandleComplete handles POST /assignments/{id}/complete.
func (h *AssignmentsHandler) HandleComplete(w http.ResponseWriter, r *http.Request) {
	var req completeRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.ActualHours == nil {
		writeServiceError(w, fmt.Errorf("missing actual_hours: %w", ErrBadRequest))
		return
	}
	res, err := h.svc.CompleteAssignment(r.Context(), pathID(r), *req.ActualHours)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
