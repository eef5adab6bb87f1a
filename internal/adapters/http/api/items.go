package api

import (
	"net/http"
	"strings"

	"github.com/shaanlabs/Tekista/internal/domain/types"
)

// IdempotencyHeader carries the request id of an asynchronous assignment when
// the body does not.
const IdempotencyHeader = "Idempotency-Key"

// ItemsHandler serves work items and their assignment.
type ItemsHandler struct {
	svc ItemService
}

// NewItemsHandler creates an items handler.
func NewItemsHandler(svc ItemService) *ItemsHandler {
	return &ItemsHandler{svc: svc}
}

type assignRequest struct {
	Strategy string `json:"strategy"`
}

type asyncAssignRequest struct {
	RequestID string `json:"request_id"`
	Strategy  string `json:"strategy"`
}

type reassignRequest struct {
	Reason   string `json:"reason"`
	Strategy string `json:"strategy"`
}

type cancelRequest struct {
	Reason string `json:"reason"`
}

type ackResponse struct {
	Status    string `json:"status"`
	RequestID string `json:"request_id"`
	Duplicate bool   `json:"duplicate"`
}

// HandleCreate handles POST /items.
func (h *ItemsHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in types.NewItem
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeServiceError(w, err)
		return
	}
	it, err := h.svc.CreateItem(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newItemView(it))
}

// HandleAssign handles POST /items/{id}/assign. A missing suitable worker is
// a successful response with outcome no_suitable_worker.
func (h *ItemsHandler) HandleAssign(w http.ResponseWriter, r *http.Request) {
	var req assignRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.AutoAssign(r.Context(), pathID(r), strategyOf(r, req.Strategy))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleAssignAsync handles POST /items/{id}/assign/async.
func (h *ItemsHandler) HandleAssignAsync(w http.ResponseWriter, r *http.Request) {
	var req asyncAssignRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, err)
		return
	}
	if req.RequestID == "" {
		req.RequestID = strings.TrimSpace(r.Header.Get(IdempotencyHeader))
	}
	ack, err := h.svc.EnqueueAssign(r.Context(), req.RequestID, pathID(r), strategyOf(r, req.Strategy))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if ack.Duplicate {
		writeJSON(w, http.StatusOK, ackResponse{Status: "duplicate", RequestID: ack.RequestID, Duplicate: true})
		return
	}
	writeJSON(w, http.StatusAccepted, ackResponse{Status: "accepted", RequestID: ack.RequestID})
}

// HandleReassign handles POST /items/{id}/reassign.
func (h *ItemsHandler) HandleReassign(w http.ResponseWriter, r *http.Request) {
	var req reassignRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.Reassign(r.Context(), pathID(r), req.Reason, strategyOf(r, req.Strategy))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleCancel handles POST /items/{id}/cancel.
func (h *ItemsHandler) HandleCancel(w http.ResponseWriter, r *http.Request) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req, true); err != nil {
		writeServiceError(w, err)
		return
	}
	it, err := h.svc.CancelItem(r.Context(), pathID(r), req.Reason)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newItemView(it))
}

// HandleCandidates handles GET /items/{id}/candidates. Without a limit every
// scored worker is listed.
func (h *ItemsHandler) HandleCandidates(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit", 0)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.RankCandidates(r.Context(), pathID(r), r.URL.Query().Get("strategy"), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// strategyOf prefers the body's strategy over the query string.
func strategyOf(r *http.Request, body string) string {
	if body != "" {
		return body
	}
	return r.URL.Query().Get("strategy")
}
