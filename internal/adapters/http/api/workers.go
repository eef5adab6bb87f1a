package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/shaanlabs/Tekista/internal/domain/types"
)

const (
	defaultSkillLimit          = 5
	defaultRecommendationLimit = 10
)

// WorkersHandler serves worker profiles, skills and recommendations.
type WorkersHandler struct {
	svc WorkerService
}

// NewWorkersHandler creates a workers handler.
func NewWorkersHandler(svc WorkerService) *WorkersHandler {
	return &WorkersHandler{svc: svc}
}

// HandleCreate handles POST /workers.
func (h *WorkersHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var in types.NewWorker
	if err := decodeJSON(w, r, &in, false); err != nil {
		writeServiceError(w, err)
		return
	}
	p, err := h.svc.CreateWorker(r.Context(), in)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

// HandleGet handles GET /workers/{id}.
func (h *WorkersHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.svc.WorkerProfile(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// HandlePatchSkills handles PATCH /workers/{id}/skills.
func (h *WorkersHandler) HandlePatchSkills(w http.ResponseWriter, r *http.Request) {
	var patch types.SkillPatch
	if err := decodeJSON(w, r, &patch, false); err != nil {
		writeServiceError(w, err)
		return
	}
	p, err := h.svc.UpdateSkillProfile(r.Context(), pathID(r), patch)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

type incrementRequest struct {
	Skill  string  `json:"skill"`
	Amount float64 `json:"amount"`
}

type incrementResponse struct {
	Skill       string  `json:"skill"`
	Proficiency float64 `json:"proficiency"`
}

// HandleIncrementSkill handles POST /workers/{id}/skills/increment.
func (h *WorkersHandler) HandleIncrementSkill(w http.ResponseWriter, r *http.Request) {
	var req incrementRequest
	if err := decodeJSON(w, r, &req, false); err != nil {
		writeServiceError(w, err)
		return
	}
	if strings.TrimSpace(req.Skill) == "" {
		writeServiceError(w, fmt.Errorf("missing skill: %w", ErrBadRequest))
		return
	}
	v, err := h.svc.IncrementSkill(r.Context(), pathID(r), req.Skill, req.Amount)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, incrementResponse{Skill: req.Skill, Proficiency: v})
}

// HandleTopSkills handles GET /workers/{id}/skills/top.
func (h *WorkersHandler) HandleTopSkills(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit", defaultSkillLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.TopSkills(r.Context(), pathID(r), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleWeakestSkills handles GET /workers/{id}/skills/weakest.
func (h *WorkersHandler) HandleWeakestSkills(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit", defaultSkillLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.WeakestSkills(r.Context(), pathID(r), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSkillFocus handles GET /workers/{id}/skills/focus.
func (h *WorkersHandler) HandleSkillFocus(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit", defaultSkillLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.SkillRecommendations(r.Context(), pathID(r), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSkillGaps handles GET /workers/{id}/skills/gaps.
func (h *WorkersHandler) HandleSkillGaps(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SkillGaps(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleLearningPath handles GET /workers/{id}/skills/path.
func (h *WorkersHandler) HandleLearningPath(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.LearningPath(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleSkillCategories handles GET /workers/{id}/skills/categories.
func (h *WorkersHandler) HandleSkillCategories(w http.ResponseWriter, r *http.Request) {
	out, err := h.svc.SkillsByCategory(r.Context(), pathID(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}

// HandleRecommendations handles GET /workers/{id}/recommendations.
func (h *WorkersHandler) HandleRecommendations(w http.ResponseWriter, r *http.Request) {
	n, err := queryInt(r, "limit", defaultRecommendationLimit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.Recommend(r.Context(), pathID(r), n)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, out)
}
