// Package api exposes the allocation engine over HTTP.
package api

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/performance"
	"github.com/shaanlabs/Tekista/internal/domain/skills"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

// WorkerService is what the worker routes need.
type WorkerService interface {
	CreateWorker(ctx context.Context, in types.NewWorker) (types.WorkerProfile, error)
	WorkerProfile(ctx context.Context, workerID string) (types.WorkerProfile, error)
	UpdateSkillProfile(ctx context.Context, workerID string, p types.SkillPatch) (types.WorkerProfile, error)
	IncrementSkill(ctx context.Context, workerID, skill string, amount float64) (float64, error)
	TopSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error)
	WeakestSkills(ctx context.Context, workerID string, n int) ([]skills.Skill, error)
	SkillRecommendations(ctx context.Context, workerID string, limit int) ([]skills.Focus, error)
	SkillGaps(ctx context.Context, workerID string) ([]skills.Gap, error)
	LearningPath(ctx context.Context, workerID string) (types.LearningPath, error)
	SkillsByCategory(ctx context.Context, workerID string) (map[string]map[string]float64, error)
	Recommend(ctx context.Context, workerID string, topN int) ([]types.Recommendation, error)
}

// ItemService is what the item routes need.
type ItemService interface {
	CreateItem(ctx context.Context, in types.NewItem) (model.WorkItem, error)
	AutoAssign(ctx context.Context, itemID, strategy string) (types.AssignmentResult, error)
	EnqueueAssign(ctx context.Context, requestID, itemID, strategy string) (types.Enqueued, error)
	Reassign(ctx context.Context, itemID, reason, strategy string) (types.AssignmentResult, error)
	CancelItem(ctx context.Context, itemID, reason string) (model.WorkItem, error)
	RankCandidates(ctx context.Context, itemID, strategy string, topN int) ([]types.Candidate, error)
}

// AssignmentService is what the assignment routes need.
type AssignmentService interface {
	CompleteAssignment(ctx context.Context, assignmentID string, actualHours float64) (types.CompletionResult, error)
}

// PerformanceService is what the performance routes need.
type PerformanceService interface {
	PerformanceSummary(ctx context.Context, workerID string) (types.PerformanceSummary, error)
	PerformanceHistory(ctx context.Context, workerID string, days int) ([]model.PerformanceRecord, error)
	PerformanceTrends(ctx context.Context, workerID string, days int) (performance.Series, error)
	TeamSummary(ctx context.Context, orgID string) (performance.TeamSummary, error)
}

// Dependencies bundles every service the API serves.
type Dependencies interface {
	WorkerService
	ItemService
	AssignmentService
	PerformanceService
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler      *HealthHandler
	statsHandler       *StatsHandler
	workersHandler     *WorkersHandler
	itemsHandler       *ItemsHandler
	assignmentsHandler *AssignmentsHandler
	performanceHandler *PerformanceHandler
	log                logger.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log logger.Logger) Option {
	return func(s *Server) {
		if log != nil {
			s.log = log
		}
	}
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	s := &Server{
		healthHandler:      NewHealthHandler(),
		statsHandler:       NewStatsHandler(statsProvider),
		workersHandler:     NewWorkersHandler(deps),
		itemsHandler:       NewItemsHandler(deps),
		assignmentsHandler: NewAssignmentsHandler(deps),
		performanceHandler: NewPerformanceHandler(deps),
		log:                logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register attaches all API routes to r.
func (s *Server) Register(r chi.Router) {
	r.Get("/healthz", s.healthHandler.HandleHealth)
	r.Handle("/metrics", s.healthHandler.MetricsHandler())
	r.Get("/stats", s.statsHandler.HandleStats)

	r.Route("/workers", func(r chi.Router) {
		r.Post("/", s.workersHandler.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", s.workersHandler.HandleGet)
			r.Patch("/skills", s.workersHandler.HandlePatchSkills)
			r.Post("/skills/increment", s.workersHandler.HandleIncrementSkill)
			r.Get("/skills/top", s.workersHandler.HandleTopSkills)
			r.Get("/skills/weakest", s.workersHandler.HandleWeakestSkills)
			r.Get("/skills/focus", s.workersHandler.HandleSkillFocus)
			r.Get("/skills/gaps", s.workersHandler.HandleSkillGaps)
			r.Get("/skills/path", s.workersHandler.HandleLearningPath)
			r.Get("/skills/categories", s.workersHandler.HandleSkillCategories)
			r.Get("/recommendations", s.workersHandler.HandleRecommendations)
			r.Get("/performance", s.performanceHandler.HandleSummary)
			r.Get("/performance/history", s.performanceHandler.HandleHistory)
			r.Get("/performance/trends", s.performanceHandler.HandleTrends)
		})
	})

	r.Route("/items", func(r chi.Router) {
		r.Post("/", s.itemsHandler.HandleCreate)
		r.Route("/{id}", func(r chi.Router) {
			r.Post("/assign", s.itemsHandler.HandleAssign)
			r.Post("/assign/async", s.itemsHandler.HandleAssignAsync)
			r.Post("/reassign", s.itemsHandler.HandleReassign)
			r.Post("/cancel", s.itemsHandler.HandleCancel)
			r.Get("/candidates", s.itemsHandler.HandleCandidates)
		})
	})

	r.Post("/assignments/{id}/complete", s.assignmentsHandler.HandleComplete)
	r.Get("/organizations/{id}/performance", s.performanceHandler.HandleTeam)
}

// Routes builds a router with the standard middleware chain, the API routes
// and any extra mounts such as the OpenAPI document.
func (s *Server) Routes(mounts ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.Recoverer)
	r.Use(RequestLogger(s.log))
	r.Use(MetricsMiddleware)
	s.Register(r)
	for _, m := range mounts {
		m(r)
	}
	return r
}
