package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shaanlabs/Tekista/internal/adapters/repository"
	"github.com/shaanlabs/Tekista/internal/domain/model"
	"github.com/shaanlabs/Tekista/internal/domain/performance"
	"github.com/shaanlabs/Tekista/internal/domain/scoring"
	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/metrics"
)

// Recommender ranks open items for a worker. Unlike assignment it applies no
// skill floor.
type Recommender struct {
	*deps
	weights scoring.RecommendationWeights
	max     int
}

// Recommend returns up to topN open items of the worker's organization the
// worker has not held before, best first.
func (r *Recommender) Recommend(ctx context.Context, workerID string, topN int) ([]types.Recommendation, error) {
	if topN < 1 {
		return nil, fmt.Errorf("limit %d: %w", topN, ErrInvalidArgument)
	}
	if r.max > 0 {
		topN = min(topN, r.max)
	}
	start := time.Now()

	w, err := r.store.Worker(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	history, err := r.store.SuccessHistory(ctx, workerID)
	if err != nil {
		return nil, translate(err)
	}
	open, err := r.store.ListItems(ctx, repository.ItemFilter{
		OrganizationID: w.OrganizationID,
		Status:         model.ItemOpen,
		NotHeldBy:      workerID,
	})
	if err != nil {
		return nil, translate(err)
	}

	now := r.now()
	out := make([]types.Recommendation, 0, len(open))
	for _, it := range open {
		comps, score := scoring.Recommend(w, it, history, r.weights, now)
		if score <= 0 {
			continue
		}
		out = append(out, types.Recommendation{
			ItemID:         it.ID,
			Title:          it.Title,
			ProjectID:      it.ProjectID,
			Difficulty:     it.Difficulty,
			Priority:       string(it.Priority),
			DueDate:        it.DueDate,
			RequiredSkills: it.RequiredSkills,
			Score:          score,
			Components:     comps,
		})
	}
	sortRecommendations(out)
	if len(out) > topN {
		out = out[:topN]
	}
	metrics.RecordRecommendations(len(out), float64(time.Since(start).Microseconds())/1000)
	return out, nil
}

// sortRecommendations orders by score, then earlier due date with undated
// items last, then item ID.
func sortRecommendations(rs []types.Recommendation) {
	sort.Slice(rs, func(i, j int) bool {
		a, b := rs[i], rs[j]
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		switch {
		case a.DueDate != nil && b.DueDate != nil && !a.DueDate.Equal(*b.DueDate):
			return a.DueDate.Before(*b.DueDate)
		case a.DueDate != nil && b.DueDate == nil:
			return true
		case a.DueDate == nil && b.DueDate != nil:
			return false
		}
		return a.ItemID < b.ItemID
	})
}

// Insights flags notable conditions of a worker.
func Insights(w model.Worker) []string {
	return performance.Insights(w)
}
