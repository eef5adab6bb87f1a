package simulation

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/shaanlabs/Tekista/internal/domain/types"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

const directoryPermission = 0750

// Fixtures is the seeded population of a run.
type Fixtures struct {
	Workers []types.NewWorker `json:"workers"`
	Items   []types.NewItem   `json:"items"`
	// HoursFactor scales an item's estimated hours into the actual hours
	// reported on completion.
	HoursFactor map[string]float64 `json:"hours_factor"`
}

// Generate builds workers and items for cfg. The same seed always yields the
// same skills, difficulties and priorities; IDs are fresh UUIDs.
func Generate(cfg *Config, now time.Time) Fixtures {
	r := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))
	fx := Fixtures{
		Workers:     make([]types.NewWorker, cfg.Workers),
		Items:       make([]types.NewItem, cfg.Items),
		HoursFactor: make(map[string]float64, cfg.Items),
	}

	for i := range fx.Workers {
		k := minWorkerSkills + r.IntN(maxWorkerSkills-minWorkerSkills+1)
		skills := make(map[string]float64, k)
		for _, idx := range r.Perm(len(skillCatalogue))[:k] {
			skills[skillCatalogue[idx]] = round1(minProficiency + r.Float64()*proficiencySpread)
		}
		fx.Workers[i] = types.NewWorker{
			ID:              uuid.NewString(),
			OrganizationID:  cfg.Organization,
			Name:            "worker-" + strconv.Itoa(i+1),
			Skills:          skills,
			ExperienceLevel: 1 + r.IntN(10),
			MaxWeeklyHours:  maxWeeklyHours,
		}
	}

	for i := range fx.Items {
		k := 1 + r.IntN(maxRequiredSkills)
		required := make([]string, 0, k)
		for _, idx := range r.Perm(len(skillCatalogue))[:k] {
			required = append(required, skillCatalogue[idx])
		}
		var due *time.Time
		if r.Float64() < dueDateShare {
			d := now.AddDate(0, 0, r.IntN(dueWindowDays)-overdueDays).UTC()
			due = &d
		}
		it := types.NewItem{
			ID:             uuid.NewString(),
			OrganizationID: cfg.Organization,
			ProjectID:      "project-" + strconv.Itoa(r.IntN(projects)+1),
			Title:          "item-" + strconv.Itoa(i+1),
			RequiredSkills: required,
			Difficulty:     1 + r.IntN(10),
			Priority:       priorities[r.IntN(len(priorities))],
			DueDate:        due,
		}
		fx.Items[i] = it
		fx.HoursFactor[it.ID] = round1(minHoursFactor + r.Float64()*hoursFactorSpread)
	}
	return fx
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// saveFixtures writes the generated population as JSON.
func saveFixtures(ctx context.Context, filename string, fx Fixtures) error {
	if filename == "" {
		filename = "simulation_fixtures_" + time.Now().Format("20060102_150405") + ".json"
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer func() {
		if err := file.Close(); err != nil {
			logger.Get().Error(ctx, "failed to close file", logger.Error(err))
		}
	}()

	enc := json.NewEncoder(file)
	enc.SetIndent("", "  ")
	if err := enc.Encode(fx); err != nil {
		return fmt.Errorf("failed to encode fixtures: %w", err)
	}

	logger.Get().Info(ctx, "fixtures saved to file", logger.String("filename", filename))
	return nil
}
