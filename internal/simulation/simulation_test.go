package simulation_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/shaanlabs/Tekista/internal/adapters/http/api"
	service "github.com/shaanlabs/Tekista/internal/app"
	"github.com/shaanlabs/Tekista/internal/simulation"
	"github.com/shaanlabs/Tekista/pkg/logger"
)

func TestMain(m *testing.M) {
	if err := logger.Init(logger.WithOutput(io.Discard)); err != nil {
		panic(err)
	}
	os.Exit(m.Run())
}

func baseConfig(url string) *simulation.Config {
	return &simulation.Config{
		BaseURL:    url,
		Workers:    6,
		Items:      30,
		Clients:    4,
		Contenders: 3,
		Seed:       42,
		Timeout:    5 * time.Second,
	}
}

func TestGenerate(t *testing.T) {
	Convey("Given a seeded config", t, func() {
		cfg := baseConfig("http://unused")
		cfg.Organization = "org"
		now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

		a := simulation.Generate(cfg, now)
		b := simulation.Generate(cfg, now)

		Convey("Then the population has the requested shape", func() {
			So(a.Workers, ShouldHaveLength, 6)
			So(a.Items, ShouldHaveLength, 30)
			for _, w := range a.Workers {
				So(w.OrganizationID, ShouldEqual, "org")
				So(len(w.Skills), ShouldBeBetweenOrEqual, 2, 4)
				for _, p := range w.Skills {
					So(p, ShouldBeBetweenOrEqual, 20.0, 90.0)
				}
				So(w.ExperienceLevel, ShouldBeBetweenOrEqual, 1, 10)
			}
			for _, it := range a.Items {
				So(len(it.RequiredSkills), ShouldBeBetweenOrEqual, 1, 2)
				So(it.Difficulty, ShouldBeBetweenOrEqual, 1, 10)
				So(a.HoursFactor[it.ID], ShouldBeBetweenOrEqual, 0.7, 1.3)
			}
		})

		Convey("Then the same seed yields the same population under fresh ids", func() {
			So(a.Workers[0].ID, ShouldNotEqual, b.Workers[0].ID)
			for i := range a.Workers {
				So(a.Workers[i].Skills, ShouldResemble, b.Workers[i].Skills)
			}
			for i := range a.Items {
				So(a.Items[i].RequiredSkills, ShouldResemble, b.Items[i].RequiredSkills)
				So(a.Items[i].Difficulty, ShouldEqual, b.Items[i].Difficulty)
				So(a.Items[i].Priority, ShouldEqual, b.Items[i].Priority)
			}
		})
	})
}

func TestRunValidation(t *testing.T) {
	Convey("Unusable settings are rejected before any request", t, func() {
		for _, mutate := range []func(*simulation.Config){
			func(c *simulation.Config) { c.BaseURL = " " },
			func(c *simulation.Config) { c.Workers = 0 },
			func(c *simulation.Config) { c.Items = 0 },
			func(c *simulation.Config) { c.Clients = 0 },
			func(c *simulation.Config) { c.Contenders = 0 },
			func(c *simulation.Config) { c.Timeout = 0 },
		} {
			cfg := baseConfig("http://unused")
			mutate(cfg)
			_, err := simulation.Run(context.Background(), cfg)
			So(errors.Is(err, simulation.ErrInvalidConfig), ShouldBeTrue)
		}
	})

	Convey("An unreachable service fails the health check", t, func() {
		_, err := simulation.Run(context.Background(), baseConfig("http://127.0.0.1:1"))
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "health check")
		So(simulation.IsViolation(err), ShouldBeFalse)
	})
}

func TestRunAgainstService(t *testing.T) {
	Convey("Given the API over an in-memory service", t, func() {
		svc := service.New(service.WithWorkerCount(1), service.WithBackfillOnComplete(false))
		srv := httptest.NewServer(api.NewServer(svc, svc).Routes())
		defer srv.Close()

		cfg := baseConfig(srv.URL)
		cfg.OutputFile = filepath.Join(t.TempDir(), "out", "fixtures.json")

		Convey("When racing contenders through assign and complete", func() {
			stats, err := simulation.Run(context.Background(), cfg)

			Convey("Then every invariant holds", func() {
				So(err, ShouldBeNil)
				So(stats.Violations, ShouldBeEmpty)
				So(stats.WorkersSeeded, ShouldEqual, 6)
				So(stats.ItemsSeeded, ShouldEqual, 30)
				So(stats.AssignAttempts, ShouldEqual, 90)
				So(stats.Failed, ShouldEqual, 0)
				So(stats.Assigned, ShouldBeGreaterThan, 0)
				So(stats.Assigned, ShouldBeLessThanOrEqualTo, 30)
				So(stats.Completed, ShouldEqual, stats.Assigned)
				So(stats.Assigned+stats.NoSuitable+stats.Conflicts, ShouldEqual, 90)
			})

			Convey("Then the fixtures were written", func() {
				data, err := os.ReadFile(cfg.OutputFile)
				So(err, ShouldBeNil)
				var fx simulation.Fixtures
				So(json.Unmarshal(data, &fx), ShouldBeNil)
				So(fx.Items, ShouldHaveLength, 30)
			})
		})
	})
}

// lenient grants every assign request and reports a broken worker.
func lenient() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /workers", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /items", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	mux.HandleFunc("POST /items/{id}/assign", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"outcome":"assigned","item_id":"`+r.PathValue("id")+
			`","assignment_id":"a-`+r.PathValue("id")+`","worker_id":"w","estimated_hours":2}`)
	})
	mux.HandleFunc("POST /assignments/{id}/complete", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	})
	mux.HandleFunc("GET /workers/{id}", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"worker_id":"`+r.PathValue("id")+`","workload_hours":-1,"performance_score":50}`)
	})
	return mux
}

func TestVerificationCatchesViolations(t *testing.T) {
	Convey("Given a service that grants every request", t, func() {
		srv := httptest.NewServer(lenient())
		defer srv.Close()

		cfg := baseConfig(srv.URL)
		cfg.Workers, cfg.Items, cfg.Contenders = 1, 2, 2

		stats, err := simulation.Run(context.Background(), cfg)

		So(simulation.IsViolation(err), ShouldBeTrue)
		joined := strings.Join(stats.Violations, "\n")
		So(joined, ShouldContainSubstring, "granted 2 times")
		So(joined, ShouldContainSubstring, "negative workload")
		So(joined, ShouldContainSubstring, "completed tasks")
	})
}
