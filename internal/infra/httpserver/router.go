package httpserver

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	appruns "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/application/runs"
	domai "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/ai"
	domain "github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/domain/runs"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/infra/metrics"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/logger"
	"github.com/tomhorwitzsynthesis/akropolis-monthly-tracking-test/internal/middleware"
)

// RunService is the part of runs.Service the API drives.
type RunService interface {
	Start(ctx context.Context, cmd appruns.TriggerCommand) (*domain.Run, error)
	TriggerUntilDone(run *domain.Run, cmd appruns.TriggerCommand) (appruns.TriggerResult, error)
	Latest(ctx context.Context, tenant string, limit int) ([]*domain.Run, error)
	Get(ctx context.Context, tenant string, id domain.RunID) (*domain.Run, error)
	FailuresOf(ctx context.Context, tenant string, id domain.RunID, limit int) ([]*domain.Failure, error)
}

type Deps struct {
	Runs    RunService
	Log     logger.Logger
	Metrics *metrics.Metrics
	// APIKeys maps tenant to key. Empty disables authentication.
	APIKeys     map[string]string
	RateLimiter *middleware.RateLimiter
	Checkers    map[string]middleware.HealthChecker
	CORSOrigins []string
}

type Router struct {
	runs    RunService
	log     logger.Logger
	metrics *metrics.Metrics
	mux     chi.Router
	// background runs still executing
	wg sync.WaitGroup
}

// badRequest marks client errors found while decoding a request.
type badRequest struct{ err error }

func (e badRequest) Error() string { return e.err.Error() }
func (e badRequest) Unwrap() error { return e.err }

func NewRouter(d Deps) *Router {
	if d.Log == nil {
		d.Log = logger.NewNop()
	}
	if d.Metrics == nil {
		d.Metrics = metrics.New()
	}
	r := &Router{runs: d.Runs, log: d.Log, metrics: d.Metrics}

	origins := d.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	mux := chi.NewRouter()
	mux.Use(chimw.RequestID, chimw.Recoverer)
	mux.Use(middleware.Metrics(d.Metrics), middleware.Logging(d.Log))
	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
		MaxAge:         300,
	}))

	mux.Get("/health", middleware.HealthHandler(d.Checkers))
	mux.Get("/ready", middleware.ReadinessHandler(d.Checkers))
	mux.Get("/live", middleware.LivenessHandler)
	mux.Handle("/metrics", d.Metrics.Handler())

	mux.Route("/v1", func(v1 chi.Router) {
		if len(d.APIKeys) > 0 {
			v1.Use(middleware.APIKeyAuth(d.APIKeys))
		}
		if d.RateLimiter != nil {
			v1.Use(middleware.RateLimit(d.RateLimiter))
		}
		v1.Route("/{tenant}", func(rt chi.Router) {
			rt.Use(middleware.RequireTenant)
			rt.Post("/runs", r.wrap(r.handleTrigger))
			rt.Get("/runs/latest", r.wrap(r.handleLatest))
			rt.Get("/runs/{id}", r.wrap(r.handleGet))
			rt.Get("/runs/{id}/failures", r.wrap(r.handleFailures))
		})
	})
	r.mux = mux
	return r
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) { r.mux.ServeHTTP(w, req) }

// Wait blocks until background runs finish or ctx is done.
func (r *Router) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		err := h(w, req)
		if err == nil {
			return
		}
		var br badRequest
		switch {
		case errors.Is(err, sql.ErrNoRows):
			http.Error(w, "not found", http.StatusNotFound)
		case errors.As(err, &br), errors.Is(err, appruns.ErrInvalidCommand):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, domai.ErrQuotaExceeded):
			http.Error(w, "ai quota exceeded", http.StatusTooManyRequests)
		default:
			r.log.Error("request failed", logger.String("path", req.URL.Path), logger.Error(err))
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
	}
}

// POST /v1/{tenant}/runs
// Body: {"analysis": "creativity", "media": "pr", "source": "<object key>", "sheet": "", "columns": {...}}
func (r *Router) handleTrigger(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")

	var cmd appruns.TriggerCommand
	dec := json.NewDecoder(http.MaxBytesReader(w, req.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&cmd); err != nil {
		return badRequest{fmt.Errorf("decode body: %w", err)}
	}
	cmd.TenantID = tenant
	cmd.Local = false
	cmd.Source = middleware.SanitizeString(cmd.Source)
	if err := middleware.ValidateObjectKey(cmd.Source); err != nil {
		return badRequest{err}
	}

	run, err := r.runs.Start(req.Context(), cmd)
	if err != nil {
		return err
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		res, err := r.runs.TriggerUntilDone(run, cmd)
		r.metrics.ObserveRun(string(run.Kind), res.Status)
		if err != nil {
			r.log.Error("background run failed",
				logger.String("tenant", tenant), logger.String("run_id", string(run.ID)), logger.Error(err))
			return
		}
		r.log.Info("run finished",
			logger.String("tenant", tenant), logger.String("run_id", res.ID), logger.String("artifact", res.ArtifactURL))
	}()

	return writeJSON(w, http.StatusAccepted, map[string]any{
		"id":        run.ID,
		"status":    run.Status,
		"tenant":    tenant,
		"analysis":  run.Kind,
		"media":     run.Media,
		"message":   "run started in background",
		"queued_at": run.TriggeredAt,
	})
}

// GET /v1/{tenant}/runs/latest?limit=20
func (r *Router) handleLatest(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))

	list, err := r.runs.Latest(req.Context(), tenant, middleware.ValidateLimit(limit))
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

// GET /v1/{tenant}/runs/{id}
func (r *Router) handleGet(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id, err := runID(req)
	if err != nil {
		return err
	}
	run, err := r.runs.Get(req.Context(), tenant, id)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, run)
}

// GET /v1/{tenant}/runs/{id}/failures?limit=100
func (r *Router) handleFailures(w http.ResponseWriter, req *http.Request) error {
	tenant := chi.URLParam(req, "tenant")
	id, err := runID(req)
	if err != nil {
		return err
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	if limit <= 0 {
		limit = 100
	}
	list, err := r.runs.FailuresOf(req.Context(), tenant, id, limit)
	if err != nil {
		return err
	}
	return writeJSON(w, http.StatusOK, list)
}

func runID(req *http.Request) (domain.RunID, error) {
	id := chi.URLParam(req, "id")
	if err := middleware.ValidateRunID(id); err != nil {
		return "", badRequest{err}
	}
	return domain.RunID(id), nil
}

func writeJSON(w http.ResponseWriter, code int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	return json.NewEncoder(w).Encode(v)
}
