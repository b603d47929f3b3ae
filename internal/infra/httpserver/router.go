package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/auditops/envsegd/internal/application/workflow"
	"github.com/auditops/envsegd/internal/domain/analysis"
	"github.com/auditops/envsegd/internal/domain/inventory"
	"github.com/auditops/envsegd/internal/middleware"
)

// Router exposes the on-demand trigger surface: start a workflow, inspect
// run history, health.
type Router struct {
	manager *workflow.Manager
	runs    analysis.RunRepository // optional
	log     *slog.Logger
}

func NewRouter(manager *workflow.Manager, runs analysis.RunRepository, apiKey string, checkers map[string]middleware.HealthChecker, log *slog.Logger) http.Handler {
	r := &Router{manager: manager, runs: runs, log: log}
	mux := chi.NewRouter()

	mux.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}))
	mux.Use(middleware.Logging(log))
	mux.Use(middleware.APIKeyAuth(apiKey))

	mux.Get("/health", middleware.HealthHandler(checkers))

	mux.Route("/v1", func(rt chi.Router) {
		rt.Post("/workflows/{process}/run", r.wrap(r.handleTrigger))
		rt.Get("/runs", r.wrap(r.handleRuns))
	})

	return mux
}

type handlerFunc func(http.ResponseWriter, *http.Request) error

var errNotConfigured = errors.New("run history not configured")

func (r *Router) wrap(h handlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		if err := h(w, req); err != nil {
			if errors.Is(err, errNotConfigured) {
				http.Error(w, err.Error(), http.StatusServiceUnavailable)
				return
			}
			http.Error(w, err.Error(), http.StatusBadRequest)
		}
	}
}

// POST /v1/workflows/{process}/run
// The workflow runs detached so the caller is not held for the full
// analysis; progress lands in the run history.
func (r *Router) handleTrigger(w http.ResponseWriter, req *http.Request) error {
	kind, err := inventory.ParseKind(chi.URLParam(req, "process"))
	if err != nil {
		return err
	}

	go func() {
		if err := r.manager.RunWorkflow(context.Background(), kind); err != nil {
			r.log.Error("triggered workflow failed", "workflow", string(kind), "error", err)
		}
	}()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	return json.NewEncoder(w).Encode(map[string]string{
		"process": string(kind),
		"status":  "started",
	})
}

// GET /v1/runs?limit=
func (r *Router) handleRuns(w http.ResponseWriter, req *http.Request) error {
	if r.runs == nil {
		return errNotConfigured
	}
	limit, _ := strconv.Atoi(req.URL.Query().Get("limit"))
	list, err := r.runs.Latest(req.Context(), limit)
	if err != nil {
		return err
	}
	if list == nil {
		list = []*analysis.AuditRun{}
	}
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(list)
}
