package metrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"

	"github.com/allaspectsdev/traduko/internal/dispatch"
	"github.com/allaspectsdev/traduko/internal/store"
)

// DiagServer serves the JSON diagnostics API: live counters, pool
// composition, per-instance statistics, and the persisted event and job
// history.
type DiagServer struct {
	router    chi.Router
	collector *Collector
	coord     *dispatch.Coordinator
	store     *store.Store
	addr      string
	server    *http.Server
}

// NewDiagServer creates a DiagServer wired to the given collector,
// coordinator, optional history store, and listen address.
func NewDiagServer(collector *Collector, coord *dispatch.Coordinator, st *store.Store, addr string) *DiagServer {
	d := &DiagServer{
		collector: collector,
		coord:     coord,
		store:     st,
		addr:      addr,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)

	r.Get("/api/health", d.handleHealth)
	r.Get("/api/stats", d.handleStats)
	r.Get("/api/pool", d.handlePool)
	r.Get("/api/instances", d.handleInstances)
	r.Get("/api/events", d.handleEvents)
	r.Get("/api/jobs", d.handleJobs)
	r.Get("/api/jobs/summary", d.handleJobSummary)

	d.router = r
	return d
}

// Start begins listening on the configured address. It blocks until the
// server is shut down or an error occurs.
func (d *DiagServer) Start() error {
	d.server = &http.Server{
		Addr:         d.addr,
		Handler:      d.router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info().Str("addr", d.addr).Msg("diagnostics server starting")
	if err := d.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("diagnostics server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server.
func (d *DiagServer) Shutdown(ctx context.Context) error {
	if d.server == nil {
		return nil
	}
	return d.server.Shutdown(ctx)
}

// Handler exposes the router for tests.
func (d *DiagServer) Handler() http.Handler {
	return d.router
}

func (d *DiagServer) handleHealth(w http.ResponseWriter, _ *http.Request) {
	status := map[string]string{"status": "ok"}
	if d.store != nil {
		if err := d.store.Ping(); err != nil {
			status["status"] = "degraded"
			status["store"] = err.Error()
			writeJSON(w, http.StatusServiceUnavailable, status)
			return
		}
	}
	writeJSON(w, http.StatusOK, status)
}

func (d *DiagServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.collector.Stats())
}

// handlePool returns the ordered pool composition.
func (d *DiagServer) handlePool(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.coord.PoolDescription())
}

// handleInstances returns full per-instance counters.
func (d *DiagServer) handleInstances(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, d.coord.Statistics())
}

// handleEvents returns a page of persisted events, newest first.
// Accepts ?kind=, ?page=, ?limit=.
func (d *DiagServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	if d.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history store disabled"})
		return
	}

	limit, offset := pageParams(r)
	events, err := d.store.ListEvents(r.URL.Query().Get("kind"), limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list events")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}
	if events == nil {
		events = []*store.EventRecord{}
	}
	writeJSON(w, http.StatusOK, events)
}

// handleJobs returns a page of persisted job outcomes, newest first.
func (d *DiagServer) handleJobs(w http.ResponseWriter, r *http.Request) {
	if d.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history store disabled"})
		return
	}

	limit, offset := pageParams(r)
	jobs, err := d.store.ListJobs(limit, offset)
	if err != nil {
		log.Error().Err(err).Msg("failed to list jobs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}
	if jobs == nil {
		jobs = []*store.Job{}
	}
	writeJSON(w, http.StatusOK, jobs)
}

// handleJobSummary returns aggregate totals over the job history.
func (d *DiagServer) handleJobSummary(w http.ResponseWriter, _ *http.Request) {
	if d.store == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "history store disabled"})
		return
	}

	stats, err := d.store.Stats()
	if err != nil {
		log.Error().Err(err).Msg("failed to aggregate jobs")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "database error"})
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

// writeJSON serialises v as indented JSON with the proper content type.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Error().Err(err).Msg("failed to write JSON response")
	}
}

// pageParams reads ?page and ?limit with sane bounds.
func pageParams(r *http.Request) (limit, offset int) {
	page := queryInt(r, "page", 1)
	limit = queryInt(r, "limit", 50)
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 500 {
		limit = 50
	}
	return limit, (page - 1) * limit
}

// queryInt reads an integer query parameter with a default fallback.
func queryInt(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return defaultVal
	}
	return n
}
