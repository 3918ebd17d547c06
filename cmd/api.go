package main

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/cost"
	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/notify"
	"github.com/Vini334/ReclamaAI/internal/pipeline"
	"github.com/Vini334/ReclamaAI/internal/store"
	"github.com/Vini334/ReclamaAI/internal/ticket"
)

// maxBodyBytes bounds request bodies accepted by the API.
const maxBodyBytes = 1 << 20

// api serves the complaint endpoints over a pipeline environment.
type api struct {
	orch         *pipeline.Orchestrator
	store        store.Store // nil when persistence is off
	tickets      *ticket.Simulator
	outbox       *notify.Simulator
	costs        *cost.Calculator
	metrics      *metrics.Metrics
	gatherer     prometheus.Gatherer
	defaultLimit int
	now          func() time.Time
}

func newAPI(env *pipelineEnv, defaultLimit int) *api {
	a := &api{
		orch:         env.Orchestrator,
		tickets:      env.Tickets,
		outbox:       env.Outbox,
		costs:        env.Costs,
		metrics:      env.Metrics,
		gatherer:     env.Registry,
		defaultLimit: defaultLimit,
		now:          time.Now,
	}
	if env.Store != nil {
		a.store = env.Store
	}
	return a
}

// router builds the HTTP handler.
func (a *api) router(allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.metrics.Middleware)
	// CORS must wrap the mux itself so preflight requests never reach
	// chi's method-not-allowed handler.
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/health", a.handleHealth)
	r.Handle("/metrics", metrics.Handler(a.gatherer))

	r.Route("/complaints", func(r chi.Router) {
		r.Get("/", a.handleListComplaints)
		r.Post("/process", a.handleProcessBatch)
		r.Post("/process-single", a.handleProcessSingle)
		r.Get("/stats/summary", a.handleStoreStats)
		r.Get("/orchestrator/stats", a.handleOrchestratorStats)
		r.Get("/audit/{id}", a.handleAudit)
		r.Get("/{id}", a.handleGetComplaint)
		r.Post("/{id}/reprocess", a.handleReprocess)
	})

	return r
}

func writeJSONResponse(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

func writeErrorResponse(w http.ResponseWriter, status int, msg string) {
	writeJSONResponse(w, status, map[string]string{"error": msg})
}

// writeStoreError maps a store error to a response.
func writeStoreError(w http.ResponseWriter, err error, what string) {
	if eris.Is(err, store.ErrNotFound) {
		writeErrorResponse(w, http.StatusNotFound, what+" not found")
		return
	}
	zap.L().Error("api: store request failed", zap.String("what", what), zap.Error(err))
	writeErrorResponse(w, http.StatusInternalServerError, "internal error")
}

// requireStore writes 503 and reports false when persistence is off.
func (a *api) requireStore(w http.ResponseWriter) bool {
	if a.store == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, "persistence is disabled")
		return false
	}
	return true
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	storeStatus := "disabled"
	if a.store != nil {
		storeStatus = "ok"
		if err := a.store.Ping(r.Context()); err != nil {
			zap.L().Warn("api: store ping failed", zap.Error(err))
			storeStatus = "unavailable"
		}
	}
	writeJSONResponse(w, http.StatusOK, map[string]string{
		"status":    "ok",
		"store":     storeStatus,
		"timestamp": a.now().UTC().Format(time.RFC3339),
	})
}

func (a *api) handleListComplaints(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	q := r.URL.Query()

	var filter store.ComplaintFilter
	if s := q.Get("source"); s != "" {
		src, ok := model.ParseSource(s)
		if !ok {
			writeErrorResponse(w, http.StatusBadRequest, "unknown source "+s)
			return
		}
		filter.Source = src
	}
	if s := q.Get("status"); s != "" {
		filter.Status = model.WorkflowStatus(s)
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit"), 50); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid limit")
		return
	}
	if filter.Offset, err = intParam(q.Get("offset"), 0); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid offset")
		return
	}

	states, err := a.store.ListComplaints(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "complaints")
		return
	}
	if states == nil {
		states = []*model.WorkflowState{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"complaints": states,
		"count":      len(states),
	})
}

func (a *api) handleGetComplaint(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	st, err := a.store.GetComplaint(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "complaint")
		return
	}
	writeJSONResponse(w, http.StatusOK, st)
}

// processRequest is the body of POST /complaints/process.
type processRequest struct {
	Limit  int    `json:"limit"`
	Source string `json:"source"`
}

func (a *api) handleProcessBatch(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	var source model.ComplaintSource
	if req.Source != "" {
		s, ok := model.ParseSource(req.Source)
		if !ok {
			writeErrorResponse(w, http.StatusBadRequest, "unknown source "+req.Source)
			return
		}
		source = s
	}
	limit := req.Limit
	if limit <= 0 {
		limit = a.defaultLimit
	}

	res, err := a.orch.ProcessBatch(r.Context(), pipeline.BatchRequest{Source: source, Limit: limit})
	if err != nil {
		zap.L().Error("api: batch failed", zap.Error(err))
		writeErrorResponse(w, http.StatusInternalServerError, "batch processing failed")
		return
	}
	writeJSONResponse(w, http.StatusOK, res)
}

func (a *api) handleProcessSingle(w http.ResponseWriter, r *http.Request) {
	var rec model.ComplaintRecord
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !rec.Source.Valid() {
		writeErrorResponse(w, http.StatusBadRequest, "unknown source "+string(rec.Source))
		return
	}

	st := a.orch.ProcessComplaint(r.Context(), rec)
	writeJSONResponse(w, http.StatusOK, st)
}

func (a *api) handleReprocess(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	st, err := a.orch.Reprocess(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeStoreError(w, err, "complaint")
		return
	}
	writeJSONResponse(w, http.StatusOK, st)
}

func (a *api) handleStoreStats(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	stats, err := a.store.Stats(r.Context())
	if err != nil {
		writeStoreError(w, err, "stats")
		return
	}
	writeJSONResponse(w, http.StatusOK, stats)
}

// orchestratorStats is the body of GET /complaints/orchestrator/stats.
type orchestratorStats struct {
	Workflow pipeline.Stats `json:"workflow"`
	Tickets  ticket.Stats   `json:"tickets"`
	Emails   notify.Stats   `json:"emails"`
	LLM      cost.Summary   `json:"llm"`
}

func (a *api) handleOrchestratorStats(w http.ResponseWriter, _ *http.Request) {
	writeJSONResponse(w, http.StatusOK, orchestratorStats{
		Workflow: a.orch.Stats(),
		Tickets:  a.tickets.Stats(),
		Emails:   a.outbox.Stats(),
		LLM:      a.costs.Summary(),
	})
}

func (a *api) handleAudit(w http.ResponseWriter, r *http.Request) {
	if !a.requireStore(w) {
		return
	}
	q := r.URL.Query()

	filter := store.AuditFilter{
		ComplaintID: chi.URLParam(r, "id"),
		EventType:   q.Get("event_type"),
	}
	var err error
	if filter.From, err = dateParam(q.Get("from")); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid from date, want YYYY-MM-DD")
		return
	}
	if filter.To, err = dateParam(q.Get("to")); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid to date, want YYYY-MM-DD")
		return
	}
	if filter.Limit, err = intParam(q.Get("limit"), 100); err != nil {
		writeErrorResponse(w, http.StatusBadRequest, "invalid limit")
		return
	}

	evs, err := a.store.GetAuditLog(r.Context(), filter)
	if err != nil {
		writeStoreError(w, err, "audit log")
		return
	}
	if evs == nil {
		evs = []store.AuditEvent{}
	}
	writeJSONResponse(w, http.StatusOK, map[string]any{
		"complaint_id": filter.ComplaintID,
		"events":       evs,
		"count":        len(evs),
	})
}

func intParam(raw string, def int) (int, error) {
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, eris.Errorf("invalid integer %q", raw)
	}
	return n, nil
}

func dateParam(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(store.EventDateLayout, raw)
	if err != nil {
		return time.Time{}, eris.Wrapf(err, "parse date %q", raw)
	}
	return t, nil
}
