// Package pipeline runs complaints through the anonymize, analyze, route and
// communicate stages and keeps the per-record workflow state.
package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/events"
	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/store"
)

// EventReprocessed is logged after a stored complaint is run again.
const EventReprocessed = "reprocessed"

// Loader supplies raw complaints for batches that do not carry their own.
type Loader interface {
	Load(ctx context.Context, source model.ComplaintSource, limit int) ([]model.ComplaintRecord, error)
}

// Deps are the collaborators of an Orchestrator. Store, Events and Loader
// are optional; persistence and auditing are skipped when unset.
type Deps struct {
	Anonymize   Stage
	Analyze     Stage
	Route       Stage
	Communicate Stage

	Store   store.Store
	Events  events.Sink
	Loader  Loader
	Metrics *metrics.Metrics
}

// Stats counts the complaints processed since the last reset.
type Stats struct {
	TotalProcessed int            `json:"total_processed"`
	Successful     int            `json:"successful"`
	Failed         int            `json:"failed"`
	ByStatus       map[string]int `json:"by_status"`
}

// BatchRequest selects the complaints of a batch. When Records is nil they
// are loaded from the Loader, filtered by Source.
type BatchRequest struct {
	Records []model.ComplaintRecord
	Source  model.ComplaintSource
	Limit   int
}

// BatchResult is the outcome of a batch, one state per processed record in
// input order.
type BatchResult struct {
	States     []*model.WorkflowState `json:"results"`
	Total      int                    `json:"total"`
	Successful int                    `json:"successful"`
	Failed     int                    `json:"failed"`
	Duration   time.Duration          `json:"duration"`
}

// Orchestrator sequences the stages for one record at a time. Stage
// instances are shared by every record it processes.
type Orchestrator struct {
	runner  *Runner
	stages  []Stage
	store   store.Store
	events  events.Sink
	loader  Loader
	metrics *metrics.Metrics
	tracer  trace.Tracer
	now     func() time.Time

	mu    sync.Mutex
	stats Stats
}

// New creates an Orchestrator. All four stages are required.
func New(d Deps) (*Orchestrator, error) {
	stages := []Stage{d.Anonymize, d.Analyze, d.Route, d.Communicate}
	for i, s := range stages {
		if s == nil {
			return nil, eris.Errorf("pipeline: stage %d not configured", i+1)
		}
	}
	return &Orchestrator{
		runner:  NewRunner(d.Metrics),
		stages:  stages,
		store:   d.Store,
		events:  d.Events,
		loader:  d.Loader,
		metrics: d.Metrics,
		tracer:  otel.Tracer(tracerName),
		now:     time.Now,
		stats:   newStats(),
	}, nil
}

func newStats() Stats {
	return Stats{ByStatus: map[string]int{}}
}

// ProcessComplaint runs one complaint through every stage and returns its
// final state. Stage failures are recorded on the state, never returned.
func (o *Orchestrator) ProcessComplaint(ctx context.Context, rec model.ComplaintRecord) *model.WorkflowState {
	state := o.newState(rec)
	o.execute(ctx, state)
	o.record(state)
	return state
}

func (o *Orchestrator) newState(rec model.ComplaintRecord) *model.WorkflowState {
	now := o.now().UTC()
	rec = rec.WithDefaults(now)
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	return model.NewWorkflowState(rec, now)
}

func (o *Orchestrator) execute(ctx context.Context, state *model.WorkflowState) {
	id := state.ComplaintID()
	ctx, span := o.tracer.Start(ctx, "pipeline.process_complaint", trace.WithAttributes(
		AttrComplaintID.String(id),
		AttrSource.String(string(state.Raw.Source)),
	))
	defer span.End()

	zap.L().Info("pipeline: processing complaint",
		zap.String("complaint_id", id),
		zap.String("source", string(state.Raw.Source)),
	)

	for _, s := range o.stages {
		out := o.runner.Execute(ctx, s, state)
		if out.Skipped {
			break
		}
		o.saveState(ctx, state, s.Name())
		if out.Failed() {
			break
		}
	}
	span.SetAttributes(AttrStatus.String(string(state.Status)))
}

// saveState persists the state and audits the step. Failures are logged and
// counted, never surfaced.
func (o *Orchestrator) saveState(ctx context.Context, state *model.WorkflowState, step string) {
	id := state.ComplaintID()

	if o.store != nil {
		if _, err := o.store.SaveComplaint(ctx, state); err != nil {
			o.metrics.RecordPersistFailure("save")
			zap.L().Warn("pipeline: failed to save state",
				zap.String("complaint_id", id),
				zap.String("step", step),
				zap.Error(err),
			)
		}
	}

	if o.events != nil {
		ev := events.Event{
			ComplaintID: id,
			EventType:   "step_" + step,
			Details: map[string]any{
				"status": string(state.Status),
				"step":   step,
			},
			OccurredAt: o.now().UTC(),
		}
		if err := o.events.Record(ctx, ev); err != nil {
			o.metrics.RecordPersistFailure("audit")
			zap.L().Warn("pipeline: failed to log event",
				zap.String("complaint_id", id),
				zap.String("event_type", ev.EventType),
				zap.Error(err),
			)
		}
	}
}

// ProcessBatch processes complaints strictly one after another. A record
// that fails, or panics outside a stage, does not stop the batch. Only a
// load failure or a canceled context ends it early; the states processed so
// far are returned with the error.
func (o *Orchestrator) ProcessBatch(ctx context.Context, req BatchRequest) (BatchResult, error) {
	start := time.Now()
	o.metrics.RecordBatch()

	records := req.Records
	if records == nil {
		if o.loader == nil {
			return BatchResult{}, eris.New("pipeline: no complaint loader configured")
		}
		loaded, err := o.loader.Load(ctx, req.Source, req.Limit)
		if err != nil {
			return BatchResult{}, eris.Wrap(err, "pipeline: load batch")
		}
		records = loaded
	}
	if req.Limit > 0 && len(records) > req.Limit {
		records = records[:req.Limit]
	}

	zap.L().Info("pipeline: processing batch", zap.Int("count", len(records)))

	res := BatchResult{States: make([]*model.WorkflowState, 0, len(records))}
	for i, rec := range records {
		if err := ctx.Err(); err != nil {
			res.Duration = time.Since(start)
			return res, eris.Wrapf(err, "pipeline: batch stopped after %d of %d", i, len(records))
		}

		state := o.processGuarded(ctx, rec)
		res.States = append(res.States, state)
		res.Total++
		switch {
		case state.Status == model.StatusCompleted:
			res.Successful++
		case state.IsFailed():
			res.Failed++
		}
	}
	res.Duration = time.Since(start)

	zap.L().Info("pipeline: batch complete",
		zap.Int("total", res.Total),
		zap.Int("successful", res.Successful),
		zap.Int("failed", res.Failed),
		zap.Int64("duration_ms", res.Duration.Milliseconds()),
	)
	return res, nil
}

func (o *Orchestrator) processGuarded(ctx context.Context, rec model.ComplaintRecord) (state *model.WorkflowState) {
	state = o.newState(rec)
	defer func() {
		if p := recover(); p != nil {
			zap.L().Error("pipeline: complaint processing panicked",
				zap.String("complaint_id", state.ComplaintID()),
				zap.Any("panic", p),
			)
			state.Status = model.StatusFailedLLM
			state.AddError(fmt.Sprint(p))
			o.record(state)
		}
	}()
	o.execute(ctx, state)
	o.record(state)
	return state
}

// Reprocess runs a stored complaint again from its raw record, discarding
// every previous output, and logs a reprocessed event.
func (o *Orchestrator) Reprocess(ctx context.Context, id string) (*model.WorkflowState, error) {
	if o.store == nil {
		return nil, eris.New("pipeline: reprocess needs a store")
	}
	prev, err := o.store.GetComplaint(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "pipeline: load complaint %s", id)
	}

	state := o.ProcessComplaint(ctx, prev.Raw)

	if o.events != nil {
		err := o.events.Record(ctx, events.Event{
			ComplaintID: state.ComplaintID(),
			EventType:   EventReprocessed,
			Details: map[string]any{
				"previous_status": string(prev.Status),
				"new_status":      string(state.Status),
			},
			OccurredAt: o.now().UTC(),
		})
		if err != nil {
			o.metrics.RecordPersistFailure("audit")
			zap.L().Warn("pipeline: failed to log reprocess event", zap.String("complaint_id", id), zap.Error(err))
		}
	}
	return state, nil
}

func (o *Orchestrator) record(state *model.WorkflowState) {
	o.metrics.RecordComplaint(string(state.Raw.Source), string(state.Status))

	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats.TotalProcessed++
	o.stats.ByStatus[string(state.Status)]++
	switch {
	case state.Status == model.StatusCompleted:
		o.stats.Successful++
	case state.IsFailed():
		o.stats.Failed++
	}
}

// Stats returns a snapshot of the counters.
func (o *Orchestrator) Stats() Stats {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.stats
	out.ByStatus = make(map[string]int, len(o.stats.ByStatus))
	for k, v := range o.stats.ByStatus {
		out.ByStatus[k] = v
	}
	return out
}

// ResetStats zeroes the counters.
func (o *Orchestrator) ResetStats() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.stats = newStats()
}
