package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
)

const tracerName = "github.com/Vini334/ReclamaAI/internal/pipeline"

// Span attribute keys.
var (
	AttrComplaintID = attribute.Key("complaint.id")
	AttrSource      = attribute.Key("complaint.source")
	AttrStage       = attribute.Key("pipeline.stage")
	AttrStatus      = attribute.Key("workflow.status")
)

// Stage is one step of the complaint workflow. Implementations are long-lived
// and shared across records; per-record data lives on the WorkflowState.
type Stage interface {
	Name() string
	SuccessStatus() model.WorkflowStatus
	FailureStatus() model.WorkflowStatus

	// Init acquires shared resources. The Runner calls it at most once per
	// stage.
	Init(ctx context.Context) error

	// Validate reports why state cannot be processed, or nil.
	Validate(state *model.WorkflowState) error

	// Process populates the stage's output on state. Recoverable collaborator
	// failures are returned as *StageError.
	Process(ctx context.Context, state *model.WorkflowState) error
}

// StageError is a recoverable failure reported by a stage. Status, when set,
// replaces the stage's declared failure status.
type StageError struct {
	Message string
	Status  model.WorkflowStatus
	Err     error
}

func (e *StageError) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *StageError) Unwrap() error { return e.Err }

// Failf returns a StageError with a formatted message and the stage's default
// failure status.
func Failf(format string, args ...any) *StageError {
	return &StageError{Message: fmt.Sprintf(format, args...)}
}

// Outcome is the result of running one stage on one record.
type Outcome struct {
	Stage    string
	Status   model.WorkflowStatus
	Err      error
	Skipped  bool
	Duration time.Duration
}

// Failed reports whether the stage left the workflow in a failure status.
func (o Outcome) Failed() bool {
	return o.Status.IsFailed()
}

type stageInit struct {
	once sync.Once
	err  error
}

// Runner executes stages with the shared envelope: one-time init,
// validation, processing, status transition and error capture. Nothing a
// stage does escapes as a panic or returned error; failures are recorded on
// the WorkflowState.
type Runner struct {
	metrics *metrics.Metrics
	tracer  trace.Tracer

	mu    sync.Mutex
	inits map[Stage]*stageInit
}

// NewRunner creates a Runner. A nil metrics value disables metrics.
func NewRunner(m *metrics.Metrics) *Runner {
	return &Runner{
		metrics: m,
		tracer:  otel.Tracer(tracerName),
		inits:   make(map[Stage]*stageInit),
	}
}

func (r *Runner) initOnce(ctx context.Context, s Stage) error {
	r.mu.Lock()
	si, ok := r.inits[s]
	if !ok {
		si = &stageInit{}
		r.inits[s] = si
	}
	r.mu.Unlock()

	si.once.Do(func() {
		si.err = s.Init(ctx)
		if si.err == nil {
			zap.L().Info("pipeline: stage initialized", zap.String("stage", s.Name()))
		}
	})
	return si.err
}

// Execute runs s on state. A state already in a FAILED_* status is left
// untouched and the outcome is marked skipped.
func (r *Runner) Execute(ctx context.Context, s Stage, state *model.WorkflowState) (out Outcome) {
	name := s.Name()
	out.Stage = name
	id := state.ComplaintID()

	if state.IsFailed() {
		zap.L().Debug("pipeline: skipping stage, workflow already failed",
			zap.String("stage", name),
			zap.String("complaint_id", id),
			zap.String("status", string(state.Status)),
		)
		out.Status = state.Status
		out.Skipped = true
		return out
	}

	start := time.Now()
	ctx, span := r.tracer.Start(ctx, "pipeline."+name, trace.WithAttributes(
		AttrStage.String(name),
		AttrComplaintID.String(id),
		AttrSource.String(string(state.Raw.Source)),
	))

	defer func() {
		if p := recover(); p != nil {
			out.Err = eris.Errorf("panic: %v", p)
			state.AddError(fmt.Sprintf("[%s] Unexpected: %v", name, p))
			state.Status = s.FailureStatus()
		}

		out.Status = state.Status
		out.Duration = time.Since(start)

		span.SetAttributes(AttrStatus.String(string(out.Status)))
		if out.Err != nil {
			span.RecordError(out.Err)
			span.SetStatus(codes.Error, out.Err.Error())
		}
		span.End()
		r.metrics.RecordStage(name, string(out.Status), out.Duration)

		fields := []zap.Field{
			zap.String("stage", name),
			zap.String("complaint_id", id),
			zap.String("status", string(out.Status)),
			zap.Int64("duration_ms", out.Duration.Milliseconds()),
		}
		if out.Err != nil {
			zap.L().Warn("pipeline: stage failed", append(fields, zap.Error(out.Err))...)
			return
		}
		zap.L().Info("pipeline: stage complete", fields...)
	}()

	if err := r.initOnce(ctx, s); err != nil {
		out.Err = eris.Wrapf(err, "pipeline: init %s", name)
		state.AddError(fmt.Sprintf("[%s] Unexpected: %v", name, err))
		state.Status = s.FailureStatus()
		return out
	}

	if err := s.Validate(state); err != nil {
		out.Err = err
		state.AddError(fmt.Sprintf("[%s] Invalid input state: %v", name, err))
		state.Status = s.FailureStatus()
		return out
	}

	err := s.Process(ctx, state)
	if err == nil {
		state.Status = s.SuccessStatus()
		return out
	}
	out.Err = err

	var se *StageError
	if errors.As(err, &se) {
		state.AddError(fmt.Sprintf("[%s] %s", name, se.Error()))
		if se.Status != "" {
			state.Status = se.Status
		} else {
			state.Status = s.FailureStatus()
		}
		return out
	}

	state.AddError(fmt.Sprintf("[%s] Unexpected: %v", name, err))
	state.Status = s.FailureStatus()
	return out
}
