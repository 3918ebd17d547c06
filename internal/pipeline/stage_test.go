package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
)

func newState() *model.WorkflowState {
	return model.NewWorkflowState(model.ComplaintRecord{
		ID:          "c-1",
		ExternalID:  "RA-1",
		Source:      model.SourceReclameAqui,
		Title:       "Pedido não chegou",
		Description: "Comprei e não recebi",
	}, time.Now())
}

func TestRunner_Success(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")
	st := newState()

	out := r.Execute(context.Background(), s, st)

	assert.NoError(t, out.Err)
	assert.False(t, out.Skipped)
	assert.Equal(t, "analyze", out.Stage)
	assert.Equal(t, model.StatusAnalyzed, out.Status)
	assert.Equal(t, model.StatusAnalyzed, st.Status)
	assert.Empty(t, st.Errors)
}

func TestRunner_InitOnceAcrossRecords(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")

	for i := 0; i < 3; i++ {
		r.Execute(context.Background(), s, newState())
	}

	assert.Equal(t, 1, s.initCalls)
	assert.Equal(t, 3, s.procCalls)
}

func TestRunner_InitErrorIsSticky(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("route")
	s.failure = model.StatusFailedRouting
	s.initFn = func() error { return errors.New("teams file missing") }

	first := newState()
	out := r.Execute(context.Background(), s, first)
	require.Error(t, out.Err)
	assert.Equal(t, model.StatusFailedRouting, first.Status)
	assert.Equal(t, []string{"[route] Unexpected: teams file missing"}, first.Errors)

	second := newState()
	r.Execute(context.Background(), s, second)
	assert.Equal(t, model.StatusFailedRouting, second.Status)
	assert.Equal(t, 1, s.initCalls)
	assert.Zero(t, s.procCalls)
}

func TestRunner_ValidationFailure(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")
	s.validFn = func(*model.WorkflowState) error { return eris.New("Missing title or description") }
	st := newState()

	out := r.Execute(context.Background(), s, st)

	require.Error(t, out.Err)
	assert.Equal(t, model.StatusFailedLLM, st.Status)
	assert.Equal(t, []string{"[analyze] Invalid input state: Missing title or description"}, st.Errors)
	assert.Zero(t, s.procCalls)
}

func TestRunner_StageError(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")
	s.procFn = func(*model.WorkflowState) error {
		return &StageError{Message: "LLM analysis failed", Err: errors.New("timeout")}
	}
	st := newState()

	r.Execute(context.Background(), s, st)

	assert.Equal(t, model.StatusFailedLLM, st.Status)
	assert.Equal(t, []string{"[analyze] LLM analysis failed: timeout"}, st.Errors)
}

func TestRunner_StageErrorOverridesStatus(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("communicate")
	s.success = model.StatusCompleted
	s.failure = model.StatusFailedJira
	s.procFn = func(*model.WorkflowState) error {
		return &StageError{Message: "smtp down", Status: model.StatusFailedEmail}
	}
	st := newState()

	r.Execute(context.Background(), s, st)

	assert.Equal(t, model.StatusFailedEmail, st.Status)
	assert.Equal(t, []string{"[communicate] smtp down"}, st.Errors)
}

func TestRunner_UnexpectedError(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")
	s.procFn = func(*model.WorkflowState) error { return errors.New("nil map") }
	st := newState()

	r.Execute(context.Background(), s, st)

	assert.Equal(t, model.StatusFailedLLM, st.Status)
	assert.Equal(t, []string{"[analyze] Unexpected: nil map"}, st.Errors)
}

func TestRunner_RecoversPanic(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("analyze")
	s.procFn = func(*model.WorkflowState) error { panic("boom") }
	st := newState()

	out := r.Execute(context.Background(), s, st)

	require.Error(t, out.Err)
	assert.Equal(t, model.StatusFailedLLM, st.Status)
	assert.Equal(t, []string{"[analyze] Unexpected: boom"}, st.Errors)
}

func TestRunner_SkipsFailedState(t *testing.T) {
	r := NewRunner(nil)
	s := newFakeStage("route")
	st := newState()
	st.Status = model.StatusFailedLLM
	st.AddError("[analyze] LLM analysis failed: x")

	out := r.Execute(context.Background(), s, st)

	assert.True(t, out.Skipped)
	assert.Equal(t, model.StatusFailedLLM, out.Status)
	assert.Equal(t, model.StatusFailedLLM, st.Status)
	assert.Len(t, st.Errors, 1)
	assert.Zero(t, s.initCalls)
	assert.Zero(t, s.procCalls)
}

func TestRunner_RecordsMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.InitMetrics(reg)
	r := NewRunner(m)

	ok := newFakeStage("analyze")
	bad := newFakeStage("route")
	bad.failure = model.StatusFailedRouting
	bad.procFn = func(*model.WorkflowState) error { return errors.New("x") }

	r.Execute(context.Background(), ok, newState())
	r.Execute(context.Background(), bad, newState())

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRunsTotal.WithLabelValues("analyze", "ANALYZED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.StageRunsTotal.WithLabelValues("route", "FAILED_ROUTING")))
}

func TestRunner_Spans(t *testing.T) {
	exp := tracetest.NewInMemoryExporter()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSyncer(exp))
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	r := NewRunner(nil)
	s := newFakeStage("analyze")
	s.procFn = func(*model.WorkflowState) error { return errors.New("x") }
	r.Execute(context.Background(), s, newState())

	spans := exp.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "pipeline.analyze", spans[0].Name)
	assert.Equal(t, codes.Error, spans[0].Status.Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "c-1", attrs["complaint.id"])
	assert.Equal(t, "FAILED_LLM", attrs["workflow.status"])
}
