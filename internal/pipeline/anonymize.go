package pipeline

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/privacy"
)

// AnonymizeStage produces the PII-free copy of the raw complaint that every
// later stage reads. A failure here blocks the record from reaching the
// model, so it shares the classification failure status.
type AnonymizeStage struct {
	redactor *privacy.Redactor
	metrics  *metrics.Metrics
}

// NewAnonymizeStage creates the anonymization stage.
func NewAnonymizeStage(r *privacy.Redactor, m *metrics.Metrics) *AnonymizeStage {
	return &AnonymizeStage{redactor: r, metrics: m}
}

func (s *AnonymizeStage) Name() string                        { return "anonymize" }
func (s *AnonymizeStage) SuccessStatus() model.WorkflowStatus { return model.StatusAnonymized }
func (s *AnonymizeStage) FailureStatus() model.WorkflowStatus { return model.StatusFailedLLM }

func (s *AnonymizeStage) Init(context.Context) error {
	if s.redactor == nil {
		s.redactor = privacy.NewRedactor()
	}
	return nil
}

func (s *AnonymizeStage) Validate(state *model.WorkflowState) error {
	if state.Raw.Source == "" {
		return eris.New("missing source")
	}
	return nil
}

func (s *AnonymizeStage) Process(_ context.Context, state *model.WorkflowState) error {
	if state.Anonymized != nil {
		return nil
	}

	anon, n := s.redactor.Anonymize(state.Raw)
	state.Anonymized = &anon
	s.metrics.RecordRedactions(n)

	zap.L().Info("pipeline: complaint anonymized",
		zap.String("complaint_id", state.ComplaintID()),
		zap.Int("pii_masked", n),
	)
	return nil
}
