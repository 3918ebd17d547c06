package pipeline

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/registry"
)

// AnalyzeStage classifies the anonymized complaint with the language model
// and applies the keyword urgency ratchet.
type AnalyzeStage struct {
	classifier Classifier
	lexicon    *registry.Lexicon
	system     string
	now        func() time.Time
}

// NewAnalyzeStage creates the classification stage. A nil lexicon uses the
// built-in keyword and alias lists.
func NewAnalyzeStage(c Classifier, lex *registry.Lexicon) *AnalyzeStage {
	return &AnalyzeStage{classifier: c, lexicon: lex, now: time.Now}
}

func (s *AnalyzeStage) Name() string                        { return "analyze" }
func (s *AnalyzeStage) SuccessStatus() model.WorkflowStatus { return model.StatusAnalyzed }
func (s *AnalyzeStage) FailureStatus() model.WorkflowStatus { return model.StatusFailedLLM }

func (s *AnalyzeStage) Init(context.Context) error {
	if s.classifier == nil {
		return eris.New("analyze: no classifier configured")
	}
	if s.lexicon == nil {
		s.lexicon = registry.DefaultLexicon()
	}
	s.system = AnalystSystemPrompt()
	return nil
}

func (s *AnalyzeStage) Validate(state *model.WorkflowState) error {
	if state.Analysis != nil {
		return nil
	}
	rec := state.Source()
	if strings.TrimSpace(rec.Title) == "" || strings.TrimSpace(rec.Description) == "" {
		return eris.New("Missing title or description")
	}
	return nil
}

func (s *AnalyzeStage) Process(ctx context.Context, state *model.WorkflowState) error {
	if state.Analysis != nil {
		return nil
	}

	id := state.ComplaintID()
	rec := state.Source()

	raw, err := s.classifier.Classify(ctx, ClassifyRequest{
		System: s.system,
		User:   ClassificationPrompt(rec),
		Metadata: map[string]string{
			"complaint_id": id,
			"source":       string(state.Raw.Source),
			"stage":        s.Name(),
		},
	})

	var analysis model.Analysis
	switch {
	case err == nil:
		analysis = BuildAnalysis(id, raw, s.lexicon, s.now().UTC())
	case eris.Is(err, ErrMalformedReply):
		zap.L().Warn("analyze: unparseable classifier reply, using fallback",
			zap.String("complaint_id", id),
			zap.Error(err),
		)
		analysis = FallbackAnalysis(id, s.now().UTC())
	default:
		return &StageError{Message: "LLM analysis failed", Err: err}
	}

	// The ratchet reads the raw text; masking never removes a trigger word.
	before := analysis.Urgency
	analysis.Urgency = RaiseUrgency(before, state.Raw.Title+" "+state.Raw.Description, s.lexicon)
	if analysis.Urgency != before {
		zap.L().Info("analyze: urgency raised by keyword",
			zap.String("complaint_id", id),
			zap.String("from", string(before)),
			zap.String("to", string(analysis.Urgency)),
		)
	}

	state.Analysis = &analysis
	zap.L().Info("analyze: complaint classified",
		zap.String("complaint_id", id),
		zap.String("category", string(analysis.Category)),
		zap.String("sentiment", string(analysis.Sentiment)),
		zap.String("urgency", string(analysis.Urgency)),
	)
	return nil
}
