package pipeline

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/registry"
)

// ErrMalformedReply marks a classifier reply that could not be decoded. The
// analyze stage answers it with FallbackAnalysis instead of failing.
var ErrMalformedReply = eris.New("pipeline: malformed classifier reply")

const (
	defaultSummary  = "Resumo não disponível"
	fallbackSummary = "Erro ao processar análise"
	fallbackIssue   = "Análise automática falhou"
)

// RawAnalysis is the classifier reply before any normalization.
type RawAnalysis struct {
	Category  string     `json:"category"`
	Sentiment string     `json:"sentiment"`
	Urgency   string     `json:"urgency"`
	Summary   string     `json:"summary"`
	KeyIssues StringList `json:"key_issues"`
}

// StringList decodes either a JSON array of strings or a single string.
type StringList []string

func (l *StringList) UnmarshalJSON(data []byte) error {
	var one string
	if err := json.Unmarshal(data, &one); err == nil {
		if one == "" {
			*l = nil
		} else {
			*l = StringList{one}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return eris.Wrap(err, "pipeline: key_issues")
	}
	*l = many
	return nil
}

// ExtractJSON returns the outermost JSON object in text, ignoring markdown
// fences and any prose around it.
func ExtractJSON(text string) (string, error) {
	s := strings.TrimSpace(text)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return "", eris.Wrap(ErrMalformedReply, "no JSON object in reply")
	}
	return s[start : end+1], nil
}

// ParseRawAnalysis decodes a classifier reply. Any decoding problem is
// reported as ErrMalformedReply.
func ParseRawAnalysis(text string) (RawAnalysis, error) {
	obj, err := ExtractJSON(text)
	if err != nil {
		return RawAnalysis{}, err
	}
	var raw RawAnalysis
	if err := json.Unmarshal([]byte(obj), &raw); err != nil {
		return RawAnalysis{}, eris.Wrapf(ErrMalformedReply, "decode reply: %v", err)
	}
	return raw, nil
}

// MapCategory resolves free text to a taxonomy category: exact match on the
// category or one of its aliases, then substring containment in either
// direction over the aliases in declaration order, then DefaultCategory.
// Comparisons are accent and case insensitive.
func MapCategory(raw string, aliases []registry.CategoryAlias) model.ComplaintCategory {
	key := model.Fold(raw)
	if key == "" {
		return model.DefaultCategory
	}

	for _, c := range model.Categories {
		if model.Fold(string(c)) == key {
			return c
		}
	}
	for _, a := range aliases {
		for _, alias := range a.Aliases {
			if model.Fold(alias) == key {
				return a.Category
			}
		}
	}
	for _, a := range aliases {
		for _, alias := range a.Aliases {
			folded := model.Fold(alias)
			if folded == "" {
				continue
			}
			if strings.Contains(folded, key) || strings.Contains(key, folded) {
				return a.Category
			}
		}
	}
	return model.DefaultCategory
}

// KeywordUrgency scans text for urgency triggers. Critical keywords are
// checked before high ones. It reports false when nothing matches.
func KeywordUrgency(text string, lex *registry.Lexicon) (model.Urgency, bool) {
	folded := model.Fold(text)
	if folded == "" || lex == nil {
		return "", false
	}
	for _, kw := range lex.CriticalKeywords {
		if k := model.Fold(kw); k != "" && strings.Contains(folded, k) {
			return model.UrgencyCritical, true
		}
	}
	for _, kw := range lex.HighKeywords {
		if k := model.Fold(kw); k != "" && strings.Contains(folded, k) {
			return model.UrgencyHigh, true
		}
	}
	return "", false
}

// RaiseUrgency applies the keyword ratchet: the keyword-implied level
// replaces current only when it ranks higher.
func RaiseUrgency(current model.Urgency, text string, lex *registry.Lexicon) model.Urgency {
	kw, ok := KeywordUrgency(text, lex)
	if !ok || kw.Rank() <= current.Rank() {
		return current
	}
	return kw
}

// BuildAnalysis normalizes a raw reply into an Analysis. Unknown labels fall
// back to their defaults; it never fails.
func BuildAnalysis(complaintID string, raw RawAnalysis, lex *registry.Lexicon, now time.Time) model.Analysis {
	var aliases []registry.CategoryAlias
	if lex != nil {
		aliases = lex.CategoryAliases
	}

	summary := strings.TrimSpace(raw.Summary)
	if summary == "" {
		summary = defaultSummary
	}

	issues := make([]string, 0, model.MaxKeyIssues)
	for _, issue := range raw.KeyIssues {
		if issue = strings.TrimSpace(issue); issue == "" {
			continue
		}
		issues = append(issues, issue)
		if len(issues) == model.MaxKeyIssues {
			break
		}
	}

	return model.Analysis{
		ComplaintID: complaintID,
		Summary:     summary,
		Category:    MapCategory(raw.Category, aliases),
		Sentiment:   model.ParseSentiment(raw.Sentiment),
		Urgency:     model.ParseUrgency(raw.Urgency),
		KeyIssues:   issues,
		AnalyzedAt:  now,
	}
}

// FallbackAnalysis is used when the classifier reply cannot be decoded.
func FallbackAnalysis(complaintID string, now time.Time) model.Analysis {
	return model.Analysis{
		ComplaintID: complaintID,
		Summary:     fallbackSummary,
		Category:    model.DefaultCategory,
		Sentiment:   model.DefaultSentiment,
		Urgency:     model.DefaultUrgency,
		KeyIssues:   []string{fallbackIssue},
		AnalyzedAt:  now,
	}
}
