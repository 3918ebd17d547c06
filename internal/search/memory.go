package search

import (
	"context"
	"sort"
	"strings"
	"unicode"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// stopwords are dropped from queries before scoring.
var stopwords = map[string]bool{
	"a": true, "o": true, "as": true, "os": true, "de": true, "da": true, "do": true,
	"das": true, "dos": true, "e": true, "em": true, "no": true, "na": true, "um": true,
	"uma": true, "com": true, "por": true, "para": true, "que": true, "se": true,
	"categoria": true, "urgencia": true,
}

type indexedTeam struct {
	team   model.Team
	tokens map[string]bool
}

// MemoryIndex ranks teams by keyword overlap between the query and each
// team's profile. It is read-only after construction.
type MemoryIndex struct {
	teams []indexedTeam
}

// NewMemoryIndex indexes teams in declaration order.
func NewMemoryIndex(teams []model.Team) *MemoryIndex {
	idx := &MemoryIndex{teams: make([]indexedTeam, len(teams))}
	for i, t := range teams {
		toks := make(map[string]bool)
		for _, tok := range tokenize(Document(t)) {
			toks[tok] = true
		}
		idx.teams[i] = indexedTeam{team: t, tokens: toks}
	}
	return idx
}

// SearchTeams implements TeamSearcher. With a category filter every owning
// team is a candidate; without one, teams sharing no keyword are dropped.
// Ties keep declaration order.
func (m *MemoryIndex) SearchTeams(ctx context.Context, query, category string, topK int) ([]model.Team, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	terms := tokenize(query)
	type hit struct {
		team  model.Team
		score int
	}
	var hits []hit
	for _, it := range m.teams {
		if category != "" && !ownsCategory(it.team, category) {
			continue
		}
		score := 0
		for _, term := range terms {
			if it.tokens[term] {
				score++
			}
		}
		if category == "" && score == 0 {
			continue
		}
		hits = append(hits, hit{team: it.team, score: score})
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	topK = normalizeTopK(topK)
	if len(hits) > topK {
		hits = hits[:topK]
	}
	out := make([]model.Team, len(hits))
	for i, h := range hits {
		out[i] = h.team
	}
	return out, nil
}

func tokenize(s string) []string {
	fields := strings.FieldsFunc(model.Fold(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	out := fields[:0]
	for _, f := range fields {
		if len(f) < 2 || stopwords[f] {
			continue
		}
		out = append(out, f)
	}
	return out
}
