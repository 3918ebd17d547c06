// Package search finds the support teams whose profile best matches a
// complaint. It backs the retrieval path of the routing stage.
package search

import (
	"context"
	"strings"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// TeamSearcher returns up to topK teams ranked by relevance to query. A
// non-empty category restricts results to teams that own it.
type TeamSearcher interface {
	SearchTeams(ctx context.Context, query, category string, topK int) ([]model.Team, error)
}

// Document renders the searchable text of a team.
func Document(t model.Team) string {
	parts := []string{t.Name, t.Description}
	parts = append(parts, t.Responsibilities...)
	parts = append(parts, t.Categories...)
	parts = append(parts, t.ExampleCases...)
	return strings.Join(parts, " ")
}

func ownsCategory(t model.Team, category string) bool {
	want := model.Fold(category)
	for _, c := range t.Categories {
		if model.Fold(c) == want {
			return true
		}
	}
	return false
}

func normalizeTopK(topK int) int {
	if topK <= 0 {
		return 1
	}
	return topK
}
