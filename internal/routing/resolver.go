// Package routing assigns analyzed complaints to support teams.
package routing

import (
	"fmt"
	"strings"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// DefaultFallbackMarkers identify the second-line support team that receives
// complaints no team claims.
var DefaultFallbackMarkers = []string{"atendimento", "n2"}

type categoryEntry struct {
	key  string
	team model.Team
}

// Resolver maps categories to teams. It is read-only after construction and
// safe for concurrent use.
type Resolver struct {
	teams   []model.Team
	entries []categoryEntry
	byKey   map[string]model.Team
	markers []string
}

// NewResolver builds the category map from teams in declaration order. When
// two teams claim the same category the later one wins the exact lookup.
// A nil markers slice uses DefaultFallbackMarkers.
func NewResolver(teams []model.Team, markers []string) *Resolver {
	if markers == nil {
		markers = DefaultFallbackMarkers
	}
	r := &Resolver{
		teams:   teams,
		byKey:   make(map[string]model.Team),
		markers: make([]string, 0, len(markers)),
	}
	for _, m := range markers {
		if m = strings.ToLower(strings.TrimSpace(m)); m != "" {
			r.markers = append(r.markers, m)
		}
	}
	for _, t := range teams {
		for _, c := range t.Categories {
			key := strings.ToLower(c)
			if _, seen := r.byKey[key]; !seen {
				r.entries = append(r.entries, categoryEntry{key: key})
			}
			r.byKey[key] = t
		}
	}
	// Substring matching walks entries in first-seen order but must see the
	// same owner as the exact lookup.
	for i := range r.entries {
		r.entries[i].team = r.byKey[r.entries[i].key]
	}
	return r
}

// Teams returns the configured teams in declaration order.
func (r *Resolver) Teams() []model.Team {
	return r.teams
}

// CategoryCount returns the number of distinct category keys mapped.
func (r *Resolver) CategoryCount() int {
	return len(r.entries)
}

// Resolve returns the team responsible for category. The lookup cascades
// from exact match to substring match in either direction, then to the
// second-line support team, then to the first configured team. It reports
// false only when no teams are configured.
func (r *Resolver) Resolve(category string) (model.Team, bool) {
	if len(r.teams) == 0 {
		return model.Team{}, false
	}

	key := strings.ToLower(strings.TrimSpace(category))
	if t, ok := r.byKey[key]; ok {
		return t, true
	}

	if key != "" {
		for _, e := range r.entries {
			if strings.Contains(e.key, key) || strings.Contains(key, e.key) {
				return e.team, true
			}
		}
	}

	if t, ok := r.Fallback(); ok {
		return t, true
	}
	return r.teams[0], true
}

// Fallback returns the first team whose name contains a fallback marker.
func (r *Resolver) Fallback() (model.Team, bool) {
	for _, t := range r.teams {
		name := strings.ToLower(t.Name)
		for _, m := range r.markers {
			if strings.Contains(name, m) {
				return t, true
			}
		}
	}
	return model.Team{}, false
}

// TeamByID looks up a configured team.
func (r *Resolver) TeamByID(id string) (model.Team, bool) {
	for _, t := range r.teams {
		if t.ID == id {
			return t, true
		}
	}
	return model.Team{}, false
}

// Justification explains a routing decision in one or two sentences.
func Justification(a model.Analysis, team model.Team) string {
	resp := team.Responsibilities
	if len(resp) > 3 {
		resp = resp[:3]
	}
	return fmt.Sprintf(
		"Reclamação classificada como '%s' com urgência '%s'. Time '%s' é responsável por esta categoria e possui expertise em: %s.",
		a.Category, a.Urgency, team.Name, strings.Join(resp, ", "),
	)
}

// RoutingContext builds the free-text query used for search-based routing.
func RoutingContext(category model.ComplaintCategory, urgency model.Urgency, summary string) string {
	return fmt.Sprintf("Categoria: %s. Urgência: %s. %s", category, urgency, summary)
}
