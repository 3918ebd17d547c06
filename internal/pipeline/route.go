package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/metrics"
	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/routing"
	"github.com/Vini334/ReclamaAI/internal/search"
)

// Routing paths reported to metrics.
const (
	routePathSearch  = "search"
	routePathMapping = "mapping"
)

// TeamLoader returns the configured teams.
type TeamLoader func() ([]model.Team, error)

// teamIndexer is implemented by searchers that keep their own copy of the
// team profiles.
type teamIndexer interface {
	IndexTeams(ctx context.Context, teams []model.Team) (int64, error)
}

// RouteStage assigns the analyzed complaint to a team and derives its
// priority and SLA.
type RouteStage struct {
	loadTeams TeamLoader
	markers   []string
	searcher  search.TeamSearcher
	metrics   *metrics.Metrics
	now       func() time.Time

	resolver *routing.Resolver
}

// RouteOption configures a RouteStage.
type RouteOption func(*RouteStage)

// WithSearch enables retrieval-based routing through s. Failures and empty
// results fall back to the category map.
func WithSearch(s search.TeamSearcher) RouteOption {
	return func(r *RouteStage) { r.searcher = s }
}

// WithFallbackMarkers overrides the name markers of the second-line team.
func WithFallbackMarkers(markers []string) RouteOption {
	return func(r *RouteStage) { r.markers = markers }
}

// WithRouteMetrics records the routing path taken per decision.
func WithRouteMetrics(m *metrics.Metrics) RouteOption {
	return func(r *RouteStage) { r.metrics = m }
}

// NewRouteStage creates the routing stage. Teams are loaded once, on the
// first record.
func NewRouteStage(load TeamLoader, opts ...RouteOption) *RouteStage {
	r := &RouteStage{loadTeams: load, now: time.Now}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (s *RouteStage) Name() string                        { return "route" }
func (s *RouteStage) SuccessStatus() model.WorkflowStatus { return model.StatusRouted }
func (s *RouteStage) FailureStatus() model.WorkflowStatus { return model.StatusFailedRouting }

func (s *RouteStage) Init(ctx context.Context) error {
	if s.loadTeams == nil {
		return eris.New("route: no team loader configured")
	}
	teams, err := s.loadTeams()
	if err != nil {
		return eris.Wrap(err, "route: load teams")
	}
	s.resolver = routing.NewResolver(teams, s.markers)

	zap.L().Info("route: teams loaded",
		zap.Int("teams", len(teams)),
		zap.Int("category_mappings", s.resolver.CategoryCount()),
		zap.Bool("search", s.searcher != nil),
	)

	if idx, ok := s.searcher.(teamIndexer); ok {
		n, err := idx.IndexTeams(ctx, teams)
		if err != nil {
			zap.L().Warn("route: team index unavailable, using category map", zap.Error(err))
			s.searcher = nil
			return nil
		}
		zap.L().Info("route: teams indexed", zap.Int64("rows", n))
	}
	return nil
}

func (s *RouteStage) Validate(state *model.WorkflowState) error {
	if state.Analysis == nil {
		return eris.New("missing analysis")
	}
	return nil
}

func (s *RouteStage) Process(ctx context.Context, state *model.WorkflowState) error {
	if state.Routing != nil {
		return nil
	}

	a := *state.Analysis
	id := state.ComplaintID()

	team, path, ok := s.findTeam(ctx, id, a)
	if !ok {
		return Failf("No team found for category %s", a.Category)
	}
	s.metrics.RecordRouting(team.ID, path)

	decision := model.RoutingDecision{
		ComplaintID:      id,
		Team:             team.Name,
		TeamID:           team.ID,
		ResponsibleEmail: team.Email,
		Priority:         routing.Priority(a.Urgency, a.Sentiment),
		Justification:    routing.Justification(a, team),
		SLAHours:         team.SLAFor(a.Urgency),
		RoutedAt:         s.now().UTC(),
	}
	state.Routing = &decision

	zap.L().Info("route: complaint routed",
		zap.String("complaint_id", id),
		zap.String("team", team.Name),
		zap.String("priority", string(decision.Priority)),
		zap.Int("sla_hours", decision.SLAHours),
		zap.String("path", path),
	)
	return nil
}

func (s *RouteStage) findTeam(ctx context.Context, id string, a model.Analysis) (model.Team, string, bool) {
	if s.searcher != nil {
		query := routing.RoutingContext(a.Category, a.Urgency, a.Summary)
		teams, err := s.searcher.SearchTeams(ctx, query, string(a.Category), 1)
		switch {
		case err != nil:
			zap.L().Warn("route: team search failed, using category map",
				zap.String("complaint_id", id), zap.Error(err))
		case len(teams) == 0:
			zap.L().Warn("route: team search returned nothing, using category map",
				zap.String("complaint_id", id))
		default:
			return teams[0], routePathSearch, true
		}
	}

	team, ok := s.resolver.Resolve(string(a.Category))
	return team, routePathMapping, ok
}
