package routing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/registry"
)

func testTeams() []model.Team {
	return []model.Team{
		{ID: "log", Name: "Logística", Categories: []string{"Atraso na entrega", "Produto não entregue"}},
		{ID: "fin", Name: "Financeiro", Categories: []string{"Cobrança indevida"}},
		{ID: "n2", Name: "Atendimento N2", Categories: []string{"Atendimento ruim"}},
	}
}

func TestResolve_Exact(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), nil)
	team, ok := r.Resolve("PRODUTO NÃO ENTREGUE")
	require.True(t, ok)
	assert.Equal(t, "log", team.ID)
	assert.Equal(t, 4, r.CategoryCount())
}

func TestResolve_Substring(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), nil)

	// Input contained in a key.
	team, ok := r.Resolve("cobrança")
	require.True(t, ok)
	assert.Equal(t, "fin", team.ID)

	// Key contained in input.
	team, ok = r.Resolve("houve cobrança indevida no cartão")
	require.True(t, ok)
	assert.Equal(t, "fin", team.ID)
}

func TestResolve_FallbackMarker(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), nil)
	team, ok := r.Resolve("xyzzy")
	require.True(t, ok)
	assert.Equal(t, "n2", team.ID)
}

func TestResolve_FirstTeamWhenNoMarker(t *testing.T) {
	t.Parallel()

	teams := []model.Team{
		{ID: "a", Name: "Alpha", Categories: []string{"Cobrança indevida"}},
		{ID: "b", Name: "Beta"},
	}
	r := NewResolver(teams, nil)
	team, ok := r.Resolve("categoria inexistente")
	require.True(t, ok)
	assert.Equal(t, "a", team.ID)
}

func TestResolve_EmptyCategoryFallsBack(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), nil)
	team, ok := r.Resolve("  ")
	require.True(t, ok)
	assert.Equal(t, "n2", team.ID)
}

func TestResolve_NoTeams(t *testing.T) {
	t.Parallel()

	_, ok := NewResolver(nil, nil).Resolve("Atraso na entrega")
	assert.False(t, ok)
}

func TestResolve_CustomMarkers(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), []string{"financ"})
	team, ok := r.Resolve("???")
	require.True(t, ok)
	assert.Equal(t, "fin", team.ID)
}

func TestResolve_TotalOverTaxonomy(t *testing.T) {
	t.Parallel()

	teams := registry.DefaultTeams()
	r := NewResolver(teams, nil)

	inputs := make([]string, 0, len(model.Categories)+2)
	for _, c := range model.Categories {
		inputs = append(inputs, string(c))
	}
	inputs = append(inputs, "garbage-$$$", "")

	for _, in := range inputs {
		team, ok := r.Resolve(in)
		assert.True(t, ok, in)
		assert.NotEmpty(t, team.ID, in)
	}

	// Every taxonomy category resolves to the team that declares it.
	for _, c := range model.Categories {
		team, _ := r.Resolve(string(c))
		assert.Contains(t, team.Categories, string(c))
	}
}

func TestTeamByID(t *testing.T) {
	t.Parallel()

	r := NewResolver(testTeams(), nil)
	team, ok := r.TeamByID("fin")
	require.True(t, ok)
	assert.Equal(t, "Financeiro", team.Name)

	_, ok = r.TeamByID("nope")
	assert.False(t, ok)
}

func TestPriorityMatrix(t *testing.T) {
	t.Parallel()

	tests := []struct {
		u    model.Urgency
		s    model.Sentiment
		want model.Priority
	}{
		{model.UrgencyCritical, model.SentimentNeutral, model.PriorityCritical},
		{model.UrgencyCritical, model.SentimentDissatisfied, model.PriorityCritical},
		{model.UrgencyCritical, model.SentimentVeryDissatisfied, model.PriorityCritical},
		{model.UrgencyHigh, model.SentimentVeryDissatisfied, model.PriorityCritical},
		{model.UrgencyHigh, model.SentimentDissatisfied, model.PriorityHigh},
		{model.UrgencyHigh, model.SentimentNeutral, model.PriorityHigh},
		{model.UrgencyMedium, model.SentimentVeryDissatisfied, model.PriorityHigh},
		{model.UrgencyMedium, model.SentimentNeutral, model.PriorityMedium},
		{model.UrgencyLow, model.SentimentVeryDissatisfied, model.PriorityMedium},
		{model.UrgencyLow, model.SentimentDissatisfied, model.PriorityLow},
		{model.UrgencyLow, model.SentimentNeutral, model.PriorityLow},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, Priority(tt.u, tt.s), "%s/%s", tt.u, tt.s)
	}
}

func TestJustification(t *testing.T) {
	t.Parallel()

	a := model.Analysis{Category: model.CategoryNotDelivered, Urgency: model.UrgencyHigh}
	team := model.Team{Name: "Logística", Responsibilities: []string{"a", "b", "c", "d"}}

	got := Justification(a, team)
	assert.Equal(t,
		"Reclamação classificada como 'Produto não entregue' com urgência 'alta'. Time 'Logística' é responsável por esta categoria e possui expertise em: a, b, c.",
		got,
	)
}

func TestRoutingContext(t *testing.T) {
	t.Parallel()

	assert.Equal(t,
		"Categoria: Cobrança indevida. Urgência: media. Cliente cobrado duas vezes.",
		RoutingContext(model.CategoryWrongCharge, model.UrgencyMedium, "Cliente cobrado duas vezes."),
	)
}
