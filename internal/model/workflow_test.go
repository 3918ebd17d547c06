package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWorkflowStatusIsFailed(t *testing.T) {
	t.Parallel()

	failed := []WorkflowStatus{StatusFailedLLM, StatusFailedRouting, StatusFailedJira, StatusFailedEmail}
	for _, s := range failed {
		assert.True(t, s.IsFailed(), s)
		assert.True(t, s.IsTerminal(), s)
	}

	ok := []WorkflowStatus{StatusNew, StatusAnonymized, StatusAnalyzed, StatusRouted, StatusTicketCreated, StatusNotified}
	for _, s := range ok {
		assert.False(t, s.IsFailed(), s)
		assert.False(t, s.IsTerminal(), s)
	}

	assert.True(t, StatusCompleted.IsTerminal())
	assert.False(t, StatusCompleted.IsFailed())
}

func TestWorkflowStateErrorsAppendOnly(t *testing.T) {
	t.Parallel()

	s := NewWorkflowState(ComplaintRecord{ExternalID: "x"}, time.Now())
	assert.Equal(t, StatusNew, s.Status)
	assert.Empty(t, s.Errors)

	s.AddError("[a] first")
	s.AddError("[b] second")
	assert.Equal(t, []string{"[a] first", "[b] second"}, s.Errors)
}

func TestWorkflowStateSource(t *testing.T) {
	t.Parallel()

	s := NewWorkflowState(ComplaintRecord{ExternalID: "x", Description: "raw"}, time.Now())
	assert.Equal(t, "raw", s.Source().Description)

	anon := s.Raw
	anon.Description = "masked"
	s.Anonymized = &anon
	assert.Equal(t, "masked", s.Source().Description)
	assert.Equal(t, "raw", s.Raw.Description)
}

func TestWorkflowStateMarkCompleted(t *testing.T) {
	t.Parallel()

	now := time.Now()
	s := NewWorkflowState(ComplaintRecord{ExternalID: "x"}, now)
	s.MarkCompleted(now)
	assert.Equal(t, StatusCompleted, s.Status)
	require.NotNil(t, s.CompletedAt)
	assert.Equal(t, now, *s.CompletedAt)
}

func TestWorkflowStateJSONRoundTripKeepsOutputs(t *testing.T) {
	t.Parallel()

	s := NewWorkflowState(ComplaintRecord{ID: "c-1", ExternalID: "RA-1", Source: SourceReclameAqui}, time.Now().UTC())
	s.Analysis = &Analysis{Category: CategoryNotDelivered, Urgency: UrgencyHigh, KeyIssues: []string{"atraso"}}
	s.Routing = &RoutingDecision{TeamID: "logistica", SLAHours: 24}
	s.Status = StatusRouted

	data, err := json.Marshal(s)
	require.NoError(t, err)

	var got WorkflowState
	require.NoError(t, json.Unmarshal(data, &got))
	assert.Equal(t, StatusRouted, got.Status)
	require.NotNil(t, got.Analysis)
	assert.Equal(t, CategoryNotDelivered, got.Analysis.Category)
	require.NotNil(t, got.Routing)
	assert.Equal(t, 24, got.Routing.SLAHours)
	assert.Nil(t, got.Ticket)
}

func TestTeamSLAFor(t *testing.T) {
	t.Parallel()

	team := Team{SLAHours: map[Urgency]int{UrgencyCritical: 4}}
	assert.Equal(t, 4, team.SLAFor(UrgencyCritical))
	assert.Equal(t, DefaultSLAHours, team.SLAFor(UrgencyLow))
	assert.Equal(t, DefaultSLAHours, Team{}.SLAFor(UrgencyHigh))
}
