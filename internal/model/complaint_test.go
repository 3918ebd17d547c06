package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSourceValues(t *testing.T) {
	t.Parallel()

	tests := []struct {
		source ComplaintSource
		want   string
	}{
		{SourceReclameAqui, "reclame_aqui"},
		{SourceJira, "jira"},
		{SourceChat, "chat"},
		{SourceWhatsApp, "whatsapp"},
		{SourceEmail, "email"},
		{SourcePhone, "phone"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, string(tt.source))
			assert.True(t, tt.source.Valid())
		})
	}
}

func TestParseSource(t *testing.T) {
	t.Parallel()

	s, ok := ParseSource("  WhatsApp ")
	assert.True(t, ok)
	assert.Equal(t, SourceWhatsApp, s)

	_, ok = ParseSource("fax")
	assert.False(t, ok)
}

func TestCategoriesCount(t *testing.T) {
	t.Parallel()
	assert.Len(t, Categories, 10)
	assert.Contains(t, Categories, DefaultCategory)
}

func TestParseSentiment(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Sentiment
	}{
		{"neutro", SentimentNeutral},
		{"Insatisfeito", SentimentDissatisfied},
		{"muito insatisfeito", SentimentVeryDissatisfied},
		{"muito-insatisfeito", SentimentVeryDissatisfied},
		{"MUITO_INSATISFEITO", SentimentVeryDissatisfied},
		{"furioso", DefaultSentiment},
		{"", DefaultSentiment},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseSentiment(tt.in), "input %q", tt.in)
	}
}

func TestParseUrgency(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Urgency
	}{
		{"baixa", UrgencyLow},
		{"média", UrgencyMedium},
		{"media", UrgencyMedium},
		{"Alta", UrgencyHigh},
		{"crítica", UrgencyCritical},
		{"CRITICA", UrgencyCritical},
		{"altíssima", DefaultUrgency},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseUrgency(tt.in), "input %q", tt.in)
	}
}

func TestUrgencyRank(t *testing.T) {
	t.Parallel()

	assert.Less(t, UrgencyLow.Rank(), UrgencyMedium.Rank())
	assert.Less(t, UrgencyMedium.Rank(), UrgencyHigh.Rank())
	assert.Less(t, UrgencyHigh.Rank(), UrgencyCritical.Rank())
	assert.Equal(t, -1, Urgency("unknown").Rank())
}

func TestFold(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "produto nao entregue", Fold("  Produto NÃO entregue "))
	assert.Equal(t, "cobranca indevida", Fold("Cobrança indevida"))
	assert.Equal(t, "", Fold(""))
}

func TestComplaintRecordKey(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "id-1", ComplaintRecord{ID: "id-1", ExternalID: "ext-1"}.Key())
	assert.Equal(t, "ext-1", ComplaintRecord{ExternalID: "ext-1"}.Key())
}

func TestComplaintRecordWithDefaults(t *testing.T) {
	t.Parallel()

	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	c := ComplaintRecord{ExternalID: "RA-1", Source: SourceReclameAqui}.WithDefaults(now)

	assert.Equal(t, DefaultCompanyName, c.CompanyName)
	assert.Equal(t, DefaultComplaintStatus, c.Status)
	assert.Equal(t, now, c.CreatedAt)

	kept := ComplaintRecord{CompanyName: "Outra", Status: "Respondida", CreatedAt: now.Add(-time.Hour)}.WithDefaults(now)
	assert.Equal(t, "Outra", kept.CompanyName)
	assert.Equal(t, "Respondida", kept.Status)
	assert.Equal(t, now.Add(-time.Hour), kept.CreatedAt)
}
