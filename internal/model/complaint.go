package model

import (
	"strings"
	"time"
)

// DefaultCompanyName is used when a source does not name the company.
const DefaultCompanyName = "TechNova Store"

// DefaultComplaintStatus is the free-text status a source record starts with.
const DefaultComplaintStatus = "Não Processada"

// ComplaintSource identifies the channel a complaint was collected from.
type ComplaintSource string

const (
	SourceReclameAqui ComplaintSource = "reclame_aqui"
	SourceJira        ComplaintSource = "jira"
	SourceChat        ComplaintSource = "chat"
	SourceWhatsApp    ComplaintSource = "whatsapp"
	SourceEmail       ComplaintSource = "email"
	SourcePhone       ComplaintSource = "phone"
)

// Sources lists every known complaint source in declaration order.
var Sources = []ComplaintSource{
	SourceReclameAqui,
	SourceJira,
	SourceChat,
	SourceWhatsApp,
	SourceEmail,
	SourcePhone,
}

// Valid reports whether s is one of the known sources.
func (s ComplaintSource) Valid() bool {
	for _, known := range Sources {
		if s == known {
			return true
		}
	}
	return false
}

// ParseSource maps free text to a ComplaintSource.
func ParseSource(raw string) (ComplaintSource, bool) {
	s := ComplaintSource(strings.ToLower(strings.TrimSpace(raw)))
	return s, s.Valid()
}

// ComplaintCategory is one of the fixed complaint taxonomy labels.
type ComplaintCategory string

const (
	CategoryDeliveryDelay     ComplaintCategory = "Atraso na entrega"
	CategoryNotDelivered      ComplaintCategory = "Produto não entregue"
	CategoryDefective         ComplaintCategory = "Produto com defeito"
	CategoryNotAsDescribed    ComplaintCategory = "Produto diferente do anunciado"
	CategoryWrongCharge       ComplaintCategory = "Cobrança indevida"
	CategoryRefundPending     ComplaintCategory = "Reembolso não processado"
	CategoryPoorService       ComplaintCategory = "Atendimento ruim"
	CategoryMarketplaceSeller ComplaintCategory = "Problema com vendedor (marketplace)"
	CategoryCancelDenied      ComplaintCategory = "Cancelamento negado"
	CategoryHardToReach       ComplaintCategory = "Dificuldade de contato"
)

// DefaultCategory is used whenever model output cannot be mapped.
const DefaultCategory = CategoryPoorService

// Categories lists the taxonomy in declaration order.
var Categories = []ComplaintCategory{
	CategoryDeliveryDelay,
	CategoryNotDelivered,
	CategoryDefective,
	CategoryNotAsDescribed,
	CategoryWrongCharge,
	CategoryRefundPending,
	CategoryPoorService,
	CategoryMarketplaceSeller,
	CategoryCancelDenied,
	CategoryHardToReach,
}

// Sentiment captures how upset the customer is.
type Sentiment string

const (
	SentimentNeutral          Sentiment = "neutro"
	SentimentDissatisfied     Sentiment = "insatisfeito"
	SentimentVeryDissatisfied Sentiment = "muito_insatisfeito"
)

// DefaultSentiment is used when the sentiment label is unrecognized.
const DefaultSentiment = SentimentDissatisfied

// ParseSentiment maps a free-text label to a Sentiment, tolerating accents,
// spaces, and hyphens. Unknown labels map to DefaultSentiment.
func ParseSentiment(raw string) Sentiment {
	key := strings.NewReplacer(" ", "_", "-", "_").Replace(Fold(raw))
	switch key {
	case "neutro", "neutral":
		return SentimentNeutral
	case "insatisfeito", "dissatisfied":
		return SentimentDissatisfied
	case "muito_insatisfeito", "very_dissatisfied":
		return SentimentVeryDissatisfied
	default:
		return DefaultSentiment
	}
}

// Urgency is the ordered urgency scale baixa < media < alta < critica.
type Urgency string

const (
	UrgencyLow      Urgency = "baixa"
	UrgencyMedium   Urgency = "media"
	UrgencyHigh     Urgency = "alta"
	UrgencyCritical Urgency = "critica"
)

// DefaultUrgency is used when the urgency label is unrecognized.
const DefaultUrgency = UrgencyMedium

// Urgencies lists the scale from lowest to highest.
var Urgencies = []Urgency{UrgencyLow, UrgencyMedium, UrgencyHigh, UrgencyCritical}

// Rank returns the position of u on the urgency scale, or -1 if unknown.
func (u Urgency) Rank() int {
	for i, known := range Urgencies {
		if u == known {
			return i
		}
	}
	return -1
}

// ParseUrgency maps a free-text label to an Urgency. Accented forms such as
// "média" and "crítica" are accepted. Unknown labels map to DefaultUrgency.
func ParseUrgency(raw string) Urgency {
	switch Fold(raw) {
	case "baixa", "low":
		return UrgencyLow
	case "media", "medium":
		return UrgencyMedium
	case "alta", "high":
		return UrgencyHigh
	case "critica", "critical":
		return UrgencyCritical
	default:
		return DefaultUrgency
	}
}

// Priority is the ticket priority derived from urgency and sentiment.
type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ComplaintRecord is a raw complaint as collected from a source.
type ComplaintRecord struct {
	ID              string          `json:"id,omitempty"`
	ExternalID      string          `json:"external_id"`
	Source          ComplaintSource `json:"source"`
	CompanyName     string          `json:"company_name"`
	Title           string          `json:"title"`
	Description     string          `json:"description"`
	ConsumerName    string          `json:"consumer_name,omitempty"`
	ConsumerContact string          `json:"consumer_contact,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	Channel         string          `json:"channel,omitempty"`
	City            string          `json:"city,omitempty"`
	State           string          `json:"state,omitempty"`
	ProductCategory string          `json:"product_category,omitempty"`
	Status          string          `json:"status"`
}

// Key returns the identifier used for persistence and logging.
func (c ComplaintRecord) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.ExternalID
}

// WithDefaults fills the company name, status, and creation time when a
// source omitted them.
func (c ComplaintRecord) WithDefaults(now time.Time) ComplaintRecord {
	if c.CompanyName == "" {
		c.CompanyName = DefaultCompanyName
	}
	if c.Status == "" {
		c.Status = DefaultComplaintStatus
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = now
	}
	return c
}
