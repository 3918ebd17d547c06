package routing

import (
	"github.com/Vini334/ReclamaAI/internal/model"
)

// Priority derives the ticket priority from urgency and sentiment. Critical
// urgency always wins; otherwise a very dissatisfied customer bumps the
// urgency-implied priority one level.
func Priority(u model.Urgency, s model.Sentiment) model.Priority {
	angry := s == model.SentimentVeryDissatisfied

	switch u {
	case model.UrgencyCritical:
		return model.PriorityCritical
	case model.UrgencyHigh:
		if angry {
			return model.PriorityCritical
		}
		return model.PriorityHigh
	case model.UrgencyMedium:
		if angry {
			return model.PriorityHigh
		}
		return model.PriorityMedium
	default:
		if angry {
			return model.PriorityMedium
		}
		return model.PriorityLow
	}
}
