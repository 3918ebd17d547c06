package model

// DefaultSLAHours applies when a team has no SLA entry for an urgency.
const DefaultSLAHours = 48

// Team is a support team complaints can be routed to.
type Team struct {
	ID               string          `json:"id" yaml:"id"`
	Name             string          `json:"name" yaml:"name"`
	Email            string          `json:"email" yaml:"email"`
	Manager          string          `json:"manager" yaml:"manager"`
	Description      string          `json:"description" yaml:"description"`
	Responsibilities []string        `json:"responsibilities" yaml:"responsibilities"`
	Categories       []string        `json:"categories" yaml:"categories"`
	SLAHours         map[Urgency]int `json:"sla_hours" yaml:"sla_hours"`
	ExampleCases     []string        `json:"example_cases" yaml:"example_cases"`
}

// SLAFor returns the team's SLA in hours for urgency u, falling back to
// DefaultSLAHours.
func (t Team) SLAFor(u Urgency) int {
	if h, ok := t.SLAHours[u]; ok {
		return h
	}
	return DefaultSLAHours
}
