// Package ticket simulates the Jira project complaints are filed into.
package ticket

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// Ticketer opens tickets for routed complaints.
type Ticketer interface {
	CreateTicket(ctx context.Context, complaintID string, analysis model.Analysis, routing model.RoutingDecision) (*model.TicketInfo, error)
}

// ErrNotFound is returned for unknown ticket keys.
var ErrNotFound = eris.New("ticket: not found")

// Config configures the simulator.
type Config struct {
	ProjectKey   string
	BaseURL      string
	StartCounter int
}

// Ticket is a stored ticket with the fields Jira would show.
type Ticket struct {
	Info        model.TicketInfo `json:"info"`
	Team        string           `json:"team"`
	Priority    string           `json:"priority"`
	Summary     string           `json:"summary"`
	Description string           `json:"description"`
}

// Stats counts tickets by status.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"by_status"`
}

// Simulator is an in-memory Jira. Keys are PROJECT-<n> with n counting up
// from StartCounter+1. It is safe for concurrent use.
type Simulator struct {
	projectKey string
	baseURL    string
	start      int
	now        func() time.Time

	mu      sync.Mutex
	counter int
	tickets map[string]*Ticket
}

// NewSimulator returns a Simulator, defaulting to project SUPORTE at
// https://jira.technova.com with the first key SUPORTE-1001.
func NewSimulator(cfg Config) *Simulator {
	if cfg.ProjectKey == "" {
		cfg.ProjectKey = "SUPORTE"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://jira.technova.com"
	}
	if cfg.StartCounter <= 0 {
		cfg.StartCounter = 1000
	}
	return &Simulator{
		projectKey: cfg.ProjectKey,
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		start:      cfg.StartCounter,
		counter:    cfg.StartCounter,
		now:        time.Now,
		tickets:    make(map[string]*Ticket),
	}
}

// CreateTicket implements Ticketer.
func (s *Simulator) CreateTicket(ctx context.Context, complaintID string, analysis model.Analysis, routing model.RoutingDecision) (*model.TicketInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "ticket: create")
	}

	s.mu.Lock()
	s.counter++
	n := s.counter
	key := fmt.Sprintf("%s-%d", s.projectKey, n)
	info := model.TicketInfo{
		ComplaintID: complaintID,
		JiraID:      strconv.Itoa(n),
		JiraKey:     key,
		JiraLink:    s.baseURL + "/browse/" + key,
		Status:      model.TicketStatusOpen,
		CreatedAt:   s.now().UTC(),
	}
	s.tickets[key] = &Ticket{
		Info:        info,
		Team:        routing.Team,
		Priority:    JiraPriority(routing.Priority),
		Summary:     analysis.Summary,
		Description: Description(analysis, routing),
	}
	s.mu.Unlock()

	zap.L().Info("ticket: created",
		zap.String("jira_key", key),
		zap.String("complaint_id", complaintID),
		zap.String("team", routing.Team),
		zap.String("priority", string(routing.Priority)),
	)
	return &info, nil
}

// GetTicket returns the ticket stored under key.
func (s *Simulator) GetTicket(key string) (*Ticket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[key]
	if !ok {
		return nil, eris.Wrapf(ErrNotFound, "ticket %s", key)
	}
	cp := *t
	return &cp, nil
}

// UpdateStatus changes the status of an existing ticket.
func (s *Simulator) UpdateStatus(key, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tickets[key]
	if !ok {
		return eris.Wrapf(ErrNotFound, "ticket %s", key)
	}
	t.Info.Status = status
	zap.L().Info("ticket: status updated", zap.String("jira_key", key), zap.String("status", status))
	return nil
}

// List returns every ticket, optionally only those in status, ordered by key
// number.
func (s *Simulator) List(status string) []Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]Ticket, 0, len(s.tickets))
	for _, t := range s.tickets {
		if status != "" && t.Info.Status != status {
			continue
		}
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool {
		a, _ := strconv.Atoi(out[i].Info.JiraID)
		b, _ := strconv.Atoi(out[j].Info.JiraID)
		return a < b
	})
	return out
}

// Stats counts stored tickets.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{Total: len(s.tickets), ByStatus: make(map[string]int)}
	for _, t := range s.tickets {
		st.ByStatus[t.Info.Status]++
	}
	return st
}

// Clear removes every ticket and restarts numbering.
func (s *Simulator) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickets = make(map[string]*Ticket)
	s.counter = s.start
}

// JiraPriority maps a complaint priority to the Jira priority name.
func JiraPriority(p model.Priority) string {
	switch p {
	case model.PriorityLow:
		return "Low"
	case model.PriorityHigh:
		return "High"
	case model.PriorityCritical:
		return "Highest"
	default:
		return "Medium"
	}
}

// Description renders the ticket body in Jira wiki markup.
func Description(a model.Analysis, r model.RoutingDecision) string {
	var b strings.Builder
	b.WriteString("h2. Resumo\n")
	b.WriteString(a.Summary + "\n\n")

	b.WriteString("h2. Classificação\n")
	fmt.Fprintf(&b, "* *Categoria:* %s\n", a.Category)
	fmt.Fprintf(&b, "* *Sentimento:* %s\n", a.Sentiment)
	fmt.Fprintf(&b, "* *Urgência:* %s\n", a.Urgency)
	fmt.Fprintf(&b, "* *Prioridade:* %s\n\n", r.Priority)

	b.WriteString("h2. Pontos-Chave\n")
	for _, issue := range a.KeyIssues {
		b.WriteString("- " + issue + "\n")
	}

	b.WriteString("\nh2. Roteamento\n")
	fmt.Fprintf(&b, "* *Time:* %s\n", r.Team)
	fmt.Fprintf(&b, "* *Responsável:* %s\n", r.ResponsibleEmail)
	fmt.Fprintf(&b, "* *SLA:* %d horas\n", r.SLAHours)
	fmt.Fprintf(&b, "* *Justificativa:* %s\n", r.Justification)

	b.WriteString("\n----\n_Ticket gerado automaticamente pelo ReclamaAI_")
	return b.String()
}
