// Package notify simulates the outbound email channel for team assignments
// and customer acknowledgements.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// Notifier sends complaint emails.
type Notifier interface {
	NotifyTeam(ctx context.Context, complaintID string, record model.ComplaintRecord, routing model.RoutingDecision, ticket model.TicketInfo) (*model.NotificationInfo, error)
	// NotifyCustomer returns nil without error when the record has no
	// contact to write to.
	NotifyCustomer(ctx context.Context, record model.ComplaintRecord, ticket model.TicketInfo) (*model.NotificationInfo, error)
}

// Message priorities.
const (
	PriorityNormal = "normal"
	PriorityHigh   = "high"
)

// maxBodyExcerpt bounds the complaint text quoted in team emails.
const maxBodyExcerpt = 500

// Message is one email in the outbox.
type Message struct {
	ID       string    `json:"id"`
	From     string    `json:"from"`
	To       string    `json:"to"`
	Subject  string    `json:"subject"`
	Body     string    `json:"body"`
	Priority string    `json:"priority"`
	SentAt   time.Time `json:"sent_at"`
}

// Stats summarizes the outbox.
type Stats struct {
	TotalSent        int            `json:"total_sent"`
	UniqueRecipients int            `json:"unique_recipients"`
	ByPriority       map[string]int `json:"by_priority"`
}

// Config configures the simulator.
type Config struct {
	CompanyName string
	From        string
}

// Simulator records emails in an in-memory outbox instead of sending them.
// It is safe for concurrent use.
type Simulator struct {
	company string
	from    string
	now     func() time.Time

	mu     sync.Mutex
	outbox []Message
}

// NewSimulator returns a Simulator signing emails as cfg.CompanyName.
func NewSimulator(cfg Config) *Simulator {
	if cfg.CompanyName == "" {
		cfg.CompanyName = "TechNova"
	}
	if cfg.From == "" {
		cfg.From = "sac@technova.com"
	}
	return &Simulator{company: cfg.CompanyName, from: cfg.From, now: time.Now}
}

// NotifyTeam implements Notifier.
func (s *Simulator) NotifyTeam(ctx context.Context, complaintID string, record model.ComplaintRecord, routing model.RoutingDecision, ticket model.TicketInfo) (*model.NotificationInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "notify: team")
	}
	if routing.ResponsibleEmail == "" {
		return nil, eris.Errorf("notify: team %q has no email", routing.Team)
	}

	priority := PriorityNormal
	if routing.Priority == model.PriorityHigh || routing.Priority == model.PriorityCritical {
		priority = PriorityHigh
	}
	msg := s.send(routing.ResponsibleEmail, TeamSubject(routing.Priority, ticket.JiraKey), teamBody(record, routing, ticket), priority)

	zap.L().Info("notify: team email sent",
		zap.String("complaint_id", complaintID),
		zap.String("to", msg.To),
		zap.String("jira_key", ticket.JiraKey),
	)
	return &model.NotificationInfo{
		ComplaintID:  complaintID,
		TicketID:     ticket.JiraID,
		EmailTo:      msg.To,
		EmailSubject: msg.Subject,
		SentAt:       msg.SentAt,
		Status:       model.NotificationSent,
	}, nil
}

// NotifyCustomer implements Notifier.
func (s *Simulator) NotifyCustomer(ctx context.Context, record model.ComplaintRecord, ticket model.TicketInfo) (*model.NotificationInfo, error) {
	if err := ctx.Err(); err != nil {
		return nil, eris.Wrap(err, "notify: customer")
	}
	if strings.TrimSpace(record.ConsumerContact) == "" {
		zap.L().Warn("notify: customer has no contact, skipping",
			zap.String("complaint_id", record.Key()),
		)
		return nil, nil
	}

	subject := fmt.Sprintf("[%s] Recebemos sua reclamação - Protocolo %s", s.company, ticket.JiraKey)
	msg := s.send(record.ConsumerContact, subject, customerBody(record, ticket), PriorityNormal)

	zap.L().Info("notify: customer email sent",
		zap.String("complaint_id", record.Key()),
		zap.String("jira_key", ticket.JiraKey),
	)
	return &model.NotificationInfo{
		ComplaintID:  record.Key(),
		TicketID:     ticket.JiraID,
		EmailTo:      msg.To,
		EmailSubject: msg.Subject,
		SentAt:       msg.SentAt,
		Status:       model.NotificationSent,
	}, nil
}

func (s *Simulator) send(to, subject, body, priority string) Message {
	msg := Message{
		ID:       uuid.New().String(),
		From:     s.from,
		To:       to,
		Subject:  subject,
		Body:     body,
		Priority: priority,
		SentAt:   s.now().UTC(),
	}
	s.mu.Lock()
	s.outbox = append(s.outbox, msg)
	s.mu.Unlock()
	return msg
}

// Sent returns a copy of the outbox in send order.
func (s *Simulator) Sent() []Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Message(nil), s.outbox...)
}

// SentTo returns the emails addressed to addr.
func (s *Simulator) SentTo(addr string) []Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []Message
	for _, m := range s.outbox {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

// Stats summarizes the outbox.
func (s *Simulator) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := Stats{TotalSent: len(s.outbox), ByPriority: make(map[string]int)}
	recipients := make(map[string]struct{})
	for _, m := range s.outbox {
		st.ByPriority[m.Priority]++
		recipients[m.To] = struct{}{}
	}
	st.UniqueRecipients = len(recipients)
	return st
}

// Clear empties the outbox.
func (s *Simulator) Clear() {
	s.mu.Lock()
	s.outbox = nil
	s.mu.Unlock()
}

// TeamSubject builds the subject of a team assignment email.
func TeamSubject(p model.Priority, jiraKey string) string {
	prefix := ""
	switch p {
	case model.PriorityCritical:
		prefix = "[URGENTE] "
	case model.PriorityHigh:
		prefix = "[ALTA PRIORIDADE] "
	}
	return prefix + "Nova reclamação atribuída - " + jiraKey
}

// excerpt truncates s to n runes, marking the cut with an ellipsis.
func excerpt(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func orNI(s string) string {
	if s == "" {
		return "N/I"
	}
	return s
}

const rule = "----------------------------------------------"

func teamBody(c model.ComplaintRecord, r model.RoutingDecision, t model.TicketInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\nUma nova reclamação foi atribuída à sua equipe.\n\n%s\n\n", r.Team, rule)
	fmt.Fprintf(&b, "DETALHES DO TICKET\n\nTicket: %s\nLink: %s\nPrioridade: %s\nSLA: %d horas\n\n%s\n\n",
		t.JiraKey, t.JiraLink, strings.ToUpper(string(r.Priority)), r.SLAHours, rule)
	fmt.Fprintf(&b, "INFORMAÇÕES DO CLIENTE\n\nNome: %s\nCanal: %s\nCidade/Estado: %s/%s\n\n%s\n\n",
		c.ConsumerName, c.Channel, orNI(c.City), orNI(c.State), rule)
	fmt.Fprintf(&b, "RECLAMAÇÃO\n\nTítulo: %s\n\n%s\n\n%s\n\n", c.Title, excerpt(c.Description, maxBodyExcerpt), rule)
	fmt.Fprintf(&b, "JUSTIFICATIVA DO ROTEAMENTO\n\n%s\n\n%s\n\n", r.Justification, rule)
	b.WriteString("Por favor, acesse o ticket para mais detalhes e inicie o atendimento.\n\n")
	b.WriteString("--\nReclamaAI - Sistema de Gestão de Reclamações\nEste é um email automático, não responda.")
	return b.String()
}

func customerBody(c model.ComplaintRecord, t model.TicketInfo) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Olá %s,\n\nRecebemos sua reclamação e ela já está sendo tratada pela nossa equipe.\n\n%s\n\n", c.ConsumerName, rule)
	fmt.Fprintf(&b, "INFORMAÇÕES DO SEU PROTOCOLO\n\nNúmero do Protocolo: %s\nData de Abertura: %s\n\nAssunto: %s\n\n%s\n\n",
		t.JiraKey, t.CreatedAt.Format("02/01/2006 às 15:04"), c.Title, rule)
	b.WriteString("PRÓXIMOS PASSOS\n\nNossa equipe analisará sua reclamação e entrará em contato em breve\npara fornecer uma solução.\n\n")
	b.WriteString("Guarde o número do protocolo para acompanhamento.\n\n")
	fmt.Fprintf(&b, "Atenciosamente,\nEquipe %s\n\n--\nEste é um email automático do sistema ReclamaAI.", orNI(c.CompanyName))
	return b.String()
}
