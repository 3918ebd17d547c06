package pipeline

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/Vini334/ReclamaAI/internal/model"
	"github.com/Vini334/ReclamaAI/internal/notify"
	"github.com/Vini334/ReclamaAI/internal/ticket"
)

// CommunicateStage opens the ticket and sends the team and customer emails.
// Emails are built from the raw record: the customer needs their real
// contact, and the team sits inside the trust boundary.
type CommunicateStage struct {
	tickets  ticket.Ticketer
	notifier notify.Notifier
	now      func() time.Time
}

// NewCommunicateStage creates the communication stage.
func NewCommunicateStage(t ticket.Ticketer, n notify.Notifier) *CommunicateStage {
	return &CommunicateStage{tickets: t, notifier: n, now: time.Now}
}

func (s *CommunicateStage) Name() string                        { return "communicate" }
func (s *CommunicateStage) SuccessStatus() model.WorkflowStatus { return model.StatusCompleted }
func (s *CommunicateStage) FailureStatus() model.WorkflowStatus { return model.StatusFailedJira }

func (s *CommunicateStage) Init(context.Context) error {
	if s.tickets == nil {
		return eris.New("communicate: no ticketer configured")
	}
	if s.notifier == nil {
		return eris.New("communicate: no notifier configured")
	}
	return nil
}

func (s *CommunicateStage) Validate(state *model.WorkflowState) error {
	if state.Routing == nil {
		return eris.New("missing routing decision")
	}
	if state.Analysis == nil {
		return eris.New("missing analysis")
	}
	return nil
}

func (s *CommunicateStage) Process(ctx context.Context, state *model.WorkflowState) error {
	id := state.ComplaintID()

	if state.Ticket == nil {
		t, err := s.tickets.CreateTicket(ctx, id, *state.Analysis, *state.Routing)
		if err != nil {
			return &StageError{Message: "Communication failed: create ticket", Status: model.StatusFailedJira, Err: err}
		}
		state.Ticket = t
		state.Status = model.StatusTicketCreated
		zap.L().Info("communicate: ticket created",
			zap.String("complaint_id", id),
			zap.String("jira_key", t.JiraKey),
		)
	}

	if state.Notification == nil {
		n, err := s.notifier.NotifyTeam(ctx, id, state.Raw, *state.Routing, *state.Ticket)
		if err != nil {
			return &StageError{Message: "Communication failed: notify team", Status: model.StatusFailedEmail, Err: err}
		}
		state.Notification = n
		state.Status = model.StatusNotified

		c, err := s.notifier.NotifyCustomer(ctx, state.Raw, *state.Ticket)
		if err != nil {
			return &StageError{Message: "Communication failed: notify customer", Status: model.StatusFailedEmail, Err: err}
		}
		state.CustomerNotification = c
	}

	state.MarkCompleted(s.now().UTC())
	zap.L().Info("communicate: complaint completed",
		zap.String("complaint_id", id),
		zap.String("jira_key", state.Ticket.JiraKey),
		zap.String("team_email", state.Routing.ResponsibleEmail),
		zap.Bool("customer_notified", state.CustomerNotification != nil),
	)
	return nil
}
