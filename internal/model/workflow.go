package model

import (
	"strings"
	"time"
)

// WorkflowStatus is the stage a complaint has reached in the pipeline.
type WorkflowStatus string

const (
	StatusNew           WorkflowStatus = "NEW"
	StatusAnonymized    WorkflowStatus = "ANONYMIZED"
	StatusAnalyzed      WorkflowStatus = "ANALYZED"
	StatusRouted        WorkflowStatus = "ROUTED"
	StatusTicketCreated WorkflowStatus = "TICKET_CREATED"
	StatusNotified      WorkflowStatus = "NOTIFIED"
	StatusCompleted     WorkflowStatus = "COMPLETED"

	StatusFailedLLM     WorkflowStatus = "FAILED_LLM"
	StatusFailedRouting WorkflowStatus = "FAILED_ROUTING"
	StatusFailedJira    WorkflowStatus = "FAILED_JIRA"
	StatusFailedEmail   WorkflowStatus = "FAILED_EMAIL"
)

// IsFailed reports whether the status is one of the FAILED_* family.
func (s WorkflowStatus) IsFailed() bool {
	return strings.HasPrefix(string(s), "FAILED")
}

// IsTerminal reports whether no further stage will run for this status.
func (s WorkflowStatus) IsTerminal() bool {
	return s == StatusCompleted || s.IsFailed()
}

// Analysis is the structured classification of a complaint.
type Analysis struct {
	ComplaintID string            `json:"complaint_id"`
	Summary     string            `json:"summary"`
	Category    ComplaintCategory `json:"category"`
	Sentiment   Sentiment         `json:"sentiment"`
	Urgency     Urgency           `json:"urgency"`
	KeyIssues   []string          `json:"key_issues"`
	AnalyzedAt  time.Time         `json:"analyzed_at"`
}

// MaxKeyIssues caps the number of key issues kept on an Analysis.
const MaxKeyIssues = 4

// RoutingDecision records which team owns a complaint and under what SLA.
type RoutingDecision struct {
	ComplaintID      string    `json:"complaint_id"`
	Team             string    `json:"team"`
	TeamID           string    `json:"team_id"`
	ResponsibleEmail string    `json:"responsible_email"`
	Priority         Priority  `json:"priority"`
	Justification    string    `json:"justification"`
	SLAHours         int       `json:"sla_hours"`
	RoutedAt         time.Time `json:"routed_at"`
}

// TicketStatusOpen is the status of a freshly created ticket.
const TicketStatusOpen = "Open"

// TicketInfo describes the ticket opened for a complaint.
type TicketInfo struct {
	ComplaintID string    `json:"complaint_id"`
	JiraID      string    `json:"jira_id"`
	JiraKey     string    `json:"jira_key"`
	JiraLink    string    `json:"jira_link"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Notification delivery states.
const (
	NotificationSent   = "sent"
	NotificationFailed = "failed"
)

// NotificationInfo describes one outbound email.
type NotificationInfo struct {
	ComplaintID  string    `json:"complaint_id"`
	TicketID     string    `json:"ticket_id"`
	EmailTo      string    `json:"email_to"`
	EmailSubject string    `json:"email_subject"`
	SentAt       time.Time `json:"sent_at"`
	Status       string    `json:"status"`
}

// WorkflowState carries one complaint through every stage. Each stage
// populates its own output field; Errors only ever grows.
type WorkflowState struct {
	Raw                  ComplaintRecord   `json:"complaint_raw"`
	Anonymized           *ComplaintRecord  `json:"complaint_anonymized,omitempty"`
	Analysis             *Analysis         `json:"analysis,omitempty"`
	Routing              *RoutingDecision  `json:"routing,omitempty"`
	Ticket               *TicketInfo       `json:"ticket,omitempty"`
	Notification         *NotificationInfo `json:"notification,omitempty"`
	CustomerNotification *NotificationInfo `json:"customer_notification,omitempty"`
	Status               WorkflowStatus    `json:"status"`
	Errors               []string          `json:"errors"`
	StartedAt            time.Time         `json:"started_at"`
	CompletedAt          *time.Time        `json:"completed_at,omitempty"`
}

// NewWorkflowState starts a workflow for raw in status NEW.
func NewWorkflowState(raw ComplaintRecord, now time.Time) *WorkflowState {
	return &WorkflowState{
		Raw:       raw,
		Status:    StatusNew,
		Errors:    []string{},
		StartedAt: now,
	}
}

// ComplaintID returns the identifier of the complaint being processed.
func (s *WorkflowState) ComplaintID() string {
	return s.Raw.Key()
}

// Source returns the record that downstream consumers should read: the
// anonymized copy when present, the raw record otherwise.
func (s *WorkflowState) Source() ComplaintRecord {
	if s.Anonymized != nil {
		return *s.Anonymized
	}
	return s.Raw
}

// AddError appends msg to the error trail.
func (s *WorkflowState) AddError(msg string) {
	s.Errors = append(s.Errors, msg)
}

// IsFailed reports whether the workflow is in a FAILED_* status.
func (s *WorkflowState) IsFailed() bool {
	return s.Status.IsFailed()
}

// MarkCompleted sets the terminal success status and completion time.
func (s *WorkflowState) MarkCompleted(now time.Time) {
	s.Status = StatusCompleted
	s.CompletedAt = &now
}
