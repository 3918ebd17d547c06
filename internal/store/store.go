package store

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// ErrNotFound is returned when a complaint does not exist.
var ErrNotFound = eris.New("store: not found")

// EventDateLayout is the format of the audit log partition column.
const EventDateLayout = "2006-01-02"

// ComplaintFilter specifies criteria for listing complaints.
type ComplaintFilter struct {
	Source model.ComplaintSource `json:"source,omitempty"`
	Status model.WorkflowStatus  `json:"status,omitempty"`
	Limit  int                   `json:"limit,omitempty"`
	Offset int                   `json:"offset,omitempty"`
}

// AuditFilter specifies criteria for reading the audit log. Dates are
// inclusive and compared on the event date only.
type AuditFilter struct {
	ComplaintID string    `json:"complaint_id,omitempty"`
	EventType   string    `json:"event_type,omitempty"`
	From        time.Time `json:"from,omitempty"`
	To          time.Time `json:"to,omitempty"`
	Limit       int       `json:"limit,omitempty"`
}

// AuditEvent is one row of the audit log.
type AuditEvent struct {
	ID          string         `json:"id"`
	ComplaintID string         `json:"complaint_id"`
	EventType   string         `json:"event_type"`
	Details     map[string]any `json:"details,omitempty"`
	EventDate   string         `json:"event_date"`
	CreatedAt   time.Time      `json:"created_at"`
}

// Stats summarizes persisted complaints.
type Stats struct {
	Total       int            `json:"total"`
	BySource    map[string]int `json:"by_source"`
	ByStatus    map[string]int `json:"by_status"`
	AuditEvents int            `json:"audit_events"`
}

// Store defines the persistence interface for processed complaints and
// their audit trail.
type Store interface {
	// Complaints
	SaveComplaint(ctx context.Context, state *model.WorkflowState) (string, error)
	GetComplaint(ctx context.Context, id string) (*model.WorkflowState, error)
	ListComplaints(ctx context.Context, filter ComplaintFilter) ([]*model.WorkflowState, error)

	// Audit
	LogEvent(ctx context.Context, complaintID, eventType string, details map[string]any) error
	GetAuditLog(ctx context.Context, filter AuditFilter) ([]AuditEvent, error)

	Stats(ctx context.Context) (*Stats, error)

	// Lifecycle
	Ping(ctx context.Context) error
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

func listLimit(n int) int {
	if n <= 0 {
		return defaultListLimit
	}
	return n
}

// complaintRow is the column projection shared by both backends.
type complaintRow struct {
	id         string
	externalID string
	source     string
	status     string
	category   string
	teamID     string
	state      []byte
	createdAt  time.Time
	updatedAt  time.Time
}

func newComplaintRow(state *model.WorkflowState, now time.Time) (complaintRow, error) {
	raw, err := json.Marshal(state)
	if err != nil {
		return complaintRow{}, eris.Wrap(err, "store: marshal workflow state")
	}

	row := complaintRow{
		id:         state.ComplaintID(),
		externalID: state.Raw.ExternalID,
		source:     string(state.Raw.Source),
		status:     string(state.Status),
		state:      raw,
		createdAt:  now,
		updatedAt:  now,
	}
	if state.Analysis != nil {
		row.category = string(state.Analysis.Category)
	}
	if state.Routing != nil {
		row.teamID = state.Routing.TeamID
	}
	return row, nil
}

func decodeState(raw []byte) (*model.WorkflowState, error) {
	var st model.WorkflowState
	if err := json.Unmarshal(raw, &st); err != nil {
		return nil, eris.Wrap(err, "store: unmarshal workflow state")
	}
	if st.Errors == nil {
		st.Errors = []string{}
	}
	return &st, nil
}

func encodeDetails(details map[string]any) ([]byte, error) {
	if details == nil {
		details = map[string]any{}
	}
	b, err := json.Marshal(details)
	return b, eris.Wrap(err, "store: marshal event details")
}

func newStats() *Stats {
	return &Stats{BySource: map[string]int{}, ByStatus: map[string]int{}}
}
