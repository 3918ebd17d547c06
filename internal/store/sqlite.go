package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/Vini334/ReclamaAI/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS complaints (
	id          TEXT PRIMARY KEY,
	external_id TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	team_id     TEXT NOT NULL DEFAULT '',
	state       TEXT NOT NULL,
	created_at  DATETIME NOT NULL,
	updated_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_complaints_source ON complaints(source);
CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status);
CREATE INDEX IF NOT EXISTS idx_complaints_external_id ON complaints(external_id);

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT PRIMARY KEY,
	complaint_id TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	details      TEXT NOT NULL DEFAULT '{}',
	event_date   TEXT NOT NULL,
	created_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_audit_log_complaint ON audit_log(complaint_id);
CREATE INDEX IF NOT EXISTS idx_audit_log_event_date ON audit_log(event_date);
`

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SaveComplaint(ctx context.Context, state *model.WorkflowState) (string, error) {
	if state.ComplaintID() == "" {
		state.Raw.ID = uuid.New().String()
	}

	row, err := newComplaintRow(state, time.Now().UTC())
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO complaints (id, external_id, source, status, category, team_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   status = excluded.status, category = excluded.category, team_id = excluded.team_id,
		   state = excluded.state, updated_at = excluded.updated_at`,
		row.id, row.externalID, row.source, row.status, row.category, row.teamID,
		string(row.state), row.createdAt, row.updatedAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: save complaint %s", row.id)
	}
	return row.id, nil
}

func (s *SQLiteStore) GetComplaint(ctx context.Context, id string) (*model.WorkflowState, error) {
	var raw string
	err := s.db.QueryRowContext(ctx, `SELECT state FROM complaints WHERE id = ?`, id).Scan(&raw)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "complaint %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get complaint %s", id)
	}
	return decodeState([]byte(raw))
}

func (s *SQLiteStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]*model.WorkflowState, error) {
	query := `SELECT state FROM complaints WHERE 1=1`
	var args []any

	if filter.Source != "" {
		query += ` AND source = ?`
		args = append(args, string(filter.Source))
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC, id LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list complaints")
	}
	defer rows.Close() //nolint:errcheck

	var out []*model.WorkflowState
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan complaint")
		}
		st, err := decodeState([]byte(raw))
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list complaints iterate")
}

func (s *SQLiteStore) LogEvent(ctx context.Context, complaintID, eventType string, details map[string]any) error {
	payload, err := encodeDetails(details)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO audit_log (id, complaint_id, event_type, details, event_date, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		uuid.New().String(), complaintID, eventType, string(payload), now.Format(EventDateLayout), now,
	)
	return eris.Wrapf(err, "sqlite: log event %s for %s", eventType, complaintID)
}

func (s *SQLiteStore) GetAuditLog(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `SELECT id, complaint_id, event_type, details, event_date, created_at FROM audit_log WHERE 1=1`
	var args []any

	if filter.ComplaintID != "" {
		query += ` AND complaint_id = ?`
		args = append(args, filter.ComplaintID)
	}
	if filter.EventType != "" {
		query += ` AND event_type = ?`
		args = append(args, filter.EventType)
	}
	if !filter.From.IsZero() {
		query += ` AND event_date >= ?`
		args = append(args, filter.From.UTC().Format(EventDateLayout))
	}
	if !filter.To.IsZero() {
		query += ` AND event_date <= ?`
		args = append(args, filter.To.UTC().Format(EventDateLayout))
	}
	query += ` ORDER BY created_at, rowid LIMIT ?`
	args = append(args, listLimit(filter.Limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get audit log")
	}
	defer rows.Close() //nolint:errcheck

	var events []AuditEvent
	for rows.Next() {
		ev, err := scanAuditEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, *ev)
	}
	return events, eris.Wrap(rows.Err(), "sqlite: audit log iterate")
}

func (s *SQLiteStore) Stats(ctx context.Context) (*Stats, error) {
	st := newStats()

	rows, err := s.db.QueryContext(ctx, `SELECT source, status, COUNT(*) FROM complaints GROUP BY source, status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: complaint stats")
	}
	defer rows.Close() //nolint:errcheck

	for rows.Next() {
		var source, status string
		var n int
		if err := rows.Scan(&source, &status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan stats")
		}
		st.Total += n
		st.BySource[source] += n
		st.ByStatus[status] += n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: stats iterate")
	}

	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&st.AuditEvents); err != nil {
		return nil, eris.Wrap(err, "sqlite: count audit events")
	}
	return st, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanAuditEvent(row scannable) (*AuditEvent, error) {
	var ev AuditEvent
	var details string

	if err := row.Scan(&ev.ID, &ev.ComplaintID, &ev.EventType, &details, &ev.EventDate, &ev.CreatedAt); err != nil {
		return nil, eris.Wrap(err, "sqlite: scan audit event")
	}
	if err := json.Unmarshal([]byte(details), &ev.Details); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal event details")
	}
	return &ev, nil
}
