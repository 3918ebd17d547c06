package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/db"
	"github.com/Vini334/ReclamaAI/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection.
var preparedStatements = map[string]string{
	"upsert_complaint": upsertComplaintSQL,
	"get_complaint":    `SELECT state FROM complaints WHERE id = $1 LIMIT 1`,
	"insert_event":     insertEventSQL,
}

const upsertComplaintSQL = `INSERT INTO complaints (id, external_id, source, status, category, team_id, state, created_at, updated_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (id, source) DO UPDATE SET
	  status = EXCLUDED.status, category = EXCLUDED.category, team_id = EXCLUDED.team_id,
	  state = EXCLUDED.state, updated_at = EXCLUDED.updated_at`

const insertEventSQL = `INSERT INTO audit_log (id, complaint_id, event_type, details, event_date, created_at)
	VALUES ($1, $2, $3, $4, $5, $6)`

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// Pool returns the underlying pool so the team search index can share it.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

// Complaints are list-partitioned by source and the audit log is
// range-partitioned by event date; default partitions catch every value so
// no maintenance job is needed to accept writes.
const postgresMigration = `
CREATE TABLE IF NOT EXISTS complaints (
	id          TEXT NOT NULL,
	external_id TEXT NOT NULL DEFAULT '',
	source      TEXT NOT NULL,
	status      TEXT NOT NULL,
	category    TEXT NOT NULL DEFAULT '',
	team_id     TEXT NOT NULL DEFAULT '',
	state       JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (id, source)
) PARTITION BY LIST (source);

CREATE TABLE IF NOT EXISTS complaints_default PARTITION OF complaints DEFAULT;

CREATE INDEX IF NOT EXISTS idx_complaints_id ON complaints(id);
CREATE INDEX IF NOT EXISTS idx_complaints_status ON complaints(status);
CREATE INDEX IF NOT EXISTS idx_complaints_created_at ON complaints(created_at DESC);

CREATE TABLE IF NOT EXISTS audit_log (
	id           TEXT NOT NULL,
	complaint_id TEXT NOT NULL,
	event_type   TEXT NOT NULL,
	details      JSONB NOT NULL DEFAULT '{}',
	event_date   DATE NOT NULL,
	created_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (id, event_date)
) PARTITION BY RANGE (event_date);

CREATE TABLE IF NOT EXISTS audit_log_default PARTITION OF audit_log DEFAULT;

CREATE INDEX IF NOT EXISTS idx_audit_log_complaint ON audit_log(complaint_id, created_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.pool.Ping(ctx), "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SaveComplaint(ctx context.Context, state *model.WorkflowState) (string, error) {
	if state.ComplaintID() == "" {
		state.Raw.ID = uuid.New().String()
	}

	row, err := newComplaintRow(state, time.Now().UTC())
	if err != nil {
		return "", err
	}

	_, err = s.pool.Exec(ctx, upsertComplaintSQL,
		row.id, row.externalID, row.source, row.status, row.category, row.teamID,
		row.state, row.createdAt, row.updatedAt,
	)
	if err != nil {
		return "", eris.Wrapf(err, "postgres: save complaint %s", row.id)
	}
	return row.id, nil
}

func (s *PostgresStore) GetComplaint(ctx context.Context, id string) (*model.WorkflowState, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `SELECT state FROM complaints WHERE id = $1 LIMIT 1`, id).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "complaint %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get complaint %s", id)
	}
	return decodeState(raw)
}

func (s *PostgresStore) ListComplaints(ctx context.Context, filter ComplaintFilter) ([]*model.WorkflowState, error) {
	query := `SELECT state FROM complaints WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Source != "" {
		query += fmt.Sprintf(` AND source = $%d`, argIdx)
		args = append(args, string(filter.Source))
		argIdx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at DESC, id LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list complaints")
	}
	defer rows.Close()

	var out []*model.WorkflowState
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, eris.Wrap(err, "postgres: scan complaint")
		}
		st, err := decodeState(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, st)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list complaints iterate")
}

func (s *PostgresStore) LogEvent(ctx context.Context, complaintID, eventType string, details map[string]any) error {
	payload, err := encodeDetails(details)
	if err != nil {
		return err
	}

	now := time.Now().UTC()
	_, err = s.pool.Exec(ctx, insertEventSQL,
		uuid.New().String(), complaintID, eventType, payload, now.Format(EventDateLayout), now,
	)
	return eris.Wrapf(err, "postgres: log event %s for %s", eventType, complaintID)
}

func (s *PostgresStore) GetAuditLog(ctx context.Context, filter AuditFilter) ([]AuditEvent, error) {
	query := `SELECT id, complaint_id, event_type, details, event_date::text, created_at FROM audit_log WHERE true`
	args := []any{}
	argIdx := 1

	if filter.ComplaintID != "" {
		query += fmt.Sprintf(` AND complaint_id = $%d`, argIdx)
		args = append(args, filter.ComplaintID)
		argIdx++
	}
	if filter.EventType != "" {
		query += fmt.Sprintf(` AND event_type = $%d`, argIdx)
		args = append(args, filter.EventType)
		argIdx++
	}
	if !filter.From.IsZero() {
		query += fmt.Sprintf(` AND event_date >= $%d`, argIdx)
		args = append(args, filter.From.UTC().Format(EventDateLayout))
		argIdx++
	}
	if !filter.To.IsZero() {
		query += fmt.Sprintf(` AND event_date <= $%d`, argIdx)
		args = append(args, filter.To.UTC().Format(EventDateLayout))
		argIdx++
	}
	query += fmt.Sprintf(` ORDER BY created_at LIMIT $%d`, argIdx)
	args = append(args, listLimit(filter.Limit))

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get audit log")
	}
	defer rows.Close()

	var events []AuditEvent
	for rows.Next() {
		var ev AuditEvent
		if err := rows.Scan(&ev.ID, &ev.ComplaintID, &ev.EventType, &ev.Details, &ev.EventDate, &ev.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan audit event")
		}
		events = append(events, ev)
	}
	return events, eris.Wrap(rows.Err(), "postgres: audit log iterate")
}

func (s *PostgresStore) Stats(ctx context.Context) (*Stats, error) {
	st := newStats()

	rows, err := s.pool.Query(ctx, `SELECT source, status, COUNT(*) FROM complaints GROUP BY source, status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: complaint stats")
	}
	defer rows.Close()

	for rows.Next() {
		var source, status string
		var n int64
		if err := rows.Scan(&source, &status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan stats")
		}
		st.Total += int(n)
		st.BySource[source] += int(n)
		st.ByStatus[status] += int(n)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: stats iterate")
	}

	var events int64
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM audit_log`).Scan(&events); err != nil {
		return nil, eris.Wrap(err, "postgres: count audit events")
	}
	st.AuditEvents = int(events)
	return st, nil
}
