package search

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/db"
	"github.com/Vini334/ReclamaAI/internal/model"
)

const teamsTable = "complaint_teams"

const postgresSearchMigration = `
CREATE TABLE IF NOT EXISTS complaint_teams (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL,
	categories TEXT[] NOT NULL DEFAULT '{}',
	document   TEXT NOT NULL,
	payload    JSONB NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_complaint_teams_fts
	ON complaint_teams USING GIN (to_tsvector('portuguese', document));
`

const searchTeamsSQL = `
	SELECT payload
	FROM complaint_teams
	WHERE ($2 = '' OR $2 = ANY(categories))
	ORDER BY ts_rank(to_tsvector('portuguese', document), plainto_tsquery('portuguese', $1)) DESC, id
	LIMIT $3
`

// PostgresIndex ranks teams with Postgres full-text search over the team
// profiles stored in complaint_teams.
type PostgresIndex struct {
	pool db.Pool
}

// NewPostgresIndex returns an index over pool. Call Migrate and IndexTeams
// before searching.
func NewPostgresIndex(pool db.Pool) *PostgresIndex {
	return &PostgresIndex{pool: pool}
}

// Migrate creates the team table and its full-text index.
func (p *PostgresIndex) Migrate(ctx context.Context) error {
	_, err := p.pool.Exec(ctx, postgresSearchMigration)
	return eris.Wrap(err, "search: migrate")
}

// IndexTeams upserts the searchable profile of every team.
func (p *PostgresIndex) IndexTeams(ctx context.Context, teams []model.Team) (int64, error) {
	rows := make([][]any, 0, len(teams))
	for _, t := range teams {
		payload, err := json.Marshal(t)
		if err != nil {
			return 0, eris.Wrapf(err, "search: marshal team %s", t.ID)
		}
		cats := make([]string, len(t.Categories))
		for i, c := range t.Categories {
			cats[i] = strings.ToLower(c)
		}
		rows = append(rows, []any{t.ID, t.Name, cats, Document(t), payload})
	}

	n, err := db.BulkUpsert(ctx, p.pool, db.UpsertConfig{
		Table:        teamsTable,
		Columns:      []string{"id", "name", "categories", "document", "payload"},
		ConflictKeys: []string{"id"},
	}, rows)
	return n, eris.Wrap(err, "search: index teams")
}

// SearchTeams implements TeamSearcher.
func (p *PostgresIndex) SearchTeams(ctx context.Context, query, category string, topK int) ([]model.Team, error) {
	rows, err := p.pool.Query(ctx, searchTeamsSQL, query, strings.ToLower(category), normalizeTopK(topK))
	if err != nil {
		return nil, eris.Wrap(err, "search: query teams")
	}
	defer rows.Close()

	var teams []model.Team
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, eris.Wrap(err, "search: scan team")
		}
		var t model.Team
		if err := json.Unmarshal(payload, &t); err != nil {
			return nil, eris.Wrap(err, "search: unmarshal team")
		}
		teams = append(teams, t)
	}
	return teams, eris.Wrap(rows.Err(), "search: iterate teams")
}
