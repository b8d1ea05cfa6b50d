package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/db"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// PostgresStore implements LeadStore using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the hottest store operations.
var preparedStatements = map[string]string{
	"get_lead":           `SELECT id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at FROM leads WHERE id = $1`,
	"update_lead_stage":  `UPDATE leads SET stage = $1 WHERE id = $2`,
	"update_lead_score":  `UPDATE leads SET qualification_score = $1, is_qualified = $2 WHERE id = $3`,
	"list_session_leads": `SELECT id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at FROM leads WHERE session_id = $1 AND id > $2 ORDER BY id LIMIT $3`,
	"insert_history":     `INSERT INTO stage_history (id, lead_id, previous_stage, new_stage, actor, created_at) VALUES ($1, $2, $3, $4, $5, $6)`,
	"list_history":       `SELECT id, lead_id, previous_stage, new_stage, actor, created_at FROM stage_history WHERE lead_id = $1 ORDER BY created_at DESC, id DESC`,
}

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

	// Prepare frequently-used statements on each new connection.
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

// NewPostgresWithPool wraps an existing pool; tests use it with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                  TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	session_id          TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	stage               TEXT NOT NULL DEFAULT 'lead',
	is_qualified        BOOLEAN NOT NULL DEFAULT false,
	qualification_score INTEGER NOT NULL DEFAULT 0,
	attributes          JSONB NOT NULL DEFAULT '{}',
	order_index         INTEGER NOT NULL DEFAULT 0,
	observation         TEXT NOT NULL DEFAULT '',
	created_at          TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS stage_history (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	lead_id        TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	previous_stage TEXT,
	new_stage      TEXT NOT NULL,
	actor          TEXT,
	created_at     TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id, id);
CREATE INDEX IF NOT EXISTS idx_stage_history_lead ON stage_history(lead_id, created_at DESC);
`

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

func (s *PostgresStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	if lead.Stage == "" {
		lead.Stage = model.StageLead
	}

	attrsJSON, err := json.Marshal(attributesOrEmpty(lead.Attributes))
	if err != nil {
		return eris.Wrap(err, "postgres: marshal attributes")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO leads (id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		lead.ID, lead.SessionID, lead.Name, lead.Email, lead.Phone, string(lead.Stage),
		lead.IsQualified, lead.QualificationScore, attrsJSON, lead.OrderIndex,
		lead.Observation, lead.CreatedAt,
	)
	return eris.Wrap(err, "postgres: insert lead")
}

// CreateLeads bulk-inserts a session's leads through the COPY protocol.
func (s *PostgresStore) CreateLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}

	rows := make([][]any, 0, len(leads))
	for i := range leads {
		lead := &leads[i]
		if lead.ID == "" {
			lead.ID = uuid.New().String()
		}
		if lead.CreatedAt.IsZero() {
			lead.CreatedAt = time.Now().UTC()
		}
		if lead.Stage == "" {
			lead.Stage = model.StageLead
		}
		attrsJSON, err := json.Marshal(attributesOrEmpty(lead.Attributes))
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: marshal attributes for %s", lead.ID)
		}
		rows = append(rows, []any{
			lead.ID, lead.SessionID, lead.Name, lead.Email, lead.Phone, string(lead.Stage),
			lead.IsQualified, lead.QualificationScore, attrsJSON, lead.OrderIndex,
			lead.Observation, lead.CreatedAt,
		})
	}

	return db.CopyFrom(ctx, s.pool, "leads", []string{
		"id", "session_id", "name", "email", "phone", "stage", "is_qualified",
		"qualification_score", "attributes", "order_index", "observation", "created_at",
	}, rows)
}

func (s *PostgresStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	var lead model.Lead
	var stage string
	var attrsJSON []byte

	err := s.pool.QueryRow(ctx,
		`SELECT id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at
		 FROM leads WHERE id = $1`,
		id,
	).Scan(&lead.ID, &lead.SessionID, &lead.Name, &lead.Email, &lead.Phone, &stage,
		&lead.IsQualified, &lead.QualificationScore, &attrsJSON, &lead.OrderIndex,
		&lead.Observation, &lead.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, eris.Wrapf(ErrNotFound, "lead %s", id)
		}
		return nil, eris.Wrapf(err, "postgres: get lead %s", id)
	}

	lead.Stage = model.Stage(stage)
	if len(attrsJSON) > 0 {
		if err := json.Unmarshal(attrsJSON, &lead.Attributes); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal attributes")
		}
	}
	return &lead, nil
}

func (s *PostgresStore) UpdateLeadStage(ctx context.Context, id string, stage model.Stage) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET stage = $1 WHERE id = $2`,
		string(stage), id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update stage for %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}

func (s *PostgresStore) UpdateLeadScore(ctx context.Context, id string, score int, qualified bool) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE leads SET qualification_score = $1, is_qualified = $2 WHERE id = $3`,
		score, qualified, id,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: update score for %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}

// BulkUpdateScores writes a score batch in one transaction so a recompute is
// either fully applied or not at all.
func (s *PostgresStore) BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: begin score batch")
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	var n int64
	for _, u := range updates {
		tag, err := tx.Exec(ctx,
			`UPDATE leads SET qualification_score = $1, is_qualified = $2 WHERE id = $3`,
			u.Score, u.Qualified, u.LeadID,
		)
		if err != nil {
			return 0, eris.Wrapf(err, "postgres: batch score for %s", u.LeadID)
		}
		n += tag.RowsAffected()
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, eris.Wrap(err, "postgres: commit score batch")
	}
	return n, nil
}

func (s *PostgresStore) DeleteLeads(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM leads WHERE id = ANY($1)`,
		ids,
	)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete leads")
	}
	return tag.RowsAffected(), nil
}

func (s *PostgresStore) ListSessionLeads(ctx context.Context, sessionID, afterID string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at
		 FROM leads WHERE session_id = $1 AND id > $2 ORDER BY id LIMIT $3`,
		sessionID, afterID, limit,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list session %s", sessionID)
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		var lead model.Lead
		var stage string
		var attrsJSON []byte
		if err := rows.Scan(&lead.ID, &lead.SessionID, &lead.Name, &lead.Email, &lead.Phone,
			&stage, &lead.IsQualified, &lead.QualificationScore, &attrsJSON,
			&lead.OrderIndex, &lead.Observation, &lead.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan lead")
		}
		lead.Stage = model.Stage(stage)
		if len(attrsJSON) > 0 {
			if err := json.Unmarshal(attrsJSON, &lead.Attributes); err != nil {
				return nil, eris.Wrap(err, "postgres: unmarshal attributes")
			}
		}
		out = append(out, lead)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list session iterate")
}

func (s *PostgresStore) AppendStageHistory(ctx context.Context, entry *model.StageHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	var prev *string
	if entry.PreviousStage != nil {
		v := string(*entry.PreviousStage)
		prev = &v
	}

	_, err := s.pool.Exec(ctx,
		`INSERT INTO stage_history (id, lead_id, previous_stage, new_stage, actor, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		entry.ID, entry.LeadID, prev, string(entry.NewStage), entry.Actor, entry.Timestamp,
	)
	return eris.Wrapf(err, "postgres: append history for %s", entry.LeadID)
}

func (s *PostgresStore) ListStageHistory(ctx context.Context, leadID string) ([]model.StageHistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, lead_id, previous_stage, new_stage, actor, created_at
		 FROM stage_history WHERE lead_id = $1 ORDER BY created_at DESC, id DESC`,
		leadID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list history for %s", leadID)
	}
	defer rows.Close()

	var out []model.StageHistoryEntry
	for rows.Next() {
		var e model.StageHistoryEntry
		var prev *string
		var newStage string
		if err := rows.Scan(&e.ID, &e.LeadID, &prev, &newStage, &e.Actor, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "postgres: scan history entry")
		}
		e.NewStage = model.Stage(newStage)
		if prev != nil {
			stage := model.Stage(*prev)
			e.PreviousStage = &stage
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list history iterate")
}

func attributesOrEmpty(attrs map[string]string) map[string]string {
	if attrs == nil {
		return map[string]string{}
	}
	return attrs
}
