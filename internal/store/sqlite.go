package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// SQLiteStore implements LeadStore using modernc.org/sqlite.
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
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS leads (
	id                  TEXT PRIMARY KEY,
	session_id          TEXT NOT NULL,
	name                TEXT NOT NULL DEFAULT '',
	email               TEXT NOT NULL DEFAULT '',
	phone               TEXT NOT NULL DEFAULT '',
	stage               TEXT NOT NULL DEFAULT 'lead',
	is_qualified        INTEGER NOT NULL DEFAULT 0,
	qualification_score INTEGER NOT NULL DEFAULT 0,
	attributes          TEXT NOT NULL DEFAULT '{}',
	order_index         INTEGER NOT NULL DEFAULT 0,
	observation         TEXT NOT NULL DEFAULT '',
	created_at          DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS stage_history (
	id             TEXT PRIMARY KEY,
	lead_id        TEXT NOT NULL REFERENCES leads(id) ON DELETE CASCADE,
	previous_stage TEXT,
	new_stage      TEXT NOT NULL,
	actor          TEXT,
	created_at     DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_leads_session ON leads(session_id, id);
CREATE INDEX IF NOT EXISTS idx_stage_history_lead ON stage_history(lead_id, created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateLead(ctx context.Context, lead *model.Lead) error {
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	if lead.Stage == "" {
		lead.Stage = model.StageLead
	}

	attrs, err := marshalAttributes(lead.Attributes)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal attributes")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO leads (id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		lead.ID, lead.SessionID, lead.Name, lead.Email, lead.Phone, string(lead.Stage),
		boolToInt(lead.IsQualified), lead.QualificationScore, attrs, lead.OrderIndex,
		lead.Observation, lead.CreatedAt,
	)
	return eris.Wrap(err, "sqlite: insert lead")
}

func (s *SQLiteStore) CreateLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	if len(leads) == 0 {
		return 0, nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin insert leads")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
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
		attrs, err := marshalAttributes(lead.Attributes)
		if err != nil {
			return n, eris.Wrapf(err, "sqlite: marshal attributes for %s", lead.ID)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO leads (id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			lead.ID, lead.SessionID, lead.Name, lead.Email, lead.Phone, string(lead.Stage),
			boolToInt(lead.IsQualified), lead.QualificationScore, attrs, lead.OrderIndex,
			lead.Observation, lead.CreatedAt,
		); err != nil {
			return n, eris.Wrapf(err, "sqlite: insert lead %s", lead.ID)
		}
		n++
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit insert leads")
	}
	return n, nil
}

const leadColumns = `id, session_id, name, email, phone, stage, is_qualified, qualification_score, attributes, order_index, observation, created_at`

func (s *SQLiteStore) GetLead(ctx context.Context, id string) (*model.Lead, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE id = ?`, id)
	lead, err := scanLead(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get lead %s", id)
	}
	return lead, nil
}

func (s *SQLiteStore) UpdateLeadStage(ctx context.Context, id string, stage model.Stage) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET stage = ? WHERE id = ?`, string(stage), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update stage for %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) UpdateLeadScore(ctx context.Context, id string, score int, qualified bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE leads SET qualification_score = ?, is_qualified = ? WHERE id = ?`,
		score, boolToInt(qualified), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update score for %s", id)
	}
	return checkRowsAffected(res, id)
}

func (s *SQLiteStore) BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int64, error) {
	if len(updates) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin score batch")
	}
	defer tx.Rollback() //nolint:errcheck

	var n int64
	for _, u := range updates {
		res, err := tx.ExecContext(ctx,
			`UPDATE leads SET qualification_score = ?, is_qualified = ? WHERE id = ?`,
			u.Score, boolToInt(u.Qualified), u.LeadID)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: batch score for %s", u.LeadID)
		}
		affected, _ := res.RowsAffected()
		n += affected
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit score batch")
	}
	return n, nil
}

func (s *SQLiteStore) DeleteLeads(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	res, err := s.db.ExecContext(ctx,
		`DELETE FROM leads WHERE id IN (`+placeholders+`)`, args...)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete leads")
	}
	n, err := res.RowsAffected()
	return n, eris.Wrap(err, "sqlite: delete leads rows affected")
}

func (s *SQLiteStore) ListSessionLeads(ctx context.Context, sessionID, afterID string, limit int) ([]model.Lead, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+leadColumns+` FROM leads WHERE session_id = ? AND id > ? ORDER BY id LIMIT ?`,
		sessionID, afterID, limit)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list session %s", sessionID)
	}
	defer rows.Close()

	var out []model.Lead
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan lead")
		}
		out = append(out, *lead)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate leads")
}

func (s *SQLiteStore) AppendStageHistory(ctx context.Context, entry *model.StageHistoryEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	var prev any
	if entry.PreviousStage != nil {
		prev = string(*entry.PreviousStage)
	}
	var actor any
	if entry.Actor != nil {
		actor = *entry.Actor
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO stage_history (id, lead_id, previous_stage, new_stage, actor, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.LeadID, prev, string(entry.NewStage), actor, entry.Timestamp)
	return eris.Wrapf(err, "sqlite: append history for %s", entry.LeadID)
}

func (s *SQLiteStore) ListStageHistory(ctx context.Context, leadID string) ([]model.StageHistoryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, lead_id, previous_stage, new_stage, actor, created_at
		 FROM stage_history WHERE lead_id = ? ORDER BY created_at DESC, id DESC`,
		leadID)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list history for %s", leadID)
	}
	defer rows.Close()

	var out []model.StageHistoryEntry
	for rows.Next() {
		var e model.StageHistoryEntry
		var prev, actor sql.NullString
		var newStage string
		if err := rows.Scan(&e.ID, &e.LeadID, &prev, &newStage, &actor, &e.Timestamp); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan history entry")
		}
		e.NewStage = model.Stage(newStage)
		if prev.Valid {
			stage := model.Stage(prev.String)
			e.PreviousStage = &stage
		}
		if actor.Valid {
			a := actor.String
			e.Actor = &a
		}
		out = append(out, e)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: iterate history")
}

// rowScanner covers both sql.Row and sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanLead(row rowScanner) (*model.Lead, error) {
	var lead model.Lead
	var stage, attrs string
	var qualified int
	if err := row.Scan(&lead.ID, &lead.SessionID, &lead.Name, &lead.Email, &lead.Phone,
		&stage, &qualified, &lead.QualificationScore, &attrs, &lead.OrderIndex,
		&lead.Observation, &lead.CreatedAt); err != nil {
		return nil, err
	}
	lead.Stage = model.Stage(stage)
	lead.IsQualified = qualified != 0
	if attrs != "" && attrs != "{}" {
		if err := json.Unmarshal([]byte(attrs), &lead.Attributes); err != nil {
			return nil, eris.Wrapf(err, "unmarshal attributes for %s", lead.ID)
		}
	}
	return &lead, nil
}

func marshalAttributes(attrs map[string]string) (string, error) {
	if len(attrs) == 0 {
		return "{}", nil
	}
	b, err := json.Marshal(attrs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "lead %s", id)
	}
	return nil
}
