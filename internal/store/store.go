// Package store defines the lead repository interface and its SQLite,
// Postgres and in-memory implementations.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// ErrNotFound reports a lookup for a lead that does not exist.
var ErrNotFound = eris.New("store: not found")

// ScoreUpdate carries one lead's recomputed score for a bulk write.
type ScoreUpdate struct {
	LeadID    string `json:"lead_id"`
	Score     int    `json:"score"`
	Qualified bool   `json:"qualified"`
}

// LeadStore is the persistence interface for the lead pipeline. Session
// reads are paginated and must be exhaustive: ListSessionLeads walks leads
// in id order from afterID, and callers page until a short page.
type LeadStore interface {
	// Leads
	CreateLead(ctx context.Context, lead *model.Lead) error
	CreateLeads(ctx context.Context, leads []model.Lead) (int64, error)
	GetLead(ctx context.Context, id string) (*model.Lead, error)
	UpdateLeadStage(ctx context.Context, id string, stage model.Stage) error
	UpdateLeadScore(ctx context.Context, id string, score int, qualified bool) error
	BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int64, error)
	DeleteLeads(ctx context.Context, ids []string) (int64, error)
	ListSessionLeads(ctx context.Context, sessionID, afterID string, limit int) ([]model.Lead, error)

	// Stage history (append-only)
	AppendStageHistory(ctx context.Context, entry *model.StageHistoryEntry) error
	ListStageHistory(ctx context.Context, leadID string) ([]model.StageHistoryEntry, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// defaultPageSize bounds session scans when the caller does not choose one.
const defaultPageSize = 500

// ForEachSessionLead streams every lead of a session through fn, page by
// page, in id order. No page-size cap truncates the scan; it ends only when
// a page comes back short. Returns the number of leads visited.
func ForEachSessionLead(ctx context.Context, s LeadStore, sessionID string, pageSize int, fn func(lead *model.Lead) error) (int, error) {
	if pageSize <= 0 {
		pageSize = defaultPageSize
	}

	total := 0
	afterID := ""
	for {
		page, err := s.ListSessionLeads(ctx, sessionID, afterID, pageSize)
		if err != nil {
			return total, eris.Wrapf(err, "store: list session %s after %q", sessionID, afterID)
		}
		for i := range page {
			if err := fn(&page[i]); err != nil {
				return total, err
			}
			total++
		}
		if len(page) < pageSize {
			return total, nil
		}
		afterID = page[len(page)-1].ID
	}
}
