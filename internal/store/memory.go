package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// MemoryStore is an in-memory LeadStore for tests and ephemeral runs. It is
// safe for concurrent use.
type MemoryStore struct {
	mu      sync.RWMutex
	leads   map[string]model.Lead
	history map[string][]model.StageHistoryEntry

	// FailHistoryWrites makes AppendStageHistory fail, for exercising the
	// engine's rollback path.
	FailHistoryWrites bool
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{
		leads:   make(map[string]model.Lead),
		history: make(map[string][]model.StageHistoryEntry),
	}
}

func (m *MemoryStore) CreateLead(_ context.Context, lead *model.Lead) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if lead.ID == "" {
		lead.ID = uuid.New().String()
	}
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = time.Now().UTC()
	}
	if lead.Stage == "" {
		lead.Stage = model.StageLead
	}
	m.leads[lead.ID] = cloneLead(*lead)
	return nil
}

func (m *MemoryStore) CreateLeads(ctx context.Context, leads []model.Lead) (int64, error) {
	for i := range leads {
		if err := m.CreateLead(ctx, &leads[i]); err != nil {
			return int64(i), err
		}
	}
	return int64(len(leads)), nil
}

func (m *MemoryStore) GetLead(_ context.Context, id string) (*model.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lead, ok := m.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := cloneLead(lead)
	return &c, nil
}

func (m *MemoryStore) UpdateLeadStage(_ context.Context, id string, stage model.Stage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	lead.Stage = stage
	m.leads[id] = lead
	return nil
}

func (m *MemoryStore) UpdateLeadScore(_ context.Context, id string, score int, qualified bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	lead, ok := m.leads[id]
	if !ok {
		return ErrNotFound
	}
	lead.QualificationScore = score
	lead.IsQualified = qualified
	m.leads[id] = lead
	return nil
}

func (m *MemoryStore) BulkUpdateScores(ctx context.Context, updates []ScoreUpdate) (int64, error) {
	var n int64
	for _, u := range updates {
		if err := m.UpdateLeadScore(ctx, u.LeadID, u.Score, u.Qualified); err != nil {
			if eris.Is(err, ErrNotFound) {
				continue
			}
			return n, err
		}
		n++
	}
	return n, nil
}

func (m *MemoryStore) DeleteLeads(_ context.Context, ids []string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if _, ok := m.leads[id]; ok {
			delete(m.leads, id)
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) ListSessionLeads(_ context.Context, sessionID, afterID string, limit int) ([]model.Lead, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []model.Lead
	for _, lead := range m.leads {
		if lead.SessionID != sessionID {
			continue
		}
		if afterID != "" && lead.ID <= afterID {
			continue
		}
		out = append(out, cloneLead(lead))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *MemoryStore) AppendStageHistory(_ context.Context, entry *model.StageHistoryEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailHistoryWrites {
		return eris.New("memory: history write refused")
	}
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	m.history[entry.LeadID] = append(m.history[entry.LeadID], *entry)
	return nil
}

func (m *MemoryStore) ListStageHistory(_ context.Context, leadID string) ([]model.StageHistoryEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	entries := m.history[leadID]
	out := make([]model.StageHistoryEntry, len(entries))
	// Most-recent-first, matching the SQL implementations.
	for i, e := range entries {
		out[len(entries)-1-i] = e
	}
	return out, nil
}

func (m *MemoryStore) Migrate(context.Context) error { return nil }

func (m *MemoryStore) Close() error { return nil }

func cloneLead(lead model.Lead) model.Lead {
	if lead.Attributes != nil {
		attrs := make(map[string]string, len(lead.Attributes))
		for k, v := range lead.Attributes {
			attrs[k] = v
		}
		lead.Attributes = attrs
	}
	return lead
}
