package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func newTestSQLite(t *testing.T) LeadStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func newTestMemory(t *testing.T) LeadStore {
	t.Helper()
	return NewMemory()
}

func TestSQLiteStore(t *testing.T) {
	storeTestSuite(t, newTestSQLite)
}

func TestMemoryStore(t *testing.T) {
	storeTestSuite(t, newTestMemory)
}

func testLead(sessionID, id string) model.Lead {
	return model.Lead{
		ID:        id,
		SessionID: sessionID,
		Name:      "Ana Souza",
		Email:     "ana@example.com",
		Phone:     "11988887777",
		Stage:     model.StageLead,
		Attributes: map[string]string{
			"utm_source":  "instagram",
			"faturamento": "R$ 120.000",
		},
		CreatedAt: time.Now().UTC().Truncate(time.Second),
	}
}

func storeTestSuite(t *testing.T, newStore func(t *testing.T) LeadStore) {
	t.Run("CreateAndGetLead", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("s1", "")
		require.NoError(t, s.CreateLead(ctx, &lead))
		assert.NotEmpty(t, lead.ID)

		got, err := s.GetLead(ctx, lead.ID)
		require.NoError(t, err)
		assert.Equal(t, "Ana Souza", got.Name)
		assert.Equal(t, model.StageLead, got.Stage)
		assert.Equal(t, "instagram", got.Attributes["utm_source"])
	})

	t.Run("CreateLeadDefaultsEntryStage", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("s1", "l1")
		lead.Stage = ""
		require.NoError(t, s.CreateLead(ctx, &lead))

		got, err := s.GetLead(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, model.StageLead, got.Stage)
	})

	t.Run("GetLeadNotFound", func(t *testing.T) {
		s := newStore(t)

		_, err := s.GetLead(context.Background(), "missing")
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("CreateLeadsBulk", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		leads := []model.Lead{testLead("s1", "l1"), testLead("s1", "l2"), testLead("s1", "l3")}
		n, err := s.CreateLeads(ctx, leads)
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		page, err := s.ListSessionLeads(ctx, "s1", "", 10)
		require.NoError(t, err)
		assert.Len(t, page, 3)
	})

	t.Run("UpdateLeadStage", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("s1", "l1")
		require.NoError(t, s.CreateLead(ctx, &lead))

		require.NoError(t, s.UpdateLeadStage(ctx, "l1", model.StageQualified))

		got, err := s.GetLead(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, model.StageQualified, got.Stage)
	})

	t.Run("UpdateLeadStageNotFound", func(t *testing.T) {
		s := newStore(t)

		err := s.UpdateLeadStage(context.Background(), "missing", model.StageWon)
		require.Error(t, err)
		assert.True(t, eris.Is(err, ErrNotFound))
	})

	t.Run("UpdateLeadScore", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("s1", "l1")
		require.NoError(t, s.CreateLead(ctx, &lead))

		require.NoError(t, s.UpdateLeadScore(ctx, "l1", 70, true))

		got, err := s.GetLead(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, 70, got.QualificationScore)
		assert.True(t, got.IsQualified)
	})

	t.Run("BulkUpdateScores", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"l1", "l2"} {
			lead := testLead("s1", id)
			require.NoError(t, s.CreateLead(ctx, &lead))
		}

		n, err := s.BulkUpdateScores(ctx, []ScoreUpdate{
			{LeadID: "l1", Score: 80, Qualified: true},
			{LeadID: "l2", Score: 10, Qualified: false},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		got, err := s.GetLead(ctx, "l1")
		require.NoError(t, err)
		assert.Equal(t, 80, got.QualificationScore)
		assert.True(t, got.IsQualified)

		got, err = s.GetLead(ctx, "l2")
		require.NoError(t, err)
		assert.Equal(t, 10, got.QualificationScore)
		assert.False(t, got.IsQualified)
	})

	t.Run("DeleteLeads", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"l1", "l2", "l3"} {
			lead := testLead("s1", id)
			require.NoError(t, s.CreateLead(ctx, &lead))
		}

		n, err := s.DeleteLeads(ctx, []string{"l1", "l3", "missing"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		page, err := s.ListSessionLeads(ctx, "s1", "", 10)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "l2", page[0].ID)
	})

	t.Run("ListSessionLeadsPagination", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		for _, id := range []string{"a1", "a2", "a3", "a4", "a5"} {
			lead := testLead("s1", id)
			require.NoError(t, s.CreateLead(ctx, &lead))
		}
		other := testLead("s2", "b1")
		require.NoError(t, s.CreateLead(ctx, &other))

		page, err := s.ListSessionLeads(ctx, "s1", "", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "a1", page[0].ID)
		assert.Equal(t, "a2", page[1].ID)

		page, err = s.ListSessionLeads(ctx, "s1", "a2", 2)
		require.NoError(t, err)
		require.Len(t, page, 2)
		assert.Equal(t, "a3", page[0].ID)

		page, err = s.ListSessionLeads(ctx, "s1", "a4", 2)
		require.NoError(t, err)
		require.Len(t, page, 1)
		assert.Equal(t, "a5", page[0].ID)
	})

	t.Run("ForEachSessionLeadExhaustive", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		var leads []model.Lead
		for i := 0; i < 7; i++ {
			leads = append(leads, testLead("s1", string(rune('a'+i))+"-lead"))
		}
		_, err := s.CreateLeads(ctx, leads)
		require.NoError(t, err)

		var seen []string
		total, err := ForEachSessionLead(ctx, s, "s1", 3, func(lead *model.Lead) error {
			seen = append(seen, lead.ID)
			return nil
		})
		require.NoError(t, err)
		assert.Equal(t, 7, total)
		assert.Len(t, seen, 7)
	})

	t.Run("StageHistoryAppendAndList", func(t *testing.T) {
		s := newStore(t)
		ctx := context.Background()

		lead := testLead("s1", "l1")
		require.NoError(t, s.CreateLead(ctx, &lead))

		base := time.Now().UTC().Truncate(time.Second)
		prev := model.StageLead
		actor := "maria"
		entries := []model.StageHistoryEntry{
			{LeadID: "l1", NewStage: model.StageLead, Timestamp: base},
			{LeadID: "l1", PreviousStage: &prev, NewStage: model.StageQualified, Actor: &actor, Timestamp: base.Add(time.Minute)},
		}
		for i := range entries {
			require.NoError(t, s.AppendStageHistory(ctx, &entries[i]))
		}

		got, err := s.ListStageHistory(ctx, "l1")
		require.NoError(t, err)
		require.Len(t, got, 2)
		// Most recent first.
		assert.Equal(t, model.StageQualified, got[0].NewStage)
		require.NotNil(t, got[0].PreviousStage)
		assert.Equal(t, model.StageLead, *got[0].PreviousStage)
		require.NotNil(t, got[0].Actor)
		assert.Equal(t, "maria", *got[0].Actor)
		assert.Equal(t, model.StageLead, got[1].NewStage)
		assert.Nil(t, got[1].PreviousStage)
		assert.Nil(t, got[1].Actor)
	})
}
