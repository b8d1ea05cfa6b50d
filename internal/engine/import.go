package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/scoring"
)

// ImportLeads scores and bulk-inserts new leads into a session. Leads enter
// at the funnel's entry stage unless one is already set.
func (e *Engine) ImportLeads(ctx context.Context, sessionID string, leads []model.Lead) (int64, error) {
	for i := range leads {
		leads[i].SessionID = sessionID
		if leads[i].Stage == "" {
			leads[i].Stage = model.StageLead
		}
		result := scoring.Score(&leads[i], e.rules)
		leads[i].QualificationScore = result.Score
		leads[i].IsQualified = result.Qualified
	}

	n, err := e.store.CreateLeads(ctx, leads)
	if err != nil {
		return n, err
	}

	zap.L().Info("leads imported",
		zap.String("component", "engine"),
		zap.String("session_id", sessionID),
		zap.Int64("count", n),
	)
	return n, nil
}
