package engine

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/funnel"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// TransitionStage moves a lead to a new stage and writes the matching audit
// entry. The per-lead lock serializes concurrent transitions on the same
// lead; a no-op transition is rejected by the funnel before any write.
//
// If the audit entry cannot be written the stage update is rolled back, so
// the history chain stays consistent with the stored stage.
func (e *Engine) TransitionStage(ctx context.Context, leadID string, newStage model.Stage, actor string) (*model.StageHistoryEntry, error) {
	lock := e.lockFor(leadID)
	lock.Lock()
	defer lock.Unlock()

	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	entry, err := funnel.PlanTransition(lead, newStage, actor, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	if err := e.store.UpdateLeadStage(ctx, leadID, newStage); err != nil {
		return nil, err
	}

	if err := e.store.AppendStageHistory(ctx, entry); err != nil {
		if rbErr := e.store.UpdateLeadStage(ctx, leadID, lead.Stage); rbErr != nil {
			zap.L().Error("stage rollback failed after history write error",
				zap.String("component", "engine"),
				zap.String("lead_id", leadID),
				zap.Error(rbErr),
			)
		}
		return nil, eris.Wrapf(ErrHistoryWriteFailed, "%v", err)
	}

	zap.L().Info("lead stage transitioned",
		zap.String("component", "engine"),
		zap.String("lead_id", leadID),
		zap.String("from", string(lead.Stage)),
		zap.String("to", string(newStage)),
	)
	return entry, nil
}

// StageTimeline returns a lead's stage history, most recent first, after
// verifying the chain against the lead's current stage.
func (e *Engine) StageTimeline(ctx context.Context, leadID string) ([]model.StageHistoryEntry, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return nil, err
	}

	entries, err := e.store.ListStageHistory(ctx, leadID)
	if err != nil {
		return nil, err
	}

	// Verification wants oldest first.
	oldest := make([]model.StageHistoryEntry, len(entries))
	for i, entry := range entries {
		oldest[len(entries)-1-i] = entry
	}
	if err := funnel.VerifyHistory(lead, oldest); err != nil {
		zap.L().Warn("stage history failed verification",
			zap.String("component", "engine"),
			zap.String("lead_id", leadID),
			zap.Error(err),
		)
	}
	return entries, nil
}
