// Package funnel implements the stage pipeline: transition validation,
// audit-entry construction, and history replay. Storage commits live in the
// engine; everything here is pure.
package funnel

import (
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// ErrNoOpTransition signals a transition to the lead's current stage. It is
// rejected before any mutation or history write; callers treat it as a
// non-event, not a failure.
var ErrNoOpTransition = eris.New("funnel: transition to current stage")

// ErrUnknownStage signals a requested stage outside the five funnel stages.
var ErrUnknownStage = eris.New("funnel: unknown stage")

// PlanTransition validates a requested stage change and returns the history
// entry that commits it. The funnel is not a strict chain: any distinct
// stage is reachable, forward or backward. The lead is not mutated here.
func PlanTransition(lead *model.Lead, newStage model.Stage, actor string, now time.Time) (*model.StageHistoryEntry, error) {
	if !newStage.Valid() {
		return nil, eris.Wrapf(ErrUnknownStage, "%q", string(newStage))
	}
	if newStage == lead.Stage {
		return nil, ErrNoOpTransition
	}

	entry := &model.StageHistoryEntry{
		ID:        uuid.New().String(),
		LeadID:    lead.ID,
		NewStage:  newStage,
		Timestamp: now,
	}
	if lead.Stage != "" {
		prev := lead.Stage
		entry.PreviousStage = &prev
	}
	if actor != "" {
		entry.Actor = &actor
	}
	return entry, nil
}

// Replay folds a lead's history entries, oldest first, and returns the stage
// they reconstruct. ok is false for an empty history.
func Replay(entries []model.StageHistoryEntry) (model.Stage, bool) {
	if len(entries) == 0 {
		return "", false
	}
	return entries[len(entries)-1].NewStage, true
}

// VerifyHistory checks the append-only chain: from the second entry on, each
// entry's PreviousStage must equal the prior entry's NewStage, and the final
// entry must match the lead's current stage. The first entry's PreviousStage
// is whatever stage the lead was created at and carries no chain constraint.
// Entries are expected oldest first.
func VerifyHistory(lead *model.Lead, entries []model.StageHistoryEntry) error {
	var prev *model.Stage
	for i, e := range entries {
		if e.LeadID != lead.ID {
			return eris.Errorf("funnel: entry %d belongs to lead %s, not %s", i, e.LeadID, lead.ID)
		}
		if prev != nil && (e.PreviousStage == nil || *e.PreviousStage != *prev) {
			return eris.Errorf("funnel: entry %d breaks the chain", i)
		}
		stage := e.NewStage
		prev = &stage
	}
	if replayed, ok := Replay(entries); ok && replayed != lead.Stage {
		return eris.Errorf("funnel: history replays to %s but lead is at %s", replayed, lead.Stage)
	}
	return nil
}
