package engine

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/lead-pipeline/internal/dedupe"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/internal/store"
)

// DeduplicateSession removes duplicate leads from a session, keeping the
// earliest-created lead of each identity group. Only one deduplication may
// run per session at a time; a concurrent request fails fast with
// ErrDedupInProgress instead of queueing behind a scan it cannot see.
func (e *Engine) DeduplicateSession(ctx context.Context, sessionID string) (int64, error) {
	if _, inFlight := e.dedupes.LoadOrStore(sessionID, struct{}{}); inFlight {
		return 0, eris.Wrapf(ErrDedupInProgress, "session %s", sessionID)
	}
	defer e.dedupes.Delete(sessionID)

	var leads []model.Lead
	_, err := store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		leads = append(leads, *lead)
		return nil
	})
	if err != nil {
		return 0, err
	}

	remove := dedupe.Plan(leads)
	if len(remove) == 0 {
		return 0, nil
	}

	var removed int64
	for start := 0; start < len(remove); start += e.opts.BatchSize {
		end := min(start+e.opts.BatchSize, len(remove))
		batch := remove[start:end]

		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return removed, err
			}
		}
		retry := e.opts.Retry
		retry.OnRetry = resilience.RetryLogger("engine", "delete_leads")
		n, err := resilience.DoVal(ctx, retry, func(ctx context.Context) (int64, error) {
			return e.store.DeleteLeads(ctx, batch)
		})
		if err != nil {
			return removed, err
		}
		removed += n
	}

	zap.L().Info("session deduplicated",
		zap.String("component", "engine"),
		zap.String("session_id", sessionID),
		zap.Int("scanned", len(leads)),
		zap.Int64("removed", removed),
	)
	return removed, nil
}
