package engine

import (
	"context"
	"sync"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	"github.com/sells-group/lead-pipeline/internal/scoring"
	"github.com/sells-group/lead-pipeline/internal/store"
)

// RecomputeScore re-scores one lead and persists the result.
func (e *Engine) RecomputeScore(ctx context.Context, leadID string) (scoring.Result, error) {
	lock := e.lockFor(leadID)
	lock.Lock()
	defer lock.Unlock()

	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return scoring.Result{}, err
	}

	result := scoring.Score(lead, e.rules)
	if err := e.store.UpdateLeadScore(ctx, leadID, result.Score, result.Qualified); err != nil {
		return scoring.Result{}, err
	}
	return result, nil
}

// RecomputeSummary reports the outcome of a session-wide rescore.
type RecomputeSummary struct {
	Scored    int   `json:"scored"`
	Qualified int   `json:"qualified"`
	Written   int64 `json:"written"`
}

// RecomputeSession re-scores every lead in a session. Scores are computed
// while streaming pages and written back in bounded batches; batch writes
// run concurrently under the write limiter and are retried on transient
// store errors.
func (e *Engine) RecomputeSession(ctx context.Context, sessionID string) (RecomputeSummary, error) {
	var summary RecomputeSummary

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.WriteConcurrency)

	var mu sync.Mutex
	flush := func(batch []store.ScoreUpdate) {
		g.Go(func() error {
			if e.limiter != nil {
				if err := e.limiter.Wait(gctx); err != nil {
					return err
				}
			}
			retry := e.opts.Retry
			retry.OnRetry = resilience.RetryLogger("engine", "bulk_update_scores")
			n, err := resilience.DoVal(gctx, retry, func(ctx context.Context) (int64, error) {
				return e.store.BulkUpdateScores(ctx, batch)
			})
			if err != nil {
				return err
			}
			mu.Lock()
			summary.Written += n
			mu.Unlock()
			return nil
		})
	}

	batch := make([]store.ScoreUpdate, 0, e.opts.BatchSize)
	_, err := store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		result := scoring.Score(lead, e.rules)
		summary.Scored++
		if result.Qualified {
			summary.Qualified++
		}
		batch = append(batch, store.ScoreUpdate{LeadID: lead.ID, Score: result.Score, Qualified: result.Qualified})
		if len(batch) >= e.opts.BatchSize {
			flush(batch)
			batch = make([]store.ScoreUpdate, 0, e.opts.BatchSize)
		}
		return nil
	})
	if err != nil {
		_ = g.Wait() //nolint:errcheck
		return summary, err
	}
	if len(batch) > 0 {
		flush(batch)
	}

	if err := g.Wait(); err != nil {
		return summary, err
	}

	zap.L().Info("session rescored",
		zap.String("component", "engine"),
		zap.String("session_id", sessionID),
		zap.Int("scored", summary.Scored),
		zap.Int("qualified", summary.Qualified),
		zap.Int64("written", summary.Written),
	)
	return summary, nil
}
