package engine

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/attribution"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/store"
)

// AggregateByDimension streams a session's leads into per-value buckets for
// one attribution dimension.
func (e *Engine) AggregateByDimension(ctx context.Context, sessionID, field string) ([]model.AttributionRow, error) {
	acc := attribution.NewDimension(field, e.rules)
	_, err := store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		acc.Add(lead)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.Rows(), nil
}

// AggregateFunnel counts a session's leads per stage, in fixed funnel order.
func (e *Engine) AggregateFunnel(ctx context.Context, sessionID string) ([]model.StageCount, error) {
	acc := attribution.NewFunnel()
	_, err := store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		acc.Add(lead)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.Counts(), nil
}

// AggregateDaily buckets a session's leads by entry day.
func (e *Engine) AggregateDaily(ctx context.Context, sessionID string) ([]model.DailyCount, error) {
	acc := attribution.NewDaily()
	_, err := store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		acc.Add(lead)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return acc.Buckets(), nil
}
