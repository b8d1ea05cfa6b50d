package engine

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/salesrecords"
	"github.com/sells-group/lead-pipeline/internal/store"
	"github.com/sells-group/lead-pipeline/internal/xref"
)

// MatchLead cross-references one lead against records fetched from the
// given source.
func (e *Engine) MatchLead(ctx context.Context, leadID string, source salesrecords.Source) (model.MatchResult, error) {
	lead, err := e.store.GetLead(ctx, leadID)
	if err != nil {
		return model.MatchResult{}, err
	}

	records, err := source.Fetch(ctx)
	if err != nil {
		return model.MatchResult{}, err
	}

	return xref.Match(lead, records), nil
}

// SessionMatch pairs a lead with its cross-reference result.
type SessionMatch struct {
	LeadID string            `json:"lead_id"`
	Name   string            `json:"name"`
	Result model.MatchResult `json:"result"`
}

// MatchSession cross-references every lead in a session against one fetch
// of the source's records, returning only the leads that matched.
func (e *Engine) MatchSession(ctx context.Context, sessionID string, source salesrecords.Source) ([]SessionMatch, error) {
	records, err := source.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	var matches []SessionMatch
	_, err = store.ForEachSessionLead(ctx, e.store, sessionID, e.opts.PageSize, func(lead *model.Lead) error {
		result := xref.Match(lead, records)
		if result.IsMatch {
			matches = append(matches, SessionMatch{LeadID: lead.ID, Name: lead.Name, Result: result})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return matches, nil
}
