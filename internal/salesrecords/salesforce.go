package salesrecords

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/resilience"
	sfpkg "github.com/sells-group/lead-pipeline/pkg/salesforce"
)

// SalesforceSource pulls closed-won sale records over the Salesforce REST
// API. Queries are retried on transient failures.
type SalesforceSource struct {
	Client   sfpkg.Client
	Platform string // optional platform filter
	Retry    resilience.RetryConfig
}

func (s *SalesforceSource) Fetch(ctx context.Context) ([]model.ExternalRecord, error) {
	soql := sfpkg.SaleRecordsSOQL(s.Platform)

	retry := s.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = resilience.RetryLogger("salesrecords", "query_sales")
	}

	sales, err := resilience.DoVal(ctx, retry, func(ctx context.Context) ([]sfpkg.SaleRecord, error) {
		var out []sfpkg.SaleRecord
		if err := s.Client.Query(ctx, soql, &out); err != nil {
			return nil, err
		}
		return out, nil
	})
	if err != nil {
		return nil, eris.Wrap(err, "salesrecords: query salesforce")
	}

	var records []model.ExternalRecord
	for _, sale := range sales {
		rec := model.ExternalRecord{
			Email:       sale.Email,
			Phone:       sale.Phone,
			ProductName: sale.ProductName,
			Platform:    sale.Platform,
		}
		if !usable(rec) {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}
