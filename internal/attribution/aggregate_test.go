package attribution

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/scoring"
)

func sourceLead(id, source string) model.Lead {
	lead := model.Lead{ID: id, Stage: model.StageLead, Attributes: map[string]string{}}
	if source != "" {
		lead.Attributes["utm_source"] = source
	}
	return lead
}

func TestDimension_TotalsReconcile(t *testing.T) {
	// 3 of 10 leads have no resolvable source: exactly one no-data row with
	// total 3, and the bucket totals sum to the lead count.
	acc := NewDimension("acquisition_source", scoring.DefaultRules())
	leads := []model.Lead{
		sourceLead("l1", "instagram"),
		sourceLead("l2", "instagram"),
		sourceLead("l3", "instagram"),
		sourceLead("l4", "instagram"),
		sourceLead("l5", "google"),
		sourceLead("l6", "google"),
		sourceLead("l7", "indicacao"),
		sourceLead("l8", ""),
		sourceLead("l9", ""),
		sourceLead("l10", ""),
	}
	for i := range leads {
		acc.Add(&leads[i])
	}

	rows := acc.Rows()
	sum := 0
	noData := 0
	for _, r := range rows {
		sum += r.TotalCount
		if r.DimensionValue == NoDataBucket {
			noData++
			assert.Equal(t, 3, r.TotalCount)
		}
	}
	assert.Equal(t, len(leads), sum)
	assert.Equal(t, 1, noData)
}

func TestDimension_SortedByTotalDesc(t *testing.T) {
	acc := NewDimension("acquisition_source", scoring.DefaultRules())
	for i, src := range []string{"a", "b", "b", "c", "c", "c"} {
		lead := sourceLead(fmt.Sprintf("l%d", i), src)
		acc.Add(&lead)
	}

	rows := acc.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, "c", rows[0].DimensionValue)
	assert.Equal(t, "b", rows[1].DimensionValue)
	assert.Equal(t, "a", rows[2].DimensionValue)
}

func TestDimension_QualificationRederived(t *testing.T) {
	// The stored flag says qualified, but the rules disagree; aggregation
	// trusts the rules.
	acc := NewDimension("acquisition_source", scoring.DefaultRules())
	stale := model.Lead{
		ID:          "l1",
		IsQualified: true,
		Attributes:  map[string]string{"utm_source": "instagram"},
	}
	fresh := model.Lead{
		ID: "l2",
		Attributes: map[string]string{
			"utm_source":  "instagram",
			"faturamento": "R$ 120.000",
			"lucro":       "R$ 40.000",
		},
	}
	acc.Add(&stale)
	acc.Add(&fresh)

	rows := acc.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 2, rows[0].TotalCount)
	assert.Equal(t, 1, rows[0].QualifiedCount)
	assert.InDelta(t, 0.5, rows[0].QualificationRate, 0.001)
}

func TestDimension_WonCount(t *testing.T) {
	acc := NewDimension("acquisition_source", scoring.DefaultRules())
	won := sourceLead("l1", "google")
	won.Stage = model.StageWon
	open := sourceLead("l2", "google")
	acc.Add(&won)
	acc.Add(&open)

	rows := acc.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, 1, rows[0].WonCount)
}

func TestFunnel_FixedOrderWithZeroes(t *testing.T) {
	acc := NewFunnel()
	for _, s := range []model.Stage{model.StageWon, model.StageLead, model.StageLead} {
		acc.Add(&model.Lead{Stage: s})
	}

	counts := acc.Counts()
	require.Len(t, counts, len(model.Stages))
	assert.Equal(t, model.StageLead, counts[0].Stage)
	assert.Equal(t, 2, counts[0].Count)
	assert.Equal(t, 0, counts[1].Count) // qualified
	assert.Equal(t, model.StageWon, counts[4].Stage)
	assert.Equal(t, 1, counts[4].Count)
}

func TestDaily_ChronologicalWithFallbacks(t *testing.T) {
	acc := NewDaily()
	add := func(dateValue string) {
		lead := model.Lead{Attributes: map[string]string{}}
		if dateValue != "" {
			lead.Attributes["data de entrada"] = dateValue
		}
		acc.Add(&lead)
	}

	add("02/01/2025")
	add("01/01/2025")
	add("01/01/2025")
	add("amanhã")
	add("")

	buckets := acc.Buckets()
	require.Len(t, buckets, 4)
	assert.Equal(t, model.DailyCount{Day: "2025-01-01", Count: 2}, buckets[0])
	assert.Equal(t, model.DailyCount{Day: "2025-01-02", Count: 1}, buckets[1])
	assert.Equal(t, model.DailyCount{Day: "amanhã", Count: 1}, buckets[2])
	assert.Equal(t, model.DailyCount{Day: NoDataBucket, Count: 1}, buckets[3])

	total := 0
	for _, b := range buckets {
		total += b.Count
	}
	assert.Equal(t, 5, total)
}
