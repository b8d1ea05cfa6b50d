// Package attribution produces grouped lead counts per marketing dimension,
// per funnel stage, and per entry day. Accumulators consume leads one page
// at a time so a session never has to be resident in memory at once.
package attribution

import (
	"sort"

	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/model"
	"github.com/sells-group/lead-pipeline/internal/scoring"
)

// NoDataBucket groups leads whose dimension value cannot be resolved, so
// aggregation totals always reconcile with the full lead count. The label
// matches the upstream data vocabulary.
const NoDataBucket = "Sem dados"

// DimensionAccumulator streams leads into per-value buckets for one
// attribution dimension. Qualification is re-derived through the scoring
// rules on every Add rather than read from the stored flag, so the rows
// always reflect the current rule set.
type DimensionAccumulator struct {
	field string
	rules scoring.Rules
	rows  map[string]*model.AttributionRow
}

// NewDimension creates an accumulator for the given logical field.
func NewDimension(field string, rules scoring.Rules) *DimensionAccumulator {
	return &DimensionAccumulator{
		field: field,
		rules: rules,
		rows:  make(map[string]*model.AttributionRow),
	}
}

// Add folds one lead into its bucket.
func (a *DimensionAccumulator) Add(lead *model.Lead) {
	value, ok := extract.Resolve(lead, a.field)
	if !ok {
		value = NoDataBucket
	}

	row, exists := a.rows[value]
	if !exists {
		row = &model.AttributionRow{DimensionValue: value}
		a.rows[value] = row
	}

	row.TotalCount++
	if scoring.Score(lead, a.rules).Qualified {
		row.QualifiedCount++
	}
	if lead.Stage == model.StageWon {
		row.WonCount++
	}
}

// Rows returns the buckets sorted by total count descending (ties broken by
// dimension value for stable output), with qualification rates filled in.
func (a *DimensionAccumulator) Rows() []model.AttributionRow {
	out := make([]model.AttributionRow, 0, len(a.rows))
	for _, row := range a.rows {
		r := *row
		if r.TotalCount > 0 {
			r.QualificationRate = float64(r.QualifiedCount) / float64(r.TotalCount)
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].TotalCount != out[j].TotalCount {
			return out[i].TotalCount > out[j].TotalCount
		}
		return out[i].DimensionValue < out[j].DimensionValue
	})
	return out
}

// FunnelAccumulator counts leads per stage.
type FunnelAccumulator struct {
	counts map[model.Stage]int
}

// NewFunnel creates a stage accumulator.
func NewFunnel() *FunnelAccumulator {
	return &FunnelAccumulator{counts: make(map[model.Stage]int)}
}

// Add folds one lead into its stage bucket. Leads carrying an invalid stage
// value are counted under the entry stage rather than dropped.
func (f *FunnelAccumulator) Add(lead *model.Lead) {
	stage := lead.Stage
	if !stage.Valid() {
		stage = model.StageLead
	}
	f.counts[stage]++
}

// Counts returns one bucket per stage in fixed funnel order, including
// zero-count stages.
func (f *FunnelAccumulator) Counts() []model.StageCount {
	out := make([]model.StageCount, 0, len(model.Stages))
	for _, s := range model.Stages {
		out = append(out, model.StageCount{Stage: s, Count: f.counts[s]})
	}
	return out
}

// DailyAccumulator buckets leads by resolved entry date at day granularity.
type DailyAccumulator struct {
	counts map[string]int
	parsed map[string]bool
}

// NewDaily creates a daily accumulator.
func NewDaily() *DailyAccumulator {
	return &DailyAccumulator{
		counts: make(map[string]int),
		parsed: make(map[string]bool),
	}
}

// Add folds one lead into its day bucket. Unparseable entry dates keep the
// raw operator-entered value as their bucket label; absent dates land in the
// no-data bucket. Either way the lead is counted, never excluded.
func (d *DailyAccumulator) Add(lead *model.Lead) {
	nd, ok := extract.ResolveDate(lead, extract.FieldEntryDate)
	switch {
	case !ok:
		d.counts[NoDataBucket]++
	case nd.Parsed:
		key := nd.Time.Format("2006-01-02")
		d.counts[key]++
		d.parsed[key] = true
	default:
		d.counts[nd.Raw]++
	}
}

// Buckets returns the day buckets: parseable days first in chronological
// order, then raw-label buckets lexically, then the no-data bucket.
func (d *DailyAccumulator) Buckets() []model.DailyCount {
	var days, raws []string
	noData := 0
	for key, n := range d.counts {
		switch {
		case key == NoDataBucket:
			noData = n
		case d.parsed[key]:
			days = append(days, key)
		default:
			raws = append(raws, key)
		}
	}
	sort.Strings(days)
	sort.Strings(raws)

	out := make([]model.DailyCount, 0, len(d.counts))
	for _, key := range days {
		out = append(out, model.DailyCount{Day: key, Count: d.counts[key]})
	}
	for _, key := range raws {
		out = append(out, model.DailyCount{Day: key, Count: d.counts[key]})
	}
	if noData > 0 {
		out = append(out, model.DailyCount{Day: NoDataBucket, Count: noData})
	}
	return out
}
