package model

// AttributionRow is one bucket of a dimension aggregation, computed on demand
// and never persisted.
type AttributionRow struct {
	DimensionValue    string  `json:"dimension_value"`
	TotalCount        int     `json:"total_count"`
	QualifiedCount    int     `json:"qualified_count"`
	WonCount          int     `json:"won_count"`
	QualificationRate float64 `json:"qualification_rate"`
}

// StageCount is one funnel-aggregation bucket, in funnel order.
type StageCount struct {
	Stage Stage `json:"stage"`
	Count int   `json:"count"`
}

// DailyCount is one daily-aggregation bucket. Day is the resolved entry date
// formatted as 2006-01-02 when parseable, otherwise the raw operator-entered
// value (or the no-data bucket when absent).
type DailyCount struct {
	Day   string `json:"day"`
	Count int    `json:"count"`
}
