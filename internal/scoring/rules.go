// Package scoring implements the rule-based qualification engine: weighted
// bracket rules evaluated per logical field, with a two-axis qualification
// gate over the revenue and profit sub-scores.
package scoring

import (
	"fmt"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/lead-pipeline/internal/extract"
)

// Bracket is one ordered rule inside an axis: the first bracket a resolved
// value satisfies contributes its points. A bracket matches either by folded
// substring (Contains, for multiple-choice survey answers) or by numeric
// threshold (Min, inclusive, against the parsed amount).
type Bracket struct {
	Contains string   `yaml:"contains,omitempty"`
	Min      *float64 `yaml:"min,omitempty"`
	Points   int      `yaml:"points"`
}

// Axis scores one logical field. QualifyMin is the minimum axis score
// required for the lead to qualify; an axis with QualifyMin 0 contributes
// points without gating.
type Axis struct {
	Field      string    `yaml:"field"`
	Brackets   []Bracket `yaml:"brackets"`
	QualifyMin int       `yaml:"qualify_min"`
}

// Rules is the full scoring configuration. Qualification requires the
// revenue AND profit axes to each clear their own minimum; capacity only
// adds points. That asymmetry mirrors the business rule and is deliberate.
type Rules struct {
	Revenue  Axis `yaml:"revenue"`
	Profit   Axis `yaml:"profit"`
	Capacity Axis `yaml:"capacity"`
}

// DefaultRules returns the shipped bracket thresholds (monthly BRL amounts).
func DefaultRules() Rules {
	return Rules{
		Revenue: Axis{
			Field: extract.FieldRevenue,
			Brackets: []Bracket{
				{Min: f(100_000), Points: 60},
				{Min: f(50_000), Points: 40},
				{Min: f(20_000), Points: 20},
			},
			QualifyMin: 40,
		},
		Profit: Axis{
			Field: extract.FieldProfit,
			Brackets: []Bracket{
				{Min: f(30_000), Points: 30},
				{Min: f(10_000), Points: 20},
				{Min: f(5_000), Points: 10},
			},
			QualifyMin: 20,
		},
		Capacity: Axis{
			Field: extract.FieldCapacity,
			Brackets: []Bracket{
				{Contains: "equipe propria", Points: 10},
				{Min: f(10), Points: 10},
				{Min: f(3), Points: 5},
			},
		},
	}
}

func f(v float64) *float64 { return &v }

// LoadRules reads a scoring rules file. The YAML has a top-level "scoring"
// key; axes omitted from the file fall back to the shipped defaults.
func LoadRules(path string) (Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rules{}, eris.Wrapf(err, "scoring: read rules %s", path)
	}

	var wrapper struct {
		Scoring Rules `yaml:"scoring"`
	}
	if err := yaml.Unmarshal(data, &wrapper); err != nil {
		return Rules{}, eris.Wrap(err, "scoring: parse rules")
	}

	rules := wrapper.Scoring
	defaults := DefaultRules()
	if len(rules.Revenue.Brackets) == 0 {
		rules.Revenue = defaults.Revenue
	}
	if len(rules.Profit.Brackets) == 0 {
		rules.Profit = defaults.Profit
	}
	if len(rules.Capacity.Brackets) == 0 {
		rules.Capacity = defaults.Capacity
	}

	return rules, nil
}

// maxPoints returns the highest single-bracket award on the axis.
func (a Axis) maxPoints() int {
	m := 0
	for _, b := range a.Brackets {
		if b.Points > m {
			m = b.Points
		}
	}
	return m
}

// Validate checks that a Rules value is internally consistent.
func Validate(rules Rules) error {
	var errs []string

	axes := map[string]Axis{
		"revenue":  rules.Revenue,
		"profit":   rules.Profit,
		"capacity": rules.Capacity,
	}
	for name, axis := range axes {
		if axis.Field == "" {
			errs = append(errs, fmt.Sprintf("%s: field must be set", name))
		}
		for i, b := range axis.Brackets {
			if b.Points < 0 {
				errs = append(errs, fmt.Sprintf("%s: bracket %d points must be >= 0", name, i))
			}
			if b.Contains == "" && b.Min == nil {
				errs = append(errs, fmt.Sprintf("%s: bracket %d needs contains or min", name, i))
			}
		}
		if axis.QualifyMin < 0 {
			errs = append(errs, fmt.Sprintf("%s: qualify_min must be >= 0", name))
		}
		if axis.QualifyMin > axis.maxPoints() {
			errs = append(errs, fmt.Sprintf("%s: qualify_min %d exceeds max bracket points %d", name, axis.QualifyMin, axis.maxPoints()))
		}
	}

	// The gate runs on revenue and profit; both need brackets to be meaningful.
	if len(rules.Revenue.Brackets) == 0 {
		errs = append(errs, "revenue: at least one bracket required")
	}
	if len(rules.Profit.Brackets) == 0 {
		errs = append(errs, "profit: at least one bracket required")
	}

	if len(errs) > 0 {
		return eris.Errorf("scoring: rules validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
