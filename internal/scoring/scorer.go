package scoring

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// Breakdown holds the per-axis sub-scores behind a verdict.
type Breakdown struct {
	RevenueScore  int `json:"revenue_score"`
	ProfitScore   int `json:"profit_score"`
	CapacityScore int `json:"capacity_score"`
}

// Result is the scoring engine's output for one lead.
type Result struct {
	Score     int       `json:"score"`
	Qualified bool      `json:"qualified"`
	Breakdown Breakdown `json:"breakdown"`
}

// Score evaluates the bracket rules against a lead's resolved fields.
//
// Pure and idempotent: two calls on an unchanged lead yield identical
// results. Missing or unparseable input contributes zero points for that
// axis and cannot qualify it. Qualification requires the revenue and profit
// axes to EACH clear their own minimum; a high total never compensates for
// a failing axis.
func Score(lead *model.Lead, rules Rules) Result {
	revenue := scoreAxis(lead, rules.Revenue)
	profit := scoreAxis(lead, rules.Profit)
	capacity := scoreAxis(lead, rules.Capacity)

	return Result{
		Score:     revenue + profit + capacity,
		Qualified: revenue >= rules.Revenue.QualifyMin && profit >= rules.Profit.QualifyMin,
		Breakdown: Breakdown{
			RevenueScore:  revenue,
			ProfitScore:   profit,
			CapacityScore: capacity,
		},
	}
}

// scoreAxis resolves the axis field and awards the first matching bracket.
func scoreAxis(lead *model.Lead, axis Axis) int {
	raw, ok := extract.Resolve(lead, axis.Field)
	if !ok {
		return 0
	}

	folded := extract.FoldKey(raw)
	amount, hasAmount := parseAmount(raw)

	for _, b := range axis.Brackets {
		if b.Contains != "" {
			if strings.Contains(folded, extract.FoldKey(b.Contains)) {
				return b.Points
			}
			continue
		}
		if b.Min != nil && hasAmount && amount >= *b.Min {
			return b.Points
		}
	}
	return 0
}

var amountRe = regexp.MustCompile(`\d[\d.,]*`)

// parseAmount extracts the first numeric amount from operator-entered text
// like "R$ 50.000,00", "de 50 mil a 100 mil" or "120k". Brazilian separators
// ("." thousands, "," decimal) are handled; a trailing "mil"/"k" multiplies
// by a thousand. For range answers the lower bound wins.
func parseAmount(raw string) (float64, bool) {
	folded := extract.FoldKey(raw)

	loc := amountRe.FindStringIndex(folded)
	if loc == nil {
		return 0, false
	}
	token := strings.Trim(folded[loc[0]:loc[1]], ".,")

	switch {
	case strings.Contains(token, ".") && strings.Contains(token, ","):
		token = strings.ReplaceAll(token, ".", "")
		token = strings.Replace(token, ",", ".", 1)
	case strings.Contains(token, ","):
		token = strings.Replace(token, ",", ".", 1)
	case strings.Contains(token, "."):
		// "50.000" is a Brazilian thousands group, "3.5" is a decimal.
		if dotIsThousands(token) {
			token = strings.ReplaceAll(token, ".", "")
		}
	}

	value, err := strconv.ParseFloat(token, 64)
	if err != nil {
		return 0, false
	}

	rest := strings.TrimSpace(folded[loc[1]:])
	if strings.HasPrefix(rest, "mil") || strings.HasPrefix(folded[loc[1]:], "k") {
		value *= 1000
	}

	return value, true
}

// dotIsThousands reports whether every dot-delimited group after the first
// has exactly three digits.
func dotIsThousands(token string) bool {
	parts := strings.Split(token, ".")
	for _, p := range parts[1:] {
		if len(p) != 3 {
			return false
		}
	}
	return true
}
