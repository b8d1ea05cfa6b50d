package scoring

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func leadWith(attrs map[string]string) *model.Lead {
	return &model.Lead{ID: "l1", SessionID: "s1", Attributes: attrs}
}

func TestScore_QualifiedOnBothAxes(t *testing.T) {
	lead := leadWith(map[string]string{
		"faturamento": "R$ 120.000,00",
		"lucro":       "R$ 35.000",
		"equipe":      "12 funcionários",
	})

	r := Score(lead, DefaultRules())
	assert.Equal(t, 60, r.Breakdown.RevenueScore)
	assert.Equal(t, 30, r.Breakdown.ProfitScore)
	assert.Equal(t, 10, r.Breakdown.CapacityScore)
	assert.Equal(t, 100, r.Score)
	assert.True(t, r.Qualified)
}

func TestScore_HighTotalButProfitAxisFails(t *testing.T) {
	// Revenue scores 40, capacity 10: total 50 clears a naive combined bar,
	// but profit under its own minimum disqualifies.
	lead := leadWith(map[string]string{
		"faturamento": "R$ 60.000",
		"lucro":       "R$ 6.000",
		"equipe":      "15 pessoas",
	})

	r := Score(lead, DefaultRules())
	assert.Equal(t, 40, r.Breakdown.RevenueScore)
	assert.Equal(t, 10, r.Breakdown.ProfitScore)
	assert.Equal(t, 60, r.Score)
	assert.False(t, r.Qualified)
}

func TestScore_RevenueAxisFails(t *testing.T) {
	lead := leadWith(map[string]string{
		"faturamento": "R$ 25.000",
		"lucro":       "R$ 35.000",
	})

	r := Score(lead, DefaultRules())
	assert.Equal(t, 20, r.Breakdown.RevenueScore)
	assert.Equal(t, 30, r.Breakdown.ProfitScore)
	assert.False(t, r.Qualified)
}

func TestScore_MissingInputZeroPoints(t *testing.T) {
	r := Score(leadWith(nil), DefaultRules())
	assert.Equal(t, 0, r.Score)
	assert.False(t, r.Qualified)
	assert.Equal(t, Breakdown{}, r.Breakdown)
}

func TestScore_UnparseableInputZeroPoints(t *testing.T) {
	lead := leadWith(map[string]string{
		"faturamento": "prefiro não informar",
		"lucro":       "depende do mês",
	})
	r := Score(lead, DefaultRules())
	assert.Equal(t, 0, r.Score)
	assert.False(t, r.Qualified)
}

func TestScore_Idempotent(t *testing.T) {
	lead := leadWith(map[string]string{
		"faturamento": "100 mil",
		"lucro":       "12 mil",
	})
	first := Score(lead, DefaultRules())
	second := Score(lead, DefaultRules())
	assert.Equal(t, first, second)
	assert.True(t, first.Qualified)
}

func TestScore_ContainsBracket(t *testing.T) {
	lead := leadWith(map[string]string{
		"capacidade": "Equipe própria completa",
	})
	r := Score(lead, DefaultRules())
	assert.Equal(t, 10, r.Breakdown.CapacityScore)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in    string
		want  float64
		found bool
	}{
		{"R$ 50.000,00", 50000, true},
		{"50.000", 50000, true},
		{"50000", 50000, true},
		{"3.5", 3.5, true},
		{"1.234.567", 1234567, true},
		{"50 mil", 50000, true},
		{"120k", 120000, true},
		{"De R$ 50.000 a R$ 100.000", 50000, true},
		{"nenhum", 0, false},
		{"", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, ok := parseAmount(tt.in)
			assert.Equal(t, tt.found, ok)
			if tt.found {
				assert.InDelta(t, tt.want, got, 0.001)
			}
		})
	}
}

func TestValidate_Defaults(t *testing.T) {
	require.NoError(t, Validate(DefaultRules()))
}

func TestValidate_Rejects(t *testing.T) {
	rules := DefaultRules()
	rules.Revenue.QualifyMin = 999
	err := Validate(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "qualify_min")

	rules = DefaultRules()
	rules.Profit.Brackets = []Bracket{{Points: 5}}
	err = Validate(rules)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "contains or min")
}
