package dedupe

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/lead-pipeline/internal/model"
)

func day(d int) time.Time {
	return time.Date(2025, 5, d, 0, 0, 0, 0, time.UTC)
}

func TestMatchKey_EmailPreferred(t *testing.T) {
	lead := &model.Lead{Email: " A@X.com ", Phone: "+55 11 98888-7777"}
	assert.Equal(t, "email:a@x.com", MatchKey(lead))
}

func TestMatchKey_PhoneFallback(t *testing.T) {
	lead := &model.Lead{Phone: "+55 11 98888-7777"}
	assert.Equal(t, "phone:11988887777", MatchKey(lead))
}

func TestMatchKey_NoIdentity(t *testing.T) {
	assert.Equal(t, "", MatchKey(&model.Lead{Name: "Fulano"}))
	assert.Equal(t, "", MatchKey(&model.Lead{Email: "  ", Phone: "abc"}))
}

func TestPlan_CaseInsensitiveEmailKeepsEarliest(t *testing.T) {
	leads := []model.Lead{
		{ID: "l2", Email: "A@X.com", CreatedAt: day(2)},
		{ID: "l1", Email: "a@x.com", CreatedAt: day(1)},
	}
	assert.Equal(t, []string{"l2"}, Plan(leads))
}

func TestPlan_TieBrokenByLowestID(t *testing.T) {
	leads := []model.Lead{
		{ID: "b", Email: "a@x.com", CreatedAt: day(1)},
		{ID: "a", Email: "a@x.com", CreatedAt: day(1)},
	}
	assert.Equal(t, []string{"b"}, Plan(leads))
}

func TestPlan_PhoneCountryCodeVariants(t *testing.T) {
	leads := []model.Lead{
		{ID: "l1", Phone: "11988887777", CreatedAt: day(1)},
		{ID: "l2", Phone: "+55 (11) 98888-7777", CreatedAt: day(2)},
	}
	assert.Equal(t, []string{"l2"}, Plan(leads))
}

func TestPlan_IdentitylessNeverMerged(t *testing.T) {
	leads := []model.Lead{
		{ID: "l1", Name: "Fulano", CreatedAt: day(1)},
		{ID: "l2", Name: "Sicrano", CreatedAt: day(2)},
		{ID: "l3", CreatedAt: day(3)},
	}
	assert.Empty(t, Plan(leads))
}

func TestPlan_AlreadyUniqueIsNoOp(t *testing.T) {
	leads := []model.Lead{
		{ID: "l1", Email: "a@x.com", CreatedAt: day(1)},
		{ID: "l2", Email: "b@x.com", CreatedAt: day(2)},
	}
	assert.Empty(t, Plan(leads))

	// Running the plan on the survivors of a previous run removes nothing.
	removed := Plan([]model.Lead{
		{ID: "l1", Email: "a@x.com", CreatedAt: day(1)},
	})
	assert.Empty(t, removed)
}

func TestPlan_MultipleGroups(t *testing.T) {
	leads := []model.Lead{
		{ID: "l1", Email: "a@x.com", CreatedAt: day(1)},
		{ID: "l2", Email: "a@x.com", CreatedAt: day(2)},
		{ID: "l3", Phone: "5511988887777", CreatedAt: day(1)},
		{ID: "l4", Phone: "11988887777", CreatedAt: day(2)},
		{ID: "l5", Email: "c@x.com", CreatedAt: day(1)},
	}
	assert.Equal(t, []string{"l2", "l4"}, Plan(leads))
}
