// Package dedupe detects duplicate leads within a session using identity-
// normalized matching keys. Planning is pure; the engine executes deletes.
package dedupe

import (
	"sort"

	"github.com/sells-group/lead-pipeline/internal/identity"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// MatchKey builds the lead's matching key from its normalized identity:
// email when present, otherwise phone. An empty key means the lead has no
// usable identity and must never match anything.
func MatchKey(lead *model.Lead) string {
	if email := identity.NormalizeEmail(lead.Email); email != "" {
		return "email:" + email
	}
	if phone := identity.NormalizePhone(lead.Phone); phone != "" {
		return "phone:" + phone
	}
	return ""
}

// Plan groups leads by matching key and returns the IDs to delete: for each
// non-empty key the earliest-created lead survives (ties broken by lowest
// ID) and the rest go. Identity-less leads are never deduplicated against
// each other. The returned slice is sorted for deterministic execution.
func Plan(leads []model.Lead) []string {
	byKey := make(map[string][]*model.Lead)
	for i := range leads {
		key := MatchKey(&leads[i])
		if key == "" {
			continue
		}
		byKey[key] = append(byKey[key], &leads[i])
	}

	var remove []string
	for _, group := range byKey {
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			if !group[i].CreatedAt.Equal(group[j].CreatedAt) {
				return group[i].CreatedAt.Before(group[j].CreatedAt)
			}
			return group[i].ID < group[j].ID
		})
		for _, dup := range group[1:] {
			remove = append(remove, dup.ID)
		}
	}

	sort.Strings(remove)
	return remove
}
