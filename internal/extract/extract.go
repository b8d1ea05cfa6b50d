// Package extract resolves canonical values for logical fields out of a
// lead's structured columns and its open attribute bag. Resolution is a pure
// function over two static tables (structured-column accessors and per-field
// alias lists); it never errors, it only reports absence.
package extract

import (
	"sort"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/sells-group/lead-pipeline/internal/model"
)

// FoldKey canonicalizes an attribute-bag key or alias for comparison:
// trimmed, lowercased, accents stripped. Folding is what lets "Origem",
// "origem" and "ORIGEM " all hit the same alias entry.
func FoldKey(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return folded
}

// structuredValue returns the lead's structured column matching the logical
// field name exactly, if any.
func structuredValue(lead *model.Lead, field string) (string, bool) {
	switch field {
	case "name":
		return lead.Name, true
	case FieldEmail:
		return lead.Email, true
	case "phone", FieldWhatsApp:
		return lead.Phone, true
	case "observation":
		return lead.Observation, true
	}
	return "", false
}

// Resolve returns the canonical value of a logical field for a lead.
//
// Resolution order: structured column with the exact field name, then the
// field's alias list scanned case-insensitively over the attribute bag, then
// (for fields without an alias table) a marker-substring scan. Blank-after-
// trim values are treated as absent throughout, and the first match wins;
// multiple matching keys are never aggregated.
func Resolve(lead *model.Lead, field string) (string, bool) {
	if lead == nil {
		return "", false
	}

	if v, ok := structuredValue(lead, field); ok {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed, true
		}
	}

	if len(lead.Attributes) == 0 {
		return "", false
	}

	// Bag keys in sorted folded order so "first match" is deterministic
	// regardless of map iteration.
	keys := sortedKeys(lead.Attributes)

	if list := Aliases(field); list != nil {
		for _, alias := range list {
			for _, k := range keys {
				if k.folded != alias {
					continue
				}
				if v := strings.TrimSpace(lead.Attributes[k.raw]); v != "" {
					return v, true
				}
			}
		}
		return "", false
	}

	// Unrecognized logical field: substring scan with generic markers.
	for _, marker := range markersFor(field) {
		for _, k := range keys {
			if !strings.Contains(k.folded, marker) {
				continue
			}
			if v := strings.TrimSpace(lead.Attributes[k.raw]); v != "" {
				return v, true
			}
		}
	}
	return "", false
}

// ResolveDate resolves a date-like logical field and runs it through the
// lenient date normalizer. Absent fields return ok == false; present but
// unparseable values come back with Parsed == false and the raw string kept.
func ResolveDate(lead *model.Lead, field string) (NormalizedDate, bool) {
	raw, ok := Resolve(lead, field)
	if !ok {
		return NormalizedDate{}, false
	}
	return NormalizeDate(raw), true
}

// markersFor picks the fallback substrings for a field with no alias table.
// Date-like names scan for the generic date markers; anything else scans for
// the folded field name itself.
func markersFor(field string) []string {
	folded := FoldKey(field)
	for _, m := range dateMarkers {
		if strings.Contains(folded, m) {
			return dateMarkers
		}
	}
	return []string{folded}
}

type foldedKey struct {
	raw    string
	folded string
}

func sortedKeys(bag map[string]string) []foldedKey {
	keys := make([]foldedKey, 0, len(bag))
	for k := range bag {
		keys = append(keys, foldedKey{raw: k, folded: FoldKey(k)})
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].folded < keys[j].folded })
	return keys
}
