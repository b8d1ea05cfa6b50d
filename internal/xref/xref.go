// Package xref cross-references leads against historical purchase records
// using normalized identity keys, flagging existing customers and collecting
// their purchased products.
package xref

import (
	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/identity"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// candidateIdentities collects every email and phone a lead exposes: the
// structured columns plus the alias-bag entries for email and whatsapp.
// Blank identities are dropped so they can never produce a positive match.
func candidateIdentities(lead *model.Lead) (emails, phones map[string]bool) {
	emails = make(map[string]bool)
	phones = make(map[string]bool)

	addEmail := func(raw string) {
		if e := identity.NormalizeEmail(raw); e != "" {
			emails[e] = true
		}
	}
	addPhone := func(raw string) {
		if p := identity.NormalizePhone(raw); p != "" {
			phones[p] = true
		}
	}

	addEmail(lead.Email)
	addPhone(lead.Phone)
	if v, ok := extract.Resolve(lead, extract.FieldEmail); ok {
		addEmail(v)
	}
	if v, ok := extract.Resolve(lead, extract.FieldWhatsApp); ok {
		addPhone(v)
	}
	return emails, phones
}

// Match checks a lead against an external record set. Email equality OR
// phone equality suffices. Matched products are deduplicated by product
// name; the first platform seen for a name wins.
func Match(lead *model.Lead, records []model.ExternalRecord) model.MatchResult {
	emails, phones := candidateIdentities(lead)
	if len(emails) == 0 && len(phones) == 0 {
		return model.MatchResult{}
	}

	var result model.MatchResult
	seen := make(map[string]bool)

	for _, rec := range records {
		matched := false
		if e := identity.NormalizeEmail(rec.Email); e != "" && emails[e] {
			matched = true
		}
		if !matched {
			if p := identity.NormalizePhone(rec.Phone); p != "" && phones[p] {
				matched = true
			}
		}
		if !matched {
			continue
		}

		result.IsMatch = true
		if rec.ProductName == "" || seen[rec.ProductName] {
			continue
		}
		seen[rec.ProductName] = true
		result.MatchedProducts = append(result.MatchedProducts, model.MatchedProduct{
			Name:     rec.ProductName,
			Platform: rec.Platform,
		})
	}

	return result
}
