// Package salesrecords loads external sale records for cross-referencing
// against pipeline leads. Records come from CSV or XLSX exports or straight
// from Salesforce.
package salesrecords

import (
	"context"

	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/model"
)

// Source yields external sale records from one backing system.
type Source interface {
	Fetch(ctx context.Context) ([]model.ExternalRecord, error)
}

// columnAliases maps each record field to the folded header names that
// spreadsheet exports use for it.
var columnAliases = map[string][]string{
	"email":    {"email", "e-mail"},
	"phone":    {"phone", "telefone", "whatsapp", "celular"},
	"product":  {"product", "produto", "product_name", "nome do produto"},
	"platform": {"platform", "plataforma"},
}

// columnIndex locates each record field in a header row. Missing columns
// get index -1; rows simply leave those fields blank.
type columnIndex struct {
	email    int
	phone    int
	product  int
	platform int
}

func mapHeader(headers []string) columnIndex {
	idx := columnIndex{email: -1, phone: -1, product: -1, platform: -1}
	for i, h := range headers {
		folded := extract.FoldKey(h)
		switch {
		case idx.email < 0 && matchesAlias(folded, columnAliases["email"]):
			idx.email = i
		case idx.phone < 0 && matchesAlias(folded, columnAliases["phone"]):
			idx.phone = i
		case idx.product < 0 && matchesAlias(folded, columnAliases["product"]):
			idx.product = i
		case idx.platform < 0 && matchesAlias(folded, columnAliases["platform"]):
			idx.platform = i
		}
	}
	return idx
}

func matchesAlias(folded string, aliases []string) bool {
	for _, a := range aliases {
		if folded == a {
			return true
		}
	}
	return false
}

func (c columnIndex) record(row []string) model.ExternalRecord {
	cell := func(i int) string {
		if i < 0 || i >= len(row) {
			return ""
		}
		return row[i]
	}
	return model.ExternalRecord{
		Email:       cell(c.email),
		Phone:       cell(c.phone),
		ProductName: cell(c.product),
		Platform:    cell(c.platform),
	}
}

// usable reports whether a record carries at least one identity to match on.
func usable(rec model.ExternalRecord) bool {
	return rec.Email != "" || rec.Phone != ""
}
