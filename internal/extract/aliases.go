package extract

// Logical field names resolvable through the alias tables. Callers outside
// this package should use these constants rather than spelling keys inline.
const (
	FieldAcquisitionSource = "acquisition_source"
	FieldEntryDate         = "entry_date"
	FieldRevenue           = "revenue"
	FieldProfit            = "profit"
	FieldCapacity          = "capacity"
	FieldEmail             = "email"
	FieldWhatsApp          = "whatsapp"
)

// aliases maps each logical field to the known spellings of its attribute-bag
// key across import sources. The upstream forms are operator-built (typeform,
// spreadsheet exports, ad-platform webhooks), mostly in Brazilian Portuguese,
// and drift in casing and accents; matching is case-insensitive and
// accent-folded so entries here are listed folded. Order matters: the first
// alias with a non-blank value wins.
var aliases = map[string][]string{
	FieldAcquisitionSource: {
		"utm_source", "utm source", "origem", "fonte", "canal",
		"source", "midia", "como nos conheceu", "convidado por",
	},
	FieldEntryDate: {
		"entry_date", "data de entrada", "data_entrada", "data de inscricao",
		"data inscricao", "criado em", "created at", "data",
	},
	FieldRevenue: {
		"faturamento", "faturamento mensal", "faturamento_mensal",
		"faturamento medio mensal", "receita", "receita mensal", "revenue",
		"qual o faturamento mensal da sua empresa",
	},
	FieldProfit: {
		"lucro", "lucro mensal", "lucro_mensal", "margem", "margem de lucro",
		"profit", "qual o lucro mensal da sua empresa",
	},
	FieldCapacity: {
		"capacidade", "capacidade de investimento", "funcionarios",
		"numero de funcionarios", "equipe", "estrutura", "capacity",
	},
	FieldEmail: {
		"email", "e-mail", "e mail", "seu email", "seu e-mail",
		"email de contato",
	},
	FieldWhatsApp: {
		"whatsapp", "seu whatsapp", "numero de whatsapp", "telefone",
		"celular", "fone", "phone",
	},
}

// Aliases returns the alias list for a logical field, or nil when the field
// has no alias table (which triggers the marker-substring fallback).
func Aliases(field string) []string {
	return aliases[field]
}

// dateMarkers are the substrings that identify date-like bag keys during the
// fallback scan for unrecognized date fields. "data" covers the Portuguese
// spelling.
var dateMarkers = []string{"date", "data"}
