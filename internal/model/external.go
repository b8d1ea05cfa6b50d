package model

// ExternalRecord is a historical sale row from an external purchase source
// (payment platform export, CRM query). Read-only to this subsystem.
type ExternalRecord struct {
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	ProductName string `json:"product_name"`
	Platform    string `json:"platform"`
}

// MatchedProduct is a product a lead was found to have purchased.
type MatchedProduct struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

// MatchResult is the outcome of cross-referencing a lead against external
// purchase records. The zero value (no match, no products) is the normal
// state for an unknown lead, not an error.
type MatchResult struct {
	IsMatch         bool             `json:"is_match"`
	MatchedProducts []MatchedProduct `json:"matched_products,omitempty"`
}
