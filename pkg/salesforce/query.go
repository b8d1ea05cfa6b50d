package salesforce

import (
	"fmt"
	"strings"
)

// SaleRecord represents a closed sale pulled from Salesforce for
// cross-referencing against pipeline leads.
type SaleRecord struct {
	ID          string `json:"Id" salesforce:"Id"`
	Email       string `json:"Contact_Email__c" salesforce:"Contact_Email__c"`
	Phone       string `json:"Contact_Phone__c" salesforce:"Contact_Phone__c"`
	ProductName string `json:"Product_Name__c" salesforce:"Product_Name__c"`
	Platform    string `json:"Platform__c" salesforce:"Platform__c"`
}

// saleFields are the SOQL fields selected for sale record queries.
var saleFields = []string{
	"Id", "Contact_Email__c", "Contact_Phone__c", "Product_Name__c", "Platform__c",
}

// SaleRecordsSOQL builds the query for closed-won sale records, optionally
// filtered by platform.
func SaleRecordsSOQL(platform string) string {
	soql := fmt.Sprintf(
		"SELECT %s FROM Sale__c WHERE Status__c = 'closed_won'",
		strings.Join(saleFields, ", "),
	)
	if platform != "" {
		soql += fmt.Sprintf(" AND Platform__c = '%s'", escapeSoql(platform))
	}
	return soql
}

// escapeSoql escapes single quotes in SOQL string literals to prevent injection.
func escapeSoql(s string) string {
	return strings.ReplaceAll(s, "'", `\'`)
}
