package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/lead-pipeline/internal/salesrecords"
)

var (
	matchRecordsCSV  string
	matchRecordsXLSX string
	matchSalesforce  bool
	matchPlatform    string
	matchLeadID      string
)

var matchCmd = &cobra.Command{
	Use:   "match <session-id>",
	Short: "Cross-reference leads against historical sale records",
	Long:  "Flags leads whose email or phone matches an external sale record, listing the products they already bought. Records come from a CSV or XLSX export or from Salesforce.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		source, err := buildRecordSource()
		if err != nil {
			return err
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		if matchLeadID != "" {
			result, err := env.Engine.MatchLead(cmd.Context(), matchLeadID, source)
			if err != nil {
				return err
			}
			return printJSON(result)
		}

		matches, err := env.Engine.MatchSession(cmd.Context(), args[0], source)
		if err != nil {
			return err
		}
		return printJSON(matches)
	},
}

func buildRecordSource() (salesrecords.Source, error) {
	switch {
	case matchRecordsCSV != "":
		return &salesrecords.CSVSource{Path: matchRecordsCSV}, nil
	case matchRecordsXLSX != "":
		return &salesrecords.XLSXSource{Path: matchRecordsXLSX}, nil
	case matchSalesforce:
		client, err := initSalesforce()
		if err != nil {
			return nil, err
		}
		return &salesrecords.SalesforceSource{Client: client, Platform: matchPlatform}, nil
	default:
		return nil, eris.New("one of --records-csv, --records-xlsx, or --salesforce is required")
	}
}

func init() {
	matchCmd.Flags().StringVar(&matchRecordsCSV, "records-csv", "", "CSV export of sale records")
	matchCmd.Flags().StringVar(&matchRecordsXLSX, "records-xlsx", "", "XLSX export of sale records")
	matchCmd.Flags().BoolVar(&matchSalesforce, "salesforce", false, "pull sale records from Salesforce")
	matchCmd.Flags().StringVar(&matchPlatform, "platform", "", "platform filter for Salesforce records")
	matchCmd.Flags().StringVar(&matchLeadID, "lead", "", "match a single lead instead of the whole session")
	rootCmd.AddCommand(matchCmd)
}
