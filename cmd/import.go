package main

import (
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/extract"
	"github.com/sells-group/lead-pipeline/internal/model"
)

var importFile string

var importCmd = &cobra.Command{
	Use:   "import <session-id>",
	Short: "Import leads into a session from a spreadsheet export",
	Long:  "Reads a CSV or XLSX export, keeps every column as a lead attribute, resolves the identity columns, and bulk-inserts the leads with their initial qualification scores.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rows, err := readImportRows(importFile)
		if err != nil {
			return err
		}
		if len(rows) < 2 {
			return eris.Errorf("%s has no data rows", importFile)
		}

		leads := buildLeads(rows[0], rows[1:])

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		n, err := env.Engine.ImportLeads(cmd.Context(), args[0], leads)
		if err != nil {
			return err
		}
		cmd.Printf("imported %d leads into session %s\n", n, args[0])
		return nil
	},
}

func readImportRows(path string) ([][]string, error) {
	if strings.HasSuffix(strings.ToLower(path), ".xlsx") {
		return readXLSXRows(path)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	var rows [][]string
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "import: read %s", path)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readXLSXRows(path string) ([][]string, error) {
	f, err := xlsx.OpenFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "import: open %s", path)
	}
	if len(f.Sheets) == 0 {
		return nil, eris.Errorf("import: %s has no sheets", path)
	}

	var rows [][]string
	for _, row := range f.Sheets[0].Rows {
		cells := make([]string, len(row.Cells))
		for j, cell := range row.Cells {
			cells[j] = cell.String()
		}
		rows = append(rows, cells)
	}
	return rows, nil
}

// nameAliases are the folded header names carrying the lead's name.
var nameAliases = []string{"nome", "name", "nome completo"}

// buildLeads turns spreadsheet rows into leads. Every column lands in the
// attribute bag; identity columns are resolved through the alias tables so
// Portuguese headers work unchanged.
func buildLeads(header []string, rows [][]string) []model.Lead {
	leads := make([]model.Lead, 0, len(rows))
	for i, row := range rows {
		attrs := make(map[string]string, len(header))
		for j, key := range header {
			if j >= len(row) || strings.TrimSpace(row[j]) == "" || strings.TrimSpace(key) == "" {
				continue
			}
			attrs[key] = row[j]
		}

		lead := model.Lead{Attributes: attrs, OrderIndex: i}
		if v, ok := extract.Resolve(&lead, extract.FieldEmail); ok {
			lead.Email = v
		}
		if v, ok := extract.Resolve(&lead, extract.FieldWhatsApp); ok {
			lead.Phone = v
		}
	nameScan:
		for _, key := range header {
			folded := extract.FoldKey(key)
			for _, alias := range nameAliases {
				if folded == alias && attrs[key] != "" {
					lead.Name = attrs[key]
					break nameScan
				}
			}
		}
		leads = append(leads, lead)
	}
	return leads
}

func init() {
	importCmd.Flags().StringVar(&importFile, "file", "", "CSV or XLSX export to import (required)")
	importCmd.MarkFlagRequired("file") //nolint:errcheck
	rootCmd.AddCommand(importCmd)
}
