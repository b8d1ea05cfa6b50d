package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"

	"github.com/sells-group/lead-pipeline/internal/model"
)

var (
	attributionDimension string
	attributionFunnel    bool
	attributionDaily     bool
	attributionOut       string
)

var attributionCmd = &cobra.Command{
	Use:   "attribution <session-id>",
	Short: "Aggregate a session's leads for reporting",
	Long:  "Groups leads by an attribution dimension, by funnel stage, or by entry day. Results print as JSON or export to an XLSX workbook with --out.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if attributionDimension == "" && !attributionFunnel && !attributionDaily {
			return eris.New("one of --dimension, --funnel, or --daily is required")
		}

		env, err := initEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer env.Close()

		sessionID := args[0]
		report := struct {
			Dimension []model.AttributionRow `json:"dimension,omitempty"`
			Funnel    []model.StageCount     `json:"funnel,omitempty"`
			Daily     []model.DailyCount     `json:"daily,omitempty"`
		}{}

		if attributionDimension != "" {
			report.Dimension, err = env.Engine.AggregateByDimension(cmd.Context(), sessionID, attributionDimension)
			if err != nil {
				return err
			}
		}
		if attributionFunnel {
			report.Funnel, err = env.Engine.AggregateFunnel(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
		}
		if attributionDaily {
			report.Daily, err = env.Engine.AggregateDaily(cmd.Context(), sessionID)
			if err != nil {
				return err
			}
		}

		if attributionOut != "" {
			return writeReportXLSX(attributionOut, report.Dimension, report.Funnel, report.Daily)
		}
		return printJSON(report)
	},
}

// writeReportXLSX exports the aggregation results as one workbook, one sheet
// per report.
func writeReportXLSX(path string, dimension []model.AttributionRow, funnel []model.StageCount, daily []model.DailyCount) error {
	f := xlsx.NewFile()

	if dimension != nil {
		sheet, err := f.AddSheet("Attribution")
		if err != nil {
			return eris.Wrap(err, "report: add attribution sheet")
		}
		addRow(sheet, "Value", "Total", "Qualified", "Won", "Qualification Rate")
		for _, row := range dimension {
			addRow(sheet, row.DimensionValue,
				fmt.Sprintf("%d", row.TotalCount),
				fmt.Sprintf("%d", row.QualifiedCount),
				fmt.Sprintf("%d", row.WonCount),
				fmt.Sprintf("%.1f%%", row.QualificationRate*100))
		}
	}

	if funnel != nil {
		sheet, err := f.AddSheet("Funnel")
		if err != nil {
			return eris.Wrap(err, "report: add funnel sheet")
		}
		addRow(sheet, "Stage", "Count")
		for _, count := range funnel {
			addRow(sheet, string(count.Stage), fmt.Sprintf("%d", count.Count))
		}
	}

	if daily != nil {
		sheet, err := f.AddSheet("Daily")
		if err != nil {
			return eris.Wrap(err, "report: add daily sheet")
		}
		addRow(sheet, "Day", "Count")
		for _, bucket := range daily {
			addRow(sheet, bucket.Day, fmt.Sprintf("%d", bucket.Count))
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "report: save %s", path)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, cell := range cells {
		row.AddCell().Value = cell
	}
}

func init() {
	attributionCmd.Flags().StringVar(&attributionDimension, "dimension", "", "attribution dimension to group by (e.g. acquisition_source)")
	attributionCmd.Flags().BoolVar(&attributionFunnel, "funnel", false, "count leads per funnel stage")
	attributionCmd.Flags().BoolVar(&attributionDaily, "daily", false, "count leads per entry day")
	attributionCmd.Flags().StringVar(&attributionOut, "out", "", "write results to an XLSX workbook")
	rootCmd.AddCommand(attributionCmd)
}
