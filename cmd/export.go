package main

import (
	"fmt"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/export"
)

var (
	exportReportID string
	exportOut      string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a report's tables and breakdowns to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.GetReport(ctx, exportReportID)
		if err != nil {
			return eris.Wrap(err, "load report")
		}
		doc, err := st.GetDocument(ctx, exportReportID)
		if err != nil {
			return eris.Wrap(err, "load document")
		}

		out := exportOut
		if out == "" {
			out = fmt.Sprintf("report_%s.xlsx", exportReportID)
		}

		if err := export.WriteWorkbook(out, report, doc); err != nil {
			return err
		}

		zap.L().Info("workbook written",
			zap.String("report_id", exportReportID),
			zap.String("path", out),
		)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportReportID, "report-id", "", "report to export (required)")
	exportCmd.Flags().StringVar(&exportOut, "out", "", "output path (default report_<id>.xlsx)")
	_ = exportCmd.MarkFlagRequired("report-id")
	rootCmd.AddCommand(exportCmd)
}
