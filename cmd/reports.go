package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/insightforge/market-intel/internal/model"
	"github.com/insightforge/market-intel/internal/store"
)

var (
	statusReportID string

	listStatus string
	listLimit  int
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show a report's status and progress message",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		report, err := st.GetReport(ctx, statusReportID)
		if err != nil {
			return eris.Wrap(err, "load report")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

var reportsCmd = &cobra.Command{
	Use:   "reports",
	Short: "List reports",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		reports, err := st.ListReports(ctx, store.ReportFilter{
			Status: model.ReportStatus(listStatus),
			Limit:  listLimit,
		})
		if err != nil {
			return eris.Wrap(err, "list reports")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(reports)
	},
}

func init() {
	statusCmd.Flags().StringVar(&statusReportID, "report-id", "", "report to inspect (required)")
	_ = statusCmd.MarkFlagRequired("report-id")

	reportsCmd.Flags().StringVar(&listStatus, "status", "", "filter by status")
	reportsCmd.Flags().IntVar(&listLimit, "limit", 20, "maximum reports to list")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(reportsCmd)
}
