package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	regenReportID string
	regenSection  string
)

var regenerateCmd = &cobra.Command{
	Use:   "regenerate",
	Short: "Regenerate a single section of an existing report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		if err := env.Orchestrator.RegenerateSection(ctx, regenReportID, regenSection); err != nil {
			return eris.Wrap(err, "regenerate section")
		}

		zap.L().Info("section regenerated",
			zap.String("report_id", regenReportID),
			zap.String("section", regenSection),
		)
		return nil
	},
}

func init() {
	regenerateCmd.Flags().StringVar(&regenReportID, "report-id", "", "report to update (required)")
	regenerateCmd.Flags().StringVar(&regenSection, "section", "", "section name (required)")
	_ = regenerateCmd.MarkFlagRequired("report-id")
	_ = regenerateCmd.MarkFlagRequired("section")
	rootCmd.AddCommand(regenerateCmd)
}
