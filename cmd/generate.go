package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/model"
)

var (
	genIndustry    string
	genGeography   string
	genHorizon     string
	genDepth       string
	genFinancial   bool
	genCompetitive bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a market intelligence report",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("generate"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		input := model.ReportInput{
			Industry:                    genIndustry,
			Geography:                   genGeography,
			TimeHorizon:                 genHorizon,
			Depth:                       model.Depth(genDepth),
			IncludeFinancialForecast:    genFinancial,
			IncludeCompetitiveLandscape: genCompetitive,
		}

		report, err := env.Store.CreateReport(ctx, input)
		if err != nil {
			return eris.Wrap(err, "create report")
		}

		zap.L().Info("report queued",
			zap.String("report_id", report.ID),
			zap.String("industry", input.Industry),
			zap.String("depth", string(input.Depth)),
		)

		if err := env.Orchestrator.Generate(ctx, report.ID); err != nil {
			return eris.Wrap(err, "generate report")
		}

		final, err := env.Store.GetReport(ctx, report.ID)
		if err != nil {
			return eris.Wrap(err, "load report")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(final)
	},
}

func init() {
	generateCmd.Flags().StringVar(&genIndustry, "industry", "", "industry to research (required)")
	generateCmd.Flags().StringVar(&genGeography, "geography", "Global", "geography scope")
	generateCmd.Flags().StringVar(&genHorizon, "horizon", "2025-2030", "time horizon")
	generateCmd.Flags().StringVar(&genDepth, "depth", string(model.DepthBasic), "research depth: Basic, Professional, or Investor-grade")
	generateCmd.Flags().BoolVar(&genFinancial, "financial-forecast", true, "include the financial forecast section")
	generateCmd.Flags().BoolVar(&genCompetitive, "competitive-landscape", true, "include the competitive landscape section")
	_ = generateCmd.MarkFlagRequired("industry")
	rootCmd.AddCommand(generateCmd)
}
