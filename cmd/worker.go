package main

import (
	"os/signal"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/worker"
	"go.temporal.io/sdk/workflow"
	"go.uber.org/zap"

	"github.com/insightforge/market-intel/internal/pipeline"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the Temporal worker for asynchronous report generation",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		if err := cfg.Validate("worker"); err != nil {
			return err
		}

		env, err := initPipeline(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return eris.Wrap(err, "temporal dial")
		}
		defer c.Close()

		w := worker.New(c, cfg.Temporal.TaskQueue, worker.Options{})
		w.RegisterWorkflowWithOptions(pipeline.GenerateReportWorkflow, workflow.RegisterOptions{
			Name: pipeline.GenerateReportWorkflowName,
		})

		activities := &pipeline.Activities{Orchestrator: env.Orchestrator}
		w.RegisterActivityWithOptions(activities.GenerateReport, activity.RegisterOptions{
			Name: pipeline.GenerateReportActivityName,
		})

		zap.L().Info("temporal worker starting",
			zap.String("task_queue", cfg.Temporal.TaskQueue),
			zap.String("host_port", cfg.Temporal.HostPort),
		)
		return eris.Wrap(w.Run(worker.InterruptCh()), "temporal worker")
	},
}

var dispatchReportID string

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Dispatch report generation to the Temporal task queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		c, err := client.Dial(client.Options{
			HostPort:  cfg.Temporal.HostPort,
			Namespace: cfg.Temporal.Namespace,
		})
		if err != nil {
			return eris.Wrap(err, "temporal dial")
		}
		defer c.Close()

		run, err := c.ExecuteWorkflow(ctx, client.StartWorkflowOptions{
			ID:        "report-" + dispatchReportID,
			TaskQueue: cfg.Temporal.TaskQueue,
		}, pipeline.GenerateReportWorkflowName, dispatchReportID)
		if err != nil {
			return eris.Wrap(err, "start workflow")
		}

		zap.L().Info("workflow dispatched",
			zap.String("report_id", dispatchReportID),
			zap.String("workflow_id", run.GetID()),
			zap.String("run_id", run.GetRunID()),
		)
		return nil
	},
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchReportID, "report-id", "", "report to generate (required)")
	_ = dispatchCmd.MarkFlagRequired("report-id")
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(dispatchCmd)
}
