package pipeline

import (
	"context"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow and activity names registered with the Temporal worker.
const (
	GenerateReportWorkflowName = "GenerateReportWorkflow"
	GenerateReportActivityName = "GenerateReportActivity"
)

// generateTimeout bounds one full pipeline run inside the activity.
const generateTimeout = 20 * time.Minute

// GenerateReportWorkflow runs report generation as a single activity. The
// pipeline handles its own component-level fallbacks, so the activity is
// not retried: a failed run is surfaced on the report record instead.
func GenerateReportWorkflow(ctx workflow.Context, reportID string) error {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: generateTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			MaximumAttempts: 1,
		},
	})

	logger := workflow.GetLogger(ctx)
	logger.Info("starting report generation", "reportID", reportID)

	return workflow.ExecuteActivity(ctx, GenerateReportActivityName, reportID).Get(ctx, nil)
}

// Activities carries the orchestrator into Temporal activity context.
type Activities struct {
	Orchestrator *Orchestrator
}

// GenerateReport is the activity wrapper around Orchestrator.Generate.
func (a *Activities) GenerateReport(ctx context.Context, reportID string) error {
	return a.Orchestrator.Generate(ctx, reportID)
}
