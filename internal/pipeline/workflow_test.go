package pipeline

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/testsuite"
)

func TestGenerateReportWorkflow(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	st := &fakeStore{report: queuedReport()}
	activities := &Activities{Orchestrator: newTestOrchestrator(st, &fakeFinder{}, "")}
	env.RegisterActivityWithOptions(activities.GenerateReport, activity.RegisterOptions{
		Name: GenerateReportActivityName,
	})

	env.ExecuteWorkflow(GenerateReportWorkflow, "rep-1")

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())
	assert.Equal(t, "# Test Report", st.savedDoc.Markdown)
}

func TestGenerateReportWorkflowPropagatesFailure(t *testing.T) {
	var ts testsuite.WorkflowTestSuite
	env := ts.NewTestWorkflowEnvironment()

	st := &fakeStore{report: queuedReport(), replaceErr: errors.New("disk full")}
	activities := &Activities{Orchestrator: newTestOrchestrator(st, &fakeFinder{}, "")}
	env.RegisterActivityWithOptions(activities.GenerateReport, activity.RegisterOptions{
		Name: GenerateReportActivityName,
	})

	env.ExecuteWorkflow(GenerateReportWorkflow, "rep-1")

	require.True(t, env.IsWorkflowCompleted())
	assert.Error(t, env.GetWorkflowError())
}
