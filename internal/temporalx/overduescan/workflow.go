package overduescan

import (
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

func Workflow(ctx workflow.Context) (EnqueueResult, error) {
	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: time.Minute,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    5 * time.Second,
			BackoffCoefficient: 2,
			MaximumInterval:    time.Minute,
			MaximumAttempts:    5,
		},
	})

	var out EnqueueResult
	if err := workflow.ExecuteActivity(ctx, ActivityEnqueue, TriggerSchedule).Get(ctx, &out); err != nil {
		return out, err
	}
	workflow.GetLogger(ctx).Info("overdue scan trigger done", "job_id", out.JobID, "created", out.Created)
	return out, nil
}
