// Package overduescan runs the overdue scan trigger on Temporal: a Schedule
// starts Workflow, whose activity enqueues an overdue_scan job.
package overduescan

const (
	WorkflowName    = "library_overdue_scan"
	ActivityEnqueue = "library_enqueue_overdue_scan"
	TriggerSchedule = "temporal_schedule"
)

type EnqueueResult struct {
	JobID   string `json:"job_id,omitempty"`
	Created bool   `json:"created"`
}
