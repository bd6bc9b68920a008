package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskTypeSendEmail is the task type for transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskReportWarmup pre-populates dashboard report caches.
	TaskReportWarmup = "report:warmup"
	// TaskFollowupScan looks for sent quotes whose follow-up is overdue.
	TaskFollowupScan = "followup:scan"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: SMTP delivery is wired behind the worker in deployment.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// ReportWarmupPayload scopes a warmup run.
type ReportWarmupPayload struct {
	// OwnerID limits the run to one owner; zero warms every active owner.
	OwnerID int64 `json:"owner_id,omitempty"`
}

// NewReportWarmupTask constructs a warmup task.
func NewReportWarmupTask(payload ReportWarmupPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskReportWarmup, data), nil
}

// FollowupScanPayload scopes a follow-up scan.
type FollowupScanPayload struct {
	// WindowDays overrides the overdue window; zero means the default 7 days.
	WindowDays int `json:"window_days,omitempty"`
}

// NewFollowupScanTask constructs a follow-up scan task.
func NewFollowupScanTask(payload FollowupScanPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskFollowupScan, data), nil
}
