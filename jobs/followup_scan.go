package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tradebill/tradebill/internal/jobs"
)

// FollowupScanJob finds sent quotes whose follow-up is overdue and enqueues a
// reminder email per quote, so the owner sees the queue even without opening
// the app.
type FollowupScanJob struct {
	Pool    *pgxpool.Pool
	Client  *Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
	clock   func() time.Time
}

// NewFollowupScanJob initialises the follow-up scan handler.
func NewFollowupScanJob(pool *pgxpool.Pool, client *Client, logger *slog.Logger, metrics *jobmetrics.Metrics) *FollowupScanJob {
	return &FollowupScanJob{
		Pool:    pool,
		Client:  client,
		Logger:  logger,
		Metrics: metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

type overdueQuote struct {
	ID          int64
	Title       string
	OwnerID     int64
	ClientName  string
	ClientEmail string
	SentSince   time.Duration
}

// Handle executes the follow-up scan.
func (j *FollowupScanJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("followup scan: handler not configured")
	}
	var payload FollowupScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.WindowDays <= 0 {
		payload.WindowDays = 7
	}

	tracker := j.metrics().Track(TaskFollowupScan)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	now := j.now()
	cutoff := now.AddDate(0, 0, -payload.WindowDays)
	quotes, err := j.fetchOverdue(ctx, cutoff, now)
	if err != nil {
		resultErr = err
		j.logger().Error("scan overdue follow-ups", slog.Any("error", err))
		return resultErr
	}

	enqueued := 0
	for _, q := range quotes {
		if q.ClientEmail == "" || j.Client == nil {
			continue
		}
		payload := SendEmailPayload{
			To:      q.ClientEmail,
			Subject: fmt.Sprintf("Reminder: quote %q is awaiting your reply", q.Title),
			Body:    fmt.Sprintf("Hello %s,\n\nQuote #%d was sent %d days ago and is still awaiting your decision.", q.ClientName, q.ID, int(q.SentSince.Hours()/24)),
		}
		if _, err := j.Client.EnqueueSendEmail(ctx, payload); err != nil {
			resultErr = err
			j.logger().Error("enqueue reminder", slog.Int64("document_id", q.ID), slog.Any("error", err))
			return resultErr
		}
		enqueued++
	}

	j.logger().Info("completed follow-up scan",
		slog.Int("overdue", len(quotes)),
		slog.Int("reminders", enqueued),
		slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *FollowupScanJob) fetchOverdue(ctx context.Context, cutoff, now time.Time) ([]overdueQuote, error) {
	if j.Pool == nil {
		return nil, nil
	}
	rows, err := j.Pool.Query(ctx, `
		SELECT d.id, d.title, d.owner_id, d.doc_date, c.name, COALESCE(c.email, '')
		FROM documents d
		JOIN clients c ON c.id = d.client_id
		WHERE d.status = 'SENT'
		  AND d.doc_date < $1
		  AND (d.last_followup_at IS NULL OR d.last_followup_at < $1)
		ORDER BY d.doc_date, d.id`, cutoff)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var quotes []overdueQuote
	for rows.Next() {
		var q overdueQuote
		var docDate time.Time
		if err := rows.Scan(&q.ID, &q.Title, &q.OwnerID, &docDate, &q.ClientName, &q.ClientEmail); err != nil {
			return nil, err
		}
		q.SentSince = now.Sub(docDate)
		quotes = append(quotes, q)
	}
	return quotes, rows.Err()
}

func (j *FollowupScanJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *FollowupScanJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *FollowupScanJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
