package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"

	jobmetrics "github.com/tradebill/tradebill/internal/jobs"
	"github.com/tradebill/tradebill/internal/reporting"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// DashboardWarmupJob pre-populates the dashboard report cache so the first
// morning request does not pay the full snapshot recompute.
type DashboardWarmupJob struct {
	Reporting *reporting.Service
	Pool      *pgxpool.Pool
	Logger    *slog.Logger
	Metrics   *jobmetrics.Metrics
	clock     func() time.Time
}

// NewDashboardWarmupJob wires dependencies for the warmup handler.
func NewDashboardWarmupJob(reportingSvc *reporting.Service, pool *pgxpool.Pool, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{
		Reporting: reportingSvc,
		Pool:      pool,
		Logger:    logger,
		Metrics:   metrics,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes report warmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil {
		return errors.New("dashboard warmup: handler not configured")
	}
	var payload ReportWarmupPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.metrics().Track(TaskReportWarmup)
	var resultErr error
	defer func() {
		resultErr = tracker.End(resultErr)
	}()

	owners, err := j.fetchOwners(ctx, payload.OwnerID)
	if err != nil {
		resultErr = err
		j.logger().Error("load warmup owners", slog.Any("error", err))
		return resultErr
	}
	if len(owners) == 0 {
		j.logger().Info("no owners discovered for warmup")
		return resultErr
	}

	now := j.now()
	warmed := 0
	for _, owner := range owners {
		if err := j.warmOwner(ctx, owner, now); err != nil {
			resultErr = err
			j.logger().Error("warm owner", slog.Int64("owner_id", owner), slog.Any("error", err))
			return resultErr
		}
		warmed++
	}

	j.logger().Info("completed dashboard warmup", slog.Int("owners", warmed), slog.Duration("duration", time.Since(now)))
	return resultErr
}

func (j *DashboardWarmupJob) warmOwner(ctx context.Context, ownerID int64, now time.Time) error {
	if j.Reporting == nil {
		return nil
	}
	// Tighten each owner's execution with a timeout to avoid long-running jobs.
	ownerCtx, cancel := context.WithTimeout(ctx, 20*time.Second)
	defer cancel()

	_, err := j.Reporting.Dashboard(ownerCtx, ownerID, now)
	return err
}

func (j *DashboardWarmupJob) fetchOwners(ctx context.Context, ownerID int64) ([]int64, error) {
	if ownerID > 0 {
		return []int64{ownerID}, nil
	}
	if j.Pool == nil {
		return nil, nil
	}
	rows, err := j.Pool.Query(ctx, `SELECT DISTINCT owner_id FROM documents ORDER BY owner_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var owners []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		owners = append(owners, id)
	}
	return owners, rows.Err()
}

func (j *DashboardWarmupJob) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return defaultJobMetrics
}

func (j *DashboardWarmupJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *DashboardWarmupJob) now() time.Time {
	if j.clock != nil {
		return j.clock()
	}
	return time.Now().UTC()
}
