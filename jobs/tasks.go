package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/monitop/monitop/internal/jobs"
	"github.com/monitop/monitop/internal/shared"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAuditRecord is the task type for audit trail entries.
	TaskTypeAuditRecord = "audit:record"
)

// NewAuditRecordTask constructs an Asynq task carrying an audit entry.
func NewAuditRecordTask(log shared.AuditLog) (*asynq.Task, error) {
	if log.At.IsZero() {
		log.At = time.Now().UTC()
	}
	data, err := json.Marshal(log)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAuditRecord, data), nil
}

// AuditRecordHandler processes TaskTypeAuditRecord tasks by persisting the
// entry through the audit logger. metrics may be nil.
func AuditRecordHandler(auditLogger *shared.AuditLogger, logger *slog.Logger, metrics *jobmetrics.Metrics) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskTypeAuditRecord)
		var payload shared.AuditLog
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			_ = tracker.End(err)
			return asynq.SkipRetry
		}
		if err := auditLogger.Record(ctx, payload); err != nil {
			logger.Error("persist audit record", slog.String("action", payload.Action), slog.Any("error", err))
			return tracker.End(err)
		}
		return tracker.End(nil)
	}
}
