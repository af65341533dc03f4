package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	obscontext "github.com/smallbiznis/invoicereminder/internal/observability/context"
	obslogger "github.com/smallbiznis/invoicereminder/internal/observability/logger"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"github.com/smallbiznis/invoicereminder/pkg/telemetry/correlation"
	"go.uber.org/zap"
)

// execute is the job boundary: dispatch failures are logged here and never
// propagate into the engine.
func (s *Scheduler) execute(parent context.Context, schedule scheduledomain.JobSchedule) {
	ctx, cancel := context.WithTimeout(parent, s.cfg.JobTimeout)
	defer cancel()

	ctx, runID := correlation.EnsureCorrelationID(ctx)
	ctx = obscontext.WithActor(ctx, "system", "scheduler")
	ctx = obscontext.WithScheduleID(ctx, schedule.ID.String())
	ctx = obscontext.WithUserID(ctx, schedule.UserID.String())
	log := s.logger(ctx).With(
		zap.String("job_key", schedule.JobKey()),
		zap.String("run_id", runID),
	)

	start := time.Now()
	log.Info("scheduler.job.start")

	summary, err := s.runner.SendMessage(ctx, schedule.UserID)
	fields := []zap.Field{zap.Int64("duration_ms", time.Since(start).Milliseconds())}
	switch {
	case err == nil:
		log.Info("scheduler.job.finish", append(fields, zap.String("summary", summary))...)
	case errors.Is(err, dispatch.ErrOperationCanceled):
		log.Warn("scheduler.job.canceled", append(fields, zap.Error(err))...)
	default:
		log.Error("scheduler.job.failed", append(fields, zap.Error(err))...)
	}
}

func (s *Scheduler) logger(ctx context.Context) *zap.Logger {
	return obslogger.WithContext(ctx, s.log)
}
