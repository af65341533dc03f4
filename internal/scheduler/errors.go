package scheduler

import "errors"

var (
	ErrNilSchedule   = errors.New("schedule_is_nil")
	ErrInvalidCron   = errors.New("invalid_cron_expression")
	ErrJobNotFound   = errors.New("job_not_found")
	ErrJobExists     = errors.New("job_already_scheduled")
	ErrInvalidConfig = errors.New("invalid_scheduler_config")
)
