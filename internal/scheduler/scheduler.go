// Package scheduler keeps one live cron trigger per persisted schedule and
// runs the notification dispatch for the schedule's user when it fires.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/robfig/cron/v3"
	obsmetrics "github.com/smallbiznis/invoicereminder/internal/observability/metrics"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Runner is the unit of work a trigger fires.
type Runner interface {
	SendMessage(ctx context.Context, userID snowflake.ID) (string, error)
}

// ScheduleStore lists the persisted schedules loaded at startup.
type ScheduleStore interface {
	ListAll(ctx context.Context) ([]scheduledomain.JobSchedule, error)
}

type Params struct {
	fx.In

	Log     *zap.Logger
	Runner  Runner
	Store   ScheduleStore
	Config  Config                       `optional:"true"`
	Metrics *obsmetrics.SchedulerMetrics `optional:"true"`
}

// Scheduler owns the process-wide trigger engine. The engine is created on
// first use and reused until StopAsync shuts it down.
type Scheduler struct {
	log     *zap.Logger
	cfg     Config
	runner  Runner
	store   ScheduleStore
	metrics *obsmetrics.SchedulerMetrics

	mu     sync.Mutex
	engine *engine
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.Runner == nil || p.Store == nil {
		return nil, ErrInvalidConfig
	}
	cfg := p.Config.withDefaults()
	if _, err := cfg.location(); err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, cfg.Timezone, err)
	}
	return &Scheduler{
		log:     p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:     cfg,
		runner:  p.Runner,
		store:   p.Store,
		metrics: p.Metrics,
	}, nil
}

// ensureEngine returns the live engine, creating a fresh one when none exists
// or the previous one was shut down. Callers hold s.mu.
func (s *Scheduler) ensureEngine() *engine {
	if s.engine != nil && !s.engine.IsShutdown() {
		return s.engine
	}
	loc, err := s.cfg.location()
	if err != nil {
		loc = time.UTC
	}
	s.engine = newEngine(loc, newCronLogger(s.log))
	return s.engine
}

// ScheduleJobAsync registers a job and trigger for schedule and starts the
// engine if needed.
func (s *Scheduler) ScheduleJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	if schedule == nil {
		return ErrNilSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	trigger, err := ParseCron(schedule.CronExpression)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eng := s.ensureEngine()
	if _, exists := eng.lookup(schedule.JobKey()); exists {
		return fmt.Errorf("%w: %s", ErrJobExists, schedule.JobKey())
	}
	s.register(eng, *schedule, trigger, false)
	if !eng.IsStarted() {
		eng.start()
	}
	s.metrics.IncTriggerOp("schedule")
	return nil
}

// UpdateJobScheduleAsync replaces the trigger for schedule. A missing job is
// simply scheduled.
func (s *Scheduler) UpdateJobScheduleAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	if schedule == nil {
		return ErrNilSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	trigger, err := ParseCron(schedule.CronExpression)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eng := s.ensureEngine()
	if reg, exists := eng.lookup(schedule.JobKey()); exists {
		eng.remove(reg)
	}
	s.register(eng, *schedule, trigger, false)
	if !eng.IsStarted() {
		eng.start()
	}
	s.metrics.IncTriggerOp("reschedule")
	s.log.Info("scheduler.job.rescheduled",
		zap.String("job_key", schedule.JobKey()),
		zap.String("cron", schedule.CronExpression),
	)
	return nil
}

// ReScheduleJobAsync is an alias of UpdateJobScheduleAsync.
func (s *Scheduler) ReScheduleJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	return s.UpdateJobScheduleAsync(ctx, schedule)
}

// DeleteJobAsync removes the job for schedule when one exists.
func (s *Scheduler) DeleteJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	if schedule == nil {
		return ErrNilSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return nil
	}
	reg, exists := s.engine.lookup(schedule.JobKey())
	if !exists {
		return nil
	}
	s.engine.remove(reg)
	s.metrics.IncTriggerOp("delete")
	s.log.Info("scheduler.job.deleted", zap.String("job_key", reg.jobKey))
	return nil
}

// RemoveJobAsync is an alias of DeleteJobAsync.
func (s *Scheduler) RemoveJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	return s.DeleteJobAsync(ctx, schedule)
}

// PauseJobAsync stops the trigger from firing but keeps the job registered.
func (s *Scheduler) PauseJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	return s.transition(ctx, schedule, "pause", func(eng *engine, reg *registration) {
		eng.pause(reg)
	})
}

// ResumeJobAsync re-arms a paused trigger.
func (s *Scheduler) ResumeJobAsync(ctx context.Context, schedule *scheduledomain.JobSchedule) error {
	return s.transition(ctx, schedule, "resume", func(eng *engine, reg *registration) {
		eng.resume(reg)
	})
}

func (s *Scheduler) transition(ctx context.Context, schedule *scheduledomain.JobSchedule, op string, apply func(*engine, *registration)) error {
	if schedule == nil {
		return ErrNilSchedule
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil || s.engine.IsShutdown() {
		return fmt.Errorf("%w: %s", ErrJobNotFound, schedule.JobKey())
	}
	reg, exists := s.engine.lookup(schedule.JobKey())
	if !exists {
		return fmt.Errorf("%w: %s", ErrJobNotFound, schedule.JobKey())
	}
	before := reg.state()
	apply(s.engine, reg)
	s.metrics.IncTriggerOp(op)
	s.log.Info("scheduler.job."+op,
		zap.String("job_key", reg.jobKey),
		zap.String("trigger_key", reg.triggerKey),
		zap.String("from", string(before)),
		zap.String("to", string(reg.state())),
	)
	return nil
}

// StartAsync loads every persisted schedule and starts the engine. Schedules
// with an invalid cron expression are logged and skipped.
func (s *Scheduler) StartAsync(ctx context.Context) error {
	schedules, err := s.store.ListAll(ctx)
	if err != nil {
		return fmt.Errorf("load schedules: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	eng := s.ensureEngine()
	registered, skipped := 0, 0
	for _, schedule := range schedules {
		if err := ctx.Err(); err != nil {
			return err
		}
		trigger, err := ParseCron(schedule.CronExpression)
		if err != nil {
			skipped++
			s.metrics.IncStartupSkipped()
			s.log.Error("scheduler.schedule.invalid_cron",
				zap.String("schedule_id", schedule.ID.String()),
				zap.String("user_id", schedule.UserID.String()),
				zap.String("cron", schedule.CronExpression),
				zap.Error(err),
			)
			continue
		}
		if _, exists := eng.lookup(schedule.JobKey()); exists {
			continue
		}
		s.register(eng, schedule, trigger, schedule.Paused)
		registered++
	}

	if !eng.IsStarted() {
		eng.start()
	}
	s.log.Info("scheduler.started",
		zap.Int("registered", registered),
		zap.Int("skipped", skipped),
		zap.String("timezone", s.cfg.Timezone),
	)
	return nil
}

// StopAsync shuts the engine down if it exists and is still running.
func (s *Scheduler) StopAsync(ctx context.Context) error {
	s.mu.Lock()
	eng := s.engine
	if eng == nil || eng.IsShutdown() {
		s.mu.Unlock()
		return nil
	}
	done := eng.halt()
	s.mu.Unlock()

	eng.drain(ctx, done, s.cfg.StopGrace)
	s.log.Info("scheduler.stopped")
	return nil
}

// TriggerNow fires the job for scheduleID once, outside its cron timing.
func (s *Scheduler) TriggerNow(ctx context.Context, scheduleID snowflake.ID) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	key := scheduledomain.JobSchedule{ID: scheduleID}.JobKey()

	s.mu.Lock()
	var job cron.Job
	if s.engine != nil && !s.engine.IsShutdown() {
		if reg, ok := s.engine.lookup(key); ok {
			job = reg.job
		}
	}
	s.mu.Unlock()

	if job == nil {
		return fmt.Errorf("%w: %s", ErrJobNotFound, key)
	}
	s.metrics.IncTriggerOp("trigger_now")
	go job.Run()
	return nil
}

// Status reports the live state for scheduleID.
func (s *Scheduler) Status(scheduleID snowflake.ID) State {
	key := scheduledomain.JobSchedule{ID: scheduleID}.JobKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil || s.engine.IsShutdown() {
		return StateAbsent
	}
	reg, ok := s.engine.lookup(key)
	if !ok {
		return StateAbsent
	}
	return reg.state()
}

// NextRun returns the next fire time, or zero when not scheduled or the
// engine has not computed it yet.
func (s *Scheduler) NextRun(scheduleID snowflake.ID) time.Time {
	key := scheduledomain.JobSchedule{ID: scheduleID}.JobKey()

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.engine == nil {
		return time.Time{}
	}
	reg, ok := s.engine.lookup(key)
	if !ok {
		return time.Time{}
	}
	return s.engine.next(reg)
}

func (s *Scheduler) IsStarted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine != nil && s.engine.IsStarted() && !s.engine.IsShutdown()
}

func (s *Scheduler) IsShutdown() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.engine == nil || s.engine.IsShutdown()
}

func (s *Scheduler) register(eng *engine, schedule scheduledomain.JobSchedule, trigger cron.Schedule, paused bool) {
	logger := newCronLogger(s.log)
	runCtx := eng.ctx
	job := cron.NewChain(
		cron.Recover(logger),
		cron.SkipIfStillRunning(logger),
	).Then(cron.FuncJob(func() {
		s.execute(runCtx, schedule)
	}))

	eng.add(&registration{
		schedule:   schedule,
		jobKey:     schedule.JobKey(),
		triggerKey: schedule.TriggerKey(),
		trigger:    trigger,
		job:        job,
	}, paused)

	s.log.Info("scheduler.job.registered",
		zap.String("job_key", schedule.JobKey()),
		zap.String("trigger_key", schedule.TriggerKey()),
		zap.String("user_id", schedule.UserID.String()),
		zap.String("cron", schedule.CronExpression),
		zap.Bool("paused", paused),
	)
}
