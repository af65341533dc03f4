package scheduler

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
)

// State is the lifecycle position of one schedule id inside the engine.
type State string

const (
	StateAbsent    State = "absent"
	StateScheduled State = "scheduled"
	StatePaused    State = "paused"
)

// registration is one live job+trigger pair.
type registration struct {
	schedule   scheduledomain.JobSchedule
	jobKey     string
	triggerKey string
	trigger    cron.Schedule
	job        cron.Job
	entryID    cron.EntryID
}

func (r *registration) state() State {
	if r.entryID == 0 {
		return StatePaused
	}
	return StateScheduled
}

// engine wraps one cron instance plus the registry of jobs keyed by
// "{id}.job". Callers hold Scheduler.mu.
type engine struct {
	cron     *cron.Cron
	ctx      context.Context
	cancel   context.CancelFunc
	started  bool
	shutdown bool
	jobs     map[string]*registration
}

func newEngine(loc *time.Location, logger cron.Logger) *engine {
	ctx, cancel := context.WithCancel(context.Background())
	return &engine{
		cron: cron.New(
			cron.WithParser(cronParser),
			cron.WithLocation(loc),
			cron.WithLogger(logger),
		),
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(map[string]*registration),
	}
}

func (e *engine) IsStarted() bool  { return e.started }
func (e *engine) IsShutdown() bool { return e.shutdown }

func (e *engine) start() {
	if e.started || e.shutdown {
		return
	}
	e.cron.Start()
	e.started = true
}

// halt stops the trigger loop. The returned context is done once running
// jobs have returned.
func (e *engine) halt() context.Context {
	e.shutdown = true
	return e.cron.Stop()
}

// drain waits for running jobs up to grace, then cancels whatever remains.
func (e *engine) drain(ctx, done context.Context, grace time.Duration) {
	timer := time.NewTimer(grace)
	defer timer.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
	case <-timer.C:
	}
	e.cancel()
}

func (e *engine) lookup(jobKey string) (*registration, bool) {
	reg, ok := e.jobs[jobKey]
	return reg, ok
}

func (e *engine) add(reg *registration, paused bool) {
	if !paused {
		reg.entryID = e.cron.Schedule(reg.trigger, reg.job)
	}
	e.jobs[reg.jobKey] = reg
}

func (e *engine) remove(reg *registration) {
	if reg.entryID != 0 {
		e.cron.Remove(reg.entryID)
		reg.entryID = 0
	}
	delete(e.jobs, reg.jobKey)
}

func (e *engine) pause(reg *registration) {
	if reg.entryID == 0 {
		return
	}
	e.cron.Remove(reg.entryID)
	reg.entryID = 0
}

func (e *engine) resume(reg *registration) {
	if reg.entryID != 0 {
		return
	}
	reg.entryID = e.cron.Schedule(reg.trigger, reg.job)
}

func (e *engine) next(reg *registration) time.Time {
	if reg.entryID == 0 {
		return time.Time{}
	}
	return e.cron.Entry(reg.entryID).Next
}
