package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/dispatch"
	scheduledomain "github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

const rarely = "0 0 0 1 1 *"

type fakeRunner struct {
	mu    sync.Mutex
	calls []snowflake.ID
	fn    func(ctx context.Context, userID snowflake.ID) (string, error)
	fired chan snowflake.ID
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{fired: make(chan snowflake.ID, 8)}
}

func (r *fakeRunner) SendMessage(ctx context.Context, userID snowflake.ID) (string, error) {
	r.mu.Lock()
	r.calls = append(r.calls, userID)
	fn := r.fn
	r.mu.Unlock()

	defer func() { r.fired <- userID }()
	if fn != nil {
		return fn(ctx, userID)
	}
	return "Total messages sent: 0", nil
}

type fakeStore struct {
	schedules []scheduledomain.JobSchedule
	err       error
}

func (s *fakeStore) ListAll(context.Context) ([]scheduledomain.JobSchedule, error) {
	return s.schedules, s.err
}

func newTestScheduler(t *testing.T, runner Runner, store ScheduleStore) (*Scheduler, *observer.ObservedLogs) {
	t.Helper()

	core, logs := observer.New(zapcore.DebugLevel)
	sched, err := New(Params{
		Log:    zap.New(core),
		Runner: runner,
		Store:  store,
		Config: Config{Timezone: "UTC", StopGrace: time.Second},
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = sched.StopAsync(context.Background()) })
	return sched, logs
}

func schedule(id int64, cron string) *scheduledomain.JobSchedule {
	return &scheduledomain.JobSchedule{ID: snowflake.ID(id), UserID: snowflake.ID(id * 10), CronExpression: cron}
}

func errorEntries(logs *observer.ObservedLogs) []observer.LoggedEntry {
	return logs.Filter(func(e observer.LoggedEntry) bool { return e.Level == zapcore.ErrorLevel }).All()
}

func TestNilScheduleIsRejected(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()

	assert.ErrorIs(t, sched.ScheduleJobAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.UpdateJobScheduleAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.ReScheduleJobAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.DeleteJobAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.RemoveJobAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.PauseJobAsync(ctx, nil), ErrNilSchedule)
	assert.ErrorIs(t, sched.ResumeJobAsync(ctx, nil), ErrNilSchedule)
}

func TestStartAsyncSkipsInvalidCron(t *testing.T) {
	valid := *schedule(1, rarely)
	invalid := *schedule(2, "every tuesday-ish")
	sched, logs := newTestScheduler(t, newFakeRunner(), &fakeStore{
		schedules: []scheduledomain.JobSchedule{invalid, valid},
	})

	require.NoError(t, sched.StartAsync(context.Background()))

	assert.True(t, sched.IsStarted())
	assert.Equal(t, StateScheduled, sched.Status(valid.ID))
	assert.Equal(t, StateAbsent, sched.Status(invalid.ID))
	assert.Len(t, sched.engine.jobs, 1)
	assert.Len(t, sched.engine.cron.Entries(), 1)

	errs := errorEntries(logs)
	require.Len(t, errs, 1)
	assert.Equal(t, "scheduler.schedule.invalid_cron", errs[0].Message)
	assert.Equal(t, invalid.ID.String(), errs[0].ContextMap()["schedule_id"])
}

func TestStartAsyncRestoresPausedSchedules(t *testing.T) {
	paused := *schedule(3, rarely)
	paused.Paused = true
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{
		schedules: []scheduledomain.JobSchedule{paused},
	})

	require.NoError(t, sched.StartAsync(context.Background()))
	assert.Equal(t, StatePaused, sched.Status(paused.ID))
	assert.Empty(t, sched.engine.cron.Entries())
}

func TestStartAsyncStoreFailure(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{err: errors.New("db down")})

	err := sched.StartAsync(context.Background())
	assert.ErrorContains(t, err, "db down")
	assert.False(t, sched.IsStarted())
}

func TestStartAsyncDoesNotDoubleStart(t *testing.T) {
	s := *schedule(4, rarely)
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{schedules: []scheduledomain.JobSchedule{s}})
	ctx := context.Background()

	require.NoError(t, sched.StartAsync(ctx))
	first := sched.engine
	require.NoError(t, sched.StartAsync(ctx))

	assert.Same(t, first, sched.engine)
	assert.Len(t, sched.engine.cron.Entries(), 1)
}

func TestScheduleJobStartsEngine(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()

	assert.True(t, sched.IsShutdown())
	require.NoError(t, sched.ScheduleJobAsync(ctx, schedule(5, rarely)))
	assert.True(t, sched.IsStarted())
	assert.Equal(t, StateScheduled, sched.Status(5))

	err := sched.ScheduleJobAsync(ctx, schedule(5, rarely))
	assert.ErrorIs(t, err, ErrJobExists)
	assert.Len(t, sched.engine.cron.Entries(), 1)

	err = sched.ScheduleJobAsync(ctx, schedule(6, "61 * * * *"))
	assert.ErrorIs(t, err, ErrInvalidCron)
	assert.Equal(t, StateAbsent, sched.Status(6))
}

func TestPauseResumeDeleteTransitions(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()
	s := schedule(7, rarely)

	assert.Equal(t, StateAbsent, sched.Status(s.ID))
	require.NoError(t, sched.ScheduleJobAsync(ctx, s))
	assert.Equal(t, StateScheduled, sched.Status(s.ID))

	require.NoError(t, sched.PauseJobAsync(ctx, s))
	assert.Equal(t, StatePaused, sched.Status(s.ID))
	assert.Empty(t, sched.engine.cron.Entries())

	require.NoError(t, sched.PauseJobAsync(ctx, s))
	assert.Equal(t, StatePaused, sched.Status(s.ID))

	require.NoError(t, sched.ResumeJobAsync(ctx, s))
	assert.Equal(t, StateScheduled, sched.Status(s.ID))
	assert.Len(t, sched.engine.cron.Entries(), 1)

	require.NoError(t, sched.DeleteJobAsync(ctx, s))
	assert.Equal(t, StateAbsent, sched.Status(s.ID))
	assert.Empty(t, sched.engine.cron.Entries())

	assert.ErrorIs(t, sched.PauseJobAsync(ctx, s), ErrJobNotFound)
	assert.ErrorIs(t, sched.ResumeJobAsync(ctx, s), ErrJobNotFound)
}

func TestDeletingMissingJobIsNoop(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()

	require.NoError(t, sched.DeleteJobAsync(ctx, schedule(8, rarely)))
	require.NoError(t, sched.ScheduleJobAsync(ctx, schedule(9, rarely)))
	require.NoError(t, sched.RemoveJobAsync(ctx, schedule(8, rarely)))
	assert.Equal(t, StateScheduled, sched.Status(9))
}

func TestUpdateJobSchedule(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()

	s := schedule(10, rarely)
	require.NoError(t, sched.UpdateJobScheduleAsync(ctx, s))
	assert.Equal(t, StateScheduled, sched.Status(s.ID))

	require.NoError(t, sched.PauseJobAsync(ctx, s))
	s.CronExpression = "0 30 9 * * MON-FRI"
	require.NoError(t, sched.UpdateJobScheduleAsync(ctx, s))
	assert.Equal(t, StateScheduled, sched.Status(s.ID))
	assert.Len(t, sched.engine.cron.Entries(), 1)
	assert.Equal(t, "0 30 9 * * MON-FRI", sched.engine.jobs[s.JobKey()].schedule.CronExpression)

	bad := *s
	bad.CronExpression = "nope"
	assert.ErrorIs(t, sched.ReScheduleJobAsync(ctx, &bad), ErrInvalidCron)
	assert.Equal(t, StateScheduled, sched.Status(s.ID))
}

func TestTriggerNowRunsDispatch(t *testing.T) {
	runner := newFakeRunner()
	sched, _ := newTestScheduler(t, runner, &fakeStore{})
	ctx := context.Background()
	s := schedule(11, rarely)

	assert.ErrorIs(t, sched.TriggerNow(ctx, s.ID), ErrJobNotFound)

	require.NoError(t, sched.ScheduleJobAsync(ctx, s))
	require.NoError(t, sched.TriggerNow(ctx, s.ID))

	select {
	case userID := <-runner.fired:
		assert.Equal(t, s.UserID, userID)
	case <-time.After(2 * time.Second):
		t.Fatal("dispatch was not triggered")
	}
}

func TestJobBoundarySwallowsFailures(t *testing.T) {
	runner := newFakeRunner()
	runner.fn = func(ctx context.Context, userID snowflake.ID) (string, error) {
		return "", &dispatch.RunError{UserID: userID, Op: "bulk_insert", Err: fmt.Errorf("%w: boom", dispatch.ErrOperationFailed)}
	}
	sched, logs := newTestScheduler(t, runner, &fakeStore{})
	ctx := context.Background()
	s := schedule(12, rarely)

	require.NoError(t, sched.ScheduleJobAsync(ctx, s))
	require.NoError(t, sched.TriggerNow(ctx, s.ID))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("scheduler.job.failed").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, sched.IsStarted())
	assert.Equal(t, StateScheduled, sched.Status(s.ID))
}

func TestJobBoundaryRecoversPanics(t *testing.T) {
	runner := newFakeRunner()
	runner.fn = func(context.Context, snowflake.ID) (string, error) {
		panic("decoder exploded")
	}
	sched, logs := newTestScheduler(t, runner, &fakeStore{})
	ctx := context.Background()
	s := schedule(13, rarely)

	require.NoError(t, sched.ScheduleJobAsync(ctx, s))
	require.NoError(t, sched.TriggerNow(ctx, s.ID))

	require.Eventually(t, func() bool {
		return logs.FilterMessage("scheduler.cron.panic").Len() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, sched.IsStarted())
}

func TestStopAsync(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx := context.Background()

	require.NoError(t, sched.StopAsync(ctx))

	require.NoError(t, sched.ScheduleJobAsync(ctx, schedule(14, rarely)))
	require.NoError(t, sched.StopAsync(ctx))
	assert.True(t, sched.IsShutdown())
	assert.Equal(t, StateAbsent, sched.Status(14))
	require.NoError(t, sched.StopAsync(ctx))

	require.NoError(t, sched.ScheduleJobAsync(ctx, schedule(15, rarely)))
	assert.True(t, sched.IsStarted())
	assert.Equal(t, StateScheduled, sched.Status(15))
}

func TestStopAsyncCancelsRunningJobs(t *testing.T) {
	runner := newFakeRunner()
	started := make(chan struct{})
	runner.fn = func(ctx context.Context, _ snowflake.ID) (string, error) {
		close(started)
		<-ctx.Done()
		return "", ctx.Err()
	}
	core, _ := observer.New(zapcore.DebugLevel)
	sched, err := New(Params{
		Log:    zap.New(core),
		Runner: runner,
		Store:  &fakeStore{},
		Config: Config{StopGrace: 20 * time.Millisecond},
	})
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, sched.ScheduleJobAsync(ctx, schedule(16, rarely)))
	require.NoError(t, sched.TriggerNow(ctx, 16))
	<-started

	require.NoError(t, sched.StopAsync(ctx))
	select {
	case <-runner.fired:
	case <-time.After(2 * time.Second):
		t.Fatal("running job was not canceled")
	}
}

func TestCanceledContextIsRejected(t *testing.T) {
	sched, _ := newTestScheduler(t, newFakeRunner(), &fakeStore{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.ErrorIs(t, sched.ScheduleJobAsync(ctx, schedule(17, rarely)), context.Canceled)
	assert.Equal(t, StateAbsent, sched.Status(17))
}

func TestNewValidatesParams(t *testing.T) {
	_, err := New(Params{})
	assert.ErrorIs(t, err, ErrInvalidConfig)

	_, err = New(Params{
		Log:    zap.NewNop(),
		Runner: newFakeRunner(),
		Store:  &fakeStore{},
		Config: Config{Timezone: "Mars/Olympus_Mons"},
	})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestParseCron(t *testing.T) {
	for _, expr := range []string{
		"*/5 * * * *",
		"0 0 12 * * ?",
		"0 0 12 ? * MON-FRI",
		"0 0 12 * * ? *",
		"@daily",
	} {
		assert.NoError(t, ValidateCron(expr), expr)
	}
	for _, expr := range []string{
		"",
		"not a cron",
		"0 0 12 * * ? 2030",
		"0 0 25 * * *",
	} {
		assert.ErrorIs(t, ValidateCron(expr), ErrInvalidCron, expr)
	}
}
