package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"github.com/smallbiznis/invoicereminder/internal/scheduler"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Triggers is the slice of the scheduler this service drives.
type Triggers interface {
	ScheduleJobAsync(ctx context.Context, schedule *domain.JobSchedule) error
	UpdateJobScheduleAsync(ctx context.Context, schedule *domain.JobSchedule) error
	DeleteJobAsync(ctx context.Context, schedule *domain.JobSchedule) error
	PauseJobAsync(ctx context.Context, schedule *domain.JobSchedule) error
	ResumeJobAsync(ctx context.Context, schedule *domain.JobSchedule) error
	TriggerNow(ctx context.Context, scheduleID snowflake.ID) error
}

type Params struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	GenID    *snowflake.Node
	Clock    clock.Clock
	Repo     domain.Repository
	Triggers Triggers
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	genID    *snowflake.Node
	clock    clock.Clock
	repo     domain.Repository
	triggers Triggers
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("schedule.service"),
		genID:    p.GenID,
		clock:    c,
		repo:     p.Repo,
		triggers: p.Triggers,
	}
}

// Create persists the schedule and registers its trigger. Nothing is stored
// when the trigger cannot be registered, and no trigger survives a failed
// commit.
func (s *Service) Create(ctx context.Context, req domain.CreateScheduleRequest) (domain.JobSchedule, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.JobSchedule{}, domain.ErrInvalidUser
	}
	expr, err := validateCron(req.CronExpression)
	if err != nil {
		return domain.JobSchedule{}, err
	}

	now := s.clock.Now().UTC()
	schedule := domain.JobSchedule{
		ID:             s.genID.Generate(),
		UserID:         userID,
		CronExpression: expr,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	registered := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, &schedule); err != nil {
			return err
		}
		if err := s.triggers.ScheduleJobAsync(ctx, &schedule); err != nil {
			return err
		}
		registered = true
		return nil
	})
	if err != nil {
		if registered {
			s.dropTrigger(ctx, &schedule)
		}
		return domain.JobSchedule{}, err
	}

	s.log.Info("schedule.created",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("user_id", userID.String()),
		zap.String("cron", expr),
	)
	return schedule, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.JobSchedule, error) {
	scheduleID, err := parseID(id)
	if err != nil {
		return domain.JobSchedule{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, scheduleID)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	if item == nil {
		return domain.JobSchedule{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) ListByUser(ctx context.Context, userID string) ([]domain.JobSchedule, error) {
	uid, err := parseID(userID)
	if err != nil {
		return nil, domain.ErrInvalidUser
	}

	items, err := s.repo.ListByUser(ctx, s.db, uid)
	if err != nil {
		return nil, err
	}
	schedules := make([]domain.JobSchedule, 0, len(items))
	for _, item := range items {
		if item != nil {
			schedules = append(schedules, *item)
		}
	}
	return schedules, nil
}

// Update swaps the cron expression and re-registers the trigger. A paused
// schedule stays paused.
func (s *Service) Update(ctx context.Context, req domain.UpdateScheduleRequest) (domain.JobSchedule, error) {
	schedule, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	expr, err := validateCron(req.CronExpression)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	previous := schedule
	schedule.CronExpression = expr
	schedule.UpdatedAt = s.clock.Now().UTC()

	replaced := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Update(ctx, tx, &schedule); err != nil {
			return err
		}
		if err := s.triggers.UpdateJobScheduleAsync(ctx, &schedule); err != nil {
			return err
		}
		replaced = true
		if schedule.Paused {
			return s.triggers.PauseJobAsync(ctx, &schedule)
		}
		return nil
	})
	if err != nil {
		if replaced {
			s.restoreTrigger(ctx, &previous)
		}
		return domain.JobSchedule{}, err
	}

	s.log.Info("schedule.updated",
		zap.String("schedule_id", schedule.ID.String()),
		zap.String("cron", expr),
	)
	return schedule, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, schedule.ID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	if err := s.triggers.DeleteJobAsync(ctx, &schedule); err != nil {
		return err
	}

	s.log.Info("schedule.deleted", zap.String("schedule_id", schedule.ID.String()))
	return nil
}

// Pause persists the flag first so a restart keeps the schedule paused even
// when no live trigger exists.
func (s *Service) Pause(ctx context.Context, id string) (domain.JobSchedule, error) {
	schedule, err := s.setPaused(ctx, id, true)
	if err != nil {
		return domain.JobSchedule{}, err
	}

	err = s.triggers.PauseJobAsync(ctx, &schedule)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		s.log.Warn("schedule.pause.no_trigger", zap.String("schedule_id", schedule.ID.String()))
		return schedule, nil
	}
	if err != nil {
		return domain.JobSchedule{}, err
	}
	return schedule, nil
}

func (s *Service) Resume(ctx context.Context, id string) (domain.JobSchedule, error) {
	schedule, err := s.setPaused(ctx, id, false)
	if err != nil {
		return domain.JobSchedule{}, err
	}

	err = s.triggers.ResumeJobAsync(ctx, &schedule)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		err = s.triggers.ScheduleJobAsync(ctx, &schedule)
	}
	if err != nil {
		return domain.JobSchedule{}, err
	}
	return schedule, nil
}

// RunNow fires the schedule's dispatch once without touching its timing.
func (s *Service) RunNow(ctx context.Context, id string) error {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}

	err = s.triggers.TriggerNow(ctx, schedule.ID)
	if errors.Is(err, scheduler.ErrJobNotFound) {
		return domain.ErrNotScheduled
	}
	if err != nil {
		return err
	}
	s.log.Info("schedule.run_now", zap.String("schedule_id", schedule.ID.String()))
	return nil
}

func (s *Service) setPaused(ctx context.Context, id string, paused bool) (domain.JobSchedule, error) {
	schedule, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.JobSchedule{}, err
	}
	if schedule.Paused == paused {
		return schedule, nil
	}
	schedule.Paused = paused
	schedule.UpdatedAt = s.clock.Now().UTC()
	if err := s.repo.Update(ctx, s.db, &schedule); err != nil {
		return domain.JobSchedule{}, err
	}
	return schedule, nil
}

// dropTrigger removes a trigger whose row never committed.
func (s *Service) dropTrigger(ctx context.Context, schedule *domain.JobSchedule) {
	ctx = context.WithoutCancel(ctx)
	if err := s.triggers.DeleteJobAsync(ctx, schedule); err != nil && !errors.Is(err, scheduler.ErrJobNotFound) {
		s.log.Error("schedule.trigger.rollback_failed",
			zap.String("schedule_id", schedule.ID.String()),
			zap.Error(err),
		)
	}
}

// restoreTrigger puts the trigger back to the last committed state of the
// schedule. If that fails the trigger is removed so it cannot fire on a cron
// the store does not hold.
func (s *Service) restoreTrigger(ctx context.Context, previous *domain.JobSchedule) {
	ctx = context.WithoutCancel(ctx)
	err := s.triggers.UpdateJobScheduleAsync(ctx, previous)
	if err == nil && previous.Paused {
		err = s.triggers.PauseJobAsync(ctx, previous)
	}
	if err == nil {
		return
	}
	s.log.Warn("schedule.trigger.restore_failed",
		zap.String("schedule_id", previous.ID.String()),
		zap.Error(err),
	)
	s.dropTrigger(ctx, previous)
}

func validateCron(value string) (string, error) {
	expr := strings.TrimSpace(value)
	if err := scheduler.ValidateCron(expr); err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrInvalidCron, err)
	}
	return expr, nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
