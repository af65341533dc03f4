package domain

import (
	"context"
	"errors"
)

type CreateScheduleRequest struct {
	UserID         string
	CronExpression string
}

type UpdateScheduleRequest struct {
	ID             string
	CronExpression string
}

type Service interface {
	Create(ctx context.Context, req CreateScheduleRequest) (JobSchedule, error)
	GetByID(ctx context.Context, id string) (JobSchedule, error)
	ListByUser(ctx context.Context, userID string) ([]JobSchedule, error)
	Update(ctx context.Context, req UpdateScheduleRequest) (JobSchedule, error)
	Delete(ctx context.Context, id string) error
	Pause(ctx context.Context, id string) (JobSchedule, error)
	Resume(ctx context.Context, id string) (JobSchedule, error)
	RunNow(ctx context.Context, id string) error
}

var (
	ErrInvalidID    = errors.New("invalid_id")
	ErrInvalidUser  = errors.New("invalid_user")
	ErrInvalidCron  = errors.New("invalid_cron")
	ErrNotFound     = errors.New("not_found")
	ErrNotScheduled = errors.New("not_scheduled")
)
