package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/schedule/domain"
	"gorm.io/gorm"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, schedule *domain.JobSchedule) error {
	return db.WithContext(ctx).Create(schedule).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.JobSchedule, error) {
	var schedule domain.JobSchedule
	if err := db.WithContext(ctx).Where("id = ?", id).First(&schedule).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &schedule, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*domain.JobSchedule, error) {
	var schedules []*domain.JobSchedule
	err := db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("id asc").
		Find(&schedules).Error
	return schedules, err
}

func (r *repo) ListAll(ctx context.Context, db *gorm.DB) ([]*domain.JobSchedule, error) {
	var schedules []*domain.JobSchedule
	err := db.WithContext(ctx).Order("id asc").Find(&schedules).Error
	return schedules, err
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, schedule *domain.JobSchedule) error {
	return db.WithContext(ctx).
		Model(&domain.JobSchedule{}).
		Where("id = ?", schedule.ID).
		Updates(map[string]any{
			"cron_expression": schedule.CronExpression,
			"paused":          schedule.Paused,
			"updated_at":      schedule.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.JobSchedule{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// Store exposes the persisted schedules to the scheduler at startup.
type Store struct {
	db   *gorm.DB
	repo domain.Repository
}

func NewStore(db *gorm.DB, repo domain.Repository) *Store {
	return &Store{db: db, repo: repo}
}

func (s *Store) ListAll(ctx context.Context) ([]domain.JobSchedule, error) {
	items, err := s.repo.ListAll(ctx, s.db)
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
