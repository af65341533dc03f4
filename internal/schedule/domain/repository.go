package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, schedule *JobSchedule) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*JobSchedule, error)
	ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID) ([]*JobSchedule, error)
	ListAll(ctx context.Context, db *gorm.DB) ([]*JobSchedule, error)
	Update(ctx context.Context, db *gorm.DB, schedule *JobSchedule) error
	Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error)
}
