package domain

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

type Repository interface {
	Insert(ctx context.Context, db *gorm.DB, user *User) error
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	// FindWithRelations loads the user with tokens and scan definitions.
	FindWithRelations(ctx context.Context, db *gorm.DB, id snowflake.ID) (*User, error)
	UpsertToken(ctx context.Context, db *gorm.DB, token *EmailAuthToken) error
	UpdateTokenSecrets(ctx context.Context, db *gorm.DB, token *EmailAuthToken) error
}
