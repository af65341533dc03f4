package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/user/domain"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

func (r *repo) Insert(ctx context.Context, db *gorm.DB, user *domain.User) error {
	return db.WithContext(ctx).Omit(clause.Associations).Create(user).Error
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	return r.find(db.WithContext(ctx), id)
}

func (r *repo) FindWithRelations(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.User, error) {
	stmt := db.WithContext(ctx).
		Preload("EmailAuthTokens", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") }).
		Preload("ScanEmailDefinitions", func(tx *gorm.DB) *gorm.DB { return tx.Order("id asc") })
	return r.find(stmt, id)
}

func (r *repo) find(stmt *gorm.DB, id snowflake.ID) (*domain.User, error) {
	var user domain.User
	if err := stmt.Where("id = ?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &user, nil
}

// UpsertToken keeps one token row per user and provider.
func (r *repo) UpsertToken(ctx context.Context, db *gorm.DB, token *domain.EmailAuthToken) error {
	return db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing domain.EmailAuthToken
		err := tx.Where("user_id = ? AND provider = ?", token.UserID, token.Provider).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			return tx.Create(token).Error
		case err != nil:
			return err
		}
		token.ID = existing.ID
		token.CreatedAt = existing.CreatedAt
		return tx.Model(&domain.EmailAuthToken{}).Where("id = ?", existing.ID).Updates(map[string]any{
			"access_token":  token.AccessToken,
			"refresh_token": token.RefreshToken,
			"token_type":    token.TokenType,
			"expiry":        token.Expiry,
			"updated_at":    token.UpdatedAt,
		}).Error
	})
}

func (r *repo) UpdateTokenSecrets(ctx context.Context, db *gorm.DB, token *domain.EmailAuthToken) error {
	return db.WithContext(ctx).Model(&domain.EmailAuthToken{}).Where("id = ?", token.ID).Updates(map[string]any{
		"access_token":  token.AccessToken,
		"refresh_token": token.RefreshToken,
		"expiry":        token.Expiry,
		"updated_at":    token.UpdatedAt,
	}).Error
}
