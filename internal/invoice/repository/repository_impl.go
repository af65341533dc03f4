package repository

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/pkg/db/option"
	"github.com/smallbiznis/invoicereminder/pkg/db/pagination"
	"gorm.io/gorm"
)

const insertBatchSize = 100

type repo struct{}

func Provide() domain.Repository {
	return &repo{}
}

// BulkInsert writes every invoice in one transaction.
func (r *repo) BulkInsert(ctx context.Context, db *gorm.DB, invoices []*domain.Invoice) (int, error) {
	if len(invoices) == 0 {
		return 0, nil
	}
	err := db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.CreateInBatches(invoices, insertBatchSize).Error
	})
	if err != nil {
		return 0, err
	}
	return len(invoices), nil
}

func (r *repo) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Invoice, error) {
	var invoice domain.Invoice
	err := db.WithContext(ctx).Where("id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &invoice, nil
}

func (r *repo) ListByUser(ctx context.Context, db *gorm.DB, userID snowflake.ID, filter domain.ListInvoiceFilter, page pagination.Pagination) ([]*domain.Invoice, error) {
	var invoices []*domain.Invoice
	stmt := db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("user_id = ?", userID)
	if filter.DueFrom != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "due_date", Operator: option.GTE, Value: *filter.DueFrom}).Apply(stmt)
	}
	if filter.DueTo != nil {
		stmt = option.ApplyOperator(option.Condition{Field: "due_date", Operator: option.LTE, Value: *filter.DueTo}).Apply(stmt)
	}
	stmt = option.ApplyPagination(page).Apply(stmt)
	if err := stmt.Order("id desc").Find(&invoices).Error; err != nil {
		return nil, err
	}
	return invoices, nil
}

func (r *repo) Update(ctx context.Context, db *gorm.DB, invoice *domain.Invoice) error {
	return db.WithContext(ctx).
		Model(&domain.Invoice{}).
		Where("id = ?", invoice.ID).
		Updates(map[string]any{
			"bank":        invoice.Bank,
			"beneficiary": invoice.Beneficiary,
			"amount":      invoice.Amount,
			"due_date":    invoice.DueDate,
			"updated_at":  invoice.UpdatedAt,
		}).Error
}

func (r *repo) Delete(ctx context.Context, db *gorm.DB, id snowflake.ID) (bool, error) {
	res := db.WithContext(ctx).Where("id = ?", id).Delete(&domain.Invoice{})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}
