package domain

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicereminder/pkg/db/pagination"
)

type ListInvoiceRequest struct {
	UserID    string
	PageToken string
	PageSize  int32
	DueFrom   *time.Time
	DueTo     *time.Time
}

type ListInvoiceFilter struct {
	DueFrom *time.Time
	DueTo   *time.Time
}

type ListInvoiceResponse struct {
	pagination.PageInfo
	Invoices []Invoice `json:"invoices"`
}

// UpdateInvoiceRequest carries administrative edits. Nil fields are unchanged.
type UpdateInvoiceRequest struct {
	ID          string
	Bank        *string
	Beneficiary *string
	Amount      *decimal.Decimal
	DueDate     *time.Time
}

type Service interface {
	BulkInsert(ctx context.Context, invoices []Invoice) (int, error)
	List(ctx context.Context, req ListInvoiceRequest) (ListInvoiceResponse, error)
	GetByID(ctx context.Context, id string) (Invoice, error)
	Update(ctx context.Context, req UpdateInvoiceRequest) (Invoice, error)
	Delete(ctx context.Context, id string) error
}

var (
	ErrInvalidID     = errors.New("invalid_id")
	ErrInvalidUser   = errors.New("invalid_user")
	ErrInvalidAmount = errors.New("invalid_amount")
	ErrNotFound      = errors.New("not_found")
)
