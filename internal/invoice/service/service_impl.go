package service

import (
	"context"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  domain.Repository
}

func New(p Params) domain.Service {
	c := p.Clock
	if c == nil {
		c = clock.SystemClock{}
	}
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("invoice.service"),
		genID: p.GenID,
		clock: c,
		repo:  p.Repo,
	}
}

// BulkInsert persists a dispatch batch. Invoices without an id get one.
func (s *Service) BulkInsert(ctx context.Context, invoices []domain.Invoice) (int, error) {
	if len(invoices) == 0 {
		return 0, nil
	}

	now := s.clock.Now().UTC()
	rows := make([]*domain.Invoice, 0, len(invoices))
	for i := range invoices {
		inv := invoices[i]
		if inv.UserID == 0 {
			return 0, domain.ErrInvalidUser
		}
		if inv.ID == 0 {
			inv.ID = s.genID.Generate()
		}
		if inv.Metadata == nil {
			inv.Metadata = datatypes.JSONMap{}
		}
		inv.CreatedAt = now
		inv.UpdatedAt = now
		rows = append(rows, &inv)
	}

	count, err := s.repo.BulkInsert(ctx, s.db, rows)
	if err != nil {
		return 0, err
	}
	s.log.Debug("invoice.bulk_insert", zap.Int("count", count))
	return count, nil
}

func (s *Service) List(ctx context.Context, req domain.ListInvoiceRequest) (domain.ListInvoiceResponse, error) {
	userID, err := parseID(req.UserID)
	if err != nil {
		return domain.ListInvoiceResponse{}, domain.ErrInvalidUser
	}

	pageSize := int(req.PageSize)
	if pageSize <= 0 {
		pageSize = 50
	}

	items, err := s.repo.ListByUser(ctx, s.db, userID, domain.ListInvoiceFilter{
		DueFrom: req.DueFrom,
		DueTo:   req.DueTo,
	}, pagination.Pagination{
		PageToken: req.PageToken,
		PageSize:  pageSize,
	})
	if err != nil {
		return domain.ListInvoiceResponse{}, err
	}

	pageInfo := pagination.BuildCursorPageInfo(items, pageSize, func(inv *domain.Invoice) string {
		token, err := pagination.EncodeCursor(pagination.Cursor{
			ID:        inv.ID.String(),
			CreatedAt: inv.CreatedAt.Format(time.RFC3339),
		})
		if err != nil {
			return ""
		}
		return token
	})
	if len(items) > pageSize {
		items = items[:pageSize]
	}

	invoices := make([]domain.Invoice, 0, len(items))
	for _, item := range items {
		if item == nil {
			continue
		}
		invoices = append(invoices, *item)
	}

	resp := domain.ListInvoiceResponse{Invoices: invoices}
	if pageInfo != nil {
		resp.PageInfo = *pageInfo
	}
	return resp, nil
}

func (s *Service) GetByID(ctx context.Context, id string) (domain.Invoice, error) {
	invoiceID, err := parseID(id)
	if err != nil {
		return domain.Invoice{}, err
	}

	item, err := s.repo.FindByID(ctx, s.db, invoiceID)
	if err != nil {
		return domain.Invoice{}, err
	}
	if item == nil {
		return domain.Invoice{}, domain.ErrNotFound
	}
	return *item, nil
}

func (s *Service) Update(ctx context.Context, req domain.UpdateInvoiceRequest) (domain.Invoice, error) {
	invoice, err := s.GetByID(ctx, req.ID)
	if err != nil {
		return domain.Invoice{}, err
	}

	if req.Bank != nil {
		invoice.Bank = strings.TrimSpace(*req.Bank)
	}
	if req.Beneficiary != nil {
		invoice.Beneficiary = strings.TrimSpace(*req.Beneficiary)
	}
	if req.Amount != nil {
		if req.Amount.IsNegative() {
			return domain.Invoice{}, domain.ErrInvalidAmount
		}
		invoice.Amount = req.Amount.Round(2)
	}
	if req.DueDate != nil {
		invoice.DueDate = datatypes.Date(*req.DueDate)
	}
	invoice.UpdatedAt = s.clock.Now().UTC()

	if err := s.repo.Update(ctx, s.db, &invoice); err != nil {
		return domain.Invoice{}, err
	}
	return invoice, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	invoiceID, err := parseID(id)
	if err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, s.db, invoiceID)
	if err != nil {
		return err
	}
	if !deleted {
		return domain.ErrNotFound
	}
	return nil
}

func parseID(value string) (snowflake.ID, error) {
	id, err := snowflake.ParseString(strings.TrimSpace(value))
	if err != nil || id == 0 {
		return 0, domain.ErrInvalidID
	}
	return id, nil
}
