package service

import (
	"context"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicereminder/internal/clock"
	"github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/internal/invoice/repository"
	"github.com/smallbiznis/invoicereminder/pkg/db/dbtest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/datatypes"
)

func newTestService(t *testing.T) (*Service, *snowflake.Node) {
	t.Helper()

	db := dbtest.Open(t, &domain.Invoice{})
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	svc := New(Params{
		DB:    db,
		Log:   zaptest.NewLogger(t),
		GenID: node,
		Clock: clock.NewFakeClock(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)),
		Repo:  repository.Provide(),
	})
	return svc.(*Service), node
}

func sampleInvoice(userID snowflake.ID, amount string) domain.Invoice {
	return domain.Invoice{
		UserID:      userID,
		Bank:        "[341] - Itaú",
		Beneficiary: "Energia",
		Amount:      decimal.RequireFromString(amount),
		DueDate:     datatypes.Date(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)),
		Barcode:     "34191090081429288039120803050002410770000016165",
	}
}

func TestBulkInsertAssignsIDs(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	count, err := svc.BulkInsert(ctx, []domain.Invoice{
		sampleInvoice(userID, "161.65"),
		sampleInvoice(userID, "27.54"),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	resp, err := svc.List(ctx, domain.ListInvoiceRequest{UserID: userID.String()})
	require.NoError(t, err)
	require.Len(t, resp.Invoices, 2)
	for _, inv := range resp.Invoices {
		assert.NotZero(t, inv.ID)
		assert.Equal(t, userID, inv.UserID)
	}
	assert.False(t, resp.HasMore)
}

func TestBulkInsertRejectsMissingUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.BulkInsert(context.Background(), []domain.Invoice{sampleInvoice(0, "1.00")})
	assert.ErrorIs(t, err, domain.ErrInvalidUser)
}

func TestBulkInsertEmptyBatch(t *testing.T) {
	svc, _ := newTestService(t)

	count, err := svc.BulkInsert(context.Background(), nil)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestListPaginates(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	batch := make([]domain.Invoice, 0, 3)
	for i := 0; i < 3; i++ {
		batch = append(batch, sampleInvoice(userID, "10.00"))
	}
	_, err := svc.BulkInsert(ctx, batch)
	require.NoError(t, err)

	first, err := svc.List(ctx, domain.ListInvoiceRequest{UserID: userID.String(), PageSize: 2})
	require.NoError(t, err)
	require.Len(t, first.Invoices, 2)
	require.True(t, first.HasMore)

	second, err := svc.List(ctx, domain.ListInvoiceRequest{UserID: userID.String(), PageSize: 2, PageToken: first.NextPageToken})
	require.NoError(t, err)
	require.Len(t, second.Invoices, 1)
	assert.False(t, second.HasMore)
	assert.NotEqual(t, first.Invoices[0].ID, second.Invoices[0].ID)
	assert.NotEqual(t, first.Invoices[1].ID, second.Invoices[0].ID)
}

func TestUpdateAndDelete(t *testing.T) {
	svc, node := newTestService(t)
	ctx := context.Background()
	userID := node.Generate()

	inv := sampleInvoice(userID, "27.54")
	inv.ID = node.Generate()
	_, err := svc.BulkInsert(ctx, []domain.Invoice{inv})
	require.NoError(t, err)

	payee := "Water Co"
	amount := decimal.RequireFromString("30.10")
	updated, err := svc.Update(ctx, domain.UpdateInvoiceRequest{
		ID:          inv.ID.String(),
		Beneficiary: &payee,
		Amount:      &amount,
	})
	require.NoError(t, err)
	assert.Equal(t, "Water Co", updated.Beneficiary)

	stored, err := svc.GetByID(ctx, inv.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Water Co", stored.Beneficiary)
	assert.True(t, stored.Amount.Equal(amount), "amount %s", stored.Amount)

	negative := decimal.RequireFromString("-1")
	_, err = svc.Update(ctx, domain.UpdateInvoiceRequest{ID: inv.ID.String(), Amount: &negative})
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	require.NoError(t, svc.Delete(ctx, inv.ID.String()))
	assert.ErrorIs(t, svc.Delete(ctx, inv.ID.String()), domain.ErrNotFound)

	_, err = svc.GetByID(ctx, inv.ID.String())
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = svc.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, domain.ErrInvalidID)
}
