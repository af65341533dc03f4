package dispatch

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/golang/mock/gomock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/invoicereminder/internal/barcode"
	"github.com/smallbiznis/invoicereminder/internal/config"
	"github.com/smallbiznis/invoicereminder/internal/dispatch/mocks"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/internal/lock"
	obsmetrics "github.com/smallbiznis/invoicereminder/internal/observability/metrics"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/datatypes"
)

type harness struct {
	svc         *Service
	users       *mocks.MockUserStore
	attachments *mocks.MockAttachmentFetcher
	chat        *mocks.MockChatSender
	invoices    *mocks.MockInvoiceStore
	extractor   *mocks.MockExtractor
	locker      *lock.MemoryLocker
	logs        *observer.ObservedLogs
	node        *snowflake.Node
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	ctrl := gomock.NewController(t)
	node, err := snowflake.NewNode(7)
	require.NoError(t, err)
	core, logs := observer.New(zapcore.DebugLevel)

	h := &harness{
		users:       mocks.NewMockUserStore(ctrl),
		attachments: mocks.NewMockAttachmentFetcher(ctrl),
		chat:        mocks.NewMockChatSender(ctrl),
		invoices:    mocks.NewMockInvoiceStore(ctrl),
		extractor:   mocks.NewMockExtractor(ctrl),
		locker:      lock.NewMemoryLocker(nil),
		logs:        logs,
		node:        node,
	}
	h.svc = New(Params{
		Log:          zap.New(core),
		Config:       config.Config{DispatchLockTTL: time.Minute},
		GenID:        node,
		Users:        h.users,
		Attachments:  h.attachments,
		Chat:         h.chat,
		Invoices:     h.invoices,
		Extractor:    h.extractor,
		Locker:       h.locker,
		Notification: config.NewStaticNotificationConfigHolder(config.DefaultNotificationConfig()),
		Metrics:      obsmetrics.NewSchedulerMetrics(prometheus.NewRegistry(), obsmetrics.Config{ServiceName: "test"}),
	})
	return h
}

func (h *harness) user() *userdomain.User {
	id := h.node.Generate()
	return &userdomain.User{
		ID:              id,
		Name:            "Ana",
		Email:           "ana@example.com",
		ChatID:          4242,
		EmailAuthTokens: []userdomain.EmailAuthToken{{ID: h.node.Generate(), UserID: id, Provider: "google", AccessToken: "enc-access"}},
		ScanEmailDefinitions: []userdomain.ScanEmailDefinition{
			{ID: h.node.Generate(), UserID: id, Sender: "conta@energia.com", Beneficiary: "Energia", DocumentType: barcode.DocumentTypeAccountInvoice},
			{ID: h.node.Generate(), UserID: id, Sender: "boleto@net.com", Beneficiary: "Internet", DocumentType: barcode.DocumentTypeBankInvoice},
		},
	}
}

func decoded(bank, payee, amount string) invoicedomain.Invoice {
	return invoicedomain.Invoice{
		ID:          99,
		UserID:      12345,
		Bank:        bank,
		Beneficiary: payee,
		Amount:      decimal.RequireFromString(amount),
		DueDate:     datatypes.Date(time.Date(2025, 4, 7, 0, 0, 0, 0, time.UTC)),
		Barcode:     "34191090081429288039120803050002410770000016165",
	}
}

func (h *harness) warnings() []observer.LoggedEntry {
	return h.logs.Filter(func(e observer.LoggedEntry) bool { return e.Level == zapcore.WarnLevel }).All()
}

func TestSendMessageUserNotFound(t *testing.T) {
	h := newHarness(t)
	userID := h.node.Generate()
	h.users.EXPECT().LoadWithRelations(gomock.Any(), userID).Return(nil, nil)

	summary, err := h.svc.SendMessage(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "User "+userID.String()+" not found", summary)
	assert.Equal(t, 1, h.logs.FilterMessage("dispatch.user.not_found").Len())
	assert.Equal(t, zapcore.WarnLevel, h.logs.FilterMessage("dispatch.user.not_found").All()[0].Level)
}

func TestSendMessageWithoutTokenSkipsFetch(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	user.EmailAuthTokens = nil
	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Contains(t, summary, user.ID.String())
	assert.Equal(t, "User "+user.ID.String()+" has no authentication token", summary)
	require.Len(t, h.warnings(), 1)
}

func TestSendMessageWithOnlyForeignProviderTokenSkipsFetch(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	user.EmailAuthTokens = []userdomain.EmailAuthToken{
		{ID: h.node.Generate(), UserID: user.ID, Provider: "outlook", AccessToken: "enc-access", RefreshToken: "enc-refresh"},
	}
	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "User "+user.ID.String()+" has no authentication token", summary)
	require.Len(t, h.warnings(), 1)
	assert.Equal(t, 1, h.logs.FilterMessage("dispatch.user.no_token").Len())
	assert.Zero(t, h.logs.FilterMessage("dispatch.run.failed").Len())
}

func TestSendMessageWithoutScanDefinitions(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	user.ScanEmailDefinitions = nil
	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "User "+user.ID.String()+" has no scan definitions", summary)
}

func TestSendMessageProcessesEveryAttachment(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	ctx := context.Background()

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{
		"Internet": []byte("pdf-2"),
		"Energia":  []byte("pdf-1"),
	}, nil)

	var messages []string
	gomock.InOrder(
		h.extractor.EXPECT().
			ReadTextContentFromPdf(gomock.Any(), []byte("pdf-1"), "Energia", barcode.DocumentTypeAccountInvoice).
			Return(decoded("[341] - Itaú", "Energia", "161.65"), nil),
		h.chat.EXPECT().Send(gomock.Any(), int64(4242), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, html string) error {
				messages = append(messages, html)
				return nil
			}),
		h.extractor.EXPECT().
			ReadTextContentFromPdf(gomock.Any(), []byte("pdf-2"), "Internet", barcode.DocumentTypeBankInvoice).
			Return(decoded("Internet", "Internet", "27.54"), nil),
		h.chat.EXPECT().Send(gomock.Any(), int64(4242), gomock.Any()).
			DoAndReturn(func(_ context.Context, _ int64, html string) error {
				messages = append(messages, html)
				return nil
			}),
	)
	h.invoices.EXPECT().BulkInsert(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, invoices []invoicedomain.Invoice) (int, error) {
			require.Len(t, invoices, 2)
			seen := map[snowflake.ID]bool{}
			for _, inv := range invoices {
				assert.Equal(t, user.ID, inv.UserID)
				assert.NotEqual(t, snowflake.ID(99), inv.ID)
				assert.False(t, seen[inv.ID])
				seen[inv.ID] = true
			}
			return len(invoices), nil
		})

	summary, err := h.svc.SendMessage(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Total messages sent: 2", summary)

	require.Len(t, messages, 2)
	assert.Contains(t, messages[0], "<b>[341] - Itaú</b>")
	assert.Contains(t, messages[0], "R$ 161,65")
	assert.Contains(t, messages[0], "07/04/2025")
	assert.Contains(t, messages[1], "R$ 27,54")
}

func TestSendMessageIsolatesDecodeFailure(t *testing.T) {
	h := newHarness(t)
	user := h.user()

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{
		"Energia":  []byte("broken"),
		"Internet": []byte("pdf-2"),
		"Unknown":  []byte("pdf-3"),
	}, nil)
	h.extractor.EXPECT().ReadTextContentFromPdf(gomock.Any(), []byte("broken"), "Energia", barcode.DocumentTypeAccountInvoice).
		Return(invoicedomain.Invoice{}, barcode.ErrBankNotFound)
	h.extractor.EXPECT().ReadTextContentFromPdf(gomock.Any(), []byte("pdf-2"), "Internet", barcode.DocumentTypeBankInvoice).
		Return(decoded("Internet", "Internet", "27.54"), nil)
	h.chat.EXPECT().Send(gomock.Any(), int64(4242), gomock.Any()).Return(nil)
	h.invoices.EXPECT().BulkInsert(gomock.Any(), gomock.Len(1)).Return(1, nil)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Total messages sent: 3", summary)
	assert.Equal(t, 1, h.logs.FilterMessage("dispatch.attachment.decode_failed").Len())
	assert.Equal(t, 1, h.logs.FilterMessage("dispatch.attachment.no_definition").Len())
}

func TestSendMessageContinuesAfterSendFailure(t *testing.T) {
	h := newHarness(t)
	user := h.user()

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{
		"Energia":  []byte("pdf-1"),
		"Internet": []byte("pdf-2"),
	}, nil)
	h.extractor.EXPECT().ReadTextContentFromPdf(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(decoded("Banco", "Payee", "10.00"), nil).Times(2)
	gomock.InOrder(
		h.chat.EXPECT().Send(gomock.Any(), int64(4242), gomock.Any()).Return(errors.New("telegram: 429")),
		h.chat.EXPECT().Send(gomock.Any(), int64(4242), gomock.Any()).Return(nil),
	)
	h.invoices.EXPECT().BulkInsert(gomock.Any(), gomock.Len(2)).Return(2, nil)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Total messages sent: 2", summary)

	failures := h.logs.FilterMessage("dispatch.message.send_failed").All()
	require.Len(t, failures, 1)
	assert.Equal(t, zapcore.ErrorLevel, failures[0].Level)
}

func TestSendMessageWrapsOperationalFailure(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	cause := errors.New("gmail: 500")

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(nil, cause)

	summary, err := h.svc.SendMessage(context.Background(), user.ID)
	assert.Empty(t, summary)
	assert.ErrorIs(t, err, ErrOperationFailed)
	assert.ErrorIs(t, err, cause)
	assert.NotErrorIs(t, err, ErrOperationCanceled)

	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, user.ID, runErr.UserID)
	assert.Equal(t, "get_attachments", runErr.Op)
	assert.Equal(t, 1, h.logs.FilterMessage("dispatch.run.failed").Len())
}

func TestSendMessageBulkInsertFailure(t *testing.T) {
	h := newHarness(t)
	user := h.user()

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{"Energia": []byte("pdf-1")}, nil)
	h.extractor.EXPECT().ReadTextContentFromPdf(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return(decoded("Banco", "Energia", "10.00"), nil)
	h.chat.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).Return(nil)
	h.invoices.EXPECT().BulkInsert(gomock.Any(), gomock.Any()).Return(0, errors.New("unique violation"))

	_, err := h.svc.SendMessage(context.Background(), user.ID)
	var runErr *RunError
	require.ErrorAs(t, err, &runErr)
	assert.Equal(t, "bulk_insert", runErr.Op)
	assert.ErrorIs(t, err, ErrOperationFailed)
}

func TestSendMessageCancellation(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	ctx, cancel := context.WithCancel(context.Background())

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).
		DoAndReturn(func(ctx context.Context, _ *userdomain.User) (map[string][]byte, error) {
			cancel()
			return nil, ctx.Err()
		})

	_, err := h.svc.SendMessage(ctx, user.ID)
	assert.ErrorIs(t, err, ErrOperationCanceled)
	assert.ErrorIs(t, err, context.Canceled)

	entries := h.logs.FilterMessage("dispatch.run.canceled").All()
	require.Len(t, entries, 1)
	assert.Equal(t, zapcore.WarnLevel, entries[0].Level)
	assert.Zero(t, h.logs.FilterMessage("dispatch.run.failed").Len())
}

func TestSendMessageCanceledMidLoop(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	ctx, cancel := context.WithCancel(context.Background())

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{
		"Energia":  []byte("pdf-1"),
		"Internet": []byte("pdf-2"),
	}, nil)
	h.extractor.EXPECT().ReadTextContentFromPdf(gomock.Any(), []byte("pdf-1"), "Energia", barcode.DocumentTypeAccountInvoice).
		Return(decoded("Banco", "Energia", "10.00"), nil)
	h.chat.EXPECT().Send(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(context.Context, int64, string) error {
			cancel()
			return nil
		})

	_, err := h.svc.SendMessage(ctx, user.ID)
	assert.ErrorIs(t, err, ErrOperationCanceled)
}

func TestSendMessageSkipsWhenAlreadyRunning(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	ctx := context.Background()

	_, ok, err := h.locker.TryLock(ctx, "dispatch:user:"+user.ID.String(), time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil)

	summary, err := h.svc.SendMessage(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Dispatch already running for user "+user.ID.String(), summary)
}

func TestSendMessageReleasesLock(t *testing.T) {
	h := newHarness(t)
	user := h.user()
	ctx := context.Background()

	h.users.EXPECT().LoadWithRelations(gomock.Any(), user.ID).Return(user, nil).Times(2)
	h.attachments.EXPECT().GetAttachments(gomock.Any(), user).Return(map[string][]byte{}, nil).Times(2)

	for i := 0; i < 2; i++ {
		summary, err := h.svc.SendMessage(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, "Total messages sent: 0", summary)
	}
}

func TestFormatterUsesConfiguredTemplate(t *testing.T) {
	f := newFormatter(config.NewStaticNotificationConfigHolder(config.NotificationConfig{
		MessageTemplate: "{{.Beneficiary}} | {{.Amount}} | {{.DueDate}}",
		DateLayout:      "2006-01-02",
	}))

	out, err := f.Format(decoded("Banco", "<Acme & Co>", "1234.5"))
	require.NoError(t, err)
	assert.Equal(t, "&lt;Acme &amp; Co&gt; | 1234,50 | 2025-04-07", out)
}

func TestFormatterRejectsBrokenTemplate(t *testing.T) {
	f := newFormatter(config.NewStaticNotificationConfigHolder(config.NotificationConfig{
		MessageTemplate: "{{.Bank",
		DateLayout:      "2006-01-02",
	}))

	_, err := f.Format(decoded("Banco", "Payee", "1.00"))
	assert.Error(t, err)
}
