// Package dispatch runs one notification pass for a user: fetch matching
// attachments, decode them into invoices, notify and persist.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicereminder/internal/config"
	invoicedomain "github.com/smallbiznis/invoicereminder/internal/invoice/domain"
	"github.com/smallbiznis/invoicereminder/internal/lock"
	obslogger "github.com/smallbiznis/invoicereminder/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/invoicereminder/internal/observability/metrics"
	"github.com/smallbiznis/invoicereminder/internal/observability/tracing"
	userdomain "github.com/smallbiznis/invoicereminder/internal/user/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

const defaultLockTTL = 10 * time.Minute

type Params struct {
	fx.In

	Log          *zap.Logger
	Config       config.Config
	GenID        *snowflake.Node
	Users        UserStore
	Attachments  AttachmentFetcher
	Chat         ChatSender
	Invoices     InvoiceStore
	Extractor    Extractor
	Locker       lock.Locker                      `optional:"true"`
	Notification *config.NotificationConfigHolder `optional:"true"`
	Metrics      *obsmetrics.SchedulerMetrics     `optional:"true"`
}

type Service struct {
	log         *zap.Logger
	genID       *snowflake.Node
	users       UserStore
	attachments AttachmentFetcher
	chat        ChatSender
	invoices    InvoiceStore
	extractor   Extractor
	locker      lock.Locker
	lockTTL     time.Duration
	format      *formatter
	metrics     *obsmetrics.SchedulerMetrics
	tracer      trace.Tracer
}

func New(p Params) *Service {
	ttl := p.Config.DispatchLockTTL
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	locker := p.Locker
	if locker == nil {
		locker = lock.NewMemoryLocker(nil)
	}
	return &Service{
		log:         p.Log.Named("dispatch.service"),
		genID:       p.GenID,
		users:       p.Users,
		attachments: p.Attachments,
		chat:        p.Chat,
		invoices:    p.Invoices,
		extractor:   p.Extractor,
		locker:      locker,
		lockTTL:     ttl,
		format:      newFormatter(p.Notification),
		metrics:     p.Metrics,
		tracer:      otel.Tracer("invoicereminder/dispatch"),
	}
}

// SendMessage runs one dispatch for userID and returns a summary line.
// Expected absences (unknown user, no token, no scan definitions, run
// already in progress) are summaries, not errors. Any other failure is a
// *RunError matching ErrOperationCanceled or ErrOperationFailed.
func (s *Service) SendMessage(ctx context.Context, userID snowflake.ID) (string, error) {
	ctx, span := s.tracer.Start(ctx, "dispatch.SendMessage",
		trace.WithAttributes(attribute.String("user_id", userID.String())),
	)
	defer span.End()

	log := obslogger.WithContext(ctx, s.log).With(zap.String("user_id", userID.String()))
	start := time.Now()
	log.Info("dispatch.run.start")

	summary, outcome, err := s.run(ctx, log, userID)
	s.metrics.ObserveRunDuration(time.Since(start))

	if err == nil {
		s.metrics.IncRun(outcome)
		span.SetAttributes(attribute.String("outcome", outcome))
		log.Info("dispatch.run.finish",
			zap.String("summary", summary),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
		return summary, nil
	}

	s.metrics.IncRunError(err)
	span.SetStatus(codes.Error, "dispatch failed")
	span.RecordError(tracing.SafeError(err))
	if errors.Is(err, ErrOperationCanceled) {
		s.metrics.IncRun(obsmetrics.OutcomeCanceled)
		log.Warn("dispatch.run.canceled", zap.Error(err))
		return "", err
	}
	s.metrics.IncRun(obsmetrics.OutcomeFailed)
	log.Error("dispatch.run.failed", zap.Error(err))
	return "", err
}

func (s *Service) run(ctx context.Context, log *zap.Logger, userID snowflake.ID) (string, string, error) {
	user, err := s.users.LoadWithRelations(ctx, userID)
	if err != nil {
		return "", "", classify(ctx, userID, "load_user", err)
	}
	if user == nil {
		log.Warn("dispatch.user.not_found")
		return fmt.Sprintf("User %s not found", userID), obsmetrics.OutcomeSkipped, nil
	}
	if !user.HasUsableToken() {
		log.Warn("dispatch.user.no_token")
		return fmt.Sprintf("User %s has no authentication token", userID), obsmetrics.OutcomeSkipped, nil
	}
	if len(user.ScanEmailDefinitions) == 0 {
		log.Warn("dispatch.user.no_scan_definitions")
		return fmt.Sprintf("User %s has no scan definitions", userID), obsmetrics.OutcomeSkipped, nil
	}

	release, acquired := s.acquire(ctx, log, userID)
	if !acquired {
		log.Warn("dispatch.run.already_running")
		return fmt.Sprintf("Dispatch already running for user %s", userID), obsmetrics.OutcomeSkipped, nil
	}
	defer release()

	attachments, err := s.attachments.GetAttachments(ctx, user)
	if err != nil {
		return "", "", classify(ctx, userID, "get_attachments", err)
	}
	s.metrics.AddAttachments(len(attachments))
	log.Info("dispatch.attachments.fetched", zap.Int("count", len(attachments)))

	invoices := make([]invoicedomain.Invoice, 0, len(attachments))
	for _, payee := range sortedPayees(attachments) {
		if err := ctx.Err(); err != nil {
			return "", "", canceled(userID, "process_attachment", err)
		}
		inv, ok, err := s.process(ctx, log, user, payee, attachments[payee])
		if err != nil {
			return "", "", err
		}
		if ok {
			invoices = append(invoices, inv)
		}
	}

	if len(invoices) > 0 {
		inserted, err := s.invoices.BulkInsert(ctx, invoices)
		if err != nil {
			return "", "", classify(ctx, userID, "bulk_insert", err)
		}
		s.metrics.AddInvoicesInserted(inserted)
	}

	return fmt.Sprintf("Total messages sent: %d", len(attachments)), obsmetrics.OutcomeOK, nil
}

// process decodes one attachment and notifies the user. Decode and send
// failures are logged and isolated to the attachment; only cancellation
// aborts the run.
func (s *Service) process(ctx context.Context, log *zap.Logger, user *userdomain.User, payee string, data []byte) (invoicedomain.Invoice, bool, error) {
	log = log.With(zap.String("payee", payee))

	def, ok := user.DefinitionFor(payee)
	if !ok {
		log.Warn("dispatch.attachment.no_definition")
		return invoicedomain.Invoice{}, false, nil
	}

	inv, err := s.extractor.ReadTextContentFromPdf(ctx, data, payee, def.DocumentType)
	if err != nil {
		if ctx.Err() != nil {
			return invoicedomain.Invoice{}, false, canceled(user.ID, "decode", ctx.Err())
		}
		s.metrics.IncDecodeFailure(string(def.DocumentType))
		log.Warn("dispatch.attachment.decode_failed",
			zap.String("document_type", string(def.DocumentType)),
			zap.Error(err),
		)
		return invoicedomain.Invoice{}, false, nil
	}
	inv.ID = s.genID.Generate()
	inv.UserID = user.ID

	if user.ChatID == 0 {
		log.Warn("dispatch.chat.no_destination")
		return inv, true, nil
	}
	message, err := s.format.Format(inv)
	if err != nil {
		s.metrics.IncMessage(obsmetrics.OutcomeFailed)
		log.Error("dispatch.message.render_failed", zap.Error(err))
		return inv, true, nil
	}
	if err := s.chat.Send(ctx, user.ChatID, message); err != nil {
		if ctx.Err() != nil {
			return invoicedomain.Invoice{}, false, canceled(user.ID, "send_message", ctx.Err())
		}
		s.metrics.IncMessage(obsmetrics.OutcomeFailed)
		log.Error("dispatch.message.send_failed", zap.Int64("chat_id", user.ChatID), zap.Error(err))
		return inv, true, nil
	}
	s.metrics.IncMessage(obsmetrics.OutcomeOK)
	log.Debug("dispatch.message.sent", zap.String("invoice_id", inv.ID.String()))
	return inv, true, nil
}

// acquire takes the per-user run lock. An unavailable lock backend does not
// block the run.
func (s *Service) acquire(ctx context.Context, log *zap.Logger, userID snowflake.ID) (func(), bool) {
	key := "dispatch:user:" + userID.String()
	token, ok, err := s.locker.TryLock(ctx, key, s.lockTTL)
	if err != nil {
		log.Warn("dispatch.lock.unavailable", zap.Error(err))
		return func() {}, true
	}
	if !ok {
		return nil, false
	}
	return func() {
		releaseCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		defer cancel()
		if err := s.locker.Release(releaseCtx, key, token); err != nil {
			log.Warn("dispatch.lock.release_failed", zap.Error(err))
		}
	}, true
}

func classify(ctx context.Context, userID snowflake.ID, op string, err error) error {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return canceled(userID, op, err)
	}
	return failed(userID, op, err)
}

func sortedPayees(attachments map[string][]byte) []string {
	payees := make([]string, 0, len(attachments))
	for payee := range attachments {
		payees = append(payees, payee)
	}
	sort.Strings(payees)
	return payees
}
