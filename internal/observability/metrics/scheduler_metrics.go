package metrics

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

// Config carries the constant labels attached to every series.
type Config struct {
	ServiceName string
	Environment string
}

const (
	OutcomeOK       = "ok"
	OutcomeFailed   = "failed"
	OutcomeCanceled = "canceled"
	OutcomeSkipped  = "skipped"
)

const (
	ReasonCanceled             = "canceled"
	ReasonDeadlineExceeded     = "deadline_exceeded"
	ReasonDBLockTimeout        = "db_lock_timeout"
	ReasonSerializationFailure = "serialization_failure"
	ReasonUniqueViolation      = "unique_violation"
	ReasonDB                   = "db"
	ReasonUnknown              = "unknown"
)

// SchedulerMetrics captures trigger lifecycle and dispatch run health.
// All methods are safe on a nil receiver.
type SchedulerMetrics struct {
	triggerOps       *prometheus.CounterVec
	startupSkipped   prometheus.Counter
	runs             *prometheus.CounterVec
	runErrors        *prometheus.CounterVec
	runDuration      prometheus.Histogram
	attachments      prometheus.Counter
	decodeFailures   *prometheus.CounterVec
	messages         *prometheus.CounterVec
	invoicesInserted prometheus.Counter
}

var (
	schedulerMetricsOnce sync.Once
	schedulerMetrics     *SchedulerMetrics
)

// Scheduler returns the singleton metrics registered on the default registerer.
func Scheduler() *SchedulerMetrics {
	return SchedulerWithConfig(Config{})
}

// SchedulerWithConfig returns the singleton metrics using config labels.
func SchedulerWithConfig(cfg Config) *SchedulerMetrics {
	schedulerMetricsOnce.Do(func() {
		schedulerMetrics = NewSchedulerMetrics(prometheus.DefaultRegisterer, cfg)
	})
	return schedulerMetrics
}

// ResetSchedulerMetricsForTest resets the singleton for tests.
func ResetSchedulerMetricsForTest() {
	schedulerMetricsOnce = sync.Once{}
	schedulerMetrics = nil
}

// NewSchedulerMetrics registers a fresh set of collectors on registerer.
func NewSchedulerMetrics(registerer prometheus.Registerer, cfg Config) *SchedulerMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	serviceName := strings.TrimSpace(cfg.ServiceName)
	if serviceName == "" {
		serviceName = "invoicereminder"
	}
	environment := strings.TrimSpace(cfg.Environment)
	if environment == "" {
		environment = "unknown"
	}
	constLabels := prometheus.Labels{
		"service": serviceName,
		"env":     environment,
	}

	m := &SchedulerMetrics{
		triggerOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicereminder_scheduler_trigger_operations_total",
			Help:        "Trigger lifecycle operations by kind.",
			ConstLabels: constLabels,
		}, []string{"operation"}),
		startupSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicereminder_scheduler_startup_skipped_total",
			Help:        "Persisted schedules skipped at startup because of an invalid cron expression.",
			ConstLabels: constLabels,
		}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_runs_total",
			Help:        "Dispatch runs by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		runErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_run_errors_total",
			Help:        "Dispatch run failures by low-cardinality reason.",
			ConstLabels: constLabels,
		}, []string{"reason"}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:        "invoicereminder_dispatch_run_duration_seconds",
			Help:        "Dispatch run latency.",
			Buckets:     []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300},
			ConstLabels: constLabels,
		}),
		attachments: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_attachments_total",
			Help:        "Email attachments fetched for decoding.",
			ConstLabels: constLabels,
		}),
		decodeFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_decode_failures_total",
			Help:        "Attachments that could not be decoded into an invoice.",
			ConstLabels: constLabels,
		}, []string{"document_type"}),
		messages: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_messages_total",
			Help:        "Chat notifications by outcome.",
			ConstLabels: constLabels,
		}, []string{"outcome"}),
		invoicesInserted: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "invoicereminder_dispatch_invoices_inserted_total",
			Help:        "Invoices persisted by dispatch runs.",
			ConstLabels: constLabels,
		}),
	}

	registerer.MustRegister(
		m.triggerOps,
		m.startupSkipped,
		m.runs,
		m.runErrors,
		m.runDuration,
		m.attachments,
		m.decodeFailures,
		m.messages,
		m.invoicesInserted,
	)
	return m
}

func (m *SchedulerMetrics) IncTriggerOp(operation string) {
	if m == nil {
		return
	}
	m.triggerOps.WithLabelValues(operation).Inc()
}

func (m *SchedulerMetrics) IncStartupSkipped() {
	if m == nil {
		return
	}
	m.startupSkipped.Inc()
}

func (m *SchedulerMetrics) IncRun(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) IncRunError(err error) {
	if m == nil || err == nil {
		return
	}
	m.runErrors.WithLabelValues(ClassifyReason(err)).Inc()
}

func (m *SchedulerMetrics) ObserveRunDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.runDuration.Observe(d.Seconds())
}

func (m *SchedulerMetrics) AddAttachments(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.attachments.Add(float64(n))
}

func (m *SchedulerMetrics) IncDecodeFailure(documentType string) {
	if m == nil {
		return
	}
	m.decodeFailures.WithLabelValues(documentType).Inc()
}

func (m *SchedulerMetrics) IncMessage(outcome string) {
	if m == nil {
		return
	}
	m.messages.WithLabelValues(outcome).Inc()
}

func (m *SchedulerMetrics) AddInvoicesInserted(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.invoicesInserted.Add(float64(n))
}

// ClassifyReason maps an error onto a bounded label set.
func ClassifyReason(err error) string {
	if err == nil {
		return ""
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ReasonCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonDeadlineExceeded
	case errors.Is(err, gorm.ErrDuplicatedKey):
		return ReasonUniqueViolation
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "55P03":
			return ReasonDBLockTimeout
		case "40001":
			return ReasonSerializationFailure
		case "23505":
			return ReasonUniqueViolation
		default:
			return ReasonDB
		}
	}
	return ReasonUnknown
}
