package metrics

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"
)

func TestClassifyReason(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{name: "canceled", err: context.Canceled, want: ReasonCanceled},
		{name: "wrapped_deadline", err: fmt.Errorf("load user: %w", context.DeadlineExceeded), want: ReasonDeadlineExceeded},
		{name: "db_lock_timeout", err: &pgconn.PgError{Code: "55P03"}, want: ReasonDBLockTimeout},
		{name: "serialization_failure", err: &pgconn.PgError{Code: "40001"}, want: ReasonSerializationFailure},
		{name: "pg_unique", err: &pgconn.PgError{Code: "23505"}, want: ReasonUniqueViolation},
		{name: "pg_other", err: &pgconn.PgError{Code: "42P01"}, want: ReasonDB},
		{name: "gorm_duplicate", err: gorm.ErrDuplicatedKey, want: ReasonUniqueViolation},
		{name: "unknown", err: errors.New("boom"), want: ReasonUnknown},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := ClassifyReason(tc.err); got != tc.want {
				t.Fatalf("expected reason %q, got %q", tc.want, got)
			}
		})
	}
}

func TestSchedulerMetricsCounters(t *testing.T) {
	registry := prometheus.NewRegistry()
	m := NewSchedulerMetrics(registry, Config{ServiceName: "invoicereminder", Environment: "test"})

	m.IncRun(OutcomeOK)
	m.IncRun(OutcomeOK)
	m.IncRun(OutcomeFailed)
	m.IncRunError(context.Canceled)
	m.AddAttachments(3)
	m.AddAttachments(0)
	m.IncDecodeFailure("BankInvoice")
	m.IncStartupSkipped()

	if got := testutil.ToFloat64(m.runs.WithLabelValues(OutcomeOK)); got != 2 {
		t.Fatalf("expected 2 ok runs, got %v", got)
	}
	if got := testutil.ToFloat64(m.runErrors.WithLabelValues(ReasonCanceled)); got != 1 {
		t.Fatalf("expected 1 canceled error, got %v", got)
	}
	if got := testutil.ToFloat64(m.attachments); got != 3 {
		t.Fatalf("expected 3 attachments, got %v", got)
	}
	if got := testutil.ToFloat64(m.decodeFailures.WithLabelValues("BankInvoice")); got != 1 {
		t.Fatalf("expected 1 decode failure, got %v", got)
	}
	if got := testutil.ToFloat64(m.startupSkipped); got != 1 {
		t.Fatalf("expected 1 skipped schedule, got %v", got)
	}
}

func TestSchedulerMetricsNilReceiver(t *testing.T) {
	var m *SchedulerMetrics
	m.IncRun(OutcomeOK)
	m.IncRunError(errors.New("boom"))
	m.ObserveRunDuration(0)
	m.IncMessage(OutcomeFailed)
	m.AddInvoicesInserted(2)
	m.IncTriggerOp("schedule")
}
