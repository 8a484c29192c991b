// Package audit records who did what after a business transaction commits.
// A failed write is logged and never surfaces to the caller.
package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
)

// Actions recorded on the trail.
const (
	ActionAccountCreate  = "account.create"
	ActionAccountUpdate  = "account.update"
	ActionJournalPost    = "journal.post"
	ActionLoanCreate     = "loan.create"
	ActionLoanPayment    = "loan.payment"
	ActionMonthEndPrefix = "month_end."
	ActionChartSeed      = "chart.seed"
)

// Appender is the store side of the trail.
type Appender interface {
	AppendAudit(ctx context.Context, rec ledger.AuditRecord) error
}

// Recorder writes audit records.
type Recorder struct {
	store Appender
	log   *slog.Logger
	now   func() time.Time
}

func New(store Appender, logger *slog.Logger) *Recorder {
	return &Recorder{store: store, log: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Record appends one record. A nil Recorder is a no-op.
func (r *Recorder) Record(ctx context.Context, who ledger.Identity, action, target string, detail meta.Metadata) {
	if r == nil {
		return
	}
	rec := ledger.AuditRecord{
		ID:     uuid.New(),
		Actor:  who.Actor(),
		Role:   who.Role,
		Action: action,
		Target: target,
		Detail: detail,
		At:     r.now(),
	}
	if err := r.store.AppendAudit(ctx, rec); err != nil {
		r.log.Error("audit write failed", "action", action, "target", target, "actor", rec.Actor, "err", err)
	}
}
