// Package closing drives the month-end close of a period:
//
//	initiate: absent | rejected  -> pending_approval
//	approve:  pending_approval   -> approved
//	reject:   pending_approval   -> rejected
//	process:  approved           -> processed
//
// Processing posts one closing entry that moves every income and expense
// balance into the retained earnings account and then writes those balances
// to exactly zero, all in one transaction.
package closing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/events"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/slug"
	"github.com/tinoosan/loanledger/internal/storage"
)

// Action is a month-end transition.
type Action string

const (
	ActionInitiate Action = "initiate"
	ActionApprove  Action = "approve"
	ActionReject   Action = "reject"
	ActionProcess  Action = "process"
)

// Transition describes who may apply an action and from which states.
type Transition struct {
	From  []ledger.ClosureStatus
	To    ledger.ClosureStatus
	Roles []ledger.Role
}

// Transitions is the closure state machine.
var Transitions = map[Action]Transition{
	ActionInitiate: {
		From:  []ledger.ClosureStatus{ledger.ClosureStatusNone, ledger.ClosureStatusRejected},
		To:    ledger.ClosureStatusPendingApproval,
		Roles: []ledger.Role{ledger.RoleFinanceInitiator, ledger.RoleAdmin},
	},
	ActionApprove: {
		From:  []ledger.ClosureStatus{ledger.ClosureStatusPendingApproval},
		To:    ledger.ClosureStatusApproved,
		Roles: []ledger.Role{ledger.RoleApprover, ledger.RoleAdmin},
	},
	ActionReject: {
		From:  []ledger.ClosureStatus{ledger.ClosureStatusPendingApproval},
		To:    ledger.ClosureStatusRejected,
		Roles: []ledger.Role{ledger.RoleApprover, ledger.RoleAdmin},
	},
	ActionProcess: {
		From:  []ledger.ClosureStatus{ledger.ClosureStatusApproved},
		To:    ledger.ClosureStatusProcessed,
		Roles: []ledger.Role{ledger.RoleFinanceInitiator, ledger.RoleAdmin},
	},
}

// ParseAction validates an action name.
func ParseAction(s string) (Action, error) {
	a := Action(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := Transitions[a]; !ok {
		return "", errs.Invalid("invalid_action", "action must be one of initiate, approve, reject, process")
	}
	return a, nil
}

// Repo defines the read operations needed by the service.
type Repo interface {
	GetClosure(ctx context.Context, periodID string) (ledger.MonthEndClosure, error)
}

type Service interface {
	Get(ctx context.Context, periodID string) (ledger.MonthEndClosure, error)
	// Apply runs action on the period. reason is only used by reject.
	Apply(ctx context.Context, who ledger.Identity, action Action, periodID, reason string) (ledger.MonthEndClosure, error)
}

type service struct {
	repo     Repo
	journal  journal.Service
	retained string
	audit    *audit.Recorder
	events   events.Publisher
	log      *slog.Logger
	now      func() time.Time
}

// New builds the service; retainedEarnings names the equity account closed into.
func New(repo Repo, j journal.Service, retainedEarnings string, rec *audit.Recorder, pub events.Publisher, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		journal:  j,
		retained: retainedEarnings,
		audit:    rec,
		events:   pub,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

func validPeriod(periodID string) (time.Time, error) {
	start, err := ledger.ParsePeriod(strings.TrimSpace(periodID))
	if err != nil {
		return time.Time{}, errs.Invalid("invalid_period", "%v", err)
	}
	return start, nil
}

func (s *service) Get(ctx context.Context, periodID string) (ledger.MonthEndClosure, error) {
	if _, err := validPeriod(periodID); err != nil {
		return ledger.MonthEndClosure{}, err
	}
	return s.repo.GetClosure(ctx, strings.TrimSpace(periodID))
}

func (s *service) Apply(ctx context.Context, who ledger.Identity, action Action, periodID, reason string) (ledger.MonthEndClosure, error) {
	tr, ok := Transitions[action]
	if !ok {
		return ledger.MonthEndClosure{}, errs.Invalid("invalid_action", "unknown action %q", action)
	}
	if !who.Role.In(tr.Roles...) {
		return ledger.MonthEndClosure{}, fmt.Errorf("%w: role %q may not %s a month-end close", errs.ErrForbidden, who.Role, action)
	}
	start, err := validPeriod(periodID)
	if err != nil {
		return ledger.MonthEndClosure{}, err
	}
	periodID = start.Format(ledger.PeriodLayout)

	var out ledger.MonthEndClosure
	err = s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, p journal.Poster) error {
		c, found, err := tx.LockClosure(ctx, periodID)
		if err != nil {
			return err
		}
		if !found {
			c = ledger.MonthEndClosure{PeriodID: periodID}
		}
		if !statusIn(c.Status, tr.From) {
			return fmt.Errorf("%w: cannot %s period %s in status %s", errs.ErrInvalidTransition, action, periodID, statusLabel(c.Status))
		}

		now := s.now()
		switch action {
		case ActionInitiate:
			c.InitiatedBy, c.InitiatedAt = who.Actor(), &now
			c.ApprovedBy, c.ApprovedAt = "", nil
			c.RejectedBy, c.RejectedAt, c.RejectReason = "", nil, ""
		case ActionApprove:
			c.ApprovedBy, c.ApprovedAt = who.Actor(), &now
		case ActionReject:
			c.RejectedBy, c.RejectedAt, c.RejectReason = who.Actor(), &now, strings.TrimSpace(reason)
		case ActionProcess:
			if err := s.close(ctx, tx, p, &c, start, who); err != nil {
				return err
			}
			c.ProcessedBy, c.ProcessedAt = who.Actor(), &now
		}
		c.Status = tr.To
		if err := tx.SaveClosure(ctx, c); err != nil {
			return err
		}
		out, found, err = tx.LockClosure(ctx, periodID)
		if err == nil && !found {
			err = errors.New("closure vanished after save")
		}
		return err
	})
	if err != nil {
		return ledger.MonthEndClosure{}, err
	}

	detail := meta.Of(meta.KeyPeriodID, periodID, "status", string(out.Status))
	if action == ActionReject && out.RejectReason != "" {
		detail.Set(meta.KeyReason, out.RejectReason)
	}
	s.log.Info("month-end transition", "period_id", periodID, "action", action, "status", out.Status, "actor", who.Actor())
	s.audit.Record(ctx, who, audit.ActionMonthEndPrefix+string(action), periodID, detail)
	events.Emit(ctx, s.events, s.log, events.MonthEndTransitioned+string(action), ClosureEvent(out))
	return out, nil
}

// close computes the period result and posts the closing entry into c's totals.
func (s *service) close(ctx context.Context, tx storage.Tx, p journal.Poster, c *ledger.MonthEndClosure, start time.Time, who ledger.Identity) error {
	curr := s.journal.Currency()
	equity, err := tx.AccountByCode(ctx, slug.Slugify(s.retained))
	if errors.Is(err, errs.ErrAccountNotFound) {
		return fmt.Errorf("%w: %q does not exist; create it in the chart of accounts", errs.ErrAccountMissing, s.retained)
	}
	if err != nil {
		return err
	}
	if equity.Type != ledger.AccountTypeEquity {
		return fmt.Errorf("%w: %q must be an equity account, found %s; fix it in the chart of accounts", errs.ErrAccountMissing, s.retained, equity.Type)
	}

	accounts, err := tx.ListAccounts(ctx)
	if err != nil {
		return err
	}
	revenue, expenses := ledger.Zero(curr), ledger.Zero(curr)
	var lines []ledger.JournalLine
	var nominal []uuid.UUID
	for _, a := range accounts {
		var closeSide ledger.Side
		switch a.Type {
		case ledger.AccountTypeIncome:
			if revenue, err = revenue.Add(a.Balance); err != nil {
				return err
			}
			closeSide = ledger.SideDebit
		case ledger.AccountTypeExpense:
			if expenses, err = expenses.Add(a.Balance); err != nil {
				return err
			}
			closeSide = ledger.SideCredit
		default:
			continue
		}
		nominal = append(nominal, a.ID)
		if a.Balance.IsZero() {
			continue
		}
		if a.Balance.IsNeg() {
			closeSide = opposite(closeSide)
		}
		lines = append(lines, ledger.JournalLine{AccountID: a.ID, Side: closeSide, Amount: a.Balance.Abs()})
	}
	net, err := revenue.Sub(expenses)
	if err != nil {
		return err
	}
	switch {
	case net.IsPos():
		lines = append(lines, ledger.JournalLine{AccountID: equity.ID, Side: ledger.SideCredit, Amount: net})
	case net.IsNeg():
		lines = append(lines, ledger.JournalLine{AccountID: equity.ID, Side: ledger.SideDebit, Amount: net.Abs()})
	}

	c.TotalRevenue, c.TotalExpenses, c.NetProfit = revenue, expenses, net
	c.ClosingEntryID = nil
	if len(lines) > 0 {
		entry, err := p.Post(ctx, journal.Draft{
			Date:        periodEnd(start),
			Description: "Month-end close " + c.PeriodID,
			Source:      ledger.SourceMonthEndClose,
			CreatedBy:   who.Actor(),
			Metadata:    meta.Of(meta.KeyPeriodID, c.PeriodID),
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		c.ClosingEntryID = &entry.ID
	}
	return p.ZeroBalances(ctx, nominal)
}

func periodEnd(start time.Time) time.Time {
	return start.AddDate(0, 1, 0).Add(-time.Second)
}

func opposite(s ledger.Side) ledger.Side {
	if s == ledger.SideDebit {
		return ledger.SideCredit
	}
	return ledger.SideDebit
}

func statusIn(s ledger.ClosureStatus, set []ledger.ClosureStatus) bool {
	for _, x := range set {
		if s == x {
			return true
		}
	}
	return false
}

func statusLabel(s ledger.ClosureStatus) string {
	if s == ledger.ClosureStatusNone {
		return "none"
	}
	return string(s)
}

// ClosureEvent is the month_end.<action> payload.
func ClosureEvent(c ledger.MonthEndClosure) map[string]any {
	out := map[string]any{
		"periodId": c.PeriodID,
		"status":   c.Status,
	}
	if c.Status == ledger.ClosureStatusProcessed {
		out["totalRevenue"] = ledger.Format(c.TotalRevenue)
		out["totalExpenses"] = ledger.Format(c.TotalExpenses)
		out["netProfit"] = ledger.Format(c.NetProfit)
		if c.ClosingEntryID != nil {
			out["closingJournalEntryId"] = *c.ClosingEntryID
		}
	}
	return out
}
