package closing

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/chart"
	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/events"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/service/account"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/storage/memory"
)

var (
	initiator = ledger.Identity{Subject: "u-1", Name: "Ife", Role: ledger.RoleFinanceInitiator}
	approver  = ledger.Identity{Subject: "u-2", Name: "Bayo", Role: ledger.RoleApprover}
	officer   = ledger.Identity{Subject: "u-3", Name: "Olu", Role: ledger.RoleLoanOfficer}
	admin     = ledger.Identity{Subject: "u-0", Name: "root", Role: ledger.RoleAdmin}
)

type fixture struct {
	store    *memory.Store
	journal  journal.Service
	accounts account.Service
	svc      Service
	rec      *events.Recorder
}

func newFixture(t *testing.T, c chart.Chart) fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	store := memory.New()
	j := journal.New(store, "USD", logger)
	rec := audit.New(store, logger)
	f := fixture{store: store, journal: j, accounts: account.New(store, j, rec, logger), rec: &events.Recorder{}}
	f.svc = New(store, j, chart.RetainedEarnings, rec, f.rec, logger)
	_, err := f.accounts.EnsureChart(context.Background(), admin, c)
	require.NoError(t, err)
	return f
}

func (f fixture) post(t *testing.T, debit, credit, amount string) {
	t.Helper()
	ctx := context.Background()
	dr, err := f.accounts.ByName(ctx, debit)
	require.NoError(t, err)
	cr, err := f.accounts.ByName(ctx, credit)
	require.NoError(t, err)
	amt, err := ledger.ParseAmount("USD", amount)
	require.NoError(t, err)
	_, err = f.journal.Post(ctx, journal.Draft{
		Date:        time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
		Description: "seed",
		CreatedBy:   "tester",
		Lines: []ledger.JournalLine{
			{AccountID: dr.ID, Side: ledger.SideDebit, Amount: amt},
			{AccountID: cr.ID, Side: ledger.SideCredit, Amount: amt},
		},
	})
	require.NoError(t, err)
}

func (f fixture) balance(t *testing.T, name string) string {
	t.Helper()
	a, err := f.accounts.ByName(context.Background(), name)
	require.NoError(t, err)
	return ledger.Format(a.Balance)
}

func (f fixture) approve(t *testing.T, period string) {
	t.Helper()
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, initiator, ActionInitiate, period, "")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, approver, ActionApprove, period, "")
	require.NoError(t, err)
}

func (f fixture) assertNominalZero(t *testing.T) {
	t.Helper()
	accounts, err := f.accounts.List(context.Background())
	require.NoError(t, err)
	for _, a := range accounts {
		if a.Type == ledger.AccountTypeIncome || a.Type == ledger.AccountTypeExpense {
			assert.True(t, a.Balance.IsZero(), "%s balance %s", a.Name, ledger.Format(a.Balance))
		}
	}
}

func TestProcessClosesProfitIntoRetainedEarnings(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()
	f.post(t, chart.CashOnHand, chart.InterestIncome, "5000")
	f.post(t, "Salaries", chart.CashOnHand, "3000")
	f.approve(t, "2025-01")

	c, err := f.svc.Apply(ctx, initiator, ActionProcess, "2025-01", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusProcessed, c.Status)
	assert.Equal(t, "5000.00", ledger.Format(c.TotalRevenue))
	assert.Equal(t, "3000.00", ledger.Format(c.TotalExpenses))
	assert.Equal(t, "2000.00", ledger.Format(c.NetProfit))
	assert.Equal(t, "Ife", c.ProcessedBy)
	require.NotNil(t, c.ClosingEntryID)

	assert.Equal(t, "2000.00", f.balance(t, chart.RetainedEarnings))
	assert.Equal(t, "2000.00", f.balance(t, chart.CashOnHand))
	f.assertNominalZero(t)

	e, err := f.journal.GetEntry(ctx, *c.ClosingEntryID)
	require.NoError(t, err)
	assert.Equal(t, ledger.SourceMonthEndClose, e.Source)
	assert.Equal(t, time.Date(2025, 1, 31, 23, 59, 59, 0, time.UTC), e.Date)
	assert.Equal(t, "2025-01", e.Metadata["period_id"])
	last := e.Lines[len(e.Lines)-1]
	assert.Equal(t, chart.RetainedEarnings, last.AccountName)
	assert.Equal(t, ledger.SideCredit, last.Side)
	assert.Equal(t, "2000.00", ledger.Format(last.Amount))

	assert.Equal(t, []string{
		events.MonthEndTransitioned + "initiate",
		events.MonthEndTransitioned + "approve",
		events.MonthEndTransitioned + "process",
	}, f.rec.Types())
}

func TestProcessClosesLossAsDebit(t *testing.T) {
	f := newFixture(t, chart.Default())
	f.post(t, chart.CashOnHand, chart.InterestIncome, "2000")
	f.post(t, "Rent", chart.CashOnHand, "5000")
	f.approve(t, "2025-02")

	c, err := f.svc.Apply(context.Background(), admin, ActionProcess, "2025-02", "")
	require.NoError(t, err)
	assert.Equal(t, "-3000.00", ledger.Format(c.NetProfit))
	assert.Equal(t, "-3000.00", f.balance(t, chart.RetainedEarnings))
	f.assertNominalZero(t)

	e, err := f.journal.GetEntry(context.Background(), *c.ClosingEntryID)
	require.NoError(t, err)
	last := e.Lines[len(e.Lines)-1]
	assert.Equal(t, ledger.SideDebit, last.Side)
	assert.Equal(t, "3000.00", ledger.Format(last.Amount))
}

func TestProcessClosesNegativeBalanceOnOppositeSide(t *testing.T) {
	f := newFixture(t, chart.Default())
	f.post(t, chart.CashOnHand, chart.InterestIncome, "500")
	f.post(t, "Fee Income", chart.CashOnHand, "100")
	f.approve(t, "2025-03")

	c, err := f.svc.Apply(context.Background(), initiator, ActionProcess, "2025-03", "")
	require.NoError(t, err)
	assert.Equal(t, "400.00", ledger.Format(c.NetProfit))
	assert.Equal(t, "400.00", f.balance(t, chart.RetainedEarnings))
	f.assertNominalZero(t)

	e, err := f.journal.GetEntry(context.Background(), *c.ClosingEntryID)
	require.NoError(t, err)
	for _, ln := range e.Lines {
		if ln.AccountName == "Fee Income" {
			assert.Equal(t, ledger.SideCredit, ln.Side)
			assert.Equal(t, "100.00", ledger.Format(ln.Amount))
		}
	}
}

func TestProcessTwiceIsRejected(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()
	f.post(t, chart.CashOnHand, chart.InterestIncome, "750")
	f.approve(t, "2025-01")
	_, err := f.svc.Apply(ctx, initiator, ActionProcess, "2025-01", "")
	require.NoError(t, err)

	entries, _ := f.journal.ListEntries(ctx)
	retained := f.balance(t, chart.RetainedEarnings)

	_, err = f.svc.Apply(ctx, initiator, ActionProcess, "2025-01", "")
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	after, _ := f.journal.ListEntries(ctx)
	assert.Len(t, after, len(entries))
	assert.Equal(t, retained, f.balance(t, chart.RetainedEarnings))

	_, err = f.svc.Apply(ctx, initiator, ActionInitiate, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)
}

func TestRolesAreChecked(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, officer, ActionInitiate, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = f.svc.Apply(ctx, approver, ActionInitiate, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	_, err = f.svc.Apply(ctx, initiator, ActionInitiate, "2025-01", "")
	require.NoError(t, err)
	_, err = f.svc.Apply(ctx, initiator, ActionApprove, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)

	// role is checked before status
	_, err = f.svc.Apply(ctx, approver, ActionProcess, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrForbidden)
	_, err = f.svc.Apply(ctx, initiator, ActionProcess, "2025-01", "")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	c, err := f.svc.Get(ctx, "2025-01")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusPendingApproval, c.Status)
}

func TestRejectThenReinitiate(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()
	_, err := f.svc.Apply(ctx, initiator, ActionInitiate, "2025-04", "")
	require.NoError(t, err)

	c, err := f.svc.Apply(ctx, approver, ActionReject, "2025-04", "  figures incomplete ")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusRejected, c.Status)
	assert.Equal(t, "figures incomplete", c.RejectReason)
	assert.Equal(t, "Bayo", c.RejectedBy)

	_, err = f.svc.Apply(ctx, approver, ActionApprove, "2025-04", "")
	assert.ErrorIs(t, err, errs.ErrInvalidTransition)

	c, err = f.svc.Apply(ctx, initiator, ActionInitiate, "2025-04", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusPendingApproval, c.Status)
	assert.Empty(t, c.RejectedBy)
	assert.Empty(t, c.RejectReason)
	assert.Nil(t, c.RejectedAt)
}

func TestEmptyCloseHasNoEntry(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()
	f.approve(t, "2025-05")

	c, err := f.svc.Apply(ctx, initiator, ActionProcess, "2025-05", "")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusProcessed, c.Status)
	assert.Nil(t, c.ClosingEntryID)
	assert.True(t, c.NetProfit.IsZero())
	entries, _ := f.journal.ListEntries(ctx)
	assert.Empty(t, entries)
}

func TestMissingRetainedEarningsAborts(t *testing.T) {
	c := chart.Chart{Accounts: []chart.AccountDef{
		{Name: chart.CashOnHand, Type: ledger.AccountTypeAsset},
		{Name: chart.InterestIncome, Type: ledger.AccountTypeIncome},
	}}
	f := newFixture(t, c)
	ctx := context.Background()
	f.post(t, chart.CashOnHand, chart.InterestIncome, "90")
	f.approve(t, "2025-06")

	_, err := f.svc.Apply(ctx, initiator, ActionProcess, "2025-06", "")
	require.ErrorIs(t, err, errs.ErrAccountMissing)
	assert.Contains(t, err.Error(), chart.RetainedEarnings)

	got, err := f.svc.Get(ctx, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusApproved, got.Status)
	assert.Equal(t, "90.00", f.balance(t, chart.InterestIncome))
}

func TestRetainedEarningsMustBeEquity(t *testing.T) {
	c := chart.Chart{Accounts: []chart.AccountDef{
		{Name: chart.CashOnHand, Type: ledger.AccountTypeAsset},
		{Name: chart.InterestIncome, Type: ledger.AccountTypeIncome},
		{Name: chart.RetainedEarnings, Type: ledger.AccountTypeIncome},
	}}
	f := newFixture(t, c)
	ctx := context.Background()
	f.post(t, chart.CashOnHand, chart.InterestIncome, "5000")
	f.approve(t, "2025-06")

	_, err := f.svc.Apply(ctx, initiator, ActionProcess, "2025-06", "")
	require.ErrorIs(t, err, errs.ErrAccountMissing)
	assert.Contains(t, err.Error(), "must be an equity account")

	got, err := f.svc.Get(ctx, "2025-06")
	require.NoError(t, err)
	assert.Equal(t, ledger.ClosureStatusApproved, got.Status)
	assert.Equal(t, "5000.00", f.balance(t, chart.InterestIncome))
	assert.Equal(t, "0.00", f.balance(t, chart.RetainedEarnings))
}

func TestPeriodAndActionValidation(t *testing.T) {
	f := newFixture(t, chart.Default())
	ctx := context.Background()

	_, err := f.svc.Apply(ctx, initiator, ActionInitiate, "2025-13", "")
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = f.svc.Get(ctx, "January")
	assert.ErrorIs(t, err, errs.ErrInvalid)
	_, err = f.svc.Get(ctx, "2025-07")
	assert.ErrorIs(t, err, errs.ErrNotFound)

	a, err := ParseAction(" Approve ")
	require.NoError(t, err)
	assert.Equal(t, ActionApprove, a)
	_, err = ParseAction("reopen")
	assert.ErrorIs(t, err, errs.ErrInvalid)
}
