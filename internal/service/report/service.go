// Package report derives read-only views over the account ledger and the
// loan book.
package report

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/ledger"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	ListLoans(ctx context.Context) ([]ledger.Loan, error)
}

// Line is one account on a statement.
type Line struct {
	AccountID uuid.UUID
	Name      string
	Type      ledger.AccountType
	Balance   money.Amount
}

type IncomeStatement struct {
	Income        []Line
	Expenses      []Line
	TotalIncome   money.Amount
	TotalExpenses money.Amount
	NetProfit     money.Amount
}

// BalanceSheet includes the not yet closed result so that
// TotalAssets = TotalLiabilities + TotalEquity + NetProfit.
type BalanceSheet struct {
	Assets           []Line
	Liabilities      []Line
	Equity           []Line
	TotalAssets      money.Amount
	TotalLiabilities money.Amount
	TotalEquity      money.Amount
	NetProfit        money.Amount
	Balanced         bool
}

// TrialRow shows a balance in its normal column, or the opposite column when negative.
type TrialRow struct {
	AccountID uuid.UUID
	Name      string
	Type      ledger.AccountType
	Debit     money.Amount
	Credit    money.Amount
}

type TrialBalance struct {
	Rows        []TrialRow
	TotalDebit  money.Amount
	TotalCredit money.Amount
	Balanced    bool
}

// AtRiskLoan is an overdue loan with an outstanding balance.
type AtRiskLoan struct {
	Loan        ledger.Loan
	DaysOverdue int
}

type PortfolioAtRisk struct {
	AsOf             time.Time
	Loans            []AtRiskLoan
	AtRisk           money.Amount
	TotalOutstanding money.Amount
	// Ratio is AtRisk / TotalOutstanding to four places; zero for an empty book.
	Ratio decimal.Decimal
}

type Service interface {
	IncomeStatement(ctx context.Context) (IncomeStatement, error)
	BalanceSheet(ctx context.Context) (BalanceSheet, error)
	TrialBalance(ctx context.Context) (TrialBalance, error)
	PortfolioAtRisk(ctx context.Context, asOf time.Time) (PortfolioAtRisk, error)
}

type service struct {
	repo Repo
	curr string
}

func New(repo Repo, currency string) Service { return &service{repo: repo, curr: currency} }

func (s *service) byType(ctx context.Context) (map[ledger.AccountType][]Line, map[ledger.AccountType]money.Amount, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return nil, nil, err
	}
	lines := make(map[ledger.AccountType][]Line, len(ledger.AccountTypes))
	totals := make(map[ledger.AccountType]money.Amount, len(ledger.AccountTypes))
	for _, t := range ledger.AccountTypes {
		totals[t] = ledger.Zero(s.curr)
	}
	for _, a := range accounts {
		lines[a.Type] = append(lines[a.Type], Line{AccountID: a.ID, Name: a.Name, Type: a.Type, Balance: a.Balance})
		sum, err := totals[a.Type].Add(a.Balance)
		if err != nil {
			return nil, nil, err
		}
		totals[a.Type] = sum
	}
	return lines, totals, nil
}

func (s *service) IncomeStatement(ctx context.Context) (IncomeStatement, error) {
	lines, totals, err := s.byType(ctx)
	if err != nil {
		return IncomeStatement{}, err
	}
	net, err := totals[ledger.AccountTypeIncome].Sub(totals[ledger.AccountTypeExpense])
	if err != nil {
		return IncomeStatement{}, err
	}
	return IncomeStatement{
		Income:        lines[ledger.AccountTypeIncome],
		Expenses:      lines[ledger.AccountTypeExpense],
		TotalIncome:   totals[ledger.AccountTypeIncome],
		TotalExpenses: totals[ledger.AccountTypeExpense],
		NetProfit:     net,
	}, nil
}

func (s *service) BalanceSheet(ctx context.Context) (BalanceSheet, error) {
	lines, totals, err := s.byType(ctx)
	if err != nil {
		return BalanceSheet{}, err
	}
	net, err := totals[ledger.AccountTypeIncome].Sub(totals[ledger.AccountTypeExpense])
	if err != nil {
		return BalanceSheet{}, err
	}
	rhs, err := totals[ledger.AccountTypeLiability].Add(totals[ledger.AccountTypeEquity])
	if err != nil {
		return BalanceSheet{}, err
	}
	if rhs, err = rhs.Add(net); err != nil {
		return BalanceSheet{}, err
	}
	balanced, err := ledger.WithinTolerance(totals[ledger.AccountTypeAsset], rhs)
	if err != nil {
		return BalanceSheet{}, err
	}
	return BalanceSheet{
		Assets:           lines[ledger.AccountTypeAsset],
		Liabilities:      lines[ledger.AccountTypeLiability],
		Equity:           lines[ledger.AccountTypeEquity],
		TotalAssets:      totals[ledger.AccountTypeAsset],
		TotalLiabilities: totals[ledger.AccountTypeLiability],
		TotalEquity:      totals[ledger.AccountTypeEquity],
		NetProfit:        net,
		Balanced:         balanced,
	}, nil
}

func (s *service) TrialBalance(ctx context.Context) (TrialBalance, error) {
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return TrialBalance{}, err
	}
	tb := TrialBalance{TotalDebit: ledger.Zero(s.curr), TotalCredit: ledger.Zero(s.curr)}
	for _, a := range accounts {
		row := TrialRow{AccountID: a.ID, Name: a.Name, Type: a.Type, Debit: ledger.Zero(s.curr), Credit: ledger.Zero(s.curr)}
		debitCol := a.Type.DebitNormal() != a.Balance.IsNeg()
		if debitCol {
			row.Debit = a.Balance.Abs()
			if tb.TotalDebit, err = tb.TotalDebit.Add(row.Debit); err != nil {
				return TrialBalance{}, err
			}
		} else {
			row.Credit = a.Balance.Abs()
			if tb.TotalCredit, err = tb.TotalCredit.Add(row.Credit); err != nil {
				return TrialBalance{}, err
			}
		}
		tb.Rows = append(tb.Rows, row)
	}
	if tb.Balanced, err = ledger.WithinTolerance(tb.TotalDebit, tb.TotalCredit); err != nil {
		return TrialBalance{}, err
	}
	return tb, nil
}

func (s *service) PortfolioAtRisk(ctx context.Context, asOf time.Time) (PortfolioAtRisk, error) {
	if asOf.IsZero() {
		asOf = time.Now().UTC()
	}
	loans, err := s.repo.ListLoans(ctx)
	if err != nil {
		return PortfolioAtRisk{}, err
	}
	par := PortfolioAtRisk{AsOf: asOf, AtRisk: ledger.Zero(s.curr), TotalOutstanding: ledger.Zero(s.curr), Ratio: decimal.Zero}
	for _, l := range loans {
		if l.Status != ledger.LoanStatusActive || !l.OutstandingBalance.IsPos() {
			continue
		}
		if par.TotalOutstanding, err = par.TotalOutstanding.Add(l.OutstandingBalance); err != nil {
			return PortfolioAtRisk{}, err
		}
		if l.DueDate == nil || !l.DueDate.Before(asOf) {
			continue
		}
		if par.AtRisk, err = par.AtRisk.Add(l.OutstandingBalance); err != nil {
			return PortfolioAtRisk{}, err
		}
		par.Loans = append(par.Loans, AtRiskLoan{Loan: l, DaysOverdue: int(asOf.Sub(*l.DueDate).Hours() / 24)})
	}
	if par.TotalOutstanding.IsPos() {
		ratio, err := par.AtRisk.Decimal().Quo(par.TotalOutstanding.Decimal())
		if err != nil {
			return PortfolioAtRisk{}, err
		}
		par.Ratio = ratio.Round(4)
	}
	return par, nil
}
