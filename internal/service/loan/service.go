// Package loan records loans and repayments and synthesises their journal
// postings: Dr Loan Portfolio / Cr Cash on Hand on disbursement, and
// Dr Cash on Hand / Cr Loan Portfolio + Interest Income on repayment with
// interest allocated first.
package loan

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/chart"
	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/events"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/slug"
	"github.com/tinoosan/loanledger/internal/storage"
)

// Accounts names the accounts the postings resolve by name.
type Accounts struct {
	Cash           string
	Portfolio      string
	InterestIncome string
}

// DefaultAccounts uses the built-in chart names.
func DefaultAccounts() Accounts {
	return Accounts{Cash: chart.CashOnHand, Portfolio: chart.LoanPortfolio, InterestIncome: chart.InterestIncome}
}

// Repo defines the read operations needed by the service.
type Repo interface {
	ListLoans(ctx context.Context) ([]ledger.Loan, error)
	GetLoan(ctx context.Context, id uuid.UUID) (ledger.Loan, error)
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error)
}

// NewLoan is the input of CreateLoan.
type NewLoan struct {
	BorrowerID   string
	BorrowerName string
	Principal    money.Amount
	InterestRate decimal.Decimal
	DisbursedAt  time.Time
	DueDate      *time.Time
}

type Service interface {
	// CreateLoan stores the loan and posts its disbursement in one transaction.
	CreateLoan(ctx context.Context, who ledger.Identity, in NewLoan) (ledger.Loan, error)
	// RecordPayment allocates, stores and posts a repayment in one transaction.
	RecordPayment(ctx context.Context, who ledger.Identity, loanID uuid.UUID, amount money.Amount, paidAt time.Time) (ledger.Payment, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Loan, error)
	List(ctx context.Context) ([]ledger.Loan, error)
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error)
	Allocation(ctx context.Context, loanID uuid.UUID) (Allocation, error)
}

type service struct {
	repo     Repo
	journal  journal.Service
	accounts Accounts
	audit    *audit.Recorder
	events   events.Publisher
	log      *slog.Logger
	now      func() time.Time
}

func New(repo Repo, j journal.Service, accounts Accounts, rec *audit.Recorder, pub events.Publisher, logger *slog.Logger) Service {
	return &service{
		repo:     repo,
		journal:  j,
		accounts: accounts,
		audit:    rec,
		events:   pub,
		log:      logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// resolve looks up a required posting account by name.
func resolve(ctx context.Context, tx storage.Tx, name string) (ledger.Account, error) {
	acc, err := tx.AccountByCode(ctx, slug.Slugify(name))
	if errors.Is(err, errs.ErrAccountNotFound) {
		return ledger.Account{}, fmt.Errorf("%w: %q does not exist; create it in the chart of accounts", errs.ErrAccountMissing, name)
	}
	return acc, err
}

func (s *service) validateNew(in NewLoan) error {
	if strings.TrimSpace(in.BorrowerName) == "" && strings.TrimSpace(in.BorrowerID) == "" {
		return errs.Invalid("borrower_required", "borrowerId or borrowerName is required")
	}
	if in.Principal.Curr().Code() != s.journal.Currency() {
		return errs.Invalid("currency_mismatch", "principal must be in %s", s.journal.Currency())
	}
	if !in.Principal.IsPos() {
		return errs.Invalid("principal_not_positive", "principal must be > 0")
	}
	if in.InterestRate.IsNeg() {
		return errs.Invalid("invalid_interest_rate", "interestRate must be >= 0")
	}
	if in.DueDate != nil && !in.DisbursedAt.IsZero() && in.DueDate.Before(in.DisbursedAt) {
		return errs.Invalid("invalid_due_date", "dueDate must not precede disbursedAt")
	}
	return nil
}

func (s *service) CreateLoan(ctx context.Context, who ledger.Identity, in NewLoan) (ledger.Loan, error) {
	if err := s.validateNew(in); err != nil {
		return ledger.Loan{}, err
	}
	if in.DisbursedAt.IsZero() {
		in.DisbursedAt = s.now()
	}
	interest, err := ledger.PercentOf(in.Principal, in.InterestRate)
	if err != nil {
		return ledger.Loan{}, err
	}
	l := ledger.Loan{
		ID:           uuid.New(),
		BorrowerID:   strings.TrimSpace(in.BorrowerID),
		BorrowerName: strings.TrimSpace(in.BorrowerName),
		Principal:    in.Principal.RoundToCurr(),
		InterestRate: in.InterestRate,
		InterestOwed: interest,
		Status:       ledger.LoanStatusActive,
		DisbursedAt:  in.DisbursedAt.UTC(),
		DueDate:      in.DueDate,
		CreatedBy:    who.Actor(),
	}
	if l.OutstandingBalance, err = l.TotalOwed(); err != nil {
		return ledger.Loan{}, err
	}

	err = s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, p journal.Poster) error {
		portfolio, err := resolve(ctx, tx, s.accounts.Portfolio)
		if err != nil {
			return err
		}
		cash, err := resolve(ctx, tx, s.accounts.Cash)
		if err != nil {
			return err
		}
		entry, err := p.Post(ctx, journal.Draft{
			Date:        l.DisbursedAt,
			Description: "Loan disbursement to " + borrowerLabel(l),
			Source:      ledger.SourceLoanDisbursement,
			CreatedBy:   who.Actor(),
			Metadata:    meta.Of(meta.KeyLoanID, l.ID.String(), meta.KeyBorrowerID, l.BorrowerID),
			Lines: []ledger.JournalLine{
				{AccountID: portfolio.ID, Side: ledger.SideDebit, Amount: l.Principal},
				{AccountID: cash.ID, Side: ledger.SideCredit, Amount: l.Principal},
			},
		})
		if err != nil {
			return err
		}
		l.DisbursementEntry = entry.ID
		if err := tx.CreateLoan(ctx, l); err != nil {
			return err
		}
		l, err = tx.LockLoan(ctx, l.ID)
		return err
	})
	if err != nil {
		return ledger.Loan{}, err
	}

	s.log.Info("loan disbursed", "loan_id", l.ID, "borrower", borrowerLabel(l), "principal", ledger.Format(l.Principal), "entry_id", l.DisbursementEntry)
	s.audit.Record(ctx, who, audit.ActionLoanCreate, l.ID.String(), meta.Of(
		meta.KeyBorrowerID, l.BorrowerID, "principal", ledger.Format(l.Principal), "interest_rate", l.InterestRate.String(),
	))
	events.Emit(ctx, s.events, s.log, events.LoanDisbursed, LoanEvent(l))
	return l, nil
}

func (s *service) RecordPayment(ctx context.Context, who ledger.Identity, loanID uuid.UUID, amount money.Amount, paidAt time.Time) (ledger.Payment, error) {
	if loanID == uuid.Nil {
		return ledger.Payment{}, errs.Invalid("invalid_id", "loan id is required")
	}
	if amount.Curr().Code() != s.journal.Currency() {
		return ledger.Payment{}, errs.Invalid("currency_mismatch", "amount must be in %s", s.journal.Currency())
	}
	amount = amount.RoundToCurr()
	if !amount.IsPos() {
		return ledger.Payment{}, errs.Invalid("amount_not_positive", "amount must be > 0")
	}
	if paidAt.IsZero() {
		paidAt = s.now()
	}

	var pay ledger.Payment
	var l ledger.Loan
	err := s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, p journal.Poster) error {
		var err error
		if l, err = tx.LockLoan(ctx, loanID); err != nil {
			return err
		}
		if l.Status == ledger.LoanStatusPaid {
			return fmt.Errorf("%w: loan %s is fully paid", errs.ErrOverpayment, l.ID)
		}
		limit, err := l.OutstandingBalance.Add(ledger.Tolerance(s.journal.Currency()))
		if err != nil {
			return err
		}
		if over, err := ledger.Less(limit, amount); err != nil {
			return err
		} else if over {
			return fmt.Errorf("%w: amount %s exceeds outstanding balance %s", errs.ErrOverpayment, ledger.Format(amount), ledger.Format(l.OutstandingBalance))
		}

		prior, err := tx.ListPayments(ctx, l.ID)
		if err != nil {
			return err
		}
		alloc, err := Replay(l, prior)
		if err != nil {
			return err
		}
		remaining, err := alloc.RemainingInterest()
		if err != nil {
			return err
		}
		interest, principal, err := Split(amount, remaining)
		if err != nil {
			return err
		}

		cash, err := resolve(ctx, tx, s.accounts.Cash)
		if err != nil {
			return err
		}
		lines := []ledger.JournalLine{{AccountID: cash.ID, Side: ledger.SideDebit, Amount: amount}}
		if principal.IsPos() {
			portfolio, err := resolve(ctx, tx, s.accounts.Portfolio)
			if err != nil {
				return err
			}
			lines = append(lines, ledger.JournalLine{AccountID: portfolio.ID, Side: ledger.SideCredit, Amount: principal})
		}
		if interest.IsPos() {
			income, err := resolve(ctx, tx, s.accounts.InterestIncome)
			if err != nil {
				return err
			}
			lines = append(lines, ledger.JournalLine{AccountID: income.ID, Side: ledger.SideCredit, Amount: interest})
		}

		pay = ledger.Payment{
			ID:               uuid.New(),
			LoanID:           l.ID,
			Sequence:         maxSequence(prior) + 1,
			Amount:           amount,
			InterestPortion:  interest,
			PrincipalPortion: principal,
			PaidAt:           paidAt.UTC(),
			RecordedBy:       who.Actor(),
		}
		entry, err := p.Post(ctx, journal.Draft{
			Date:        pay.PaidAt,
			Description: "Loan repayment from " + borrowerLabel(l),
			Source:      ledger.SourceLoanPayment,
			CreatedBy:   who.Actor(),
			Metadata:    meta.Of(meta.KeyLoanID, l.ID.String(), meta.KeyPaymentID, pay.ID.String()),
			Lines:       lines,
		})
		if err != nil {
			return err
		}
		pay.JournalEntryID = entry.ID
		if err := tx.CreatePayment(ctx, pay); err != nil {
			return err
		}

		if l.OutstandingBalance, err = l.OutstandingBalance.Sub(amount); err != nil {
			return err
		}
		if !l.OutstandingBalance.IsPos() {
			l.Status = ledger.LoanStatusPaid
		}
		return tx.UpdateLoan(ctx, l)
	})
	if err != nil {
		return ledger.Payment{}, err
	}

	s.log.Info("loan payment recorded",
		"loan_id", l.ID, "payment_id", pay.ID, "amount", ledger.Format(pay.Amount),
		"interest", ledger.Format(pay.InterestPortion), "principal", ledger.Format(pay.PrincipalPortion),
		"outstanding", ledger.Format(l.OutstandingBalance), "status", l.Status,
	)
	s.audit.Record(ctx, who, audit.ActionLoanPayment, l.ID.String(), meta.Of(
		meta.KeyPaymentID, pay.ID.String(), "amount", ledger.Format(pay.Amount),
	))
	events.Emit(ctx, s.events, s.log, events.LoanPaymentRecorded, PaymentEvent(l, pay))
	return pay, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Loan, error) {
	if id == uuid.Nil {
		return ledger.Loan{}, errs.Invalid("invalid_id", "loan id is required")
	}
	return s.repo.GetLoan(ctx, id)
}

func (s *service) List(ctx context.Context) ([]ledger.Loan, error) {
	return s.repo.ListLoans(ctx)
}

func (s *service) ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error) {
	if _, err := s.Get(ctx, loanID); err != nil {
		return nil, err
	}
	return s.repo.ListPayments(ctx, loanID)
}

func (s *service) Allocation(ctx context.Context, loanID uuid.UUID) (Allocation, error) {
	l, err := s.Get(ctx, loanID)
	if err != nil {
		return Allocation{}, err
	}
	payments, err := s.repo.ListPayments(ctx, loanID)
	if err != nil {
		return Allocation{}, err
	}
	return Replay(l, payments)
}

func maxSequence(ps []ledger.Payment) int {
	n := 0
	for _, p := range ps {
		if p.Sequence > n {
			n = p.Sequence
		}
	}
	return n
}

func borrowerLabel(l ledger.Loan) string {
	if l.BorrowerName != "" {
		return l.BorrowerName
	}
	return l.BorrowerID
}

// LoanEvent is the loan.disbursed payload.
func LoanEvent(l ledger.Loan) map[string]any {
	return map[string]any{
		"loanId":             l.ID,
		"borrowerId":         l.BorrowerID,
		"borrowerName":       l.BorrowerName,
		"principal":          ledger.Format(l.Principal),
		"interestRate":       l.InterestRate.String(),
		"outstandingBalance": ledger.Format(l.OutstandingBalance),
		"disbursedAt":        l.DisbursedAt,
		"journalEntryId":     l.DisbursementEntry,
	}
}

// PaymentEvent is the loan.payment_recorded payload.
func PaymentEvent(l ledger.Loan, p ledger.Payment) map[string]any {
	return map[string]any{
		"loanId":             l.ID,
		"paymentId":          p.ID,
		"amount":             ledger.Format(p.Amount),
		"interestPortion":    ledger.Format(p.InterestPortion),
		"principalPortion":   ledger.Format(p.PrincipalPortion),
		"outstandingBalance": ledger.Format(l.OutstandingBalance),
		"status":             l.Status,
		"paidAt":             p.PaidAt,
		"journalEntryId":     p.JournalEntryID,
	}
}
