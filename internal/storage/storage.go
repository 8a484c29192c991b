// Package storage declares the transactional store contract shared by the
// memory and postgres backends.
//
// Balances are only writable through LedgerTx. Store.InTx hands a LedgerTx to
// its callback, and only the journal engine calls InTx; every other service
// receives the narrower Tx from the journal engine.
package storage

import (
	"context"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/ledger"
)

// Reader holds the read-side operations used outside transactions.
type Reader interface {
	// ListAccounts returns all accounts ordered by name.
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	// ListEntries returns journal entries newest first.
	ListEntries(ctx context.Context) ([]ledger.JournalEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (ledger.JournalEntry, error)
	// ListLoans returns loans ordered by disbursement date, newest first.
	ListLoans(ctx context.Context) ([]ledger.Loan, error)
	GetLoan(ctx context.Context, id uuid.UUID) (ledger.Loan, error)
	// ListPayments returns a loan's payments in replay order (paid at, then sequence).
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error)
	GetClosure(ctx context.Context, periodID string) (ledger.MonthEndClosure, error)
}

// Tx is a store transaction without balance or journal write access.
type Tx interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	// AccountByCode resolves an account by its normalised name.
	AccountByCode(ctx context.Context, code string) (ledger.Account, error)
	// CreateAccount fails with errs.ErrDuplicateName when the code is taken.
	CreateAccount(ctx context.Context, a ledger.Account) error
	// UpdateAccount writes code, name and type; the balance is left untouched.
	UpdateAccount(ctx context.Context, a ledger.Account) error

	CreateLoan(ctx context.Context, l ledger.Loan) error
	// LockLoan reads a loan and holds it until the transaction ends.
	LockLoan(ctx context.Context, id uuid.UUID) (ledger.Loan, error)
	// UpdateLoan writes the outstanding balance and status.
	UpdateLoan(ctx context.Context, l ledger.Loan) error
	ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error)
	CreatePayment(ctx context.Context, p ledger.Payment) error

	// LockClosure reads a period's closure; found is false when none exists yet.
	LockClosure(ctx context.Context, periodID string) (c ledger.MonthEndClosure, found bool, err error)
	// SaveClosure inserts or replaces the closure of c.PeriodID.
	SaveClosure(ctx context.Context, c ledger.MonthEndClosure) error
}

// LedgerTx adds journal writes and balance mutations to Tx.
type LedgerTx interface {
	Tx
	// LockAccounts reads and locks the given accounts; unknown ids are absent from the map.
	LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error)
	InsertEntry(ctx context.Context, e ledger.JournalEntry) error
	// ApplyDelta adds delta to the account balance; errs.ErrAccountNotFound for unknown ids.
	ApplyDelta(ctx context.Context, accountID uuid.UUID, delta money.Amount) error
	// ZeroBalance sets the account balance to exactly zero.
	ZeroBalance(ctx context.Context, accountID uuid.UUID) error
}

// Store is the transactional backend.
type Store interface {
	Reader
	// InTx runs fn in one serializable transaction. fn's error rolls everything back.
	InTx(ctx context.Context, fn func(ctx context.Context, tx LedgerTx) error) error
	// AppendAudit stores an audit record outside any business transaction.
	AppendAudit(ctx context.Context, rec ledger.AuditRecord) error
}

// ReadyChecker is optionally implemented by stores to indicate readiness.
type ReadyChecker interface {
	Ready(ctx context.Context) error
}
