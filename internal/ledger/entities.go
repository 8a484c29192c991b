package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/meta"
)

// Side represents the accounting position of a journal line.
type Side string

const (
	// SideDebit records a value on the debit side of an account.
	SideDebit Side = "debit"
	// SideCredit records a value on the credit side of an account.
	SideCredit Side = "credit"
)

// Valid reports whether s is one of the two journal sides.
func (s Side) Valid() bool { return s == SideDebit || s == SideCredit }

// AccountType enumerates the broad classification of an account in the ledger.
type AccountType string

const (
	// AccountTypeAsset increases on the debit side and holds resources owned by the institution.
	AccountTypeAsset AccountType = "asset"
	// AccountTypeLiability increases on the credit side and tracks obligations.
	AccountTypeLiability AccountType = "liability"
	// AccountTypeEquity captures the owners' residual interest, including retained earnings.
	AccountTypeEquity AccountType = "equity"
	// AccountTypeIncome represents inflows (interest, fees) that increase equity.
	AccountTypeIncome AccountType = "income"
	// AccountTypeExpense represents outflows that decrease equity.
	AccountTypeExpense AccountType = "expense"
)

// AccountTypes lists every account type in reporting order.
var AccountTypes = []AccountType{
	AccountTypeAsset,
	AccountTypeLiability,
	AccountTypeEquity,
	AccountTypeIncome,
	AccountTypeExpense,
}

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeIncome, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports whether debits increase balances of this type.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Source identifies what produced a journal entry.
type Source string

const (
	SourceManual           Source = "manual"
	SourceLoanDisbursement Source = "loan_disbursement"
	SourceLoanPayment      Source = "loan_payment"
	SourceMonthEndClose    Source = "month_end_close"
)

// Account is a named bucket in the chart of accounts with a running balance.
type Account struct {
	ID uuid.UUID
	// Code is the normalised name used as the uniqueness key.
	Code    string
	Name    string
	Type    AccountType
	Balance money.Amount
	// CreatedAt and UpdatedAt are maintained by the store.
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JournalEntry is an atomic, balanced set of debit/credit lines.
type JournalEntry struct {
	ID          uuid.UUID
	Date        time.Time
	Description string
	Source      Source
	CreatedBy   string
	CreatedAt   time.Time
	// Metadata holds references to the business records behind automated postings.
	Metadata meta.Metadata
	Lines    []JournalLine
}

// JournalLine links a journal entry to an account with an amount on a side.
type JournalLine struct {
	ID        uuid.UUID
	EntryID   uuid.UUID
	AccountID uuid.UUID
	// AccountName is a copy of the account name at posting time.
	AccountName string
	Side        Side
	Amount      money.Amount
}

// Totals sums the debit and credit sides of the entry in curr.
func (e JournalEntry) Totals(curr string) (debits, credits money.Amount, err error) {
	debits, credits = Zero(curr), Zero(curr)
	for _, ln := range e.Lines {
		switch ln.Side {
		case SideDebit:
			if debits, err = debits.Add(ln.Amount); err != nil {
				return debits, credits, err
			}
		case SideCredit:
			if credits, err = credits.Add(ln.Amount); err != nil {
				return debits, credits, err
			}
		}
	}
	return debits, credits, nil
}

// SignedDelta is the balance change a line causes on an account of type t:
// debits increase asset/expense balances and decrease liability/equity/income
// balances; credits do the reverse.
func SignedDelta(t AccountType, side Side, amount money.Amount) money.Amount {
	if (side == SideDebit) == t.DebitNormal() {
		return amount
	}
	return amount.Neg()
}

// AuditRecord is one entry of the audit trail.
type AuditRecord struct {
	ID     uuid.UUID
	Actor  string
	Role   Role
	Action string
	Target string
	Detail meta.Metadata
	At     time.Time
}
