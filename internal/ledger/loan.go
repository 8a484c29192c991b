package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
)

// LoanStatus tracks whether a loan still has an outstanding balance.
type LoanStatus string

const (
	LoanStatusActive LoanStatus = "active"
	LoanStatusPaid   LoanStatus = "paid"
)

// Loan is a disbursed microloan with flat interest.
type Loan struct {
	ID           uuid.UUID
	BorrowerID   string
	BorrowerName string
	Principal    money.Amount
	// InterestRate is a flat percentage of principal, e.g. 10 for 10%.
	InterestRate decimal.Decimal
	// InterestOwed is principal × rate / 100, rounded once at creation.
	InterestOwed       money.Amount
	OutstandingBalance money.Amount
	Status             LoanStatus
	DisbursedAt        time.Time
	DueDate            *time.Time
	DisbursementEntry  uuid.UUID
	CreatedBy          string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// TotalOwed is principal plus interest owed.
func (l Loan) TotalOwed() (money.Amount, error) {
	return l.Principal.Add(l.InterestOwed)
}

// Payment is a repayment recorded against a loan.
type Payment struct {
	ID     uuid.UUID
	LoanID uuid.UUID
	// Sequence is the 1-based insertion order within the loan.
	Sequence         int
	Amount           money.Amount
	InterestPortion  money.Amount
	PrincipalPortion money.Amount
	PaidAt           time.Time
	JournalEntryID   uuid.UUID
	RecordedBy       string
	CreatedAt        time.Time
}
