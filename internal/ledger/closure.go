package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"
)

// ClosureStatus is the state of a month-end closure.
type ClosureStatus string

const (
	ClosureStatusNone            ClosureStatus = ""
	ClosureStatusPendingApproval ClosureStatus = "pending_approval"
	ClosureStatusApproved        ClosureStatus = "approved"
	ClosureStatusProcessed       ClosureStatus = "processed"
	ClosureStatusRejected        ClosureStatus = "rejected"
)

// PeriodLayout is the time layout of a period identifier (YYYY-MM).
const PeriodLayout = "2006-01"

// ParsePeriod validates a YYYY-MM period identifier.
func ParsePeriod(s string) (time.Time, error) {
	t, err := time.Parse(PeriodLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("period id must be YYYY-MM: %q", s)
	}
	return t, nil
}

// MonthEndClosure is the single closure document of a period.
type MonthEndClosure struct {
	PeriodID     string
	Status       ClosureStatus
	InitiatedBy  string
	InitiatedAt  *time.Time
	ApprovedBy   string
	ApprovedAt   *time.Time
	RejectedBy   string
	RejectedAt   *time.Time
	RejectReason string
	ProcessedBy  string
	ProcessedAt  *time.Time
	// ClosingEntryID is set once processing posted a closing entry.
	ClosingEntryID *uuid.UUID
	TotalRevenue   money.Amount
	TotalExpenses  money.Amount
	NetProfit      money.Amount
	UpdatedAt      time.Time
}
