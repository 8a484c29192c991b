package v1

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/service/loan"
	"github.com/tinoosan/loanledger/internal/service/report"
)

// minorUnits is nil when a cannot be expressed as int64 minor units.
func minorUnits(a money.Amount) *int64 {
	u, err := ledger.Minor(a)
	if err != nil {
		return nil
	}
	return &u
}

// decimalInput accepts a JSON number or a decimal string.
type decimalInput string

func (d *decimalInput) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*d = decimalInput(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return errors.New("must be a number or a decimal string")
	}
	*d = decimalInput(n.String())
	return nil
}

// dateInput accepts RFC 3339 timestamps or plain YYYY-MM-DD dates (UTC midnight).
type dateInput struct{ time.Time }

func (d *dateInput) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return errors.New("date must be a string")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		d.Time = t.UTC()
		return nil
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return errors.New("date must be RFC 3339 or YYYY-MM-DD")
	}
	d.Time = t
	return nil
}

func (d *dateInput) value() time.Time {
	if d == nil {
		return time.Time{}
	}
	return d.Time
}

// --- requests ---

type accountRequest struct {
	ID   uuid.UUID          `json:"id,omitempty"`
	Name string             `json:"name"`
	Type ledger.AccountType `json:"type"`
}

type postEntryRequest struct {
	Date        dateInput         `json:"date"`
	Description string            `json:"description"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Lines       []postEntryLine   `json:"lines"`
}

type postEntryLine struct {
	AccountID uuid.UUID    `json:"accountId"`
	Type      ledger.Side  `json:"type"`
	Amount    decimalInput `json:"amount"`
}

type monthEndRequest struct {
	Action   string `json:"action"`
	PeriodID string `json:"periodId"`
	Reason   string `json:"reason,omitempty"`
}

type createLoanRequest struct {
	BorrowerID   string       `json:"borrowerId"`
	BorrowerName string       `json:"borrowerName"`
	Principal    decimalInput `json:"principal"`
	InterestRate decimalInput `json:"interestRate"`
	DisbursedAt  *dateInput   `json:"disbursedAt,omitempty"`
	DueDate      *dateInput   `json:"dueDate,omitempty"`
}

type paymentRequest struct {
	Amount decimalInput `json:"amount"`
	PaidAt *dateInput   `json:"paidAt,omitempty"`
}

// --- responses ---

type listResponse[T any] struct {
	Items []T `json:"items"`
}

func list[T any](items []T) listResponse[T] {
	if items == nil {
		items = []T{}
	}
	return listResponse[T]{Items: items}
}

type accountResponse struct {
	ID           uuid.UUID          `json:"id"`
	Code         string             `json:"code"`
	Name         string             `json:"name"`
	Type         ledger.AccountType `json:"type"`
	Balance      string             `json:"balance"`
	BalanceMinor *int64             `json:"balanceMinor,omitempty"`
	Currency     string             `json:"currency"`
	CreatedAt    time.Time          `json:"createdAt"`
	UpdatedAt    time.Time          `json:"updatedAt"`
}

func toAccountResponse(a ledger.Account) accountResponse {
	return accountResponse{
		ID:           a.ID,
		Code:         a.Code,
		Name:         a.Name,
		Type:         a.Type,
		Balance:      ledger.Format(a.Balance),
		BalanceMinor: minorUnits(a.Balance),
		Currency:     a.Balance.Curr().Code(),
		CreatedAt:    a.CreatedAt,
		UpdatedAt:    a.UpdatedAt,
	}
}

type lineResponse struct {
	ID          uuid.UUID   `json:"id"`
	AccountID   uuid.UUID   `json:"accountId"`
	AccountName string      `json:"accountName"`
	Type        ledger.Side `json:"type"`
	Amount      string      `json:"amount"`
	AmountMinor *int64      `json:"amountMinor,omitempty"`
}

type entryResponse struct {
	ID          uuid.UUID         `json:"id"`
	Date        time.Time         `json:"date"`
	Description string            `json:"description"`
	Source      ledger.Source     `json:"source"`
	CreatedBy   string            `json:"createdBy"`
	CreatedAt   time.Time         `json:"createdAt"`
	Metadata    map[string]string `json:"metadata,omitempty"`
	Lines       []lineResponse    `json:"lines"`
}

func toEntryResponse(e ledger.JournalEntry) entryResponse {
	lines := make([]lineResponse, 0, len(e.Lines))
	for _, ln := range e.Lines {
		lines = append(lines, lineResponse{
			ID:          ln.ID,
			AccountID:   ln.AccountID,
			AccountName: ln.AccountName,
			Type:        ln.Side,
			Amount:      ledger.Format(ln.Amount),
			AmountMinor: minorUnits(ln.Amount),
		})
	}
	var md map[string]string
	if len(e.Metadata) > 0 {
		md = e.Metadata
	}
	return entryResponse{
		ID:          e.ID,
		Date:        e.Date,
		Description: e.Description,
		Source:      e.Source,
		CreatedBy:   e.CreatedBy,
		CreatedAt:   e.CreatedAt,
		Metadata:    md,
		Lines:       lines,
	}
}

type closureResponse struct {
	PeriodID              string               `json:"periodId"`
	Status                ledger.ClosureStatus `json:"status"`
	InitiatedBy           string               `json:"initiatedBy,omitempty"`
	InitiatedAt           *time.Time           `json:"initiatedAt,omitempty"`
	ApprovedBy            string               `json:"approvedBy,omitempty"`
	ApprovedAt            *time.Time           `json:"approvedAt,omitempty"`
	RejectedBy            string               `json:"rejectedBy,omitempty"`
	RejectedAt            *time.Time           `json:"rejectedAt,omitempty"`
	RejectReason          string               `json:"rejectReason,omitempty"`
	ProcessedBy           string               `json:"processedBy,omitempty"`
	ProcessedAt           *time.Time           `json:"processedAt,omitempty"`
	ClosingJournalEntryID *uuid.UUID           `json:"closingJournalEntryId,omitempty"`
	TotalRevenue          string               `json:"totalRevenue,omitempty"`
	TotalExpenses         string               `json:"totalExpenses,omitempty"`
	NetProfit             string               `json:"netProfit,omitempty"`
}

func toClosureResponse(c ledger.MonthEndClosure) closureResponse {
	out := closureResponse{
		PeriodID:              c.PeriodID,
		Status:                c.Status,
		InitiatedBy:           c.InitiatedBy,
		InitiatedAt:           c.InitiatedAt,
		ApprovedBy:            c.ApprovedBy,
		ApprovedAt:            c.ApprovedAt,
		RejectedBy:            c.RejectedBy,
		RejectedAt:            c.RejectedAt,
		RejectReason:          c.RejectReason,
		ProcessedBy:           c.ProcessedBy,
		ProcessedAt:           c.ProcessedAt,
		ClosingJournalEntryID: c.ClosingEntryID,
	}
	if c.Status == ledger.ClosureStatusProcessed {
		out.TotalRevenue = ledger.Format(c.TotalRevenue)
		out.TotalExpenses = ledger.Format(c.TotalExpenses)
		out.NetProfit = ledger.Format(c.NetProfit)
	}
	return out
}

type allocationResponse struct {
	TotalOwed     string `json:"totalOwed"`
	InterestOwed  string `json:"interestOwed"`
	InterestPaid  string `json:"interestPaid"`
	PrincipalPaid string `json:"principalPaid"`
	Outstanding   string `json:"outstanding"`
}

type loanResponse struct {
	ID                      uuid.UUID           `json:"id"`
	BorrowerID              string              `json:"borrowerId,omitempty"`
	BorrowerName            string              `json:"borrowerName,omitempty"`
	Principal               string              `json:"principal"`
	PrincipalMinor          *int64              `json:"principalMinor,omitempty"`
	InterestRate            string              `json:"interestRate"`
	InterestOwed            string              `json:"interestOwed"`
	TotalOwed               string              `json:"totalOwed"`
	OutstandingBalance      string              `json:"outstandingBalance"`
	OutstandingBalanceMinor *int64              `json:"outstandingBalanceMinor,omitempty"`
	Status                  ledger.LoanStatus   `json:"status"`
	DisbursedAt             time.Time           `json:"disbursedAt"`
	DueDate                 *time.Time          `json:"dueDate,omitempty"`
	JournalEntryID          uuid.UUID           `json:"disbursementJournalEntryId"`
	CreatedBy               string              `json:"createdBy"`
	CreatedAt               time.Time           `json:"createdAt"`
	Allocation              *allocationResponse `json:"allocation,omitempty"`
}

func toLoanResponse(l ledger.Loan) loanResponse {
	total, _ := l.TotalOwed()
	return loanResponse{
		ID:                      l.ID,
		BorrowerID:              l.BorrowerID,
		BorrowerName:            l.BorrowerName,
		Principal:               ledger.Format(l.Principal),
		PrincipalMinor:          minorUnits(l.Principal),
		InterestRate:            l.InterestRate.String(),
		InterestOwed:            ledger.Format(l.InterestOwed),
		TotalOwed:               ledger.Format(total),
		OutstandingBalance:      ledger.Format(l.OutstandingBalance),
		OutstandingBalanceMinor: minorUnits(l.OutstandingBalance),
		Status:                  l.Status,
		DisbursedAt:             l.DisbursedAt,
		DueDate:                 l.DueDate,
		JournalEntryID:          l.DisbursementEntry,
		CreatedBy:               l.CreatedBy,
		CreatedAt:               l.CreatedAt,
	}
}

func toAllocationResponse(a loan.Allocation) *allocationResponse {
	return &allocationResponse{
		TotalOwed:     ledger.Format(a.TotalOwed),
		InterestOwed:  ledger.Format(a.InterestOwed),
		InterestPaid:  ledger.Format(a.InterestPaid),
		PrincipalPaid: ledger.Format(a.PrincipalPaid),
		Outstanding:   ledger.Format(a.Outstanding),
	}
}

type paymentResponse struct {
	ID               uuid.UUID `json:"id"`
	LoanID           uuid.UUID `json:"loanId"`
	Sequence         int       `json:"sequence"`
	Amount           string    `json:"amount"`
	AmountMinor      *int64    `json:"amountMinor,omitempty"`
	InterestPortion  string    `json:"interestPortion"`
	PrincipalPortion string    `json:"principalPortion"`
	PaidAt           time.Time `json:"paidAt"`
	JournalEntryID   uuid.UUID `json:"journalEntryId"`
	RecordedBy       string    `json:"recordedBy"`
	CreatedAt        time.Time `json:"createdAt"`
}

func toPaymentResponse(p ledger.Payment) paymentResponse {
	return paymentResponse{
		ID:               p.ID,
		LoanID:           p.LoanID,
		Sequence:         p.Sequence,
		Amount:           ledger.Format(p.Amount),
		AmountMinor:      minorUnits(p.Amount),
		InterestPortion:  ledger.Format(p.InterestPortion),
		PrincipalPortion: ledger.Format(p.PrincipalPortion),
		PaidAt:           p.PaidAt,
		JournalEntryID:   p.JournalEntryID,
		RecordedBy:       p.RecordedBy,
		CreatedAt:        p.CreatedAt,
	}
}

type statementLine struct {
	AccountID    uuid.UUID          `json:"accountId"`
	Name         string             `json:"name"`
	Type         ledger.AccountType `json:"type"`
	Balance      string             `json:"balance"`
	BalanceMinor *int64             `json:"balanceMinor,omitempty"`
}

func toStatementLines(lines []report.Line) []statementLine {
	out := make([]statementLine, 0, len(lines))
	for _, l := range lines {
		out = append(out, statementLine{AccountID: l.AccountID, Name: l.Name, Type: l.Type, Balance: ledger.Format(l.Balance), BalanceMinor: minorUnits(l.Balance)})
	}
	return out
}

type incomeStatementResponse struct {
	Income        []statementLine `json:"income"`
	Expenses      []statementLine `json:"expenses"`
	TotalIncome   string          `json:"totalIncome"`
	TotalExpenses string          `json:"totalExpenses"`
	NetProfit     string          `json:"netProfit"`
}

type balanceSheetResponse struct {
	Assets           []statementLine `json:"assets"`
	Liabilities      []statementLine `json:"liabilities"`
	Equity           []statementLine `json:"equity"`
	TotalAssets      string          `json:"totalAssets"`
	TotalLiabilities string          `json:"totalLiabilities"`
	TotalEquity      string          `json:"totalEquity"`
	NetProfit        string          `json:"netProfit"`
	Balanced         bool            `json:"balanced"`
}

type trialRowResponse struct {
	AccountID uuid.UUID          `json:"accountId"`
	Name      string             `json:"name"`
	Type      ledger.AccountType `json:"type"`
	Debit     string             `json:"debit"`
	Credit    string             `json:"credit"`
}

type trialBalanceResponse struct {
	Rows        []trialRowResponse `json:"rows"`
	TotalDebit  string             `json:"totalDebit"`
	TotalCredit string             `json:"totalCredit"`
	Balanced    bool               `json:"balanced"`
}

type atRiskLoanResponse struct {
	LoanID             uuid.UUID  `json:"loanId"`
	BorrowerName       string     `json:"borrowerName,omitempty"`
	OutstandingBalance string     `json:"outstandingBalance"`
	DueDate            *time.Time `json:"dueDate"`
	DaysOverdue        int        `json:"daysOverdue"`
}

type portfolioAtRiskResponse struct {
	AsOf             time.Time            `json:"asOf"`
	Loans            []atRiskLoanResponse `json:"loans"`
	AtRisk           string               `json:"atRisk"`
	TotalOutstanding string               `json:"totalOutstanding"`
	Ratio            string               `json:"ratio"`
}
