package v1

import (
	"net/http"
	"strings"
	"time"

	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/ledger"
)

func (s *Server) incomeStatement(w http.ResponseWriter, r *http.Request) {
	is, err := s.svc.Reports.IncomeStatement(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, incomeStatementResponse{
		Income:        toStatementLines(is.Income),
		Expenses:      toStatementLines(is.Expenses),
		TotalIncome:   ledger.Format(is.TotalIncome),
		TotalExpenses: ledger.Format(is.TotalExpenses),
		NetProfit:     ledger.Format(is.NetProfit),
	})
}

func (s *Server) balanceSheet(w http.ResponseWriter, r *http.Request) {
	bs, err := s.svc.Reports.BalanceSheet(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, balanceSheetResponse{
		Assets:           toStatementLines(bs.Assets),
		Liabilities:      toStatementLines(bs.Liabilities),
		Equity:           toStatementLines(bs.Equity),
		TotalAssets:      ledger.Format(bs.TotalAssets),
		TotalLiabilities: ledger.Format(bs.TotalLiabilities),
		TotalEquity:      ledger.Format(bs.TotalEquity),
		NetProfit:        ledger.Format(bs.NetProfit),
		Balanced:         bs.Balanced,
	})
}

func (s *Server) trialBalance(w http.ResponseWriter, r *http.Request) {
	tb, err := s.svc.Reports.TrialBalance(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	rows := make([]trialRowResponse, 0, len(tb.Rows))
	for _, row := range tb.Rows {
		rows = append(rows, trialRowResponse{
			AccountID: row.AccountID,
			Name:      row.Name,
			Type:      row.Type,
			Debit:     ledger.Format(row.Debit),
			Credit:    ledger.Format(row.Credit),
		})
	}
	toJSON(w, http.StatusOK, trialBalanceResponse{
		Rows:        rows,
		TotalDebit:  ledger.Format(tb.TotalDebit),
		TotalCredit: ledger.Format(tb.TotalCredit),
		Balanced:    tb.Balanced,
	})
}

// portfolioAtRisk handles GET /reports/portfolio-at-risk?asOf=. asOf defaults to now.
func (s *Server) portfolioAtRisk(w http.ResponseWriter, r *http.Request) {
	var asOf time.Time
	if raw := strings.TrimSpace(r.URL.Query().Get("asOf")); raw != "" {
		var d dateInput
		if err := d.UnmarshalJSON([]byte(`"` + raw + `"`)); err != nil {
			s.fail(w, r, errs.InvalidCause(err, "invalid_as_of", "asOf must be RFC 3339 or YYYY-MM-DD"))
			return
		}
		asOf = d.Time
	}
	par, err := s.svc.Reports.PortfolioAtRisk(r.Context(), asOf)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	loans := make([]atRiskLoanResponse, 0, len(par.Loans))
	for _, l := range par.Loans {
		loans = append(loans, atRiskLoanResponse{
			LoanID:             l.Loan.ID,
			BorrowerName:       l.Loan.BorrowerName,
			OutstandingBalance: ledger.Format(l.Loan.OutstandingBalance),
			DueDate:            l.Loan.DueDate,
			DaysOverdue:        l.DaysOverdue,
		})
	}
	toJSON(w, http.StatusOK, portfolioAtRiskResponse{
		AsOf:             par.AsOf,
		Loans:            loans,
		AtRisk:           ledger.Format(par.AtRisk),
		TotalOutstanding: ledger.Format(par.TotalOutstanding),
		Ratio:            par.Ratio.Trim(0).String(),
	})
}
