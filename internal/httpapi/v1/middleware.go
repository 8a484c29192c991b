package v1

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/service/loan"
)

const (
	ctxKeyAccountRequest ctxKey = "validatedAccountRequest"
	ctxKeyPostEntry      ctxKey = "validatedPostEntry"
	ctxKeyPostLoan       ctxKey = "validatedPostLoan"
	ctxKeyPostPayment    ctxKey = "validatedPostPayment"
)

// validatedPayment is the decoded body of POST /loans/{id}/payments.
type validatedPayment struct {
	Amount money.Amount
	PaidAt time.Time
}

// validateAccountRequest decodes POST/PUT /accounting/accounts bodies. PUT
// requires an id. Name and type rules are left to the account service.
func (s *Server) validateAccountRequest(withID bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req accountRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			if withID && req.ID == uuid.Nil {
				s.fail(w, r, errs.Invalid("id_required", "id is required"))
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyAccountRequest, req)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostEntry decodes POST /accounting/journal, converts it to a draft
// in the book currency and runs the engine's stateless checks.
func (s *Server) validatePostEntry() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req postEntryRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			who, _ := IdentityFrom(r.Context())
			d, err := s.toDraft(req, who)
			if err != nil {
				s.fail(w, r, err)
				return
			}
			if len(d.Lines) < 2 {
				s.fail(w, r, errs.Invalid("too_few_lines", "a journal entry needs at least 2 lines"))
				return
			}
			if err := s.svc.Journal.Validate(d); err != nil {
				s.fail(w, r, err)
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostEntry, d)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostLoan decodes POST /loans into a loan.NewLoan.
func (s *Server) validatePostLoan() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req createLoanRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			curr := s.svc.Journal.Currency()
			principal, err := ledger.ParseAmount(curr, string(req.Principal))
			if err != nil {
				s.fail(w, r, errs.InvalidCause(err, "invalid_principal", "principal must be a decimal amount"))
				return
			}
			if req.InterestRate == "" {
				s.fail(w, r, errs.Invalid("rate_required", "interestRate is required"))
				return
			}
			rate, err := decimal.Parse(string(req.InterestRate))
			if err != nil {
				s.fail(w, r, errs.InvalidCause(err, "invalid_rate", "interestRate must be a decimal percentage"))
				return
			}
			in := loan.NewLoan{
				BorrowerID:   req.BorrowerID,
				BorrowerName: req.BorrowerName,
				Principal:    principal,
				InterestRate: rate,
				DisbursedAt:  req.DisbursedAt.value(),
			}
			if due := req.DueDate.value(); !due.IsZero() {
				in.DueDate = &due
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostLoan, in)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// validatePostPayment decodes POST /loans/{id}/payments.
func (s *Server) validatePostPayment() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			var req paymentRequest
			if !decodeJSON(w, r, &req) {
				return
			}
			amount, err := ledger.ParseAmount(s.svc.Journal.Currency(), string(req.Amount))
			if err != nil {
				s.fail(w, r, errs.InvalidCause(err, "invalid_amount", "amount must be a decimal amount"))
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyPostPayment, validatedPayment{Amount: amount, PaidAt: req.PaidAt.value()})
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func (s *Server) toDraft(req postEntryRequest, who ledger.Identity) (journal.Draft, error) {
	curr := s.svc.Journal.Currency()
	d := journal.Draft{
		Date:        req.Date.Time,
		Description: req.Description,
		Source:      ledger.SourceManual,
		CreatedBy:   who.Actor(),
		Lines:       make([]ledger.JournalLine, 0, len(req.Lines)),
	}
	if req.Metadata != nil {
		d.Metadata = meta.New(req.Metadata)
	}
	for i, ln := range req.Lines {
		amount, err := ledger.ParseAmount(curr, string(ln.Amount))
		if err != nil {
			return journal.Draft{}, errs.InvalidCause(err, "invalid_amount", "line[%d]: amount must be a decimal amount", i)
		}
		d.Lines = append(d.Lines, ledger.JournalLine{AccountID: ln.AccountID, Side: ln.Type, Amount: amount})
	}
	return d, nil
}
