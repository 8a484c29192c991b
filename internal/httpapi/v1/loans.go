package v1

import (
	"net/http"

	"github.com/tinoosan/loanledger/internal/service/loan"
)

// postLoan handles POST /loans: the loan and its disbursement entry are created together.
func (s *Server) postLoan(w http.ResponseWriter, r *http.Request) {
	in, _ := r.Context().Value(ctxKeyPostLoan).(loan.NewLoan)
	who, _ := IdentityFrom(r.Context())
	l, err := s.svc.Loans.CreateLoan(r.Context(), who, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toLoanResponse(l))
}

func (s *Server) listLoans(w http.ResponseWriter, r *http.Request) {
	loans, err := s.svc.Loans.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]loanResponse, 0, len(loans))
	for _, l := range loans {
		out = append(out, toLoanResponse(l))
	}
	toJSON(w, http.StatusOK, list(out))
}

// getLoan returns the loan with its replayed allocation.
func (s *Server) getLoan(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	l, err := s.svc.Loans.Get(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	alloc, err := s.svc.Loans.Allocation(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := toLoanResponse(l)
	out.Allocation = toAllocationResponse(alloc)
	toJSON(w, http.StatusOK, out)
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	ps, err := s.svc.Loans.ListPayments(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]paymentResponse, 0, len(ps))
	for _, p := range ps {
		out = append(out, toPaymentResponse(p))
	}
	toJSON(w, http.StatusOK, list(out))
}

func (s *Server) postPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	req, _ := r.Context().Value(ctxKeyPostPayment).(validatedPayment)
	who, _ := IdentityFrom(r.Context())
	p, err := s.svc.Loans.RecordPayment(r.Context(), who, id, req.Amount, req.PaidAt)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toPaymentResponse(p))
}
