package v1

import (
	"net/http"
)

// listAccounts handles GET /accounting/accounts.
func (s *Server) listAccounts(w http.ResponseWriter, r *http.Request) {
	accs, err := s.svc.Accounts.List(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]accountResponse, 0, len(accs))
	for _, a := range accs {
		out = append(out, toAccountResponse(a))
	}
	toJSON(w, http.StatusOK, list(out))
}

// postAccount handles POST /accounting/accounts.
func (s *Server) postAccount(w http.ResponseWriter, r *http.Request) {
	req, _ := r.Context().Value(ctxKeyAccountRequest).(accountRequest)
	who, _ := IdentityFrom(r.Context())
	acc, err := s.svc.Accounts.Create(r.Context(), who, req.Name, req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusCreated, toAccountResponse(acc))
}

// putAccount handles PUT /accounting/accounts. The balance is never taken
// from the request.
func (s *Server) putAccount(w http.ResponseWriter, r *http.Request) {
	req, _ := r.Context().Value(ctxKeyAccountRequest).(accountRequest)
	who, _ := IdentityFrom(r.Context())
	acc, err := s.svc.Accounts.RenameOrRetype(r.Context(), who, req.ID, req.Name, req.Type)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toAccountResponse(acc))
}
