package v1

import (
	"encoding/json"
	"errors"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tinoosan/loanledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

// statusOf maps a service error to its HTTP status and code.
func statusOf(err error) (int, string) {
	var verr *errs.ValidationError
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, verr.Code
	case errors.Is(err, errs.ErrUnbalanced):
		return http.StatusBadRequest, "unbalanced"
	case errors.Is(err, errs.ErrOverpayment):
		return http.StatusBadRequest, "overpayment"
	case errors.Is(err, errs.ErrInvalid):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, errs.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, errs.ErrForbidden):
		return http.StatusForbidden, "forbidden"
	case errors.Is(err, errs.ErrAccountMissing):
		return http.StatusInternalServerError, "account_missing"
	case errors.Is(err, errs.ErrAccountNotFound):
		return http.StatusNotFound, "account_not_found"
	case errors.Is(err, errs.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, errs.ErrDuplicateName):
		return http.StatusConflict, "duplicate_name"
	case errors.Is(err, errs.ErrInvalidTransition):
		return http.StatusConflict, "invalid_transition"
	case errors.Is(err, errs.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, errs.ErrTxConflict):
		return http.StatusInternalServerError, "transaction_conflict"
	}
	return http.StatusInternalServerError, "internal"
}

// fail writes err as the standard error payload. Messages of unexpected
// failures are logged and replaced with a generic one.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, code := statusOf(err)
	msg := err.Error()
	switch code {
	case "internal":
		s.log.Error("request failed", "req_id", chimw.GetReqID(r.Context()), "err", err)
		msg = "internal error"
	case "transaction_conflict":
		s.log.Warn("transaction conflict", "req_id", chimw.GetReqID(r.Context()), "err", err)
		msg = "the operation conflicted with a concurrent update; try again"
	case "account_missing":
		s.log.Error("required account missing", "req_id", chimw.GetReqID(r.Context()), "err", err)
	}
	writeErr(w, status, msg, code)
}
