package v1

import (
	"net/http"
	"strings"

	"github.com/tinoosan/loanledger/internal/service/closing"
)

// getMonthEnd handles GET /accounting/month-end?periodId=YYYY-MM.
func (s *Server) getMonthEnd(w http.ResponseWriter, r *http.Request) {
	period := strings.TrimSpace(r.URL.Query().Get("periodId"))
	c, err := s.svc.Closing.Get(r.Context(), period)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toClosureResponse(c))
}

// postMonthEnd handles POST /accounting/month-end. Role checks per action
// happen in the closing service.
func (s *Server) postMonthEnd(w http.ResponseWriter, r *http.Request) {
	var req monthEndRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	action, err := closing.ParseAction(req.Action)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	who, _ := IdentityFrom(r.Context())
	c, err := s.svc.Closing.Apply(r.Context(), who, action, strings.TrimSpace(req.PeriodID), req.Reason)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toClosureResponse(c))
}
