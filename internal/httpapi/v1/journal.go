package v1

import (
	"net/http"

	chi "github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/service/journal"
)

func (s *Server) listEntries(w http.ResponseWriter, r *http.Request) {
	entries, err := s.svc.Journal.ListEntries(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	toJSON(w, http.StatusOK, list(out))
}

func (s *Server) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := s.pathID(w, r, "id")
	if !ok {
		return
	}
	e, err := s.svc.Journal.GetEntry(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	toJSON(w, http.StatusOK, toEntryResponse(e))
}

// postEntry handles POST /accounting/journal with a draft built by validatePostEntry.
func (s *Server) postEntry(w http.ResponseWriter, r *http.Request) {
	d, _ := r.Context().Value(ctxKeyPostEntry).(journal.Draft)
	who, _ := IdentityFrom(r.Context())
	e, err := s.svc.Journal.Post(r.Context(), d)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	s.svc.Audit.Record(r.Context(), who, audit.ActionJournalPost, e.ID.String(), meta.Of("description", e.Description))
	toJSON(w, http.StatusCreated, toEntryResponse(e))
}

// pathID parses a uuid URL parameter, writing a 400 when it is malformed.
func (s *Server) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		s.fail(w, r, errs.Invalid("invalid_id", "invalid %s", name))
		return uuid.Nil, false
	}
	return id, true
}
