// Package journal is the posting engine: it validates balanced entries and
// applies their balance effects inside one store transaction. It is the only
// package that opens store transactions; other services post through
// Transact.
package journal

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/events"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/storage"
)

var (
	postingsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loanledger",
			Name:      "journal_postings_total",
			Help:      "Journal entries committed, by source",
		},
		[]string{"source"},
	)
	rejectionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "loanledger",
			Name:      "journal_rejections_total",
			Help:      "Journal entries rejected before persistence, by reason",
		},
		[]string{"reason"},
	)
)

// Draft is an entry to be posted. Line ids, entry id and account names are
// assigned by the engine.
type Draft struct {
	Date        time.Time
	Description string
	Source      ledger.Source
	CreatedBy   string
	Metadata    meta.Metadata
	Lines       []ledger.JournalLine
}

// Poster posts entries within a Transact callback.
type Poster interface {
	// Post validates and stores d and applies every line to its account.
	Post(ctx context.Context, d Draft) (ledger.JournalEntry, error)
	// ZeroBalances writes an exact zero balance on each account.
	ZeroBalances(ctx context.Context, accountIDs []uuid.UUID) error
}

// TxFunc is the unit of work run by Transact.
type TxFunc func(ctx context.Context, tx storage.Tx, p Poster) error

// Service exposes posting and reads over the journal.
type Service interface {
	// Post posts a manual entry; it requires at least two lines.
	Post(ctx context.Context, d Draft) (ledger.JournalEntry, error)
	// Validate checks d without touching the store.
	Validate(d Draft) error
	// Transact runs fn in one store transaction. Everything fn writes,
	// through tx or p, commits or rolls back together.
	Transact(ctx context.Context, fn TxFunc) error
	ListEntries(ctx context.Context) ([]ledger.JournalEntry, error)
	GetEntry(ctx context.Context, id uuid.UUID) (ledger.JournalEntry, error)
	// Currency is the book currency every amount must be in.
	Currency() string
}

type service struct {
	store  storage.Store
	curr   string
	log    *slog.Logger
	events events.Publisher
	now    func() time.Time
}

// Option customises the service.
type Option func(*service)

// WithEvents publishes journal.posted after each committed entry.
func WithEvents(p events.Publisher) Option { return func(s *service) { s.events = p } }

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option { return func(s *service) { s.now = now } }

func New(store storage.Store, currency string, logger *slog.Logger, opts ...Option) Service {
	s := &service{
		store: store,
		curr:  strings.ToUpper(currency),
		log:   logger,
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *service) Currency() string { return s.curr }

func (s *service) Post(ctx context.Context, d Draft) (ledger.JournalEntry, error) {
	if len(d.Lines) < 2 {
		rejectionsTotal.WithLabelValues("too_few_lines").Inc()
		return ledger.JournalEntry{}, errs.Invalid("too_few_lines", "a journal entry needs at least 2 lines")
	}
	d.Source = ledger.SourceManual
	var posted ledger.JournalEntry
	err := s.Transact(ctx, func(ctx context.Context, _ storage.Tx, p Poster) error {
		var err error
		posted, err = p.Post(ctx, d)
		return err
	})
	return posted, err
}

// restrictedTx hides the LedgerTx methods from Transact callbacks.
type restrictedTx struct{ storage.Tx }

func (s *service) Transact(ctx context.Context, fn TxFunc) error {
	var p *poster
	err := s.store.InTx(ctx, func(ctx context.Context, tx storage.LedgerTx) error {
		p = &poster{svc: s, tx: tx}
		return fn(ctx, restrictedTx{tx}, p)
	})
	if err != nil {
		return err
	}
	for _, e := range p.posted {
		postingsTotal.WithLabelValues(string(e.Source)).Inc()
		s.log.Info("journal entry posted", "entry_id", e.ID, "source", e.Source, "lines", len(e.Lines), "created_by", e.CreatedBy)
		events.Emit(ctx, s.events, s.log, events.JournalPosted, EntryEvent(e))
	}
	return nil
}

func (s *service) ListEntries(ctx context.Context) ([]ledger.JournalEntry, error) {
	return s.store.ListEntries(ctx)
}

func (s *service) GetEntry(ctx context.Context, id uuid.UUID) (ledger.JournalEntry, error) {
	if id == uuid.Nil {
		return ledger.JournalEntry{}, errs.Invalid("invalid_id", "entry id is required")
	}
	return s.store.GetEntry(ctx, id)
}

// Validate checks a draft without touching the store: required fields,
// positive amounts in the book currency, valid sides and balanced totals.
func (s *service) Validate(d Draft) error {
	if d.Date.IsZero() {
		return errs.Invalid("date_required", "date is required")
	}
	if strings.TrimSpace(d.Description) == "" {
		return errs.Invalid("description_required", "description is required")
	}
	if len(d.Lines) == 0 {
		return errs.Invalid("too_few_lines", "a journal entry needs at least 1 line")
	}
	if d.Metadata != nil {
		if err := d.Metadata.Validate(); err != nil {
			return errs.Invalid("invalid_metadata", "metadata: %v", err)
		}
	}
	for i, ln := range d.Lines {
		if ln.AccountID == uuid.Nil {
			return errs.Invalid("account_required", "line[%d]: accountId is required", i)
		}
		if !ln.Side.Valid() {
			return errs.Invalid("invalid_side", "line[%d]: type must be debit or credit", i)
		}
		if ln.Amount.Curr().Code() != s.curr {
			return errs.Invalid("currency_mismatch", "line[%d]: amount must be in %s", i, s.curr)
		}
		if !ln.Amount.IsPos() {
			return errs.Invalid("amount_not_positive", "line[%d]: amount must be > 0", i)
		}
	}
	debits, credits, err := ledger.JournalEntry{Lines: d.Lines}.Totals(s.curr)
	if err != nil {
		return err
	}
	ok, err := ledger.WithinTolerance(debits, credits)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: debits %s, credits %s", errs.ErrUnbalanced, ledger.Format(debits), ledger.Format(credits))
	}
	return nil
}

type poster struct {
	svc    *service
	tx     storage.LedgerTx
	posted []ledger.JournalEntry
}

func (p *poster) Post(ctx context.Context, d Draft) (ledger.JournalEntry, error) {
	if err := p.svc.Validate(d); err != nil {
		rejectionsTotal.WithLabelValues(reason(err)).Inc()
		return ledger.JournalEntry{}, err
	}

	ids := make([]uuid.UUID, 0, len(d.Lines))
	for _, ln := range d.Lines {
		ids = append(ids, ln.AccountID)
	}
	accounts, err := p.tx.LockAccounts(ctx, unique(ids))
	if err != nil {
		return ledger.JournalEntry{}, err
	}

	entry := ledger.JournalEntry{
		ID:          uuid.New(),
		Date:        d.Date.UTC(),
		Description: strings.TrimSpace(d.Description),
		Source:      d.Source,
		CreatedBy:   d.CreatedBy,
		CreatedAt:   p.svc.now(),
		Metadata:    d.Metadata.Clone(),
		Lines:       make([]ledger.JournalLine, 0, len(d.Lines)),
	}
	if entry.Source == "" {
		entry.Source = ledger.SourceManual
	}
	for i, ln := range d.Lines {
		acc, ok := accounts[ln.AccountID]
		if !ok {
			rejectionsTotal.WithLabelValues("account_not_found").Inc()
			return ledger.JournalEntry{}, errs.InvalidCause(errs.ErrAccountNotFound, "account_not_found", "line[%d]: account %s not found", i, ln.AccountID)
		}
		entry.Lines = append(entry.Lines, ledger.JournalLine{
			ID:          uuid.New(),
			EntryID:     entry.ID,
			AccountID:   acc.ID,
			AccountName: acc.Name,
			Side:        ln.Side,
			Amount:      ln.Amount,
		})
	}

	if err := p.tx.InsertEntry(ctx, entry); err != nil {
		return ledger.JournalEntry{}, err
	}
	for _, ln := range entry.Lines {
		delta := ledger.SignedDelta(accounts[ln.AccountID].Type, ln.Side, ln.Amount)
		if err := p.tx.ApplyDelta(ctx, ln.AccountID, delta); err != nil {
			return ledger.JournalEntry{}, err
		}
	}
	p.posted = append(p.posted, entry)
	return entry, nil
}

func (p *poster) ZeroBalances(ctx context.Context, accountIDs []uuid.UUID) error {
	for _, id := range accountIDs {
		if err := p.tx.ZeroBalance(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// EntryEvent is the journal.posted payload.
func EntryEvent(e ledger.JournalEntry) map[string]any {
	lines := make([]map[string]any, 0, len(e.Lines))
	for _, ln := range e.Lines {
		lines = append(lines, map[string]any{
			"accountId":   ln.AccountID,
			"accountName": ln.AccountName,
			"type":        ln.Side,
			"amount":      ledger.Format(ln.Amount),
		})
	}
	return map[string]any{
		"id":          e.ID,
		"date":        e.Date,
		"description": e.Description,
		"source":      e.Source,
		"metadata":    e.Metadata,
		"lines":       lines,
	}
}

func reason(err error) string {
	var v *errs.ValidationError
	switch {
	case errors.As(err, &v):
		return v.Code
	case errors.Is(err, errs.ErrUnbalanced):
		return "unbalanced"
	}
	return "other"
}

func unique(ids []uuid.UUID) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(ids))
	out := make([]uuid.UUID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
