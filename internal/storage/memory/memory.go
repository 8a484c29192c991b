// Package memory provides an in-memory store used for development and tests.
// Transactions are serialised by a single lock and work on a copy of the
// state that replaces the committed state only when the callback succeeds.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/storage"
)

// state is everything a transaction may change.
type state struct {
	accounts map[uuid.UUID]ledger.Account
	entries  []ledger.JournalEntry
	loans    map[uuid.UUID]ledger.Loan
	payments map[uuid.UUID][]ledger.Payment
	closures map[string]ledger.MonthEndClosure
}

func newState() state {
	return state{
		accounts: make(map[uuid.UUID]ledger.Account),
		loans:    make(map[uuid.UUID]ledger.Loan),
		payments: make(map[uuid.UUID][]ledger.Payment),
		closures: make(map[string]ledger.MonthEndClosure),
	}
}

// clone copies the maps; entries and payment slices are append-only and are
// copied on write by the transaction.
func (st state) clone() state {
	out := state{
		accounts: make(map[uuid.UUID]ledger.Account, len(st.accounts)),
		entries:  st.entries[:len(st.entries):len(st.entries)],
		loans:    make(map[uuid.UUID]ledger.Loan, len(st.loans)),
		payments: make(map[uuid.UUID][]ledger.Payment, len(st.payments)),
		closures: make(map[string]ledger.MonthEndClosure, len(st.closures)),
	}
	for k, v := range st.accounts {
		out.accounts[k] = v
	}
	for k, v := range st.loans {
		out.loans[k] = v
	}
	for k, v := range st.payments {
		out.payments[k] = v[:len(v):len(v)]
	}
	for k, v := range st.closures {
		out.closures[k] = v
	}
	return out
}

// Store is an in-memory implementation of storage.Store.
type Store struct {
	mu    sync.RWMutex
	st    state
	audit []ledger.AuditRecord
	// auditErr, when set, is returned by AppendAudit.
	auditErr error
	now      func() time.Time
}

// New constructs an empty in-memory store.
func New() *Store {
	return &Store{st: newState(), now: func() time.Time { return time.Now().UTC() }}
}

// SeedAccount inserts an account outside the journal, for dev seeds and tests.
func (s *Store) SeedAccount(a ledger.Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.accounts[a.ID] = a
}

// FailAudit makes subsequent AppendAudit calls return err (nil restores).
func (s *Store) FailAudit(err error) {
	s.mu.Lock()
	s.auditErr = err
	s.mu.Unlock()
}

// AuditLog returns a copy of the stored audit records.
func (s *Store) AuditLog() []ledger.AuditRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.audit)
}

// Ready always succeeds for the memory store.
func (s *Store) Ready(context.Context) error { return nil }

// InTx implements storage.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.LedgerTx) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	t := &tx{st: s.st.clone(), now: s.now}
	if err := fn(ctx, t); err != nil {
		return err
	}
	s.st = t.st
	return nil
}

// AppendAudit implements storage.Store.
func (s *Store) AppendAudit(_ context.Context, rec ledger.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditErr != nil {
		return s.auditErr
	}
	s.audit = append(s.audit, rec)
	return nil
}

// --- reads ---

func (s *Store) ListAccounts(_ context.Context) ([]ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return sortedAccounts(s.st.accounts), nil
}

func (s *Store) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getAccount(s.st.accounts, id)
}

func (s *Store) ListEntries(_ context.Context) ([]ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.JournalEntry, len(s.st.entries))
	copy(out, s.st.entries)
	// insertion order breaks ties, newest first
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.After(out[j].Date) })
	return out, nil
}

func (s *Store) GetEntry(_ context.Context, id uuid.UUID) (ledger.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.st.entries {
		if e.ID == id {
			return e, nil
		}
	}
	return ledger.JournalEntry{}, fmt.Errorf("%w: journal entry %s", errs.ErrNotFound, id)
}

func (s *Store) ListLoans(_ context.Context) ([]ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]ledger.Loan, 0, len(s.st.loans))
	for _, l := range s.st.loans {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DisbursedAt.Equal(out[j].DisbursedAt) {
			return out[i].DisbursedAt.After(out[j].DisbursedAt)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *Store) GetLoan(_ context.Context, id uuid.UUID) (ledger.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getLoan(s.st.loans, id)
}

func (s *Store) ListPayments(_ context.Context, loanID uuid.UUID) ([]ledger.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return replayOrder(s.st.payments[loanID]), nil
}

func (s *Store) GetClosure(_ context.Context, periodID string) (ledger.MonthEndClosure, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.st.closures[periodID]
	if !ok {
		return ledger.MonthEndClosure{}, fmt.Errorf("%w: month-end closure %s", errs.ErrNotFound, periodID)
	}
	return c, nil
}

// --- transaction ---

type tx struct {
	st  state
	now func() time.Time
}

func (t *tx) ListAccounts(context.Context) ([]ledger.Account, error) {
	return sortedAccounts(t.st.accounts), nil
}

func (t *tx) GetAccount(_ context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(t.st.accounts, id)
}

func (t *tx) AccountByCode(_ context.Context, code string) (ledger.Account, error) {
	for _, a := range t.st.accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return ledger.Account{}, fmt.Errorf("%w: %s", errs.ErrAccountNotFound, code)
}

func (t *tx) codeTaken(code string, except uuid.UUID) bool {
	for id, a := range t.st.accounts {
		if id != except && a.Code == code {
			return true
		}
	}
	return false
}

func (t *tx) CreateAccount(_ context.Context, a ledger.Account) error {
	if t.codeTaken(a.Code, uuid.Nil) {
		return fmt.Errorf("%w: %q", errs.ErrDuplicateName, a.Name)
	}
	now := t.now()
	a.CreatedAt, a.UpdatedAt = now, now
	t.st.accounts[a.ID] = a
	return nil
}

func (t *tx) UpdateAccount(_ context.Context, a ledger.Account) error {
	cur, ok := t.st.accounts[a.ID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, a.ID)
	}
	if t.codeTaken(a.Code, a.ID) {
		return fmt.Errorf("%w: %q", errs.ErrDuplicateName, a.Name)
	}
	cur.Code, cur.Name, cur.Type = a.Code, a.Name, a.Type
	cur.UpdatedAt = t.now()
	t.st.accounts[a.ID] = cur
	return nil
}

func (t *tx) LockAccounts(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	for _, id := range ids {
		if a, ok := t.st.accounts[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

func (t *tx) InsertEntry(_ context.Context, e ledger.JournalEntry) error {
	e.Lines = slices.Clone(e.Lines)
	t.st.entries = append(t.st.entries, e)
	return nil
}

func (t *tx) ApplyDelta(_ context.Context, accountID uuid.UUID, delta money.Amount) error {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, accountID)
	}
	bal, err := a.Balance.Add(delta)
	if err != nil {
		return err
	}
	if err := fits(bal); err != nil {
		return err
	}
	a.Balance = bal
	a.UpdatedAt = t.now()
	t.st.accounts[accountID] = a
	return nil
}

func (t *tx) ZeroBalance(_ context.Context, accountID uuid.UUID) error {
	a, ok := t.st.accounts[accountID]
	if !ok {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, accountID)
	}
	a.Balance = ledger.Zero(a.Balance.Curr().Code())
	a.UpdatedAt = t.now()
	t.st.accounts[accountID] = a
	return nil
}

func (t *tx) CreateLoan(_ context.Context, l ledger.Loan) error {
	if _, ok := t.st.loans[l.ID]; ok {
		return fmt.Errorf("%w: loan %s exists", errs.ErrConflict, l.ID)
	}
	if err := fits(l.Principal, l.InterestOwed, l.OutstandingBalance); err != nil {
		return err
	}
	now := t.now()
	l.CreatedAt, l.UpdatedAt = now, now
	t.st.loans[l.ID] = l
	return nil
}

func (t *tx) LockLoan(_ context.Context, id uuid.UUID) (ledger.Loan, error) {
	return getLoan(t.st.loans, id)
}

func (t *tx) UpdateLoan(_ context.Context, l ledger.Loan) error {
	cur, ok := t.st.loans[l.ID]
	if !ok {
		return fmt.Errorf("%w: loan %s", errs.ErrNotFound, l.ID)
	}
	cur.OutstandingBalance = l.OutstandingBalance
	cur.Status = l.Status
	cur.UpdatedAt = t.now()
	t.st.loans[l.ID] = cur
	return nil
}

func (t *tx) ListPayments(_ context.Context, loanID uuid.UUID) ([]ledger.Payment, error) {
	return replayOrder(t.st.payments[loanID]), nil
}

func (t *tx) CreatePayment(_ context.Context, p ledger.Payment) error {
	for _, prev := range t.st.payments[p.LoanID] {
		if prev.Sequence == p.Sequence {
			return fmt.Errorf("%w: payment sequence %d", errs.ErrTxConflict, p.Sequence)
		}
	}
	p.CreatedAt = t.now()
	t.st.payments[p.LoanID] = append(slices.Clone(t.st.payments[p.LoanID]), p)
	return nil
}

func (t *tx) LockClosure(_ context.Context, periodID string) (ledger.MonthEndClosure, bool, error) {
	c, ok := t.st.closures[periodID]
	return c, ok, nil
}

func (t *tx) SaveClosure(_ context.Context, c ledger.MonthEndClosure) error {
	c.UpdatedAt = t.now()
	t.st.closures[c.PeriodID] = c
	return nil
}

// --- helpers ---

func sortedAccounts(m map[uuid.UUID]ledger.Account) []ledger.Account {
	out := make([]ledger.Account, 0, len(m))
	for _, a := range m {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		ni, nj := strings.ToLower(out[i].Name), strings.ToLower(out[j].Name)
		if ni != nj {
			return ni < nj
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}

func getAccount(m map[uuid.UUID]ledger.Account, id uuid.UUID) (ledger.Account, error) {
	a, ok := m[id]
	if !ok {
		return ledger.Account{}, fmt.Errorf("%w: %s", errs.ErrAccountNotFound, id)
	}
	return a, nil
}

func getLoan(m map[uuid.UUID]ledger.Loan, id uuid.UUID) (ledger.Loan, error) {
	l, ok := m[id]
	if !ok {
		return ledger.Loan{}, fmt.Errorf("%w: loan %s", errs.ErrNotFound, id)
	}
	return l, nil
}

func replayOrder(ps []ledger.Payment) []ledger.Payment {
	out := slices.Clone(ps)
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PaidAt.Equal(out[j].PaidAt) {
			return out[i].PaidAt.Before(out[j].PaidAt)
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out
}

// fits mirrors the bigint minor-unit columns of the Postgres store.
func fits(amounts ...money.Amount) error {
	for _, a := range amounts {
		if _, err := ledger.Minor(a); err != nil {
			return err
		}
	}
	return nil
}
