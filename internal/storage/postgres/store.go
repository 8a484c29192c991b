// Package postgres provides the pgx-backed store. Every business transaction
// runs at serializable isolation and locks the rows it mutates; amounts are
// persisted as integer minor units of the book currency.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/govalues/decimal"
	"github.com/govalues/money"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/storage"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store holds a pgx connection pool and implements storage.Store.
// All methods are safe for concurrent use.
type Store struct {
	pool *pgxpool.Pool
	curr string
}

var (
	_ storage.Store        = (*Store)(nil)
	_ storage.ReadyChecker = (*Store)(nil)
	_ storage.LedgerTx     = (*tx)(nil)
)

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Open establishes a pgx pool using the provided connection string. currency
// is the book currency amounts are read back in.
func Open(ctx context.Context, dsn, currency string) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return &Store{pool: pool, curr: strings.ToUpper(currency)}, nil
}

// Close releases the underlying pool.
func (s *Store) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

// Ready pings the pool to verify connectivity.
func (s *Store) Ready(ctx context.Context) error { return s.pool.Ping(ctx) }

// Migrate applies the embedded migrations that have not run yet, in file name order.
func (s *Store) Migrate(ctx context.Context) ([]string, error) {
	if _, err := s.pool.Exec(ctx, `create table if not exists schema_migrations (
		version text primary key,
		applied_at timestamptz not null default now()
	)`); err != nil {
		return nil, err
	}
	names, err := fs.Glob(migrations, "migrations/*.sql")
	if err != nil {
		return nil, err
	}
	sort.Strings(names)
	var applied []string
	for _, name := range names {
		version := strings.TrimSuffix(strings.TrimPrefix(name, "migrations/"), ".sql")
		var exists bool
		if err := s.pool.QueryRow(ctx, `select exists(select 1 from schema_migrations where version = $1)`, version).Scan(&exists); err != nil {
			return applied, err
		}
		if exists {
			continue
		}
		body, err := migrations.ReadFile(name)
		if err != nil {
			return applied, err
		}
		err = pgx.BeginFunc(ctx, s.pool, func(t pgx.Tx) error {
			if _, err := t.Exec(ctx, string(body)); err != nil {
				return fmt.Errorf("migration %s: %w", version, err)
			}
			_, err := t.Exec(ctx, `insert into schema_migrations (version) values ($1)`, version)
			return err
		})
		if err != nil {
			return applied, err
		}
		applied = append(applied, version)
	}
	return applied, nil
}

// InTx implements storage.Store.
func (s *Store) InTx(ctx context.Context, fn func(ctx context.Context, tx storage.LedgerTx) error) error {
	pgtx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return mapErr(err)
	}
	defer func() { _ = pgtx.Rollback(ctx) }()
	if err := fn(ctx, &tx{q: pgtx, curr: s.curr}); err != nil {
		return mapErr(err)
	}
	return mapErr(pgtx.Commit(ctx))
}

// AppendAudit implements storage.Store.
func (s *Store) AppendAudit(ctx context.Context, rec ledger.AuditRecord) error {
	detail, err := rec.Detail.MarshalStableJSON()
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		insert into audit_log (id, actor, role, action, target, detail, at)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, rec.ID, rec.Actor, string(rec.Role), rec.Action, rec.Target, detail, rec.At)
	return err
}

// mapErr translates constraint and serialization failures into sentinels.
func mapErr(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch pgErr.Code {
	case "40001", "40P01":
		return fmt.Errorf("%w: %s", errs.ErrTxConflict, pgErr.Message)
	case "22003":
		return errs.InvalidCause(err, "amount_out_of_range", "%s", pgErr.Message)
	case "23505":
		if pgErr.ConstraintName == "accounts_code_key" {
			return fmt.Errorf("%w: %s", errs.ErrDuplicateName, pgErr.Detail)
		}
		return fmt.Errorf("%w: %s", errs.ErrConflict, pgErr.Detail)
	}
	return err
}

// --- reads ---

func (s *Store) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, s.pool, s.curr, "")
}

func (s *Store) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, s.pool, s.curr, `where id = $1`, id)
}

func (s *Store) ListEntries(ctx context.Context) ([]ledger.JournalEntry, error) {
	return listEntries(ctx, s.pool, s.curr)
}

func (s *Store) GetEntry(ctx context.Context, id uuid.UUID) (ledger.JournalEntry, error) {
	return getEntry(ctx, s.pool, s.curr, id)
}

func (s *Store) ListLoans(ctx context.Context) ([]ledger.Loan, error) {
	rows, err := s.pool.Query(ctx, loanColumns+` order by disbursed_at desc, created_at desc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]ledger.Loan, 0)
	for rows.Next() {
		l, err := scanLoan(rows, s.curr)
		if err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (s *Store) GetLoan(ctx context.Context, id uuid.UUID) (ledger.Loan, error) {
	return getLoan(ctx, s.pool, s.curr, id, false)
}

func (s *Store) ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error) {
	return listPayments(ctx, s.pool, s.curr, loanID)
}

func (s *Store) GetClosure(ctx context.Context, periodID string) (ledger.MonthEndClosure, error) {
	c, found, err := getClosure(ctx, s.pool, s.curr, periodID, false)
	if err != nil {
		return ledger.MonthEndClosure{}, err
	}
	if !found {
		return ledger.MonthEndClosure{}, fmt.Errorf("%w: month-end closure %s", errs.ErrNotFound, periodID)
	}
	return c, nil
}

// --- transaction ---

type tx struct {
	q    pgx.Tx
	curr string
}

func (t *tx) ListAccounts(ctx context.Context) ([]ledger.Account, error) {
	return listAccounts(ctx, t.q, t.curr, "")
}

func (t *tx) GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	return getAccount(ctx, t.q, t.curr, `where id = $1`, id)
}

func (t *tx) AccountByCode(ctx context.Context, code string) (ledger.Account, error) {
	return getAccount(ctx, t.q, t.curr, `where code = $1`, code)
}

func (t *tx) CreateAccount(ctx context.Context, a ledger.Account) error {
	m, err := minors(a.Balance)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		insert into accounts (id, code, name, type, balance_minor)
		values ($1,$2,$3,$4,$5)
	`, a.ID, a.Code, a.Name, string(a.Type), m[0])
	return mapErr(err)
}

func (t *tx) UpdateAccount(ctx context.Context, a ledger.Account) error {
	ct, err := t.q.Exec(ctx, `
		update accounts set code=$1, name=$2, type=$3, updated_at=now()
		where id=$4
	`, a.Code, a.Name, string(a.Type), a.ID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, a.ID)
	}
	return nil
}

func (t *tx) LockAccounts(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]ledger.Account, error) {
	out := make(map[uuid.UUID]ledger.Account, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	// id order keeps concurrent postings from deadlocking on each other
	accounts, err := listAccounts(ctx, t.q, t.curr, `where id = any($1) order by id for update`, ids)
	if err != nil {
		return nil, err
	}
	for _, a := range accounts {
		out[a.ID] = a
	}
	return out, nil
}

func (t *tx) InsertEntry(ctx context.Context, e ledger.JournalEntry) error {
	md, err := e.Metadata.MarshalStableJSON()
	if err != nil {
		return err
	}
	if _, err := t.q.Exec(ctx, `
		insert into journal_entries (id, date, description, source, created_by, created_at, metadata)
		values ($1,$2,$3,$4,$5,$6,$7)
	`, e.ID, e.Date, e.Description, string(e.Source), e.CreatedBy, e.CreatedAt, md); err != nil {
		return mapErr(err)
	}
	for i, ln := range e.Lines {
		m, err := minors(ln.Amount)
		if err != nil {
			return fmt.Errorf("line %d: %w", i, err)
		}
		if _, err := t.q.Exec(ctx, `
			insert into journal_lines (id, entry_id, position, account_id, account_name, side, amount_minor)
			values ($1,$2,$3,$4,$5,$6,$7)
		`, ln.ID, e.ID, i, ln.AccountID, ln.AccountName, string(ln.Side), m[0]); err != nil {
			return fmt.Errorf("insert line: %w", mapErr(err))
		}
	}
	return nil
}

func (t *tx) ApplyDelta(ctx context.Context, accountID uuid.UUID, delta money.Amount) error {
	m, err := minors(delta)
	if err != nil {
		return err
	}
	ct, err := t.q.Exec(ctx, `
		update accounts set balance_minor = balance_minor + $1, updated_at = now()
		where id = $2
	`, m[0], accountID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, accountID)
	}
	return nil
}

func (t *tx) ZeroBalance(ctx context.Context, accountID uuid.UUID) error {
	ct, err := t.q.Exec(ctx, `update accounts set balance_minor = 0, updated_at = now() where id = $1`, accountID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", errs.ErrAccountNotFound, accountID)
	}
	return nil
}

func (t *tx) CreateLoan(ctx context.Context, l ledger.Loan) error {
	m, err := minors(l.Principal, l.InterestOwed, l.OutstandingBalance)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		insert into loans (id, borrower_id, borrower_name, principal_minor, interest_rate, interest_owed_minor,
			outstanding_minor, status, disbursed_at, due_date, disbursement_entry_id, created_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, l.ID, l.BorrowerID, l.BorrowerName, m[0], l.InterestRate.String(), m[1],
		m[2], string(l.Status), l.DisbursedAt, l.DueDate, l.DisbursementEntry, l.CreatedBy)
	return mapErr(err)
}

func (t *tx) LockLoan(ctx context.Context, id uuid.UUID) (ledger.Loan, error) {
	return getLoan(ctx, t.q, t.curr, id, true)
}

func (t *tx) UpdateLoan(ctx context.Context, l ledger.Loan) error {
	m, err := minors(l.OutstandingBalance)
	if err != nil {
		return err
	}
	ct, err := t.q.Exec(ctx, `
		update loans set outstanding_minor=$1, status=$2, updated_at=now() where id=$3
	`, m[0], string(l.Status), l.ID)
	if err != nil {
		return mapErr(err)
	}
	if ct.RowsAffected() == 0 {
		return fmt.Errorf("%w: loan %s", errs.ErrNotFound, l.ID)
	}
	return nil
}

func (t *tx) ListPayments(ctx context.Context, loanID uuid.UUID) ([]ledger.Payment, error) {
	return listPayments(ctx, t.q, t.curr, loanID)
}

func (t *tx) CreatePayment(ctx context.Context, p ledger.Payment) error {
	m, err := minors(p.Amount, p.InterestPortion, p.PrincipalPortion)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		insert into loan_payments (id, loan_id, sequence, amount_minor, interest_minor, principal_minor,
			paid_at, journal_entry_id, recorded_by)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.LoanID, p.Sequence, m[0], m[1], m[2],
		p.PaidAt, p.JournalEntryID, p.RecordedBy)
	return mapErr(err)
}

func (t *tx) LockClosure(ctx context.Context, periodID string) (ledger.MonthEndClosure, bool, error) {
	return getClosure(ctx, t.q, t.curr, periodID, true)
}

func (t *tx) SaveClosure(ctx context.Context, c ledger.MonthEndClosure) error {
	m, err := minors(c.TotalRevenue, c.TotalExpenses, c.NetProfit)
	if err != nil {
		return err
	}
	_, err = t.q.Exec(ctx, `
		insert into month_end_closures (period_id, status, initiated_by, initiated_at, approved_by, approved_at,
			rejected_by, rejected_at, reject_reason, processed_by, processed_at, closing_entry_id,
			total_revenue_minor, total_expenses_minor, net_profit_minor, updated_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,now())
		on conflict (period_id) do update set
			status=excluded.status,
			initiated_by=excluded.initiated_by, initiated_at=excluded.initiated_at,
			approved_by=excluded.approved_by, approved_at=excluded.approved_at,
			rejected_by=excluded.rejected_by, rejected_at=excluded.rejected_at, reject_reason=excluded.reject_reason,
			processed_by=excluded.processed_by, processed_at=excluded.processed_at,
			closing_entry_id=excluded.closing_entry_id,
			total_revenue_minor=excluded.total_revenue_minor,
			total_expenses_minor=excluded.total_expenses_minor,
			net_profit_minor=excluded.net_profit_minor,
			updated_at=now()
	`, c.PeriodID, string(c.Status), c.InitiatedBy, c.InitiatedAt, c.ApprovedBy, c.ApprovedAt,
		c.RejectedBy, c.RejectedAt, c.RejectReason, c.ProcessedBy, c.ProcessedAt, c.ClosingEntryID,
		m[0], m[1], m[2])
	return mapErr(err)
}

// minors converts amounts to minor units for bigint columns.
func minors(amounts ...money.Amount) ([]int64, error) {
	out := make([]int64, len(amounts))
	for i, a := range amounts {
		u, err := ledger.Minor(a)
		if err != nil {
			return nil, err
		}
		out[i] = u
	}
	return out, nil
}

// --- row mapping ---

const accountColumns = `select id, code, name, type, balance_minor, created_at, updated_at from accounts `

func scanAccount(row pgx.Row, curr string) (ledger.Account, error) {
	var a ledger.Account
	var typ string
	var balance int64
	if err := row.Scan(&a.ID, &a.Code, &a.Name, &typ, &balance, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return ledger.Account{}, err
	}
	a.Type = ledger.AccountType(typ)
	a.Balance = ledger.FromMinor(curr, balance)
	return a, nil
}

func listAccounts(ctx context.Context, q querier, curr, where string, args ...any) ([]ledger.Account, error) {
	if where == "" {
		where = `order by lower(name), id`
	}
	rows, err := q.Query(ctx, accountColumns+where, args...)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := make([]ledger.Account, 0)
	for rows.Next() {
		a, err := scanAccount(rows, curr)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, mapErr(rows.Err())
}

func getAccount(ctx context.Context, q querier, curr, where string, arg any) (ledger.Account, error) {
	a, err := scanAccount(q.QueryRow(ctx, accountColumns+where, arg), curr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Account{}, fmt.Errorf("%w: %v", errs.ErrAccountNotFound, arg)
	}
	return a, mapErr(err)
}

const entryColumns = `select id, date, description, source, created_by, created_at, metadata from journal_entries `

func scanEntry(row pgx.Row) (ledger.JournalEntry, error) {
	var e ledger.JournalEntry
	var source string
	var md []byte
	if err := row.Scan(&e.ID, &e.Date, &e.Description, &source, &e.CreatedBy, &e.CreatedAt, &md); err != nil {
		return ledger.JournalEntry{}, err
	}
	e.Source = ledger.Source(source)
	if len(md) > 0 {
		var m meta.Metadata
		if err := m.UnmarshalJSON(md); err == nil {
			e.Metadata = m
		}
	}
	return e, nil
}

func listEntries(ctx context.Context, q querier, curr string) ([]ledger.JournalEntry, error) {
	rows, err := q.Query(ctx, entryColumns+`order by date desc, created_at desc, id`)
	if err != nil {
		return nil, err
	}
	entries := make([]ledger.JournalEntry, 0)
	ids := make([]uuid.UUID, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		entries = append(entries, e)
		ids = append(ids, e.ID)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return entries, nil
	}
	idx := make(map[uuid.UUID]*ledger.JournalEntry, len(entries))
	for i := range entries {
		idx[entries[i].ID] = &entries[i]
	}
	err = eachLine(ctx, q, curr, `where entry_id = any($1) order by entry_id, position`, ids, func(ln ledger.JournalLine) {
		if e := idx[ln.EntryID]; e != nil {
			e.Lines = append(e.Lines, ln)
		}
	})
	return entries, err
}

func getEntry(ctx context.Context, q querier, curr string, id uuid.UUID) (ledger.JournalEntry, error) {
	e, err := scanEntry(q.QueryRow(ctx, entryColumns+`where id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.JournalEntry{}, fmt.Errorf("%w: journal entry %s", errs.ErrNotFound, id)
	}
	if err != nil {
		return ledger.JournalEntry{}, err
	}
	err = eachLine(ctx, q, curr, `where entry_id = $1 order by position`, id, func(ln ledger.JournalLine) {
		e.Lines = append(e.Lines, ln)
	})
	return e, err
}

func eachLine(ctx context.Context, q querier, curr, where string, arg any, fn func(ledger.JournalLine)) error {
	rows, err := q.Query(ctx, `select id, entry_id, account_id, account_name, side, amount_minor from journal_lines `+where, arg)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var ln ledger.JournalLine
		var side string
		var minor int64
		if err := rows.Scan(&ln.ID, &ln.EntryID, &ln.AccountID, &ln.AccountName, &side, &minor); err != nil {
			return err
		}
		ln.Side = ledger.Side(side)
		ln.Amount = ledger.FromMinor(curr, minor)
		fn(ln)
	}
	return rows.Err()
}

const loanColumns = `select id, borrower_id, borrower_name, principal_minor, interest_rate, interest_owed_minor,
	outstanding_minor, status, disbursed_at, due_date, disbursement_entry_id, created_by, created_at, updated_at
	from loans `

func scanLoan(row pgx.Row, curr string) (ledger.Loan, error) {
	var l ledger.Loan
	var principal, interest, outstanding int64
	var rate, status string
	if err := row.Scan(&l.ID, &l.BorrowerID, &l.BorrowerName, &principal, &rate, &interest,
		&outstanding, &status, &l.DisbursedAt, &l.DueDate, &l.DisbursementEntry, &l.CreatedBy, &l.CreatedAt, &l.UpdatedAt); err != nil {
		return ledger.Loan{}, err
	}
	r, err := decimal.Parse(rate)
	if err != nil {
		return ledger.Loan{}, fmt.Errorf("loan %s interest rate %q: %w", l.ID, rate, err)
	}
	l.InterestRate = r
	l.Principal = ledger.FromMinor(curr, principal)
	l.InterestOwed = ledger.FromMinor(curr, interest)
	l.OutstandingBalance = ledger.FromMinor(curr, outstanding)
	l.Status = ledger.LoanStatus(status)
	return l, nil
}

func getLoan(ctx context.Context, q querier, curr string, id uuid.UUID, lock bool) (ledger.Loan, error) {
	sql := loanColumns + `where id = $1`
	if lock {
		sql += ` for update`
	}
	l, err := scanLoan(q.QueryRow(ctx, sql, id), curr)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.Loan{}, fmt.Errorf("%w: loan %s", errs.ErrNotFound, id)
	}
	return l, mapErr(err)
}

func listPayments(ctx context.Context, q querier, curr string, loanID uuid.UUID) ([]ledger.Payment, error) {
	rows, err := q.Query(ctx, `
		select id, loan_id, sequence, amount_minor, interest_minor, principal_minor, paid_at, journal_entry_id, recorded_by, created_at
		from loan_payments
		where loan_id = $1
		order by paid_at, sequence
	`, loanID)
	if err != nil {
		return nil, mapErr(err)
	}
	defer rows.Close()
	out := make([]ledger.Payment, 0)
	for rows.Next() {
		var p ledger.Payment
		var amount, interest, principal int64
		if err := rows.Scan(&p.ID, &p.LoanID, &p.Sequence, &amount, &interest, &principal, &p.PaidAt, &p.JournalEntryID, &p.RecordedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		p.Amount = ledger.FromMinor(curr, amount)
		p.InterestPortion = ledger.FromMinor(curr, interest)
		p.PrincipalPortion = ledger.FromMinor(curr, principal)
		out = append(out, p)
	}
	return out, mapErr(rows.Err())
}

func getClosure(ctx context.Context, q querier, curr, periodID string, lock bool) (ledger.MonthEndClosure, bool, error) {
	sql := `
		select period_id, status, initiated_by, initiated_at, approved_by, approved_at, rejected_by, rejected_at,
			reject_reason, processed_by, processed_at, closing_entry_id,
			total_revenue_minor, total_expenses_minor, net_profit_minor, updated_at
		from month_end_closures where period_id = $1`
	if lock {
		sql += ` for update`
	}
	var c ledger.MonthEndClosure
	var status string
	var revenue, expenses, net int64
	var updated time.Time
	err := q.QueryRow(ctx, sql, periodID).Scan(&c.PeriodID, &status, &c.InitiatedBy, &c.InitiatedAt, &c.ApprovedBy, &c.ApprovedAt,
		&c.RejectedBy, &c.RejectedAt, &c.RejectReason, &c.ProcessedBy, &c.ProcessedAt, &c.ClosingEntryID,
		&revenue, &expenses, &net, &updated)
	if errors.Is(err, pgx.ErrNoRows) {
		return ledger.MonthEndClosure{}, false, nil
	}
	if err != nil {
		return ledger.MonthEndClosure{}, false, mapErr(err)
	}
	c.Status = ledger.ClosureStatus(status)
	c.TotalRevenue = ledger.FromMinor(curr, revenue)
	c.TotalExpenses = ledger.FromMinor(curr, expenses)
	c.NetProfit = ledger.FromMinor(curr, net)
	c.UpdatedAt = updated
	return c, true, nil
}
