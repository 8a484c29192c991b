package v1

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/chart"
	"github.com/tinoosan/loanledger/internal/events"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/service/account"
	"github.com/tinoosan/loanledger/internal/service/closing"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/service/loan"
	"github.com/tinoosan/loanledger/internal/service/report"
	"github.com/tinoosan/loanledger/internal/storage/memory"
)

const testSecret = "test-secret"

var (
	admin     = ledger.Identity{Subject: "u-1", Name: "Ada", Role: ledger.RoleAdmin}
	initiator = ledger.Identity{Subject: "u-2", Name: "Ifeoma", Role: ledger.RoleFinanceInitiator}
	approver  = ledger.Identity{Subject: "u-3", Name: "Amaka", Role: ledger.RoleApprover}
	officer   = ledger.Identity{Subject: "u-4", Name: "Olu", Role: ledger.RoleLoanOfficer}
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

type errResp struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

type testServer struct {
	store    *memory.Store
	accounts account.Service
	h        http.Handler
	auth     *Authenticator
}

func setup(t *testing.T, seed bool) testServer {
	t.Helper()
	logger := testLogger()
	store := memory.New()
	j := journal.New(store, "USD", logger)
	rec := audit.New(store, logger)
	pub := &events.Recorder{}
	accounts := account.New(store, j, rec, logger)
	if seed {
		_, err := accounts.EnsureChart(context.Background(), admin, chart.Default())
		require.NoError(t, err)
	}
	svc := Services{
		Accounts: accounts,
		Journal:  j,
		Loans:    loan.New(store, j, loan.DefaultAccounts(), rec, pub, logger),
		Closing:  closing.New(store, j, chart.RetainedEarnings, rec, pub, logger),
		Reports:  report.New(store, "USD"),
		Audit:    rec,
		Ready:    store,
	}
	opts := Options{Auth: AuthConfig{Secret: testSecret, Issuer: "loanledger-test"}}
	return testServer{
		store:    store,
		accounts: accounts,
		h:        New(svc, opts, logger).Handler(),
		auth:     NewAuthenticator(opts.Auth),
	}
}

func (ts testServer) token(t *testing.T, id ledger.Identity) string {
	t.Helper()
	tok, err := ts.auth.Sign(id, time.Hour)
	require.NoError(t, err)
	return tok
}

func (ts testServer) do(t *testing.T, who *ledger.Identity, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var rd io.Reader
	if body != nil {
		switch b := body.(type) {
		case string:
			rd = strings.NewReader(b)
		default:
			raw, err := json.Marshal(b)
			require.NoError(t, err)
			rd = bytes.NewReader(raw)
		}
	}
	req := httptest.NewRequest(method, path, rd)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if who != nil {
		req.Header.Set("Authorization", "Bearer "+ts.token(t, *who))
	}
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	return rr
}

func (ts testServer) accountID(t *testing.T, name string) string {
	t.Helper()
	a, err := ts.accounts.ByName(context.Background(), name)
	require.NoError(t, err)
	return a.ID.String()
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func TestAuxEndpointsNeedNoToken(t *testing.T) {
	ts := setup(t, false)
	for _, p := range []string{"/healthz", "/readyz", "/metrics"} {
		rr := ts.do(t, nil, http.MethodGet, p, nil)
		assert.Equal(t, http.StatusOK, rr.Code, p)
	}
}

func TestAuthentication(t *testing.T) {
	ts := setup(t, true)

	rr := ts.do(t, nil, http.MethodGet, "/accounting/accounts", nil)
	require.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "unauthorized", decode[errResp](t, rr).Code)

	req := httptest.NewRequest(http.MethodGet, "/accounting/accounts", nil)
	req.Header.Set("Authorization", "Bearer not-a-jwt")
	bad := httptest.NewRecorder()
	ts.h.ServeHTTP(bad, req)
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	other := NewAuthenticator(AuthConfig{Secret: "another-secret"})
	tok, err := other.Sign(admin, time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/accounting/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	forged := httptest.NewRecorder()
	ts.h.ServeHTTP(forged, req)
	assert.Equal(t, http.StatusUnauthorized, forged.Code)

	expired, err := ts.auth.Sign(admin, -time.Hour)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodGet, "/accounting/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+expired)
	late := httptest.NewRecorder()
	ts.h.ServeHTTP(late, req)
	assert.Equal(t, http.StatusUnauthorized, late.Code)
}

func TestRoleGates(t *testing.T) {
	ts := setup(t, true)

	rr := ts.do(t, &officer, http.MethodGet, "/accounting/accounts", nil)
	require.Equal(t, http.StatusForbidden, rr.Code)
	assert.Equal(t, "forbidden", decode[errResp](t, rr).Code)

	rr = ts.do(t, &approver, http.MethodPost, "/accounting/accounts", map[string]any{"name": "Petty Cash", "type": "asset"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, &initiator, http.MethodPost, "/loans", map[string]any{"borrowerName": "Ngozi", "principal": "100", "interestRate": 5})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	rr = ts.do(t, &approver, http.MethodGet, "/accounting/accounts", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, &officer, http.MethodGet, "/reports/portfolio-at-risk", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
	rr = ts.do(t, &approver, http.MethodGet, "/loans", nil)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestAccountsLifecycle(t *testing.T) {
	ts := setup(t, true)

	rr := ts.do(t, &initiator, http.MethodPost, "/accounting/accounts", map[string]any{"name": "Petty Cash", "type": "asset"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[accountResponse](t, rr)
	assert.Equal(t, "Petty Cash", created.Name)
	assert.Equal(t, "0.00", created.Balance)
	assert.Equal(t, "USD", created.Currency)

	rr = ts.do(t, &initiator, http.MethodPost, "/accounting/accounts", map[string]any{"name": "petty  cash!", "type": "asset"})
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "duplicate_name", decode[errResp](t, rr).Code)

	rr = ts.do(t, &initiator, http.MethodPost, "/accounting/accounts", map[string]any{"name": "Vault", "type": "cash"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_type", decode[errResp](t, rr).Code)

	rr = ts.do(t, &admin, http.MethodPut, "/accounting/accounts", map[string]any{"id": created.ID, "name": "Office Float", "type": "asset"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Office Float", decode[accountResponse](t, rr).Name)

	rr = ts.do(t, &admin, http.MethodPut, "/accounting/accounts", map[string]any{"name": "Office Float", "type": "asset"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "id_required", decode[errResp](t, rr).Code)

	rr = ts.do(t, &admin, http.MethodPut, "/accounting/accounts", map[string]any{"id": uuid.New(), "name": "Ghost", "type": "asset"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/accounts", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	all := decode[listResponse[accountResponse]](t, rr)
	assert.Len(t, all.Items, len(chart.Default().Accounts)+1)
}

func TestRequestBodyRules(t *testing.T) {
	ts := setup(t, true)

	req := httptest.NewRequest(http.MethodPost, "/accounting/accounts", strings.NewReader(`{"name":"X","type":"asset"}`))
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("Authorization", "Bearer "+ts.token(t, admin))
	rr := httptest.NewRecorder()
	ts.h.ServeHTTP(rr, req)
	require.Equal(t, http.StatusUnsupportedMediaType, rr.Code)
	assert.Equal(t, "unsupported_media_type", decode[errResp](t, rr).Code)

	rr = ts.do(t, &admin, http.MethodPost, "/accounting/accounts", `{"name":"X","type":"asset","balance":"100"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decode[errResp](t, rr).Code)

	rr = ts.do(t, &admin, http.MethodPost, "/accounting/accounts", `{"name":"X","type":"asset"}{}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_json", decode[errResp](t, rr).Code)
}

func TestManualJournalPosting(t *testing.T) {
	ts := setup(t, true)
	cash := ts.accountID(t, chart.CashOnHand)
	capital := ts.accountID(t, "Share Capital")

	body := map[string]any{
		"date":        "2025-01-05",
		"description": "Founders' capital",
		"metadata":    map[string]string{"ref": "board-2025-01"},
		"lines": []map[string]any{
			{"accountId": cash, "type": "debit", "amount": "5000"},
			{"accountId": capital, "type": "credit", "amount": 5000},
		},
	}
	rr := ts.do(t, &initiator, http.MethodPost, "/accounting/journal", body)
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	entry := decode[entryResponse](t, rr)
	require.Len(t, entry.Lines, 2)
	assert.Equal(t, ledger.SourceManual, entry.Source)
	assert.Equal(t, "Ifeoma", entry.CreatedBy)
	assert.Equal(t, chart.CashOnHand, entry.Lines[0].AccountName)
	assert.Equal(t, "5000.00", entry.Lines[0].Amount)
	require.NotNil(t, entry.Lines[1].AmountMinor)
	assert.EqualValues(t, 500000, *entry.Lines[1].AmountMinor)

	rr = ts.do(t, &approver, http.MethodGet, "/accounting/journal/"+entry.ID.String(), nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "Founders' capital", decode[entryResponse](t, rr).Description)

	rr = ts.do(t, &approver, http.MethodGet, "/accounting/journal", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[listResponse[entryResponse]](t, rr).Items, 1)

	acc, err := ts.accounts.ByName(context.Background(), chart.CashOnHand)
	require.NoError(t, err)
	assert.Equal(t, "5000.00", ledger.Format(acc.Balance))

	var posted int
	for _, a := range ts.store.AuditLog() {
		if a.Action == audit.ActionJournalPost {
			posted++
			assert.Equal(t, entry.ID.String(), a.Target)
		}
	}
	assert.Equal(t, 1, posted)
}

func TestManualJournalRejections(t *testing.T) {
	ts := setup(t, true)
	cash := ts.accountID(t, chart.CashOnHand)
	capital := ts.accountID(t, "Share Capital")

	line := func(id, side, amount string) map[string]any {
		return map[string]any{"accountId": id, "type": side, "amount": amount}
	}
	cases := []struct {
		name  string
		lines []map[string]any
		code  string
	}{
		{"unbalanced", []map[string]any{line(cash, "debit", "100"), line(capital, "credit", "99.98")}, "unbalanced"},
		{"single line", []map[string]any{line(cash, "debit", "100")}, "too_few_lines"},
		{"bad side", []map[string]any{line(cash, "up", "100"), line(capital, "credit", "100")}, "invalid_side"},
		{"zero amount", []map[string]any{line(cash, "debit", "0"), line(capital, "credit", "0")}, "amount_not_positive"},
		{"bad amount", []map[string]any{line(cash, "debit", "ten"), line(capital, "credit", "10")}, "invalid_amount"},
		{"unknown account", []map[string]any{line(uuid.NewString(), "debit", "10"), line(capital, "credit", "10")}, "account_not_found"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := ts.do(t, &admin, http.MethodPost, "/accounting/journal", map[string]any{
				"date": "2025-01-05", "description": "test", "lines": tc.lines,
			})
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			assert.Equal(t, tc.code, decode[errResp](t, rr).Code)
		})
	}

	rr := ts.do(t, &admin, http.MethodPost, "/accounting/journal", map[string]any{
		"date": "2025-01-05", "description": "within tolerance",
		"lines": []map[string]any{line(cash, "debit", "100"), line(capital, "credit", "99.99")},
	})
	assert.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/journal/not-a-uuid", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	rr = ts.do(t, &admin, http.MethodGet, "/accounting/journal/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)

	es, err := ts.store.ListEntries(context.Background())
	require.NoError(t, err)
	assert.Len(t, es, 1)
}

func TestLoanAndPaymentFlow(t *testing.T) {
	ts := setup(t, true)

	rr := ts.do(t, &officer, http.MethodPost, "/loans", map[string]any{
		"borrowerId":   "B-001",
		"borrowerName": "Ngozi",
		"principal":    "1000",
		"interestRate": 10,
		"disbursedAt":  "2025-01-10",
		"dueDate":      "2025-02-10",
	})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[loanResponse](t, rr)
	assert.Equal(t, "100.00", created.InterestOwed)
	assert.Equal(t, "1100.00", created.TotalOwed)
	assert.Equal(t, "1100.00", created.OutstandingBalance)
	assert.Equal(t, ledger.LoanStatusActive, created.Status)
	path := "/loans/" + created.ID.String()

	rr = ts.do(t, &officer, http.MethodPost, path+"/payments", map[string]any{"amount": "150", "paidAt": "2025-01-20T09:00:00Z"})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	p := decode[paymentResponse](t, rr)
	assert.Equal(t, "100.00", p.InterestPortion)
	assert.Equal(t, "50.00", p.PrincipalPortion)
	assert.Equal(t, 1, p.Sequence)

	rr = ts.do(t, &officer, http.MethodPost, path+"/payments", map[string]any{"amount": "950.02"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "overpayment", decode[errResp](t, rr).Code)

	rr = ts.do(t, &approver, http.MethodGet, path, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[loanResponse](t, rr)
	assert.Equal(t, "950.00", got.OutstandingBalance)
	require.NotNil(t, got.Allocation)
	assert.Equal(t, "100.00", got.Allocation.InterestPaid)
	assert.Equal(t, "50.00", got.Allocation.PrincipalPaid)

	rr = ts.do(t, &officer, http.MethodGet, path+"/payments", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[listResponse[paymentResponse]](t, rr).Items, 1)

	rr = ts.do(t, &officer, http.MethodGet, "/reports/portfolio-at-risk?asOf=2025-03-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	par := decode[portfolioAtRiskResponse](t, rr)
	require.Len(t, par.Loans, 1)
	assert.Equal(t, "950.00", par.AtRisk)
	assert.Equal(t, "1", par.Ratio)
	assert.Equal(t, 19, par.Loans[0].DaysOverdue)

	rr = ts.do(t, &officer, http.MethodGet, "/reports/portfolio-at-risk?asOf=soon", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/reports/income-statement", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "100.00", decode[incomeStatementResponse](t, rr).NetProfit)

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/reports/balance-sheet", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.True(t, decode[balanceSheetResponse](t, rr).Balanced)

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/reports/trial-balance", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	tb := decode[trialBalanceResponse](t, rr)
	assert.True(t, tb.Balanced)
	assert.Equal(t, tb.TotalDebit, tb.TotalCredit)
}

func TestLoanValidationAndLookups(t *testing.T) {
	ts := setup(t, true)

	rr := ts.do(t, &officer, http.MethodPost, "/loans", map[string]any{"borrowerName": "Ngozi", "principal": "-5", "interestRate": "10"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "principal_not_positive", decode[errResp](t, rr).Code)

	rr = ts.do(t, &officer, http.MethodPost, "/loans", map[string]any{"borrowerName": "Ngozi", "principal": "500"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "rate_required", decode[errResp](t, rr).Code)

	rr = ts.do(t, &officer, http.MethodGet, "/loans/"+uuid.NewString(), nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, &officer, http.MethodPost, "/loans/"+uuid.NewString()+"/payments", map[string]any{"amount": 10})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, &officer, http.MethodGet, "/loans/xyz/payments", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestMissingAccountIsServerError(t *testing.T) {
	ts := setup(t, false)

	rr := ts.do(t, &officer, http.MethodPost, "/loans", map[string]any{"borrowerName": "Ngozi", "principal": "1000", "interestRate": 10})
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	e := decode[errResp](t, rr)
	assert.Equal(t, "account_missing", e.Code)
	assert.Contains(t, e.Error, chart.LoanPortfolio)

	rr = ts.do(t, &officer, http.MethodGet, "/loans", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[listResponse[loanResponse]](t, rr).Items)
}

func TestMonthEndWorkflow(t *testing.T) {
	ts := setup(t, true)
	cash := ts.accountID(t, chart.CashOnHand)
	fees := ts.accountID(t, "Fee Income")
	rent := ts.accountID(t, "Rent")

	post := func(debit, credit, amount string) {
		rr := ts.do(t, &admin, http.MethodPost, "/accounting/journal", map[string]any{
			"date": "2025-01-15", "description": "activity",
			"lines": []map[string]any{
				{"accountId": debit, "type": "debit", "amount": amount},
				{"accountId": credit, "type": "credit", "amount": amount},
			},
		})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	post(cash, fees, "800")
	post(rent, cash, "300")

	act := func(who ledger.Identity, action string) *httptest.ResponseRecorder {
		return ts.do(t, &who, http.MethodPost, "/accounting/month-end", map[string]any{"action": action, "periodId": "2025-01"})
	}

	rr := ts.do(t, &approver, http.MethodGet, "/accounting/month-end?periodId=2025-01", nil)
	assert.Equal(t, http.StatusNotFound, rr.Code)
	rr = ts.do(t, &approver, http.MethodGet, "/accounting/month-end?periodId=January", nil)
	assert.Equal(t, http.StatusBadRequest, rr.Code)

	rr = act(initiator, "initiate")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, ledger.ClosureStatusPendingApproval, decode[closureResponse](t, rr).Status)

	rr = act(initiator, "approve")
	require.Equal(t, http.StatusForbidden, rr.Code)

	rr = act(initiator, "process")
	require.Equal(t, http.StatusConflict, rr.Code)
	assert.Equal(t, "invalid_transition", decode[errResp](t, rr).Code)

	rr = act(approver, "approve")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = act(initiator, "process")
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	c := decode[closureResponse](t, rr)
	assert.Equal(t, ledger.ClosureStatusProcessed, c.Status)
	assert.Equal(t, "500.00", c.NetProfit)
	require.NotNil(t, c.ClosingJournalEntryID)

	rr = act(initiator, "process")
	assert.Equal(t, http.StatusConflict, rr.Code)

	rr = ts.do(t, &admin, http.MethodPost, "/accounting/month-end", map[string]any{"action": "reopen", "periodId": "2025-01"})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "invalid_action", decode[errResp](t, rr).Code)

	rr = ts.do(t, &officer, http.MethodPost, "/accounting/month-end", map[string]any{"action": "initiate", "periodId": "2025-02"})
	assert.Equal(t, http.StatusForbidden, rr.Code)

	re, err := ts.accounts.ByName(context.Background(), chart.RetainedEarnings)
	require.NoError(t, err)
	assert.Equal(t, "500.00", ledger.Format(re.Balance))

	rr = ts.do(t, &admin, http.MethodGet, "/accounting/reports/income-statement", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "0.00", decode[incomeStatementResponse](t, rr).NetProfit)

	rr = ts.do(t, &approver, http.MethodGet, "/accounting/month-end?periodId=2025-01", nil)
	require.Equal(t, http.StatusOK, rr.Code)
	got := decode[closureResponse](t, rr)
	assert.Equal(t, "Ifeoma", got.InitiatedBy)
	assert.Equal(t, "Amaka", got.ApprovedBy)
	assert.Equal(t, "Ifeoma", got.ProcessedBy)
}

func TestRejectAndReinitiate(t *testing.T) {
	ts := setup(t, true)
	act := func(who ledger.Identity, body map[string]any) *httptest.ResponseRecorder {
		body["periodId"] = "2025-03"
		return ts.do(t, &who, http.MethodPost, "/accounting/month-end", body)
	}
	require.Equal(t, http.StatusOK, act(initiator, map[string]any{"action": "initiate"}).Code)
	rr := act(approver, map[string]any{"action": "reject", "reason": "fees not reconciled"})
	require.Equal(t, http.StatusOK, rr.Code)
	c := decode[closureResponse](t, rr)
	assert.Equal(t, ledger.ClosureStatusRejected, c.Status)
	assert.Equal(t, "fees not reconciled", c.RejectReason)

	rr = act(initiator, map[string]any{"action": "initiate"})
	require.Equal(t, http.StatusOK, rr.Code)
	c = decode[closureResponse](t, rr)
	assert.Equal(t, ledger.ClosureStatusPendingApproval, c.Status)
	assert.Empty(t, c.RejectReason)
}

func TestRecovererWritesErrorBody(t *testing.T) {
	h := recoverer(testLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { panic("boom") }))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Equal(t, "internal", decode[errResp](t, rr).Code)
}

func TestRequestLoggerNamesCaller(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))
	s := &Server{auth: NewAuthenticator(AuthConfig{Secret: testSecret}), log: logger}
	h := requestLogger(logger)(s.authenticate(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})))

	tok, err := s.auth.Sign(approver, time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodGet, "/accounting/accounts", nil)
	req.Header.Set("Authorization", "Bearer "+tok)
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)

	require.Equal(t, http.StatusNoContent, rr.Code)
	assert.Contains(t, buf.String(), `"actor":"Amaka"`)
	assert.Contains(t, buf.String(), `"role":"approver"`)
}
