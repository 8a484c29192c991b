// Package v1 wires the HTTP surface of the back office.
// It keeps handlers thin, delegating business rules to the service layer.
package v1

import (
	"log/slog"
	"net/http"

	chi "github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/service/account"
	"github.com/tinoosan/loanledger/internal/service/closing"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/service/loan"
	"github.com/tinoosan/loanledger/internal/service/report"
	"github.com/tinoosan/loanledger/internal/storage"
)

// Services are the dependencies of the handlers.
type Services struct {
	Accounts account.Service
	Journal  journal.Service
	Loans    loan.Service
	Closing  closing.Service
	Reports  report.Service
	Audit    *audit.Recorder
	// Ready is optional; /readyz reports 503 when it fails.
	Ready storage.ReadyChecker
}

// Options configure authentication and CORS.
type Options struct {
	Auth           AuthConfig
	AllowedOrigins []string
}

// Server wires handlers and middleware using Chi.
type Server struct {
	svc  Services
	auth *Authenticator
	log  *slog.Logger
	rt   *chi.Mux
}

// New constructs the HTTP server with routes and middleware.
func New(svc Services, opts Options, logger *slog.Logger) *Server {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(requestLogger(logger))
	r.Use(recoverer(logger))
	r.Use(metricsMiddleware)
	if len(opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   opts.AllowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	s := &Server{svc: svc, auth: NewAuthenticator(opts.Auth), log: logger, rt: r}
	s.routes()
	return s
}

// Handler exposes the configured http.Handler.
func (s *Server) Handler() http.Handler { return s.rt }

var (
	financeRoles   = ledger.FinanceRoles
	financeWriters = []ledger.Role{ledger.RoleAdmin, ledger.RoleFinanceInitiator}
	loanWriters    = []ledger.Role{ledger.RoleAdmin, ledger.RoleLoanOfficer}
	loanReaders    = append([]ledger.Role{ledger.RoleLoanOfficer}, ledger.FinanceRoles...)
)

// routes declares the HTTP API endpoints and attaches per-route middleware.
func (s *Server) routes() {
	s.rt.Get("/healthz", s.healthz)
	s.rt.Get("/readyz", s.readyz)
	s.rt.Handle("/metrics", metricsHandler())

	s.rt.Group(func(r chi.Router) {
		r.Use(s.authenticate)

		r.Route("/accounting", func(r chi.Router) {
			r.With(requireRoles(financeRoles...)).Get("/accounts", s.listAccounts)
			r.With(requireRoles(financeWriters...), s.validateAccountRequest(false)).Post("/accounts", s.postAccount)
			r.With(requireRoles(financeWriters...), s.validateAccountRequest(true)).Put("/accounts", s.putAccount)

			r.With(requireRoles(financeRoles...)).Get("/journal", s.listEntries)
			r.With(requireRoles(financeRoles...)).Get("/journal/{id}", s.getEntry)
			r.With(requireRoles(financeWriters...), s.validatePostEntry()).Post("/journal", s.postEntry)

			r.With(requireRoles(financeRoles...)).Get("/month-end", s.getMonthEnd)
			r.With(requireRoles(financeRoles...)).Post("/month-end", s.postMonthEnd)

			r.With(requireRoles(financeRoles...)).Get("/reports/income-statement", s.incomeStatement)
			r.With(requireRoles(financeRoles...)).Get("/reports/balance-sheet", s.balanceSheet)
			r.With(requireRoles(financeRoles...)).Get("/reports/trial-balance", s.trialBalance)
		})

		r.With(requireRoles(loanReaders...)).Get("/reports/portfolio-at-risk", s.portfolioAtRisk)

		r.Route("/loans", func(r chi.Router) {
			r.With(requireRoles(loanWriters...), s.validatePostLoan()).Post("/", s.postLoan)
			r.With(requireRoles(loanReaders...)).Get("/", s.listLoans)
			r.With(requireRoles(loanReaders...)).Get("/{id}", s.getLoan)
			r.With(requireRoles(loanReaders...)).Get("/{id}/payments", s.listPayments)
			r.With(requireRoles(loanWriters...), s.validatePostPayment()).Post("/{id}/payments", s.postPayment)
		})
	})
}
