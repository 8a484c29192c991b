// Package account implements the chart of accounts: creation with a unique
// normalised name, rename/retype that never touches the balance, and the
// chart bootstrap. Balances are changed only by the journal engine.
package account

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/tinoosan/loanledger/internal/audit"
	"github.com/tinoosan/loanledger/internal/chart"
	"github.com/tinoosan/loanledger/internal/errs"
	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/meta"
	"github.com/tinoosan/loanledger/internal/service/journal"
	"github.com/tinoosan/loanledger/internal/slug"
	"github.com/tinoosan/loanledger/internal/storage"
)

// Repo defines the read operations needed by the service.
type Repo interface {
	ListAccounts(ctx context.Context) ([]ledger.Account, error)
	GetAccount(ctx context.Context, id uuid.UUID) (ledger.Account, error)
}

type Service interface {
	List(ctx context.Context) ([]ledger.Account, error)
	Get(ctx context.Context, id uuid.UUID) (ledger.Account, error)
	// ByName resolves an account by name, case and punctuation insensitive.
	ByName(ctx context.Context, name string) (ledger.Account, error)
	Create(ctx context.Context, who ledger.Identity, name string, t ledger.AccountType) (ledger.Account, error)
	RenameOrRetype(ctx context.Context, who ledger.Identity, id uuid.UUID, name string, t ledger.AccountType) (ledger.Account, error)
	// EnsureChart creates every account of c that does not exist yet and
	// returns the ones it created. Existing accounts are left as they are.
	EnsureChart(ctx context.Context, who ledger.Identity, c chart.Chart) ([]ledger.Account, error)
}

type service struct {
	repo    Repo
	journal journal.Service
	audit   *audit.Recorder
	log     *slog.Logger
}

func New(repo Repo, j journal.Service, rec *audit.Recorder, logger *slog.Logger) Service {
	return &service{repo: repo, journal: j, audit: rec, log: logger}
}

func validate(name string, t ledger.AccountType) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", errs.Invalid("name_required", "name is required")
	}
	code := slug.Slugify(name)
	if !slug.IsSlug(code) {
		return "", errs.Invalid("invalid_name", "name must contain letters or digits")
	}
	if !t.Valid() {
		return "", errs.Invalid("invalid_type", "type must be one of asset, liability, equity, income, expense")
	}
	return code, nil
}

func (s *service) List(ctx context.Context) ([]ledger.Account, error) {
	return s.repo.ListAccounts(ctx)
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.Invalid("invalid_id", "account id is required")
	}
	return s.repo.GetAccount(ctx, id)
}

func (s *service) ByName(ctx context.Context, name string) (ledger.Account, error) {
	code := slug.Slugify(name)
	accounts, err := s.repo.ListAccounts(ctx)
	if err != nil {
		return ledger.Account{}, err
	}
	for _, a := range accounts {
		if a.Code == code {
			return a, nil
		}
	}
	return ledger.Account{}, fmt.Errorf("%w: %q", errs.ErrAccountNotFound, name)
}

func (s *service) Create(ctx context.Context, who ledger.Identity, name string, t ledger.AccountType) (ledger.Account, error) {
	code, err := validate(name, t)
	if err != nil {
		return ledger.Account{}, err
	}
	acc := ledger.Account{
		ID:      uuid.New(),
		Code:    code,
		Name:    strings.TrimSpace(name),
		Type:    t,
		Balance: ledger.Zero(s.journal.Currency()),
	}
	err = s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, _ journal.Poster) error {
		if err := tx.CreateAccount(ctx, acc); err != nil {
			return err
		}
		acc, err = tx.GetAccount(ctx, acc.ID)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.Info("account created", "account_id", acc.ID, "name", acc.Name, "type", acc.Type)
	s.audit.Record(ctx, who, audit.ActionAccountCreate, acc.ID.String(), meta.Of("name", acc.Name, "type", string(acc.Type)))
	return acc, nil
}

func (s *service) RenameOrRetype(ctx context.Context, who ledger.Identity, id uuid.UUID, name string, t ledger.AccountType) (ledger.Account, error) {
	if id == uuid.Nil {
		return ledger.Account{}, errs.Invalid("invalid_id", "account id is required")
	}
	code, err := validate(name, t)
	if err != nil {
		return ledger.Account{}, err
	}
	var before, after ledger.Account
	err = s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, _ journal.Poster) error {
		var err error
		if before, err = tx.GetAccount(ctx, id); err != nil {
			return err
		}
		upd := before
		upd.Code, upd.Name, upd.Type = code, strings.TrimSpace(name), t
		if err := tx.UpdateAccount(ctx, upd); err != nil {
			return err
		}
		after, err = tx.GetAccount(ctx, id)
		return err
	})
	if err != nil {
		return ledger.Account{}, err
	}
	s.log.Info("account updated", "account_id", id, "name", after.Name, "type", after.Type)
	s.audit.Record(ctx, who, audit.ActionAccountUpdate, id.String(), meta.Of(
		"old_name", before.Name, "name", after.Name,
		"old_type", string(before.Type), "type", string(after.Type),
	))
	return after, nil
}

func (s *service) EnsureChart(ctx context.Context, who ledger.Identity, c chart.Chart) ([]ledger.Account, error) {
	if err := c.Validate(); err != nil {
		return nil, errs.Invalid("invalid_chart", "%v", err)
	}
	var created []ledger.Account
	err := s.journal.Transact(ctx, func(ctx context.Context, tx storage.Tx, _ journal.Poster) error {
		created = created[:0]
		for _, def := range c.Accounts {
			code := slug.Slugify(def.Name)
			if _, err := tx.AccountByCode(ctx, code); err == nil {
				continue
			} else if !errors.Is(err, errs.ErrAccountNotFound) {
				return err
			}
			acc := ledger.Account{
				ID:      uuid.New(),
				Code:    code,
				Name:    strings.TrimSpace(def.Name),
				Type:    def.Type,
				Balance: ledger.Zero(s.journal.Currency()),
			}
			if err := tx.CreateAccount(ctx, acc); err != nil {
				return err
			}
			created = append(created, acc)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for _, acc := range created {
		s.log.Info("chart account created", "account_id", acc.ID, "name", acc.Name, "type", acc.Type)
	}
	if len(created) > 0 {
		s.audit.Record(ctx, who, audit.ActionChartSeed, "chart", meta.Of("created", fmt.Sprint(len(created))))
	}
	return created, nil
}
