// Package chart describes the chart of accounts the back office expects to
// exist, either built in or read from a YAML file.
package chart

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/tinoosan/loanledger/internal/ledger"
	"github.com/tinoosan/loanledger/internal/slug"
)

// Default names of the accounts automated postings resolve by name.
const (
	CashOnHand       = "Cash on Hand"
	LoanPortfolio    = "Loan Portfolio"
	InterestIncome   = "Interest Income"
	RetainedEarnings = "Retained Earnings"
)

// AccountDef is one account of a chart.
type AccountDef struct {
	Name string             `yaml:"name" json:"name"`
	Type ledger.AccountType `yaml:"type" json:"type"`
}

// Chart is an ordered list of account definitions.
type Chart struct {
	Accounts []AccountDef `yaml:"accounts" json:"accounts"`
}

var curated = Chart{Accounts: []AccountDef{
	{Name: CashOnHand, Type: ledger.AccountTypeAsset},
	{Name: "Bank", Type: ledger.AccountTypeAsset},
	{Name: LoanPortfolio, Type: ledger.AccountTypeAsset},
	{Name: "Savings Deposits", Type: ledger.AccountTypeLiability},
	{Name: "Borrowings", Type: ledger.AccountTypeLiability},
	{Name: "Share Capital", Type: ledger.AccountTypeEquity},
	{Name: RetainedEarnings, Type: ledger.AccountTypeEquity},
	{Name: InterestIncome, Type: ledger.AccountTypeIncome},
	{Name: "Fee Income", Type: ledger.AccountTypeIncome},
	{Name: "Salaries", Type: ledger.AccountTypeExpense},
	{Name: "Rent", Type: ledger.AccountTypeExpense},
	{Name: "Utilities", Type: ledger.AccountTypeExpense},
	{Name: "Transport", Type: ledger.AccountTypeExpense},
	{Name: "Loan Loss Provision", Type: ledger.AccountTypeExpense},
}}

// Default returns a copy of the built-in chart.
func Default() Chart {
	out := Chart{Accounts: make([]AccountDef, len(curated.Accounts))}
	copy(out.Accounts, curated.Accounts)
	return out
}

// Load reads a chart from a YAML file, or returns Default when path is empty.
func Load(path string) (Chart, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Chart{}, fmt.Errorf("read chart %s: %w", path, err)
	}
	return Parse(b)
}

// Parse decodes and validates a YAML chart.
func Parse(b []byte) (Chart, error) {
	var c Chart
	if err := yaml.Unmarshal(b, &c); err != nil {
		return Chart{}, fmt.Errorf("parse chart: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Chart{}, err
	}
	return c, nil
}

// Validate rejects unknown types, empty names and names colliding once normalised.
func (c Chart) Validate() error {
	seen := make(map[string]string, len(c.Accounts))
	for i, a := range c.Accounts {
		code := slug.Slugify(a.Name)
		if code == "" {
			return fmt.Errorf("chart account %d: name is required", i)
		}
		if !a.Type.Valid() {
			return fmt.Errorf("chart account %q: invalid type %q", a.Name, a.Type)
		}
		if prev, ok := seen[code]; ok {
			return fmt.Errorf("chart account %q duplicates %q", a.Name, prev)
		}
		seen[code] = a.Name
	}
	return nil
}

// ByType groups the chart's accounts by type in reporting order.
func (c Chart) ByType() map[ledger.AccountType][]AccountDef {
	out := make(map[ledger.AccountType][]AccountDef, len(ledger.AccountTypes))
	for _, a := range c.Accounts {
		out[a.Type] = append(out[a.Type], a)
	}
	return out
}
