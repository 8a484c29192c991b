package ledger

import (
	"strings"

	"github.com/govalues/decimal"
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/errs"
)

var hundred = decimal.MustNew(100, 0)

// Zero returns a zero amount in curr. Unknown currencies yield the zero Amount.
func Zero(curr string) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, 0)
	return a
}

// Tolerance is the largest debit/credit difference (0.01) still treated as balanced.
func Tolerance(curr string) money.Amount {
	a, _ := money.NewAmount(curr, 1, 2)
	return a
}

// ParseAmount parses a decimal string into an amount rounded to the currency scale.
func ParseAmount(curr, s string) (money.Amount, error) {
	a, err := money.ParseAmount(curr, strings.TrimSpace(s))
	if err != nil {
		return money.Amount{}, err
	}
	a = a.RoundToCurr()
	if _, err := Minor(a); err != nil {
		return money.Amount{}, err
	}
	return a, nil
}

// FromMinor builds an amount from integer minor units (cents).
func FromMinor(curr string, units int64) money.Amount {
	a, _ := money.NewAmountFromMinorUnits(curr, units)
	return a
}

// Minor returns the amount in integer minor units, rounding to the currency scale first.
// It fails when the units do not fit in an int64.
func Minor(a money.Amount) (int64, error) {
	units, ok := a.RoundToCurr().MinorUnits()
	if !ok {
		return 0, errs.Invalid("amount_out_of_range", "amount %s %s is out of range", Format(a), a.Curr().Code())
	}
	return units, nil
}

// Format renders the amount with the currency's number of decimal places, without the code.
func Format(a money.Amount) string {
	return a.RoundToCurr().Decimal().Pad(a.Curr().Scale()).String()
}

// WithinTolerance reports whether |a - b| <= 0.01.
func WithinTolerance(a, b money.Amount) (bool, error) {
	diff, err := a.Sub(b)
	if err != nil {
		return false, err
	}
	c, err := diff.Abs().Cmp(Tolerance(a.Curr().Code()))
	if err != nil {
		return false, err
	}
	return c <= 0, nil
}

// Less reports whether a < b.
func Less(a, b money.Amount) (bool, error) {
	c, err := a.Cmp(b)
	return c < 0, err
}

// MinAmount returns the smaller of a and b.
func MinAmount(a, b money.Amount) (money.Amount, error) {
	less, err := Less(b, a)
	if err != nil {
		return money.Amount{}, err
	}
	if less {
		return b, nil
	}
	return a, nil
}

// PercentOf computes amount × rate / 100 rounded to the currency scale.
func PercentOf(amount money.Amount, rate decimal.Decimal) (money.Amount, error) {
	pct, err := rate.Quo(hundred)
	if err != nil {
		return money.Amount{}, err
	}
	out, err := amount.Mul(pct)
	if err != nil {
		return money.Amount{}, err
	}
	return out.RoundToCurr(), nil
}
