package loan

import (
	"github.com/govalues/money"

	"github.com/tinoosan/loanledger/internal/ledger"
)

// Allocation is a loan's position derived by replaying its payments.
type Allocation struct {
	TotalOwed     money.Amount
	InterestOwed  money.Amount
	InterestPaid  money.Amount
	PrincipalPaid money.Amount
	Outstanding   money.Amount
}

// Split divides a payment into its interest and principal portions given the
// interest still owed: interest first, the remainder to principal.
func Split(amount, remainingInterest money.Amount) (interest, principal money.Amount, err error) {
	if !remainingInterest.IsPos() {
		return ledger.Zero(amount.Curr().Code()), amount, nil
	}
	if interest, err = ledger.MinAmount(amount, remainingInterest); err != nil {
		return
	}
	principal, err = amount.Sub(interest)
	return
}

// Replay folds payments, in the order given, over the loan's interest owed.
// The stored portions on each payment are not consulted.
func Replay(l ledger.Loan, payments []ledger.Payment) (Allocation, error) {
	curr := l.Principal.Curr().Code()
	total, err := l.TotalOwed()
	if err != nil {
		return Allocation{}, err
	}
	a := Allocation{
		TotalOwed:     total,
		InterestOwed:  l.InterestOwed,
		InterestPaid:  ledger.Zero(curr),
		PrincipalPaid: ledger.Zero(curr),
		Outstanding:   total,
	}
	for _, p := range payments {
		remaining, err := a.InterestOwed.Sub(a.InterestPaid)
		if err != nil {
			return Allocation{}, err
		}
		interest, principal, err := Split(p.Amount, remaining)
		if err != nil {
			return Allocation{}, err
		}
		if a.InterestPaid, err = a.InterestPaid.Add(interest); err != nil {
			return Allocation{}, err
		}
		if a.PrincipalPaid, err = a.PrincipalPaid.Add(principal); err != nil {
			return Allocation{}, err
		}
		if a.Outstanding, err = a.Outstanding.Sub(p.Amount); err != nil {
			return Allocation{}, err
		}
	}
	return a, nil
}

// RemainingInterest is the interest not yet recognised.
func (a Allocation) RemainingInterest() (money.Amount, error) {
	return a.InterestOwed.Sub(a.InterestPaid)
}
