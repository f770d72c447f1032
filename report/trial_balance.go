package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// TBOptions bounds the Trial Balance. Entries before From form the
// opening balance; From zero means everything up to AsOf is in-period.
type TBOptions struct {
	From time.Time
	AsOf time.Time
}

// TBRow is one leaf account. Opening and Closing are netted onto one side;
// Debit and Credit are the gross period movements.
type TBRow struct {
	Account       string
	RootType      ledger.RootType
	OpeningDebit  money.Money
	OpeningCredit money.Money
	Debit         money.Money
	Credit        money.Money
	ClosingDebit  money.Money
	ClosingCredit money.Money
}

// TrialBalanceReport lists every leaf account with activity up to AsOf.
type TrialBalanceReport struct {
	Options TBOptions
	Rows    []TBRow
	Total   TBRow
}

// Check returns ErrTrialBalanceMismatch if any column pair differs.
func (r *TrialBalanceReport) Check() error {
	t := r.Total
	switch {
	case !t.OpeningDebit.Equal(t.OpeningCredit):
		return fmt.Errorf("%w: opening debit %s, credit %s", ErrTrialBalanceMismatch, t.OpeningDebit, t.OpeningCredit)
	case !t.Debit.Equal(t.Credit):
		return fmt.Errorf("%w: debit %s, credit %s", ErrTrialBalanceMismatch, t.Debit, t.Credit)
	case !t.ClosingDebit.Equal(t.ClosingCredit):
		return fmt.Errorf("%w: closing debit %s, credit %s", ErrTrialBalanceMismatch, t.ClosingDebit, t.ClosingCredit)
	}
	return nil
}

type tbAccum struct {
	opening money.Money
	debit   money.Money
	credit  money.Money
}

// TrialBalance sums non-reverted entries per leaf account up to AsOf.
func (e *Engine) TrialBalance(ctx context.Context, opts TBOptions) (*TrialBalanceReport, error) {
	var from time.Time
	if !opts.From.IsZero() {
		from = ledger.DayOf(opts.From)
	}

	acc := make(map[string]*tbAccum)
	err := e.fold(ctx, ledger.Filter{To: opts.AsOf, Reverted: ledger.OnlyActive}, func(en ledger.Entry) error {
		a, ok := acc[en.Account]
		if !ok {
			a = &tbAccum{opening: e.zero(), debit: e.zero(), credit: e.zero()}
			acc[en.Account] = a
		}
		if !from.IsZero() && en.Date.Before(from) {
			a.opening = a.opening.Add(en.Net())
			return nil
		}
		a.debit = a.debit.Add(en.Debit)
		a.credit = a.credit.Add(en.Credit)
		return nil
	})
	if err != nil {
		return nil, err
	}

	z := e.zero()
	r := &TrialBalanceReport{Options: opts, Total: TBRow{
		OpeningDebit: z, OpeningCredit: z, Debit: z, Credit: z, ClosingDebit: z, ClosingCredit: z,
	}}
	for _, name := range e.orderedAccounts(acc) {
		a := acc[name]
		info, _ := e.chart.Account(name)
		row := TBRow{Account: name, RootType: info.RootType, Debit: a.debit, Credit: a.credit}
		row.OpeningDebit, row.OpeningCredit = split(a.opening, z)
		row.ClosingDebit, row.ClosingCredit = split(a.opening.Add(a.debit).Sub(a.credit), z)
		r.Rows = append(r.Rows, row)

		r.Total.OpeningDebit = r.Total.OpeningDebit.Add(row.OpeningDebit)
		r.Total.OpeningCredit = r.Total.OpeningCredit.Add(row.OpeningCredit)
		r.Total.Debit = r.Total.Debit.Add(row.Debit)
		r.Total.Credit = r.Total.Credit.Add(row.Credit)
		r.Total.ClosingDebit = r.Total.ClosingDebit.Add(row.ClosingDebit)
		r.Total.ClosingCredit = r.Total.ClosingCredit.Add(row.ClosingCredit)
	}
	return r, nil
}

// orderedAccounts returns the keys of acc in chart order, with anything
// unknown to the chart last in name order.
func (e *Engine) orderedAccounts(acc map[string]*tbAccum) []string {
	out := make([]string, 0, len(acc))
	seen := make(map[string]bool, len(acc))
	for _, a := range e.chart.All() {
		if _, ok := acc[a.Name]; ok {
			out = append(out, a.Name)
			seen[a.Name] = true
		}
	}
	var rest []string
	for name := range acc {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
