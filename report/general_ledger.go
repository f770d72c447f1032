package report

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// GLOptions selects the General Ledger rows.
type GLOptions struct {
	Account         string // leaf or group; "" = every account
	From            time.Time
	To              time.Time
	Party           string
	IncludeReverted bool
}

// GLRow is one entry with the running balance after it.
type GLRow struct {
	Entry   ledger.Entry
	Balance money.Money
}

// GLSummary carries the totals of a General Ledger run.
type GLSummary struct {
	Opening money.Money
	Debit   money.Money
	Credit  money.Money
	Closing money.Money
}

// GeneralLedgerReport is the materialized General Ledger.
type GeneralLedgerReport struct {
	Options GLOptions
	GLSummary
	Rows []GLRow
}

// WalkGeneralLedger streams entries in (date, seq) order with a running
// balance of debit - credit, starting from the balance before From.
func (e *Engine) WalkGeneralLedger(ctx context.Context, opts GLOptions, fn func(GLRow) error) (GLSummary, error) {
	accts, err := e.selectAccounts(opts.Account)
	if err != nil {
		return GLSummary{}, err
	}
	base := ledger.Filter{Accounts: accts, Party: opts.Party, Reverted: ledger.OnlyActive}
	if opts.IncludeReverted {
		base.Reverted = ledger.AnyReverted
	}

	sum := GLSummary{Opening: e.zero(), Debit: e.zero(), Credit: e.zero()}
	if !opts.From.IsZero() {
		before := base
		before.To = ledger.DayOf(opts.From).AddDate(0, 0, -1)
		err := e.fold(ctx, before, func(en ledger.Entry) error {
			sum.Opening = sum.Opening.Add(en.Net())
			return nil
		})
		if err != nil {
			return GLSummary{}, err
		}
	}

	period := base
	period.From, period.To = opts.From, opts.To
	period.Order = ledger.OrderChronological

	balance := sum.Opening
	err = e.fold(ctx, period, func(en ledger.Entry) error {
		balance = balance.Add(en.Net())
		sum.Debit = sum.Debit.Add(en.Debit)
		sum.Credit = sum.Credit.Add(en.Credit)
		return fn(GLRow{Entry: en, Balance: balance})
	})
	if err != nil {
		return GLSummary{}, err
	}
	sum.Closing = balance
	return sum, nil
}

// GeneralLedger collects WalkGeneralLedger into a report.
func (e *Engine) GeneralLedger(ctx context.Context, opts GLOptions) (*GeneralLedgerReport, error) {
	r := &GeneralLedgerReport{Options: opts}
	sum, err := e.WalkGeneralLedger(ctx, opts, func(row GLRow) error {
		r.Rows = append(r.Rows, row)
		return nil
	})
	if err != nil {
		return nil, err
	}
	r.GLSummary = sum
	return r, nil
}
