package report

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// =============================================================================
// ROLL-UP LINES
// =============================================================================

// Line is one account of a statement section. Group lines carry the sum of
// their leaves. Amounts has one value per period column.
type Line struct {
	Account string
	Depth   int
	IsGroup bool
	Amounts []money.Money
	Total   money.Money
}

// Section is all lines of one root type.
type Section struct {
	RootType ledger.RootType
	Lines    []Line
	Totals   []money.Money
	Total    money.Money
}

// section rolls leaf balances up the hierarchy. leaves maps a leaf account
// to one debit - credit value per column; amounts are presented in the
// root type's normal direction. maxDepth 0 keeps every level, n keeps the
// top n levels.
func (e *Engine) section(t ledger.RootType, leaves map[string][]money.Money, columns, maxDepth int) Section {
	s := Section{RootType: t, Totals: e.zeros(columns), Total: e.zero()}
	for _, a := range e.chart.All() {
		if a.RootType != t {
			continue
		}
		depth := e.chart.Depth(a.Name)
		if maxDepth > 0 && depth >= maxDepth {
			continue
		}

		line := Line{Account: a.Name, Depth: depth, IsGroup: a.IsGroup, Amounts: e.zeros(columns), Total: e.zero()}
		active := false
		for _, leaf := range e.chart.Leaves(a.Name) {
			vals, ok := leaves[leaf]
			if !ok {
				continue
			}
			active = true
			for i, v := range vals {
				line.Amounts[i] = line.Amounts[i].Add(normal(t, v))
			}
		}
		if !active {
			continue
		}
		for _, v := range line.Amounts {
			line.Total = line.Total.Add(v)
		}
		s.Lines = append(s.Lines, line)

		if a.Parent == "" {
			for i, v := range line.Amounts {
				s.Totals[i] = s.Totals[i].Add(v)
			}
			s.Total = s.Total.Add(line.Total)
		}
	}
	return s
}

func (e *Engine) zeros(n int) []money.Money {
	out := make([]money.Money, n)
	for i := range out {
		out[i] = e.zero()
	}
	return out
}

// =============================================================================
// BALANCE SHEET
// =============================================================================

// BSOptions configures the Balance Sheet. Depth 0 shows every level.
type BSOptions struct {
	AsOf  time.Time
	Depth int
}

// BalanceSheetReport shows balances as of a date. Profit is the unclosed
// Income - Expense up to AsOf. Residual is
// Assets - (Liabilities + Equity + Profit) and is zero for a sound ledger.
type BalanceSheetReport struct {
	Options     BSOptions
	Assets      Section
	Liabilities Section
	Equity      Section
	Profit      money.Money
	Residual    money.Money
}

// Balanced reports whether the accounting equation holds exactly.
func (r *BalanceSheetReport) Balanced() bool { return r.Residual.IsZero() }

// BalanceSheet computes closing balances of asset, liability and equity
// accounts as of opts.AsOf.
func (e *Engine) BalanceSheet(ctx context.Context, opts BSOptions) (*BalanceSheetReport, error) {
	leaves := make(map[string][]money.Money)
	profit := e.zero()
	err := e.fold(ctx, ledger.Filter{To: opts.AsOf, Reverted: ledger.OnlyActive}, func(en ledger.Entry) error {
		a, _ := e.chart.Account(en.Account)
		switch a.RootType {
		case ledger.Income, ledger.Expense:
			profit = profit.Sub(en.Net())
			return nil
		}
		vals, ok := leaves[en.Account]
		if !ok {
			vals = e.zeros(1)
			leaves[en.Account] = vals
		}
		vals[0] = vals[0].Add(en.Net())
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &BalanceSheetReport{
		Options:     opts,
		Assets:      e.section(ledger.Asset, leaves, 1, opts.Depth),
		Liabilities: e.section(ledger.Liability, leaves, 1, opts.Depth),
		Equity:      e.section(ledger.Equity, leaves, 1, opts.Depth),
		Profit:      profit,
	}
	r.Residual = r.Assets.Total.Sub(r.Liabilities.Total.Add(r.Equity.Total).Add(profit))
	return r, nil
}

// =============================================================================
// PROFIT & LOSS
// =============================================================================

// PLOptions configures Profit & Loss. Depth 0 shows every level.
type PLOptions struct {
	From        time.Time
	To          time.Time
	Periodicity Periodicity
	Depth       int
}

// ProfitAndLossReport has one column per period.
type ProfitAndLossReport struct {
	Options   PLOptions
	Periods   []Period
	Income    Section
	Expense   Section
	NetProfit []money.Money
	Total     money.Money
}

// ProfitAndLoss computes income and expense over [From, To], split into
// period columns. Net profit = income - expense. To defaults to today;
// From is required when splitting into periods.
func (e *Engine) ProfitAndLoss(ctx context.Context, opts PLOptions) (*ProfitAndLossReport, error) {
	if opts.To.IsZero() {
		opts.To = time.Now()
	}
	if opts.From.IsZero() && opts.Periodicity != None {
		return nil, fmt.Errorf("profit and loss: %s columns need a start date", opts.Periodicity)
	}
	periods := opts.Periodicity.Split(opts.From, opts.To)
	leaves := make(map[string][]money.Money)

	filter := ledger.Filter{From: opts.From, To: opts.To, Reverted: ledger.OnlyActive}
	err := e.fold(ctx, filter, func(en ledger.Entry) error {
		a, _ := e.chart.Account(en.Account)
		if a.RootType != ledger.Income && a.RootType != ledger.Expense {
			return nil
		}
		col := indexOf(periods, en.Date)
		if col < 0 {
			return nil
		}
		vals, ok := leaves[en.Account]
		if !ok {
			vals = e.zeros(len(periods))
			leaves[en.Account] = vals
		}
		vals[col] = vals[col].Add(en.Net())
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &ProfitAndLossReport{
		Options: opts,
		Periods: periods,
		Income:  e.section(ledger.Income, leaves, len(periods), opts.Depth),
		Expense: e.section(ledger.Expense, leaves, len(periods), opts.Depth),
	}
	r.NetProfit = make([]money.Money, len(periods))
	for i := range periods {
		r.NetProfit[i] = r.Income.Totals[i].Sub(r.Expense.Totals[i])
	}
	r.Total = r.Income.Total.Sub(r.Expense.Total)
	return r, nil
}

// =============================================================================
// OUTSTANDING
// =============================================================================

// Outstanding returns grandTotal minus what non-reverted entries booked
// against ref have settled.
func (e *Engine) Outstanding(ctx context.Context, ref ledger.Reference, grandTotal money.Money) (money.Money, error) {
	settled := e.zero()
	err := e.fold(ctx, ledger.Filter{Against: ref, Reverted: ledger.OnlyActive}, func(en ledger.Entry) error {
		settled = settled.Add(en.Net())
		return nil
	})
	if err != nil {
		return money.Money{}, err
	}
	return grandTotal.Sub(settled.Abs()), nil
}
