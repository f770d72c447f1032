/*
Package report computes the financial statements from ledger entries.

PURPOSE:
  General Ledger, Trial Balance, Balance Sheet, Profit & Loss and the
  outstanding amount of a document. All of them are pure reads: nothing
  here creates, modifies or cancels an entry.

STREAMING:
  Every report is a single fold over Querier.Query. Memory grows with the
  number of accounts (or rows returned, for the General Ledger), never with
  the number of entries scanned.

REVERTED ENTRIES:
  Reports skip reverted entries by default. Because a reversal is itself
  born reverted, a cancelled document disappears completely. The General
  Ledger can include them for audit (IncludeReverted), where the original
  and the reversal show up and net to zero.

SIGNS:
  Balances are computed as debit - credit. Statements present them in the
  account's normal direction: assets and expenses as-is, liabilities,
  equity and income negated.

SEE ALSO:
  - ledger/store.go: Querier and Filter
  - accounts/chart.go: the hierarchy used for roll-ups
*/
package report

import (
	"context"
	"errors"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// ErrTrialBalanceMismatch is returned by TrialBalanceReport.Check when
// grand total debit != grand total credit. It indicates a posting bug.
var ErrTrialBalanceMismatch = errors.New("trial balance does not balance")

// Chart is the part of the chart of accounts the reports need.
// Implemented by accounts.Chart.
type Chart interface {
	ledger.AccountLookup
	All() []ledger.Account
	Leaves(name string) []string
	Depth(name string) int
}

// Engine runs reports against one entry source.
type Engine struct {
	src   ledger.Querier
	chart Chart
	cfg   ledger.Config
}

// New creates a report engine. cfg supplies the currency precision.
func New(src ledger.Querier, chart Chart, cfg ledger.Config) *Engine {
	return &Engine{src: src, chart: chart, cfg: cfg}
}

func (e *Engine) zero() money.Money { return money.Zero(e.cfg.Precision) }

// fold runs f over every entry matching filter.
func (e *Engine) fold(ctx context.Context, filter ledger.Filter, f func(ledger.Entry) error) error {
	for entry, err := range e.src.Query(ctx, filter) {
		if err != nil {
			return err
		}
		if err := f(entry); err != nil {
			return err
		}
	}
	return nil
}

// selectAccounts expands name to its leaf accounts. Empty name selects all.
func (e *Engine) selectAccounts(name string) ([]string, error) {
	if name == "" {
		return nil, nil
	}
	if _, ok := e.chart.Account(name); !ok {
		return nil, &ledger.AccountError{Account: name, Reason: "unknown account"}
	}
	leaves := e.chart.Leaves(name)
	if len(leaves) == 0 {
		return nil, &ledger.AccountError{Account: name, Reason: "group has no leaf accounts"}
	}
	return leaves, nil
}

// normal presents a debit - credit balance in the account's normal direction.
func normal(t ledger.RootType, net money.Money) money.Money {
	if t.DebitNormal() {
		return net
	}
	return net.Neg()
}

// split puts a debit - credit balance on the side it belongs.
func split(net, zero money.Money) (debit, credit money.Money) {
	if net.IsNegative() {
		return zero, net.Neg()
	}
	return net, zero
}
