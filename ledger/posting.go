/*
posting.go - In-flight set of debit/credit lines for one document

PURPOSE:
  A Posting is the working set a document builds before anything touches
  the store. It validates each line as it is added, keeps running totals,
  and commits all lines as one atomic batch.

LIFECYCLE:
  1. NewPosting(ref, date, accounts, cfg)
  2. Debit/Credit lines (invalid accounts and negative amounts rejected here)
  3. Optionally ApplyRoundOff(account) to absorb a residual cent
  4. Commit(ctx, store): Validate, then Append as a single batch

ROUND-OFF:
  Independently rounded tax/discount lines can leave debit and credit one
  minor unit apart. ApplyRoundOff books that residue against a configured
  account. A difference larger than Config.RoundOffLimit is not residue, it
  is a bug in the document, and is rejected as ErrUnbalancedPosting.

  Dr Expense 100.00 / Cr A 33.33 + Cr B 33.33 + Cr C 33.33  -> diff +0.01
  ApplyRoundOff("Round Off") credits Round Off 0.01           -> balanced

OWNERSHIP:
  A Posting is not safe for concurrent use. It belongs to the document
  that created it and is discarded after Commit or a validation failure.
*/
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/warp/ledger-engine/money"
)

// Line is one not-yet-committed debit or credit.
type Line struct {
	Account string
	Party   string
	Debit   money.Money
	Credit  money.Money
	Against Reference
	Remark  string
}

// LineOption decorates a line.
type LineOption func(*Line)

// WithParty tags the line with a customer/supplier.
func WithParty(party string) LineOption {
	return func(l *Line) { l.Party = party }
}

// Against marks the line as settling another document.
func Against(ref Reference) LineOption {
	return func(l *Line) { l.Against = ref }
}

// WithRemark attaches free text.
func WithRemark(remark string) LineOption {
	return func(l *Line) { l.Remark = remark }
}

// Posting accumulates balanced lines for one document.
type Posting struct {
	ref      Reference
	date     time.Time
	accounts AccountLookup
	cfg      Config

	lines  []Line
	debit  money.Money
	credit money.Money
}

// NewPosting starts an empty posting dated on date's calendar day.
func NewPosting(ref Reference, date time.Time, accounts AccountLookup, cfg Config) *Posting {
	return &Posting{
		ref:      ref,
		date:     DayOf(date),
		accounts: accounts,
		cfg:      cfg,
		debit:    money.Zero(cfg.Precision),
		credit:   money.Zero(cfg.Precision),
	}
}

// Debit appends a debit line. Zero amounts are dropped.
func (p *Posting) Debit(account string, amount money.Money, opts ...LineOption) error {
	return p.add(account, amount, true, opts)
}

// Credit appends a credit line. Zero amounts are dropped.
func (p *Posting) Credit(account string, amount money.Money, opts ...LineOption) error {
	return p.add(account, amount, false, opts)
}

func (p *Posting) add(account string, amount money.Money, debit bool, opts []LineOption) error {
	acct, ok := p.accounts.Account(account)
	if !ok {
		return &AccountError{Account: account, Reason: "unknown account"}
	}
	if acct.IsGroup {
		return &AccountError{Account: account, Reason: "group accounts cannot hold entries"}
	}
	if amount.IsNegative() {
		return fmt.Errorf("%w: %s on %s", ErrNegativeAmount, amount, account)
	}
	scaled, err := amount.Rescale(p.cfg.Precision)
	if err != nil {
		return fmt.Errorf("%s on %s: %w", amount, account, err)
	}
	amount = scaled
	if amount.IsZero() {
		return nil
	}

	line := Line{
		Account: account,
		Debit:   money.Zero(p.cfg.Precision),
		Credit:  money.Zero(p.cfg.Precision),
	}
	for _, opt := range opts {
		opt(&line)
	}
	if debit {
		line.Debit = amount
		p.debit = p.debit.Add(amount)
	} else {
		line.Credit = amount
		p.credit = p.credit.Add(amount)
	}
	p.lines = append(p.lines, line)
	return nil
}

// Difference returns total debit - total credit.
func (p *Posting) Difference() money.Money {
	return p.debit.Sub(p.credit)
}

// Validate fails with *UnbalancedError unless total debit == total credit.
func (p *Posting) Validate() error {
	diff := p.Difference()
	if diff.IsZero() {
		return nil
	}
	return &UnbalancedError{Reference: p.ref, Debit: p.debit, Credit: p.credit, Difference: diff}
}

// ApplyRoundOff books the residual difference against account.
// Positive difference (more debit) credits it, negative debits it.
func (p *Posting) ApplyRoundOff(account string) error {
	diff := p.Difference()
	if diff.IsZero() {
		return nil
	}
	if diff.Abs().GreaterThan(p.cfg.RoundOffLimit) {
		limit := p.cfg.RoundOffLimit
		return &UnbalancedError{Reference: p.ref, Debit: p.debit, Credit: p.credit, Difference: diff, Limit: &limit}
	}
	if diff.IsPositive() {
		return p.Credit(account, diff, WithRemark("round off"))
	}
	return p.Debit(account, diff.Abs(), WithRemark("round off"))
}

// Appender is the part of Store a commit needs.
type Appender interface {
	Append(ctx context.Context, entries []Entry) ([]Entry, error)
}

// Commit validates the posting and appends every line as one batch.
func (p *Posting) Commit(ctx context.Context, store Appender) ([]Entry, error) {
	if len(p.lines) == 0 {
		return nil, fmt.Errorf("%s: %w", p.ref, ErrEmptyPosting)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return store.Append(ctx, p.Entries())
}

// Entries converts the lines to uncommitted entries.
func (p *Posting) Entries() []Entry {
	entries := make([]Entry, len(p.lines))
	for i, l := range p.lines {
		entries[i] = Entry{
			Account:   l.Account,
			Date:      p.date,
			Party:     l.Party,
			Debit:     l.Debit,
			Credit:    l.Credit,
			Reference: p.ref,
			Against:   l.Against,
			Remark:    l.Remark,
		}
	}
	return entries
}

// Reference is the document the posting's entries will be stored under.
func (p *Posting) Reference() Reference { return p.ref }

// Date is the posting date shared by every line.
func (p *Posting) Date() time.Time { return p.date }

// Lines returns a copy of the accumulated lines in insertion order.
func (p *Posting) Lines() []Line { return append([]Line(nil), p.lines...) }

// Totals returns the running debit and credit totals.
func (p *Posting) Totals() (debit, credit money.Money) {
	return p.debit, p.credit
}
