package documents

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// JournalLine is one explicit line. Exactly one of Debit and Credit is set.
type JournalLine struct {
	Account string
	Debit   money.Money
	Credit  money.Money
	Party   string
	Against ledger.Reference
	Remark  string
}

// JournalEntry posts explicit lines, for adjustments and opening balances.
type JournalEntry struct {
	Name   string
	Date   time.Time
	Remark string
	Lines  []JournalLine
}

var _ ledger.Document = JournalEntry{}

func (je JournalEntry) Ref() ledger.Reference {
	return ledger.Ref(ledger.DocJournalEntry, je.Name)
}

// GrandTotal is the total debit.
func (je JournalEntry) GrandTotal() money.Money {
	var total money.Money
	for _, l := range je.Lines {
		total = total.Add(l.Debit)
	}
	return total
}

func (je JournalEntry) BuildPosting(_ context.Context, env ledger.Env) (*ledger.Posting, error) {
	ref := je.Ref()
	if je.Name == "" {
		return nil, invalid(ref, "name is required")
	}
	if len(je.Lines) < 2 {
		return nil, invalid(ref, "a journal entry needs at least two lines")
	}

	p := env.NewPosting(ref, je.Date)
	for i, l := range je.Lines {
		if !l.Debit.IsZero() && !l.Credit.IsZero() {
			return nil, invalid(ref, "line %d has both debit and credit", i+1)
		}
		remark := l.Remark
		if remark == "" {
			remark = je.Remark
		}
		opts := []ledger.LineOption{ledger.WithParty(l.Party), ledger.Against(l.Against), ledger.WithRemark(remark)}
		var err error
		if l.Credit.IsZero() {
			err = p.Debit(l.Account, l.Debit, opts...)
		} else {
			err = p.Credit(l.Account, l.Credit, opts...)
		}
		if err != nil {
			return nil, err
		}
	}
	return p, nil
}
