/*
store.go - Persistence contract for ledger entries

PURPOSE:
  Defines the interface between the posting engine and the database.
  The store is append-mostly: entries are added in atomic batches and the
  only in-place change is flipping Reverted from false to true.

KEY INTERFACES:
  Querier: lazy, restartable reads (what reports need)
  Store:   Querier + Append, Get, MarkReverted
  TxStore: Store + WithTx (the atomicity boundary for commit and cancel)

ORDERING:
  OrderChronological yields a total order by (Date, Seq). Seq is assigned
  at append time, so two entries on the same day always come back in the
  order they were written. Running balances depend on this.

ATOMIC BATCHES:
  Append(entries) is all-or-nothing. A concurrent reader never sees half
  of a posting. Cancellation (MarkReverted on N entries + Append of N
  reversals) runs inside one WithTx for the same reason.

IMPLEMENTATIONS:
  - ledger/store/memory.go: in-memory, for tests and dev
  - store/sqlstore: SQLite or PostgreSQL
*/
package ledger

import (
	"context"
	"iter"
	"slices"
	"time"
)

// Order selects the iteration order of a query.
type Order int

const (
	// OrderInsertion yields entries by Seq.
	OrderInsertion Order = iota
	// OrderChronological yields entries by (Date, Seq).
	OrderChronological
)

// RevertedMode filters on the Reverted flag.
type RevertedMode int

const (
	AnyReverted RevertedMode = iota
	OnlyActive
	OnlyReverted
)

// Filter selects entries. Zero-valued fields do not filter.
// From and To are inclusive calendar days.
type Filter struct {
	Accounts  []string
	Party     string
	From      time.Time
	To        time.Time
	Reference Reference
	Against   Reference
	Reverts   EntryID
	Reverted  RevertedMode
	Order     Order
}

// Match reports whether e passes every predicate of f.
func (f Filter) Match(e Entry) bool {
	if len(f.Accounts) > 0 && !slices.Contains(f.Accounts, e.Account) {
		return false
	}
	if f.Party != "" && e.Party != f.Party {
		return false
	}
	if !f.From.IsZero() && e.Date.Before(DayOf(f.From)) {
		return false
	}
	if !f.To.IsZero() && e.Date.After(DayOf(f.To)) {
		return false
	}
	if !f.Reference.IsZero() && e.Reference != f.Reference {
		return false
	}
	if !f.Against.IsZero() && e.Against != f.Against {
		return false
	}
	if f.Reverts != "" && e.Reverts != f.Reverts {
		return false
	}
	switch f.Reverted {
	case OnlyActive:
		return !e.Reverted
	case OnlyReverted:
		return e.Reverted
	}
	return true
}

// Querier is the read side of the store. The returned sequence is lazy and
// may be ranged over more than once; each range re-runs the query.
// Callers must not call back into the store from inside the loop body.
type Querier interface {
	Query(ctx context.Context, f Filter) iter.Seq2[Entry, error]
}

// Store persists entries.
type Store interface {
	Querier

	// Append adds a batch atomically and returns it with ID, Seq and
	// CreatedAt filled in. On failure nothing is visible.
	Append(ctx context.Context, entries []Entry) ([]Entry, error)

	// Get returns one entry or ErrEntryNotFound.
	Get(ctx context.Context, id EntryID) (Entry, error)

	// MarkReverted flips Reverted false -> true.
	// Returns ErrAlreadyReverted if it is already true. Not idempotent on purpose.
	MarkReverted(ctx context.Context, id EntryID) error
}

// TxStore runs a function against a transactional view of the store.
// If fn returns an error every write made through the view is rolled back.
type TxStore interface {
	Store
	WithTx(ctx context.Context, fn func(Store) error) error
}

// Collect drains a query into a slice. Use only for bounded result sets.
func Collect(seq iter.Seq2[Entry, error]) ([]Entry, error) {
	var out []Entry
	for e, err := range seq {
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}
