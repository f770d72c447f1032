/*
Package ledger provides the double-entry posting engine.

PURPOSE:
  Turns business documents (invoices, payments, journal entries) into
  balanced debit/credit lines, commits them atomically to an append-mostly
  entry store, and reverses them on cancellation without deleting history.

KEY CONCEPTS IN THIS FILE (types.go):
  - Account:   a node in the chart of accounts (leaf or group)
  - Entry:     one committed debit OR credit line
  - Reference: the (type, name) of the document that produced an entry

DOUBLE-ENTRY INVARIANTS:
  1. Every committed posting has sum(debit) == sum(credit)
  2. Each entry has exactly one of Debit/Credit non-zero
  3. No entry references a group account
  4. Entries are never deleted; the only mutation is Reverted false -> true

REVERSAL MODEL:
  Cancelling a document does not edit its entries. For each original entry
  a new entry with debit and credit swapped is appended, pointing back at
  the original through Reverts. Both the original and the reversal carry
  Reverted=true, so reports that skip reverted entries see neither, and
  reports that include them see a net of zero.

  Original:  Debtors  Dr 1120.00                 Reverted=true
  Reversal:  Debtors            Cr 1120.00       Reverted=true, Reverts=<original>

SEE ALSO:
  - posting.go: building and committing balanced lines
  - store.go: persistence contract
  - controller.go: Draft -> Submitted -> Cancelled lifecycle
*/
package ledger

import (
	"fmt"
	"time"

	"github.com/warp/ledger-engine/money"
)

// =============================================================================
// ACCOUNTS
// =============================================================================

// RootType classifies an account for reporting.
type RootType string

const (
	Asset     RootType = "asset"
	Liability RootType = "liability"
	Equity    RootType = "equity"
	Income    RootType = "income"
	Expense   RootType = "expense"
)

// Valid reports whether t is one of the five root types.
func (t RootType) Valid() bool {
	switch t {
	case Asset, Liability, Equity, Income, Expense:
		return true
	}
	return false
}

// DebitNormal reports whether the account type normally carries a debit
// balance (assets and expenses).
func (t RootType) DebitNormal() bool {
	return t == Asset || t == Expense
}

// Account is one node of the chart of accounts.
// Group accounts only roll up their children and never hold entries.
type Account struct {
	Name        string
	RootType    RootType
	Parent      string // "" = top-level
	IsGroup     bool
	Description string
}

// AccountLookup resolves account names. Implemented by accounts.Chart.
type AccountLookup interface {
	Account(name string) (Account, bool)
}

// =============================================================================
// REFERENCES
// =============================================================================

// DocType names a kind of business document.
type DocType string

const (
	DocSalesInvoice    DocType = "SalesInvoice"
	DocPurchaseInvoice DocType = "PurchaseInvoice"
	DocPayment         DocType = "Payment"
	DocJournalEntry    DocType = "JournalEntry"
)

// Reference identifies the document that owns a set of entries.
type Reference struct {
	Type DocType
	Name string
}

// Ref is shorthand for Reference{Type: t, Name: name}.
func Ref(t DocType, name string) Reference {
	return Reference{Type: t, Name: name}
}

// IsZero reports whether both type and name are empty.
func (r Reference) IsZero() bool { return r.Type == "" && r.Name == "" }

// String formats the reference as "Type/Name", the form api.ParseReference reads.
func (r Reference) String() string { return fmt.Sprintf("%s/%s", r.Type, r.Name) }

// =============================================================================
// ENTRIES
// =============================================================================

// EntryID uniquely identifies a committed entry.
type EntryID string

// Entry is one committed ledger line.
type Entry struct {
	ID        EntryID
	Seq       int64 // insertion order, assigned by the store
	Account   string
	Date      time.Time
	Party     string
	Debit     money.Money
	Credit    money.Money
	Reference Reference
	Against   Reference // document this line settles, if any
	Remark    string
	Reverted  bool
	Reverts   EntryID // set on reversal entries
	CreatedAt time.Time
}

// Net returns Debit - Credit.
func (e Entry) Net() money.Money {
	return e.Debit.Sub(e.Credit)
}

// IsReversal reports whether e was created by cancelling another entry.
func (e Entry) IsReversal() bool {
	return e.Reverts != ""
}

// =============================================================================
// DATES
// =============================================================================

// Date returns midnight UTC for the given calendar day.
func Date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// DayOf truncates t to its calendar day in UTC. Entries are dated by day;
// same-day ordering comes from Seq.
func DayOf(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
