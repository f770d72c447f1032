/*
Package documents implements the business documents that post to the ledger.

PURPOSE:
  Each document knows how to turn itself into a balanced Posting. The
  ledger.Controller is generic over ledger.Document; nothing in this
  package commits anything.

POSTINGS:
  Sales Invoice      Dr Debtors (grand total, party)
                     Cr income per item
                     Cr tax per tax account
                     Dr discount allowed
  Purchase Invoice   mirror of the above against Creditors
  Payment (receive)  Dr bank, Cr Debtors against each settled invoice
  Payment (pay)      Cr bank, Dr Creditors against each settled invoice
  Journal Entry      explicit lines

TAX ROUNDING:
  Tax is computed per item and rounded per item (banker's rounding), then
  summed per tax account. The receivable is the sum of the rounded parts,
  so the posting balances. With RoundTotal the receivable is rounded to
  whole currency units instead, and the controller books the residue to
  the round-off account.
*/
package documents

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// ErrInvalidDocument is returned when a document is missing required data.
var ErrInvalidDocument = errors.New("invalid document")

func invalid(ref ledger.Reference, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %s", ErrInvalidDocument, ref, fmt.Sprintf(format, args...))
}

// Item is one invoiced line. Quantity zero means one.
type Item struct {
	Account     string
	Description string
	Quantity    decimal.Decimal
	Rate        money.Money
}

// Amount returns Rate x Quantity rounded half-to-even at precision. A rate
// written with fewer digits is widened first, so 999 at precision 2 is
// 999.00 and its tax keeps the cents.
func (it Item) Amount(precision int32) money.Money {
	rate := money.Zero(precision).Add(it.Rate)
	if it.Quantity.IsZero() {
		return rate
	}
	return rate.MulRound(it.Quantity)
}

// Tax applies Rate (0.12 = 12%) to every item and books it to Account.
type Tax struct {
	Account string
	Rate    decimal.Decimal
}

// Invoice is the body shared by sales and purchase invoices.
type Invoice struct {
	Name            string
	Date            time.Time
	Party           string
	PartyAccount    string // Debtors or Creditors when empty
	Items           []Item
	Taxes           []Tax
	Discount        money.Money
	DiscountAccount string // Discount Allowed or Discount Received when empty
	RoundTotal      bool
}

// Totals is the computed breakdown of an invoice.
type Totals struct {
	Net        money.Money
	Tax        map[string]money.Money
	Discount   money.Money
	GrandTotal money.Money
}

// Totals computes net, per-account tax and grand total at the given precision.
func (inv Invoice) Totals(precision int32) Totals {
	t := Totals{Net: money.Zero(precision), Tax: make(map[string]money.Money), Discount: money.Zero(precision)}
	taxSum := money.Zero(precision)
	for _, it := range inv.Items {
		amount := it.Amount(precision)
		t.Net = t.Net.Add(amount)
		for _, tax := range inv.Taxes {
			share := amount.MulRound(tax.Rate)
			cur, ok := t.Tax[tax.Account]
			if !ok {
				cur = money.Zero(precision)
			}
			t.Tax[tax.Account] = cur.Add(share)
			taxSum = taxSum.Add(share)
		}
	}
	if !inv.Discount.IsZero() {
		t.Discount = t.Discount.Add(inv.Discount)
	}
	t.GrandTotal = t.Net.Add(taxSum).Sub(t.Discount)
	if inv.RoundTotal {
		t.GrandTotal = t.GrandTotal.Round(0)
	}
	return t
}

func (inv Invoice) validate(ref ledger.Reference) error {
	switch {
	case inv.Name == "":
		return invalid(ref, "name is required")
	case inv.Party == "":
		return invalid(ref, "party is required")
	case len(inv.Items) == 0:
		return invalid(ref, "at least one item is required")
	case inv.Discount.IsNegative():
		return invalid(ref, "discount %s is negative", inv.Discount)
	}
	for i, it := range inv.Items {
		if it.Account == "" {
			return invalid(ref, "item %d has no account", i+1)
		}
		if it.Quantity.IsNegative() {
			return invalid(ref, "item %d has negative quantity", i+1)
		}
	}
	for _, tax := range inv.Taxes {
		if tax.Account == "" || tax.Rate.IsNegative() {
			return invalid(ref, "tax %q at %s is not valid", tax.Account, tax.Rate)
		}
	}
	return nil
}

// build posts the invoice. sale selects the sales direction; a purchase
// swaps every side.
func (inv Invoice) build(env ledger.Env, ref ledger.Reference, sale bool) (*ledger.Posting, error) {
	if err := inv.validate(ref); err != nil {
		return nil, err
	}

	partyAccount, discountAccount := inv.PartyAccount, inv.DiscountAccount
	if partyAccount == "" {
		partyAccount = pick(sale, accounts.Debtors, accounts.Creditors)
	}
	if discountAccount == "" {
		discountAccount = pick(sale, accounts.DiscountAllowed, accounts.DiscountReceived)
	}

	// side books amount on the "receivable" side for sales and the
	// opposite for purchases.
	p := env.NewPosting(ref, inv.Date)
	side := func(receivableSide bool, account string, amount money.Money, opts ...ledger.LineOption) error {
		if receivableSide == sale {
			return p.Debit(account, amount, opts...)
		}
		return p.Credit(account, amount, opts...)
	}

	totals := inv.Totals(env.Config.Precision)
	if err := side(true, partyAccount, totals.GrandTotal, ledger.WithParty(inv.Party)); err != nil {
		return nil, err
	}
	for _, it := range inv.Items {
		if err := side(false, it.Account, it.Amount(env.Config.Precision), ledger.WithRemark(it.Description)); err != nil {
			return nil, err
		}
	}
	for _, tax := range inv.Taxes {
		amount, ok := totals.Tax[tax.Account]
		if !ok {
			continue
		}
		// each account once, even if listed twice
		delete(totals.Tax, tax.Account)
		if err := side(false, tax.Account, amount); err != nil {
			return nil, err
		}
	}
	if !totals.Discount.IsZero() {
		if err := side(true, discountAccount, totals.Discount); err != nil {
			return nil, err
		}
	}
	return p, nil
}

func pick(sale bool, ifSale, ifPurchase string) string {
	if sale {
		return ifSale
	}
	return ifPurchase
}

// =============================================================================
// SALES INVOICE
// =============================================================================

// SalesInvoice bills a customer.
type SalesInvoice struct {
	Invoice
}

var _ ledger.Document = SalesInvoice{}

func (si SalesInvoice) Ref() ledger.Reference {
	return ledger.Ref(ledger.DocSalesInvoice, si.Name)
}

// GrandTotal is the amount receivable from the customer.
func (si SalesInvoice) GrandTotal(precision int32) money.Money {
	return si.Totals(precision).GrandTotal
}

func (si SalesInvoice) BuildPosting(_ context.Context, env ledger.Env) (*ledger.Posting, error) {
	return si.build(env, si.Ref(), true)
}

// =============================================================================
// PURCHASE INVOICE
// =============================================================================

// PurchaseInvoice records a supplier bill.
type PurchaseInvoice struct {
	Invoice
}

var _ ledger.Document = PurchaseInvoice{}

func (pi PurchaseInvoice) Ref() ledger.Reference {
	return ledger.Ref(ledger.DocPurchaseInvoice, pi.Name)
}

// GrandTotal is the amount payable to the supplier.
func (pi PurchaseInvoice) GrandTotal(precision int32) money.Money {
	return pi.Totals(precision).GrandTotal
}

func (pi PurchaseInvoice) BuildPosting(_ context.Context, env ledger.Env) (*ledger.Posting, error) {
	return pi.build(env, pi.Ref(), false)
}
