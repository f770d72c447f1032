package documents

import (
	"context"
	"time"

	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// PaymentType is the direction of money.
type PaymentType string

const (
	Receive PaymentType = "receive"
	Pay     PaymentType = "pay"
)

// Allocation settles part of a payment against one invoice.
type Allocation struct {
	Reference ledger.Reference
	Amount    money.Money
}

// Payment moves money between a bank/cash account and a party.
// Allocated amounts are booked Against their invoice so that the
// invoice's outstanding amount can be computed; any remainder stays on the
// party account as an advance.
type Payment struct {
	Name         string
	Date         time.Time
	Type         PaymentType
	Party        string
	PartyAccount string // Debtors for Receive, Creditors for Pay when empty
	Account      string // Bank when empty
	Amount       money.Money
	Allocations  []Allocation
}

var _ ledger.Document = Payment{}

func (p Payment) Ref() ledger.Reference {
	return ledger.Ref(ledger.DocPayment, p.Name)
}

// GrandTotal is the payment amount.
func (p Payment) GrandTotal() money.Money { return p.Amount }

// Unallocated returns the part of Amount not settled against any invoice.
func (p Payment) Unallocated() money.Money {
	rest := p.Amount
	for _, a := range p.Allocations {
		rest = rest.Sub(a.Amount)
	}
	return rest
}

func (p Payment) validate() error {
	ref := p.Ref()
	switch {
	case p.Name == "":
		return invalid(ref, "name is required")
	case p.Type != Receive && p.Type != Pay:
		return invalid(ref, "payment type %q is not receive or pay", p.Type)
	case p.Party == "":
		return invalid(ref, "party is required")
	case !p.Amount.IsPositive():
		return invalid(ref, "amount %s must be positive", p.Amount)
	}
	for _, a := range p.Allocations {
		if a.Reference.IsZero() || !a.Amount.IsPositive() {
			return invalid(ref, "allocation %s of %s is not valid", a.Reference, a.Amount)
		}
	}
	if p.Unallocated().IsNegative() {
		return invalid(ref, "allocations exceed amount %s", p.Amount)
	}
	return nil
}

func (p Payment) BuildPosting(_ context.Context, env ledger.Env) (*ledger.Posting, error) {
	if err := p.validate(); err != nil {
		return nil, err
	}

	receive := p.Type == Receive
	partyAccount, account := p.PartyAccount, p.Account
	if partyAccount == "" {
		partyAccount = pick(receive, accounts.Debtors, accounts.Creditors)
	}
	if account == "" {
		account = accounts.Bank
	}

	posting := env.NewPosting(p.Ref(), p.Date)
	cash, party := posting.Credit, posting.Debit
	if receive {
		cash, party = posting.Debit, posting.Credit
	}

	if err := cash(account, p.Amount); err != nil {
		return nil, err
	}
	for _, a := range p.Allocations {
		if err := party(partyAccount, a.Amount, ledger.WithParty(p.Party), ledger.Against(a.Reference)); err != nil {
			return nil, err
		}
	}
	if rest := p.Unallocated(); !rest.IsZero() {
		if err := party(partyAccount, rest, ledger.WithParty(p.Party), ledger.WithRemark("unallocated")); err != nil {
			return nil, err
		}
	}
	return posting, nil
}
