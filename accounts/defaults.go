package accounts

import "github.com/warp/ledger-engine/ledger"

// Names of the accounts in DefaultChart that documents and config refer to.
const (
	Cash             = "Cash"
	Bank             = "Bank"
	Debtors          = "Debtors"
	InputTax         = "Input Tax"
	Creditors        = "Creditors"
	OutputTax        = "Output Tax"
	Capital          = "Capital"
	RetainedEarnings = "Retained Earnings"
	Revenue          = "Revenue"
	ServiceRevenue   = "Service Revenue"
	CostOfGoodsSold  = "Cost of Goods Sold"
	OfficeExpenses   = "Office Expenses"
	DiscountAllowed  = "Discount Allowed"
	DiscountReceived = "Discount Received"
	RoundOff         = "Round Off"
	WriteOff         = "Write Off"
)

// DefaultChart returns a small standard chart suitable for a trading business.
func DefaultChart() []ledger.Account {
	group := func(name string, t ledger.RootType, parent string) ledger.Account {
		return ledger.Account{Name: name, RootType: t, Parent: parent, IsGroup: true}
	}
	leaf := func(name string, t ledger.RootType, parent string) ledger.Account {
		return ledger.Account{Name: name, RootType: t, Parent: parent}
	}
	return []ledger.Account{
		group("Assets", ledger.Asset, ""),
		group("Current Assets", ledger.Asset, "Assets"),
		leaf(Cash, ledger.Asset, "Current Assets"),
		leaf(Bank, ledger.Asset, "Current Assets"),
		leaf(Debtors, ledger.Asset, "Current Assets"),
		leaf(InputTax, ledger.Asset, "Current Assets"),
		group("Fixed Assets", ledger.Asset, "Assets"),
		leaf("Equipment", ledger.Asset, "Fixed Assets"),

		group("Liabilities", ledger.Liability, ""),
		group("Current Liabilities", ledger.Liability, "Liabilities"),
		leaf(Creditors, ledger.Liability, "Current Liabilities"),
		leaf(OutputTax, ledger.Liability, "Current Liabilities"),

		group("Equity", ledger.Equity, ""),
		leaf(Capital, ledger.Equity, "Equity"),
		leaf(RetainedEarnings, ledger.Equity, "Equity"),

		group("Income", ledger.Income, ""),
		group("Direct Income", ledger.Income, "Income"),
		leaf(Revenue, ledger.Income, "Direct Income"),
		leaf(ServiceRevenue, ledger.Income, "Direct Income"),
		group("Indirect Income", ledger.Income, "Income"),
		leaf(DiscountReceived, ledger.Income, "Indirect Income"),

		group("Expenses", ledger.Expense, ""),
		group("Direct Expenses", ledger.Expense, "Expenses"),
		leaf(CostOfGoodsSold, ledger.Expense, "Direct Expenses"),
		group("Indirect Expenses", ledger.Expense, "Expenses"),
		leaf(OfficeExpenses, ledger.Expense, "Indirect Expenses"),
		leaf(DiscountAllowed, ledger.Expense, "Indirect Expenses"),
		leaf(RoundOff, ledger.Expense, "Indirect Expenses"),
		leaf(WriteOff, ledger.Expense, "Indirect Expenses"),
	}
}
