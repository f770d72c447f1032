/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the ledger and document model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS AND DATES:
  Amounts travel as decimal strings ("1120.00") and are parsed at the
  configured posting precision, so a client cannot smuggle in a third
  decimal. Dates are "2006-01-02". References are "Type/Name", for example
  "SalesInvoice/SI-1".

VALIDATION:
  Conversion (To* methods) checks formats only. Business rules (known
  accounts, balance, lifecycle) are enforced by the documents and the
  controller.

SEE ALSO:
  - handlers.go: Uses these types
  - documents/: The domain documents built from requests
*/
package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/documents"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
	"github.com/warp/ledger-engine/report"
)

const dateLayout = "2006-01-02"

// ErrInvalidRequest is returned when a request body or query is malformed.
var ErrInvalidRequest = errors.New("invalid request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// =============================================================================
// PARSING HELPERS
// =============================================================================

func parseDate(field, s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, badRequest("%s %q: use YYYY-MM-DD", field, s)
	}
	return d, nil
}

func parseAmount(field, s string, precision int32) (money.Money, error) {
	if s == "" {
		return money.Zero(precision), nil
	}
	m, err := money.Parse(s, precision)
	if err != nil {
		return money.Money{}, fmt.Errorf("%s: %w", field, err)
	}
	return m, nil
}

func parseDecimal(field, s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Decimal{}, badRequest("%s %q is not a number", field, s)
	}
	return d, nil
}

// ParseReference reads "Type/Name". An empty string is the zero reference.
func ParseReference(s string) (ledger.Reference, error) {
	if s == "" {
		return ledger.Reference{}, nil
	}
	typ, name, ok := strings.Cut(s, "/")
	if !ok || typ == "" || name == "" {
		return ledger.Reference{}, badRequest("reference %q: use Type/Name", s)
	}
	return ledger.Ref(ledger.DocType(typ), name), nil
}

// docTypes maps URL path segments to document types.
var docTypes = map[string]ledger.DocType{
	"journal-entries":   ledger.DocJournalEntry,
	"sales-invoices":    ledger.DocSalesInvoice,
	"purchase-invoices": ledger.DocPurchaseInvoice,
	"payments":          ledger.DocPayment,
}

func docTypeOf(segment string) (ledger.DocType, error) {
	if t, ok := docTypes[segment]; ok {
		return t, nil
	}
	for _, t := range docTypes {
		if string(t) == segment {
			return t, nil
		}
	}
	return "", badRequest("unknown document type %q", segment)
}

// =============================================================================
// REQUEST TYPES
// =============================================================================

// JournalLineRequest is one explicit journal line.
type JournalLineRequest struct {
	Account string `json:"account"`
	Debit   string `json:"debit,omitempty"`
	Credit  string `json:"credit,omitempty"`
	Party   string `json:"party,omitempty"`
	Against string `json:"against,omitempty"`
	Remark  string `json:"remark,omitempty"`
}

// JournalEntryRequest submits a journal entry.
type JournalEntryRequest struct {
	Name   string               `json:"name"`
	Date   string               `json:"date"`
	Remark string               `json:"remark,omitempty"`
	Lines  []JournalLineRequest `json:"lines"`
}

// ToDocument converts the request at the given posting precision.
func (req JournalEntryRequest) ToDocument(precision int32) (documents.JournalEntry, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return documents.JournalEntry{}, err
	}
	je := documents.JournalEntry{Name: req.Name, Date: date, Remark: req.Remark}
	for i, l := range req.Lines {
		debit, err := parseAmount(fmt.Sprintf("lines[%d].debit", i), l.Debit, precision)
		if err != nil {
			return documents.JournalEntry{}, err
		}
		credit, err := parseAmount(fmt.Sprintf("lines[%d].credit", i), l.Credit, precision)
		if err != nil {
			return documents.JournalEntry{}, err
		}
		against, err := ParseReference(l.Against)
		if err != nil {
			return documents.JournalEntry{}, err
		}
		je.Lines = append(je.Lines, documents.JournalLine{
			Account: l.Account,
			Debit:   debit,
			Credit:  credit,
			Party:   l.Party,
			Against: against,
			Remark:  l.Remark,
		})
	}
	return je, nil
}

// ItemRequest is one invoice line. Quantity defaults to 1.
type ItemRequest struct {
	Account     string `json:"account"`
	Description string `json:"description,omitempty"`
	Quantity    string `json:"quantity,omitempty"`
	Rate        string `json:"rate"`
}

// TaxRequest applies Rate ("0.12" = 12%) to every item.
type TaxRequest struct {
	Account string `json:"account"`
	Rate    string `json:"rate"`
}

// InvoiceRequest submits a sales or purchase invoice.
type InvoiceRequest struct {
	Name            string        `json:"name"`
	Date            string        `json:"date"`
	Party           string        `json:"party"`
	PartyAccount    string        `json:"party_account,omitempty"`
	Items           []ItemRequest `json:"items"`
	Taxes           []TaxRequest  `json:"taxes,omitempty"`
	Discount        string        `json:"discount,omitempty"`
	DiscountAccount string        `json:"discount_account,omitempty"`
	RoundTotal      bool          `json:"round_total,omitempty"`
}

// ToInvoice converts the shared invoice body.
func (req InvoiceRequest) ToInvoice(precision int32) (documents.Invoice, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return documents.Invoice{}, err
	}
	discount, err := parseAmount("discount", req.Discount, precision)
	if err != nil {
		return documents.Invoice{}, err
	}
	inv := documents.Invoice{
		Name:            req.Name,
		Date:            date,
		Party:           req.Party,
		PartyAccount:    req.PartyAccount,
		Discount:        discount,
		DiscountAccount: req.DiscountAccount,
		RoundTotal:      req.RoundTotal,
	}
	for i, it := range req.Items {
		qty, err := parseDecimal(fmt.Sprintf("items[%d].quantity", i), it.Quantity)
		if err != nil {
			return documents.Invoice{}, err
		}
		rate, err := parseAmount(fmt.Sprintf("items[%d].rate", i), it.Rate, precision)
		if err != nil {
			return documents.Invoice{}, err
		}
		inv.Items = append(inv.Items, documents.Item{
			Account:     it.Account,
			Description: it.Description,
			Quantity:    qty,
			Rate:        rate,
		})
	}
	for i, tx := range req.Taxes {
		rate, err := parseDecimal(fmt.Sprintf("taxes[%d].rate", i), tx.Rate)
		if err != nil {
			return documents.Invoice{}, err
		}
		inv.Taxes = append(inv.Taxes, documents.Tax{Account: tx.Account, Rate: rate})
	}
	return inv, nil
}

// AllocationRequest settles part of a payment against an invoice.
type AllocationRequest struct {
	Reference string `json:"reference"`
	Amount    string `json:"amount"`
}

// PaymentRequest submits a payment.
type PaymentRequest struct {
	Name         string              `json:"name"`
	Date         string              `json:"date"`
	Type         string              `json:"type"`
	Party        string              `json:"party"`
	PartyAccount string              `json:"party_account,omitempty"`
	Account      string              `json:"account,omitempty"`
	Amount       string              `json:"amount"`
	Allocations  []AllocationRequest `json:"allocations,omitempty"`
}

// ToDocument converts the request at the given posting precision.
func (req PaymentRequest) ToDocument(precision int32) (documents.Payment, error) {
	date, err := parseDate("date", req.Date)
	if err != nil {
		return documents.Payment{}, err
	}
	amount, err := parseAmount("amount", req.Amount, precision)
	if err != nil {
		return documents.Payment{}, err
	}
	p := documents.Payment{
		Name:         req.Name,
		Date:         date,
		Type:         documents.PaymentType(req.Type),
		Party:        req.Party,
		PartyAccount: req.PartyAccount,
		Account:      req.Account,
		Amount:       amount,
	}
	for i, a := range req.Allocations {
		ref, err := ParseReference(a.Reference)
		if err != nil {
			return documents.Payment{}, err
		}
		amt, err := parseAmount(fmt.Sprintf("allocations[%d].amount", i), a.Amount, precision)
		if err != nil {
			return documents.Payment{}, err
		}
		p.Allocations = append(p.Allocations, documents.Allocation{Reference: ref, Amount: amt})
	}
	return p, nil
}

// CancelRequest is the optional body of a cancel call. Date defaults to today.
type CancelRequest struct {
	Date string `json:"date,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// AccountDTO represents one chart account.
type AccountDTO struct {
	Name        string `json:"name"`
	RootType    string `json:"root_type"`
	Parent      string `json:"parent,omitempty"`
	IsGroup     bool   `json:"is_group"`
	Description string `json:"description,omitempty"`
}

func ToAccountDTO(a ledger.Account) AccountDTO {
	return AccountDTO{
		Name:        a.Name,
		RootType:    string(a.RootType),
		Parent:      a.Parent,
		IsGroup:     a.IsGroup,
		Description: a.Description,
	}
}

// EntryDTO represents one committed ledger entry.
type EntryDTO struct {
	ID        string      `json:"id"`
	Seq       int64       `json:"seq"`
	Account   string      `json:"account"`
	Date      string      `json:"date"`
	Party     string      `json:"party,omitempty"`
	Debit     money.Money `json:"debit"`
	Credit    money.Money `json:"credit"`
	Reference string      `json:"reference"`
	Against   string      `json:"against,omitempty"`
	Remark    string      `json:"remark,omitempty"`
	Reverted  bool        `json:"reverted"`
	Reverts   string      `json:"reverts,omitempty"`
	CreatedAt string      `json:"created_at,omitempty"`
}

func ToEntryDTO(e ledger.Entry) EntryDTO {
	dto := EntryDTO{
		ID:        string(e.ID),
		Seq:       e.Seq,
		Account:   e.Account,
		Date:      e.Date.Format(dateLayout),
		Party:     e.Party,
		Debit:     e.Debit,
		Credit:    e.Credit,
		Reference: e.Reference.String(),
		Remark:    e.Remark,
		Reverted:  e.Reverted,
		Reverts:   string(e.Reverts),
	}
	if !e.Against.IsZero() {
		dto.Against = e.Against.String()
	}
	if !e.CreatedAt.IsZero() {
		dto.CreatedAt = e.CreatedAt.Format(time.RFC3339)
	}
	return dto
}

func ToEntryDTOs(entries []ledger.Entry) []EntryDTO {
	dtos := make([]EntryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = ToEntryDTO(e)
	}
	return dtos
}

// DocumentDTO is a document's lifecycle state and its entries.
type DocumentDTO struct {
	Reference string     `json:"reference"`
	Status    string     `json:"status"`
	Entries   []EntryDTO `json:"entries"`
}

// OutstandingDTO is the unsettled part of an invoice.
type OutstandingDTO struct {
	Reference   string      `json:"reference"`
	GrandTotal  money.Money `json:"grand_total"`
	Outstanding money.Money `json:"outstanding"`
}

// GLRowDTO is one General Ledger row.
type GLRowDTO struct {
	EntryDTO
	Balance money.Money `json:"balance"`
}

// GeneralLedgerDTO is the General Ledger report.
type GeneralLedgerDTO struct {
	Account string      `json:"account,omitempty"`
	From    string      `json:"from,omitempty"`
	To      string      `json:"to,omitempty"`
	Opening money.Money `json:"opening"`
	Debit   money.Money `json:"debit"`
	Credit  money.Money `json:"credit"`
	Closing money.Money `json:"closing"`
	Rows    []GLRowDTO  `json:"rows"`
}

func ToGeneralLedgerDTO(r *report.GeneralLedgerReport) GeneralLedgerDTO {
	dto := GeneralLedgerDTO{
		Account: r.Options.Account,
		From:    formatDate(r.Options.From),
		To:      formatDate(r.Options.To),
		Opening: r.Opening,
		Debit:   r.Debit,
		Credit:  r.Credit,
		Closing: r.Closing,
		Rows:    make([]GLRowDTO, len(r.Rows)),
	}
	for i, row := range r.Rows {
		dto.Rows[i] = GLRowDTO{EntryDTO: ToEntryDTO(row.Entry), Balance: row.Balance}
	}
	return dto
}

// TBRowDTO is one Trial Balance line.
type TBRowDTO struct {
	Account       string      `json:"account,omitempty"`
	RootType      string      `json:"root_type,omitempty"`
	OpeningDebit  money.Money `json:"opening_debit"`
	OpeningCredit money.Money `json:"opening_credit"`
	Debit         money.Money `json:"debit"`
	Credit        money.Money `json:"credit"`
	ClosingDebit  money.Money `json:"closing_debit"`
	ClosingCredit money.Money `json:"closing_credit"`
}

func ToTBRowDTO(r report.TBRow) TBRowDTO {
	return TBRowDTO{
		Account:       r.Account,
		RootType:      string(r.RootType),
		OpeningDebit:  r.OpeningDebit,
		OpeningCredit: r.OpeningCredit,
		Debit:         r.Debit,
		Credit:        r.Credit,
		ClosingDebit:  r.ClosingDebit,
		ClosingCredit: r.ClosingCredit,
	}
}

// TrialBalanceDTO is the Trial Balance report.
type TrialBalanceDTO struct {
	From     string     `json:"from,omitempty"`
	AsOf     string     `json:"as_of,omitempty"`
	Rows     []TBRowDTO `json:"rows"`
	Total    TBRowDTO   `json:"total"`
	Balanced bool       `json:"balanced"`
}

func ToTrialBalanceDTO(r *report.TrialBalanceReport) TrialBalanceDTO {
	dto := TrialBalanceDTO{
		From:     formatDate(r.Options.From),
		AsOf:     formatDate(r.Options.AsOf),
		Rows:     make([]TBRowDTO, len(r.Rows)),
		Total:    ToTBRowDTO(r.Total),
		Balanced: r.Check() == nil,
	}
	for i, row := range r.Rows {
		dto.Rows[i] = ToTBRowDTO(row)
	}
	return dto
}

// LineDTO is one statement line.
type LineDTO struct {
	Account string        `json:"account"`
	Depth   int           `json:"depth"`
	IsGroup bool          `json:"is_group"`
	Amounts []money.Money `json:"amounts"`
	Total   money.Money   `json:"total"`
}

// SectionDTO is one root-type block of a statement.
type SectionDTO struct {
	RootType string        `json:"root_type"`
	Lines    []LineDTO     `json:"lines"`
	Totals   []money.Money `json:"totals"`
	Total    money.Money   `json:"total"`
}

func ToSectionDTO(s report.Section) SectionDTO {
	dto := SectionDTO{
		RootType: string(s.RootType),
		Lines:    make([]LineDTO, len(s.Lines)),
		Totals:   s.Totals,
		Total:    s.Total,
	}
	for i, l := range s.Lines {
		dto.Lines[i] = LineDTO{
			Account: l.Account,
			Depth:   l.Depth,
			IsGroup: l.IsGroup,
			Amounts: l.Amounts,
			Total:   l.Total,
		}
	}
	return dto
}

// BalanceSheetDTO is the Balance Sheet report.
type BalanceSheetDTO struct {
	AsOf        string      `json:"as_of,omitempty"`
	Assets      SectionDTO  `json:"assets"`
	Liabilities SectionDTO  `json:"liabilities"`
	Equity      SectionDTO  `json:"equity"`
	Profit      money.Money `json:"profit"`
	Residual    money.Money `json:"residual"`
	Balanced    bool        `json:"balanced"`
}

func ToBalanceSheetDTO(r *report.BalanceSheetReport) BalanceSheetDTO {
	return BalanceSheetDTO{
		AsOf:        formatDate(r.Options.AsOf),
		Assets:      ToSectionDTO(r.Assets),
		Liabilities: ToSectionDTO(r.Liabilities),
		Equity:      ToSectionDTO(r.Equity),
		Profit:      r.Profit,
		Residual:    r.Residual,
		Balanced:    r.Balanced(),
	}
}

// PeriodDTO is one report column.
type PeriodDTO struct {
	Label string `json:"label"`
	Start string `json:"start"`
	End   string `json:"end"`
}

// ProfitAndLossDTO is the Profit & Loss report.
type ProfitAndLossDTO struct {
	From        string        `json:"from,omitempty"`
	To          string        `json:"to"`
	Periodicity string        `json:"periodicity,omitempty"`
	Periods     []PeriodDTO   `json:"periods"`
	Income      SectionDTO    `json:"income"`
	Expense     SectionDTO    `json:"expense"`
	NetProfit   []money.Money `json:"net_profit"`
	Total       money.Money   `json:"total"`
}

func ToProfitAndLossDTO(r *report.ProfitAndLossReport) ProfitAndLossDTO {
	dto := ProfitAndLossDTO{
		From:        formatDate(r.Options.From),
		To:          formatDate(r.Options.To),
		Periodicity: string(r.Options.Periodicity),
		Periods:     make([]PeriodDTO, len(r.Periods)),
		Income:      ToSectionDTO(r.Income),
		Expense:     ToSectionDTO(r.Expense),
		NetProfit:   r.NetProfit,
		Total:       r.Total,
	}
	for i, p := range r.Periods {
		dto.Periods[i] = PeriodDTO{
			Label: p.Label(r.Options.Periodicity),
			Start: formatDate(p.Start),
			End:   formatDate(p.End),
		}
	}
	return dto
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}
