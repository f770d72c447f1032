/*
handlers_test.go - HTTP tests for the ledger API

Tests for:
- Document submission, lookup and cancellation
- Error mapping (400 / 404 / 409 / 503)
- Report endpoints
- Scenarios and the integrity check
*/
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/documents"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/money"
	"github.com/warp/ledger-engine/report"
	"go.uber.org/zap/zaptest"
)

type fixture struct {
	h     *Handler
	srv   http.Handler
	store *store.Memory
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	chart := accounts.MustNew(accounts.DefaultChart())
	st := store.NewMemory()
	cfg := ledger.DefaultConfig()
	cfg.RoundOffAccount = accounts.RoundOff

	ctrl := ledger.NewController(st, chart, cfg,
		ledger.WithClock(func() time.Time { return ledger.Date(2025, time.May, 10) }))
	h := NewHandler(ctrl, chart, report.New(st, chart, cfg), zaptest.NewLogger(t))
	return &fixture{h: h, srv: NewRouter(h, nil), store: st}
}

func (f *fixture) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	f.srv.ServeHTTP(rec, req)
	return rec
}

func decodeAs[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func invoiceRequest(name string) InvoiceRequest {
	return InvoiceRequest{
		Name:  name,
		Date:  "2025-02-10",
		Party: "Acme Corp",
		Items: []ItemRequest{{Account: accounts.Revenue, Rate: "1000"}},
		Taxes: []TaxRequest{{Account: accounts.OutputTax, Rate: "0.12"}},
	}
}

func journalRequest(name, date, debit, credit, amount string) JournalEntryRequest {
	return JournalEntryRequest{
		Name: name,
		Date: date,
		Lines: []JournalLineRequest{
			{Account: debit, Debit: amount},
			{Account: credit, Credit: amount},
		},
	}
}

// =============================================================================
// ACCOUNTS
// =============================================================================

func TestListAccounts(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/accounts", nil)

	require.Equal(t, http.StatusOK, rec.Code)
	accts := decodeAs[[]AccountDTO](t, rec)
	assert.Len(t, accts, len(accounts.DefaultChart()))
	assert.Equal(t, "Assets", accts[0].Name)
}

func TestGetAccount(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/accounts/Output%20Tax", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	acct := decodeAs[AccountDTO](t, rec)
	assert.Equal(t, "liability", acct.RootType)
	assert.False(t, acct.IsGroup)

	rec = f.do(t, http.MethodGet, "/api/accounts/Nope", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

// =============================================================================
// DOCUMENTS
// =============================================================================

func TestSubmitSalesInvoice(t *testing.T) {
	// GIVEN: An empty ledger
	f := newFixture(t)

	// WHEN: A 1000 + 12% tax invoice is submitted
	rec := f.do(t, http.MethodPost, "/api/documents/sales-invoices", invoiceRequest("SI-1"))

	// THEN: Three entries are posted and the document is submitted
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	doc := decodeAs[DocumentDTO](t, rec)
	assert.Equal(t, "SalesInvoice/SI-1", doc.Reference)
	assert.Equal(t, "submitted", doc.Status)
	require.Len(t, doc.Entries, 3)

	byAccount := map[string]EntryDTO{}
	for _, e := range doc.Entries {
		byAccount[e.Account] = e
	}
	assert.Equal(t, "1120.00", byAccount[accounts.Debtors].Debit.String())
	assert.Equal(t, "Acme Corp", byAccount[accounts.Debtors].Party)
	assert.Equal(t, "1000.00", byAccount[accounts.Revenue].Credit.String())
	assert.Equal(t, "120.00", byAccount[accounts.OutputTax].Credit.String())

	// AND: It can be fetched by slug or by type name
	for _, path := range []string{"/api/documents/sales-invoices/SI-1", "/api/documents/SalesInvoice/SI-1"} {
		rec = f.do(t, http.MethodGet, path, nil)
		require.Equal(t, http.StatusOK, rec.Code, path)
		assert.Equal(t, "submitted", decodeAs[DocumentDTO](t, rec).Status)
	}
}

func TestSubmit_TwiceIsConflict(t *testing.T) {
	f := newFixture(t)
	req := journalRequest("JE-1", "2025-01-01", accounts.Cash, accounts.Capital, "500")

	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/documents/journal-entries", req).Code)
	rec := f.do(t, http.MethodPost, "/api/documents/journal-entries", req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, 2, f.store.Len())
}

func TestSubmit_ClientErrors(t *testing.T) {
	tests := []struct {
		name string
		path string
		body any
	}{
		{
			name: "group account",
			path: "/api/documents/journal-entries",
			body: journalRequest("JE-1", "2025-01-01", "Current Assets", accounts.Capital, "500"),
		},
		{
			name: "too many decimals",
			path: "/api/documents/journal-entries",
			body: journalRequest("JE-1", "2025-01-01", accounts.Cash, accounts.Capital, "1.234"),
		},
		{
			name: "bad date",
			path: "/api/documents/journal-entries",
			body: journalRequest("JE-1", "01/02/2025", accounts.Cash, accounts.Capital, "500"),
		},
		{
			name: "unbalanced beyond round-off limit",
			path: "/api/documents/journal-entries",
			body: JournalEntryRequest{Name: "JE-1", Date: "2025-01-01", Lines: []JournalLineRequest{
				{Account: accounts.Cash, Debit: "505"},
				{Account: accounts.Capital, Credit: "500"},
			}},
		},
		{
			name: "bad against reference",
			path: "/api/documents/payments",
			body: PaymentRequest{Name: "PAY-1", Date: "2025-01-01", Type: "receive", Party: "Acme", Amount: "10",
				Allocations: []AllocationRequest{{Reference: "SI-1", Amount: "10"}}},
		},
		{
			name: "empty document name",
			path: "/api/documents/journal-entries",
			body: journalRequest("", "2025-01-01", accounts.Cash, accounts.Capital, "500"),
		},
		{
			name: "invoice without items",
			path: "/api/documents/sales-invoices",
			body: InvoiceRequest{Name: "SI-1", Date: "2025-01-01", Party: "Acme"},
		},
		{
			name: "malformed body",
			path: "/api/documents/purchase-invoices",
			body: "not an object",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)

			rec := f.do(t, http.MethodPost, tt.path, tt.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decodeAs[ErrorResponse](t, rec).Error)
			assert.Zero(t, f.store.Len(), "nothing may be persisted")
		})
	}
}

func TestCancelDocument(t *testing.T) {
	// GIVEN: A submitted invoice
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/documents/sales-invoices", invoiceRequest("SI-1")).Code)

	// WHEN: It is cancelled
	rec := f.do(t, http.MethodPost, "/api/documents/sales-invoices/SI-1/cancel", CancelRequest{Date: "2025-03-01"})

	// THEN: Three mirrored reversals dated on the cancel date are returned
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	doc := decodeAs[DocumentDTO](t, rec)
	assert.Equal(t, "cancelled", doc.Status)
	require.Len(t, doc.Entries, 3)
	for _, e := range doc.Entries {
		assert.Equal(t, "2025-03-01", e.Date)
		assert.NotEmpty(t, e.Reverts)
		assert.True(t, e.Reverted)
	}

	// AND: The document reads back as cancelled with six entries
	rec = f.do(t, http.MethodGet, "/api/documents/sales-invoices/SI-1", nil)
	got := decodeAs[DocumentDTO](t, rec)
	assert.Equal(t, "cancelled", got.Status)
	assert.Len(t, got.Entries, 6)

	// AND: Cancelling again is a no-op without a body
	rec = f.do(t, http.MethodPost, "/api/documents/sales-invoices/SI-1/cancel", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, decodeAs[DocumentDTO](t, rec).Entries)
	assert.Equal(t, 6, f.store.Len())
}

func TestCancelDocument_Draft(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodPost, "/api/documents/payments/PAY-9/cancel", nil)

	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetDocument_Errors(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(t, http.MethodGet, "/api/documents/journal-entries/JE-404", nil).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/documents/quotes/Q-1", nil).Code)
}

func TestOutstanding(t *testing.T) {
	// GIVEN: An invoice of 1120 with 720 received against it
	f := newFixture(t)
	require.Equal(t, http.StatusCreated, f.do(t, http.MethodPost, "/api/documents/sales-invoices", invoiceRequest("SI-1")).Code)
	rec := f.do(t, http.MethodPost, "/api/documents/payments", PaymentRequest{
		Name: "PAY-1", Date: "2025-03-05", Type: "receive", Party: "Acme Corp", Amount: "720",
		Allocations: []AllocationRequest{{Reference: "SalesInvoice/SI-1", Amount: "720"}},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	// WHEN: Outstanding is requested
	rec = f.do(t, http.MethodGet, "/api/documents/sales-invoices/SI-1/outstanding?grand_total=1120", nil)

	// THEN: 400 remains
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	out := decodeAs[OutstandingDTO](t, rec)
	assert.Equal(t, "400.00", out.Outstanding.String())

	rec = f.do(t, http.MethodGet, "/api/documents/sales-invoices/SI-1/outstanding", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// REPORTS
// =============================================================================

func seedJournals(t *testing.T, f *fixture) {
	t.Helper()
	for _, req := range []JournalEntryRequest{
		journalRequest("JE-1", "2025-01-01", accounts.Cash, accounts.Capital, "500"),
		journalRequest("JE-2", "2025-01-02", accounts.OfficeExpenses, accounts.Cash, "200"),
	} {
		rec := f.do(t, http.MethodPost, "/api/documents/journal-entries", req)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}
	rec := f.do(t, http.MethodPost, "/api/documents/sales-invoices", invoiceRequest("SI-1"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func TestGeneralLedgerReport(t *testing.T) {
	f := newFixture(t)
	seedJournals(t, f)

	rec := f.do(t, http.MethodGet, "/api/reports/general-ledger?account=Cash", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	gl := decodeAs[GeneralLedgerDTO](t, rec)
	require.Len(t, gl.Rows, 2)
	assert.Equal(t, "500.00", gl.Rows[0].Balance.String())
	assert.Equal(t, "300.00", gl.Rows[1].Balance.String())
	assert.Equal(t, "300.00", gl.Closing.String())

	rec = f.do(t, http.MethodGet, "/api/reports/general-ledger?account=Nope", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/reports/general-ledger?include_reverted=maybe", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestTrialBalanceReport(t *testing.T) {
	f := newFixture(t)
	seedJournals(t, f)

	rec := f.do(t, http.MethodGet, "/api/reports/trial-balance?as_of=2025-12-31", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	tb := decodeAs[TrialBalanceDTO](t, rec)
	assert.True(t, tb.Balanced)
	assert.Equal(t, "1820.00", tb.Total.Debit.String())
	assert.Equal(t, "1820.00", tb.Total.Credit.String())
}

func TestBalanceSheetReport(t *testing.T) {
	f := newFixture(t)
	seedJournals(t, f)

	rec := f.do(t, http.MethodGet, "/api/reports/balance-sheet?as_of=2025-12-31&depth=1", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	bs := decodeAs[BalanceSheetDTO](t, rec)
	assert.True(t, bs.Balanced)
	assert.Equal(t, "1420.00", bs.Assets.Total.String())
	assert.Equal(t, "800.00", bs.Profit.String())
	require.Len(t, bs.Assets.Lines, 1)
	assert.Equal(t, "Assets", bs.Assets.Lines[0].Account)

	rec = f.do(t, http.MethodGet, "/api/reports/balance-sheet?depth=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestProfitAndLossReport(t *testing.T) {
	f := newFixture(t)
	seedJournals(t, f)

	rec := f.do(t, http.MethodGet, "/api/reports/profit-and-loss?from=2025-01-01&to=2025-03-31&periodicity=monthly", nil)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	pl := decodeAs[ProfitAndLossDTO](t, rec)
	require.Len(t, pl.Periods, 3)
	assert.Equal(t, "2025-02", pl.Periods[1].Label)
	assert.Equal(t, "-200.00", pl.NetProfit[0].String())
	assert.Equal(t, "1000.00", pl.NetProfit[1].String())
	assert.Equal(t, "800.00", pl.Total.String())

	rec = f.do(t, http.MethodGet, "/api/reports/profit-and-loss?periodicity=monthly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/reports/profit-and-loss?from=2025-01-01&periodicity=weekly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// HEALTH, SCENARIOS, INTEGRITY
// =============================================================================

func TestHealth(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusOK, f.do(t, http.MethodGet, "/healthz", nil).Code)

	f.h.Ping = func(context.Context) error { return errors.New("db down") }
	assert.Equal(t, http.StatusServiceUnavailable, f.do(t, http.MethodGet, "/healthz", nil).Code)
}

func TestScenarios(t *testing.T) {
	f := newFixture(t)

	rec := f.do(t, http.MethodGet, "/api/scenarios", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeAs[[]ScenarioDTO](t, rec), len(scenarios))

	// Every scenario loads into the same ledger and the ledger stays sound.
	for _, sc := range scenarios {
		rec = f.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: sc.ID, Year: 2025})
		require.Equal(t, http.StatusCreated, rec.Code, "%s: %s", sc.ID, rec.Body.String())
	}

	rec = f.do(t, http.MethodGet, "/api/documents/sales-invoices/SI-2025-001/outstanding?grand_total=1120", nil)
	assert.Equal(t, "400.00", decodeAs[OutstandingDTO](t, rec).Outstanding.String())

	rec = f.do(t, http.MethodGet, "/api/documents/sales-invoices/SI-2025-003", nil)
	assert.Equal(t, "cancelled", decodeAs[DocumentDTO](t, rec).Status)

	rec = f.do(t, http.MethodGet, "/api/reports/general-ledger?account=Round%20Off", nil)
	assert.Equal(t, "-0.45", decodeAs[GeneralLedgerDTO](t, rec).Closing.String())

	// Loading again conflicts on the first document.
	rec = f.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "sales-cycle", Year: 2025})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "nope"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunScenario_MalformedAmount(t *testing.T) {
	f := newFixture(t)
	saved := scenarios
	t.Cleanup(func() { scenarios = saved })
	scenarios = append(append([]scenario(nil), saved...), scenario{
		ScenarioDTO: ScenarioDTO{ID: "broken"},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			return []ledger.Document{documents.JournalEntry{
				Name: "JE-BROKEN",
				Date: ledger.Date(year, time.January, 1),
				Lines: []documents.JournalLine{
					{Account: accounts.Cash, Debit: amt("ten")},
					{Account: accounts.Capital, Credit: amt("10")},
				},
			}}, nil
		},
	})

	res, err := RunScenario(context.Background(), f.h.Controller, "broken", 2025)
	assert.Nil(t, res)
	assert.ErrorContains(t, err, `amount "ten"`)
	assert.Zero(t, f.store.Len())

	rec := f.do(t, http.MethodPost, "/api/scenarios/load", LoadScenarioRequest{ScenarioID: "broken", Year: 2025})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestIntegrity(t *testing.T) {
	f := newFixture(t)
	f.h.Integrity = NewIntegrityScheduler(f.h.Reports, f.h.Log)
	f.srv = NewRouter(f.h, []string{"http://localhost:5173"})
	seedJournals(t, f)

	rec := f.do(t, http.MethodGet, "/api/admin/integrity", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = f.do(t, http.MethodPost, "/api/admin/integrity/run", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decodeAs[IntegrityResult](t, rec)
	assert.True(t, res.OK, res.Error)
	assert.Equal(t, "1820.00", res.Debit.String())

	rec = f.do(t, http.MethodGet, "/api/admin/integrity", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeAs[IntegrityResult](t, rec).OK)
}

func TestIntegrityScheduler_StartStop(t *testing.T) {
	f := newFixture(t)
	s := NewIntegrityScheduler(f.h.Reports, nil)
	s.CheckInterval = time.Millisecond

	s.Start(context.Background())
	require.Eventually(t, func() bool { return s.Last() != nil }, time.Second, time.Millisecond)
	s.Stop()
	s.Stop()

	assert.True(t, s.Last().OK)
}
