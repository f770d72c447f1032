/*
handlers.go - HTTP API handlers for the ledger engine

PURPOSE:
  Exposes document submission, cancellation and the financial reports via
  REST. Handles HTTP request/response and JSON serialization, and delegates
  to the lifecycle controller and the report engine.

ENDPOINTS:
  Accounts:
    GET    /api/accounts                          Chart of accounts
    GET    /api/accounts/{name}                   One account

  Documents:
    POST   /api/documents/journal-entries         Submit a journal entry
    POST   /api/documents/sales-invoices          Submit a sales invoice
    POST   /api/documents/purchase-invoices       Submit a purchase invoice
    POST   /api/documents/payments                Submit a payment
    GET    /api/documents/{type}/{name}           Status and entries
    POST   /api/documents/{type}/{name}/cancel    Cancel (reverse) a document
    GET    /api/documents/{type}/{name}/outstanding?grand_total=

  Reports:
    GET    /api/reports/general-ledger            ?account=&from=&to=&party=&include_reverted=
    GET    /api/reports/trial-balance             ?from=&as_of=
    GET    /api/reports/balance-sheet             ?as_of=&depth=
    GET    /api/reports/profit-and-loss           ?from=&to=&periodicity=&depth=

  Scenarios:
    GET    /api/scenarios                         List demo scenarios
    POST   /api/scenarios/load                    Post a demo scenario

  Admin:
    GET    /api/admin/integrity                   Last integrity check
    POST   /api/admin/integrity/run               Run an integrity check now

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Malformed input, invalid document, unknown account, unbalanced posting
  - 404: Document or account not found
  - 409: Lifecycle conflict (already submitted, cancelling a draft)
  - 503: Store unavailable (nothing was committed, safe to retry)
  - 500: Anything else

SECURITY NOTE:
  No authentication or authorization. All endpoints are public.

SEE ALSO:
  - dto.go: Request/response data structures
  - scenarios.go: Demo scenario loaders
  - scheduler.go: Periodic integrity check
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/documents"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/report"
	"go.uber.org/zap"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Controller *ledger.Controller
	Chart      *accounts.Chart
	Reports    *report.Engine
	Log        *zap.Logger

	// Ping reports store health for /healthz. Nil means always healthy.
	Ping func(ctx context.Context) error

	// Integrity serves /api/admin/integrity when set.
	Integrity *IntegrityScheduler
}

// NewHandler creates a handler. A nil logger disables logging.
func NewHandler(ctrl *ledger.Controller, chart *accounts.Chart, reports *report.Engine, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{Controller: ctrl, Chart: chart, Reports: reports, Log: log}
}

func (h *Handler) precision() int32 {
	return h.Controller.Env().Config.Precision
}

// Health returns 200 when the store answers.
// GET /healthz
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.Ping != nil {
		if err := h.Ping(r.Context()); err != nil {
			writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// ACCOUNT HANDLERS
// =============================================================================

// ListAccounts returns the chart in hierarchy order.
// GET /api/accounts
func (h *Handler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	all := h.Chart.All()
	dtos := make([]AccountDTO, len(all))
	for i, a := range all {
		dtos[i] = ToAccountDTO(a)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetAccount returns one account.
// GET /api/accounts/{name}
func (h *Handler) GetAccount(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	a, ok := h.Chart.Account(name)
	if !ok {
		writeError(w, http.StatusNotFound, "Account not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, ToAccountDTO(a))
}

// =============================================================================
// DOCUMENT HANDLERS
// =============================================================================

// SubmitJournalEntry posts a journal entry.
// POST /api/documents/journal-entries
func (h *Handler) SubmitJournalEntry(w http.ResponseWriter, r *http.Request) {
	var req JournalEntryRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := req.ToDocument(h.precision())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.submit(w, r, doc)
}

// SubmitSalesInvoice posts a sales invoice.
// POST /api/documents/sales-invoices
func (h *Handler) SubmitSalesInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := req.ToInvoice(h.precision())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.submit(w, r, documents.SalesInvoice{Invoice: inv})
}

// SubmitPurchaseInvoice posts a purchase invoice.
// POST /api/documents/purchase-invoices
func (h *Handler) SubmitPurchaseInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if !decode(w, r, &req) {
		return
	}
	inv, err := req.ToInvoice(h.precision())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.submit(w, r, documents.PurchaseInvoice{Invoice: inv})
}

// SubmitPayment posts a payment.
// POST /api/documents/payments
func (h *Handler) SubmitPayment(w http.ResponseWriter, r *http.Request) {
	var req PaymentRequest
	if !decode(w, r, &req) {
		return
	}
	doc, err := req.ToDocument(h.precision())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.submit(w, r, doc)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request, doc ledger.Document) {
	entries, err := h.Controller.Submit(r.Context(), doc)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, DocumentDTO{
		Reference: doc.Ref().String(),
		Status:    string(ledger.StateSubmitted),
		Entries:   ToEntryDTOs(entries),
	})
}

// GetDocument returns a document's state and every entry recorded under it.
// GET /api/documents/{type}/{name}
func (h *Handler) GetDocument(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.documentRef(w, r)
	if !ok {
		return
	}
	entries, err := h.Controller.Entries(r.Context(), ref)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if len(entries) == 0 {
		writeError(w, http.StatusNotFound, "Document not found", nil)
		return
	}
	status, err := h.Controller.Status(r.Context(), ref)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentDTO{
		Reference: ref.String(),
		Status:    string(status),
		Entries:   ToEntryDTOs(entries),
	})
}

// CancelDocument reverses every active entry of a document.
// POST /api/documents/{type}/{name}/cancel
func (h *Handler) CancelDocument(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.documentRef(w, r)
	if !ok {
		return
	}

	var req CancelRequest
	if r.ContentLength > 0 && !decode(w, r, &req) {
		return
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}

	reversals, err := h.Controller.Cancel(r.Context(), ref, date)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, DocumentDTO{
		Reference: ref.String(),
		Status:    string(ledger.StateCancelled),
		Entries:   ToEntryDTOs(reversals),
	})
}

// GetOutstanding returns grand_total minus what payments have settled.
// GET /api/documents/{type}/{name}/outstanding?grand_total=
func (h *Handler) GetOutstanding(w http.ResponseWriter, r *http.Request) {
	ref, ok := h.documentRef(w, r)
	if !ok {
		return
	}
	raw := r.URL.Query().Get("grand_total")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "grand_total is required", nil)
		return
	}
	total, err := parseAmount("grand_total", raw, h.precision())
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	outstanding, err := h.Reports.Outstanding(r.Context(), ref, total)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, OutstandingDTO{
		Reference:   ref.String(),
		GrandTotal:  total,
		Outstanding: outstanding,
	})
}

func (h *Handler) documentRef(w http.ResponseWriter, r *http.Request) (ledger.Reference, bool) {
	typ, err := docTypeOf(chi.URLParam(r, "type"))
	if err != nil {
		h.writeLedgerError(w, err)
		return ledger.Reference{}, false
	}
	return ledger.Ref(typ, chi.URLParam(r, "name")), true
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// GeneralLedger lists entries with a running balance.
// GET /api/reports/general-ledger
func (h *Handler) GeneralLedger(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	opts := report.GLOptions{Account: q.Get("account"), Party: q.Get("party")}
	var err error
	if opts.From, err = parseDate("from", q.Get("from")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.To, err = parseDate("to", q.Get("to")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if v := q.Get("include_reverted"); v != "" {
		if opts.IncludeReverted, err = strconv.ParseBool(v); err != nil {
			h.writeLedgerError(w, badRequest("include_reverted %q is not a boolean", v))
			return
		}
	}

	rep, err := h.Reports.GeneralLedger(r.Context(), opts)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToGeneralLedgerDTO(rep))
}

// TrialBalance sums every leaf account.
// GET /api/reports/trial-balance
func (h *Handler) TrialBalance(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts report.TBOptions
	var err error
	if opts.From, err = parseDate("from", q.Get("from")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.AsOf, err = parseDate("as_of", q.Get("as_of")); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	rep, err := h.Reports.TrialBalance(r.Context(), opts)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if err := rep.Check(); err != nil {
		h.Log.Error("trial balance mismatch", zap.Error(err))
	}
	writeJSON(w, http.StatusOK, ToTrialBalanceDTO(rep))
}

// BalanceSheet shows asset, liability and equity balances.
// GET /api/reports/balance-sheet
func (h *Handler) BalanceSheet(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts report.BSOptions
	var err error
	if opts.AsOf, err = parseDate("as_of", q.Get("as_of")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.Depth, err = parseDepth(q.Get("depth")); err != nil {
		h.writeLedgerError(w, err)
		return
	}

	rep, err := h.Reports.BalanceSheet(r.Context(), opts)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if !rep.Balanced() {
		h.Log.Warn("balance sheet residual", zap.Stringer("residual", rep.Residual))
	}
	writeJSON(w, http.StatusOK, ToBalanceSheetDTO(rep))
}

// ProfitAndLoss shows income and expense per period.
// GET /api/reports/profit-and-loss
func (h *Handler) ProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var opts report.PLOptions
	var err error
	if opts.From, err = parseDate("from", q.Get("from")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.To, err = parseDate("to", q.Get("to")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.Periodicity, err = report.ParsePeriodicity(q.Get("periodicity")); err != nil {
		h.writeLedgerError(w, badRequest("%v", err))
		return
	}
	if opts.Depth, err = parseDepth(q.Get("depth")); err != nil {
		h.writeLedgerError(w, err)
		return
	}
	if opts.Periodicity != report.None && opts.From.IsZero() {
		writeError(w, http.StatusBadRequest, "from is required with periodicity", nil)
		return
	}

	rep, err := h.Reports.ProfitAndLoss(r.Context(), opts)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ToProfitAndLossDTO(rep))
}

func parseDepth(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, badRequest("depth %q must be a non-negative integer", s)
	}
	return n, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return true
}

// writeLedgerError maps the error taxonomy to HTTP statuses.
func (h *Handler) writeLedgerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, documents.ErrInvalidDocument),
		ledger.IsClientError(err):
		writeError(w, http.StatusBadRequest, "Invalid input", err)
	case errors.Is(err, ledger.ErrEntryNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case ledger.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	case ledger.IsRetryable(err):
		h.Log.Warn("store unavailable", zap.Error(err))
		writeError(w, http.StatusServiceUnavailable, "Store unavailable", err)
	default:
		h.Log.Error("request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal error", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
