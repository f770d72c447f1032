/*
scenarios.go - Demo scenarios that post realistic documents

PURPOSE:

	Provides pre-built scenarios that post a small set of documents through
	the controller, for demos and for trying the reports on a fresh ledger.
	Every scenario goes through Submit and Cancel like any client would; no
	entry is written behind the controller's back.

AVAILABLE SCENARIOS:

	opening-balances: Capital paid into the bank
	sales-cycle:      Taxed sales invoice, partly paid
	purchase-cycle:   Taxed purchase invoice, paid in full
	round-off:        Invoice rounded to whole units, residual to Round Off
	cancellation:     Invoice submitted then cancelled

HOW SCENARIOS WORK:
 1. Build the scenario's documents for the requested year
 2. Submit them in order
 3. Cancel the documents the scenario cancels

USAGE VIA API:

	POST /api/scenarios/load
	{"scenario_id": "sales-cycle", "year": 2025}

NOTE:

	The ledger is append-only, so a scenario cannot be loaded twice for the
	same year: the second load stops with 409 on its first document.

SEE ALSO:
  - handlers.go: Document handlers
  - documents/: Document types
*/
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"
	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/documents"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
	"go.uber.org/zap"
)

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

// ScenarioDTO describes a scenario in API responses.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// LoadScenarioRequest selects a scenario and the year its documents are dated in.
type LoadScenarioRequest struct {
	ScenarioID string `json:"scenario_id"`
	Year       int    `json:"year,omitempty"`
}

// ScenarioResult lists what a load posted.
type ScenarioResult struct {
	ScenarioID string   `json:"scenario_id"`
	Submitted  []string `json:"submitted"`
	Cancelled  []string `json:"cancelled,omitempty"`
}

type scenario struct {
	ScenarioDTO
	build func(year int, amt func(string) money.Money) (submit []ledger.Document, cancel []ledger.Reference)
}

var scenarios = []scenario{
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "opening-balances",
			Name:        "Opening Balances",
			Description: "Owner pays 10000.00 of capital into the bank",
		},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			return []ledger.Document{
				documents.JournalEntry{
					Name:   fmt.Sprintf("JE-OPEN-%d", year),
					Date:   ledger.Date(year, time.January, 1),
					Remark: "opening capital",
					Lines: []documents.JournalLine{
						{Account: accounts.Bank, Debit: amt("10000")},
						{Account: accounts.Capital, Credit: amt("10000")},
					},
				},
			}, nil
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "sales-cycle",
			Name:        "Sales Cycle",
			Description: "Invoice of 1000.00 + 12% tax, 720.00 received against it",
		},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			inv := documents.SalesInvoice{Invoice: documents.Invoice{
				Name:  fmt.Sprintf("SI-%d-001", year),
				Date:  ledger.Date(year, time.February, 10),
				Party: "Acme Corp",
				Items: []documents.Item{
					{Account: accounts.ServiceRevenue, Description: "consulting", Rate: amt("1000")},
				},
				Taxes: []documents.Tax{{Account: accounts.OutputTax, Rate: decimal.RequireFromString("0.12")}},
			}}
			pay := documents.Payment{
				Name:        fmt.Sprintf("PAY-%d-001", year),
				Date:        ledger.Date(year, time.March, 5),
				Type:        documents.Receive,
				Party:       "Acme Corp",
				Amount:      amt("720"),
				Allocations: []documents.Allocation{{Reference: inv.Ref(), Amount: amt("720")}},
			}
			return []ledger.Document{inv, pay}, nil
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "purchase-cycle",
			Name:        "Purchase Cycle",
			Description: "Office supplies of 250.00 + 12% tax, paid in full",
		},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			inv := documents.PurchaseInvoice{Invoice: documents.Invoice{
				Name:  fmt.Sprintf("PI-%d-001", year),
				Date:  ledger.Date(year, time.February, 15),
				Party: "Paper Supplies Ltd",
				Items: []documents.Item{
					{Account: accounts.OfficeExpenses, Description: "paper", Quantity: decimal.NewFromInt(10), Rate: amt("25")},
				},
				Taxes: []documents.Tax{{Account: accounts.InputTax, Rate: decimal.RequireFromString("0.12")}},
			}}
			pay := documents.Payment{
				Name:        fmt.Sprintf("PAY-%d-002", year),
				Date:        ledger.Date(year, time.February, 28),
				Type:        documents.Pay,
				Party:       "Paper Supplies Ltd",
				Amount:      amt("280"),
				Allocations: []documents.Allocation{{Reference: inv.Ref(), Amount: amt("280")}},
			}
			return []ledger.Document{inv, pay}, nil
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "round-off",
			Name:        "Round Off",
			Description: "Invoice of 99.55 rounded to 100, 0.45 booked to Round Off",
		},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			return []ledger.Document{
				documents.SalesInvoice{Invoice: documents.Invoice{
					Name:       fmt.Sprintf("SI-%d-002", year),
					Date:       ledger.Date(year, time.April, 1),
					Party:      "Walk-in Customer",
					Items:      []documents.Item{{Account: accounts.Revenue, Rate: amt("99.55")}},
					RoundTotal: true,
				}},
			}, nil
		},
	},
	{
		ScenarioDTO: ScenarioDTO{
			ID:          "cancellation",
			Name:        "Cancellation",
			Description: "Invoice of 500.00 submitted and then cancelled",
		},
		build: func(year int, amt func(string) money.Money) ([]ledger.Document, []ledger.Reference) {
			inv := documents.SalesInvoice{Invoice: documents.Invoice{
				Name:  fmt.Sprintf("SI-%d-003", year),
				Date:  ledger.Date(year, time.May, 2),
				Party: "Acme Corp",
				Items: []documents.Item{{Account: accounts.Revenue, Rate: amt("500")}},
			}}
			return []ledger.Document{inv}, []ledger.Reference{inv.Ref()}
		},
	},
}

// Scenarios lists the available scenarios.
func Scenarios() []ScenarioDTO {
	out := make([]ScenarioDTO, len(scenarios))
	for i, s := range scenarios {
		out[i] = s.ScenarioDTO
	}
	return out
}

// RunScenario posts the scenario's documents dated in year.
func RunScenario(ctx context.Context, ctrl *ledger.Controller, id string, year int) (*ScenarioResult, error) {
	var sc *scenario
	for i := range scenarios {
		if scenarios[i].ID == id {
			sc = &scenarios[i]
			break
		}
	}
	if sc == nil {
		return nil, badRequest("unknown scenario %q", id)
	}

	precision := ctrl.Env().Config.Precision
	var parseErr error
	amt := func(s string) money.Money {
		m, err := money.ParseRound(s, precision)
		if err != nil && parseErr == nil {
			parseErr = fmt.Errorf("scenario %s: amount %q: %w", id, s, err)
		}
		return m
	}

	submit, cancel := sc.build(year, amt)
	if parseErr != nil {
		return nil, parseErr
	}
	res := &ScenarioResult{ScenarioID: id}
	for _, doc := range submit {
		if _, err := ctrl.Submit(ctx, doc); err != nil {
			return res, fmt.Errorf("scenario %s: submit %s: %w", id, doc.Ref(), err)
		}
		res.Submitted = append(res.Submitted, doc.Ref().String())
	}
	for _, ref := range cancel {
		if _, err := ctrl.Cancel(ctx, ref, time.Time{}); err != nil {
			return res, fmt.Errorf("scenario %s: cancel %s: %w", id, ref, err)
		}
		res.Cancelled = append(res.Cancelled, ref.String())
	}
	return res, nil
}

// =============================================================================
// HANDLERS
// =============================================================================

// ListScenarios returns all available scenarios.
// GET /api/scenarios
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, Scenarios())
}

// LoadScenario posts a scenario's documents.
// POST /api/scenarios/load
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	var req LoadScenarioRequest
	if !decode(w, r, &req) {
		return
	}
	if req.Year == 0 {
		req.Year = time.Now().Year()
	}

	res, err := RunScenario(r.Context(), h.Controller, req.ScenarioID, req.Year)
	if err != nil {
		h.writeLedgerError(w, err)
		return
	}
	h.Log.Info("scenario loaded",
		zap.String("scenario", req.ScenarioID), zap.Int("documents", len(res.Submitted)))
	writeJSON(w, http.StatusCreated, res)
}
