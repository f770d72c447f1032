/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request, echoed in the access log
  2. RealIP:     Client address from X-Forwarded-For / X-Real-IP
  3. AccessLog:  One zap line per request (method, path, status, duration)
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. CORS:       Cross-origin requests for browser clients

ROUTE GROUPS:
  /healthz              Liveness and store health
  /api/accounts/*       Chart of accounts
  /api/documents/*      Submit, inspect and cancel documents
  /api/reports/*        General Ledger, Trial Balance, Balance Sheet, P&L
  /api/scenarios/*      Demo scenarios
  /api/admin/*          Integrity check (when a scheduler is attached)

SECURITY NOTE:
  No authentication middleware. All endpoints are public.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"
)

// NewRouter creates a new router with all routes configured. An empty
// origins list allows any origin.
func NewRouter(h *Handler, origins []string) *chi.Mux {
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(AccessLog(h.Log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))

	r.Get("/healthz", h.Health)

	r.Route("/api", func(r chi.Router) {
		r.Route("/accounts", func(r chi.Router) {
			r.Get("/", h.ListAccounts)
			r.Get("/{name}", h.GetAccount)
		})

		r.Route("/documents", func(r chi.Router) {
			r.Post("/journal-entries", h.SubmitJournalEntry)
			r.Post("/sales-invoices", h.SubmitSalesInvoice)
			r.Post("/purchase-invoices", h.SubmitPurchaseInvoice)
			r.Post("/payments", h.SubmitPayment)

			r.Get("/{type}/{name}", h.GetDocument)
			r.Post("/{type}/{name}/cancel", h.CancelDocument)
			r.Get("/{type}/{name}/outstanding", h.GetOutstanding)
		})

		r.Route("/reports", func(r chi.Router) {
			r.Get("/general-ledger", h.GeneralLedger)
			r.Get("/trial-balance", h.TrialBalance)
			r.Get("/balance-sheet", h.BalanceSheet)
			r.Get("/profit-and-loss", h.ProfitAndLoss)
		})

		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Post("/load", h.LoadScenario)
		})

		if h.Integrity != nil {
			r.Route("/admin", func(r chi.Router) {
				r.Get("/integrity", h.Integrity.GetIntegrity)
				r.Post("/integrity/run", h.Integrity.RunIntegrity)
			})
		}
	})

	return r
}

// AccessLog logs each request with zap after it completes.
func AccessLog(log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				status := ww.Status()
				if status == 0 {
					status = http.StatusOK
				}
				fields := []zap.Field{
					zap.String("method", r.Method),
					zap.String("path", r.URL.Path),
					zap.Int("status", status),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("duration", time.Since(start)),
					zap.String("request_id", middleware.GetReqID(r.Context())),
					zap.String("remote", r.RemoteAddr),
				}
				if status >= http.StatusInternalServerError {
					log.Warn("http request", fields...)
					return
				}
				log.Info("http request", fields...)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
