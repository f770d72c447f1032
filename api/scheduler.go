/*
scheduler.go - Periodic ledger integrity check

PURPOSE:
  Runs the Trial Balance and Balance Sheet on a timer and records whether
  the ledger is still sound: total debit equals total credit and the
  accounting equation leaves no residual. A failed check is logged at
  error level; it never modifies the ledger.

DESIGN:
  - Runs a background goroutine with a configurable check interval
  - Runs once immediately on Start
  - Keeps the most recent result for GET /api/admin/integrity
  - RunNow runs a check synchronously (POST /api/admin/integrity/run)

USAGE:
  scheduler := NewIntegrityScheduler(reports, log)
  scheduler.Start(ctx)
  // ... later
  scheduler.Stop()

SEE ALSO:
  - report/trial_balance.go: Check
  - report/statements.go: BalanceSheetReport.Residual
*/
package api

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/warp/ledger-engine/money"
	"github.com/warp/ledger-engine/report"
	"go.uber.org/zap"
)

// IntegrityResult is the outcome of one check.
type IntegrityResult struct {
	CheckedAt time.Time   `json:"checked_at"`
	Debit     money.Money `json:"debit"`
	Credit    money.Money `json:"credit"`
	Residual  money.Money `json:"residual"`
	OK        bool        `json:"ok"`
	Error     string      `json:"error,omitempty"`
}

// IntegrityScheduler periodically verifies the ledger.
type IntegrityScheduler struct {
	Reports       *report.Engine
	Log           *zap.Logger
	CheckInterval time.Duration
	Enabled       bool

	now    func() time.Time
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	last   *IntegrityResult
}

// NewIntegrityScheduler creates a scheduler checking every hour.
func NewIntegrityScheduler(reports *report.Engine, log *zap.Logger) *IntegrityScheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &IntegrityScheduler{
		Reports:       reports,
		Log:           log,
		CheckInterval: time.Hour,
		Enabled:       true,
		now:           time.Now,
	}
}

// Start begins the scheduler. It stops when ctx is done or Stop is called.
func (s *IntegrityScheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.Enabled {
		s.Log.Info("integrity scheduler disabled")
		return
	}
	if s.cancel != nil {
		return
	}

	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.run(ctx)

	s.Log.Info("integrity scheduler started", zap.Duration("interval", s.CheckInterval))
}

// Stop stops the scheduler and waits for a running check to finish.
func (s *IntegrityScheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.cancel = nil
	s.mu.Unlock()

	if cancel != nil {
		cancel()
		s.wg.Wait()
		s.Log.Info("integrity scheduler stopped")
	}
}

func (s *IntegrityScheduler) run(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.CheckInterval)
	defer ticker.Stop()

	// Run immediately on start
	s.RunNow(ctx)

	for {
		select {
		case <-ticker.C:
			s.RunNow(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// RunNow checks the ledger as of now and records the result.
func (s *IntegrityScheduler) RunNow(ctx context.Context) IntegrityResult {
	res := s.check(ctx)

	if res.OK {
		s.Log.Debug("ledger integrity ok",
			zap.Stringer("debit", res.Debit), zap.Stringer("credit", res.Credit))
	} else {
		s.Log.Error("ledger integrity check failed",
			zap.Stringer("debit", res.Debit),
			zap.Stringer("credit", res.Credit),
			zap.Stringer("residual", res.Residual),
			zap.String("error", res.Error))
	}

	s.mu.Lock()
	s.last = &res
	s.mu.Unlock()
	return res
}

func (s *IntegrityScheduler) check(ctx context.Context) IntegrityResult {
	asOf := s.now()
	res := IntegrityResult{CheckedAt: asOf}

	tb, err := s.Reports.TrialBalance(ctx, report.TBOptions{AsOf: asOf})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Debit, res.Credit = tb.Total.Debit, tb.Total.Credit
	if err := tb.Check(); err != nil {
		res.Error = err.Error()
		return res
	}

	bs, err := s.Reports.BalanceSheet(ctx, report.BSOptions{AsOf: asOf})
	if err != nil {
		res.Error = err.Error()
		return res
	}
	res.Residual = bs.Residual
	if !bs.Balanced() {
		res.Error = "balance sheet residual " + bs.Residual.String()
		return res
	}

	res.OK = true
	return res
}

// Last returns the most recent result, or nil before the first check.
func (s *IntegrityScheduler) Last() *IntegrityResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	res := *s.last
	return &res
}

// =============================================================================
// HANDLERS
// =============================================================================

// GetIntegrity returns the last check.
// GET /api/admin/integrity
func (s *IntegrityScheduler) GetIntegrity(w http.ResponseWriter, r *http.Request) {
	last := s.Last()
	if last == nil {
		writeError(w, http.StatusNotFound, "No integrity check has run yet", nil)
		return
	}
	writeJSON(w, http.StatusOK, last)
}

// RunIntegrity runs a check now and returns it.
// POST /api/admin/integrity/run
func (s *IntegrityScheduler) RunIntegrity(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.RunNow(r.Context()))
}
