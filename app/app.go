/*
app.go - Wiring shared by the server and the CLI

PURPOSE:
  Turns a config.Config into a running ledger: entry store, chart of
  accounts, lifecycle controller, report engine and event publishers.

STARTUP SEQUENCE:
  1. Open the entry store (memory, sqlite3 or postgres)
  2. Load the chart (CSV file or the built-in default)
  3. Build publishers: zap event log, plus Kafka when brokers are configured
  4. Create the controller and report engine over the same store

PATHS:
  Relative store and chart paths are resolved against BaseDir, which is
  the directory of the config file when one is used.

SEE ALSO:
  - config/config.go: Settings
  - cmd/server/main.go, cmd/ledgerctl/main.go: Callers
*/
package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/config"
	"github.com/warp/ledger-engine/events"
	"github.com/warp/ledger-engine/events/kafka"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/report"
	"github.com/warp/ledger-engine/store/sqlstore"
	"go.uber.org/zap"
)

// App holds the wired components. Close releases the store and publishers.
type App struct {
	Config     *config.Config
	Log        *zap.Logger
	Chart      *accounts.Chart
	Store      ledger.TxStore
	Controller *ledger.Controller
	Reports    *report.Engine

	closers []func() error
	ping    func(context.Context) error
}

// Options tunes New beyond what the config file carries.
type Options struct {
	// BaseDir resolves relative store and chart paths. Empty = working directory.
	BaseDir string

	// Publishers are added to the configured ones (tests use events.Recorder).
	Publishers []ledger.EventPublisher
}

// New opens the store and builds the controller and report engine.
func New(cfg *config.Config, log *zap.Logger, opts Options) (*App, error) {
	if log == nil {
		log = zap.NewNop()
	}
	posting, err := cfg.Posting()
	if err != nil {
		return nil, err
	}

	a := &App{Config: cfg, Log: log}

	if err := a.openStore(opts.BaseDir); err != nil {
		return nil, err
	}

	if a.Chart, err = loadChart(resolve(opts.BaseDir, cfg.Ledger.Chart)); err != nil {
		a.Close()
		return nil, err
	}
	if posting.RoundOffAccount != "" {
		if acct, ok := a.Chart.Account(posting.RoundOffAccount); !ok || acct.IsGroup {
			a.Close()
			return nil, fmt.Errorf("round-off account %q must be a leaf of the chart", posting.RoundOffAccount)
		}
	}

	pubs := events.Fanout{events.Logger{Log: log}}
	if len(cfg.Events.Brokers) > 0 {
		kp := kafka.NewPublisher(cfg.Events.Brokers, cfg.Events.Topic)
		a.closers = append(a.closers, kp.Close)
		pubs = append(pubs, kp)
		log.Info("kafka publisher enabled", zap.Strings("brokers", cfg.Events.Brokers))
	}
	pubs = append(pubs, opts.Publishers...)

	a.Controller = ledger.NewController(a.Store, a.Chart, posting,
		ledger.WithPublisher(pubs),
		ledger.WithLogger(log))
	a.Reports = report.New(a.Store, a.Chart, posting)
	return a, nil
}

func (a *App) openStore(baseDir string) error {
	switch a.Config.Store.Driver {
	case "memory":
		a.Store = store.NewMemory()
		a.Log.Warn("using in-memory store, entries are lost on exit")
	case string(sqlstore.SQLite), string(sqlstore.Postgres):
		dsn := a.Config.Store.DSN
		if a.Config.Store.Driver == string(sqlstore.SQLite) && dsn != ":memory:" {
			dsn = resolve(baseDir, dsn)
		}
		s, err := sqlstore.Open(sqlstore.Dialect(a.Config.Store.Driver), dsn)
		if err != nil {
			return fmt.Errorf("opening %s store: %w", a.Config.Store.Driver, err)
		}
		a.Store = s
		a.ping = s.Ping
		a.closers = append(a.closers, s.Close)
	default:
		return fmt.Errorf("unsupported store driver %q", a.Config.Store.Driver)
	}
	a.Log.Info("entry store opened", zap.String("driver", a.Config.Store.Driver))
	return nil
}

// Ping reports store health. The memory store is always healthy.
func (a *App) Ping(ctx context.Context) error {
	if a.ping == nil {
		return nil
	}
	return a.ping(ctx)
}

// Close releases resources in reverse order of acquisition.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	a.closers = nil
	return errors.Join(errs...)
}

func loadChart(path string) (*accounts.Chart, error) {
	if path == "" {
		return accounts.New(accounts.DefaultChart())
	}
	chart, err := accounts.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading chart of accounts: %w", err)
	}
	return chart, nil
}

func resolve(base, p string) string {
	if p == "" || base == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}
