// Package config loads ledger.yaml and LEDGER_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
	"gopkg.in/yaml.v3"
)

// Config represents the top-level ledger.yaml configuration.
type Config struct {
	Server ServerConfig `yaml:"server"`
	Store  StoreConfig  `yaml:"store"`
	Ledger LedgerConfig `yaml:"ledger"`
	Events EventsConfig `yaml:"events"`
	Log    LogConfig    `yaml:"log"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr        string   `yaml:"addr"`
	CORSOrigins []string `yaml:"cors_origins,omitempty"`
}

// StoreConfig selects the entry store. Driver is memory, sqlite3 or postgres.
type StoreConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

// LedgerConfig is the posting policy plus the chart of accounts location.
type LedgerConfig struct {
	Precision       int32  `yaml:"precision"`
	RoundOffAccount string `yaml:"round_off_account"`
	RoundOffLimit   string `yaml:"round_off_limit"`
	Chart           string `yaml:"chart,omitempty"` // CSV path, empty = built-in chart
}

// EventsConfig enables the Kafka publisher when Brokers is non-empty.
type EventsConfig struct {
	Brokers []string `yaml:"kafka_brokers,omitempty"`
	Topic   string   `yaml:"kafka_topic,omitempty"`
}

// LogConfig selects the zap configuration: debug or production.
type LogConfig struct {
	Mode string `yaml:"mode"`
}

// Default returns a Config for a local single-node setup.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Addr: ":8080", CORSOrigins: []string{"*"}},
		Store:  StoreConfig{Driver: "sqlite3", DSN: "ledger.db"},
		Ledger: LedgerConfig{
			Precision:       money.DefaultScale,
			RoundOffAccount: "Round Off",
			RoundOffLimit:   "1.00",
		},
		Log: LogConfig{Mode: "production"},
	}
}

// Load reads path (if non-empty) over the defaults, then loads .env from
// the working directory if present, then applies LEDGER_* variables.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}
	if err := cfg.ApplyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides fields from environment variables.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}
	list := func(key string, dst *[]string) {
		if v, ok := lookup(key); ok {
			*dst = splitList(v)
		}
	}

	str("LEDGER_ADDR", &c.Server.Addr)
	list("LEDGER_CORS_ORIGINS", &c.Server.CORSOrigins)
	str("LEDGER_STORE_DRIVER", &c.Store.Driver)
	str("LEDGER_STORE_DSN", &c.Store.DSN)
	str("LEDGER_ROUND_OFF_ACCOUNT", &c.Ledger.RoundOffAccount)
	str("LEDGER_ROUND_OFF_LIMIT", &c.Ledger.RoundOffLimit)
	str("LEDGER_CHART", &c.Ledger.Chart)
	list("LEDGER_KAFKA_BROKERS", &c.Events.Brokers)
	str("LEDGER_KAFKA_TOPIC", &c.Events.Topic)
	str("LEDGER_LOG_MODE", &c.Log.Mode)

	if v, ok := lookup("LEDGER_PRECISION"); ok {
		n, err := strconv.ParseInt(v, 10, 32)
		if err != nil {
			return fmt.Errorf("LEDGER_PRECISION=%q: %w", v, err)
		}
		c.Ledger.Precision = int32(n)
	}
	return nil
}

// Validate checks values that would otherwise fail later at startup.
func (c *Config) Validate() error {
	switch c.Store.Driver {
	case "memory", "sqlite3", "postgres":
	default:
		return fmt.Errorf("store.driver %q must be memory, sqlite3 or postgres", c.Store.Driver)
	}
	if c.Store.Driver != "memory" && c.Store.DSN == "" {
		return fmt.Errorf("store.dsn is required for %s", c.Store.Driver)
	}
	if c.Ledger.Precision < 0 || c.Ledger.Precision > 8 {
		return fmt.Errorf("ledger.precision %d out of range 0..8", c.Ledger.Precision)
	}
	if _, err := c.Posting(); err != nil {
		return err
	}
	return nil
}

// Posting converts the ledger section to the explicit ledger.Config value.
func (c *Config) Posting() (ledger.Config, error) {
	out := ledger.Config{
		Precision:       c.Ledger.Precision,
		RoundOffAccount: c.Ledger.RoundOffAccount,
		RoundOffLimit:   money.Zero(c.Ledger.Precision),
	}
	if c.Ledger.RoundOffLimit != "" {
		limit, err := money.Parse(c.Ledger.RoundOffLimit, c.Ledger.Precision)
		if err != nil {
			return ledger.Config{}, fmt.Errorf("ledger.round_off_limit: %w", err)
		}
		if limit.IsNegative() {
			return ledger.Config{}, fmt.Errorf("ledger.round_off_limit %s is negative", limit)
		}
		out.RoundOffLimit = limit
	}
	return out, nil
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
