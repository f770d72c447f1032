package commands

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/config"
)

// ChartFile is the chart of accounts written by init.
const ChartFile = "accounts.csv"

func newInitCommand() *cobra.Command {
	var driver, dsn string
	var force bool

	cmd := &cobra.Command{
		Use:   "init [directory]",
		Short: "Write a default ledger.yaml and chart of accounts",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) > 0 {
				dir = args[0]
			}

			absDir, err := filepath.Abs(dir)
			if err != nil {
				return fmt.Errorf("resolving path: %w", err)
			}

			if err := runInit(absDir, driver, dsn, force); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Initialized ledger in %s\n", absDir)
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "sqlite3", "store driver: memory, sqlite3 or postgres")
	cmd.Flags().StringVar(&dsn, "dsn", "ledger.db", "store data source name")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing ledger.yaml")

	return cmd
}

func runInit(dir, driver, dsn string, force bool) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating directory: %w", err)
	}

	cfgPath := filepath.Join(dir, DefaultConfigFile)
	if _, err := os.Stat(cfgPath); err == nil && !force {
		return fmt.Errorf("%s already exists (use --force to overwrite)", cfgPath)
	} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}

	// Write ledger.yaml.
	cfg := config.Default()
	cfg.Store = config.StoreConfig{Driver: driver, DSN: dsn}
	cfg.Ledger.Chart = ChartFile
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := config.Save(cfgPath, cfg); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	// Write chart of accounts.
	chart, err := accounts.New(accounts.DefaultChart())
	if err != nil {
		return err
	}
	if err := chart.Save(filepath.Join(dir, ChartFile)); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
