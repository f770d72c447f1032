// Package commands implements the ledgerctl command tree.
package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/ledger-engine/app"
	"github.com/warp/ledger-engine/config"
	"github.com/warp/ledger-engine/logging"
)

// DefaultConfigFile is read from the working directory when --config is not given.
const DefaultConfigFile = "ledger.yaml"

type globalFlags struct {
	configPath string
	verbose    bool
}

// NewRootCommand creates the root CLI command with all subcommands registered.
func NewRootCommand() *cobra.Command {
	g := &globalFlags{}

	rootCmd := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Double-entry ledger posting and reporting",
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.configPath, "config", "c", "", "config file (default ./"+DefaultConfigFile+" if present)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log to stderr")

	rootCmd.AddCommand(
		newInitCommand(),
		newAccountsCommand(g),
		newPostCommand(g),
		newStatusCommand(g),
		newCancelCommand(g),
		newOutstandingCommand(g),
		newReportCommand(g),
		newSeedCommand(g),
	)

	return rootCmd
}

// openApp loads the config and wires the ledger. The caller closes it.
func (g *globalFlags) openApp() (*app.App, error) {
	path := g.configPath
	if path == "" {
		if _, err := os.Stat(DefaultConfigFile); err == nil {
			path = DefaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	log := zap.NewNop()
	if g.verbose {
		if log, err = logging.New(cfg.Log.Mode); err != nil {
			return nil, err
		}
	}

	var baseDir string
	if path != "" {
		baseDir = filepath.Dir(path)
	}
	return app.New(cfg, log, app.Options{BaseDir: baseDir})
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encoding output: %w", err)
	}
	return nil
}
