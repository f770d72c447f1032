package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/api"
)

func newSeedCommand(g *globalFlags) *cobra.Command {
	var year int
	var list bool

	cmd := &cobra.Command{
		Use:   "seed [SCENARIO...]",
		Short: "Post demo scenarios (see --list)",
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if list || len(args) == 0 {
				for _, s := range api.Scenarios() {
					fmt.Fprintf(out, "%-18s %s\n", s.ID, s.Description)
				}
				return nil
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			for _, id := range args {
				res, err := api.RunScenario(cmd.Context(), a.Controller, id, year)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s: submitted %d, cancelled %d\n", id, len(res.Submitted), len(res.Cancelled))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", time.Now().Year(), "year the scenario documents are dated in")
	cmd.Flags().BoolVar(&list, "list", false, "list scenarios")
	return cmd
}
