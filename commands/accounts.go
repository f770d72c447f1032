package commands

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

func newAccountsCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "accounts",
		Short: "Print the chart of accounts as a tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ACCOUNT\tTYPE\tGROUP")
			for _, acct := range a.Chart.All() {
				indent := strings.Repeat("  ", max(a.Chart.Depth(acct.Name), 0))
				group := ""
				if acct.IsGroup {
					group = "yes"
				}
				fmt.Fprintf(tw, "%s%s\t%s\t%s\n", indent, acct.Name, acct.RootType, group)
			}
			return tw.Flush()
		},
	}
}
