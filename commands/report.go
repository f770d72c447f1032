package commands

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/money"
	"github.com/warp/ledger-engine/report"
)

func newReportCommand(g *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a financial report",
	}
	cmd.PersistentFlags().Bool("json", false, "print JSON")

	cmd.AddCommand(
		newGLCommand(g),
		newTBCommand(g),
		newBSCommand(g),
		newPLCommand(g),
	)
	return cmd
}

func jsonFlag(cmd *cobra.Command) bool {
	v, _ := cmd.Flags().GetBool("json")
	return v
}

func newGLCommand(g *globalFlags) *cobra.Command {
	var account, from, to, party string
	var includeReverted bool

	cmd := &cobra.Command{
		Use:     "gl",
		Aliases: []string{"general-ledger"},
		Short:   "General Ledger with running balance",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := report.GLOptions{Account: account, Party: party, IncludeReverted: includeReverted}
			var err error
			if opts.From, err = dateFlag("from", from); err != nil {
				return err
			}
			if opts.To, err = dateFlag("to", to); err != nil {
				return err
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.GeneralLedger(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), api.ToGeneralLedgerDTO(rep))
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "DATE\tACCOUNT\tREFERENCE\tDEBIT\tCREDIT\tBALANCE\t")
			fmt.Fprintf(tw, "\tOpening\t\t\t\t%s\t\n", rep.Opening)
			for _, row := range rep.Rows {
				e := row.Entry
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
					e.Date.Format("2006-01-02"), e.Account, e.Reference, e.Debit, e.Credit, row.Balance)
			}
			fmt.Fprintf(tw, "\tClosing\t\t%s\t%s\t%s\t\n", rep.Debit, rep.Credit, rep.Closing)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&account, "account", "", "leaf or group account (default all)")
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD")
	cmd.Flags().StringVar(&party, "party", "", "only entries for this party")
	cmd.Flags().BoolVar(&includeReverted, "include-reverted", false, "include cancelled entries and their reversals")
	return cmd
}

func newTBCommand(g *globalFlags) *cobra.Command {
	var from, asOf string

	cmd := &cobra.Command{
		Use:     "tb",
		Aliases: []string{"trial-balance"},
		Short:   "Trial Balance per leaf account",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts report.TBOptions
			var err error
			if opts.From, err = dateFlag("from", from); err != nil {
				return err
			}
			if opts.AsOf, err = dateFlag("as-of", asOf); err != nil {
				return err
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.TrialBalance(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonFlag(cmd) {
				if err := writeJSON(cmd.OutOrStdout(), api.ToTrialBalanceDTO(rep)); err != nil {
					return err
				}
				return rep.Check()
			}

			tw := newTable(cmd.OutOrStdout())
			fmt.Fprintln(tw, "ACCOUNT\tOPENING DR\tOPENING CR\tDEBIT\tCREDIT\tCLOSING DR\tCLOSING CR\t")
			for _, r := range append(rep.Rows, rep.Total) {
				name := r.Account
				if name == "" {
					name = "Total"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n", name,
					r.OpeningDebit, r.OpeningCredit, r.Debit, r.Credit, r.ClosingDebit, r.ClosingCredit)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			return rep.Check()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "period start; earlier entries form the opening (YYYY-MM-DD)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "include entries up to this date (YYYY-MM-DD)")
	return cmd
}

func newBSCommand(g *globalFlags) *cobra.Command {
	var asOf string
	var depth int

	cmd := &cobra.Command{
		Use:     "bs",
		Aliases: []string{"balance-sheet"},
		Short:   "Balance Sheet",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := report.BSOptions{Depth: depth}
			var err error
			if opts.AsOf, err = dateFlag("as-of", asOf); err != nil {
				return err
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.BalanceSheet(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), api.ToBalanceSheetDTO(rep))
			}

			tw := newTable(cmd.OutOrStdout())
			for _, s := range []report.Section{rep.Assets, rep.Liabilities, rep.Equity} {
				writeSection(tw, s)
			}
			fmt.Fprintf(tw, "Profit for the period\t%s\t\n", rep.Profit)
			if !rep.Balanced() {
				fmt.Fprintf(tw, "Residual\t%s\t\n", rep.Residual)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&asOf, "as-of", "", "balances as of this date (YYYY-MM-DD)")
	cmd.Flags().IntVar(&depth, "depth", 0, "hierarchy levels to show (0 = all)")
	return cmd
}

func newPLCommand(g *globalFlags) *cobra.Command {
	var from, to, periodicity string
	var depth int

	cmd := &cobra.Command{
		Use:     "pl",
		Aliases: []string{"profit-and-loss"},
		Short:   "Profit & Loss, optionally split into period columns",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts := report.PLOptions{Depth: depth}
			var err error
			if opts.From, err = dateFlag("from", from); err != nil {
				return err
			}
			if opts.To, err = dateFlag("to", to); err != nil {
				return err
			}
			if opts.Periodicity, err = report.ParsePeriodicity(periodicity); err != nil {
				return err
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			rep, err := a.Reports.ProfitAndLoss(cmd.Context(), opts)
			if err != nil {
				return err
			}
			if jsonFlag(cmd) {
				return writeJSON(cmd.OutOrStdout(), api.ToProfitAndLossDTO(rep))
			}

			tw := newTable(cmd.OutOrStdout())
			header := []string{"ACCOUNT"}
			for _, p := range rep.Periods {
				header = append(header, p.Label(opts.Periodicity))
			}
			if len(rep.Periods) > 1 {
				header = append(header, "TOTAL")
			}
			fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
			writeSection(tw, rep.Income)
			writeSection(tw, rep.Expense)
			writeRow(tw, "Net Profit", rep.NetProfit, rep.Total)
			return tw.Flush()
		},
	}
	cmd.Flags().StringVar(&from, "from", "", "start date YYYY-MM-DD (required with --periodicity)")
	cmd.Flags().StringVar(&to, "to", "", "end date YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&periodicity, "periodicity", "", "monthly, quarterly, half-yearly or yearly")
	cmd.Flags().IntVar(&depth, "depth", 0, "hierarchy levels to show (0 = all)")
	return cmd
}

// =============================================================================
// TABLE OUTPUT
// =============================================================================

func newTable(w io.Writer) *tabwriter.Writer {
	return tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
}

func writeSection(tw *tabwriter.Writer, s report.Section) {
	for _, l := range s.Lines {
		writeRow(tw, strings.Repeat("  ", l.Depth)+l.Account, l.Amounts, l.Total)
	}
	writeRow(tw, "Total "+string(s.RootType), s.Totals, s.Total)
}

// writeRow prints one amount per column, plus a total column when there
// is more than one.
func writeRow(tw *tabwriter.Writer, label string, amounts []money.Money, total money.Money) {
	cells := []string{label}
	for _, m := range amounts {
		cells = append(cells, m.String())
	}
	if len(amounts) > 1 {
		cells = append(cells, total.String())
	}
	fmt.Fprintln(tw, strings.Join(cells, "\t")+"\t")
}
