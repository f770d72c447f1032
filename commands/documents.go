package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/documents"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

// postKinds maps the post subcommand argument to a decoder of the API request body.
var postKinds = map[string]func(data []byte, precision int32) (ledger.Document, error){
	"journal": func(data []byte, precision int32) (ledger.Document, error) {
		var req api.JournalEntryRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return req.ToDocument(precision)
	},
	"sales-invoice": func(data []byte, precision int32) (ledger.Document, error) {
		var req api.InvoiceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		inv, err := req.ToInvoice(precision)
		return documents.SalesInvoice{Invoice: inv}, err
	},
	"purchase-invoice": func(data []byte, precision int32) (ledger.Document, error) {
		var req api.InvoiceRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		inv, err := req.ToInvoice(precision)
		return documents.PurchaseInvoice{Invoice: inv}, err
	},
	"payment": func(data []byte, precision int32) (ledger.Document, error) {
		var req api.PaymentRequest
		if err := json.Unmarshal(data, &req); err != nil {
			return nil, err
		}
		return req.ToDocument(precision)
	},
}

func newPostCommand(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "post {journal|sales-invoice|purchase-invoice|payment} FILE",
		Short: "Submit a document from a JSON file (- for stdin)",
		Long: `Submit a document. The file holds the same JSON body the HTTP API
accepts, for example:

  {"name": "JE-1", "date": "2025-01-01", "lines": [
    {"account": "Cash", "debit": "500"},
    {"account": "Capital", "credit": "500"}]}`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			decode, ok := postKinds[args[0]]
			if !ok {
				return fmt.Errorf("unknown document kind %q", args[0])
			}
			data, err := readInput(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}

			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			doc, err := decode(data, a.Controller.Env().Config.Precision)
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[1], err)
			}
			entries, err := a.Controller.Submit(cmd.Context(), doc)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), doc.Ref(), ledger.StateSubmitted, entries, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newStatusCommand(g *globalFlags) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "status TYPE NAME",
		Short: "Show a document's state and entries",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refArg(args)
			if err != nil {
				return err
			}
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			state, err := a.Controller.Status(cmd.Context(), ref)
			if err != nil {
				return err
			}
			entries, err := a.Controller.Entries(cmd.Context(), ref)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), ref, state, entries, asJSON)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newCancelCommand(g *globalFlags) *cobra.Command {
	var date string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "cancel TYPE NAME",
		Short: "Cancel a submitted document by posting mirror entries",
		Example: `  ledgerctl cancel SalesInvoice SI-1
  ledgerctl cancel sales-invoices SI-1 --date 2025-03-01`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refArg(args)
			if err != nil {
				return err
			}
			on, err := dateFlag("date", date)
			if err != nil {
				return err
			}
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			reversals, err := a.Controller.Cancel(cmd.Context(), ref, on)
			if err != nil {
				return err
			}
			return printDocument(cmd.OutOrStdout(), ref, ledger.StateCancelled, reversals, asJSON)
		},
	}
	cmd.Flags().StringVar(&date, "date", "", "posting date of the reversals (YYYY-MM-DD, default today)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func newOutstandingCommand(g *globalFlags) *cobra.Command {
	var grandTotal string

	cmd := &cobra.Command{
		Use:   "outstanding TYPE NAME",
		Short: "Show how much of an invoice is still unpaid",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ref, err := refArg(args)
			if err != nil {
				return err
			}
			a, err := g.openApp()
			if err != nil {
				return err
			}
			defer a.Close()

			total, err := money.Parse(grandTotal, a.Controller.Env().Config.Precision)
			if err != nil {
				return err
			}
			out, err := a.Reports.Outstanding(cmd.Context(), ref, total)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s outstanding %s of %s\n", ref, out, total)
			return nil
		},
	}
	cmd.Flags().StringVar(&grandTotal, "grand-total", "", "invoice grand total (required)")
	_ = cmd.MarkFlagRequired("grand-total")
	return cmd
}

// =============================================================================
// HELPERS
// =============================================================================

// refArg accepts a document type ("SalesInvoice") or its URL form
// ("sales-invoices") followed by the document name.
func refArg(args []string) (ledger.Reference, error) {
	return api.ParseReference(docTypeName(args[0]) + "/" + args[1])
}

func docTypeName(s string) string {
	switch s {
	case "journal", "journal-entry", "journal-entries":
		return string(ledger.DocJournalEntry)
	case "sales-invoice", "sales-invoices":
		return string(ledger.DocSalesInvoice)
	case "purchase-invoice", "purchase-invoices":
		return string(ledger.DocPurchaseInvoice)
	case "payment", "payments":
		return string(ledger.DocPayment)
	}
	return s
}

func dateFlag(name, v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	d, err := time.Parse("2006-01-02", v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--%s %q: use YYYY-MM-DD", name, v)
	}
	return d, nil
}

func readInput(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return data, nil
}

func printDocument(w io.Writer, ref ledger.Reference, state ledger.State, entries []ledger.Entry, asJSON bool) error {
	if asJSON {
		return writeJSON(w, api.DocumentDTO{
			Reference: ref.String(),
			Status:    string(state),
			Entries:   api.ToEntryDTOs(entries),
		})
	}

	fmt.Fprintf(w, "%s: %s\n", ref, state)
	if len(entries) == 0 {
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "DATE\tACCOUNT\tDEBIT\tCREDIT\tPARTY\tREVERTED\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%t\t\n",
			e.Date.Format("2006-01-02"), e.Account, e.Debit, e.Credit, e.Party, e.Reverted)
	}
	return tw.Flush()
}
