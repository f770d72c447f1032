package commands_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/ledger-engine/api"
	"github.com/warp/ledger-engine/commands"
	"github.com/warp/ledger-engine/config"
)

func runLedgerctl(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := commands.NewRootCommand()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFile(t *testing.T, dir, name string, v any) string {
	t.Helper()
	data, err := json.Marshal(v)
	require.NoError(t, err)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, data, 0o644))
	return path
}

func initLedger(t *testing.T) (dir, cfgPath string) {
	t.Helper()
	dir = t.TempDir()
	_, err := runLedgerctl(t, "init", dir)
	require.NoError(t, err)
	return dir, filepath.Join(dir, commands.DefaultConfigFile)
}

func TestInit_CreatesConfigAndChart(t *testing.T) {
	dir, cfgPath := initLedger(t)

	cfg, err := config.Load(cfgPath)
	require.NoError(t, err)
	assert.Equal(t, "sqlite3", cfg.Store.Driver)
	assert.Equal(t, commands.ChartFile, cfg.Ledger.Chart)

	_, err = os.Stat(filepath.Join(dir, commands.ChartFile))
	require.NoError(t, err)

	_, err = runLedgerctl(t, "init", dir)
	assert.ErrorContains(t, err, "already exists")

	_, err = runLedgerctl(t, "init", dir, "--force")
	assert.NoError(t, err)
}

func TestAccounts_PrintsTree(t *testing.T) {
	_, cfgPath := initLedger(t)

	out, err := runLedgerctl(t, "accounts", "--config", cfgPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Round Off")
	assert.Contains(t, out, "    Cash")
}

func TestPostReportCancel(t *testing.T) {
	// GIVEN: An initialized ledger with a journal and an invoice posted
	dir, cfgPath := initLedger(t)
	je := writeFile(t, dir, "je.json", api.JournalEntryRequest{
		Name: "JE-1", Date: "2025-01-01",
		Lines: []api.JournalLineRequest{
			{Account: "Cash", Debit: "500"},
			{Account: "Capital", Credit: "500"},
		},
	})
	si := writeFile(t, dir, "si.json", api.InvoiceRequest{
		Name: "SI-1", Date: "2025-02-10", Party: "Acme Corp",
		Items: []api.ItemRequest{{Account: "Revenue", Rate: "1000"}},
		Taxes: []api.TaxRequest{{Account: "Output Tax", Rate: "0.12"}},
	})

	out, err := runLedgerctl(t, "post", "journal", je, "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "JournalEntry/JE-1: submitted")

	out, err = runLedgerctl(t, "post", "sales-invoice", si, "--config", cfgPath, "--json")
	require.NoError(t, err, out)
	var doc api.DocumentDTO
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.Len(t, doc.Entries, 3)

	// WHEN/THEN: The trial balance is balanced over both documents
	out, err = runLedgerctl(t, "report", "tb", "--json", "--config", cfgPath)
	require.NoError(t, err, out)
	var tb api.TrialBalanceDTO
	require.NoError(t, json.Unmarshal([]byte(out), &tb))
	assert.True(t, tb.Balanced)
	assert.Equal(t, "1620.00", tb.Total.Debit.String())

	out, err = runLedgerctl(t, "report", "gl", "--account", "Cash", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "500.00")

	out, err = runLedgerctl(t, "outstanding", "SalesInvoice", "SI-1", "--grand-total", "1120", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "outstanding 1120.00")

	// WHEN: The invoice is cancelled
	out, err = runLedgerctl(t, "cancel", "sales-invoices", "SI-1", "--date", "2025-03-01", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "SalesInvoice/SI-1: cancelled")

	// THEN: Status reflects it and the P&L no longer shows the revenue
	out, err = runLedgerctl(t, "status", "SalesInvoice", "SI-1", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "cancelled")

	out, err = runLedgerctl(t, "report", "pl", "--from", "2025-01-01", "--to", "2025-12-31", "--json", "--config", cfgPath)
	require.NoError(t, err, out)
	var pl api.ProfitAndLossDTO
	require.NoError(t, json.Unmarshal([]byte(out), &pl))
	assert.True(t, pl.Total.IsZero())

	out, err = runLedgerctl(t, "report", "bs", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.NotContains(t, out, "Residual")
}

func TestPost_Errors(t *testing.T) {
	dir, cfgPath := initLedger(t)
	bad := writeFile(t, dir, "bad.json", api.JournalEntryRequest{
		Name: "JE-1", Date: "2025-01-01",
		Lines: []api.JournalLineRequest{
			{Account: "Current Assets", Debit: "500"},
			{Account: "Capital", Credit: "500"},
		},
	})

	_, err := runLedgerctl(t, "post", "quote", bad, "--config", cfgPath)
	assert.ErrorContains(t, err, "unknown document kind")

	_, err = runLedgerctl(t, "post", "journal", bad, "--config", cfgPath)
	assert.ErrorContains(t, err, "Current Assets")

	_, err = runLedgerctl(t, "cancel", "JournalEntry", "JE-1", "--config", cfgPath)
	assert.ErrorContains(t, err, "cannot move from draft")
}

func TestSeed(t *testing.T) {
	_, cfgPath := initLedger(t)

	out, err := runLedgerctl(t, "seed", "--list")
	require.NoError(t, err)
	assert.Equal(t, len(api.Scenarios()), strings.Count(out, "\n"))

	out, err = runLedgerctl(t, "seed", "opening-balances", "sales-cycle", "--year", "2025", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "sales-cycle: submitted 2")

	out, err = runLedgerctl(t, "outstanding", "sales-invoices", "SI-2025-001", "--grand-total", "1120", "--config", cfgPath)
	require.NoError(t, err, out)
	assert.Contains(t, out, "outstanding 400.00")
}
