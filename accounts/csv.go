package accounts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/warp/ledger-engine/ledger"
)

const (
	numFields  = 5
	colName    = 0
	colType    = 1
	colParent  = 2
	colIsGroup = 3
	colDesc    = 4
)

var header = []string{"account_name", "root_type", "parent", "is_group", "description"}

// ReadAccounts reads a chart-of-accounts CSV (header row first).
func ReadAccounts(r io.Reader) ([]ledger.Account, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = numFields

	records, err := cr.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading accounts CSV: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	var out []ledger.Account
	for i, rec := range records[1:] {
		acct, err := UnmarshalAccount(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, acct)
	}
	return out, nil
}

// WriteAccounts writes a chart-of-accounts CSV.
func WriteAccounts(w io.Writer, accts []ledger.Account) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	if err := cw.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	for i, a := range accts {
		if err := cw.Write(MarshalAccount(a)); err != nil {
			return fmt.Errorf("writing row %d: %w", i+2, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// MarshalAccount converts an Account to a CSV row.
func MarshalAccount(a ledger.Account) []string {
	row := make([]string, numFields)
	row[colName] = a.Name
	row[colType] = string(a.RootType)
	row[colParent] = a.Parent
	row[colIsGroup] = strconv.FormatBool(a.IsGroup)
	row[colDesc] = a.Description
	return row
}

// UnmarshalAccount converts a CSV row to an Account.
func UnmarshalAccount(record []string) (ledger.Account, error) {
	if len(record) != numFields {
		return ledger.Account{}, fmt.Errorf("expected %d fields, got %d", numFields, len(record))
	}
	isGroup := false
	if record[colIsGroup] != "" {
		var err error
		isGroup, err = strconv.ParseBool(record[colIsGroup])
		if err != nil {
			return ledger.Account{}, fmt.Errorf("parsing is_group %q: %w", record[colIsGroup], err)
		}
	}
	return ledger.Account{
		Name:        record[colName],
		RootType:    ledger.RootType(record[colType]),
		Parent:      record[colParent],
		IsGroup:     isGroup,
		Description: record[colDesc],
	}, nil
}

// Load reads and validates a chart from a CSV file.
func Load(path string) (*Chart, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening chart of accounts: %w", err)
	}
	defer f.Close()

	accts, err := ReadAccounts(f)
	if err != nil {
		return nil, fmt.Errorf("reading chart of accounts: %w", err)
	}
	return New(accts)
}

// Save writes the chart to a CSV file, creating parent directories.
func (c *Chart) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating chart dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating chart of accounts file: %w", err)
	}
	defer f.Close()

	if err := WriteAccounts(f, c.accounts); err != nil {
		return fmt.Errorf("writing chart of accounts: %w", err)
	}
	return nil
}
