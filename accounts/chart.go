// Package accounts holds the chart of accounts: lookup by name, the group
// hierarchy used for report roll-ups, and CSV persistence.
package accounts

import (
	"errors"
	"fmt"
	"sort"

	"github.com/warp/ledger-engine/ledger"
)

// ErrInvalidChart is returned when a chart fails structural validation.
var ErrInvalidChart = errors.New("invalid chart of accounts")

// Chart provides in-memory lookup over the chart of accounts.
// It is read-only after construction and safe for concurrent use.
type Chart struct {
	accounts []ledger.Account
	byName   map[string]ledger.Account
	children map[string][]string
}

var _ ledger.AccountLookup = (*Chart)(nil)

// New validates accounts and builds a Chart. Rules: names are unique, root
// types are valid, parents exist, are groups and share the child's root
// type, and the hierarchy has no cycles.
func New(accounts []ledger.Account) (*Chart, error) {
	c := &Chart{
		accounts: append([]ledger.Account(nil), accounts...),
		byName:   make(map[string]ledger.Account, len(accounts)),
		children: make(map[string][]string),
	}
	for _, a := range accounts {
		if a.Name == "" {
			return nil, fmt.Errorf("%w: account with empty name", ErrInvalidChart)
		}
		if _, dup := c.byName[a.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate account %q", ErrInvalidChart, a.Name)
		}
		if !a.RootType.Valid() {
			return nil, fmt.Errorf("%w: account %q has unknown root type %q", ErrInvalidChart, a.Name, a.RootType)
		}
		c.byName[a.Name] = a
	}
	for _, a := range accounts {
		if a.Parent == "" {
			continue
		}
		parent, ok := c.byName[a.Parent]
		if !ok {
			return nil, fmt.Errorf("%w: account %q has unknown parent %q", ErrInvalidChart, a.Name, a.Parent)
		}
		if !parent.IsGroup {
			return nil, fmt.Errorf("%w: parent %q of %q is not a group", ErrInvalidChart, a.Parent, a.Name)
		}
		if parent.RootType != a.RootType {
			return nil, fmt.Errorf("%w: %q is %s but parent %q is %s", ErrInvalidChart, a.Name, a.RootType, a.Parent, parent.RootType)
		}
		c.children[a.Parent] = append(c.children[a.Parent], a.Name)
	}
	for _, a := range accounts {
		if c.Depth(a.Name) < 0 {
			return nil, fmt.Errorf("%w: cycle through %q", ErrInvalidChart, a.Name)
		}
	}
	return c, nil
}

// MustNew is New for charts known to be valid, such as DefaultChart.
func MustNew(accounts []ledger.Account) *Chart {
	c, err := New(accounts)
	if err != nil {
		panic(err)
	}
	return c
}

// Account returns an account by name.
func (c *Chart) Account(name string) (ledger.Account, bool) {
	a, ok := c.byName[name]
	return a, ok
}

// All returns all accounts in definition order.
func (c *Chart) All() []ledger.Account {
	return append([]ledger.Account(nil), c.accounts...)
}

// Roots returns the top-level accounts.
func (c *Chart) Roots() []ledger.Account {
	var roots []ledger.Account
	for _, a := range c.accounts {
		if a.Parent == "" {
			roots = append(roots, a)
		}
	}
	return roots
}

// Children returns the direct children of a group, in definition order.
func (c *Chart) Children(name string) []ledger.Account {
	out := make([]ledger.Account, 0, len(c.children[name]))
	for _, child := range c.children[name] {
		out = append(out, c.byName[child])
	}
	return out
}

// Leaves returns the names of all leaf accounts under name, sorted.
// A leaf returns itself.
func (c *Chart) Leaves(name string) []string {
	a, ok := c.byName[name]
	if !ok {
		return nil
	}
	if !a.IsGroup {
		return []string{name}
	}
	var out []string
	for _, child := range c.children[name] {
		out = append(out, c.Leaves(child)...)
	}
	sort.Strings(out)
	return out
}

// Depth returns 0 for a top-level account, 1 for its children and so on.
// It returns -1 for unknown accounts or a cyclic hierarchy.
func (c *Chart) Depth(name string) int {
	depth := 0
	seen := make(map[string]bool)
	for {
		a, ok := c.byName[name]
		if !ok || seen[name] {
			return -1
		}
		if a.Parent == "" {
			return depth
		}
		seen[name] = true
		name = a.Parent
		depth++
	}
}

// AncestorAt returns the ancestor of name at the given depth, or name itself
// if it is already at or above that depth.
func (c *Chart) AncestorAt(name string, depth int) string {
	for c.Depth(name) > depth {
		name = c.byName[name].Parent
	}
	return name
}

// ByRootType returns all accounts of the given root type.
func (c *Chart) ByRootType(t ledger.RootType) []ledger.Account {
	var out []ledger.Account
	for _, a := range c.accounts {
		if a.RootType == t {
			out = append(out, a)
		}
	}
	return out
}
