// Package store provides Store implementations.
package store

import (
	"context"
	"fmt"
	"iter"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/warp/ledger-engine/ledger"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

// Memory keeps entries in insertion order with secondary indexes.
// It implements ledger.TxStore.
type Memory struct {
	mu      sync.RWMutex
	entries []ledger.Entry // position i holds Seq i+1
	byID    map[ledger.EntryID]int
	byRef   map[ledger.Reference][]int
	chrono  []int // positions sorted by (Date, Seq)
	now     func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		byID:  make(map[ledger.EntryID]int),
		byRef: make(map[ledger.Reference][]int),
		now:   time.Now,
	}
}

var _ ledger.TxStore = (*Memory)(nil)

// Append adds a batch atomically.
func (m *Memory) Append(_ context.Context, entries []ledger.Entry) ([]ledger.Entry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.appendLocked(entries)
}

func (m *Memory) appendLocked(entries []ledger.Entry) ([]ledger.Entry, error) {
	// Check IDs first so a bad batch leaves nothing behind
	seen := make(map[ledger.EntryID]bool, len(entries))
	for _, e := range entries {
		if e.ID == "" {
			continue
		}
		if _, exists := m.byID[e.ID]; exists || seen[e.ID] {
			return nil, fmt.Errorf("append: duplicate entry id %s", e.ID)
		}
		seen[e.ID] = true
	}

	out := make([]ledger.Entry, len(entries))
	createdAt := m.now().UTC()
	for i, e := range entries {
		if e.ID == "" {
			e.ID = ledger.EntryID(uuid.NewString())
		}
		e.Date = ledger.DayOf(e.Date)
		e.Seq = int64(len(m.entries) + 1)
		e.CreatedAt = createdAt
		m.insertLocked(e)
		out[i] = e
	}
	return out, nil
}

func (m *Memory) insertLocked(e ledger.Entry) {
	pos := len(m.entries)
	m.entries = append(m.entries, e)
	m.byID[e.ID] = pos
	m.byRef[e.Reference] = append(m.byRef[e.Reference], pos)

	// Binary search for the first entry dated after e; Seq breaks ties
	// because later positions always have larger Seq.
	i := sort.Search(len(m.chrono), func(i int) bool {
		return m.entries[m.chrono[i]].Date.After(e.Date)
	})
	m.chrono = slices.Insert(m.chrono, i, pos)
}

// Get returns an entry by ID.
func (m *Memory) Get(_ context.Context, id ledger.EntryID) (ledger.Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) getLocked(id ledger.EntryID) (ledger.Entry, error) {
	pos, ok := m.byID[id]
	if !ok {
		return ledger.Entry{}, fmt.Errorf("%w: %s", ledger.ErrEntryNotFound, id)
	}
	return m.entries[pos], nil
}

// MarkReverted flips the reverted flag of one entry.
func (m *Memory) MarkReverted(_ context.Context, id ledger.EntryID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.markLocked(id)
	return err
}

func (m *Memory) markLocked(id ledger.EntryID) (int, error) {
	pos, ok := m.byID[id]
	if !ok {
		return 0, fmt.Errorf("%w: %s", ledger.ErrEntryNotFound, id)
	}
	if m.entries[pos].Reverted {
		return 0, fmt.Errorf("%w: %s", ledger.ErrAlreadyReverted, id)
	}
	m.entries[pos].Reverted = true
	return pos, nil
}

// Query returns matching entries. The match set is copied under the read
// lock when iteration starts, so a concurrent Append is either fully
// visible or not at all.
func (m *Memory) Query(_ context.Context, f ledger.Filter) iter.Seq2[ledger.Entry, error] {
	return func(yield func(ledger.Entry, error) bool) {
		m.mu.RLock()
		matched := m.matchLocked(f)
		m.mu.RUnlock()

		for _, e := range matched {
			if !yield(e, nil) {
				return
			}
		}
	}
}

func (m *Memory) matchLocked(f ledger.Filter) []ledger.Entry {
	var positions []int
	switch {
	case !f.Reference.IsZero():
		positions = m.byRef[f.Reference]
		if f.Order == ledger.OrderChronological {
			positions = slices.Clone(positions)
			slices.SortStableFunc(positions, func(a, b int) int {
				return m.entries[a].Date.Compare(m.entries[b].Date)
			})
		}
	case f.Order == ledger.OrderChronological:
		positions = m.chrono
	default:
		positions = nil
		for i := range m.entries {
			positions = append(positions, i)
		}
	}

	var out []ledger.Entry
	for _, pos := range positions {
		if e := m.entries[pos]; f.Match(e) {
			out = append(out, e)
		}
	}
	return out
}

// Len returns the number of stored entries.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn while holding the write lock. Writes go straight to
// the store and are recorded in an undo log; if fn fails they are undone.
func (m *Memory) WithTx(_ context.Context, fn func(ledger.Store) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	view := &txMemoryView{parent: m, mark: len(m.entries)}
	if err := fn(view); err != nil {
		m.rollbackLocked(view.mark, view.flipped)
		return err
	}
	return nil
}

func (m *Memory) rollbackLocked(mark int, flipped []int) {
	for _, pos := range flipped {
		if pos < mark {
			m.entries[pos].Reverted = false
		}
	}
	if mark == len(m.entries) {
		return
	}
	for _, e := range m.entries[mark:] {
		delete(m.byID, e.ID)
		m.byRef[e.Reference] = slices.DeleteFunc(m.byRef[e.Reference], func(p int) bool { return p >= mark })
		if len(m.byRef[e.Reference]) == 0 {
			delete(m.byRef, e.Reference)
		}
	}
	m.chrono = slices.DeleteFunc(m.chrono, func(p int) bool { return p >= mark })
	m.entries = m.entries[:mark]
}

type txMemoryView struct {
	parent  *Memory
	mark    int
	flipped []int
}

func (tv *txMemoryView) Append(_ context.Context, entries []ledger.Entry) ([]ledger.Entry, error) {
	return tv.parent.appendLocked(entries)
}

func (tv *txMemoryView) Get(_ context.Context, id ledger.EntryID) (ledger.Entry, error) {
	return tv.parent.getLocked(id)
}

func (tv *txMemoryView) MarkReverted(_ context.Context, id ledger.EntryID) error {
	pos, err := tv.parent.markLocked(id)
	if err != nil {
		return err
	}
	tv.flipped = append(tv.flipped, pos)
	return nil
}

func (tv *txMemoryView) Query(_ context.Context, f ledger.Filter) iter.Seq2[ledger.Entry, error] {
	return func(yield func(ledger.Entry, error) bool) {
		for _, e := range tv.parent.matchLocked(f) {
			if !yield(e, nil) {
				return
			}
		}
	}
}
