package ledger_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/accounts"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/ledger/store"
	"github.com/warp/ledger-engine/money"
)

// =============================================================================
// TEST DOCUMENTS AND STORES
// =============================================================================

type testLine struct {
	account string
	debit   string
	credit  string
}

// linesDoc posts a fixed list of lines.
type linesDoc struct {
	ref   ledger.Reference
	date  time.Time
	lines []testLine
}

func (d linesDoc) Ref() ledger.Reference { return d.ref }

func (d linesDoc) BuildPosting(_ context.Context, env ledger.Env) (*ledger.Posting, error) {
	p := env.NewPosting(d.ref, d.date)
	for _, l := range d.lines {
		if l.debit != "" {
			if err := p.Debit(l.account, amt(l.debit)); err != nil {
				return nil, err
			}
		}
		if l.credit != "" {
			if err := p.Credit(l.account, amt(l.credit)); err != nil {
				return nil, err
			}
		}
	}
	return p, nil
}

// invoice1120 posts Debtors 1120 / Revenue 1000 / Output Tax 120.
func invoice1120(name string) linesDoc {
	return linesDoc{
		ref:  ledger.Ref(ledger.DocSalesInvoice, name),
		date: ledger.Date(2025, 4, 1),
		lines: []testLine{
			{account: accounts.Debtors, debit: "1120.00"},
			{account: accounts.Revenue, credit: "1000.00"},
			{account: accounts.OutputTax, credit: "120.00"},
		},
	}
}

// failingStore fails every Append made inside a transaction.
type failingStore struct {
	*store.Memory
}

func (f failingStore) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	return f.Memory.WithTx(ctx, func(s ledger.Store) error {
		return fn(failingView{s})
	})
}

type failingView struct {
	ledger.Store
}

func (failingView) Append(context.Context, []ledger.Entry) ([]ledger.Entry, error) {
	return nil, &ledger.StoreError{Op: "append", Err: errors.New("disk full")}
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (r *recordingPublisher) Publish(_ context.Context, evt ledger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

func newController(s ledger.TxStore, opts ...ledger.Option) *ledger.Controller {
	clock := func() time.Time { return time.Date(2025, 5, 10, 15, 0, 0, 0, time.UTC) }
	opts = append([]ledger.Option{ledger.WithClock(clock)}, opts...)
	return ledger.NewController(s, chart(), testConfig(), opts...)
}

func netByAccount(entries []ledger.Entry) map[string]money.Money {
	out := make(map[string]money.Money)
	for _, e := range entries {
		cur, ok := out[e.Account]
		if !ok {
			cur = money.Zero(2)
		}
		out[e.Account] = cur.Add(e.Net())
	}
	return out
}

// =============================================================================
// SUBMIT
// =============================================================================

func TestController_SubmitSalesInvoice(t *testing.T) {
	s := store.NewMemory()
	pub := &recordingPublisher{}
	c := newController(s, ledger.WithPublisher(pub))
	ctx := context.Background()
	doc := invoice1120("SI-1")

	// GIVEN: a draft
	state, err := c.Status(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateDraft, state)

	// WHEN
	entries, err := c.Submit(ctx, doc)
	require.NoError(t, err)

	// THEN
	require.Len(t, entries, 3)
	assert.Equal(t, accounts.Debtors, entries[0].Account)
	assert.Equal(t, "1120.00", entries[0].Debit.String())
	assert.Equal(t, accounts.Revenue, entries[1].Account)
	assert.Equal(t, "1000.00", entries[1].Credit.String())
	assert.Equal(t, accounts.OutputTax, entries[2].Account)
	assert.Equal(t, "120.00", entries[2].Credit.String())

	state, err = c.Status(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateSubmitted, state)

	require.Len(t, pub.events, 1)
	assert.Equal(t, ledger.EventSubmitted, pub.events[0].Type)
	assert.Len(t, pub.events[0].Entries, 3)
}

func TestController_SubmitTwiceIsRefused(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()

	_, err := c.Submit(ctx, invoice1120("SI-1"))
	require.NoError(t, err)

	_, err = c.Submit(ctx, invoice1120("SI-1"))
	assert.ErrorIs(t, err, ledger.ErrInvalidTransition)
	assert.Equal(t, 3, s.Len())
}

func TestController_GroupAccountLeavesStoreUnchanged(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()

	doc := linesDoc{
		ref:  ledger.Ref(ledger.DocJournalEntry, "JE-1"),
		date: ledger.Date(2025, 1, 1),
		lines: []testLine{
			{account: "Current Assets", debit: "10"},
			{account: accounts.Capital, credit: "10"},
		},
	}
	_, err := c.Submit(ctx, doc)
	assert.ErrorIs(t, err, ledger.ErrInvalidAccount)
	assert.Equal(t, 0, s.Len())

	state, err := c.Status(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateDraft, state)
}

func TestController_IncompleteReferenceIsClientError(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)

	for _, ref := range []ledger.Reference{
		ledger.Ref(ledger.DocJournalEntry, ""),
		ledger.Ref("", "JE-1"),
	} {
		doc := invoice1120("SI-1")
		doc.ref = ref
		_, err := c.Submit(context.Background(), doc)
		assert.ErrorIs(t, err, ledger.ErrInvalidReference)
		assert.True(t, ledger.IsClientError(err), "%s", ref)
	}
	assert.Equal(t, 0, s.Len())
}

func TestController_SubmitAppliesRoundOff(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()

	doc := linesDoc{
		ref:  ledger.Ref(ledger.DocJournalEntry, "JE-1"),
		date: ledger.Date(2025, 1, 1),
		lines: []testLine{
			{account: accounts.OfficeExpenses, debit: "100.00"},
			{account: accounts.Cash, credit: "33.33"},
			{account: accounts.Bank, credit: "33.33"},
			{account: accounts.Capital, credit: "33.33"},
		},
	}
	entries, err := c.Submit(ctx, doc)
	require.NoError(t, err)
	require.Len(t, entries, 5)
	assert.Equal(t, accounts.RoundOff, entries[4].Account)
	assert.Equal(t, "0.01", entries[4].Credit.String())
}

func TestController_UnbalancedWithoutRoundOffAccount(t *testing.T) {
	s := store.NewMemory()
	c := ledger.NewController(s, chart(), ledger.DefaultConfig())

	doc := linesDoc{
		ref:  ledger.Ref(ledger.DocJournalEntry, "JE-1"),
		date: ledger.Date(2025, 1, 1),
		lines: []testLine{
			{account: accounts.Cash, debit: "10.00"},
			{account: accounts.Capital, credit: "9.99"},
		},
	}
	_, err := c.Submit(context.Background(), doc)
	assert.ErrorIs(t, err, ledger.ErrUnbalancedPosting)
	assert.Equal(t, 0, s.Len())
}

func TestController_StoreFailureKeepsDraft(t *testing.T) {
	mem := store.NewMemory()
	c := newController(failingStore{mem})
	ctx := context.Background()
	doc := invoice1120("SI-1")

	_, err := c.Submit(ctx, doc)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)
	assert.True(t, ledger.IsRetryable(err))

	state, err := c.Status(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateDraft, state)
	assert.Equal(t, 0, mem.Len())
}

func TestController_ConcurrentSubmitsCommitOnce(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()

	var wg sync.WaitGroup
	var ok atomic.Int32
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := c.Submit(ctx, invoice1120("SI-1")); err == nil {
				ok.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, 3, s.Len())
}

// =============================================================================
// CANCEL
// =============================================================================

func TestController_CancelMirrorsEntries(t *testing.T) {
	s := store.NewMemory()
	pub := &recordingPublisher{}
	c := newController(s, ledger.WithPublisher(pub))
	ctx := context.Background()
	doc := invoice1120("SI-1")

	originals, err := c.Submit(ctx, doc)
	require.NoError(t, err)

	// WHEN: cancel without an explicit date
	reversals, err := c.Cancel(ctx, doc.ref, time.Time{})
	require.NoError(t, err)

	// THEN: one mirrored entry per original, dated by the clock
	require.Len(t, reversals, 3)
	for i, r := range reversals {
		orig := originals[i]
		assert.Equal(t, orig.ID, r.Reverts)
		assert.Equal(t, orig.Account, r.Account)
		assert.True(t, orig.Debit.Equal(r.Credit))
		assert.True(t, orig.Credit.Equal(r.Debit))
		assert.True(t, r.Reverted)
		assert.Equal(t, ledger.Date(2025, 5, 10), r.Date)

		got, err := s.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.True(t, got.Reverted, "original %s flagged", orig.ID)
	}

	state, err := c.Status(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, ledger.StateCancelled, state)

	require.Len(t, pub.events, 2)
	assert.Equal(t, ledger.EventCancelled, pub.events[1].Type)
}

func TestController_CancelTwiceIsIdempotent(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()
	doc := invoice1120("SI-1")

	_, err := c.Submit(ctx, doc)
	require.NoError(t, err)
	_, err = c.Cancel(ctx, doc.ref, ledger.Date(2025, 4, 2))
	require.NoError(t, err)
	once, err := c.Entries(ctx, doc.ref)
	require.NoError(t, err)

	// WHEN: cancelled again
	again, err := c.Cancel(ctx, doc.ref, ledger.Date(2025, 4, 3))

	// THEN: nothing new
	require.NoError(t, err)
	assert.Empty(t, again)
	twice, err := c.Entries(ctx, doc.ref)
	require.NoError(t, err)
	assert.Equal(t, once, twice)
}

func TestController_OriginalPlusReversalNetsZero(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()
	doc := invoice1120("SI-1")

	_, err := c.Submit(ctx, doc)
	require.NoError(t, err)
	_, err = c.Cancel(ctx, doc.ref, time.Time{})
	require.NoError(t, err)

	all, err := c.Entries(ctx, doc.ref)
	require.NoError(t, err)
	require.Len(t, all, 6)
	for account, net := range netByAccount(all) {
		assert.True(t, net.IsZero(), "%s nets to %s", account, net)
	}
}

func TestController_CancelDraftIsRefused(t *testing.T) {
	c := newController(store.NewMemory())
	_, err := c.Cancel(context.Background(), ledger.Ref(ledger.DocSalesInvoice, "SI-404"), time.Time{})

	var te *ledger.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ledger.StateDraft, te.From)
	assert.True(t, ledger.IsConflict(err))
}

func TestController_CancelledIsTerminal(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()
	doc := invoice1120("SI-1")

	_, err := c.Submit(ctx, doc)
	require.NoError(t, err)
	_, err = c.Cancel(ctx, doc.ref, time.Time{})
	require.NoError(t, err)

	_, err = c.Submit(ctx, doc)
	var te *ledger.TransitionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, ledger.StateCancelled, te.From)
}

func TestController_CancelResumesAfterPartialRun(t *testing.T) {
	s := store.NewMemory()
	c := newController(s)
	ctx := context.Background()
	doc := invoice1120("SI-1")

	originals, err := c.Submit(ctx, doc)
	require.NoError(t, err)

	// GIVEN: a previous run flipped one original and then died
	require.NoError(t, s.MarkReverted(ctx, originals[0].ID))

	// WHEN
	reversals, err := c.Cancel(ctx, doc.ref, time.Time{})

	// THEN: only the remaining two are reversed
	require.NoError(t, err)
	require.Len(t, reversals, 2)
	assert.Equal(t, originals[1].ID, reversals[0].Reverts)
	assert.Equal(t, originals[2].ID, reversals[1].Reverts)
}

func TestController_CancelStoreFailureRollsBack(t *testing.T) {
	mem := store.NewMemory()
	ctx := context.Background()
	doc := invoice1120("SI-1")

	originals, err := newController(mem).Submit(ctx, doc)
	require.NoError(t, err)

	_, err = newController(failingStore{mem}).Cancel(ctx, doc.ref, time.Time{})
	assert.ErrorIs(t, err, ledger.ErrStoreUnavailable)

	for _, orig := range originals {
		got, err := mem.Get(ctx, orig.ID)
		require.NoError(t, err)
		assert.False(t, got.Reverted)
	}
	assert.Equal(t, 3, mem.Len())
}
