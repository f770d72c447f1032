/*
controller.go - Draft -> Submitted -> Cancelled lifecycle for documents

PURPOSE:
  Drives a document through the posting lifecycle. Submitting commits the
  document's posting; cancelling reverses every entry it produced.

STATE MACHINE:
  Draft --Submit--> Submitted --Cancel--> Cancelled (terminal)

  State is derived from the ledger itself, not stored separately:
  - no entries for the reference          -> Draft
  - at least one entry not yet reverted   -> Submitted
  - entries exist and all are reverted    -> Cancelled

  This keeps the ledger the single source of truth: a document can never
  claim to be Submitted without its entries being committed.

ATOMICITY:
  Both transitions run inside TxStore.WithTx. The state check and the
  writes happen under the same transaction, so two concurrent Submits of
  one document cannot both commit, and a Cancel either lands completely
  (all flips + all reversals) or not at all. Both store implementations
  serialize writers, which is the global commit lock.

IDEMPOTENT CANCEL:
  Cancel only reverses entries that are still active. Running it on a
  Cancelled document is a no-op. If a previous run was interrupted, the
  next run reverses whatever remains. A single entry reporting
  ErrAlreadyReverted is logged and skipped.

EVENTS:
  After a transition commits, an Event is handed to the publisher. Publish
  failures are logged and do not undo the transition.
*/
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Controller runs document lifecycle transitions against a TxStore.
type Controller struct {
	store     TxStore
	env       Env
	publisher EventPublisher
	log       *zap.Logger
	now       func() time.Time
}

// Option configures a Controller.
type Option func(*Controller)

// WithPublisher sends lifecycle events to p.
func WithPublisher(p EventPublisher) Option {
	return func(c *Controller) { c.publisher = p }
}

// WithLogger sets the logger. Default is a no-op logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithClock overrides time.Now, used to date reversals when no date is given.
func WithClock(now func() time.Time) Option {
	return func(c *Controller) { c.now = now }
}

// NewController creates a lifecycle controller.
func NewController(store TxStore, accounts AccountLookup, cfg Config, opts ...Option) *Controller {
	c := &Controller{
		store: store,
		env:   Env{Accounts: accounts, Config: cfg},
		log:   zap.NewNop(),
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Env returns the environment passed to documents.
func (c *Controller) Env() Env { return c.env }

// Status returns the current lifecycle state of a document.
func (c *Controller) Status(ctx context.Context, ref Reference) (State, error) {
	return stateOf(ctx, c.store, ref)
}

// Entries returns every entry recorded under ref, reversals included, in
// insertion order.
func (c *Controller) Entries(ctx context.Context, ref Reference) ([]Entry, error) {
	return Collect(c.store.Query(ctx, Filter{Reference: ref}))
}

func stateOf(ctx context.Context, q Querier, ref Reference) (State, error) {
	found := false
	for e, err := range q.Query(ctx, Filter{Reference: ref}) {
		if err != nil {
			return "", err
		}
		if !e.Reverted {
			return StateSubmitted, nil
		}
		found = true
	}
	if found {
		return StateCancelled, nil
	}
	return StateDraft, nil
}

// =============================================================================
// SUBMIT
// =============================================================================

// Submit builds the document's posting, applies round-off if configured,
// and commits it. The document must be in Draft.
func (c *Controller) Submit(ctx context.Context, doc Document) ([]Entry, error) {
	ref := doc.Ref()
	if ref.Type == "" || ref.Name == "" {
		return nil, fmt.Errorf("submit %q: %w: type and name are required", ref, ErrInvalidReference)
	}
	log := c.log.With(zap.String("reference", ref.String()))

	posting, err := doc.BuildPosting(ctx, c.env)
	if err != nil {
		log.Info("posting rejected", zap.Error(err))
		return nil, fmt.Errorf("build posting for %s: %w", ref, err)
	}
	if posting.Reference() != ref {
		return nil, fmt.Errorf("posting reference %s does not match document %s", posting.Reference(), ref)
	}

	if err := posting.Validate(); err != nil && c.env.Config.RoundOffAccount != "" {
		diff := posting.Difference()
		if err := posting.ApplyRoundOff(c.env.Config.RoundOffAccount); err != nil {
			log.Warn("round-off refused", zap.Stringer("difference", diff), zap.Error(err))
			return nil, err
		}
		log.Debug("round-off applied", zap.Stringer("difference", diff))
	}

	var committed []Entry
	err = c.store.WithTx(ctx, func(s Store) error {
		state, err := stateOf(ctx, s, ref)
		if err != nil {
			return err
		}
		if state != StateDraft {
			return &TransitionError{Reference: ref, From: state, To: StateSubmitted}
		}
		committed, err = posting.Commit(ctx, s)
		return err
	})
	if err != nil {
		log.Warn("submit failed", zap.Error(err))
		return nil, err
	}

	debit, credit := posting.Totals()
	log.Info("document submitted",
		zap.Int("entries", len(committed)),
		zap.Stringer("debit", debit),
		zap.Stringer("credit", credit),
	)
	c.publish(ctx, EventSubmitted, ref, committed)
	return committed, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel reverses every active entry of ref, dated on date (today if zero),
// and returns the reversal entries it created. Cancelling an already
// cancelled document returns no entries and no error.
func (c *Controller) Cancel(ctx context.Context, ref Reference, date time.Time) ([]Entry, error) {
	if date.IsZero() {
		date = c.now()
	}
	date = DayOf(date)
	log := c.log.With(zap.String("reference", ref.String()))

	var reversals []Entry
	err := c.store.WithTx(ctx, func(s Store) error {
		reversals = nil

		active, err := Collect(s.Query(ctx, Filter{Reference: ref, Reverted: OnlyActive}))
		if err != nil {
			return err
		}
		if len(active) == 0 {
			state, err := stateOf(ctx, s, ref)
			if err != nil {
				return err
			}
			if state == StateDraft {
				return &TransitionError{Reference: ref, From: StateDraft, To: StateCancelled}
			}
			return nil
		}

		pending := make([]Entry, 0, len(active))
		for _, orig := range active {
			if err := s.MarkReverted(ctx, orig.ID); err != nil {
				if errors.Is(err, ErrAlreadyReverted) {
					log.Info("entry already reverted, skipping", zap.String("entry", string(orig.ID)))
					continue
				}
				return err
			}
			pending = append(pending, reversalOf(orig, date))
		}
		if len(pending) == 0 {
			return nil
		}

		reversals, err = s.Append(ctx, pending)
		return err
	})
	if err != nil {
		log.Warn("cancel failed", zap.Error(err))
		return nil, err
	}
	if len(reversals) == 0 {
		log.Debug("cancel is a no-op, document already cancelled")
		return nil, nil
	}

	log.Info("document cancelled", zap.Int("reversals", len(reversals)))
	c.publish(ctx, EventCancelled, ref, reversals)
	return reversals, nil
}

// reversalOf swaps debit and credit. The reversal is born reverted so that
// reports filtering out reverted entries skip the pair as a whole.
func reversalOf(orig Entry, date time.Time) Entry {
	return Entry{
		Account:   orig.Account,
		Date:      date,
		Party:     orig.Party,
		Debit:     orig.Credit,
		Credit:    orig.Debit,
		Reference: orig.Reference,
		Against:   orig.Against,
		Remark:    "reversal of " + string(orig.ID),
		Reverted:  true,
		Reverts:   orig.ID,
	}
}

func (c *Controller) publish(ctx context.Context, typ EventType, ref Reference, entries []Entry) {
	if c.publisher == nil {
		return
	}
	evt := Event{Type: typ, Reference: ref, Entries: entries, OccurredAt: c.now().UTC()}
	if err := c.publisher.Publish(ctx, evt); err != nil {
		c.log.Warn("publish event failed",
			zap.String("event", string(typ)),
			zap.String("reference", ref.String()),
			zap.Error(err),
		)
	}
}
