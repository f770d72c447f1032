// Package events carries document lifecycle events out of the ledger.
//
// The controller hands every committed transition to a ledger.EventPublisher.
// This package provides the JSON wire form plus in-process publishers; the
// Kafka publisher lives in events/kafka.
package events

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
	"go.uber.org/zap"
)

// Message is the JSON form of a ledger.Event.
type Message struct {
	Type          string         `json:"type"`
	ReferenceType string         `json:"reference_type"`
	ReferenceName string         `json:"reference_name"`
	OccurredAt    time.Time      `json:"occurred_at"`
	Entries       []EntryMessage `json:"entries"`
}

// EntryMessage is the JSON form of a ledger.Entry.
type EntryMessage struct {
	ID       string      `json:"id"`
	Seq      int64       `json:"seq"`
	Account  string      `json:"account"`
	Date     string      `json:"posting_date"`
	Party    string      `json:"party,omitempty"`
	Debit    money.Money `json:"debit"`
	Credit   money.Money `json:"credit"`
	Against  string      `json:"against,omitempty"`
	Reverted bool        `json:"reverted"`
	Reverts  string      `json:"reverts,omitempty"`
}

// NewMessage converts evt to its wire form.
func NewMessage(evt ledger.Event) Message {
	m := Message{
		Type:          string(evt.Type),
		ReferenceType: string(evt.Reference.Type),
		ReferenceName: evt.Reference.Name,
		OccurredAt:    evt.OccurredAt,
		Entries:       make([]EntryMessage, len(evt.Entries)),
	}
	for i, e := range evt.Entries {
		em := EntryMessage{
			ID:       string(e.ID),
			Seq:      e.Seq,
			Account:  e.Account,
			Date:     e.Date.Format("2006-01-02"),
			Party:    e.Party,
			Debit:    e.Debit,
			Credit:   e.Credit,
			Reverted: e.Reverted,
			Reverts:  string(e.Reverts),
		}
		if !e.Against.IsZero() {
			em.Against = e.Against.String()
		}
		m.Entries[i] = em
	}
	return m
}

// =============================================================================
// IN-PROCESS PUBLISHERS
// =============================================================================

// Recorder keeps every event in memory. Used by tests and the dev server.
type Recorder struct {
	mu     sync.Mutex
	events []ledger.Event
}

func (r *Recorder) Publish(_ context.Context, evt ledger.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, evt)
	return nil
}

// Events returns a copy of everything recorded so far.
func (r *Recorder) Events() []ledger.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]ledger.Event(nil), r.events...)
}

// Logger writes one structured log line per event.
type Logger struct {
	Log *zap.Logger
}

func (l Logger) Publish(_ context.Context, evt ledger.Event) error {
	l.Log.Info("ledger event",
		zap.String("event", string(evt.Type)),
		zap.String("reference", evt.Reference.String()),
		zap.Int("entries", len(evt.Entries)),
		zap.Time("occurred_at", evt.OccurredAt),
	)
	return nil
}

// Fanout publishes to every target in order and joins their errors.
// A failing target does not stop the others.
type Fanout []ledger.EventPublisher

func (f Fanout) Publish(ctx context.Context, evt ledger.Event) error {
	var errs []error
	for _, p := range f {
		if err := p.Publish(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
