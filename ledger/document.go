package ledger

import (
	"context"
	"time"
)

// Document is anything that can be posted: sales and purchase invoices,
// payments, journal entries. The controller is generic over this capability.
type Document interface {
	// Ref identifies the document. Its entries are stored under this reference.
	Ref() Reference

	// BuildPosting returns the lines this document posts. It must not
	// commit; the controller does that.
	BuildPosting(ctx context.Context, env Env) (*Posting, error)
}

// Env is what a document needs to build its posting: the chart of accounts
// and the posting policy.
type Env struct {
	Accounts AccountLookup
	Config   Config
}

// NewPosting starts a posting with this environment's accounts and config.
func (e Env) NewPosting(ref Reference, date time.Time) *Posting {
	return NewPosting(ref, date, e.Accounts, e.Config)
}

// State of a document in the posting lifecycle.
type State string

const (
	StateDraft     State = "draft"
	StateSubmitted State = "submitted"
	StateCancelled State = "cancelled"
)

// EventType names a lifecycle event.
type EventType string

const (
	EventSubmitted EventType = "document.submitted"
	EventCancelled EventType = "document.cancelled"
)

// Event is emitted after a lifecycle transition has been committed.
type Event struct {
	Type       EventType
	Reference  Reference
	Entries    []Entry
	OccurredAt time.Time
}

// EventPublisher receives lifecycle events. Implementations live in events/.
type EventPublisher interface {
	Publish(ctx context.Context, evt Event) error
}
