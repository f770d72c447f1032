package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/warp/ledger-engine/events"
	"github.com/warp/ledger-engine/ledger"
	"github.com/warp/ledger-engine/money"
)

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func TestPublisher_WritesKeyedJSON(t *testing.T) {
	w := &fakeWriter{}
	p := &Publisher{writer: w}
	ref := ledger.Ref(ledger.DocSalesInvoice, "SI-1")

	err := p.Publish(context.Background(), ledger.Event{
		Type:       ledger.EventSubmitted,
		Reference:  ref,
		OccurredAt: time.Date(2025, 4, 1, 12, 0, 0, 0, time.UTC),
		Entries: []ledger.Entry{{
			ID: "e1", Seq: 1, Account: "Debtors", Date: ledger.Date(2025, 4, 1),
			Debit: money.MustParse("1120", 2), Credit: money.Zero(2), Reference: ref,
		}},
	})
	require.NoError(t, err)
	require.Len(t, w.msgs, 1)

	msg := w.msgs[0]
	assert.Equal(t, "SalesInvoice/SI-1", string(msg.Key))
	assert.Equal(t, "document.submitted", string(msg.Headers[0].Value))

	var got events.Message
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, "document.submitted", got.Type)
	assert.Equal(t, "SI-1", got.ReferenceName)
	require.Len(t, got.Entries, 1)
	assert.Equal(t, "2025-04-01", got.Entries[0].Date)
	assert.Equal(t, "1120.00", got.Entries[0].Debit.String())

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestPublisher_WrapsWriteError(t *testing.T) {
	boom := errors.New("broker down")
	p := &Publisher{writer: &fakeWriter{err: boom}}

	err := p.Publish(context.Background(), ledger.Event{Type: ledger.EventCancelled, Reference: ledger.Ref(ledger.DocPayment, "P-1")})
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "Payment/P-1")
}

func TestNewPublisher_DefaultTopic(t *testing.T) {
	p := NewPublisher([]string{"localhost:9092"}, "")
	w, ok := p.writer.(*kafka.Writer)
	require.True(t, ok)
	assert.Equal(t, DefaultTopic, w.Topic)
}
