// Package events fans audit events out to the store and, when configured,
// to a Kafka topic.
package events

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"

	"github.com/Vini334/ReclamaAI/internal/store"
)

// Event is one audit record emitted by the workflow.
type Event struct {
	ComplaintID string         `json:"complaint_id"`
	EventType   string         `json:"event_type"`
	Details     map[string]any `json:"details,omitempty"`
	OccurredAt  time.Time      `json:"occurred_at"`
}

// Sink receives audit events.
type Sink interface {
	Record(ctx context.Context, ev Event) error
}

// Fanout delivers each event to every sink. A failing sink does not stop
// delivery to the others; their errors are joined.
type Fanout []Sink

// Record implements Sink.
func (f Fanout) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return eris.Wrapf(errors.Join(errs...), "events: record %s", ev.EventType)
}

// StoreSink writes events to the audit log table.
type StoreSink struct {
	Store store.Store
}

// Record implements Sink.
func (s StoreSink) Record(ctx context.Context, ev Event) error {
	return s.Store.LogEvent(ctx, ev.ComplaintID, ev.EventType, ev.Details)
}
