package notify

import (
	"context"
	"errors"

	"github.com/concordhq/concord/internal/alignment/storage"
)

// Recorder is the single observer for state changes: it appends the
// event row and fans it out to the hub, so callers never special-case
// transport. The store is authoritative; a nil hub only skips the push.
type Recorder struct {
	events storage.EventStore
	hub    *Hub
}

// NewRecorder wires the store and hub together.
func NewRecorder(events storage.EventStore, hub *Hub) *Recorder {
	return &Recorder{events: events, hub: hub}
}

// Record appends the event and publishes it. The returned record
// carries the assigned sequence number.
func (r *Recorder) Record(ctx context.Context, record storage.EventRecord) (storage.EventRecord, error) {
	if r == nil || r.events == nil {
		return storage.EventRecord{}, errors.New("event store is required")
	}
	appended, err := r.events.AppendEvent(ctx, record)
	if err != nil {
		return storage.EventRecord{}, err
	}
	if r.hub != nil {
		r.hub.Publish(PayloadFromRecord(appended))
	}
	return appended, nil
}
