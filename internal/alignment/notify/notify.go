// Package notify fans alignment events out to connected clients.
// Deliveries are advisory triggers to re-fetch authoritative state;
// consumers must tolerate duplicates and missed frames.
package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/concordhq/concord/internal/alignment/storage"
)

// FrameTypeEvent labels event frames on the wire.
const FrameTypeEvent = "alignment.event"

// EventFrame is one pushed wire message.
type EventFrame struct {
	Type  string       `json:"type"`
	Event EventPayload `json:"event"`
}

// EventPayload is the wire form of one event row.
type EventPayload struct {
	Seq         int64  `json:"seq"`
	AlignmentID string `json:"alignmentId"`
	Kind        string `json:"kind"`
	Round       int    `json:"round"`
	Status      string `json:"status"`
	OccurredAt  string `json:"occurredAt"`
}

// PayloadFromRecord converts a store row to its wire form.
func PayloadFromRecord(record storage.EventRecord) EventPayload {
	return EventPayload{
		Seq:         record.Seq,
		AlignmentID: record.AlignmentID,
		Kind:        string(record.Kind),
		Round:       record.Round,
		Status:      string(record.Status),
		OccurredAt:  record.CreatedAt.UTC().Format(time.RFC3339),
	}
}

// Peer serializes frame writes to one connected client and drops
// frames the client has already seen.
type Peer struct {
	mu      sync.Mutex
	encoder *json.Encoder
	lastSeq int64
}

// NewPeer wraps an encoder. afterSeq suppresses frames the client
// already holds; zero means deliver everything.
func NewPeer(encoder *json.Encoder, afterSeq int64) *Peer {
	return &Peer{encoder: encoder, lastSeq: afterSeq}
}

// Send writes the frame unless the peer has already passed its
// sequence number.
func (p *Peer) Send(frame EventFrame) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if frame.Event.Seq <= p.lastSeq {
		return nil
	}
	if err := p.encoder.Encode(frame); err != nil {
		return err
	}
	p.lastSeq = frame.Event.Seq
	return nil
}
