package notify

import (
	"strings"
	"sync"
)

const (
	// maxRoomEvents bounds the per-room catch-up buffer.
	maxRoomEvents = 256
	// maxSeenWindow bounds the per-room duplicate-publish window.
	maxSeenWindow = 1024
)

// Hub keeps one room per alignment and fans published events out to
// that room's subscribers.
type Hub struct {
	mu    sync.Mutex
	rooms map[string]*room
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{rooms: make(map[string]*room)}
}

func (h *Hub) room(alignmentID string) *room {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[alignmentID]
	if ok {
		return r
	}

	r = newRoom(alignmentID)
	h.rooms[alignmentID] = r
	return r
}

// Subscribe adds the peer to the alignment's room and returns the
// latest sequence number the room has seen.
func (h *Hub) Subscribe(alignmentID string, peer *Peer) int64 {
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" || peer == nil {
		return 0
	}
	return h.room(alignmentID).join(peer)
}

// Unsubscribe removes the peer from the alignment's room.
func (h *Hub) Unsubscribe(alignmentID string, peer *Peer) {
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" || peer == nil {
		return
	}
	h.room(alignmentID).leave(peer)
}

// Publish fans the event out to the alignment's subscribers. A seq
// the room has already delivered is dropped, so the store append path
// and the sync worker can both publish the same row safely.
func (h *Hub) Publish(payload EventPayload) {
	if strings.TrimSpace(payload.AlignmentID) == "" || payload.Seq <= 0 {
		return
	}
	subscribers := h.room(payload.AlignmentID).publish(payload)
	frame := EventFrame{Type: FrameTypeEvent, Event: payload}
	for _, subscriber := range subscribers {
		_ = subscriber.Send(frame)
	}
}

// EventsAfter returns buffered events with seq greater than afterSeq,
// oldest first. The buffer is bounded; callers needing full history
// read the store.
func (h *Hub) EventsAfter(alignmentID string, afterSeq int64) []EventPayload {
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return nil
	}
	return h.room(alignmentID).eventsAfter(afterSeq)
}

type room struct {
	mu          sync.Mutex
	alignmentID string
	latestSeq   int64
	recent      []EventPayload
	seenBy      map[int64]struct{}
	seenOrder   []int64
	subscribers map[*Peer]struct{}
}

func newRoom(alignmentID string) *room {
	return &room{
		alignmentID: alignmentID,
		seenBy:      make(map[int64]struct{}),
		subscribers: make(map[*Peer]struct{}),
	}
}

func (r *room) join(peer *Peer) int64 {
	r.mu.Lock()
	r.subscribers[peer] = struct{}{}
	latest := r.latestSeq
	r.mu.Unlock()
	return latest
}

func (r *room) leave(peer *Peer) bool {
	r.mu.Lock()
	delete(r.subscribers, peer)
	empty := len(r.subscribers) == 0
	r.mu.Unlock()
	return empty
}

// publish records the event and returns the subscribers to notify.
// Duplicates inside the seen window return no subscribers.
func (r *room) publish(payload EventPayload) []*Peer {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.seenBy[payload.Seq]; seen {
		return nil
	}
	r.seenBy[payload.Seq] = struct{}{}
	r.seenOrder = append(r.seenOrder, payload.Seq)
	if len(r.seenOrder) > maxSeenWindow {
		evict := r.seenOrder[0]
		r.seenOrder = r.seenOrder[1:]
		delete(r.seenBy, evict)
	}

	if payload.Seq > r.latestSeq {
		r.latestSeq = payload.Seq
	}
	r.recent = append(r.recent, payload)
	if len(r.recent) > maxRoomEvents {
		r.recent = r.recent[len(r.recent)-maxRoomEvents:]
	}

	subscribers := make([]*Peer, 0, len(r.subscribers))
	for subscriber := range r.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	return subscribers
}

func (r *room) eventsAfter(afterSeq int64) []EventPayload {
	r.mu.Lock()
	defer r.mu.Unlock()

	events := make([]EventPayload, 0, len(r.recent))
	for _, payload := range r.recent {
		if payload.Seq > afterSeq {
			events = append(events, payload)
		}
	}
	return events
}
