package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"golang.org/x/net/websocket"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/notify"
	"github.com/concordhq/concord/internal/alignment/storage"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/httpx"
)

// socketBacklogLimit caps the catch-up read on connect; older history
// is a poll concern.
const socketBacklogLimit = 200

type listEventsResponse struct {
	Events []notify.EventPayload `json:"events"`
}

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	afterSeq, err := queryInt64(r, "after_seq")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	records, err := s.service.ListAlignmentEvents(r.Context(), alignmentID, grant.UserID, afterSeq, limit)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listEventsResponse{Events: eventsFromRecords(records)})
}

// handleEventsSocket upgrades to a websocket pushing event frames.
// Browser websocket clients cannot set headers, so the grant may arrive
// as an access_token query parameter instead of a bearer header. The
// route stays off the tracing middleware: its status recorder does not
// forward http.Hijacker, which the upgrade needs.
func (s *Server) handleEventsSocket(w http.ResponseWriter, r *http.Request) {
	alignmentID := strings.TrimSpace(r.PathValue("id"))
	if alignmentID == "" {
		httpx.WriteStatusError(w, r, apperrors.New(apperrors.CodeRequestInvalid, "alignment id is required"))
		return
	}
	grant, err := access.VerifyGrant(socketGrantToken(r), s.verifier)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	if err := grant.ForAlignment(alignmentID); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	afterSeq, err := queryInt64(r, "after_seq")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	// Membership gate and store backlog in one read.
	backlog, err := s.service.ListAlignmentEvents(r.Context(), alignmentID, grant.UserID, afterSeq, socketBacklogLimit)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	websocket.Handler(func(conn *websocket.Conn) {
		s.serveEventSocket(conn, alignmentID, afterSeq, backlog)
	}).ServeHTTP(w, r)
}

// serveEventSocket pushes event frames until the client goes away. The
// store backlog replays before the subscription starts, then the room
// buffer covers the fetch-to-subscribe gap; the peer's sequence filter
// drops the overlap between the three sources.
func (s *Server) serveEventSocket(conn *websocket.Conn, alignmentID string, afterSeq int64, backlog []storage.EventRecord) {
	defer func() {
		_ = conn.Close()
	}()

	peer := notify.NewPeer(json.NewEncoder(conn), afterSeq)
	for _, record := range backlog {
		frame := notify.EventFrame{Type: notify.FrameTypeEvent, Event: notify.PayloadFromRecord(record)}
		if err := peer.Send(frame); err != nil {
			return
		}
	}

	s.hub.Subscribe(alignmentID, peer)
	defer s.hub.Unsubscribe(alignmentID, peer)
	for _, payload := range s.hub.EventsAfter(alignmentID, afterSeq) {
		if err := peer.Send(notify.EventFrame{Type: notify.FrameTypeEvent, Event: payload}); err != nil {
			return
		}
	}

	// Clients send nothing; the read loop exists to notice the close.
	decoder := json.NewDecoder(conn)
	for {
		var frame json.RawMessage
		if err := decoder.Decode(&frame); err != nil {
			return
		}
	}
}
