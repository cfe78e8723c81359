// Package httpapi serves the alignment workflow as a JSON API. Routes
// decode requests, resolve the caller's access grant, and delegate to
// the service; errors render as google.rpc.Status payloads.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/notify"
	"github.com/concordhq/concord/internal/alignment/service"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/httpx"
)

// serviceName labels tracer spans emitted by the API.
const serviceName = "concord-api"

// Config wires the API server's collaborators.
type Config struct {
	Service *service.Service
	// Hub feeds the websocket push endpoint.
	Hub *notify.Hub
	// Verifier checks bearer access grants.
	Verifier access.VerifierConfig
}

// Server holds the handler state for all alignment routes.
type Server struct {
	service  *service.Service
	hub      *notify.Hub
	verifier access.VerifierConfig
}

// New validates the wiring and returns a server.
func New(cfg Config) (*Server, error) {
	if cfg.Service == nil {
		return nil, errors.New("alignment service is required")
	}
	if cfg.Hub == nil {
		return nil, errors.New("notify hub is required")
	}
	if len(cfg.Verifier.Key) == 0 {
		return nil, errors.New("grant verifier key is required")
	}
	return &Server{service: cfg.Service, hub: cfg.Hub, verifier: cfg.Verifier}, nil
}

// Handler builds the route table. Authenticated routes resolve the
// bearer grant before the handler runs; the websocket route manages
// its own grant check and stays outside the tracing middleware
// because the upgrade hijacks the connection.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	public := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.RequestID(),
			httpx.Trace(serviceName),
			httpx.RecoverPanic(),
			httpx.Locale(),
		)
	}
	authed := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.RequestID(),
			httpx.Trace(serviceName),
			httpx.RecoverPanic(),
			httpx.Locale(),
			s.authenticate,
		)
	}
	socket := func(handler http.HandlerFunc) http.Handler {
		return httpx.Chain(handler,
			httpx.RequestID(),
			httpx.RecoverPanic(),
			httpx.Locale(),
		)
	}

	mux.Handle("GET /healthz", public(s.handleHealthz))

	mux.Handle("GET /v1/templates", public(s.handleListTemplates))
	mux.Handle("POST /v1/alignments", public(s.handleCreateAlignment))
	mux.Handle("POST /v1/invites/redeem", public(s.handleRedeemInvite))

	mux.Handle("GET /v1/alignments", authed(s.handleListAlignments))
	mux.Handle("GET /v1/alignments/{id}", authed(s.handleGetAlignment))
	mux.Handle("GET /v1/alignments/{id}/template", authed(s.handleGetTemplate))

	mux.Handle("POST /v1/alignments/{id}/invites", authed(s.handleCreateInvite))
	mux.Handle("GET /v1/alignments/{id}/invites", authed(s.handleListInvites))
	mux.Handle("POST /v1/alignments/{id}/invites/{inviteID}/invalidate", authed(s.handleInvalidateInvite))

	mux.Handle("PUT /v1/alignments/{id}/responses/draft", authed(s.handleSaveDraft))
	mux.Handle("POST /v1/alignments/{id}/responses/submit", authed(s.handleSubmitResponse))
	mux.Handle("GET /v1/alignments/{id}/responses/self", authed(s.handleGetOwnResponse))

	mux.Handle("POST /v1/alignments/{id}/analysis/run", authed(s.handleRunAnalysis))
	mux.Handle("GET /v1/alignments/{id}/analysis", authed(s.handleGetAnalysis))

	mux.Handle("POST /v1/alignments/{id}/resolutions", authed(s.handleSubmitResolutions))
	mux.Handle("GET /v1/alignments/{id}/resolutions/self", authed(s.handleGetOwnResolutionSet))

	mux.Handle("GET /v1/alignments/{id}/snapshot", authed(s.handleGetSnapshot))
	mux.Handle("POST /v1/alignments/{id}/signatures", authed(s.handleSign))
	mux.Handle("GET /v1/alignments/{id}/signatures", authed(s.handleListSignatures))

	mux.Handle("GET /v1/alignments/{id}/events", authed(s.handleListEvents))
	mux.Handle("GET /v1/alignments/{id}/events/ws", socket(s.handleEventsSocket))

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// queryInt parses an optional integer query parameter. Absent means 0.
func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeRequestInvalid,
			"query parameter must be an integer", map[string]string{"Param": name})
	}
	return value, nil
}

// queryInt64 parses an optional 64-bit integer query parameter.
func queryInt64(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	value, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return 0, apperrors.WithMetadata(apperrors.CodeRequestInvalid,
			"query parameter must be an integer", map[string]string{"Param": name})
	}
	return value, nil
}
