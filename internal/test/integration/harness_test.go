//go:build integration

package integration

import (
	"bytes"
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/concordhq/concord/internal/alignment/access"
	"github.com/concordhq/concord/internal/alignment/api/httpapi"
	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/engine"
	"github.com/concordhq/concord/internal/alignment/integrity"
	"github.com/concordhq/concord/internal/alignment/notify"
	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/alignment/storage/sqlite"
)

// workflowHarness serves the full HTTP API over a real sqlite file with
// the rule-based engine, so every report in these tests comes from the
// actual comparison rules rather than a scripted double.
type workflowHarness struct {
	http  *httptest.Server
	store *sqlite.Store
}

func newWorkflowHarness(t *testing.T) *workflowHarness {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "concord.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	publicKey, privateKey, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate grant key: %v", err)
	}
	keyring, err := integrity.NewKeyring(map[string][]byte{
		"root": []byte("integration-signing-key-32bytes!"),
	}, "root")
	if err != nil {
		t.Fatalf("build keyring: %v", err)
	}

	hub := notify.NewHub()
	svc := service.New(service.Config{
		Store:       store,
		Engine:      engine.CuratedFallback{},
		Notifier:    notify.NewRecorder(store, hub),
		GrantSigner: access.SignerConfig{Key: privateKey, TTL: time.Hour},
		Keyring:     keyring,
	})
	if err := svc.SeedBuiltinTemplates(context.Background()); err != nil {
		t.Fatalf("seed templates: %v", err)
	}

	server, err := httpapi.New(httpapi.Config{
		Service:  svc,
		Hub:      hub,
		Verifier: access.VerifierConfig{Key: publicKey},
	})
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)

	return &workflowHarness{http: ts, store: store}
}

// call performs one request, enforces the expected status, and decodes
// the body into target when one is given.
func (h *workflowHarness) call(t *testing.T, method, path, grant string, body any, wantStatus int, target any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reader = bytes.NewReader(encoded)
	}
	req, err := http.NewRequest(method, h.http.URL+path, reader)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if grant != "" {
		req.Header.Set("Authorization", "Bearer "+grant)
	}
	res, err := h.http.Client().Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	payload, err := io.ReadAll(res.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	if res.StatusCode != wantStatus {
		t.Fatalf("%s %s status = %d, want %d (body %s)", method, path, res.StatusCode, wantStatus, payload)
	}
	if target != nil {
		if err := json.Unmarshal(payload, target); err != nil {
			t.Fatalf("decode %s %s response %s: %v", method, path, payload, err)
		}
	}
}

// Views mirror the wire payloads with just the fields the scenario checks.

type alignmentView struct {
	ID          string `json:"id"`
	TemplateID  string `json:"templateId"`
	Status      string `json:"status"`
	Round       int    `json:"round"`
	CompletedAt string `json:"completedAt"`
}

type analysisView struct {
	ID     string        `json:"id"`
	Round  int           `json:"round"`
	Engine string        `json:"engine"`
	Report domain.Report `json:"report"`
}

type responseView struct {
	Round       int                      `json:"round"`
	Answers     map[string]domain.Answer `json:"answers"`
	SubmittedAt string                   `json:"submittedAt"`
}

type signatureView struct {
	UserID      string `json:"userId"`
	Round       int    `json:"round"`
	ContentHash string `json:"contentHash"`
	KeyID       string `json:"keyId"`
	SignedAt    string `json:"signedAt"`
}

type eventView struct {
	Seq  int64  `json:"seq"`
	Kind string `json:"kind"`
}

// seat carries one participant's identity and access grant.
type seat struct {
	userID string
	grant  string
}

// openAlignment drives admission end to end: create, invite, redeem.
func (h *workflowHarness) openAlignment(t *testing.T) (string, seat, seat) {
	t.Helper()
	var created struct {
		Alignment alignmentView `json:"alignment"`
		Grant     string        `json:"grant"`
	}
	h.call(t, http.MethodPost, "/v1/alignments", "", map[string]any{
		"template_id":  "partnership-foundations",
		"display_name": "Maya",
		"user_id":      "user-maya",
	}, http.StatusCreated, &created)
	if created.Alignment.Status != string(domain.StatusDraft) {
		t.Fatalf("new alignment status = %q, want draft", created.Alignment.Status)
	}

	var minted struct {
		Token string `json:"token"`
	}
	h.call(t, http.MethodPost, "/v1/alignments/"+created.Alignment.ID+"/invites", created.Grant, nil, http.StatusCreated, &minted)

	var redeemed struct {
		Grant string `json:"grant"`
	}
	h.call(t, http.MethodPost, "/v1/invites/redeem", "", map[string]any{
		"token":        minted.Token,
		"display_name": "Theo",
		"user_id":      "user-theo",
	}, http.StatusOK, &redeemed)

	owner := seat{userID: "user-maya", grant: created.Grant}
	partner := seat{userID: "user-theo", grant: redeemed.Grant}
	return created.Alignment.ID, owner, partner
}

func (h *workflowHarness) getAlignment(t *testing.T, alignmentID string, s seat) alignmentView {
	t.Helper()
	var result struct {
		Alignment alignmentView `json:"alignment"`
	}
	h.call(t, http.MethodGet, "/v1/alignments/"+alignmentID, s.grant, nil, http.StatusOK, &result)
	return result.Alignment
}

// foundationAnswers covers every partnership-foundations question; the
// dealbreaker is the one answer the two seats give differently.
func foundationAnswers(dealbreaker string) map[string]domain.Answer {
	hours := 10.0
	comfort := 6
	return map[string]domain.Answer{
		"pf-goals":            {Kind: domain.KindLongText, Text: "Open a second location within two years"},
		"pf-values":           {Kind: domain.KindSingleChoice, Option: "transparency"},
		"pf-decision-style":   {Kind: domain.KindMultiChoice, Options: []string{"finances", "housing"}},
		"pf-weekly-hours":     {Kind: domain.KindNumber, Number: &hours},
		"pf-conflict-comfort": {Kind: domain.KindScale, Scale: &comfort},
		"pf-dealbreaker":      {Kind: domain.KindShortText, Text: dealbreaker},
	}
}

// draftAndSubmit saves a complete draft and submits it.
func (h *workflowHarness) draftAndSubmit(t *testing.T, alignmentID string, s seat, round int, answers map[string]domain.Answer) {
	t.Helper()
	h.call(t, http.MethodPut, "/v1/alignments/"+alignmentID+"/responses/draft", s.grant, map[string]any{
		"round":   round,
		"answers": answers,
	}, http.StatusOK, nil)
	h.call(t, http.MethodPost, "/v1/alignments/"+alignmentID+"/responses/submit", s.grant, map[string]any{
		"round": round,
	}, http.StatusOK, nil)
}

func (h *workflowHarness) getOwnResponse(t *testing.T, alignmentID string, s seat, round int) responseView {
	t.Helper()
	var result struct {
		Response responseView `json:"response"`
	}
	h.call(t, http.MethodGet, "/v1/alignments/"+alignmentID+"/responses/self?round="+strconv.Itoa(round), s.grant, nil, http.StatusOK, &result)
	return result.Response
}

// runAnalysis triggers the engine for a round and returns the stored
// analysis.
func (h *workflowHarness) runAnalysis(t *testing.T, alignmentID string, s seat, round int) analysisView {
	t.Helper()
	var result struct {
		Analysis analysisView `json:"analysis"`
	}
	h.call(t, http.MethodPost, "/v1/alignments/"+alignmentID+"/analysis/run", s.grant, map[string]any{
		"round": round,
	}, http.StatusOK, &result)
	return result.Analysis
}

// resolutionOutcome carries the resolution reply fields the scenario
// checks.
type resolutionOutcome struct {
	Alignment     alignmentView `json:"alignment"`
	RoundAdvanced bool          `json:"roundAdvanced"`
	Stalled       bool          `json:"stalled"`
	NextAnalysis  *analysisView `json:"nextAnalysis"`
}

// submitResolutions records one seat's choices for a round.
func (h *workflowHarness) submitResolutions(t *testing.T, alignmentID string, s seat, round int, items []domain.ResolutionItem) resolutionOutcome {
	t.Helper()
	var result resolutionOutcome
	h.call(t, http.MethodPost, "/v1/alignments/"+alignmentID+"/resolutions", s.grant, map[string]any{
		"round": round,
		"items": items,
	}, http.StatusOK, &result)
	return result
}

// fetchSnapshot previews the signing payload.
func (h *workflowHarness) fetchSnapshot(t *testing.T, alignmentID string, s seat) (domain.Snapshot, string) {
	t.Helper()
	var result struct {
		Snapshot    domain.Snapshot `json:"snapshot"`
		ContentHash string          `json:"contentHash"`
	}
	h.call(t, http.MethodGet, "/v1/alignments/"+alignmentID+"/snapshot", s.grant, nil, http.StatusOK, &result)
	return result.Snapshot, result.ContentHash
}

// signOutcome carries the signing reply fields the scenario checks.
type signOutcome struct {
	Signature signatureView `json:"signature"`
	Alignment alignmentView `json:"alignment"`
	Completed bool          `json:"completed"`
}

// sign records one seat's consented signature for a round.
func (h *workflowHarness) sign(t *testing.T, alignmentID string, s seat, round int) signOutcome {
	t.Helper()
	var result signOutcome
	h.call(t, http.MethodPost, "/v1/alignments/"+alignmentID+"/signatures", s.grant, map[string]any{
		"round":   round,
		"consent": true,
	}, http.StatusOK, &result)
	return result
}

// listEvents drains the poll feed from the beginning.
func (h *workflowHarness) listEvents(t *testing.T, alignmentID string, s seat) []eventView {
	t.Helper()
	var result struct {
		Events []eventView `json:"events"`
	}
	h.call(t, http.MethodGet, "/v1/alignments/"+alignmentID+"/events", s.grant, nil, http.StatusOK, &result)
	return result.Events
}
