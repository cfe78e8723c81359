package httpapi

import (
	"net/http"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/platform/httpx"
)

type snapshotResponse struct {
	Snapshot    domain.Snapshot `json:"snapshot"`
	ContentHash string          `json:"contentHash"`
}

// handleGetSnapshot previews the signable content. The snapshot and
// hash are rebuilt from stored rows on every call, so this is exactly
// what a signature placed now would cover.
func (s *Server) handleGetSnapshot(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	view, err := s.service.GetSnapshot(r.Context(), alignmentID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, snapshotResponse{
		Snapshot:    view.Snapshot,
		ContentHash: view.ContentHash,
	})
}

type signRequest struct {
	Round   int  `json:"round"`
	Consent bool `json:"consent"`
}

type signResponse struct {
	Signature signaturePayload `json:"signature"`
	Alignment alignmentPayload `json:"alignment"`
	Completed bool             `json:"completed"`
}

func (s *Server) handleSign(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	var body signRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	result, err := s.service.Sign(r.Context(), service.SignInput{
		AlignmentID: alignmentID,
		UserID:      grant.UserID,
		Round:       body.Round,
		Consent:     body.Consent,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, signResponse{
		Signature: signatureFromRecord(result.Signature),
		Alignment: alignmentFromRecord(result.Alignment),
		Completed: result.Completed,
	})
}

type listSignaturesResponse struct {
	Signatures []signaturePayload `json:"signatures"`
}

func (s *Server) handleListSignatures(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	round, err := queryInt(r, "round")
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	signatures, err := s.service.ListSignatures(r.Context(), alignmentID, grant.UserID, round)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listSignaturesResponse{
		Signatures: signaturesFromRecords(signatures),
	})
}
