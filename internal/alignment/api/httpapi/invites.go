package httpapi

import (
	"net/http"
	"strings"

	"github.com/concordhq/concord/internal/alignment/service"
	"github.com/concordhq/concord/internal/platform/httpx"
)

type createInviteResponse struct {
	Invite invitePayload `json:"invite"`
	Token  string        `json:"token"`
}

// handleCreateInvite mints an admission token. The raw token appears
// only in this response; the server keeps its hash.
func (s *Server) handleCreateInvite(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	result, err := s.service.CreateInvite(r.Context(), alignmentID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusCreated, createInviteResponse{
		Invite: inviteFromRecord(result.Invite),
		Token:  result.Token,
	})
}

type listInvitesResponse struct {
	Invites []invitePayload `json:"invites"`
}

func (s *Server) handleListInvites(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	invites, err := s.service.ListInvites(r.Context(), alignmentID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	payloads := make([]invitePayload, 0, len(invites))
	for _, record := range invites {
		payloads = append(payloads, inviteFromRecord(record))
	}
	_ = httpx.WriteJSON(w, http.StatusOK, listInvitesResponse{Invites: payloads})
}

type redeemInviteRequest struct {
	Token       string `json:"token"`
	DisplayName string `json:"display_name"`
	UserID      string `json:"user_id"`
}

type redeemInviteResponse struct {
	Alignment       alignmentPayload   `json:"alignment"`
	Participant     participantPayload `json:"participant"`
	Grant           string             `json:"grant"`
	AlreadyEnrolled bool               `json:"alreadyEnrolled"`
}

// handleRedeemInvite admits a caller through an invite token. Public:
// the redeemer has no grant yet, the token is the credential.
func (s *Server) handleRedeemInvite(w http.ResponseWriter, r *http.Request) {
	var body redeemInviteRequest
	if err := httpx.DecodeJSON(w, r, &body); err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	result, err := s.service.RedeemInvite(r.Context(), service.RedeemInviteInput{
		Token:       body.Token,
		DisplayName: body.DisplayName,
		UserID:      body.UserID,
	})
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, redeemInviteResponse{
		Alignment:       alignmentFromRecord(result.Alignment),
		Participant:     participantFromRecord(result.Participant),
		Grant:           result.Grant,
		AlreadyEnrolled: result.AlreadyEnrolled,
	})
}

type invalidateInviteResponse struct {
	Invite invitePayload `json:"invite"`
}

func (s *Server) handleInvalidateInvite(w http.ResponseWriter, r *http.Request) {
	alignmentID, grant, err := s.alignmentScope(r)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	inviteID := strings.TrimSpace(r.PathValue("inviteID"))
	record, err := s.service.InvalidateInvite(r.Context(), alignmentID, inviteID, grant.UserID)
	if err != nil {
		httpx.WriteStatusError(w, r, err)
		return
	}
	_ = httpx.WriteJSON(w, http.StatusOK, invalidateInviteResponse{Invite: inviteFromRecord(record)})
}
