package httpapi

import (
	"net/http"
	"testing"

	"github.com/concordhq/concord/internal/alignment/domain"
)

func TestInviteLifecycle(t *testing.T) {
	ts := newTestServer(t)

	status, body := ts.do(t, http.MethodPost, "/v1/alignments", "", map[string]any{
		"template_id":  "partnership-foundations",
		"display_name": "Ana",
		"user_id":      "user-a",
	})
	if status != http.StatusCreated {
		t.Fatalf("create alignment status = %d, body %s", status, body)
	}
	var created createAlignmentResponse
	decodeInto(t, body, &created)

	status, body = ts.do(t, http.MethodPost, "/v1/alignments/"+created.Alignment.ID+"/invites", created.Grant, nil)
	if status != http.StatusCreated {
		t.Fatalf("create invite status = %d, body %s", status, body)
	}
	var minted createInviteResponse
	decodeInto(t, body, &minted)
	if minted.Token == "" {
		t.Fatal("expected a raw invite token")
	}
	if minted.Invite.MaxUses < 1 {
		t.Errorf("max uses = %d, want at least 1", minted.Invite.MaxUses)
	}
	if minted.Invite.ExpiresAt == "" {
		t.Error("expected an expiry timestamp")
	}

	status, body = ts.do(t, http.MethodPost, "/v1/invites/redeem", "", map[string]any{
		"token":        minted.Token,
		"display_name": "Bruno",
		"user_id":      "user-b",
	})
	if status != http.StatusOK {
		t.Fatalf("redeem status = %d, body %s", status, body)
	}
	var redeemed redeemInviteResponse
	decodeInto(t, body, &redeemed)
	if redeemed.Participant.Role != string(domain.RolePartner) {
		t.Errorf("role = %q, want %q", redeemed.Participant.Role, domain.RolePartner)
	}
	if redeemed.Alignment.Status != string(domain.StatusActive) {
		t.Errorf("status = %q, want %q", redeemed.Alignment.Status, domain.StatusActive)
	}
	if redeemed.AlreadyEnrolled {
		t.Error("first redemption must not report enrollment")
	}
	if redeemed.Grant == "" {
		t.Error("expected a partner grant")
	}

	// The same user re-presenting the token re-enters their seat.
	status, body = ts.do(t, http.MethodPost, "/v1/invites/redeem", "", map[string]any{
		"token":        minted.Token,
		"display_name": "Bruno",
		"user_id":      "user-b",
	})
	if status != http.StatusOK {
		t.Fatalf("re-redeem status = %d, body %s", status, body)
	}
	var again redeemInviteResponse
	decodeInto(t, body, &again)
	if !again.AlreadyEnrolled {
		t.Error("second redemption must report enrollment")
	}

	// A third user finds the invite exhausted or the seats full.
	status, body = ts.do(t, http.MethodPost, "/v1/invites/redeem", "", map[string]any{
		"token":        minted.Token,
		"display_name": "Cora",
		"user_id":      "user-c",
	})
	if status != http.StatusConflict {
		t.Fatalf("third redemption status = %d, want %d, body %s", status, http.StatusConflict, body)
	}
}

func TestRedeemValidation(t *testing.T) {
	ts := newTestServer(t)

	tests := []struct {
		name       string
		body       map[string]any
		wantStatus int
	}{
		{
			name:       "missing token",
			body:       map[string]any{"display_name": "Bruno"},
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "unknown token",
			body:       map[string]any{"token": "cinv_does_not_exist", "display_name": "Bruno"},
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "missing display name",
			body:       map[string]any{"token": "cinv_whatever"},
			wantStatus: http.StatusBadRequest,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, body := ts.do(t, http.MethodPost, "/v1/invites/redeem", "", tc.body)
			if status != tc.wantStatus {
				t.Fatalf("status = %d, want %d, body %s", status, tc.wantStatus, body)
			}
		})
	}
}

func TestInviteManagementIsOwnerOnly(t *testing.T) {
	ts := newTestServer(t)
	s := openAlignmentHTTP(t, ts)

	status, body := ts.do(t, http.MethodPost, "/v1/alignments/"+s.alignmentID+"/invites", s.partnerGrant, nil)
	if status != http.StatusForbidden {
		t.Fatalf("partner create invite status = %d, want %d, body %s", status, http.StatusForbidden, body)
	}
	status, body = ts.do(t, http.MethodGet, "/v1/alignments/"+s.alignmentID+"/invites", s.partnerGrant, nil)
	if status != http.StatusForbidden {
		t.Fatalf("partner list invites status = %d, want %d, body %s", status, http.StatusForbidden, body)
	}
}

func TestListAndInvalidateInvite(t *testing.T) {
	ts := newTestServer(t)
	s := openAlignmentHTTP(t, ts)

	status, body := ts.do(t, http.MethodGet, "/v1/alignments/"+s.alignmentID+"/invites", s.ownerGrant, nil)
	if status != http.StatusOK {
		t.Fatalf("list invites status = %d, body %s", status, body)
	}
	var listed listInvitesResponse
	decodeInto(t, body, &listed)
	if len(listed.Invites) != 1 {
		t.Fatalf("invites = %d, want 1", len(listed.Invites))
	}
	inviteID := listed.Invites[0].ID
	if listed.Invites[0].UseCount != 1 {
		t.Errorf("use count = %d, want 1", listed.Invites[0].UseCount)
	}

	status, body = ts.do(t, http.MethodPost,
		"/v1/alignments/"+s.alignmentID+"/invites/"+inviteID+"/invalidate", s.ownerGrant, nil)
	if status != http.StatusOK {
		t.Fatalf("invalidate status = %d, body %s", status, body)
	}
	var invalidated invalidateInviteResponse
	decodeInto(t, body, &invalidated)
	if invalidated.Invite.InvalidatedAt == "" {
		t.Error("expected an invalidation timestamp")
	}

	status, body = ts.do(t, http.MethodPost,
		"/v1/alignments/"+s.alignmentID+"/invites/unknown-invite/invalidate", s.ownerGrant, nil)
	if status != http.StatusNotFound {
		t.Fatalf("unknown invite status = %d, want %d, body %s", status, http.StatusNotFound, body)
	}
}
