package access

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/concordhq/concord/internal/alignment/domain"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
)

func testKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}
	return pub, priv
}

func fixedClock() time.Time {
	return time.Date(2025, 6, 10, 9, 30, 0, 0, time.UTC)
}

func stubID(value string) func() (string, error) {
	return func() (string, error) { return value, nil }
}

func TestMintAndVerifyGrant(t *testing.T) {
	pub, priv := testKeys(t)
	signer := SignerConfig{Key: priv, TTL: 720 * time.Hour, Now: fixedClock}
	verifier := VerifierConfig{Key: pub, Now: fixedClock}

	token, err := MintGrant(signer, "user-1", "al-1", domain.RoleOwner, stubID("jti-1"))
	if err != nil {
		t.Fatalf("mint grant: %v", err)
	}

	grant, err := VerifyGrant(token, verifier)
	if err != nil {
		t.Fatalf("verify grant: %v", err)
	}
	if grant.UserID != "user-1" || grant.AlignmentID != "al-1" || grant.Role != domain.RoleOwner {
		t.Errorf("unexpected identity claims: %+v", grant)
	}
	if grant.JWTID != "jti-1" {
		t.Errorf("expected jti-1, got %s", grant.JWTID)
	}
	wantExpiry := fixedClock().Add(720 * time.Hour)
	if !grant.ExpiresAt.Equal(time.Unix(wantExpiry.Unix(), 0).UTC()) {
		t.Errorf("unexpected expiry: %v", grant.ExpiresAt)
	}
}

func TestMintGrantValidation(t *testing.T) {
	_, priv := testKeys(t)
	signer := SignerConfig{Key: priv, TTL: time.Hour, Now: fixedClock}

	if _, err := MintGrant(signer, "", "al-1", domain.RoleOwner, stubID("jti-1")); err == nil {
		t.Error("expected error for empty user id")
	}
	if _, err := MintGrant(signer, "user-1", "", domain.RoleOwner, stubID("jti-1")); err == nil {
		t.Error("expected error for empty alignment id")
	}
	if _, err := MintGrant(signer, "user-1", "al-1", domain.Role("king"), stubID("jti-1")); err == nil {
		t.Error("expected error for unknown role")
	}
	if _, err := MintGrant(SignerConfig{TTL: time.Hour}, "user-1", "al-1", domain.RoleOwner, stubID("jti-1")); err == nil {
		t.Error("expected error for unconfigured signer")
	}
}

func TestVerifyGrantExpired(t *testing.T) {
	pub, priv := testKeys(t)
	now := fixedClock()
	token := signGrant(t, priv, map[string]any{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          "user-1",
		"jti":          "jti-1",
		"exp":          now.Add(-2 * time.Minute).Unix(),
		"alignment_id": "al-1",
		"role":         "owner",
	})

	_, err := VerifyGrant(token, VerifierConfig{Key: pub, Now: func() time.Time { return now }})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantExpired {
		t.Fatalf("expected expired grant error, got %v", err)
	}
}

func TestVerifyGrantLeeway(t *testing.T) {
	pub, priv := testKeys(t)
	now := fixedClock()
	// Expired thirty seconds ago, inside the sixty-second skew window.
	token := signGrant(t, priv, map[string]any{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          "user-1",
		"jti":          "jti-1",
		"exp":          now.Add(-30 * time.Second).Unix(),
		"alignment_id": "al-1",
		"role":         "owner",
	})

	if _, err := VerifyGrant(token, VerifierConfig{Key: pub, Now: func() time.Time { return now }}); err != nil {
		t.Fatalf("expected leeway to absorb small skew, got %v", err)
	}
}

func TestVerifyGrantNotYetActive(t *testing.T) {
	pub, priv := testKeys(t)
	now := fixedClock()
	token := signGrant(t, priv, map[string]any{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          "user-1",
		"jti":          "jti-1",
		"nbf":          now.Add(5 * time.Minute).Unix(),
		"exp":          now.Add(time.Hour).Unix(),
		"alignment_id": "al-1",
		"role":         "owner",
	})

	_, err := VerifyGrant(token, VerifierConfig{Key: pub, Now: func() time.Time { return now }})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantInvalid {
		t.Fatalf("expected invalid grant error, got %v", err)
	}
}

func TestVerifyGrantClaimMismatches(t *testing.T) {
	pub, priv := testKeys(t)
	now := fixedClock()
	base := map[string]any{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          "user-1",
		"jti":          "jti-1",
		"exp":          now.Add(time.Hour).Unix(),
		"alignment_id": "al-1",
		"role":         "owner",
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
	}{
		{"wrong issuer", func(claims map[string]any) { claims["iss"] = "someone-else" }},
		{"wrong audience", func(claims map[string]any) { claims["aud"] = "other-api" }},
		{"missing jti", func(claims map[string]any) { delete(claims, "jti") }},
		{"missing exp", func(claims map[string]any) { delete(claims, "exp") }},
		{"missing subject", func(claims map[string]any) { delete(claims, "sub") }},
		{"missing alignment", func(claims map[string]any) { delete(claims, "alignment_id") }},
		{"unknown role", func(claims map[string]any) { claims["role"] = "king" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			claims := make(map[string]any, len(base))
			for k, v := range base {
				claims[k] = v
			}
			tt.mutate(claims)
			token := signGrant(t, priv, claims)

			_, err := VerifyGrant(token, VerifierConfig{Key: pub, Now: func() time.Time { return now }})
			var appErr *apperrors.Error
			if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantInvalid {
				t.Fatalf("expected invalid grant error, got %v", err)
			}
		})
	}
}

func TestVerifyGrantWrongKey(t *testing.T) {
	_, priv := testKeys(t)
	otherPub, _ := testKeys(t)
	signer := SignerConfig{Key: priv, TTL: time.Hour, Now: fixedClock}

	token, err := MintGrant(signer, "user-1", "al-1", domain.RoleOwner, stubID("jti-1"))
	if err != nil {
		t.Fatalf("mint grant: %v", err)
	}

	_, err = VerifyGrant(token, VerifierConfig{Key: otherPub, Now: fixedClock})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantInvalid {
		t.Fatalf("expected invalid grant error, got %v", err)
	}
}

func TestVerifyGrantRejectsNonEdDSA(t *testing.T) {
	pub, _ := testKeys(t)
	now := fixedClock()

	hmacToken := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          "user-1",
		"jti":          "jti-1",
		"exp":          now.Add(time.Hour).Unix(),
		"alignment_id": "al-1",
		"role":         "owner",
	})
	signed, err := hmacToken.SignedString([]byte("shared-secret"))
	if err != nil {
		t.Fatalf("sign hmac token: %v", err)
	}

	_, err = VerifyGrant(signed, VerifierConfig{Key: pub, Now: func() time.Time { return now }})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantInvalid {
		t.Fatalf("expected invalid grant error for HS256 token, got %v", err)
	}
}

func TestVerifyGrantEmptyToken(t *testing.T) {
	pub, _ := testKeys(t)

	_, err := VerifyGrant("  ", VerifierConfig{Key: pub, Now: fixedClock})
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodeGrantInvalid {
		t.Fatalf("expected invalid grant error, got %v", err)
	}
}

func TestGrantForAlignment(t *testing.T) {
	grant := Grant{UserID: "user-1", AlignmentID: "al-1"}
	if err := grant.ForAlignment("al-1"); err != nil {
		t.Fatalf("expected matching alignment to pass: %v", err)
	}

	err := grant.ForAlignment("al-2")
	var appErr *apperrors.Error
	if !errors.As(err, &appErr) || appErr.Code != apperrors.CodePermissionDenied {
		t.Fatalf("expected permission denied, got %v", err)
	}
}

func TestLoadSignerConfigFromEnv(t *testing.T) {
	t.Setenv(EnvGrantPrivateKey, "")
	if _, err := LoadSignerConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when private key is missing")
	}

	_, priv := testKeys(t)
	t.Setenv(EnvGrantPrivateKey, base64.StdEncoding.EncodeToString(priv))
	t.Setenv(EnvGrantTTL, "10m")

	cfg, err := LoadSignerConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load signer config: %v", err)
	}
	if len(cfg.Key) != ed25519.PrivateKeySize {
		t.Errorf("expected private key size %d, got %d", ed25519.PrivateKeySize, len(cfg.Key))
	}
	if cfg.TTL != 10*time.Minute {
		t.Errorf("expected ttl 10m, got %v", cfg.TTL)
	}
}

func TestLoadVerifierConfigFromEnv(t *testing.T) {
	t.Setenv(EnvGrantPublicKey, "")
	if _, err := LoadVerifierConfigFromEnv(nil); err == nil {
		t.Fatal("expected error when public key is missing")
	}

	pub, _ := testKeys(t)
	t.Setenv(EnvGrantPublicKey, base64.RawStdEncoding.EncodeToString(pub))

	cfg, err := LoadVerifierConfigFromEnv(nil)
	if err != nil {
		t.Fatalf("load verifier config: %v", err)
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		t.Errorf("expected public key size %d, got %d", ed25519.PublicKeySize, len(cfg.Key))
	}
}

func signGrant(t *testing.T, privateKey ed25519.PrivateKey, payload map[string]any) string {
	t.Helper()

	headerJSON, err := json.Marshal(map[string]string{"alg": "EdDSA", "typ": "JWT"})
	if err != nil {
		t.Fatalf("marshal header: %v", err)
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signingInput := encodedHeader + "." + encodedPayload
	signature := ed25519.Sign(privateKey, []byte(signingInput))
	encodedSig := base64.RawURLEncoding.EncodeToString(signature)
	return signingInput + "." + encodedSig
}
