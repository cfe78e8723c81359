// Package access mints and verifies participant access grants. A grant
// is an EdDSA-signed JWT binding a user to one alignment and role; the
// HTTP layer resolves it from the Authorization header and operations
// still check the participant row before acting.
package access

import (
	"crypto/ed25519"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/concordhq/concord/internal/alignment/domain"
	"github.com/concordhq/concord/internal/platform/config"
	apperrors "github.com/concordhq/concord/internal/platform/errors"
	"github.com/concordhq/concord/internal/platform/id"
)

const (
	// Issuer identifies grants minted by this server.
	Issuer = "concord"
	// Audience identifies the participant API surface.
	Audience = "concord-participants"

	// EnvGrantPrivateKey names the minting key environment variable.
	EnvGrantPrivateKey = "CONCORD_GRANT_PRIVATE_KEY"
	// EnvGrantPublicKey names the verification key environment variable.
	EnvGrantPublicKey = "CONCORD_GRANT_PUBLIC_KEY"
	// EnvGrantTTL names the grant lifetime environment variable.
	EnvGrantTTL = "CONCORD_GRANT_TTL"

	// leeway tolerates clock skew between minting and verifying hosts.
	leeway = 60 * time.Second
)

// signerEnv holds raw env values before post-parse validation.
type signerEnv struct {
	PrivateKey string        `env:"CONCORD_GRANT_PRIVATE_KEY"`
	TTL        time.Duration `env:"CONCORD_GRANT_TTL" envDefault:"720h"`
}

// verifierEnv holds raw env values before post-parse validation.
type verifierEnv struct {
	PublicKey string `env:"CONCORD_GRANT_PUBLIC_KEY"`
}

// SignerConfig defines how grants are minted.
type SignerConfig struct {
	Key ed25519.PrivateKey
	TTL time.Duration
	Now func() time.Time
}

// VerifierConfig defines how grants are verified.
type VerifierConfig struct {
	Key ed25519.PublicKey
	Now func() time.Time
}

// Grant captures validated access grant claims.
type Grant struct {
	UserID      string
	AlignmentID string
	Role        domain.Role
	JWTID       string
	IssuedAt    time.Time
	NotBefore   time.Time
	ExpiresAt   time.Time
}

// grantClaims is the internal claims type used for JWT parsing.
type grantClaims struct {
	jwt.RegisteredClaims
	AlignmentID string `json:"alignment_id"`
	Role        string `json:"role"`
}

// LoadSignerConfigFromEnv reads grant minting configuration.
func LoadSignerConfigFromEnv(now func() time.Time) (SignerConfig, error) {
	var raw signerEnv
	if err := config.ParseEnv("grant signer", &raw); err != nil {
		return SignerConfig{}, err
	}
	privateKey := strings.TrimSpace(raw.PrivateKey)
	if privateKey == "" {
		return SignerConfig{}, fmt.Errorf("CONCORD_GRANT_PRIVATE_KEY is required")
	}
	keyBytes, err := decodeBase64(privateKey)
	if err != nil {
		return SignerConfig{}, fmt.Errorf("decode grant private key: %w", err)
	}
	if len(keyBytes) != ed25519.PrivateKeySize {
		return SignerConfig{}, fmt.Errorf("grant private key must be %d bytes", ed25519.PrivateKeySize)
	}
	if raw.TTL <= 0 {
		return SignerConfig{}, fmt.Errorf("grant ttl must be positive")
	}
	if now == nil {
		now = time.Now
	}
	return SignerConfig{
		Key: ed25519.PrivateKey(keyBytes),
		TTL: raw.TTL,
		Now: now,
	}, nil
}

// LoadVerifierConfigFromEnv reads grant verification configuration.
func LoadVerifierConfigFromEnv(now func() time.Time) (VerifierConfig, error) {
	var raw verifierEnv
	if err := config.ParseEnv("grant verifier", &raw); err != nil {
		return VerifierConfig{}, err
	}
	publicKey := strings.TrimSpace(raw.PublicKey)
	if publicKey == "" {
		return VerifierConfig{}, fmt.Errorf("CONCORD_GRANT_PUBLIC_KEY is required")
	}
	keyBytes, err := decodeBase64(publicKey)
	if err != nil {
		return VerifierConfig{}, fmt.Errorf("decode grant public key: %w", err)
	}
	if len(keyBytes) != ed25519.PublicKeySize {
		return VerifierConfig{}, fmt.Errorf("grant public key must be %d bytes", ed25519.PublicKeySize)
	}
	if now == nil {
		now = time.Now
	}
	return VerifierConfig{
		Key: ed25519.PublicKey(keyBytes),
		Now: now,
	}, nil
}

// MintGrant issues a signed grant for one participant seat.
func MintGrant(cfg SignerConfig, userID, alignmentID string, role domain.Role, idGenerator func() (string, error)) (string, error) {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}
	userID = strings.TrimSpace(userID)
	alignmentID = strings.TrimSpace(alignmentID)
	if userID == "" {
		return "", apperrors.New(apperrors.CodeParticipantEmptyUserID, "user id is required")
	}
	if alignmentID == "" {
		return "", apperrors.New(apperrors.CodeAlignmentEmptyID, "alignment id is required")
	}
	if _, err := domain.ParseRole(string(role)); err != nil {
		return "", err
	}

	jwtID, err := idGenerator()
	if err != nil {
		return "", fmt.Errorf("generate grant id: %w", err)
	}

	now := cfg.Now().UTC()
	return encodeGrant(cfg, map[string]any{
		"iss":          Issuer,
		"aud":          Audience,
		"sub":          userID,
		"jti":          jwtID,
		"iat":          now.Unix(),
		"nbf":          now.Unix(),
		"exp":          now.Add(cfg.TTL).Unix(),
		"alignment_id": alignmentID,
		"role":         string(role),
	})
}

// VerifyGrant verifies a grant token and returns its validated claims.
func VerifyGrant(token string, cfg VerifierConfig) (Grant, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Key) != ed25519.PublicKeySize {
		return Grant{}, errors.New("grant verifier is not configured")
	}

	var parsed grantClaims
	_, err := jwt.ParseWithClaims(token, &parsed, func(token *jwt.Token) (any, error) {
		return cfg.Key, nil
	},
		jwt.WithValidMethods([]string{"EdDSA"}),
		jwt.WithoutClaimsValidation(),
	)
	if err != nil {
		return Grant{}, mapJWTError(err)
	}

	if parsed.Issuer == "" || parsed.Issuer != Issuer {
		return Grant{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"access grant issuer mismatch",
			map[string]string{"Field": "issuer"},
		)
	}
	if !audienceContains(parsed.Audience, Audience) {
		return Grant{}, apperrors.WithMetadata(
			apperrors.CodeGrantInvalid,
			"access grant audience mismatch",
			map[string]string{"Field": "audience"},
		)
	}
	if parsed.ID == "" {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant jti is required")
	}
	if parsed.ExpiresAt == nil {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant exp is required")
	}

	now := cfg.Now().UTC()
	exp := parsed.ExpiresAt.Time.UTC()
	if now.After(exp.Add(leeway)) {
		return Grant{}, apperrors.New(apperrors.CodeGrantExpired, "access grant is expired")
	}
	if parsed.NotBefore != nil {
		nbf := parsed.NotBefore.Time.UTC()
		if now.Add(leeway).Before(nbf) {
			return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant not active yet")
		}
	}

	userID := strings.TrimSpace(parsed.Subject)
	if userID == "" {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant subject is required")
	}
	alignmentID := strings.TrimSpace(parsed.AlignmentID)
	if alignmentID == "" {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant alignment is required")
	}
	role, err := domain.ParseRole(parsed.Role)
	if err != nil {
		return Grant{}, apperrors.New(apperrors.CodeGrantInvalid, "access grant role is invalid")
	}

	grant := Grant{
		UserID:      userID,
		AlignmentID: alignmentID,
		Role:        role,
		JWTID:       parsed.ID,
		ExpiresAt:   exp,
	}
	if parsed.NotBefore != nil {
		grant.NotBefore = parsed.NotBefore.Time.UTC()
	}
	if parsed.IssuedAt != nil {
		grant.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return grant, nil
}

// ForAlignment checks that the grant is scoped to the given alignment.
func (g Grant) ForAlignment(alignmentID string) error {
	if g.AlignmentID != strings.TrimSpace(alignmentID) {
		return apperrors.WithMetadata(
			apperrors.CodePermissionDenied,
			"access grant is for a different alignment",
			map[string]string{"AlignmentID": alignmentID},
		)
	}
	return nil
}

// encodeGrant signs the payload as a compact EdDSA JWS.
func encodeGrant(cfg SignerConfig, payload map[string]any) (string, error) {
	if len(cfg.Key) != ed25519.PrivateKeySize {
		return "", errors.New("grant signer is not configured")
	}
	headerJSON, err := json.Marshal(map[string]string{
		"alg": "EdDSA",
		"typ": "JWT",
	})
	if err != nil {
		return "", fmt.Errorf("encode grant header: %w", err)
	}

	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode grant payload: %w", err)
	}

	encodedHeader := base64.RawURLEncoding.EncodeToString(headerJSON)
	encodedPayload := base64.RawURLEncoding.EncodeToString(payloadJSON)
	signingInput := encodedHeader + "." + encodedPayload
	signature := ed25519.Sign(cfg.Key, []byte(signingInput))
	encodedSig := base64.RawURLEncoding.EncodeToString(signature)
	return signingInput + "." + encodedSig, nil
}

// mapJWTError translates jwt library errors to application errors.
func mapJWTError(err error) error {
	if errors.Is(err, jwt.ErrTokenSignatureInvalid) || errors.Is(err, jwt.ErrEd25519Verification) {
		return apperrors.New(apperrors.CodeGrantInvalid, "access grant signature is invalid")
	}
	if errors.Is(err, jwt.ErrTokenUnverifiable) {
		return apperrors.New(apperrors.CodeGrantInvalid, "access grant alg is invalid")
	}
	return apperrors.New(apperrors.CodeGrantInvalid, "access grant is invalid")
}

// audienceContains reports whether the audience list contains the given value.
func audienceContains(aud jwt.ClaimStrings, value string) bool {
	for _, item := range aud {
		if item == value {
			return true
		}
	}
	return false
}

func decodeBase64(value string) ([]byte, error) {
	if value == "" {
		return nil, errors.New("empty base64 value")
	}
	decoded, err := base64.RawStdEncoding.DecodeString(value)
	if err == nil {
		return decoded, nil
	}
	return base64.StdEncoding.DecodeString(value)
}
