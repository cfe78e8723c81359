// Package integrity provides the HMAC signing helpers behind signature
// records. Each alignment gets its own derived key so a leaked MAC from
// one agreement says nothing about another.
package integrity

import (
	"crypto/hkdf"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

// Keyring stores root HMAC keys and the active key id.
type Keyring struct {
	keys        map[string][]byte
	activeKeyID string
}

// NewKeyring constructs a keyring for HMAC signing and verification.
func NewKeyring(keys map[string][]byte, activeKeyID string) (*Keyring, error) {
	if len(keys) == 0 {
		return nil, fmt.Errorf("signing keys are required")
	}
	activeKeyID = strings.TrimSpace(activeKeyID)
	if activeKeyID == "" {
		return nil, fmt.Errorf("active signing key id is required")
	}
	if _, ok := keys[activeKeyID]; !ok {
		return nil, fmt.Errorf("active signing key id is not configured")
	}
	return &Keyring{keys: keys, activeKeyID: activeKeyID}, nil
}

// ActiveKeyID returns the configured signing key id.
func (k *Keyring) ActiveKeyID() string {
	if k == nil {
		return ""
	}
	return k.activeKeyID
}

// SignSnapshotHash signs a snapshot content hash with the active key.
func (k *Keyring) SignSnapshotHash(alignmentID, contentHash string) (string, string, error) {
	if k == nil {
		return "", "", fmt.Errorf("signing keyring is not configured")
	}
	keyID := k.activeKeyID
	key, err := k.deriveKey(keyID, alignmentID)
	if err != nil {
		return "", "", err
	}
	mac := hmacSHA256Hex(key, contentHash)
	return mac, keyID, nil
}

// VerifySnapshotHash validates a snapshot content hash MAC. Older key
// ids stay verifiable after rotation as long as their roots remain in
// the ring.
func (k *Keyring) VerifySnapshotHash(alignmentID, contentHash, mac, keyID string) error {
	if k == nil {
		return fmt.Errorf("signing keyring is not configured")
	}
	keyID = strings.TrimSpace(keyID)
	if keyID == "" {
		return fmt.Errorf("signature key id is required")
	}
	rootKey, ok := k.keys[keyID]
	if !ok {
		return fmt.Errorf("signature key id is unknown")
	}
	key, err := deriveAlignmentKey(rootKey, alignmentID)
	if err != nil {
		return err
	}
	expected := hmacSHA256Hex(key, contentHash)
	if !hmac.Equal([]byte(expected), []byte(mac)) {
		return fmt.Errorf("signature mismatch")
	}
	return nil
}

func (k *Keyring) deriveKey(keyID, alignmentID string) ([]byte, error) {
	rootKey, ok := k.keys[keyID]
	if !ok {
		return nil, fmt.Errorf("signing key id is unknown")
	}
	return deriveAlignmentKey(rootKey, alignmentID)
}

func deriveAlignmentKey(rootKey []byte, alignmentID string) ([]byte, error) {
	alignmentID = strings.TrimSpace(alignmentID)
	if alignmentID == "" {
		return nil, fmt.Errorf("alignment id is required")
	}
	key, err := hkdf.Key(sha256.New, rootKey, nil, "alignment:"+alignmentID, 32)
	if err != nil {
		return nil, fmt.Errorf("derive alignment key: %w", err)
	}
	return key, nil
}

func hmacSHA256Hex(key []byte, value string) string {
	mac := hmac.New(sha256.New, key)
	_, _ = mac.Write([]byte(value))
	return hex.EncodeToString(mac.Sum(nil))
}
