package integrity

import (
	"encoding/hex"
	"fmt"
	"os"
	"strings"
)

const (
	envSigningKeys  = "CONCORD_SIGNING_ROOT_KEYS"
	envSigningKey   = "CONCORD_SIGNING_ROOT_KEY"
	envSigningKeyID = "CONCORD_SIGNING_KEY_ID"
	defaultKeyID    = "v1"
)

// KeyringFromEnv loads the signing keyring from environment variables.
// Keys are hex encoded; CONCORD_SIGNING_ROOT_KEYS holds rotated
// id=key pairs separated by commas, CONCORD_SIGNING_ROOT_KEY a single
// key under the default id.
func KeyringFromEnv() (*Keyring, error) {
	keyID := strings.TrimSpace(os.Getenv(envSigningKeyID))
	if keyID == "" {
		keyID = defaultKeyID
	}

	keySpec := strings.TrimSpace(os.Getenv(envSigningKeys))
	if keySpec == "" {
		raw := strings.TrimSpace(os.Getenv(envSigningKey))
		if raw == "" {
			return nil, fmt.Errorf("%s is required", envSigningKey)
		}
		key, err := hex.DecodeString(raw)
		if err != nil {
			return nil, fmt.Errorf("decode %s: %w", envSigningKey, err)
		}
		return NewKeyring(map[string][]byte{keyID: key}, keyID)
	}

	keys := make(map[string][]byte)
	entries := strings.Split(keySpec, ",")
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		parts := strings.SplitN(entry, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid %s entry", envSigningKeys)
		}
		id := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		if id == "" || value == "" {
			return nil, fmt.Errorf("invalid %s entry", envSigningKeys)
		}
		key, err := hex.DecodeString(value)
		if err != nil {
			return nil, fmt.Errorf("decode %s entry %s: %w", envSigningKeys, id, err)
		}
		keys[id] = key
	}
	return NewKeyring(keys, keyID)
}
