// Package encoding provides deterministic JSON serialization for
// signature snapshots. Both participants must hash byte-identical
// content, so map iteration order and encoder quirks cannot leak in.
package encoding

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
)

// CanonicalJSON serializes v following RFC 8785 (JCS) principles:
// object keys sorted lexicographically, no insignificant whitespace,
// no HTML escaping, numbers rendered by Go's json package.
func CanonicalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	// Round-trip through any so struct field order stops mattering.
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	return encodeCompact(canonicalize(raw))
}

// ContentHash returns the SHA-256 of the canonical JSON, truncated to
// 128 bits (32 hex characters). This is the value participants sign.
func ContentHash(v any) (string, error) {
	canonical, err := CanonicalJSON(v)
	if err != nil {
		return "", fmt.Errorf("canonical json: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:16]), nil
}

// canonicalize rewrites maps into sortedObject values so nested keys
// serialize in lexicographic order.
func canonicalize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		keys := make([]string, 0, len(val))
		for k := range val {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		values := make(map[string]any, len(val))
		for _, k := range keys {
			values[k] = canonicalize(val[k])
		}
		return sortedObject{keys: keys, values: values}

	case []any:
		items := make([]any, len(val))
		for i, item := range val {
			items[i] = canonicalize(item)
		}
		return items

	default:
		return v
	}
}

// sortedObject marshals its entries in the key order fixed at
// construction time.
type sortedObject struct {
	keys   []string
	values map[string]any
}

func (o sortedObject) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')

	for i, k := range o.keys {
		if i > 0 {
			buf.WriteByte(',')
		}

		key, err := encodeCompact(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')

		value, err := encodeCompact(o.values[k])
		if err != nil {
			return nil, err
		}
		buf.Write(value)
	}

	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeCompact marshals without HTML escaping and strips the newline
// json.Encoder appends.
func encodeCompact(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encode canonical: %w", err)
	}

	out := buf.Bytes()
	if n := len(out); n > 0 && out[n-1] == '\n' {
		out = out[:n-1]
	}
	return out, nil
}
