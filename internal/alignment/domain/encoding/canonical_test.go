package encoding

import (
	"testing"
)

func TestCanonicalJSON(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input any
		want  string
	}{
		{
			name:  "simple object sorted keys",
			input: map[string]any{"z": 1, "a": 2, "m": 3},
			want:  `{"a":2,"m":3,"z":1}`,
		},
		{
			name:  "nested object sorted keys",
			input: map[string]any{"b": map[string]any{"d": 1, "c": 2}, "a": 3},
			want:  `{"a":3,"b":{"c":2,"d":1}}`,
		},
		{
			name:  "array order preserved",
			input: []any{3, 1, 2},
			want:  `[3,1,2]`,
		},
		{
			name:  "mixed types",
			input: map[string]any{"str": "hello", "num": 42, "bool": true, "null": nil},
			want:  `{"bool":true,"null":null,"num":42,"str":"hello"}`,
		},
		{
			name:  "empty object",
			input: map[string]any{},
			want:  `{}`,
		},
		{
			name:  "no html escaping",
			input: map[string]any{"text": "a<b & c>d"},
			want:  `{"text":"a<b & c>d"}`,
		},
		{
			name: "snapshot shaped payload",
			input: map[string]any{
				"round":       1,
				"alignmentId": "al_123",
				"responses": []any{
					map[string]any{"userId": "user-b", "answers": map[string]any{"q2": "no", "q1": "yes"}},
				},
			},
			want: `{"alignmentId":"al_123","responses":[{"answers":{"q1":"yes","q2":"no"},"userId":"user-b"}],"round":1}`,
		},
		{
			name: "struct fields reordered by name",
			input: struct {
				Z int    `json:"z"`
				A string `json:"a"`
			}{Z: 1, A: "x"},
			want: `{"a":"x","z":1}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, err := CanonicalJSON(tt.input)
			if err != nil {
				t.Fatalf("CanonicalJSON() error = %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("CanonicalJSON() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestContentHashLength(t *testing.T) {
	t.Parallel()

	got, err := ContentHash(map[string]any{"key": "value"})
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	// 128 bits = 16 bytes = 32 hex chars
	if len(got) != 32 {
		t.Errorf("ContentHash() length = %d, want 32", len(got))
	}
}

func TestContentHashDeterministic(t *testing.T) {
	t.Parallel()

	inputs := []map[string]any{
		{"z": 1, "a": 2, "m": 3},
		{"a": 2, "m": 3, "z": 1},
		{"m": 3, "z": 1, "a": 2},
	}

	var hashes []string
	for i, input := range inputs {
		hash, err := ContentHash(input)
		if err != nil {
			t.Fatalf("ContentHash(inputs[%d]) error = %v", i, err)
		}
		hashes = append(hashes, hash)
	}

	if hashes[0] != hashes[1] || hashes[1] != hashes[2] {
		t.Errorf("ContentHash not deterministic: %s, %s, %s", hashes[0], hashes[1], hashes[2])
	}
}

func TestContentHashSensitivity(t *testing.T) {
	t.Parallel()

	hash1, err := ContentHash(map[string]any{"key": "value1"})
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}
	hash2, err := ContentHash(map[string]any{"key": "value2"})
	if err != nil {
		t.Fatalf("ContentHash() error = %v", err)
	}

	if hash1 == hash2 {
		t.Error("different inputs produced the same hash")
	}
}
