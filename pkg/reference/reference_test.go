package reference

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestGenerate_LengthAndAlphabet(t *testing.T) {
	gen := NewAlphanumeric()

	for _, length := range []int{1, 8, DefaultLength, 32, MaxLength} {
		token, err := gen.Generate(length)
		if err != nil {
			t.Fatalf("length %d: unexpected error: %v", length, err)
		}
		if len(token) != length {
			t.Errorf("expected length %d, got %d", length, len(token))
		}
		for _, r := range token {
			if !strings.ContainsRune(Alphanumeric, r) {
				t.Errorf("token %q contains %q outside the alphabet", token, r)
			}
		}
	}
}

func TestGenerate_InvalidLength(t *testing.T) {
	gen := NewAlphanumeric()

	for _, length := range []int{0, -1, MaxLength + 1} {
		if _, err := gen.Generate(length); !errors.Is(err, ErrInvalidLength) {
			t.Errorf("length %d: expected ErrInvalidLength, got %v", length, err)
		}
	}
}

func TestGenerate_RejectsBiasedBytes(t *testing.T) {
	// 62 symbols: bytes >= 248 must be skipped
	source := bytes.NewReader([]byte{255, 250, 248, 0, 1, 61, 62, 0, 0, 0, 0, 0})
	gen := NewWithSource(Alphanumeric, source)

	token, err := gen.Generate(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "AB9A" {
		t.Errorf("expected AB9A, got %s", token)
	}
}

func TestGenerate_SourceExhausted(t *testing.T) {
	gen := NewWithSource(Alphanumeric, bytes.NewReader([]byte{1}))

	if _, err := gen.Generate(4); err == nil {
		t.Error("expected error when the random source is exhausted")
	}
}

func TestGenerate_Distinct(t *testing.T) {
	gen := NewAlphanumeric()
	seen := make(map[string]struct{})

	for i := 0; i < 1000; i++ {
		token, err := gen.Generate(DefaultLength)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, dup := seen[token]; dup {
			t.Fatalf("duplicate token %s after %d draws", token, i)
		}
		seen[token] = struct{}{}
	}
}

func TestValid(t *testing.T) {
	tests := []struct {
		ref  string
		want bool
	}{
		{"aB3xY9kLmQ", true},
		{"ABC123", true},
		{"ABC12", false},
		{"aB3-xY9kLm", false},
		{"", false},
		{strings.Repeat("a", MaxLength+1), false},
	}

	for _, tt := range tests {
		if got := Valid(tt.ref); got != tt.want {
			t.Errorf("Valid(%q) = %v, want %v", tt.ref, got, tt.want)
		}
	}
}
