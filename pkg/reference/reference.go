package reference

import (
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"strings"
)

const (
	Alphanumeric  = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	DefaultLength = 10
	MinLength     = 6
	MaxLength     = 64
)

var ErrInvalidLength = errors.New("reference length out of range")

// Generator produces booking reference tokens. It does not guarantee
// uniqueness; callers verify against the live booking set.
type Generator interface {
	Generate(length int) (string, error)
}

type randomGenerator struct {
	alphabet string
	source   io.Reader
}

func NewAlphanumeric() Generator {
	return &randomGenerator{alphabet: Alphanumeric, source: rand.Reader}
}

// NewWithSource is used by tests to make output deterministic.
func NewWithSource(alphabet string, source io.Reader) Generator {
	return &randomGenerator{alphabet: alphabet, source: source}
}

func (g *randomGenerator) Generate(length int) (string, error) {
	if length <= 0 || length > MaxLength {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	n := len(g.alphabet)
	// bytes at or above limit are rejected so every symbol is equally likely
	limit := 256 - (256 % n)

	out := make([]byte, 0, length)
	buf := make([]byte, length*2)
	for len(out) < length {
		if _, err := io.ReadFull(g.source, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			out = append(out, g.alphabet[int(b)%n])
			if len(out) == length {
				break
			}
		}
	}

	return string(out), nil
}

// Valid reports whether ref could have been issued by an alphanumeric
// generator. Imported references are checked with it.
func Valid(ref string) bool {
	if len(ref) < MinLength || len(ref) > MaxLength {
		return false
	}
	for _, c := range ref {
		if !strings.ContainsRune(Alphanumeric, c) {
			return false
		}
	}
	return true
}
