package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
)

// DefaultBytes yields 256 bits of entropy, encoded as 43 URL-safe characters.
const DefaultBytes = 32

// minBytes is the 128-bit floor for link tokens.
const minBytes = 16

// Generator produces opaque, URL-safe link tokens.
type Generator struct {
	size   int
	source io.Reader
}

// NewGenerator returns a generator reading size bytes per token from crypto/rand.
func NewGenerator(size int) *Generator {
	if size < minBytes {
		size = DefaultBytes
	}
	return &Generator{size: size, source: rand.Reader}
}

// Generate returns a fresh token. The token carries no structure beyond randomness.
func (g *Generator) Generate() (string, error) {
	buf := make([]byte, g.size)
	if _, err := io.ReadFull(g.source, buf); err != nil {
		return "", fmt.Errorf("read random token: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
