package id

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const idBytes = 16

// Generator produces opaque identifiers, used to correlate a run's log
// output and external references.
type Generator interface {
	NewID() (string, error)
}

// RandomGenerator issues 32-character hex ids drawn from crypto/rand.
type RandomGenerator struct{}

func NewRandomGenerator() *RandomGenerator {
	return &RandomGenerator{}
}

func (g *RandomGenerator) NewID() (string, error) {
	buf := make([]byte, idBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("draw random id bytes: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
