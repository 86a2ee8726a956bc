// Package token mints and validates player session tokens.
package token

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"math/rand/v2"
)

// Length is the fixed token length in hex characters.
const Length = 32

// Generator produces 32-character lowercase hex tokens by concatenating
// the output of two independent 64-bit generators, each seeded from OS
// entropy.
type Generator struct {
	r1 *rand.Rand
	r2 *rand.Rand
}

// NewGenerator seeds both streams from crypto/rand.
func NewGenerator() *Generator {
	return &Generator{r1: newSeededRand(), r2: newSeededRand()}
}

// NewGeneratorWithSeeds builds a deterministic generator. Tests only.
func NewGeneratorWithSeeds(seed1, seed2 uint64) *Generator {
	return &Generator{
		r1: rand.New(rand.NewPCG(seed1, seed1)),
		r2: rand.New(rand.NewPCG(seed2, seed2)),
	}
}

func newSeededRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("token: cannot read OS entropy: " + err.Error())
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// Generate returns a fresh token.
func (g *Generator) Generate() string {
	return fmt.Sprintf("%016x%016x", g.r1.Uint64(), g.r2.Uint64())
}

// IsValid reports whether s has the exact shape of a token: 32 hex
// characters. Uppercase hex is accepted, matching the auth contract.
func IsValid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') && (c < 'A' || c > 'F') {
			return false
		}
	}
	return true
}
