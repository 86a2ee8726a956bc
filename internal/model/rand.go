package model

import (
	crand "crypto/rand"
	"encoding/binary"
	"math/rand/v2"
)

// worldRand drives loot typing and spawn positions. All callers run on the
// application strand, so unsynchronized use is fine.
var worldRand = newWorldRand()

func newWorldRand() *rand.Rand {
	var seed [16]byte
	if _, err := crand.Read(seed[:]); err != nil {
		panic("model: cannot seed world rng: " + err.Error())
	}
	return rand.New(rand.NewPCG(
		binary.LittleEndian.Uint64(seed[:8]),
		binary.LittleEndian.Uint64(seed[8:]),
	))
}

// SeedWorldRand makes the world rng deterministic. Tests only.
func SeedWorldRand(seed uint64) {
	worldRand = rand.New(rand.NewPCG(seed, seed))
}
