// Package lootgen decides how many loot items appear on the map each tick.
package lootgen

import (
	"math"
	"math/rand/v2"
	"time"
)

// RandomSource yields values in [0, 1]. Injected in tests.
type RandomSource func() float64

// Generator accumulates time between successful spawns and converts the
// current loot shortage into a spawn count. The longer the world goes
// without new loot, the closer the effective spawn probability gets to 1.
type Generator struct {
	basePeriod      time.Duration
	probability     float64
	random          RandomSource
	timeWithoutLoot time.Duration
}

// New creates a generator. basePeriod is the time horizon over which the
// configured probability applies; probability must lie in [0, 1].
func New(basePeriod time.Duration, probability float64, random RandomSource) *Generator {
	if random == nil {
		random = rand.Float64
	}
	return &Generator{
		basePeriod:  basePeriod,
		probability: probability,
		random:      random,
	}
}

// Generate advances the generator by delta and returns how many loot items
// to spawn, given the number currently on the map and the number of
// players able to collect them. The result never exceeds the shortage
// (looterCount - lootCount), so cumulative spawns can't outrun the
// players.
//
// The drought accumulator advances before the shortage check: time spent
// with no players still counts toward the next spawn window. It resets
// only when something is actually generated.
func (g *Generator) Generate(delta time.Duration, lootCount, looterCount int) int {
	g.timeWithoutLoot += delta

	if looterCount <= lootCount {
		return 0
	}
	shortage := looterCount - lootCount

	// The ratio deliberately exceeds 1 after long droughts, saturating
	// the effective probability.
	ratio := g.timeWithoutLoot.Seconds() / g.basePeriod.Seconds()
	p := (1 - math.Pow(1-g.probability, ratio)) * g.random()
	p = math.Min(math.Max(p, 0), 1)

	generated := int(math.Round(float64(shortage) * p))
	if generated > shortage {
		generated = shortage
	}
	if generated > 0 {
		g.timeWithoutLoot = 0
	}
	return generated
}
