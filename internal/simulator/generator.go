// Package simulator implements the stochastic sample generator and the
// storage ledger that together produce the per-tick energy readings.
package simulator

import (
	"math/rand"
	"time"

	"energy-flow-monitor-go/internal/models"
)

// Sample is one stochastic draw for a single kind on a single tick.
type Sample struct {
	Value    float64
	Outgoing float64
	Loss     float64
}

// Generator draws samples from per-kind normal distributions. It owns its
// random source; the tick loop is its only caller, so no locking is needed.
type Generator struct {
	profiles map[models.Kind]models.Profile
	rng      *rand.Rand
}

// NewGenerator creates a generator seeded from the current time.
func NewGenerator(profiles map[models.Kind]models.Profile) *Generator {
	return NewGeneratorWithSource(profiles, rand.NewSource(time.Now().UnixNano()))
}

// NewGeneratorWithSource creates a generator with an explicit source, for
// reproducible tests.
func NewGeneratorWithSource(profiles map[models.Kind]models.Profile, src rand.Source) *Generator {
	return &Generator{
		profiles: profiles,
		rng:      rand.New(src),
	}
}

// Sample draws a generated value for kind plus the outgoing and loss
// portions taken from it. The value follows the kind's normal distribution
// and is deliberately not floored at zero; outgoing and loss are uniform
// within what was generated, in that order, and collapse to zero for a
// non-positive draw.
func (g *Generator) Sample(kind models.Kind) Sample {
	p := g.profiles[kind]
	value := g.rng.NormFloat64()*p.StdDev + p.Mean

	var outgoing, loss float64
	if value > 0 {
		outgoing = g.rng.Float64() * value
		loss = g.rng.Float64() * (value - outgoing)
	}

	return Sample{Value: value, Outgoing: outgoing, Loss: loss}
}

// Route picks one of the transport-path labels uniformly at random.
func (g *Generator) Route() string {
	return models.Routes[g.rng.Intn(len(models.Routes))]
}
