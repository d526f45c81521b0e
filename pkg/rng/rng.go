// Package rng wraps a single seeded math/rand source with named draw
// methods, so every random decision in one simulation episode -
// arrivals, holding times, priority class, computing units, cascade
// Bernoulli rolls, destination permutations - funnels through one
// generator instead of mixing a per-call source with a package-level
// default (the bug this design deliberately avoids).
package rng

import "math/rand"

// Source is the episode-scoped random generator.
type Source struct {
	r *rand.Rand
}

// New seeds a fresh Source. Two Sources built from the same seed
// produce identical draw sequences given identical call order.
func New(seed int64) *Source {
	return &Source{r: rand.New(rand.NewSource(seed))}
}

// Exponential draws from an exponential distribution with the given
// mean (not rate), matching the Python source's expovariate(1/mean)
// convention.
func (s *Source) Exponential(mean float64) float64 {
	if mean <= 0 {
		return 0
	}
	return s.r.ExpFloat64() * mean
}

// UniformInt draws an integer in [lo, hi], inclusive.
func (s *Source) UniformInt(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.r.Intn(hi-lo+1)
}

// Float64 draws a uniform float in [0, 1).
func (s *Source) Float64() float64 { return s.r.Float64() }

// RollPercent reports true when a uniform draw over 1..100 (inclusive)
// is less than or equal to thresholdOutOf100, matching the source
// material's dice-roll cascade semantics.
func (s *Source) RollPercent(thresholdOutOf100 float64) bool {
	roll := 1 + s.r.Intn(100)
	return float64(roll) <= thresholdOutOf100
}

// Perm returns a random permutation of [0, n).
func (s *Source) Perm(n int) []int { return s.r.Perm(n) }

// Choice picks a uniformly random element index from [0, n).
func (s *Source) Choice(n int) int {
	if n <= 0 {
		return -1
	}
	return s.r.Intn(n)
}
