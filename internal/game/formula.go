package game

import "math"

// ExplosionFunc computes the round's explosion multiplier from the number
// of bettors and the sum of their stakes, at the moment betting closes.
// Implementations must be pure and return at least MIN_MULTIPLIER.
type ExplosionFunc func(bettors int, staked float64) float64

// ExplosionStakeWeighted is the canonical formula: sqrt(1 + N + 0.01*V).
// With no bettors the round explodes immediately at 1.00x.
func ExplosionStakeWeighted(bettors int, staked float64) float64 {
	if bettors == 0 {
		return MIN_MULTIPLIER
	}
	return math.Sqrt(1 + float64(bettors) + 0.01*staked)
}

// ExplosionMeanStake is the alternate formula sqrt(V/N + 1), kept for
// operators who want the ceiling to track the average stake instead of
// the table size.
func ExplosionMeanStake(bettors int, staked float64) float64 {
	if bettors == 0 {
		return MIN_MULTIPLIER
	}
	return math.Sqrt(staked/float64(bettors) + 1)
}
