package game

import (
	"math"
	"testing"
)

func TestExplosionStakeWeighted(t *testing.T) {
	tests := []struct {
		name    string
		bettors int
		staked  float64
		want    float64
	}{
		{"no bettors explodes immediately", 0, 0, 1.00},
		{"single bettor of 100", 1, 100, math.Sqrt(2.0)},
		{"two bettors of 50 total", 2, 50, math.Sqrt(3.5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExplosionStakeWeighted(tt.bettors, tt.staked)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ExplosionStakeWeighted(%d, %v) = %v, want %v", tt.bettors, tt.staked, got, tt.want)
			}
		})
	}
}

func TestExplosionMeanStake(t *testing.T) {
	if got := ExplosionMeanStake(0, 0); got != 1.00 {
		t.Errorf("ExplosionMeanStake(0, 0) = %v, want 1.00", got)
	}
	want := math.Sqrt(51.0)
	if got := ExplosionMeanStake(1, 50); math.Abs(got-want) > 1e-9 {
		t.Errorf("ExplosionMeanStake(1, 50) = %v, want %v", got, want)
	}
}

func TestExplosionFormulas_Properties(t *testing.T) {
	formulas := map[string]ExplosionFunc{
		"stake-weighted": ExplosionStakeWeighted,
		"mean-stake":     ExplosionMeanStake,
	}

	for name, f := range formulas {
		t.Run(name, func(t *testing.T) {
			prev := 0.0
			for _, v := range []float64{0, 1, 10, 100, 1000, 10000} {
				got := f(3, v)
				if got < MIN_MULTIPLIER {
					t.Errorf("%s(3, %v) = %v, below %v", name, v, got, MIN_MULTIPLIER)
				}
				if got < prev {
					t.Errorf("%s not monotone in staked volume at %v", name, v)
				}
				prev = got
			}
		})
	}
}
