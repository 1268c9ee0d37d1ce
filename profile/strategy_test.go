package profile

import (
	"errors"
	"math"
	"testing"
)

func TestBlendVectors_WeightedAverage(t *testing.T) {
	old := []float32{1, 0, 0.5}
	fresh := []float32{0, 1, 0.5}

	blended, err := blendVectors(old, fresh, 0.8)
	if err != nil {
		t.Fatalf("blend: %v", err)
	}

	want := []float32{0.8, 0.2, 0.5}
	for i := range want {
		if math.Abs(float64(blended[i]-want[i])) > 1e-6 {
			t.Errorf("blended[%d] = %f, want %f", i, blended[i], want[i])
		}
	}
}

func TestBlendVectors_IdenticalVectorsAreIdempotent(t *testing.T) {
	vec := []float32{0.1, -0.3, 0.7, 0.02}

	blended, err := blendVectors(vec, vec, 0.8)
	if err != nil {
		t.Fatalf("blend: %v", err)
	}
	for i := range vec {
		if blended[i] != vec[i] {
			t.Errorf("blended[%d] = %f, want %f (80/20 of identical vectors must be the vector)", i, blended[i], vec[i])
		}
	}
}

func TestBlendVectors_LengthMismatchIsHardError(t *testing.T) {
	_, err := blendVectors([]float32{1, 2, 3}, []float32{1, 2}, 0.8)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestAdaptiveNewWeight(t *testing.T) {
	tests := []struct {
		reliability float64
		want        float64
	}{
		{0.0, 0.0},
		{0.5, 0.3},  // 0.5*0.6 under the cap
		{0.8, 0.48}, // 0.8*0.6 under the cap
		{0.9, 0.5},  // 0.9*0.6=0.54 capped
		{1.0, 0.5},  // capped
	}
	for _, tt := range tests {
		got := adaptiveNewWeight(tt.reliability, 0.5, 0.6)
		if math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("adaptiveNewWeight(%f) = %f, want %f", tt.reliability, got, tt.want)
		}
	}
}

func TestSelectStrategy(t *testing.T) {
	existing := &Profile{UserID: "u"}

	tests := []struct {
		name    string
		current *Profile
		delta   Delta
		want    Strategy
	}{
		{"no profile routes to create", nil, Delta{Classification: ChangeMinor}, StrategyCreate},
		{"first profile flag routes to create regardless of magnitude", nil, Delta{FirstProfile: true, Magnitude: 1, Classification: ChangeBreakthrough}, StrategyCreate},
		{"minor", existing, Delta{Classification: ChangeMinor}, StrategyWeightedAverage},
		{"evolution", existing, Delta{Classification: ChangeEvolution}, StrategyAdaptiveMerge},
		{"breakthrough", existing, Delta{Classification: ChangeBreakthrough}, StrategyBreakthroughMerge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := selectStrategy(tt.current, tt.delta); got != tt.want {
				t.Errorf("selectStrategy = %s, want %s", got, tt.want)
			}
		})
	}
}
