package profile

import (
	"math"
	"testing"
)

func bigFive(score float64) map[string]float64 {
	return map[string]float64{
		"openness":          score,
		"conscientiousness": score,
		"extraversion":      score,
		"agreeableness":     score,
		"neuroticism":       score,
	}
}

func TestComputeDelta_FirstProfile(t *testing.T) {
	d := ComputeDelta(nil, bigFive(0.5), DefaultConfig.Thresholds)
	if !d.FirstProfile {
		t.Error("expected FirstProfile with no prior traits")
	}
	if d.Magnitude != 1.0 {
		t.Errorf("expected magnitude 1.0, got %f", d.Magnitude)
	}
}

func TestComputeDelta_ClassificationBoundaries(t *testing.T) {
	// Shifting every trait by the same amount makes the RMS magnitude
	// equal that amount, so boundaries can be hit exactly.
	tests := []struct {
		name  string
		shift float64
		want  Classification
	}{
		{"zero", 0.0, ChangeMinor},
		{"just below minor boundary", 0.099, ChangeMinor},
		{"exactly minor boundary", 0.1, ChangeMinor},
		{"just above minor boundary", 0.101, ChangeEvolution},
		{"mid evolution", 0.2, ChangeEvolution},
		{"exactly breakthrough boundary", 0.3, ChangeEvolution},
		{"just above breakthrough boundary", 0.301, ChangeBreakthrough},
		{"large shift", 0.45, ChangeBreakthrough},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			old := bigFive(0.5)
			fresh := bigFive(0.5 + tt.shift)
			d := ComputeDelta(old, fresh, DefaultConfig.Thresholds)
			if math.Abs(d.Magnitude-tt.shift) > 1e-9 {
				t.Errorf("magnitude = %f, want %f", d.Magnitude, tt.shift)
			}
			if d.Classification != tt.want {
				t.Errorf("classification = %s, want %s", d.Classification, tt.want)
			}
		})
	}
}

func TestComputeDelta_SingleTraitShift(t *testing.T) {
	// One trait moving 0.35 with the others unchanged: RMS over the
	// five-trait taxonomy gives sqrt(0.35²/5) ≈ 0.1565 — evolution,
	// not breakthrough.
	old := bigFive(0.5)
	fresh := bigFive(0.5)
	fresh["neuroticism"] = 0.85

	d := ComputeDelta(old, fresh, DefaultConfig.Thresholds)

	want := math.Sqrt(0.35 * 0.35 / 5)
	if math.Abs(d.Magnitude-want) > 1e-9 {
		t.Errorf("magnitude = %f, want %f", d.Magnitude, want)
	}
	if d.Classification != ChangeEvolution {
		t.Errorf("classification = %s, want %s", d.Classification, ChangeEvolution)
	}

	if len(d.Changes) != 1 {
		t.Fatalf("expected 1 significant change, got %d", len(d.Changes))
	}
	ch := d.Changes[0]
	if ch.Trait != "neuroticism" || ch.Direction != "increase" {
		t.Errorf("unexpected change: %+v", ch)
	}
	if ch.Before != 0.5 || ch.After != 0.85 {
		t.Errorf("before/after = %f/%f, want 0.5/0.85", ch.Before, ch.After)
	}
}

func TestComputeDelta_SmallShiftsNotReported(t *testing.T) {
	old := bigFive(0.5)
	fresh := bigFive(0.5)
	fresh["openness"] = 0.52 // |Δ|=0.02 < 0.1

	d := ComputeDelta(old, fresh, DefaultConfig.Thresholds)
	if len(d.Changes) != 0 {
		t.Errorf("expected no significant changes, got %d", len(d.Changes))
	}
	if d.Classification != ChangeMinor {
		t.Errorf("classification = %s, want minor", d.Classification)
	}
}

func TestComputeDelta_MissingOldTraitContributesZero(t *testing.T) {
	old := bigFive(0.5)
	delete(old, "agreeableness")
	fresh := bigFive(0.5)
	fresh["agreeableness"] = 0.9

	d := ComputeDelta(old, fresh, DefaultConfig.Thresholds)
	if d.Magnitude != 0 {
		t.Errorf("never-measured trait should not move the magnitude, got %f", d.Magnitude)
	}
}
