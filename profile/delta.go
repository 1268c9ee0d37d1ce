package profile

import (
	"math"

	"github.com/xksnk/selfolgy.me-sub005/analysis"
)

// Classification buckets a personality change by delta magnitude.
type Classification string

const (
	// ChangeMinor: magnitude within the minor threshold. The profile
	// barely moved; blend conservatively.
	ChangeMinor Classification = "minor"

	// ChangeEvolution: meaningful but gradual movement. Merge
	// adaptively and record an evolution point.
	ChangeEvolution Classification = "evolution"

	// ChangeBreakthrough: a step change. Preserve a milestone snapshot
	// and overwrite the current profile outright.
	ChangeBreakthrough Classification = "breakthrough"
)

// TraitChange is one per-trait difference exceeding the significance
// threshold, reported with direction and before/after values.
type TraitChange struct {
	Trait     string  `json:"trait"`
	Before    float64 `json:"before"`
	After     float64 `json:"after"`
	Delta     float64 `json:"delta"`
	Direction string  `json:"direction"`
}

// Delta summarizes how much a user's trait vector moved between two
// analyses. Transient: computed per update, stored only inside
// evolution snapshots.
type Delta struct {
	Magnitude      float64
	FirstProfile   bool
	Changes        []TraitChange
	Classification Classification
}

// ComputeDelta compares stored trait scores against a new analysis.
//
// With no prior profile the magnitude is defined as 1.0 — maximal, so
// the update routes to profile creation rather than a merge. Otherwise
// the magnitude is the root mean square of per-trait differences over
// the fixed Big Five taxonomy; scores arrive already normalized to
// [0,1] by the producer. A trait missing from the old snapshot
// (possible in records predating the canonical shape) contributes zero,
// since it was never measured.
func ComputeDelta(old map[string]float64, fresh map[string]float64, th Thresholds) Delta {
	if old == nil {
		return Delta{
			Magnitude:      1.0,
			FirstProfile:   true,
			Classification: classify(1.0, th),
		}
	}

	var sumSq float64
	var changes []TraitChange
	for _, trait := range analysis.BigFiveTraits {
		after := fresh[trait]
		before, measured := old[trait]
		if !measured {
			before = after
		}
		diff := after - before
		sumSq += diff * diff

		if math.Abs(diff) > th.SignificantChange {
			direction := "increase"
			if diff < 0 {
				direction = "decrease"
			}
			changes = append(changes, TraitChange{
				Trait:     trait,
				Before:    before,
				After:     after,
				Delta:     diff,
				Direction: direction,
			})
		}
	}

	magnitude := math.Sqrt(sumSq / float64(len(analysis.BigFiveTraits)))
	return Delta{
		Magnitude:      magnitude,
		Changes:        changes,
		Classification: classify(magnitude, th),
	}
}

// classify resolves the fixed boundaries: magnitude exactly at the
// minor threshold is minor, exactly at the breakthrough threshold is
// evolution, strictly above it is breakthrough.
func classify(magnitude float64, th Thresholds) Classification {
	switch {
	case magnitude <= th.Minor:
		return ChangeMinor
	case magnitude <= th.Breakthrough:
		return ChangeEvolution
	default:
		return ChangeBreakthrough
	}
}
