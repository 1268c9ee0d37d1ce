package profile

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/xksnk/selfolgy.me-sub005/analysis"
)

// Strategy names the persistence path chosen for one update.
type Strategy string

const (
	// StrategyCreate writes the first profile for a user.
	StrategyCreate Strategy = "create"

	// StrategyWeightedAverage blends a minor change into the stored
	// standard vector, 80/20 in favor of the previous reading.
	StrategyWeightedAverage Strategy = "weighted_average"

	// StrategyAdaptiveMerge pulls the profile toward the new reading
	// proportionally to the analysis's reliability.
	StrategyAdaptiveMerge Strategy = "adaptive_merge"

	// StrategyBreakthroughMerge preserves a milestone snapshot and
	// overwrites the current profile outright.
	StrategyBreakthroughMerge Strategy = "breakthrough_merge"
)

// selectStrategy maps the delta classification to a strategy. A user
// with no current profile always routes to create, regardless of the
// computed magnitude.
func selectStrategy(current *Profile, delta Delta) Strategy {
	if current == nil || delta.FirstProfile {
		return StrategyCreate
	}
	switch delta.Classification {
	case ChangeMinor:
		return StrategyWeightedAverage
	case ChangeEvolution:
		return StrategyAdaptiveMerge
	default:
		return StrategyBreakthroughMerge
	}
}

// blendVectors returns oldWeight*old + (1-oldWeight)*new element-wise.
// Vectors of different lengths are a hard error, never truncated or
// padded to fit.
func blendVectors(old, fresh []float32, oldWeight float64) ([]float32, error) {
	if len(old) != len(fresh) {
		return nil, fmt.Errorf("%w: stored %d, new %d", ErrDimensionMismatch, len(old), len(fresh))
	}
	newWeight := 1 - oldWeight
	blended := make([]float32, len(old))
	for i := range old {
		blended[i] = float32(float64(old[i])*oldWeight + float64(fresh[i])*newWeight)
	}
	return blended, nil
}

// adaptiveNewWeight computes the new-vector weight for the evolution
// branch: min(cap, reliability*factor). Higher-confidence analyses pull
// the profile further toward the new reading.
func adaptiveNewWeight(reliability, cap, factor float64) float64 {
	w := reliability * factor
	if w > cap {
		w = cap
	}
	if w < 0 {
		w = 0
	}
	return w
}

// UpdateResult reports what one applied update did.
type UpdateResult struct {
	UserID      string
	Strategy    Strategy
	Delta       Delta
	Resolutions []string
	SnapshotID  string
}

// applyUpdate executes the chosen strategy. The three collection writes
// are one logical update: if any required write fails, the whole update
// is reported failed and the journal intent stays pending so the
// partial state is detectable.
func (m *Manager) applyUpdate(ctx context.Context, userID string, vecs map[string][]float32, res *analysis.Result, current *Profile, delta Delta) (*UpdateResult, error) {
	strategy := selectStrategy(current, delta)
	now := time.Now().UTC()

	next := &Profile{
		UserID:        userID,
		Traits:        cloneScores(res.Traits.BigFive),
		DynamicTraits: cloneScores(res.Traits.DynamicTraits),
		SummaryNano:   res.Summary.Nano,
		Reliability:   res.Quality.OverallReliability,
		UpdatedAt:     now,
	}

	var snapshot *EvolutionSnapshot
	switch strategy {
	case StrategyCreate:
		next.StandardVector = vecs[ResolutionStandard]
		// A full vector on a first profile still earns a history
		// point, but not a milestone.
		if _, ok := vecs[ResolutionFull]; ok {
			snapshot = m.buildSnapshot(next, vecs, current, delta, now, false, res)
		}

	case StrategyWeightedAverage:
		if fresh, ok := vecs[ResolutionStandard]; ok {
			blended, err := blendVectors(current.StandardVector, fresh, m.config.MinorKeepWeight)
			if err != nil {
				return nil, fmt.Errorf("weighted average for user %s: %w", userID, err)
			}
			next.StandardVector = blended
		} else {
			next.StandardVector = current.StandardVector
		}

	case StrategyAdaptiveMerge:
		if fresh, ok := vecs[ResolutionStandard]; ok {
			w := adaptiveNewWeight(res.Quality.OverallReliability, m.config.AdaptiveWeightCap, m.config.AdaptiveReliabilityFactor)
			blended, err := blendVectors(current.StandardVector, fresh, 1-w)
			if err != nil {
				return nil, fmt.Errorf("adaptive merge for user %s: %w", userID, err)
			}
			next.StandardVector = blended
		} else {
			next.StandardVector = current.StandardVector
		}
		snapshot = m.buildSnapshot(next, vecs, current, delta, now, false, res)

	case StrategyBreakthroughMerge:
		// No blending: the step change becomes the profile of record,
		// while the milestone snapshot preserves where the user was.
		if fresh, ok := vecs[ResolutionStandard]; ok {
			next.StandardVector = fresh
		} else {
			next.StandardVector = current.StandardVector
		}
		snapshot = m.buildSnapshot(next, vecs, current, delta, now, true, res)
	}

	result := &UpdateResult{
		UserID:   userID,
		Strategy: strategy,
		Delta:    delta,
	}
	for name := range vecs {
		result.Resolutions = append(result.Resolutions, name)
	}

	var intended []string
	if snapshot != nil {
		intended = append(intended, string(CollectionEvolution))
	}
	if next.StandardVector != nil {
		intended = append(intended, string(CollectionProfiles))
	}
	if _, ok := vecs[ResolutionQuick]; ok {
		intended = append(intended, string(CollectionQuickMatch))
	}

	var intentID string
	if m.journal != nil {
		var err error
		intentID, err = m.journal.Begin(ctx, userID, string(strategy), intended)
		if err != nil {
			return nil, fmt.Errorf("journal intent for user %s: %w", userID, err)
		}
	}

	written := 0
	if snapshot != nil {
		id := m.nextSnapshotID(userID)
		payload, err := toPayload(snapshot)
		if err != nil {
			return nil, fmt.Errorf("encode snapshot for user %s: %w", userID, err)
		}
		vec := snapshotVector(vecs)
		if err := m.store.Upsert(ctx, CollectionEvolution, id, vec, payload); err != nil {
			return nil, fmt.Errorf("write evolution snapshot for user %s: %w", userID, err)
		}
		result.SnapshotID = id
		written++
	}

	if next.StandardVector != nil {
		payload, err := toPayload(next)
		if err != nil {
			return nil, fmt.Errorf("encode profile for user %s: %w", userID, err)
		}
		if err := m.store.Upsert(ctx, CollectionProfiles, userID, next.StandardVector, payload); err != nil {
			return nil, fmt.Errorf("write profile for user %s: %w", userID, err)
		}
		written++
	}

	if quick, ok := vecs[ResolutionQuick]; ok {
		payload, err := toPayload(next)
		if err != nil {
			return nil, fmt.Errorf("encode quick point for user %s: %w", userID, err)
		}
		if err := m.store.Upsert(ctx, CollectionQuickMatch, userID, quick, payload); err != nil {
			return nil, fmt.Errorf("write quick point for user %s: %w", userID, err)
		}
		written++
	}

	if m.journal != nil {
		if err := m.journal.Commit(ctx, intentID); err != nil {
			return nil, fmt.Errorf("commit journal intent for user %s: %w", userID, err)
		}
	}

	if strategy == StrategyCreate {
		m.telemetry.RecordVectorsCreated(written)
	} else {
		m.telemetry.RecordVectorsUpdated(written)
	}

	log.Printf("[PROFILE] Applied %s for user=%s (magnitude=%.4f, writes=%d)", strategy, userID, delta.Magnitude, written)
	return result, nil
}

// buildSnapshot assembles one immutable history record.
func (m *Manager) buildSnapshot(next *Profile, vecs map[string][]float32, current *Profile, delta Delta, now time.Time, milestone bool, res *analysis.Result) *EvolutionSnapshot {
	snap := &EvolutionSnapshot{
		UserID:             next.UserID,
		CreatedAt:          now,
		Resolution:         snapshotResolution(vecs),
		Traits:             next.Traits,
		DynamicTraits:      next.DynamicTraits,
		DeltaMagnitude:     delta.Magnitude,
		Classification:     delta.Classification,
		IsMilestone:        milestone,
		SignificantChanges: delta.Changes,
		QuestionID:         res.Processing.QuestionID,
		Domain:             res.Processing.Domain,
		Summary:            res.Summary.Nano,
	}
	if current != nil {
		snap.PreviousTraits = cloneScores(current.Traits)
	}
	return snap
}

// snapshotVector picks the richest vector available for a history
// point: full, then standard, then quick.
func snapshotVector(vecs map[string][]float32) []float32 {
	for _, name := range []string{ResolutionFull, ResolutionStandard, ResolutionQuick} {
		if vec, ok := vecs[name]; ok {
			return vec
		}
	}
	return nil
}

func snapshotResolution(vecs map[string][]float32) string {
	for _, name := range []string{ResolutionFull, ResolutionStandard, ResolutionQuick} {
		if _, ok := vecs[name]; ok {
			return name
		}
	}
	return ""
}

func cloneScores(scores map[string]float64) map[string]float64 {
	if scores == nil {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	return out
}
