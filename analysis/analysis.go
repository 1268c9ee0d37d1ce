// Package analysis defines the input contract between the answer-analysis
// producer and the profile pipeline.
//
// The producer hands over a JSON object describing one psychological
// analysis of a user's answer. The pipeline treats it as read-only and
// validates it at the boundary: a malformed result is rejected before any
// embedding work begins, so missing keys are never discovered deep inside
// merge logic.
package analysis

import (
	"encoding/json"
	"fmt"
)

// Big Five trait names. This is the fixed taxonomy the delta engine
// computes over; producers must score every trait.
const (
	TraitOpenness          = "openness"
	TraitConscientiousness = "conscientiousness"
	TraitExtraversion      = "extraversion"
	TraitAgreeableness     = "agreeableness"
	TraitNeuroticism       = "neuroticism"
)

// BigFiveTraits lists the taxonomy in canonical order.
var BigFiveTraits = []string{
	TraitOpenness,
	TraitConscientiousness,
	TraitExtraversion,
	TraitAgreeableness,
	TraitNeuroticism,
}

// SpecialSituationBreakthrough marks an analysis the producer already
// considers a breakthrough moment. It forces full-resolution embedding
// and upgrades the delta classification.
const SpecialSituationBreakthrough = "breakthrough"

// Summary carries the embedding-ready text forms of one analysis.
// Nano is a short tag used for quick-match embeddings; Narrative is the
// full text used for the profile of record. EmbeddingPrompt, when set,
// replaces Nano as the quick-resolution source.
type Summary struct {
	Nano            string `json:"nano"`
	Narrative       string `json:"narrative"`
	EmbeddingPrompt string `json:"embedding_prompt,omitempty"`
}

// Traits holds the numeric personality scores, each in [0,1].
// BigFive is required and complete; DynamicTraits is an optional open
// set that is stored with snapshots but excluded from delta magnitude.
type Traits struct {
	BigFive       map[string]float64 `json:"big_five"`
	DynamicTraits map[string]float64 `json:"dynamic_traits,omitempty"`
}

// Quality carries the producer's confidence in the analysis.
type Quality struct {
	OverallReliability float64 `json:"overall_reliability"`
}

// Processing carries free-form context about what triggered the analysis.
type Processing struct {
	QuestionID       string `json:"question_id"`
	Domain           string `json:"domain"`
	SpecialSituation string `json:"special_situation,omitempty"`
}

// Result is one structured analysis as produced upstream.
type Result struct {
	Summary    Summary    `json:"personality_summary"`
	Traits     Traits     `json:"personality_traits"`
	Quality    Quality    `json:"quality_metadata"`
	Processing Processing `json:"processing_metadata"`
}

// Parse decodes and validates a producer payload.
func Parse(data []byte) (*Result, error) {
	var r Result
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode analysis result: %w", err)
	}
	if err := r.Validate(); err != nil {
		return nil, err
	}
	return &r, nil
}

// Validate checks the invariants the pipeline relies on.
// Narrative and/or Nano must be non-empty — with neither there is
// nothing to embed and the whole update must be aborted.
func (r *Result) Validate() error {
	if r.Summary.Narrative == "" && r.Summary.Nano == "" {
		return fmt.Errorf("personality_summary: narrative and nano both empty")
	}
	if r.Traits.BigFive == nil {
		return fmt.Errorf("personality_traits: big_five missing")
	}
	for _, name := range BigFiveTraits {
		score, ok := r.Traits.BigFive[name]
		if !ok {
			return fmt.Errorf("personality_traits: big_five missing trait %q", name)
		}
		if score < 0 || score > 1 {
			return fmt.Errorf("personality_traits: trait %q score %.3f outside [0,1]", name, score)
		}
	}
	for name, score := range r.Traits.DynamicTraits {
		if score < 0 || score > 1 {
			return fmt.Errorf("personality_traits: dynamic trait %q score %.3f outside [0,1]", name, score)
		}
	}
	if r.Quality.OverallReliability < 0 || r.Quality.OverallReliability > 1 {
		return fmt.Errorf("quality_metadata: overall_reliability %.3f outside [0,1]", r.Quality.OverallReliability)
	}
	return nil
}

// IsBreakthroughSituation reports whether the producer tagged this
// analysis as a breakthrough moment.
func (r *Result) IsBreakthroughSituation() bool {
	return r.Processing.SpecialSituation == SpecialSituationBreakthrough
}

// QuickText returns the text used for the quick resolution, preferring
// the dedicated embedding prompt over the nano tag. Empty means the
// quick resolution must be skipped.
func (r *Result) QuickText() string {
	if r.Summary.EmbeddingPrompt != "" {
		return r.Summary.EmbeddingPrompt
	}
	return r.Summary.Nano
}

// NarrativeText returns the text used for the standard and full
// resolutions. Empty means those resolutions must be skipped.
func (r *Result) NarrativeText() string {
	return r.Summary.Narrative
}
