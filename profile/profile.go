package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// EmbeddingSource converts text to a fixed-length vector for a given
// model and target dimensionality.
//
// Implementations: openai.Source (remote provider), fallback.Source
// (deterministic local generator). The Manager selects between them at
// a single decision point; callers never talk to a source directly.
type EmbeddingSource interface {
	// Embed converts text to a vector of exactly the requested
	// dimensionality. text must be non-empty.
	Embed(ctx context.Context, text string, model string, dimensions int) ([]float32, error)

	// Name identifies the source in logs and telemetry, so fallback
	// vectors are always distinguishable from genuine provider output.
	Name() string
}

// Cache stores embedding vectors keyed by content and dimensionality.
// The same text at two resolutions produces unrelated vectors and must
// never collide. Entries expire after a TTL; expired entries behave as
// misses. Only the Manager reads or writes the cache.
type Cache interface {
	Get(text string, dimensions int) ([]float32, bool)
	Put(text string, dimensions int, vec []float32)
}

// Collection identifies one of the three logical vector collections.
type Collection string

const (
	// CollectionQuickMatch holds the low-latency quick-resolution
	// vector per user. Point id = user id.
	CollectionQuickMatch Collection = "quick_match"

	// CollectionProfiles holds the profile of record (standard
	// resolution) per user. Point id = user id.
	CollectionProfiles Collection = "personality_profiles"

	// CollectionEvolution is append-only history. Point ids are
	// time-based and strictly increasing.
	CollectionEvolution Collection = "personality_evolution"
)

// Point is a stored vector with its payload.
type Point struct {
	ID      string
	Vector  []float32
	Payload map[string]any
}

// VectorStore is the persistence backend for profile vectors.
// Implementations: chromem.Store (embedded), or any remote vector
// index with put/get-by-id semantics.
type VectorStore interface {
	// Upsert writes a point, replacing any existing point with the
	// same id in the collection.
	Upsert(ctx context.Context, col Collection, id string, vector []float32, payload map[string]any) error

	// Get returns the point with the given id, or nil if absent.
	Get(ctx context.Context, col Collection, id string) (*Point, error)

	// Close releases resources.
	Close() error
}

// Journal records write intents ahead of the collection upserts so a
// partially applied update is detectable afterwards. The reference
// pipeline performs three independent upserts with no cross-collection
// transaction; the journal is the compensating record.
type Journal interface {
	// Begin persists a pending intent and returns its id.
	Begin(ctx context.Context, userID string, strategy string, writes []string) (string, error)

	// Commit marks the intent as fully applied.
	Commit(ctx context.Context, intentID string) error
}

// Profile is the current personality state for one user, as stored in
// CollectionProfiles (standard vector) and CollectionQuickMatch (quick
// vector). Mutated only by the Manager's update strategies.
type Profile struct {
	UserID         string             `json:"user_id"`
	StandardVector []float32          `json:"-"`
	Traits         map[string]float64 `json:"traits"`
	DynamicTraits  map[string]float64 `json:"dynamic_traits,omitempty"`
	SummaryNano    string             `json:"summary"`
	Reliability    float64            `json:"reliability"`
	UpdatedAt      time.Time          `json:"updated_at"`
}

// EvolutionSnapshot is one immutable history record. Created on
// breakthroughs and on evolution points; never updated or deleted.
type EvolutionSnapshot struct {
	UserID             string             `json:"user_id"`
	CreatedAt          time.Time          `json:"created_at"`
	Resolution         string             `json:"resolution"`
	Traits             map[string]float64 `json:"traits"`
	DynamicTraits      map[string]float64 `json:"dynamic_traits,omitempty"`
	PreviousTraits     map[string]float64 `json:"previous_traits,omitempty"`
	DeltaMagnitude     float64            `json:"delta_magnitude"`
	Classification     Classification     `json:"classification"`
	IsMilestone        bool               `json:"is_milestone"`
	SignificantChanges []TraitChange      `json:"significant_changes,omitempty"`
	QuestionID         string             `json:"question_id,omitempty"`
	Domain             string             `json:"domain,omitempty"`
	Summary            string             `json:"summary,omitempty"`
}

// toPayload converts a typed record to the map form stores persist.
func toPayload(v any) (map[string]any, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal payload: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(data, &payload); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return payload, nil
}

// fromPayload decodes a stored payload map into a typed record.
func fromPayload(payload map[string]any, v any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
