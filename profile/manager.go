package profile

import (
	"context"
	"fmt"
	"hash/fnv"
	"log"
	"sync"
	"time"

	"github.com/xksnk/selfolgy.me-sub005/analysis"
)

// Manager orchestrates the vector lifecycle for personality profiles:
// multi-resolution embedding, delta classification, and strategy-based
// persistence. One update for one user runs start to finish without
// interleaving with another update for the same user; updates for
// different users are fully independent.
type Manager struct {
	store     VectorStore
	source    EmbeddingSource
	fallback  EmbeddingSource // optional: degraded-mode generator
	cache     Cache           // optional
	journal   Journal         // optional
	telemetry *Telemetry
	config    *Config

	mu        sync.Mutex
	userLocks map[string]*sync.Mutex
	lastSnap  int64
}

// Option configures the manager.
type Option func(*Manager)

// WithFallback sets the deterministic local source used when the
// provider is unreachable after retries. Without it, transient provider
// exhaustion fails the update instead of degrading.
func WithFallback(src EmbeddingSource) Option {
	return func(m *Manager) {
		m.fallback = src
	}
}

// WithCache sets the embedding cache.
func WithCache(c Cache) Option {
	return func(m *Manager) {
		m.cache = c
	}
}

// WithJournal sets the write-ahead intent journal.
func WithJournal(j Journal) Option {
	return func(m *Manager) {
		m.journal = j
	}
}

// WithTelemetry sets the stats accumulator. Defaults to a fresh one.
func WithTelemetry(t *Telemetry) Option {
	return func(m *Manager) {
		m.telemetry = t
	}
}

// WithConfig overrides DefaultConfig.
func WithConfig(cfg *Config) Option {
	return func(m *Manager) {
		m.config = cfg
	}
}

// NewManager creates a manager over the given store and primary
// embedding source.
func NewManager(store VectorStore, source EmbeddingSource, opts ...Option) *Manager {
	m := &Manager{
		store:     store,
		source:    source,
		config:    DefaultConfig,
		telemetry: NewTelemetry(),
		userLocks: make(map[string]*sync.Mutex),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Telemetry returns the manager's stats accumulator.
func (m *Manager) Telemetry() *Telemetry {
	return m.telemetry
}

// UpdateProfile runs one analysis through the full lifecycle: validate,
// embed at the required resolutions, classify the personality delta,
// and persist via the selected strategy. On failure nothing is
// considered applied and the caller is told the update could not be
// completed; diagnostic detail stays in logs and telemetry.
func (m *Manager) UpdateProfile(ctx context.Context, userID string, res *analysis.Result) (*UpdateResult, error) {
	if userID == "" {
		return nil, fmt.Errorf("update profile: empty user id")
	}
	if err := res.Validate(); err != nil {
		return nil, fmt.Errorf("update profile for user %s: %w", userID, err)
	}

	// Serialize per user: the merge math is only correct if the read
	// of the current profile and the subsequent write are not
	// interleaved with a concurrent update for the same user.
	lock := m.userLock(userID)
	lock.Lock()
	defer lock.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vecs, err := m.embedAnalysis(ctx, userID, res)
	if err != nil {
		return nil, fmt.Errorf("update profile for user %s: %w", userID, err)
	}

	current, err := m.loadProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("update profile for user %s: %w", userID, err)
	}

	delta := ComputeDelta(currentTraits(current), res.Traits.BigFive, m.config.Thresholds)
	if res.IsBreakthroughSituation() && !delta.FirstProfile {
		delta.Classification = ChangeBreakthrough
	}

	// Cancellation is checked at the operation boundary, before any
	// write; never mid-write.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	return m.applyUpdate(ctx, userID, vecs, res, current, delta)
}

// GetProfile reads the current profile of record for a user.
// Returns nil when the user has no profile yet.
func (m *Manager) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	return m.loadProfile(ctx, userID)
}

// embedAnalysis computes the vectors for every resolution the policy
// requires. A resolution whose source text is missing is skipped, not
// retried; if all resolutions are skipped the whole update is aborted.
func (m *Manager) embedAnalysis(ctx context.Context, userID string, res *analysis.Result) (map[string][]float32, error) {
	vecs := make(map[string][]float32)

	if text := res.QuickText(); text != "" {
		vec, err := m.embedText(ctx, text, m.config.Resolutions.Quick)
		if err != nil {
			return nil, err
		}
		vecs[ResolutionQuick] = vec
	} else {
		log.Printf("[PROFILE] Skipping quick resolution for user=%s: no nano summary", userID)
	}

	narrative := res.NarrativeText()
	if narrative != "" {
		vec, err := m.embedText(ctx, narrative, m.config.Resolutions.Standard)
		if err != nil {
			return nil, err
		}
		vecs[ResolutionStandard] = vec

		if m.fullResolutionDue(userID, res) {
			full, err := m.embedText(ctx, narrative, m.config.Resolutions.Full)
			if err != nil {
				return nil, err
			}
			vecs[ResolutionFull] = full
		}
	} else {
		log.Printf("[PROFILE] Skipping standard resolution for user=%s: no narrative", userID)
	}

	if len(vecs) == 0 {
		return nil, ErrNoEmbeddableText
	}
	return vecs, nil
}

// fullResolutionDue decides whether this update earns a full-resolution
// vector: the producer tagged a breakthrough, the narrative is long, or
// the user falls in the deterministic 1-in-N sample that bounds cost
// while retaining some full-resolution history.
func (m *Manager) fullResolutionDue(userID string, res *analysis.Result) bool {
	if res.IsBreakthroughSituation() {
		return true
	}
	if len(res.NarrativeText()) > m.config.FullNarrativeChars {
		return true
	}
	if n := m.config.FullSampleEvery; n > 0 {
		h := fnv.New32a()
		h.Write([]byte(userID))
		return h.Sum32()%uint32(n) == 0
	}
	return false
}

// embedText resolves one (text, resolution) pair through truncation,
// cache, provider, and — for transient provider exhaustion only — the
// deterministic fallback. This is the single decision point between the
// real source and the degraded one.
func (m *Manager) embedText(ctx context.Context, text string, res Resolution) ([]float32, error) {
	if max := m.config.MaxTextChars; max > 0 && len(text) > max {
		log.Printf("[PROFILE] Truncating %d-char text to %d before embedding (%s)", len(text), max, res.Name)
		text = text[:max]
	}

	if m.cache != nil {
		if vec, ok := m.cache.Get(text, res.Dimensions); ok {
			m.telemetry.RecordCacheHit()
			return vec, nil
		}
		m.telemetry.RecordCacheMiss()
	}

	vec, err := m.source.Embed(ctx, text, res.Model, res.Dimensions)
	if err != nil {
		if m.fallback == nil || !IsTransientProviderError(err) {
			return nil, fmt.Errorf("embed %s resolution: %w", res.Name, err)
		}
		log.Printf("[PROFILE] Provider unavailable, substituting %s vector (%s): %v", m.fallback.Name(), res.Name, err)
		vec, err = m.fallback.Embed(ctx, text, res.Model, res.Dimensions)
		if err != nil {
			return nil, fmt.Errorf("fallback embed %s resolution: %w", res.Name, err)
		}
		m.telemetry.RecordFallbackEmbed()
	}

	if len(vec) != res.Dimensions {
		return nil, fmt.Errorf("embed %s resolution: %w: want %d, got %d", res.Name, ErrDimensionMismatch, res.Dimensions, len(vec))
	}

	if m.cache != nil {
		m.cache.Put(text, res.Dimensions, vec)
	}
	return vec, nil
}

// loadProfile reads the profile of record. Missing is not an error.
func (m *Manager) loadProfile(ctx context.Context, userID string) (*Profile, error) {
	point, err := m.store.Get(ctx, CollectionProfiles, userID)
	if err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	if point == nil {
		return nil, nil
	}
	var p Profile
	if err := fromPayload(point.Payload, &p); err != nil {
		return nil, fmt.Errorf("load profile: %w", err)
	}
	p.UserID = userID
	p.StandardVector = point.Vector
	return &p, nil
}

// userLock returns the serialization point for one user.
func (m *Manager) userLock(userID string) *sync.Mutex {
	m.mu.Lock()
	defer m.mu.Unlock()
	lock, ok := m.userLocks[userID]
	if !ok {
		lock = &sync.Mutex{}
		m.userLocks[userID] = lock
	}
	return lock
}

// nextSnapshotID returns a strictly increasing, time-based evolution
// point id. The user id suffix keeps ids of different users from
// colliding on the same tick.
func (m *Manager) nextSnapshotID(userID string) string {
	m.mu.Lock()
	nano := time.Now().UnixNano()
	if nano <= m.lastSnap {
		nano = m.lastSnap + 1
	}
	m.lastSnap = nano
	m.mu.Unlock()
	return fmt.Sprintf("%020d-%s", nano, userID)
}

func currentTraits(p *Profile) map[string]float64 {
	if p == nil {
		return nil
	}
	return p.Traits
}
