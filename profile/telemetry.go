package profile

import (
	"sync/atomic"
	"time"
)

// Telemetry accumulates running counters for one pipeline instance.
// It is an explicitly owned, injectable object with atomic increments —
// no process-wide singleton — so deployments and tests each get their
// own isolated instance. Intended for operational dashboards, not for
// correctness.
type Telemetry struct {
	vectorsCreated atomic.Int64
	vectorsUpdated atomic.Int64

	apiCalls     atomic.Int64
	apiSuccesses atomic.Int64
	apiFailures  atomic.Int64

	cacheHits   atomic.Int64
	cacheMisses atomic.Int64

	fallbackEmbeds atomic.Int64

	tokensEstimated atomic.Int64
	costMicros      atomic.Int64
	latencyMicros   atomic.Int64
}

// NewTelemetry returns a zeroed accumulator.
func NewTelemetry() *Telemetry {
	return &Telemetry{}
}

// RecordAPISuccess records one successful provider call.
// costMicros is the estimated cost in millionths of a dollar.
func (t *Telemetry) RecordAPISuccess(tokens int64, latency time.Duration, costMicros int64) {
	t.apiCalls.Add(1)
	t.apiSuccesses.Add(1)
	t.tokensEstimated.Add(tokens)
	t.costMicros.Add(costMicros)
	t.latencyMicros.Add(latency.Microseconds())
}

// RecordAPIFailure records one provider call that exhausted its retries
// or failed permanently.
func (t *Telemetry) RecordAPIFailure() {
	t.apiCalls.Add(1)
	t.apiFailures.Add(1)
}

// RecordCacheHit records an embedding served from cache.
func (t *Telemetry) RecordCacheHit() { t.cacheHits.Add(1) }

// RecordCacheMiss records a cache miss.
func (t *Telemetry) RecordCacheMiss() { t.cacheMisses.Add(1) }

// RecordFallbackEmbed records a deterministic fallback vector standing
// in for a provider response. Substitution is never hidden.
func (t *Telemetry) RecordFallbackEmbed() { t.fallbackEmbeds.Add(1) }

// RecordVectorsCreated counts points written for a brand-new profile.
func (t *Telemetry) RecordVectorsCreated(n int) { t.vectorsCreated.Add(int64(n)) }

// RecordVectorsUpdated counts points rewritten for an existing profile.
func (t *Telemetry) RecordVectorsUpdated(n int) { t.vectorsUpdated.Add(int64(n)) }

// Stats is a read-only snapshot of the accumulated counters plus
// derived efficiency ratios.
type Stats struct {
	VectorsCreated int64
	VectorsUpdated int64

	APICalls     int64
	APISuccesses int64
	APIFailures  int64

	CacheHits   int64
	CacheMisses int64

	FallbackEmbeds int64

	TokensEstimated int64
	TotalCostUSD    float64
	AvgLatency      time.Duration

	SuccessRate    float64
	CacheHitRate   float64
	AvgCostPerCall float64
}

// Snapshot returns a point-in-time view of the counters.
func (t *Telemetry) Snapshot() Stats {
	s := Stats{
		VectorsCreated:  t.vectorsCreated.Load(),
		VectorsUpdated:  t.vectorsUpdated.Load(),
		APICalls:        t.apiCalls.Load(),
		APISuccesses:    t.apiSuccesses.Load(),
		APIFailures:     t.apiFailures.Load(),
		CacheHits:       t.cacheHits.Load(),
		CacheMisses:     t.cacheMisses.Load(),
		FallbackEmbeds:  t.fallbackEmbeds.Load(),
		TokensEstimated: t.tokensEstimated.Load(),
	}
	s.TotalCostUSD = float64(t.costMicros.Load()) / 1e6

	if s.APICalls > 0 {
		s.SuccessRate = float64(s.APISuccesses) / float64(s.APICalls)
		s.AvgCostPerCall = s.TotalCostUSD / float64(s.APICalls)
	}
	if s.APISuccesses > 0 {
		s.AvgLatency = time.Duration(t.latencyMicros.Load()/s.APISuccesses) * time.Microsecond
	}
	if lookups := s.CacheHits + s.CacheMisses; lookups > 0 {
		s.CacheHitRate = float64(s.CacheHits) / float64(lookups)
	}
	return s
}
