// Package profile maintains per-user personality profiles as embedding
// vectors derived from free-text psychological analyses.
//
// Each incoming analysis is embedded at up to three resolutions
// (quick/standard/full), compared against the stored trait snapshot, and
// persisted with a strategy chosen by how much the personality moved:
// trivial changes blend into the existing vectors, evolutionary changes
// merge adaptively, and breakthroughs are preserved as immutable
// milestone snapshots alongside the overwritten current profile.
//
// Architecture:
//   - EmbeddingSource: text-to-vector conversion (remote provider for
//     production, deterministic local generator for degraded mode)
//   - Cache: content+dimension keyed embedding cache with TTL
//   - VectorStore: persistence across three logical collections
//     (quick_match, personality_profiles, personality_evolution)
//   - Journal: optional write-ahead intent record for detecting
//     partially applied updates
//   - Manager: orchestrates embedding, delta classification, and the
//     update strategy for one analysis at a time per user
//
// Local implementations:
//   - embedder/openai: OpenAI embeddings API with retries and backoff
//   - embedder/fallback: hash-seeded deterministic vectors
//   - store/chromem: chromem-go embedded vector database
//   - journal: SQLite intent log
package profile
