package profile

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Resolution names. Each resolution is the same text at a different
// cost/quality tradeoff; vectors of different resolutions are never
// comparable or merged.
const (
	ResolutionQuick    = "quick"
	ResolutionStandard = "standard"
	ResolutionFull     = "full"
)

// Resolution binds a resolution name to the provider model and target
// dimensionality used to produce it.
type Resolution struct {
	Name       string
	Model      string
	Dimensions int
}

// Resolutions holds the three fixed resolutions of the pipeline.
type Resolutions struct {
	Quick    Resolution
	Standard Resolution
	Full     Resolution
}

// Thresholds are the delta classification boundaries. They are design
// parameters, not computed values: magnitude ≤ Minor classifies as
// minor, magnitude > Breakthrough as breakthrough, anything between as
// evolution. SignificantChange is the per-trait reporting floor.
type Thresholds struct {
	Minor             float64
	Breakthrough      float64
	SignificantChange float64
}

// Config holds Manager configuration.
type Config struct {
	// Resolutions maps the quick/standard/full roles to models and
	// dimensionalities.
	Resolutions Resolutions

	// MaxTextChars is the character ceiling applied before any
	// provider call. Longer texts are truncated (and the truncation
	// logged) before the cache is consulted, so cache keys always
	// reflect the truncated text.
	MaxTextChars int

	// FullNarrativeChars triggers full-resolution embedding when the
	// narrative exceeds it.
	FullNarrativeChars int

	// FullSampleEvery bounds full-resolution cost: 1 in N users gets
	// full-resolution history on every update. The rule is a
	// deterministic hash of the user id, not a coin flip. 0 disables
	// sampling.
	FullSampleEvery int

	// Thresholds are the delta classification boundaries.
	Thresholds Thresholds

	// MinorKeepWeight is the weight of the previous standard vector in
	// the minor-change blend. The new vector gets the remainder.
	MinorKeepWeight float64

	// AdaptiveWeightCap and AdaptiveReliabilityFactor shape the
	// evolution-branch blend: new-vector weight is
	// min(AdaptiveWeightCap, reliability*AdaptiveReliabilityFactor).
	AdaptiveWeightCap         float64
	AdaptiveReliabilityFactor float64
}

// DefaultConfig mirrors the reference pipeline's parameters.
var DefaultConfig = &Config{
	Resolutions: Resolutions{
		Quick:    Resolution{Name: ResolutionQuick, Model: "text-embedding-3-small", Dimensions: 512},
		Standard: Resolution{Name: ResolutionStandard, Model: "text-embedding-3-small", Dimensions: 1536},
		Full:     Resolution{Name: ResolutionFull, Model: "text-embedding-3-large", Dimensions: 3072},
	},
	MaxTextChars:       30000,
	FullNarrativeChars: 500,
	FullSampleEvery:    10,
	Thresholds: Thresholds{
		Minor:             0.1,
		Breakthrough:      0.3,
		SignificantChange: 0.1,
	},
	MinorKeepWeight:           0.8,
	AdaptiveWeightCap:         0.5,
	AdaptiveReliabilityFactor: 0.6,
}

// EnvConfig is the deployment-facing configuration, parsed from
// SELFOLGY_* environment variables.
type EnvConfig struct {
	OpenAIAPIKey  string        `env:"SELFOLGY_OPENAI_API_KEY"`
	OpenAIBaseURL string        `env:"SELFOLGY_OPENAI_BASE_URL" envDefault:"https://api.openai.com/v1"`
	CacheTTL      time.Duration `env:"SELFOLGY_CACHE_TTL" envDefault:"24h"`
	JournalPath   string        `env:"SELFOLGY_JOURNAL_PATH"`

	MinorThreshold        float64 `env:"SELFOLGY_DELTA_MINOR" envDefault:"0.1"`
	BreakthroughThreshold float64 `env:"SELFOLGY_DELTA_BREAKTHROUGH" envDefault:"0.3"`
	FullSampleEvery       int     `env:"SELFOLGY_FULL_SAMPLE_EVERY" envDefault:"10"`
}

// LoadEnv parses EnvConfig from the environment.
func LoadEnv() (*EnvConfig, error) {
	var cfg EnvConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	return &cfg, nil
}

// Apply overlays the env-tunable knobs onto a Config copy.
func (e *EnvConfig) Apply(base *Config) *Config {
	cfg := *base
	cfg.Thresholds.Minor = e.MinorThreshold
	cfg.Thresholds.Breakthrough = e.BreakthroughThreshold
	cfg.FullSampleEvery = e.FullSampleEvery
	return &cfg
}
