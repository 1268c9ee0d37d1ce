// Package openai implements the remote embedding source on the OpenAI
// embeddings API.
//
// Calls are rate limited, retried with exponential backoff on transient
// failures (rate limiting, timeouts, connection faults, server errors),
// and surfaced as typed provider errors so the manager can decide
// between failing the update and degrading to the deterministic
// fallback generator.
package openai

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"golang.org/x/time/rate"

	"github.com/xksnk/selfolgy.me-sub005/profile"
)

// SourceName identifies provider vectors in logs and telemetry.
const SourceName = "openai"

// Config holds provider client settings.
type Config struct {
	// APIKey authenticates against the provider. Empty means the
	// provider is not configured; every call then reports a transient
	// failure so the pipeline can degrade to the fallback source.
	APIKey string

	// BaseURL targets the API (or an OpenAI-compatible stand-in).
	BaseURL string

	// AttemptTimeout bounds each individual provider call.
	AttemptTimeout time.Duration

	// MaxAttempts is the total attempt count including the first call.
	MaxAttempts int

	// InitialBackoff doubles per retry, capped at MaxBackoff.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// RequestsPerSecond throttles outgoing calls. 0 disables.
	RequestsPerSecond float64

	// CostPer1KTokens estimates spend per model, in USD.
	CostPer1KTokens map[string]float64
}

// DefaultConfig mirrors the reference pipeline's retry policy.
var DefaultConfig = &Config{
	BaseURL:        "https://api.openai.com/v1",
	AttemptTimeout: 30 * time.Second,
	MaxAttempts:    3,
	InitialBackoff: time.Second,
	MaxBackoff:     10 * time.Second,
	CostPer1KTokens: map[string]float64{
		"text-embedding-3-small": 0.00002,
		"text-embedding-3-large": 0.00013,
	},
}

// Source is the remote embedding source.
type Source struct {
	client    openai.Client
	config    *Config
	telemetry *profile.Telemetry
	limiter   *rate.Limiter
}

// New creates a provider source. telemetry may be shared with the
// manager so provider cost and latency land on the same dashboard.
func New(cfg *Config, telemetry *profile.Telemetry) *Source {
	if cfg == nil {
		cfg = DefaultConfig
	}
	if telemetry == nil {
		telemetry = profile.NewTelemetry()
	}

	// The SDK retries internally by default; retry policy lives here
	// instead, where telemetry can see every attempt.
	opts := []option.RequestOption{
		option.WithHTTPClient(&http.Client{Timeout: cfg.AttemptTimeout}),
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.APIKey != "" {
		opts = append(opts, option.WithAPIKey(cfg.APIKey))
	}

	s := &Source{
		client:    openai.NewClient(opts...),
		config:    cfg,
		telemetry: telemetry,
	}
	if cfg.RequestsPerSecond > 0 {
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), 1)
	}
	return s
}

// Name implements profile.EmbeddingSource.
func (s *Source) Name() string {
	return SourceName
}

// Embed calls the embeddings endpoint with bounded retries.
func (s *Source) Embed(ctx context.Context, text string, model string, dimensions int) ([]float32, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &profile.ProviderError{
			Model: model,
			Err:   errors.New("empty text"),
		}
	}
	if s.config.APIKey == "" {
		s.telemetry.RecordAPIFailure()
		return nil, &profile.ProviderError{
			Model:     model,
			Transient: true,
			Err:       errors.New("provider not configured"),
		}
	}

	backoff := s.config.InitialBackoff
	var lastErr error
	var lastStatus int
	for attempt := 1; attempt <= s.config.MaxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		vec, err := s.doEmbed(ctx, text, model, dimensions)
		if err == nil {
			return vec, nil
		}
		lastErr = err

		status, transient := classify(err)
		lastStatus = status
		if !transient {
			s.telemetry.RecordAPIFailure()
			return nil, &profile.ProviderError{Model: model, Status: status, Err: err}
		}
		if attempt == s.config.MaxAttempts {
			break
		}

		log.Printf("[EMBED] Transient provider error (attempt %d/%d, status=%d), retrying in %s: %v",
			attempt, s.config.MaxAttempts, status, backoff, err)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > s.config.MaxBackoff {
			backoff = s.config.MaxBackoff
		}
	}

	s.telemetry.RecordAPIFailure()
	return nil, &profile.ProviderError{Model: model, Status: lastStatus, Transient: true, Err: lastErr}
}

// doEmbed performs one provider call and records its cost and latency.
func (s *Source) doEmbed(ctx context.Context, text string, model string, dimensions int) ([]float32, error) {
	attemptCtx := ctx
	if s.config.AttemptTimeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, s.config.AttemptTimeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := s.client.Embeddings.New(attemptCtx, openai.EmbeddingNewParams{
		Input:      openai.EmbeddingNewParamsInputUnion{OfString: openai.String(text)},
		Model:      openai.EmbeddingModel(model),
		Dimensions: openai.Int(int64(dimensions)),
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, fmt.Errorf("provider returned no embedding data")
	}

	tokens := estimateTokens(text)
	s.telemetry.RecordAPISuccess(tokens, time.Since(start), s.estimateCostMicros(model, tokens))

	raw := resp.Data[0].Embedding
	vec := make([]float32, len(raw))
	for i, v := range raw {
		vec[i] = float32(v)
	}
	return vec, nil
}

// estimateTokens is the coarse len/4 heuristic used for cost tracking.
func estimateTokens(text string) int64 {
	return int64(len(text) / 4)
}

func (s *Source) estimateCostMicros(model string, tokens int64) int64 {
	price, ok := s.config.CostPer1KTokens[model]
	if !ok {
		return 0
	}
	return int64(float64(tokens) / 1000 * price * 1e6)
}

// classify splits provider failures into transient (retryable) and
// permanent. Rate limiting, request timeouts, server faults, and
// connection errors are transient; malformed requests are not.
func classify(err error) (status int, transient bool) {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.StatusCode == http.StatusTooManyRequests:
			return apiErr.StatusCode, true
		case apiErr.StatusCode == http.StatusRequestTimeout:
			return apiErr.StatusCode, true
		case apiErr.StatusCode >= 500:
			return apiErr.StatusCode, true
		default:
			return apiErr.StatusCode, false
		}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 0, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return 0, true
	}
	// Unrecognized transport-level failures count as generic provider
	// faults and stay retryable.
	return 0, true
}
