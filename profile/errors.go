package profile

import (
	"errors"
	"fmt"
)

// ErrNoEmbeddableText is returned when every resolution had to be
// skipped because the analysis carried no usable text. The update is
// aborted; no partial vector set is ever persisted.
var ErrNoEmbeddableText = errors.New("analysis has no embeddable text for any resolution")

// ErrDimensionMismatch is returned when a merge is attempted between
// vectors of different lengths. Mismatches are a hard failure, never
// silently truncated or padded.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// ProviderError describes a failed embedding provider call.
// Transient errors (rate limiting, timeouts, connection failures,
// generic provider faults) are retried and, once retries are
// exhausted, routed to the deterministic fallback. Non-transient
// errors fail the embedding step immediately.
type ProviderError struct {
	Model     string
	Status    int
	Transient bool
	Err       error
}

func (e *ProviderError) Error() string {
	kind := "permanent"
	if e.Transient {
		kind = "transient"
	}
	if e.Status > 0 {
		return fmt.Sprintf("embedding provider %s error (model=%s, status=%d): %v", kind, e.Model, e.Status, e.Err)
	}
	return fmt.Sprintf("embedding provider %s error (model=%s): %v", kind, e.Model, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsTransientProviderError reports whether err is a provider error
// eligible for fallback substitution.
func IsTransientProviderError(err error) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Transient
}
