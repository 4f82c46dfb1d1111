package extract

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/sethvargo/go-retry"
	"golang.org/x/time/rate"

	"wishforge/internal/metrics"
	"wishforge/internal/model"
)

// SamplingParams are the knobs forwarded to the model provider.
type SamplingParams struct {
	Temperature float64
	MaxTokens   int
}

// ModelClient is the injected capability that performs the actual model
// call. It may fail on transport or timeout; the extractor counts that as
// a failed attempt.
type ModelClient interface {
	Complete(ctx context.Context, prompt string, params SamplingParams) (string, error)
}

const (
	baseTemperature = 0.7
	maxTokens       = 512

	// Appended on every attempt after the first.
	strictDirective = "Return ONLY one JSON object. No markdown, no code fences, no prose."

	retryDelay = 100 * time.Millisecond
)

// Extractor runs a bounded number of model attempts and always produces a
// schema-conformant value. The attempt budget, escalation and fallback are
// data on the struct, not control flow scattered through callers.
type Extractor struct {
	client      ModelClient
	maxAttempts int
	timeout     time.Duration
	limiter     *rate.Limiter
}

// NewExtractor wires a model client with an attempt budget, a per-attempt
// timeout and a provider-wide rate limit (rps <= 0 disables limiting).
func NewExtractor(client ModelClient, maxAttempts int, timeout time.Duration, rps int) *Extractor {
	limiter := rate.NewLimiter(rate.Inf, 1)
	if rps > 0 {
		limiter = rate.NewLimiter(rate.Limit(rps), rps)
	}
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Extractor{
		client:      client,
		maxAttempts: maxAttempts,
		timeout:     timeout,
		limiter:     limiter,
	}
}

// Extract never fails: on exhausting the attempt budget it returns the
// schema's deterministic fallback tagged from_fallback. Malformed output,
// transport errors and timeouts all just consume attempts.
func (e *Extractor) Extract(ctx context.Context, prompt string, schema Schema) model.Extraction {
	attempts := 0
	var value map[string]any

	backoff := retry.WithMaxRetries(uint64(e.maxAttempts-1), retry.NewConstant(retryDelay))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt := attempts
		attempts++
		v, err := e.attempt(ctx, prompt, schema, attempt)
		if err != nil {
			slog.Warn("extraction attempt failed",
				"schema", schema.Name,
				"attempt", attempt,
				"error", err,
			)
			metrics.ExtractionAttempts.WithLabelValues(metrics.OutcomeInvalid).Inc()
			return retry.RetryableError(err)
		}
		metrics.ExtractionAttempts.WithLabelValues(metrics.OutcomeOK).Inc()
		value = v
		return nil
	})
	if err != nil {
		metrics.ExtractionFallbacks.Inc()
		slog.Warn("extraction exhausted attempt budget, using fallback",
			"schema", schema.Name,
			"attempts", attempts,
			"error", err,
		)
		return model.Extraction{
			Value:      schema.FallbackValue(),
			Provenance: model.ProvenanceFallback,
			Attempts:   attempts,
		}
	}

	return model.Extraction{
		Value:      value,
		Provenance: model.ProvenanceModel,
		Attempts:   attempts,
	}
}

func (e *Extractor) attempt(ctx context.Context, prompt string, schema Schema, attempt int) (map[string]any, error) {
	instruction := prompt + "\n\n" + schema.Hint()
	params := SamplingParams{Temperature: baseTemperature, MaxTokens: maxTokens}
	if attempt >= 1 {
		instruction += "\n" + strictDirective
		params.Temperature = 0
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	attemptCtx := ctx
	if e.timeout > 0 {
		var cancel context.CancelFunc
		attemptCtx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	raw, err := e.client.Complete(attemptCtx, instruction, params)
	if err != nil {
		return nil, fmt.Errorf("model call: %w", err)
	}

	doc, err := Parse(raw)
	if err != nil {
		return nil, err
	}

	return schema.Validate(doc)
}
