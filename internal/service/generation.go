package service

import (
	"context"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/cloo-solutions/askbase/internal/domain"
	"github.com/cloo-solutions/askbase/internal/telemetry"
)

const (
	// DefaultGenerationTimeout bounds one provider attempt.
	DefaultGenerationTimeout = 2000 * time.Millisecond
	// DefaultGenerationRetries is the number of additional attempts after
	// the first failure.
	DefaultGenerationRetries = 2
	// DefaultBackoffInitialInterval seeds the exponential retry backoff.
	DefaultBackoffInitialInterval = 250 * time.Millisecond
)

// TokenUsage reports token consumption for one completion call.
type TokenUsage struct {
	PromptTokens     int
	CompletionTokens int
}

// CompletionProvider invokes the external generation model.
type CompletionProvider interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, TokenUsage, error)
	Model() string
}

// GenerationResult is one successful completion with its accounted cost.
type GenerationResult struct {
	Text             string
	Model            string
	PromptTokens     int
	CompletionTokens int
	Cost             float64
}

// GenerationClient wraps the completion provider with per-attempt timeouts,
// bounded exponential-backoff retries and cost accounting. It never
// fabricates a response: exhausted retries surface as generation_failed.
type GenerationClient struct {
	provider        CompletionProvider
	prices          PriceTable
	timeout         time.Duration
	maxRetries      uint64
	initialInterval time.Duration
}

// GenerationOption configures a GenerationClient.
type GenerationOption func(*GenerationClient)

// WithTimeout sets the per-attempt timeout.
func WithTimeout(d time.Duration) GenerationOption {
	return func(c *GenerationClient) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithRetries sets the number of additional attempts after the first.
func WithRetries(n int) GenerationOption {
	return func(c *GenerationClient) {
		if n >= 0 {
			c.maxRetries = uint64(n)
		}
	}
}

// WithBackoffInterval sets the initial exponential backoff interval.
func WithBackoffInterval(d time.Duration) GenerationOption {
	return func(c *GenerationClient) {
		if d > 0 {
			c.initialInterval = d
		}
	}
}

// NewGenerationClient creates a GenerationClient over the given provider.
func NewGenerationClient(provider CompletionProvider, prices PriceTable, opts ...GenerationOption) *GenerationClient {
	c := &GenerationClient{
		provider:        provider,
		prices:          prices,
		timeout:         DefaultGenerationTimeout,
		maxRetries:      DefaultGenerationRetries,
		initialInterval: DefaultBackoffInitialInterval,
	}
	if c.prices == nil {
		c.prices = DefaultPriceTable()
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Generate invokes the provider with the assembled prompt. Each attempt gets
// its own timeout; transient failures are retried with exponential backoff.
// Caller cancellation stops retrying immediately.
func (c *GenerationClient) Generate(ctx context.Context, systemPrompt, userPrompt string) (*GenerationResult, error) {
	var text string
	var usage TokenUsage

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = c.initialInterval

	attempt := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		var err error
		text, usage, err = c.provider.Complete(attemptCtx, systemPrompt, userPrompt)
		return err
	}

	err := backoff.Retry(attempt, backoff.WithContext(backoff.WithMaxRetries(policy, c.maxRetries), ctx))
	if err != nil {
		return nil, domain.NewDomainErrorWithCause(domain.ErrCodeGenerationFailed, "completion failed after exhausted retries", err)
	}

	model := c.provider.Model()
	cost, known := c.prices.Cost(model, usage.PromptTokens, usage.CompletionTokens)
	if !known {
		// Non-fatal: billing reconciliation flags zero-cost anomalies later.
		log.Printf("generation: unknown model %q, recording zero cost", model)
		telemetry.CaptureMessage(ctx, "cost_calculation_unknown_model: "+model)
	}

	return &GenerationResult{
		Text:             text,
		Model:            model,
		PromptTokens:     usage.PromptTokens,
		CompletionTokens: usage.CompletionTokens,
		Cost:             cost,
	}, nil
}
