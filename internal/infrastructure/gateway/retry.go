package gateway

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/config"
)

// RetryGatewayClient retries the create-instruction call on transient
// failures. Status lookups pass through untouched: the confirmation poller
// already paces those with its own backoff.
type RetryGatewayClient struct {
	inner      application.GatewayClient
	baseDelay  time.Duration
	maxRetries int
}

func NewRetryGatewayClient(inner application.GatewayClient, cfg config.RetryConfig) application.GatewayClient {
	return &RetryGatewayClient{
		inner:      inner,
		baseDelay:  time.Duration(cfg.BaseDelay) * time.Millisecond,
		maxRetries: int(cfg.MaxRetries),
	}
}

func (r *RetryGatewayClient) CreateInstruction(ctx context.Context, req application.CreateInstructionRequest, idempotencyKey string) (*application.CreateInstructionResponse, error) {
	return retry(
		r,
		ctx,
		func(ctx context.Context) (*application.CreateInstructionResponse, error) {
			return r.inner.CreateInstruction(ctx, req, idempotencyKey)
		},
	)
}

func (r *RetryGatewayClient) LookupStatus(ctx context.Context, transactionID string) (*application.StatusResponse, error) {
	return r.inner.LookupStatus(ctx, transactionID)
}

// Generic retry helper
func retry[T any](r *RetryGatewayClient, ctx context.Context, operation func(ctx context.Context) (*T, error)) (*T, error) {
	var lastErr error

	for attempt := 0; attempt < r.maxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		resp, err := operation(ctx)
		if err == nil {
			return resp, nil
		}

		lastErr = err

		if !isRetryable(err) {
			return nil, err
		}

		if attempt < r.maxRetries-1 {
			time.Sleep(r.backoff(attempt))
		}
	}

	return nil, fmt.Errorf("maximum retries exceeded: %w", lastErr)
}

// Helper: to check retryable errors
func isRetryable(err error) bool {
	var gwErr *GatewayError
	if errors.As(err, &gwErr) {
		if gwErr.StatusCode >= 500 {
			return true
		}

		if gwErr.Code == "internal_error" {
			return true
		}

		return false
	}

	if errors.Is(err, context.Canceled) {
		return false
	}

	return true
}

// Backoff calculation with exponential delay and jitter
func (r *RetryGatewayClient) backoff(attempt int) time.Duration {
	base := r.baseDelay * time.Duration(1<<attempt)

	jitter := time.Duration(rand.Intn(100)) * time.Millisecond

	return base + jitter
}
