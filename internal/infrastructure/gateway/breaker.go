package gateway

import (
	"context"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/nmonteiro/checkout-engine/internal/application"
)

// BreakerGatewayClient wraps the gateway client with a circuit breaker so a
// flapping gateway fails fast instead of tying up buyers in retries. Status
// lookups share the breaker: a gateway that cannot answer status checks is
// just as unavailable as one that cannot create charges.
type BreakerGatewayClient struct {
	inner   application.GatewayClient
	breaker *gobreaker.CircuitBreaker[any]
}

func NewBreakerGatewayClient(inner application.GatewayClient) application.GatewayClient {
	settings := gobreaker.Settings{
		Name:        "payment-gateway",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.Requests >= 5 && counts.ConsecutiveFailures >= 5
		},
	}

	return &BreakerGatewayClient{
		inner:   inner,
		breaker: gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerGatewayClient) CreateInstruction(ctx context.Context, req application.CreateInstructionRequest, idempotencyKey string) (*application.CreateInstructionResponse, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.CreateInstruction(ctx, req, idempotencyKey)
	})
	if err != nil {
		return nil, err
	}
	return result.(*application.CreateInstructionResponse), nil
}

func (b *BreakerGatewayClient) LookupStatus(ctx context.Context, transactionID string) (*application.StatusResponse, error) {
	result, err := b.breaker.Execute(func() (any, error) {
		return b.inner.LookupStatus(ctx, transactionID)
	})
	if err != nil {
		return nil, err
	}
	return result.(*application.StatusResponse), nil
}
