package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// HandoffPublisher emits an order.paid event once a transaction is confirmed,
// handing the buyer off to downstream fulfillment. Messages are keyed by
// session id so events for one checkout stay ordered.
type HandoffPublisher struct {
	writer *kafka.Writer
	logger *slog.Logger
}

type paidEvent struct {
	TransactionID string    `json:"transaction_id"`
	SessionID     string    `json:"session_id"`
	ProductID     string    `json:"product_id"`
	BuyerEmail    string    `json:"buyer_email"`
	AmountCents   int64     `json:"amount_cents"`
	CouponCode    string    `json:"coupon_code,omitempty"`
	RedirectURL   string    `json:"redirect_url,omitempty"`
	PaidAt        time.Time `json:"paid_at"`
	Status        string    `json:"status"`
}

func NewHandoffPublisher(cfg config.KafkaConfig, logger *slog.Logger) *HandoffPublisher {
	return &HandoffPublisher{
		writer: &kafka.Writer{
			Addr:                   kafka.TCP(cfg.BrokerList()...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.LeastBytes{},
			AllowAutoTopicCreation: true,
		},
		logger: logger,
	}
}

func (p *HandoffPublisher) PaymentConfirmed(ctx context.Context, tx *domain.Transaction) error {
	payload, err := json.Marshal(paidEvent{
		TransactionID: tx.ID,
		SessionID:     tx.SessionID,
		ProductID:     tx.ProductID,
		BuyerEmail:    tx.BuyerEmail,
		AmountCents:   tx.Price.FinalCents,
		CouponCode:    tx.CouponCode,
		RedirectURL:   tx.RedirectURL,
		PaidAt:        time.Now().UTC(),
		Status:        string(tx.Status),
	})
	if err != nil {
		return fmt.Errorf("marshal paid event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(tx.SessionID),
		Value: payload,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte("order.paid")},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("publish paid event: %w", err)
	}

	p.logger.Info("published handoff event",
		"transaction_id", tx.ID,
		"session_id", tx.SessionID,
	)
	return nil
}

func (p *HandoffPublisher) Close() error {
	return p.writer.Close()
}
