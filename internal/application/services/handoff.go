package services

import (
	"context"
	"errors"
	"log/slog"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// HandoffFanout delivers a confirmed payment to every downstream target:
// typically the order ledger first, then the event stream. Each target is
// attempted even when an earlier one fails.
type HandoffFanout struct {
	targets []application.HandoffPublisher
	logger  *slog.Logger
}

func NewHandoffFanout(logger *slog.Logger, targets ...application.HandoffPublisher) *HandoffFanout {
	return &HandoffFanout{targets: targets, logger: logger}
}

func (f *HandoffFanout) PaymentConfirmed(ctx context.Context, tx *domain.Transaction) error {
	var errs []error
	for _, target := range f.targets {
		if err := target.PaymentConfirmed(ctx, tx); err != nil {
			f.logger.Warn("handoff target failed",
				"transaction_id", tx.ID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
