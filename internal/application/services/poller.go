package services

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/polling"
)

// ConfirmationPoller drives repeated status checks against the gateway for
// open payment instructions. One loop runs per transaction; starting a watch
// for a session's new transaction is always preceded by stopping the old one.
type ConfirmationPoller struct {
	gateway      application.GatewayClient
	handoff      application.HandoffPublisher
	policy       polling.Backoff
	budget       time.Duration
	cooldown     time.Duration
	handoffDelay time.Duration
	logger       *slog.Logger
	now          func() time.Time

	mu      sync.Mutex
	watches map[string]*watch // keyed by transaction ID
}

// watch is the per-transaction polling state.
type watch struct {
	tx     *domain.Transaction
	cancel context.CancelFunc
	done   chan struct{}

	mu           sync.Mutex
	pollInFlight bool
	nextManualAt time.Time
	timedOut     bool
}

func NewConfirmationPoller(
	gatewayClient application.GatewayClient,
	handoff application.HandoffPublisher,
	cfg config.PollingConfig,
	logger *slog.Logger,
) *ConfirmationPoller {
	return &ConfirmationPoller{
		gateway: gatewayClient,
		handoff: handoff,
		policy: polling.Backoff{
			Initial: cfg.InitialInterval,
			Factor:  cfg.Factor,
			Max:     cfg.MaxInterval,
		},
		budget:       cfg.TotalBudget,
		cooldown:     cfg.ManualCooldown,
		handoffDelay: cfg.HandoffDelay,
		logger:       logger,
		now:          time.Now,
		watches:      make(map[string]*watch),
	}
}

// WithClock overrides the time source. Used by tests that need a fixed clock.
func (p *ConfirmationPoller) WithClock(now func() time.Time) *ConfirmationPoller {
	p.now = now
	return p
}

// StartPolling begins the confirmation loop for a transaction that just
// entered AwaitingPayment. The first poll fires immediately; the wall-clock
// budget runs from that first poll. If the budget is exhausted without a
// terminal status the loop stops but the transaction keeps its last-known
// status: the payment may still complete out of band and the manual check
// stays available.
func (p *ConfirmationPoller) StartPolling(tx *domain.Transaction) {
	ctx, cancel := context.WithCancel(context.Background())
	w := &watch{
		tx:     tx,
		cancel: cancel,
		done:   make(chan struct{}),
	}

	p.mu.Lock()
	p.watches[tx.ID] = w
	p.mu.Unlock()

	go func() {
		defer close(w.done)

		_, err := polling.PollUntil(ctx, p.checkOnce(w), p.policy, p.budget)
		switch {
		case err == nil:
			// Terminal status applied inside checkOnce.
		case errors.Is(err, polling.ErrBudgetExceeded):
			w.mu.Lock()
			w.timedOut = true
			attempts := w.tx.AttemptCount
			w.mu.Unlock()
			p.logger.Warn("could not confirm payment within budget",
				"transaction_id", w.tx.ID,
				"attempts", attempts,
			)
		case errors.Is(err, context.Canceled):
			// Watch stopped: session torn down or replaced by a new transaction.
		default:
			p.logger.Error("confirmation loop stopped unexpectedly", "transaction_id", tx.ID, "error", err)
		}
	}()
}

// checkOnce builds the polling check for one transaction. A gateway failure
// or an unreachable status counts as "unknown" and keeps the loop going.
func (p *ConfirmationPoller) checkOnce(w *watch) polling.CheckFunc[domain.TransactionStatus] {
	return func(ctx context.Context) (domain.TransactionStatus, bool, error) {
		w.mu.Lock()
		if w.tx.IsTerminal() {
			status := w.tx.Status
			w.mu.Unlock()
			return status, true, nil
		}
		w.pollInFlight = true
		w.mu.Unlock()

		resp, err := p.gateway.LookupStatus(ctx, w.tx.ID)

		w.mu.Lock()
		w.pollInFlight = false
		w.tx.AttemptCount++
		if w.tx.FirstPolledAt == nil {
			firstPoll := p.now()
			w.tx.FirstPolledAt = &firstPoll
		}
		w.mu.Unlock()

		if err != nil {
			p.logger.Debug("status lookup failed, will retry", "transaction_id", w.tx.ID, "error", err)
			return "", false, err
		}

		mapped := domain.MapGatewayStatus(resp.Status)
		if mapped == domain.StatusAwaitingPayment {
			return mapped, false, nil
		}

		p.finalize(w, mapped)
		return mapped, true, nil
	}
}

// ManualCheck performs a buyer-triggered out-of-band status check. It is a
// no-op while a backoff-driven poll is in flight and is rejected for the
// fixed cooldown window after each manual check; both paths issue no
// gateway call. The returned transaction is a snapshot.
func (p *ConfirmationPoller) ManualCheck(ctx context.Context, transactionID string) (domain.Transaction, error) {
	w := p.watch(transactionID)
	if w == nil {
		return domain.Transaction{}, domain.NewTransactionNotFoundError(transactionID)
	}

	now := p.now()

	w.mu.Lock()
	if w.tx.IsTerminal() || w.pollInFlight {
		snapshot := *w.tx
		w.mu.Unlock()
		return snapshot, nil
	}
	if now.Before(w.nextManualAt) {
		w.mu.Unlock()
		return domain.Transaction{}, application.NewManualCheckCooldownError()
	}
	w.nextManualAt = now.Add(p.cooldown)
	w.tx.NextManualCheckAt = w.nextManualAt
	w.mu.Unlock()

	resp, err := p.gateway.LookupStatus(ctx, w.tx.ID)
	if err != nil {
		return domain.Transaction{}, application.NewNetworkError(err)
	}

	mapped := domain.MapGatewayStatus(resp.Status)
	if mapped != domain.StatusAwaitingPayment {
		p.finalize(w, mapped)
		w.cancel()
	}

	w.mu.Lock()
	snapshot := *w.tx
	w.mu.Unlock()
	return snapshot, nil
}

// Snapshot returns a copy of the transaction's current state, if watched.
func (p *ConfirmationPoller) Snapshot(transactionID string) (domain.Transaction, bool) {
	w := p.watch(transactionID)
	if w == nil {
		return domain.Transaction{}, false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return *w.tx, true
}

// TimedOut reports whether the automatic loop gave up without a terminal
// status. Callers surface this as "could not confirm automatically", never
// as a hard failure.
func (p *ConfirmationPoller) TimedOut(transactionID string) bool {
	w := p.watch(transactionID)
	if w == nil {
		return false
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.timedOut
}

// Stop cancels the confirmation loop for a transaction. Safe to call for
// unknown ids and after the loop already finished.
func (p *ConfirmationPoller) Stop(transactionID string) {
	p.mu.Lock()
	w, ok := p.watches[transactionID]
	if ok {
		delete(p.watches, transactionID)
	}
	p.mu.Unlock()

	if ok {
		w.cancel()
	}
}

// Wait blocks until the confirmation loop for a transaction has exited.
// Only tests need this.
func (p *ConfirmationPoller) Wait(transactionID string) {
	w := p.watch(transactionID)
	if w == nil {
		return
	}
	<-w.done
}

func (p *ConfirmationPoller) watch(transactionID string) *watch {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.watches[transactionID]
}

// finalize applies a terminal status exactly once and, for Paid, schedules
// the post-purchase handoff after the configured delay.
func (p *ConfirmationPoller) finalize(w *watch, target domain.TransactionStatus) {
	w.mu.Lock()
	if w.tx.IsTerminal() {
		w.mu.Unlock()
		return
	}
	if err := w.tx.TransitionTo(target); err != nil {
		w.mu.Unlock()
		p.logger.Error("refusing invalid status transition", "transaction_id", w.tx.ID, "target", target, "error", err)
		return
	}
	snapshot := *w.tx
	w.mu.Unlock()

	p.logger.Info("transaction reached terminal status", "transaction_id", snapshot.ID, "status", snapshot.Status)

	if snapshot.Status != domain.StatusPaid {
		return
	}

	go func() {
		// Short pause so the success acknowledgement can render first.
		if p.handoffDelay > 0 {
			time.Sleep(p.handoffDelay)
		}
		ctx, cancelTimeout := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancelTimeout()
		if err := p.handoff.PaymentConfirmed(ctx, &snapshot); err != nil {
			p.logger.Error("post-purchase handoff failed", "transaction_id", snapshot.ID, "error", err)
		}
	}()
}
