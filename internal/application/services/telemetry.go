package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/config"
	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// AbandonmentWriter syncs partially entered buyer data in the background so
// a seller can follow up on abandoned checkouts. Writes are debounced per
// session and best-effort: a failure is logged and swallowed, never surfaced
// to the buyer or allowed to delay the payment path.
type AbandonmentWriter struct {
	store        application.AbandonedSessionStore
	window       time.Duration
	writeTimeout time.Duration
	logger       *slog.Logger

	mu        sync.Mutex
	pending   map[string]*time.Timer // session ID -> debounce timer
	recordIDs map[string]string      // product|email -> store record id
}

func NewAbandonmentWriter(
	store application.AbandonedSessionStore,
	cfg config.TelemetryConfig,
	logger *slog.Logger,
) *AbandonmentWriter {
	return &AbandonmentWriter{
		store:        store,
		window:       cfg.DebounceWindow,
		writeTimeout: cfg.WriteTimeout,
		logger:       logger,
		pending:      make(map[string]*time.Timer),
		recordIDs:    make(map[string]string),
	}
}

// OnSessionChange schedules a debounced write of the session's current
// state. Each call resets the session's pending timer, so only the last
// change within the window fires. Sessions without a buyer email are
// skipped: the store key requires one.
func (w *AbandonmentWriter) OnSessionChange(session *domain.CheckoutSession) {
	if session.Buyer.Email == "" {
		return
	}

	rec := application.AbandonedSession{
		ProductID:   session.Product.ID,
		BuyerName:   session.Buyer.Name,
		BuyerEmail:  session.Buyer.Email,
		BuyerPhone:  session.Buyer.PhoneCountry + session.Buyer.Phone,
		AmountCents: session.Price().FinalCents,
		Tracking:    session.Tracking,
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[session.ID]; ok {
		timer.Stop()
	}
	sessionID := session.ID
	w.pending[sessionID] = time.AfterFunc(w.window, func() {
		w.flush(sessionID, rec)
	})
}

// Cancel drops any pending write for the session. Called on teardown; a
// write already in flight is allowed to finish.
func (w *AbandonmentWriter) Cancel(sessionID string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if timer, ok := w.pending[sessionID]; ok {
		timer.Stop()
		delete(w.pending, sessionID)
	}
}

func (w *AbandonmentWriter) flush(sessionID string, rec application.AbandonedSession) {
	w.mu.Lock()
	delete(w.pending, sessionID)
	w.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), w.writeTimeout)
	defer cancel()

	id, err := w.store.Upsert(ctx, rec)
	if err != nil {
		w.logger.Warn("abandoned-session sync failed",
			"session_id", sessionID,
			"product_id", rec.ProductID,
			"error", err,
		)
		return
	}

	w.mu.Lock()
	w.recordIDs[rec.ProductID+"|"+rec.BuyerEmail] = id
	w.mu.Unlock()
}

// RecordID returns the locally cached store id for a (product, email) key.
func (w *AbandonmentWriter) RecordID(productID, email string) (string, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	id, ok := w.recordIDs[productID+"|"+email]
	return id, ok
}
