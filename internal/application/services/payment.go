package services

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/nmonteiro/checkout-engine/internal/application"
	"github.com/nmonteiro/checkout-engine/internal/domain"
	"github.com/nmonteiro/checkout-engine/internal/infrastructure/gateway"
)

// InitiateResult is the outcome of an initiate-payment attempt: either the
// upsell offer must be decided first, or a transaction now awaits payment.
// Transaction is a copy frozen at initiation time; current state comes from
// ActiveTransaction or ManualCheck.
type InitiateResult struct {
	OfferPending bool
	Offer        *domain.UpsellOffer
	Transaction  *domain.Transaction
}

// PaymentService owns the transaction lifecycle: it freezes the session
// price, requests a payment instruction from the gateway, and hands the
// transaction to the confirmation poller.
type PaymentService struct {
	gateway application.GatewayClient
	poller  *ConfirmationPoller
	logger  *slog.Logger
	now     func() time.Time

	mu       sync.Mutex
	inFlight map[string]struct{} // sessions with an outstanding initiate call
	activeTx map[string]string   // session ID -> currently watched transaction
}

func NewPaymentService(
	gatewayClient application.GatewayClient,
	poller *ConfirmationPoller,
	logger *slog.Logger,
) *PaymentService {
	return &PaymentService{
		gateway:  gatewayClient,
		poller:   poller,
		logger:   logger,
		now:      time.Now,
		inFlight: make(map[string]struct{}),
		activeTx: make(map[string]string),
	}
}

// Initiate drives one payment attempt for the session.
//
// If the product carries a post-click upsell offer and no decision has been
// recorded, the attempt pauses: the offer is surfaced and the buyer's
// accept/decline (or dismissal, which counts as decline) re-enters this
// path with the decision fixed.
//
// The price is recomputed and frozen at call time; later session mutations
// never retroactively change an open transaction. A second Initiate while
// one is outstanding for the same session is rejected. A successful call
// stops polling for any previous transaction of the session: retries create
// brand-new transactions, stale ones are never reused.
func (s *PaymentService) Initiate(ctx context.Context, session *domain.CheckoutSession) (*InitiateResult, error) {
	if session.OfferState == domain.OfferUnset || session.OfferState == domain.OfferPending {
		session.OfferState = domain.OfferPending
		return &InitiateResult{
			OfferPending: true,
			Offer:        session.Product.Upsell,
		}, nil
	}

	s.mu.Lock()
	if _, busy := s.inFlight[session.ID]; busy {
		s.mu.Unlock()
		return nil, application.NewInitiationInFlightError()
	}
	s.inFlight[session.ID] = struct{}{}
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.inFlight, session.ID)
		s.mu.Unlock()
	}()

	price := session.Price()
	req := application.CreateInstructionRequest{
		AmountCents:      price.FinalCents,
		PreDiscountCents: price.PreDiscountCents,
		Currency:         session.Product.Currency,
		BuyerName:        session.Buyer.Name,
		BuyerEmail:       session.Buyer.Email,
		BuyerPhone:       session.Buyer.PhoneCountry + session.Buyer.Phone,
		LineItems:        buildLineItems(session),
		Metadata:         session.Tracking,
	}

	idempotencyKey := uuid.New().String()

	resp, err := s.gateway.CreateInstruction(ctx, req, idempotencyKey)
	if err != nil {
		s.logger.Warn("payment initiation failed", "session_id", session.ID, "error", err)
		return nil, classifyInitiationError(err)
	}

	if resp.TransactionID == "" || resp.QRCode == "" {
		return nil, application.NewInvalidResponseError(nil)
	}

	couponCode := ""
	if session.Coupon != nil {
		couponCode = session.Coupon.Code
	}

	tx := &domain.Transaction{
		ID:          resp.TransactionID,
		SessionID:   session.ID,
		ProductID:   session.Product.ID,
		BuyerEmail:  session.Buyer.Email,
		CouponCode:  couponCode,
		RedirectURL: session.Product.RedirectURL,
		Price:       price,
		Status:      domain.StatusCreated,
		Instruction: domain.PaymentInstruction{
			QRImage: resp.QRImage,
			QRCode:  resp.QRCode,
		},
		CreatedAt: s.now(),
	}
	if err := tx.TransitionTo(domain.StatusAwaitingPayment); err != nil {
		return nil, application.NewInternalError(err)
	}

	s.mu.Lock()
	previous := s.activeTx[session.ID]
	s.activeTx[session.ID] = tx.ID
	s.mu.Unlock()

	if previous != "" {
		s.poller.Stop(previous)
	}

	// The poller owns tx from here on; the caller gets a detached copy.
	snapshot := *tx
	s.poller.StartPolling(tx)

	s.logger.Info("payment instruction created",
		"session_id", session.ID,
		"transaction_id", snapshot.ID,
		"amount_cents", price.FinalCents,
	)

	return &InitiateResult{Transaction: &snapshot}, nil
}

// ManualCheck forwards a buyer-triggered status check to the poller.
func (s *PaymentService) ManualCheck(ctx context.Context, transactionID string) (domain.Transaction, error) {
	return s.poller.ManualCheck(ctx, transactionID)
}

// ActiveTransaction returns a snapshot of the session's current transaction.
func (s *PaymentService) ActiveTransaction(sessionID string) (domain.Transaction, bool) {
	s.mu.Lock()
	txID := s.activeTx[sessionID]
	s.mu.Unlock()

	if txID == "" {
		return domain.Transaction{}, false
	}
	return s.poller.Snapshot(txID)
}

// TimedOut reports whether automatic polling for the transaction exhausted
// its budget without reaching a terminal status.
func (s *PaymentService) TimedOut(transactionID string) bool {
	return s.poller.TimedOut(transactionID)
}

// StopSession cancels polling for the session's transaction, if any. Called
// on session teardown so no orphaned timers keep firing.
func (s *PaymentService) StopSession(sessionID string) {
	s.mu.Lock()
	txID := s.activeTx[sessionID]
	delete(s.activeTx, sessionID)
	s.mu.Unlock()

	if txID != "" {
		s.poller.Stop(txID)
	}
}

// buildLineItems flattens the session into attributable charge lines: the
// base product, each selected add-on, and the upsell when accepted.
func buildLineItems(session *domain.CheckoutSession) []application.LineItem {
	product := session.Product
	items := []application.LineItem{
		{Name: product.Name, Kind: "product", PriceCents: product.PriceCents},
	}

	for id := range session.SelectedAddOns {
		if addOn, ok := product.AddOn(id); ok {
			items = append(items, application.LineItem{
				Name:       addOn.Name,
				Kind:       "add_on",
				PriceCents: addOn.PriceCents,
			})
		}
	}

	if session.OfferState == domain.OfferAccepted && product.Upsell != nil {
		items = append(items, application.LineItem{
			Name:       product.Upsell.Name,
			Kind:       "upsell",
			PriceCents: product.Upsell.PriceCents,
		})
	}

	return items
}

func classifyInitiationError(err error) *application.ServiceError {
	if _, ok := gateway.IsGatewayError(err); ok {
		return application.NewGatewayRejectedError(err)
	}
	return application.NewNetworkError(err)
}
