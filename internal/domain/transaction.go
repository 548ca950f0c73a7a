package domain

import (
	"strings"
	"time"
)

// TransactionStatus represents the current state of a payment transaction
// in its lifecycle.
type TransactionStatus string

const (
	StatusCreated         TransactionStatus = "CREATED"
	StatusAwaitingPayment TransactionStatus = "AWAITING_PAYMENT"
	StatusPaid            TransactionStatus = "PAID"
	StatusCancelled       TransactionStatus = "CANCELLED"
	StatusExpired         TransactionStatus = "EXPIRED"
	StatusFailed          TransactionStatus = "FAILED"
)

// PaymentInstruction is the QR payload the gateway returns for an open
// instant-payment request.
type PaymentInstruction struct {
	QRImage  string // base64-encoded image
	QRCode   string // copyable code
}

// Transaction is one attempt at paying. A retry after a terminal failure is
// a brand-new Transaction; an existing one is never reused. Only status and
// polling bookkeeping mutate after creation.
type Transaction struct {
	ID          string // gateway-issued identifier
	SessionID   string
	ProductID   string
	BuyerEmail  string
	CouponCode  string         // empty when no coupon was applied
	RedirectURL string         // where the buyer lands after payment
	Price       PriceBreakdown // frozen at creation time
	Status      TransactionStatus
	Instruction PaymentInstruction
	CreatedAt   time.Time

	AttemptCount      int
	FirstPolledAt     *time.Time
	NextManualCheckAt time.Time
}

// CanTransitionTo validates whether the transaction can move from its current
// status to the target status. Terminal states allow no further transitions.
//
// Valid transitions are:
//   - Created → AwaitingPayment, Failed
//   - AwaitingPayment → Paid, Cancelled, Expired, Failed
func (t *Transaction) CanTransitionTo(target TransactionStatus) error {
	switch t.Status {
	case StatusCreated:
		if target == StatusAwaitingPayment || target == StatusFailed {
			return nil
		}

	case StatusAwaitingPayment:
		if target == StatusPaid || target == StatusCancelled || target == StatusExpired || target == StatusFailed {
			return nil
		}
	}
	return NewInvalidTransitionError(t.Status, target)
}

// TransitionTo applies a status change after validating it.
func (t *Transaction) TransitionTo(target TransactionStatus) error {
	if err := t.CanTransitionTo(target); err != nil {
		return err
	}
	t.Status = target
	return nil
}

func (t *Transaction) IsTerminal() bool {
	switch t.Status {
	case StatusPaid, StatusCancelled, StatusExpired, StatusFailed:
		return true
	default:
		return false
	}
}

// MapGatewayStatus translates the gateway's raw status string onto the
// transaction lifecycle. Success requires an explicit paid/approved signal;
// anything unrecognized maps to Failed, never silently to success.
func MapGatewayStatus(raw string) TransactionStatus {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "paid", "approved", "confirmed", "completed":
		return StatusPaid
	case "pending", "created", "awaiting_payment", "waiting_payment", "processing":
		return StatusAwaitingPayment
	case "cancelled", "canceled":
		return StatusCancelled
	case "expired":
		return StatusExpired
	default:
		return StatusFailed
	}
}
