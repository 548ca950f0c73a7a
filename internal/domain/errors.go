package domain

import (
	"errors"
	"fmt"
)

// DomainError represents a business logic error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the underlying error for errors.Is/As support
func (e *DomainError) Unwrap() error {
	return e.Err
}

// Coupon validation errors. Each code maps to its own user-facing message
// so the buyer always learns why a code was rejected.
const (
	ErrCodeCouponNotFound     = "COUPON_NOT_FOUND"
	ErrCodeCouponInactive     = "COUPON_INACTIVE"
	ErrCodeCouponExpired      = "COUPON_EXPIRED"
	ErrCodeCouponBelowMinimum = "COUPON_BELOW_MINIMUM"
	ErrCodeCouponAlreadyUsed  = "COUPON_ALREADY_USED"
	ErrCodeCouponExhausted    = "COUPON_EXHAUSTED"
)

// Session and transaction errors
const (
	ErrCodeInvalidTransition  = "INVALID_TRANSITION"
	ErrCodeSessionNotFound    = "SESSION_NOT_FOUND"
	ErrCodeTransactionMissing = "TRANSACTION_NOT_FOUND"
	ErrCodeDecisionAlreadySet = "DECISION_ALREADY_SET"
	ErrCodeInvalidAmount      = "INVALID_AMOUNT"
)

func NewCouponNotFoundError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponNotFound,
		Message: fmt.Sprintf("coupon %q does not exist for this product", code),
	}
}

func NewCouponInactiveError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponInactive,
		Message: fmt.Sprintf("coupon %q is no longer active", code),
	}
}

func NewCouponExpiredError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponExpired,
		Message: fmt.Sprintf("coupon %q has expired", code),
	}
}

func NewCouponBelowMinimumError(code string, minCents int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponBelowMinimum,
		Message: fmt.Sprintf("order total is below the minimum of %d required by coupon %q", minCents, code),
	}
}

func NewCouponAlreadyUsedError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponAlreadyUsed,
		Message: fmt.Sprintf("coupon %q was already used with this email", code),
	}
}

func NewCouponExhaustedError(code string) *DomainError {
	return &DomainError{
		Code:    ErrCodeCouponExhausted,
		Message: fmt.Sprintf("coupon %q has no redemptions left", code),
	}
}

func NewInvalidTransitionError(from, to TransactionStatus) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidTransition,
		Message: fmt.Sprintf("cannot transition from %s to %s", from, to),
	}
}

func NewSessionNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeSessionNotFound,
		Message: fmt.Sprintf("checkout session %s not found", id),
	}
}

func NewTransactionNotFoundError(id string) *DomainError {
	return &DomainError{
		Code:    ErrCodeTransactionMissing,
		Message: fmt.Sprintf("transaction %s not found", id),
	}
}

func NewDecisionAlreadySetError() *DomainError {
	return &DomainError{
		Code:    ErrCodeDecisionAlreadySet,
		Message: "upsell decision was already recorded for this attempt",
	}
}

func NewInvalidAmountError(amount int64) *DomainError {
	return &DomainError{
		Code:    ErrCodeInvalidAmount,
		Message: fmt.Sprintf("invalid amount %d", amount),
	}
}

// IsErrorCode checks if an error is a DomainError with a specific code
func IsErrorCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// IsCouponError reports whether err is one of the coupon validation errors.
func IsCouponError(err error) bool {
	var domainErr *DomainError
	if !errors.As(err, &domainErr) {
		return false
	}
	switch domainErr.Code {
	case ErrCodeCouponNotFound, ErrCodeCouponInactive, ErrCodeCouponExpired,
		ErrCodeCouponBelowMinimum, ErrCodeCouponAlreadyUsed, ErrCodeCouponExhausted:
		return true
	}
	return false
}
