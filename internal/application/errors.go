package application

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/nmonteiro/checkout-engine/internal/domain"
)

// APPLICATION-LEVEL ERRORS (Orchestration)

type ServiceError struct {
	Code       string
	Message    string
	HTTPStatus int
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

const (
	// Payment initiation failure kinds. All three leave the session
	// re-enterable; a retry creates a brand-new transaction.
	ErrCodeGatewayRejected = "GATEWAY_REJECTED"
	ErrCodeNetworkError    = "NETWORK_ERROR"
	ErrCodeInvalidResponse = "INVALID_RESPONSE"

	ErrCodeInitiationInFlight  = "INITIATION_IN_FLIGHT"
	ErrCodePollingTimeout      = "POLLING_TIMEOUT"
	ErrCodeManualCheckCooldown = "MANUAL_CHECK_COOLDOWN"
	ErrCodeInternal            = "INTERNAL_ERROR"
	ErrCodeInvalidInput        = "INVALID_INPUT"
)

func NewGatewayRejectedError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeGatewayRejected,
		Message:    "The payment provider rejected the charge. Please try again.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewNetworkError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeNetworkError,
		Message:    "Could not reach the payment provider. Please try again.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInvalidResponseError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidResponse,
		Message:    "The payment provider returned an unexpected response.",
		HTTPStatus: http.StatusBadGateway,
		Err:        err,
	}
}

func NewInitiationInFlightError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInitiationInFlight,
		Message:    "A payment request is already being processed for this session.",
		HTTPStatus: http.StatusConflict,
	}
}

func NewPollingTimeoutError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodePollingTimeout,
		Message:    "We could not confirm your payment automatically. Use the check button to verify.",
		HTTPStatus: http.StatusAccepted,
	}
}

func NewManualCheckCooldownError() *ServiceError {
	return &ServiceError{
		Code:       ErrCodeManualCheckCooldown,
		Message:    "Please wait a moment before checking again.",
		HTTPStatus: http.StatusTooManyRequests,
	}
}

func NewInternalError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInternal,
		Message:    "An internal error occurred",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewInvalidInputError(err error) *ServiceError {
	return &ServiceError{
		Code:       ErrCodeInvalidInput,
		Message:    "Invalid input",
		HTTPStatus: http.StatusBadRequest,
		Err:        err,
	}
}

func IsServiceError(err error) (*ServiceError, bool) {
	var svcErr *ServiceError
	ok := errors.As(err, &svcErr)
	return svcErr, ok
}

// IsInitiationError reports whether err is one of the payment initiation
// failure kinds.
func IsInitiationError(err error) bool {
	svcErr, ok := IsServiceError(err)
	if !ok {
		return false
	}
	switch svcErr.Code {
	case ErrCodeGatewayRejected, ErrCodeNetworkError, ErrCodeInvalidResponse:
		return true
	}
	return false
}

// ToHTTPStatus maps any engine error onto an HTTP status code.
func ToHTTPStatus(err error) int {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.HTTPStatus
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		switch domainErr.Code {
		case domain.ErrCodeSessionNotFound, domain.ErrCodeTransactionMissing, domain.ErrCodeCouponNotFound:
			return http.StatusNotFound
		case domain.ErrCodeInvalidTransition, domain.ErrCodeDecisionAlreadySet:
			return http.StatusConflict
		default:
			return http.StatusUnprocessableEntity
		}
	}

	return http.StatusInternalServerError
}

// ToErrorCode extracts the machine-readable code from any engine error.
func ToErrorCode(err error) string {
	if svcErr, ok := IsServiceError(err); ok {
		return svcErr.Code
	}

	var domainErr *domain.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}

	return ErrCodeInternal
}
