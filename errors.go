package x402

import (
	"errors"
	"fmt"
)

// Reasons reported in VerifyResponse.InvalidReason and SettleResponse.ErrorReason.
const (
	ReasonInvalidPayload             = "invalid_payload"
	ReasonInvalidPaymentRequirements = "invalid_payment_requirements"
	ReasonUnexpectedVerifyError      = "unexpected_verify_error"
	ReasonUnexpectedSettleError      = "unexpected_settle_error"
	ReasonMissingPrivateKey          = "missing_private_key"
	ReasonInvalidNetwork             = "invalid_network"
)

var (
	// ErrUnknownNetwork indicates a network name missing from the network table.
	ErrUnknownNetwork = errors.New("x402: unknown network")

	// ErrInvalidPrice indicates a route price that cannot be converted to atomic units.
	ErrInvalidPrice = errors.New("x402: invalid price")

	// ErrInvalidPrivateKey indicates a settlement key that is not a hex ECDSA key.
	ErrInvalidPrivateKey = errors.New("x402: invalid private key")

	// ErrMissingPrivateKey indicates settlement was attempted without a key.
	ErrMissingPrivateKey = errors.New("x402: missing private key")

	ErrPaymentContextMissing = errors.New("x402: payment context not found")
	ErrPaymentNotVerified    = errors.New("x402: payment not verified")
)

// PaymentError represents an error related to payment processing.
type PaymentError struct {
	Code    string
	Message string
	Cause   error
}

func (e *PaymentError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *PaymentError) Unwrap() error {
	return e.Cause
}

// Error codes.
const (
	ErrCodeInvalidPayload      = "INVALID_PAYLOAD"
	ErrCodeInvalidRequirements = "INVALID_REQUIREMENTS"
	ErrCodeInvalidConfig       = "INVALID_CONFIG"
	ErrCodeFacilitator         = "FACILITATOR_ERROR"
)

// NewPaymentError creates a new PaymentError.
func NewPaymentError(code, message string, cause error) *PaymentError {
	return &PaymentError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// GetPaymentErrorCode extracts the error code from a PaymentError anywhere in the chain.
func GetPaymentErrorCode(err error) string {
	var pe *PaymentError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
