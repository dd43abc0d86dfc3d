package x402

import (
	"context"
)

// X402Version is the protocol version spoken by the embedded facilitator.
const X402Version = 1

// SchemeExact is the only payment scheme the facilitator advertises.
const SchemeExact = "exact"

// PaymentRequirements describes what payment is required for a resource
type PaymentRequirements struct {
	Scheme            string                 `json:"scheme"`
	Network           string                 `json:"network"`
	MaxAmountRequired string                 `json:"maxAmountRequired"`
	Resource          string                 `json:"resource"`
	Description       string                 `json:"description"`
	MimeType          string                 `json:"mimeType"`
	OutputSchema      map[string]interface{} `json:"outputSchema,omitempty"`
	PayTo             string                 `json:"payTo"`
	MaxTimeoutSeconds int                    `json:"maxTimeoutSeconds"`
	Asset             string                 `json:"asset"`
	Extra             map[string]interface{} `json:"extra,omitempty"`
}

// VerifyResponse is the outcome of validating a payment against its requirements.
type VerifyResponse struct {
	IsValid       bool   `json:"isValid"`
	InvalidReason string `json:"invalidReason,omitempty"`
	Payer         string `json:"payer"`
}

// SettleResponse is the outcome of broadcasting the settlement transaction.
type SettleResponse struct {
	Success     bool   `json:"success"`
	ErrorReason string `json:"errorReason,omitempty"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

// SupportedKind is a scheme+network pair the facilitator can handle.
type SupportedKind struct {
	X402Version int    `json:"x402Version"`
	Scheme      string `json:"scheme"`
	Network     string `json:"network"`
}

// SupportedPaymentKindsResponse is returned by the supported endpoint.
type SupportedPaymentKindsResponse struct {
	Kinds []SupportedKind `json:"kinds"`
}

// DiscoveryResource is a single entry of the discovery listing.
type DiscoveryResource struct {
	Resource    string                `json:"resource"`
	Type        string                `json:"type"`
	X402Version int                   `json:"x402Version"`
	Accepts     []PaymentRequirements `json:"accepts"`
	LastUpdated string                `json:"lastUpdated"`
}

// DiscoveryPagination contains pagination info for the discovery listing.
type DiscoveryPagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
	Total  int `json:"total"`
}

// ListDiscoveryResourcesResponse is returned by the discovery endpoint.
type ListDiscoveryResourcesResponse struct {
	X402Version int                 `json:"x402Version"`
	Items       []DiscoveryResource `json:"items"`
	Pagination  DiscoveryPagination `json:"pagination"`
}

// PaymentRequiredResponse is the response body when returning 402
type PaymentRequiredResponse struct {
	X402Version int                   `json:"x402Version"`
	Error       string                `json:"error"`
	Accepts     []PaymentRequirements `json:"accepts"`
	Payer       string                `json:"payer,omitempty"`
}

// PaymentResponse is sent in the X-PAYMENT-RESPONSE header
type PaymentResponse struct {
	Success     bool   `json:"success"`
	Transaction string `json:"transaction"`
	Network     string `json:"network"`
	Payer       string `json:"payer,omitempty"`
}

// ChainReader is a chain-connected read client bound to one network.
type ChainReader interface {
	Network() string
}

// ChainSigner holds the settlement key for one network.
type ChainSigner interface {
	Network() string
	// Address is the hex address derived from the private key.
	Address() string
}

// ChainProvider builds read clients and signers keyed by network name.
type ChainProvider interface {
	ConnectedClient(network string) (ChainReader, error)
	Signer(network, privateKey string) (ChainSigner, error)
}

// Facilitator is the payment SDK the facilitator routes delegate to.
// Signature recovery, nonce checks and transaction broadcast live behind it.
type Facilitator interface {
	// Verify checks a payment against its requirements using chain state.
	Verify(ctx context.Context, client ChainReader, payload *PaymentPayload, requirements *PaymentRequirements) (*VerifyResponse, error)

	// Settle broadcasts the transaction completing a verified payment.
	Settle(ctx context.Context, signer ChainSigner, payload *PaymentPayload, requirements *PaymentRequirements) (*SettleResponse, error)
}

// PaymentContext contains payment information that downstream handlers can read
type PaymentContext struct {
	Verified     bool
	PayerAddress string
	Amount       string
	Network      string
	Resource     string
}

type contextKey string

const (
	// PaymentContextKey is the key used to store payment context in request context
	PaymentContextKey contextKey = "x402-payment"
)

// WithPaymentContext returns a copy of ctx carrying payment.
func WithPaymentContext(ctx context.Context, payment *PaymentContext) context.Context {
	return context.WithValue(ctx, PaymentContextKey, payment)
}

// GetPaymentFromContext extracts payment information from the request context
func GetPaymentFromContext(ctx context.Context) (*PaymentContext, bool) {
	payment, ok := ctx.Value(PaymentContextKey).(*PaymentContext)
	return payment, ok
}

// RequirePayment extracts payment from context and returns error if not found
func RequirePayment(ctx context.Context) (*PaymentContext, error) {
	payment, ok := GetPaymentFromContext(ctx)
	if !ok {
		return nil, ErrPaymentContextMissing
	}
	if !payment.Verified {
		return nil, ErrPaymentNotVerified
	}
	return payment, nil
}
