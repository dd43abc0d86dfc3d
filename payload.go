package x402

import (
	"encoding/json"
	"fmt"
)

// PaymentPayload is the client-submitted proof of payment.
//
// Payload holds the scheme-specific variant selected by Scheme and the
// family of Network. Decoding fails for combinations without a variant.
type PaymentPayload struct {
	X402Version int           `json:"x402Version"`
	Scheme      string        `json:"scheme"`
	Network     string        `json:"network"`
	Payload     SchemePayload `json:"payload"`
}

// SchemePayload is one variant of the scheme-dependent inner payload.
type SchemePayload interface {
	// Payer returns the paying address, or "" when the variant does not carry one.
	Payer() string
	validate(network NetworkInfo) error
}

// ExactEVMPayload is the "exact" scheme on EVM networks: an EIP-3009
// transferWithAuthorization signed by the payer.
type ExactEVMPayload struct {
	Signature     string                `json:"signature"`
	Authorization ExactEVMAuthorization `json:"authorization"`
}

// ExactEVMAuthorization contains the EIP-3009 authorization parameters
type ExactEVMAuthorization struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Value       string `json:"value"`
	ValidAfter  string `json:"validAfter"`
	ValidBefore string `json:"validBefore"`
	Nonce       string `json:"nonce"`
}

func (p *ExactEVMPayload) Payer() string { return p.Authorization.From }

// ExactSVMPayload is the "exact" scheme on Solana: a partially signed transaction.
type ExactSVMPayload struct {
	Transaction string `json:"transaction"`
}

func (p *ExactSVMPayload) Payer() string { return "" }

// Payer returns the payer of p, or "" for variants without one.
func (p *PaymentPayload) Payer() string {
	if p == nil || p.Payload == nil {
		return ""
	}
	return p.Payload.Payer()
}

type paymentPayloadEnvelope struct {
	X402Version int             `json:"x402Version"`
	Scheme      string          `json:"scheme"`
	Network     string          `json:"network"`
	Payload     json.RawMessage `json:"payload"`
}

// UnmarshalJSON decodes the envelope and then the variant it selects.
func (p *PaymentPayload) UnmarshalJSON(data []byte) error {
	var env paymentPayloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return err
	}

	p.X402Version = env.X402Version
	p.Scheme = env.Scheme
	p.Network = env.Network
	p.Payload = nil

	if len(env.Payload) == 0 || string(env.Payload) == "null" {
		return fmt.Errorf("payload is required")
	}

	variant, err := newSchemePayload(env.Scheme, env.Network)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(env.Payload, variant); err != nil {
		return fmt.Errorf("failed to decode %s payload: %w", env.Scheme, err)
	}
	p.Payload = variant
	return nil
}

func newSchemePayload(scheme, network string) (SchemePayload, error) {
	if scheme != SchemeExact {
		return nil, fmt.Errorf("unsupported scheme %q", scheme)
	}

	info, err := LookupNetwork(network)
	if err != nil {
		return nil, err
	}

	switch info.Family {
	case FamilyEVM:
		return &ExactEVMPayload{}, nil
	case FamilySVM:
		return &ExactSVMPayload{}, nil
	default:
		return nil, fmt.Errorf("no payload variant for network %q", network)
	}
}

// rawPayloadView is the loosest shape the best-effort extractors rely on.
type rawPayloadView struct {
	Network json.RawMessage `json:"network"`
	Payload struct {
		Authorization *struct {
			From json.RawMessage `json:"from"`
		} `json:"authorization"`
	} `json:"payload"`
}

// PayerFromRaw extracts payload.authorization.from from an unvalidated
// payment payload. Anything unexpected yields "".
func PayerFromRaw(raw json.RawMessage) string {
	var view rawPayloadView
	if err := json.Unmarshal(raw, &view); err != nil || view.Payload.Authorization == nil {
		return ""
	}
	var from string
	if err := json.Unmarshal(view.Payload.Authorization.From, &from); err != nil {
		return ""
	}
	return from
}

// NetworkFromRaw extracts network from an unvalidated payment payload, or "".
func NetworkFromRaw(raw json.RawMessage) string {
	var view rawPayloadView
	if err := json.Unmarshal(raw, &view); err != nil {
		return ""
	}
	var network string
	if err := json.Unmarshal(view.Network, &network); err != nil {
		return ""
	}
	return network
}
