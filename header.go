package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// HTTP headers of the x402 exchange.
const (
	HeaderPayment         = "X-PAYMENT"
	HeaderPaymentResponse = "X-PAYMENT-RESPONSE"
)

// Both x402 headers carry base64 encoded JSON.
func encodeHeader(v interface{}) (string, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

func decodeHeader(value string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("header is not base64: %w", err)
	}
	return raw, nil
}

// EncodePaymentHeader builds an X-PAYMENT value. Clients and tests use it.
func EncodePaymentHeader(payload *PaymentPayload) (string, error) {
	value, err := encodeHeader(payload)
	if err != nil {
		return "", fmt.Errorf("encode payment payload: %w", err)
	}
	return value, nil
}

// DecodePaymentHeader decodes an X-PAYMENT value and validates the payload
// it carries.
func DecodePaymentHeader(value string) (*PaymentPayload, error) {
	raw, err := decodeHeader(value)
	if err != nil {
		return nil, err
	}
	return ParsePaymentPayload(raw)
}

// EncodePaymentResponse builds an X-PAYMENT-RESPONSE value.
func EncodePaymentResponse(resp *PaymentResponse) (string, error) {
	value, err := encodeHeader(resp)
	if err != nil {
		return "", fmt.Errorf("encode payment response: %w", err)
	}
	return value, nil
}

func DecodePaymentResponse(value string) (*PaymentResponse, error) {
	raw, err := decodeHeader(value)
	if err != nil {
		return nil, err
	}
	var resp PaymentResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("payment response is not JSON: %w", err)
	}
	return &resp, nil
}

// ReadPaymentRequirements reads the challenge out of a 402 response.
func ReadPaymentRequirements(resp *http.Response) (*PaymentRequiredResponse, error) {
	if resp.StatusCode != http.StatusPaymentRequired {
		return nil, fmt.Errorf("expected status 402, got %d", resp.StatusCode)
	}
	var challenge PaymentRequiredResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&challenge); err != nil {
		return nil, fmt.Errorf("decode payment challenge: %w", err)
	}
	return &challenge, nil
}
