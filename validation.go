package x402

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"math/big"
	"net/url"
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/gagliardetto/solana-go"
)

var (
	hexSignatureRegex = regexp.MustCompile(`^0x[0-9a-fA-F]+$`)
	nonceRegex        = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)
)

// ParsePaymentPayload decodes and validates a raw payment payload.
func ParsePaymentPayload(raw json.RawMessage) (*PaymentPayload, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, NewPaymentError(ErrCodeInvalidPayload, "payment payload is required", nil)
	}

	var payload PaymentPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, NewPaymentError(ErrCodeInvalidPayload, "failed to decode payment payload", err)
	}

	if err := ValidatePaymentPayload(&payload); err != nil {
		return nil, NewPaymentError(ErrCodeInvalidPayload, "invalid payment payload", err)
	}

	return &payload, nil
}

// ValidatePaymentPayload checks the version, scheme, network and variant fields.
func ValidatePaymentPayload(p *PaymentPayload) error {
	if p.X402Version != X402Version {
		return fmt.Errorf("unsupported x402 version: %d (expected %d)", p.X402Version, X402Version)
	}

	if p.Scheme != SchemeExact {
		return fmt.Errorf("unsupported scheme %q", p.Scheme)
	}

	info, err := LookupNetwork(p.Network)
	if err != nil {
		return err
	}

	if p.Payload == nil {
		return fmt.Errorf("payload is required")
	}

	return p.Payload.validate(info)
}

func (p *ExactEVMPayload) validate(info NetworkInfo) error {
	if info.Family != FamilyEVM {
		return fmt.Errorf("EVM payload on non-EVM network %q", info.Name)
	}

	if !hexSignatureRegex.MatchString(p.Signature) {
		return fmt.Errorf("signature must be 0x-prefixed hex")
	}
	if _, err := hexutil.Decode(p.Signature); err != nil {
		return fmt.Errorf("invalid signature: %w", err)
	}

	auth := p.Authorization
	if !common.IsHexAddress(auth.From) || !strings.HasPrefix(auth.From, "0x") {
		return fmt.Errorf("authorization.from is not an address: %q", auth.From)
	}
	if !common.IsHexAddress(auth.To) || !strings.HasPrefix(auth.To, "0x") {
		return fmt.Errorf("authorization.to is not an address: %q", auth.To)
	}

	for name, value := range map[string]string{
		"value":       auth.Value,
		"validAfter":  auth.ValidAfter,
		"validBefore": auth.ValidBefore,
	} {
		if err := validateUint(value); err != nil {
			return fmt.Errorf("authorization.%s: %w", name, err)
		}
	}

	if !nonceRegex.MatchString(auth.Nonce) {
		return fmt.Errorf("authorization.nonce must be 32 bytes of 0x-prefixed hex")
	}

	return nil
}

func (p *ExactSVMPayload) validate(info NetworkInfo) error {
	if info.Family != FamilySVM {
		return fmt.Errorf("SVM payload on non-SVM network %q", info.Name)
	}
	if p.Transaction == "" {
		return fmt.Errorf("transaction is required")
	}
	if _, err := base64.StdEncoding.DecodeString(p.Transaction); err != nil {
		return fmt.Errorf("transaction must be base64: %w", err)
	}
	return nil
}

// ParsePaymentRequirements decodes and validates raw payment requirements.
func ParsePaymentRequirements(raw json.RawMessage) (*PaymentRequirements, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, NewPaymentError(ErrCodeInvalidRequirements, "payment requirements are required", nil)
	}

	var req PaymentRequirements
	if err := json.Unmarshal(raw, &req); err != nil {
		return nil, NewPaymentError(ErrCodeInvalidRequirements, "failed to decode payment requirements", err)
	}

	if err := ValidatePaymentRequirements(&req); err != nil {
		return nil, NewPaymentError(ErrCodeInvalidRequirements, "invalid payment requirements", err)
	}

	return &req, nil
}

// ValidatePaymentRequirements checks the fields a facilitator relies on.
func ValidatePaymentRequirements(req *PaymentRequirements) error {
	if req.Scheme != SchemeExact {
		return fmt.Errorf("unsupported scheme %q", req.Scheme)
	}

	info, err := LookupNetwork(req.Network)
	if err != nil {
		return err
	}

	if err := validateUint(req.MaxAmountRequired); err != nil {
		return fmt.Errorf("maxAmountRequired: %w", err)
	}

	u, err := url.Parse(req.Resource)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("resource must be an absolute URL: %q", req.Resource)
	}

	if err := validateAddress(req.PayTo, info); err != nil {
		return fmt.Errorf("payTo: %w", err)
	}

	if err := validateAddress(req.Asset, info); err != nil {
		return fmt.Errorf("asset: %w", err)
	}

	if req.MaxTimeoutSeconds < 0 {
		return fmt.Errorf("maxTimeoutSeconds cannot be negative: %d", req.MaxTimeoutSeconds)
	}

	return nil
}

// ValidateDiscoveryResponse checks a discovery listing before it is returned.
func ValidateDiscoveryResponse(resp *ListDiscoveryResourcesResponse) error {
	if resp.X402Version != X402Version {
		return fmt.Errorf("unsupported x402 version: %d", resp.X402Version)
	}
	if resp.Items == nil {
		return fmt.Errorf("items cannot be null")
	}
	if resp.Pagination.Limit <= 0 {
		return fmt.Errorf("pagination.limit must be positive: %d", resp.Pagination.Limit)
	}
	if resp.Pagination.Offset < 0 {
		return fmt.Errorf("pagination.offset cannot be negative: %d", resp.Pagination.Offset)
	}
	if resp.Pagination.Total < 0 {
		return fmt.Errorf("pagination.total cannot be negative: %d", resp.Pagination.Total)
	}
	return nil
}

func validateAddress(address string, info NetworkInfo) error {
	if address == "" {
		return fmt.Errorf("address cannot be empty")
	}

	switch info.Family {
	case FamilyEVM:
		if !strings.HasPrefix(address, "0x") || !common.IsHexAddress(address) {
			return fmt.Errorf("invalid EVM address %q", address)
		}
	case FamilySVM:
		if _, err := solana.PublicKeyFromBase58(address); err != nil {
			return fmt.Errorf("invalid Solana address %q: %w", address, err)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownNetwork, info.Name)
	}
	return nil
}

func validateUint(s string) error {
	if s == "" {
		return fmt.Errorf("cannot be empty")
	}
	n, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return fmt.Errorf("not an integer: %q", s)
	}
	if n.Sign() < 0 {
		return fmt.Errorf("cannot be negative: %q", s)
	}
	return nil
}
