package ginx402

import (
	"context"

	x402 "github.com/becomeliminal/x402-facilitator"
)

type noopFacilitator struct{}

func (noopFacilitator) Verify(ctx context.Context, client x402.ChainReader, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	return &x402.VerifyResponse{IsValid: true, Payer: payload.Payer()}, nil
}

func (noopFacilitator) Settle(ctx context.Context, signer x402.ChainSigner, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	return &x402.SettleResponse{Success: true, Network: payload.Network, Payer: payload.Payer()}, nil
}

type noopChain string

func (c noopChain) Network() string { return string(c) }
func (c noopChain) Address() string { return "" }

type noopChains struct{}

func (noopChains) ConnectedClient(network string) (x402.ChainReader, error) {
	return noopChain(network), nil
}

func (noopChains) Signer(network, privateKey string) (x402.ChainSigner, error) {
	return noopChain(network), nil
}
