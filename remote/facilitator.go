package remote

import (
	"context"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// Facilitator implements x402.Facilitator by forwarding to an upstream
// facilitator service, which performs signature recovery and broadcast with
// its own keys. The local chain client or signer pins the network: a payload
// for any other network is rejected without a round trip.
type Facilitator struct {
	client *Client
	logger *zap.Logger
}

// NewFacilitator forwards verify and settle calls through client.
func NewFacilitator(client *Client) *Facilitator {
	return &Facilitator{client: client, logger: client.logger}
}

func (f *Facilitator) Verify(ctx context.Context, chain x402.ChainReader, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	if chain.Network() != payload.Network {
		f.logger.Warn("payload network does not match client",
			zap.String("client", chain.Network()),
			zap.String("payload", payload.Network))
		return &x402.VerifyResponse{
			IsValid:       false,
			InvalidReason: x402.ReasonInvalidNetwork,
			Payer:         payload.Payer(),
		}, nil
	}

	return f.client.Verify(ctx, payload, requirements)
}

func (f *Facilitator) Settle(ctx context.Context, signer x402.ChainSigner, payload *x402.PaymentPayload, requirements *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	if signer.Network() != payload.Network {
		f.logger.Warn("payload network does not match signer",
			zap.String("signer", signer.Network()),
			zap.String("payload", payload.Network))
		return &x402.SettleResponse{
			Success:     false,
			ErrorReason: x402.ReasonInvalidNetwork,
			Network:     payload.Network,
			Payer:       payload.Payer(),
		}, nil
	}

	return f.client.Settle(ctx, payload, requirements)
}
