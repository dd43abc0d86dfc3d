package facilitator

import (
	"context"
	"sync/atomic"

	x402 "github.com/becomeliminal/x402-facilitator"
)

const (
	testPayer     = "0x857b06519E91e3A54538791bDbb0E22373e36b66"
	testPayTo     = "0x209693Bc6afc0C5328bA36FaF03C514EF312287C"
	testKey       = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"
	testSignature = "0x2d6a7588d6acca505cbf0d9a4a227e0c52c6c34008c8e8986a1283259764173608a2ce6496642e377d6da8dbbf5836e9bd15092f9ecab05ded3d6293af148b571c"
	testNonce     = "0xf3746613c2d920b5fdabc0856f2aeb2d4f88ee6037b8cc5d04a71a4462f13480"
)

const validPayload = `{
	"x402Version": 1,
	"scheme": "exact",
	"network": "base-sepolia",
	"payload": {
		"signature": "` + testSignature + `",
		"authorization": {
			"from": "` + testPayer + `",
			"to": "` + testPayTo + `",
			"value": "10000",
			"validAfter": "1740672089",
			"validBefore": "1740672154",
			"nonce": "` + testNonce + `"
		}
	}
}`

const validRequirements = `{
	"scheme": "exact",
	"network": "base-sepolia",
	"maxAmountRequired": "10000",
	"resource": "https://api.example.com/weather",
	"description": "Weather report",
	"mimeType": "application/json",
	"payTo": "` + testPayTo + `",
	"maxTimeoutSeconds": 300,
	"asset": "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
	"extra": {"name": "USDC", "version": "2"}
}`

func requestBody(payload, requirements string) string {
	return `{"paymentPayload":` + payload + `,"paymentRequirements":` + requirements + `}`
}

// MockFacilitator is a mock implementation of x402.Facilitator for testing
type MockFacilitator struct {
	VerifyFunc func(ctx context.Context, client x402.ChainReader, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.VerifyResponse, error)
	SettleFunc func(ctx context.Context, signer x402.ChainSigner, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.SettleResponse, error)

	verifyCalls int32
	settleCalls int32
}

func (m *MockFacilitator) Verify(ctx context.Context, client x402.ChainReader, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.VerifyResponse, error) {
	atomic.AddInt32(&m.verifyCalls, 1)
	if m.VerifyFunc != nil {
		return m.VerifyFunc(ctx, client, payload, req)
	}
	return &x402.VerifyResponse{IsValid: true, Payer: payload.Payer()}, nil
}

func (m *MockFacilitator) Settle(ctx context.Context, signer x402.ChainSigner, payload *x402.PaymentPayload, req *x402.PaymentRequirements) (*x402.SettleResponse, error) {
	atomic.AddInt32(&m.settleCalls, 1)
	if m.SettleFunc != nil {
		return m.SettleFunc(ctx, signer, payload, req)
	}
	return &x402.SettleResponse{Success: true, Transaction: "0xtxhash", Network: payload.Network, Payer: payload.Payer()}, nil
}

func (m *MockFacilitator) calls() (verify, settle int32) {
	return atomic.LoadInt32(&m.verifyCalls), atomic.LoadInt32(&m.settleCalls)
}

type mockChain struct {
	network string
}

func (c mockChain) Network() string { return c.network }
func (c mockChain) Address() string { return testPayTo }

// MockChains is a mock implementation of x402.ChainProvider for testing
type MockChains struct {
	ClientErr error
	SignerErr error

	signerCalls int32
}

func (m *MockChains) ConnectedClient(network string) (x402.ChainReader, error) {
	if m.ClientErr != nil {
		return nil, m.ClientErr
	}
	return mockChain{network: network}, nil
}

func (m *MockChains) Signer(network, privateKey string) (x402.ChainSigner, error) {
	atomic.AddInt32(&m.signerCalls, 1)
	if m.SignerErr != nil {
		return nil, m.SignerErr
	}
	return mockChain{network: network}, nil
}
