// Package svm builds RPC clients and fee-payer signers for the Solana
// networks of the x402 network table.
package svm

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// Provider implements x402.ChainProvider for Solana networks.
type Provider struct {
	rpcURLs map[string]string
	logger  *zap.Logger
}

// Option configures a Provider.
type Option func(*Provider)

// WithRPCURL overrides the public RPC endpoint of network.
func WithRPCURL(network, url string) Option {
	return func(p *Provider) {
		p.rpcURLs[network] = url
	}
}

// WithLogger sets the logger. Defaults to zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(p *Provider) {
		p.logger = logger
	}
}

// NewProvider creates a Provider using the public RPC endpoints unless overridden.
func NewProvider(opts ...Option) *Provider {
	p := &Provider{rpcURLs: map[string]string{}}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = zap.L()
	}
	return p
}

// ConnectedClient returns an RPC client for network.
func (p *Provider) ConnectedClient(network string) (x402.ChainReader, error) {
	info, err := lookupSVM(network)
	if err != nil {
		return nil, err
	}

	url := info.RPCURL
	if override, ok := p.rpcURLs[network]; ok && override != "" {
		url = override
	}

	return &Client{network: network, rpcURL: url, rpc: rpc.New(url)}, nil
}

// Signer parses a base58 ed25519 private key and binds it to network.
func (p *Provider) Signer(network, privateKey string) (x402.ChainSigner, error) {
	if _, err := lookupSVM(network); err != nil {
		return nil, err
	}

	if privateKey == "" {
		return nil, x402.ErrMissingPrivateKey
	}

	key, err := solana.PrivateKeyFromBase58(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: not base58", x402.ErrInvalidPrivateKey)
	}
	if len(key) != 64 {
		return nil, fmt.Errorf("%w: expected 64 bytes, got %d", x402.ErrInvalidPrivateKey, len(key))
	}

	signer := &Signer{network: network, key: key}
	p.logger.Debug("created signer", zap.String("network", network), zap.String("address", signer.Address()))
	return signer, nil
}

func lookupSVM(network string) (x402.NetworkInfo, error) {
	info, err := x402.LookupNetwork(network)
	if err != nil {
		return x402.NetworkInfo{}, err
	}
	if info.Family != x402.FamilySVM {
		return x402.NetworkInfo{}, fmt.Errorf("%w: %q is not a Solana network", x402.ErrUnknownNetwork, network)
	}
	return info, nil
}

// Client is an RPC client bound to one Solana network.
type Client struct {
	network string
	rpcURL  string
	rpc     *rpc.Client
}

func (c *Client) Network() string { return c.network }

// RPCURL returns the endpoint the client talks to.
func (c *Client) RPCURL() string { return c.rpcURL }

// RPC exposes the underlying solana-go client.
func (c *Client) RPC() *rpc.Client { return c.rpc }

// Close releases idle connections.
func (c *Client) Close() error { return c.rpc.Close() }

// Signer holds a fee-payer key bound to one Solana network.
type Signer struct {
	network string
	key     solana.PrivateKey
}

func (s *Signer) Network() string { return s.network }

// Address returns the base58 public key.
func (s *Signer) Address() string { return s.key.PublicKey().String() }

// PublicKey returns the fee payer public key.
func (s *Signer) PublicKey() solana.PublicKey { return s.key.PublicKey() }
