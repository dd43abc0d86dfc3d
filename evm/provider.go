// Package evm builds chain-connected read clients and settlement signers for
// the EVM networks of the x402 network table.
package evm

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi/bind"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
)

// Provider implements x402.ChainProvider for EVM networks.
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

// ConnectedClient dials the RPC endpoint of network.
// HTTP endpoints are dialed lazily, so no request is made until the client is used.
func (p *Provider) ConnectedClient(network string) (x402.ChainReader, error) {
	info, err := lookupEVM(network)
	if err != nil {
		return nil, err
	}

	url := p.rpcURL(info)
	eth, err := ethclient.Dial(url)
	if err != nil {
		p.logger.Error("failed to dial rpc endpoint", zap.String("network", network), zap.Error(err))
		return nil, fmt.Errorf("failed to dial %s rpc: %w", network, err)
	}

	return &Client{
		network: network,
		chainID: big.NewInt(info.ChainID),
		rpcURL:  url,
		eth:     eth,
	}, nil
}

// Signer parses a hex private key (with or without 0x) and binds it to network.
func (p *Provider) Signer(network, privateKey string) (x402.ChainSigner, error) {
	info, err := lookupEVM(network)
	if err != nil {
		return nil, err
	}

	if privateKey == "" {
		return nil, x402.ErrMissingPrivateKey
	}

	key, err := crypto.HexToECDSA(strings.TrimPrefix(privateKey, "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", x402.ErrInvalidPrivateKey, err)
	}

	signer := &Signer{
		network: network,
		chainID: big.NewInt(info.ChainID),
		key:     key,
	}
	p.logger.Debug("created signer", zap.String("network", network), zap.String("address", signer.Address()))
	return signer, nil
}

func (p *Provider) rpcURL(info x402.NetworkInfo) string {
	if url, ok := p.rpcURLs[info.Name]; ok && url != "" {
		return url
	}
	return info.RPCURL
}

func lookupEVM(network string) (x402.NetworkInfo, error) {
	info, err := x402.LookupNetwork(network)
	if err != nil {
		return x402.NetworkInfo{}, err
	}
	if info.Family != x402.FamilyEVM {
		return x402.NetworkInfo{}, fmt.Errorf("%w: %q is not an EVM network", x402.ErrUnknownNetwork, network)
	}
	return info, nil
}

// Client is a read client bound to one EVM network.
type Client struct {
	network string
	chainID *big.Int
	rpcURL  string
	eth     *ethclient.Client
}

func (c *Client) Network() string { return c.network }

// ChainID returns the EIP-155 chain id of the network.
func (c *Client) ChainID() *big.Int { return new(big.Int).Set(c.chainID) }

// RPCURL returns the endpoint the client was dialed with.
func (c *Client) RPCURL() string { return c.rpcURL }

// Eth exposes the underlying go-ethereum client.
func (c *Client) Eth() *ethclient.Client { return c.eth }

// Close releases the RPC connection.
func (c *Client) Close() { c.eth.Close() }

// Signer holds a settlement key bound to one EVM network.
type Signer struct {
	network string
	chainID *big.Int
	key     *ecdsa.PrivateKey
}

func (s *Signer) Network() string { return s.network }

// Address returns the checksummed address of the key.
func (s *Signer) Address() string {
	return crypto.PubkeyToAddress(s.key.PublicKey).Hex()
}

// ChainID returns the EIP-155 chain id of the network.
func (s *Signer) ChainID() *big.Int { return new(big.Int).Set(s.chainID) }

// TransactOpts returns transaction options signing for the bound chain.
func (s *Signer) TransactOpts() (*bind.TransactOpts, error) {
	return bind.NewKeyedTransactorWithChainID(s.key, s.chainID)
}
