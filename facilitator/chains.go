package facilitator

import (
	"fmt"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/evm"
	"github.com/becomeliminal/x402-facilitator/svm"
)

// ChainsByFamily dispatches to one x402.ChainProvider per network family.
type ChainsByFamily map[x402.NetworkFamily]x402.ChainProvider

// DefaultChains returns the evm and svm providers, with rpcURLs overriding
// public endpoints by network name.
func DefaultChains(logger *zap.Logger, rpcURLs map[string]string) ChainsByFamily {
	evmOpts := []evm.Option{evm.WithLogger(logger)}
	svmOpts := []svm.Option{svm.WithLogger(logger)}
	for network, url := range rpcURLs {
		evmOpts = append(evmOpts, evm.WithRPCURL(network, url))
		svmOpts = append(svmOpts, svm.WithRPCURL(network, url))
	}

	return ChainsByFamily{
		x402.FamilyEVM: evm.NewProvider(evmOpts...),
		x402.FamilySVM: svm.NewProvider(svmOpts...),
	}
}

func (c ChainsByFamily) ConnectedClient(network string) (x402.ChainReader, error) {
	p, err := c.provider(network)
	if err != nil {
		return nil, err
	}
	return p.ConnectedClient(network)
}

func (c ChainsByFamily) Signer(network, privateKey string) (x402.ChainSigner, error) {
	p, err := c.provider(network)
	if err != nil {
		return nil, err
	}
	return p.Signer(network, privateKey)
}

func (c ChainsByFamily) provider(network string) (x402.ChainProvider, error) {
	info, err := x402.LookupNetwork(network)
	if err != nil {
		return nil, err
	}
	p, ok := c[info.Family]
	if !ok {
		return nil, fmt.Errorf("%w: no chain provider for %q", x402.ErrUnknownNetwork, network)
	}
	return p, nil
}
