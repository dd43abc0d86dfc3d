// Package facilitator serves the x402 facilitator endpoints (verify, settle,
// supported and discovery) from inside a Go web application.
package facilitator

import (
	"os"
	"strings"

	"go.uber.org/zap"

	x402 "github.com/becomeliminal/x402-facilitator"
	"github.com/becomeliminal/x402-facilitator/remote"
)

// Environment variables read by ConfigFromEnv.
const (
	EnvNetwork           = "NETWORK"
	EnvPrivateKey        = "PRIVATE_KEY"
	EnvSupportedNetworks = "SUPPORTED_NETWORKS"
	EnvFacilitatorURL    = "FACILITATOR_URL"
	EnvRPCURL            = "RPC_URL"
)

// DefaultBasePath is where the facilitator routes are mounted by default.
const DefaultBasePath = "/facilitator"

// Config holds the facilitator route configuration
type Config struct {
	// Network verify and settle are bound to. Defaults to x402.DefaultNetwork.
	Network string

	// PrivateKey is handed to Chains to build the settlement signer, and settle
	// refuses to run without it. Never logged.
	//
	// The default remote.Facilitator only uses the signer to pin the network:
	// the upstream service settles with its own keys, so with that default this
	// key is a format check and nothing is signed with it. Supply a Facilitator
	// of your own to settle with it.
	PrivateKey string

	// SupportedNetworks advertised by the supported route. Defaults to [Network].
	//
	// Verify and settle only ever accept payments on Network. Listing more
	// networks here does not make them payable; mount one set of routes per
	// network under its own base path instead.
	SupportedNetworks []string

	// UpstreamURL of the facilitator service the default Facilitator forwards to.
	// Defaults to remote.DefaultFacilitatorURL.
	UpstreamURL string

	// RPCURL overrides the public RPC endpoint of Network.
	RPCURL string

	// Facilitator performs verification and settlement. Defaults to a
	// remote.Facilitator targeting UpstreamURL.
	Facilitator x402.Facilitator

	// Chains builds connected clients and signers. Defaults to DefaultChains.
	Chains x402.ChainProvider

	// Logger defaults to zap.L().
	Logger *zap.Logger
}

// ConfigFromEnv reads NETWORK, PRIVATE_KEY, SUPPORTED_NETWORKS (comma-separated),
// FACILITATOR_URL and RPC_URL. Call it once at startup.
func ConfigFromEnv() Config {
	return Config{
		Network:           strings.TrimSpace(os.Getenv(EnvNetwork)),
		PrivateKey:        strings.TrimSpace(os.Getenv(EnvPrivateKey)),
		SupportedNetworks: splitList(os.Getenv(EnvSupportedNetworks)),
		UpstreamURL:       strings.TrimSpace(os.Getenv(EnvFacilitatorURL)),
		RPCURL:            strings.TrimSpace(os.Getenv(EnvRPCURL)),
	}
}

// Merge returns c with every non-zero field of override applied.
func (c Config) Merge(override Config) Config {
	if override.Network != "" {
		c.Network = override.Network
	}
	if override.PrivateKey != "" {
		c.PrivateKey = override.PrivateKey
	}
	if len(override.SupportedNetworks) > 0 {
		c.SupportedNetworks = override.SupportedNetworks
	}
	if override.UpstreamURL != "" {
		c.UpstreamURL = override.UpstreamURL
	}
	if override.RPCURL != "" {
		c.RPCURL = override.RPCURL
	}
	if override.Facilitator != nil {
		c.Facilitator = override.Facilitator
	}
	if override.Chains != nil {
		c.Chains = override.Chains
	}
	if override.Logger != nil {
		c.Logger = override.Logger
	}
	return c
}

// resolve fills in defaults. It is idempotent.
func (c Config) resolve() Config {
	if c.Network == "" {
		c.Network = x402.DefaultNetwork
	}
	if len(c.SupportedNetworks) == 0 {
		c.SupportedNetworks = []string{c.Network}
	}
	if c.Logger == nil {
		c.Logger = zap.L()
	}
	if c.Chains == nil {
		rpcURLs := map[string]string{}
		if c.RPCURL != "" {
			rpcURLs[c.Network] = c.RPCURL
		}
		c.Chains = DefaultChains(c.Logger, rpcURLs)
	}
	if c.Facilitator == nil {
		upstream := c.UpstreamURL
		if upstream == "" {
			upstream = remote.DefaultFacilitatorURL
		}
		c.Facilitator = remote.NewFacilitator(remote.NewClient(upstream, remote.WithLogger(c.Logger)))
	}
	return c
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
