package x402

import (
	"fmt"
)

// DefaultNetwork is used when neither configuration nor NETWORK names one.
const DefaultNetwork = "base-sepolia"

// NetworkFamily classifies a network by virtual machine.
type NetworkFamily int

const (
	FamilyUnknown NetworkFamily = iota
	FamilyEVM
	FamilySVM
)

// NetworkInfo describes a supported blockchain network and its USDC deployment.
type NetworkInfo struct {
	Name    string
	Family  NetworkFamily
	ChainID int64
	Testnet bool

	// USDC is the token contract (EVM) or mint (Solana) prices are paid in.
	USDC string

	// EIP712Name and EIP712Version form the EIP-3009 signing domain; empty for Solana.
	EIP712Name    string
	EIP712Version string

	// RPCURL is the public endpoint used when no override is configured.
	RPCURL string
}

// USDCDecimals is the number of decimals of USDC on every supported network.
const USDCDecimals = 6

var networks = map[string]NetworkInfo{
	"base": {
		Name: "base", Family: FamilyEVM, ChainID: 8453,
		USDC:       "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913",
		EIP712Name: "USD Coin", EIP712Version: "2",
		RPCURL: "https://mainnet.base.org",
	},
	"base-sepolia": {
		Name: "base-sepolia", Family: FamilyEVM, ChainID: 84532, Testnet: true,
		USDC:       "0x036CbD53842c5426634e7929541eC2318f3dCF7e",
		EIP712Name: "USDC", EIP712Version: "2",
		RPCURL: "https://sepolia.base.org",
	},
	"avalanche": {
		Name: "avalanche", Family: FamilyEVM, ChainID: 43114,
		USDC:       "0xB97EF9Ef8734C71904D8002F8b6Bc66Dd9c48a6E",
		EIP712Name: "USD Coin", EIP712Version: "2",
		RPCURL: "https://api.avax.network/ext/bc/C/rpc",
	},
	"avalanche-fuji": {
		Name: "avalanche-fuji", Family: FamilyEVM, ChainID: 43113, Testnet: true,
		USDC:       "0x5425890298aed601595a70AB815c96711a31Bc65",
		EIP712Name: "USD Coin", EIP712Version: "2",
		RPCURL: "https://api.avax-test.network/ext/bc/C/rpc",
	},
	"polygon": {
		Name: "polygon", Family: FamilyEVM, ChainID: 137,
		USDC:       "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359",
		EIP712Name: "USD Coin", EIP712Version: "2",
		RPCURL: "https://polygon-rpc.com",
	},
	"polygon-amoy": {
		Name: "polygon-amoy", Family: FamilyEVM, ChainID: 80002, Testnet: true,
		USDC:       "0x41E94Eb019C0762f9Bfcf9Fb1E58725BfB0e7582",
		EIP712Name: "USDC", EIP712Version: "2",
		RPCURL: "https://rpc-amoy.polygon.technology",
	},
	"solana": {
		Name: "solana", Family: FamilySVM,
		USDC:   "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v",
		RPCURL: "https://api.mainnet-beta.solana.com",
	},
	"solana-devnet": {
		Name: "solana-devnet", Family: FamilySVM, Testnet: true,
		USDC:   "4zMMC9srt5Ri5X14GAgXhaHii3GnPAEERYPJgZJDncDU",
		RPCURL: "https://api.devnet.solana.com",
	},
}

// LookupNetwork returns the network table entry for name.
func LookupNetwork(name string) (NetworkInfo, error) {
	info, ok := networks[name]
	if !ok {
		return NetworkInfo{}, fmt.Errorf("%w: %q", ErrUnknownNetwork, name)
	}
	return info, nil
}

// IsKnownNetwork reports whether name is in the network table.
func IsKnownNetwork(name string) bool {
	_, ok := networks[name]
	return ok
}
