package types

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
)

// Chain is a bridge-side chain identifier
type Chain uint32

const (
	ChainEthereum Chain = 1
	ChainPolkadot Chain = 2
	ChainBitcoin  Chain = 3
	ChainArbitrum Chain = 4
	ChainSolana   Chain = 5
)

var chainNames = map[Chain]string{
	ChainEthereum: "Ethereum",
	ChainPolkadot: "Polkadot",
	ChainBitcoin:  "Bitcoin",
	ChainArbitrum: "Arbitrum",
	ChainSolana:   "Solana",
}

func (c Chain) String() string {
	if name, ok := chainNames[c]; ok {
		return name
	}
	return fmt.Sprintf("Chain(%d)", uint32(c))
}

// ParseChain resolves a chain name case-insensitively
func ParseChain(name string) (Chain, error) {
	for chain, n := range chainNames {
		if strings.EqualFold(n, strings.TrimSpace(name)) {
			return chain, nil
		}
	}
	return 0, errors.Errorf("unsupported chain: %s", name)
}

// Asset is a bridge-side asset identifier. The same symbol on different
// chains maps to different identifiers.
type Asset uint32

const (
	AssetETH     Asset = 1
	AssetFLIP    Asset = 2
	AssetUSDC    Asset = 3
	AssetUSDT    Asset = 8
	AssetArbETH  Asset = 6
	AssetArbUSDC Asset = 7
)

type assetInfo struct {
	symbol string
	chain  Chain
}

var assets = map[Asset]assetInfo{
	AssetETH:     {"ETH", ChainEthereum},
	AssetFLIP:    {"FLIP", ChainEthereum},
	AssetUSDC:    {"USDC", ChainEthereum},
	AssetUSDT:    {"USDT", ChainEthereum},
	AssetArbETH:  {"ETH", ChainArbitrum},
	AssetArbUSDC: {"USDC", ChainArbitrum},
}

// Symbol returns the asset's ticker as the bridge API expects it
func (a Asset) Symbol() string {
	if info, ok := assets[a]; ok {
		return info.symbol
	}
	return ""
}

// Chain returns the chain the asset lives on
func (a Asset) Chain() Chain {
	return assets[a].chain
}

func (a Asset) String() string {
	info, ok := assets[a]
	if !ok {
		return fmt.Sprintf("Asset(%d)", uint32(a))
	}
	return fmt.Sprintf("%s.%s", info.chain, info.symbol)
}

// ParseAsset resolves a symbol on a given chain
func ParseAsset(chain Chain, symbol string) (Asset, error) {
	for asset, info := range assets {
		if info.chain == chain && strings.EqualFold(info.symbol, strings.TrimSpace(symbol)) {
			return asset, nil
		}
	}
	return 0, errors.Errorf("asset %s not supported on %s", symbol, chain)
}
