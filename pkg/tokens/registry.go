package tokens

import (
	"sort"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

// Mainnet tokens the swap can route between
var (
	WETH = types.TokenRef{
		Address:  common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2"),
		Decimals: 18,
		Symbol:   "WETH",
		ChainID:  1,
	}
	USDC = types.TokenRef{
		Address:  common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
		Decimals: 6,
		Symbol:   "USDC",
		ChainID:  1,
	}
	DAI = types.TokenRef{
		Address:  common.HexToAddress("0x6B175474E89094C44Da98b954EedeAC495271d0F"),
		Decimals: 18,
		Symbol:   "DAI",
		ChainID:  1,
	}
	LINK = types.TokenRef{
		Address:  common.HexToAddress("0x514910771AF9Ca656af840dff83E8264EcF986CA"),
		Decimals: 18,
		Symbol:   "LINK",
		ChainID:  1,
	}
	PEPE = types.TokenRef{
		Address:  common.HexToAddress("0x6982508145454Ce325dDbE47a25d4ec3d2311933"),
		Decimals: 18,
		Symbol:   "PEPE",
		ChainID:  1,
	}
	ETH = types.TokenRef{
		Address:  types.NativeTokenAddress,
		Decimals: 18,
		Symbol:   "ETH",
		ChainID:  1,
	}
)

// Defaults returns the built-in token list
func Defaults() []types.TokenRef {
	return []types.TokenRef{WETH, USDC, DAI, LINK, PEPE, ETH}
}

// Registry resolves symbols to tokens on the destination chain
type Registry struct {
	bySymbol map[string]types.TokenRef
}

// NewRegistry builds a registry from the defaults with overrides applied on
// top. An override replaces the default token with the same symbol.
func NewRegistry(overrides ...types.TokenRef) (*Registry, error) {
	r := &Registry{bySymbol: make(map[string]types.TokenRef)}
	for _, t := range Defaults() {
		r.bySymbol[key(t.Symbol)] = t
	}
	for _, t := range overrides {
		if err := t.Validate(); err != nil {
			return nil, errors.Wrap(apperrors.ErrInvalidConfig, err.Error())
		}
		if t.Address == (common.Address{}) {
			return nil, errors.Wrapf(apperrors.ErrInvalidConfig, "token %s has no address", t.Symbol)
		}
		if t.ChainID == 0 {
			t.ChainID = 1
		}
		t.Symbol = strings.ToUpper(strings.TrimSpace(t.Symbol))
		r.bySymbol[key(t.Symbol)] = t
	}
	return r, nil
}

// Lookup finds a token by symbol, case-insensitively
func (r *Registry) Lookup(symbol string) (types.TokenRef, error) {
	t, ok := r.bySymbol[key(symbol)]
	if !ok {
		return types.TokenRef{}, errors.Wrapf(apperrors.ErrTokenNotFound, "'%s'", symbol)
	}
	return t, nil
}

// List returns all tokens sorted by symbol
func (r *Registry) List() []types.TokenRef {
	out := make([]types.TokenRef, 0, len(r.bySymbol))
	for _, t := range r.bySymbol {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].Symbol < out[j].Symbol
	})
	return out
}

func key(symbol string) string {
	return strings.ToUpper(strings.TrimSpace(symbol))
}
