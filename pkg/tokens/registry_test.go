package tokens

import (
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"flip-bridge/pkg/apperrors"
	"flip-bridge/pkg/types"
)

func TestRegistry_Lookup(t *testing.T) {
	r, err := NewRegistry()
	require.NoError(t, err)

	weth, err := r.Lookup("weth")
	require.NoError(t, err)
	assert.Equal(t, WETH, weth)

	eth, err := r.Lookup(" ETH ")
	require.NoError(t, err)
	assert.True(t, eth.IsNative())

	_, err = r.Lookup("DOGE")
	assert.True(t, errors.Is(err, apperrors.ErrTokenNotFound))
}

func TestRegistry_Overrides(t *testing.T) {
	usdt := types.TokenRef{
		Address:  common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
		Decimals: 6,
		Symbol:   "usdt",
	}
	pepe := PEPE
	pepe.Address = common.HexToAddress("0x0000000000000000000000000000000000000001")

	r, err := NewRegistry(usdt, pepe)
	require.NoError(t, err)

	got, err := r.Lookup("USDT")
	require.NoError(t, err)
	assert.Equal(t, "USDT", got.Symbol)
	assert.Equal(t, uint64(1), got.ChainID)

	got, err = r.Lookup("PEPE")
	require.NoError(t, err)
	assert.Equal(t, pepe.Address, got.Address)

	list := r.List()
	assert.Len(t, list, 7)
	assert.Equal(t, "DAI", list[0].Symbol)
}

func TestRegistry_RejectsInvalidOverride(t *testing.T) {
	_, err := NewRegistry(types.TokenRef{Symbol: "X", Decimals: 18})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))

	_, err = NewRegistry(types.TokenRef{Address: common.HexToAddress("0x01"), Decimals: 18})
	assert.True(t, errors.Is(err, apperrors.ErrInvalidConfig))
}
