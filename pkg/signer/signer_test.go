package signer

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	ethtypes "github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// well-known development key (anvil/hardhat account #0)
const devKey = "0xac0974bec39a17e36ba4a6b4d238ff944bacb478cbed5efcae784d7bf4f2ff80"

func TestFromHex(t *testing.T) {
	s, err := FromHex(devKey)
	require.NoError(t, err)
	require.Equal(t, common.HexToAddress("0xf39Fd6e51aad88F6F4ce6aB8827279cffFb92266"), s.Address())

	_, err = FromHex("")
	require.Error(t, err)

	_, err = FromHex("0xnothex")
	require.Error(t, err)
}

func TestSignTx(t *testing.T) {
	s, err := FromHex(devKey)
	require.NoError(t, err)

	chainID := big.NewInt(42161)
	to := common.HexToAddress("0x79001a5e762f3befc8e5871b42f6734e00498920")
	tx := ethtypes.NewTx(&ethtypes.DynamicFeeTx{
		ChainID:   chainID,
		Nonce:     7,
		GasTipCap: big.NewInt(1),
		GasFeeCap: big.NewInt(2),
		Gas:       21000,
		To:        &to,
		Value:     big.NewInt(1),
	})

	signed, err := s.SignTx(tx, chainID)
	require.NoError(t, err)

	sender, err := ethtypes.Sender(ethtypes.LatestSignerForChainID(chainID), signed)
	require.NoError(t, err)
	require.Equal(t, s.Address(), sender)
}
