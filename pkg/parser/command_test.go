package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSwapCommand(t *testing.T) {
	tests := []struct {
		input  string
		amount string
		src    string
		dst    string
	}{
		{"swap 1 WETH to PEPE", "1", "WETH", "PEPE"},
		{"0.5 weth to usdc", "0.5", "WETH", "USDC"},
		{"  100   DAI   TO   LINK ", "100", "DAI", "LINK"},
		{"1. WETH to PEPE", "1.", "WETH", "PEPE"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cmd, err := ParseSwapCommand(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.amount, cmd.Amount)
			assert.Equal(t, tt.src, cmd.SourceToken)
			assert.Equal(t, tt.dst, cmd.DestToken)
			assert.NoError(t, cmd.Validate())
		})
	}
}

func TestParseSwapCommand_Invalid(t *testing.T) {
	for _, input := range []string{
		"",
		"swap WETH to PEPE",
		"-1 WETH to PEPE",
		"1 WETH PEPE",
		"1e18 WETH to PEPE",
		"1 WETH to",
	} {
		_, err := ParseSwapCommand(input)
		assert.Error(t, err, input)
	}
}

func TestValidate_SameToken(t *testing.T) {
	cmd, err := ParseSwapCommand("1 WETH to WETH")
	require.NoError(t, err)
	assert.Error(t, cmd.Validate())
}

func TestNormalizeTokenSymbol(t *testing.T) {
	assert.Equal(t, "ETH", NormalizeTokenSymbol("weth"))
	assert.Equal(t, "BTC", NormalizeTokenSymbol("WBTC"))
	assert.Equal(t, "PEPE", NormalizeTokenSymbol(" pepe "))
}
