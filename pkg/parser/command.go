package parser

import (
	"regexp"
	"strings"

	"github.com/pkg/errors"
)

// SwapCommand is a parsed "<amount> <token> to <token>" instruction
type SwapCommand struct {
	Amount      string
	SourceToken string
	DestToken   string
}

var swapPattern = regexp.MustCompile(`^(\d+\.?\d*)\s+([A-Z0-9]+)\s+TO\s+([A-Z0-9]+)$`)

// ParseSwapCommand parses a natural language swap command
// Examples:
//   - "swap 1 WETH to PEPE"
//   - "0.5 WETH to USDC"
func ParseSwapCommand(command string) (*SwapCommand, error) {
	command = strings.TrimSpace(strings.ToUpper(command))
	command = strings.TrimPrefix(command, "SWAP ")
	command = strings.Join(strings.Fields(command), " ")

	matches := swapPattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, errors.New("invalid swap command format. Expected: 'swap <amount> <token> to <token>' (e.g., 'swap 1 WETH to PEPE')")
	}

	return &SwapCommand{
		Amount:      matches[1],
		SourceToken: matches[2],
		DestToken:   matches[3],
	}, nil
}

// Validate checks that a command has all required fields
func (c *SwapCommand) Validate() error {
	if c.Amount == "" {
		return errors.New("amount is required")
	}
	if c.SourceToken == "" {
		return errors.New("source token is required")
	}
	if c.DestToken == "" {
		return errors.New("destination token is required")
	}
	if strings.EqualFold(c.SourceToken, c.DestToken) {
		return errors.Errorf("source and destination token are both %s", c.SourceToken)
	}
	return nil
}

// NormalizeTokenSymbol maps wrapped symbols to the asset they track, for
// price lookups.
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	aliases := map[string]string{
		"WBTC": "BTC",
		"WETH": "ETH",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
