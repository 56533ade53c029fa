package amount

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// ToBaseUnits converts a human readable amount to the token's smallest unit.
// Digits beyond the token's decimals are truncated, never rounded up.
func ToBaseUnits(human string, decimals uint8) (*big.Int, error) {
	d, err := Parse(human)
	if err != nil {
		return nil, err
	}
	return DecimalToBaseUnits(d, decimals), nil
}

// DecimalToBaseUnits converts an already parsed amount to base units (floor)
func DecimalToBaseUnits(d decimal.Decimal, decimals uint8) *big.Int {
	return d.Shift(int32(decimals)).Truncate(0).BigInt()
}

// FromBaseUnits converts a base-unit amount back to token units
func FromBaseUnits(raw *big.Int, decimals uint8) decimal.Decimal {
	if raw == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(raw, -int32(decimals))
}

// Format renders a base-unit amount in token units without trailing zeros
func Format(raw *big.Int, decimals uint8) string {
	return FromBaseUnits(raw, decimals).String()
}

// Parse reads a non-negative decimal string. Exponents and signs are rejected
// so that what the user typed is exactly what gets quoted.
func Parse(human string) (decimal.Decimal, error) {
	s := strings.TrimSpace(human)
	if s == "" {
		return decimal.Zero, errors.New("amount is required")
	}
	for _, r := range s {
		if (r < '0' || r > '9') && r != '.' {
			return decimal.Zero, errors.Errorf("invalid amount format: %s", human)
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "invalid amount format: %s", human)
	}
	return d, nil
}

// ParsePositive is Parse plus a strictly-positive check
func ParsePositive(human string) (decimal.Decimal, error) {
	d, err := Parse(human)
	if err != nil {
		return decimal.Zero, err
	}
	if !d.IsPositive() {
		return decimal.Zero, errors.New("amount must be greater than 0")
	}
	return d, nil
}

// Truncate drops fractional digits beyond the token's decimals
func Truncate(d decimal.Decimal, decimals uint8) decimal.Decimal {
	return d.Truncate(int32(decimals))
}
