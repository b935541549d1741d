package utils

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"
)

// FormatUnits converts a base-unit amount into a display string with a fixed number of
// fractional digits, truncating extra precision.
// Example: amount=1234500000000000000, decimals=18, places=4 => "1.2345"
func FormatUnits(amount *big.Int, decimals uint8, places int32) string {
	if amount == nil {
		return decimal.Zero.StringFixed(places)
	}
	return decimal.NewFromBigInt(amount, -int32(decimals)).Truncate(places).StringFixed(places)
}

// ParseUnits converts a human amount ("0.001") into base units for the given decimals.
// It rejects negative values and amounts with more fractional digits than decimals.
func ParseUnits(amount string, decimals uint8) (*big.Int, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(amount))
	if err != nil {
		return nil, fmt.Errorf("invalid amount %q: %w", amount, err)
	}
	if d.IsNegative() {
		return nil, fmt.Errorf("invalid amount %q: negative", amount)
	}
	scaled := d.Shift(int32(decimals))
	if !scaled.Equal(scaled.Truncate(0)) {
		return nil, fmt.Errorf("invalid amount %q: more than %d fractional digits", amount, decimals)
	}
	return scaled.BigInt(), nil
}

// ParseHexQuantity decodes a 0x-prefixed unsigned hex quantity. Empty payloads ("0x") decode
// to zero; zero-padded words are accepted, signs are not.
func ParseHexQuantity(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "0x") && !strings.HasPrefix(s, "0X") {
		return nil, fmt.Errorf("hex quantity %q: missing 0x prefix", s)
	}
	digits := s[2:]
	if digits == "" {
		return new(big.Int), nil
	}
	if strings.IndexFunc(digits, isNotHexDigit) >= 0 {
		return nil, fmt.Errorf("hex quantity %q: not a number", s)
	}
	v, ok := new(big.Int).SetString(digits, 16)
	if !ok {
		return nil, fmt.Errorf("hex quantity %q: not a number", s)
	}
	return v, nil
}

func isNotHexDigit(r rune) bool {
	return !('0' <= r && r <= '9' || 'a' <= r && r <= 'f' || 'A' <= r && r <= 'F')
}

// ToHexQuantity encodes v as a minimal 0x-prefixed hex quantity.
func ToHexQuantity(v *big.Int) string {
	if v == nil || v.Sign() == 0 {
		return "0x0"
	}
	return "0x" + v.Text(16)
}
