package x402

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParsePrice converts a human price such as "$0.01" or "0.5" into USDC
// atomic units. Thousands separators are allowed; sub-atomic precision is not.
func ParsePrice(price string) (string, error) {
	s := strings.TrimSpace(price)
	s = strings.TrimPrefix(s, "$")
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return "", fmt.Errorf("%w: empty price", ErrInvalidPrice)
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	if d.IsNegative() {
		return "", fmt.Errorf("%w: %q is negative", ErrInvalidPrice, price)
	}

	atomic := d.Shift(USDCDecimals)
	if !atomic.IsInteger() {
		return "", fmt.Errorf("%w: %q has more than %d decimals", ErrInvalidPrice, price, USDCDecimals)
	}

	return atomic.String(), nil
}
