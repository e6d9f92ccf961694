package staking

import (
	"fmt"
	"math/big"
	"strings"

	pkgtypes "github.com/moltbunker/stakedesk/pkg/types"
)

// ParseUnits converts a non-negative decimal string such as "1.5" into base
// units with the given number of decimals. Fractional digits beyond decimals
// are rejected unless they are zeros.
func ParseUnits(amount string, decimals int) (*big.Int, error) {
	s := strings.TrimSpace(amount)
	if s == "" || s == "." {
		return nil, fmt.Errorf("%w: %q", pkgtypes.ErrInvalidAmount, amount)
	}

	whole, frac, _ := strings.Cut(s, ".")
	if !isDigits(whole) || !isDigits(frac) {
		return nil, fmt.Errorf("%w: %q", pkgtypes.ErrInvalidAmount, amount)
	}

	frac = strings.TrimRight(frac, "0")
	if len(frac) > decimals {
		return nil, fmt.Errorf("%w: %q has more than %d decimals", pkgtypes.ErrInvalidAmount, amount, decimals)
	}
	frac += strings.Repeat("0", decimals-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	if digits == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(digits, 10)
	if !ok {
		return nil, fmt.Errorf("%w: %q", pkgtypes.ErrInvalidAmount, amount)
	}
	return v, nil
}

// FormatUnits renders base units as a decimal string. The fraction keeps at
// least one digit, so 10^18 with 18 decimals formats as "1.0".
func FormatUnits(v *big.Int, decimals int) string {
	if v == nil {
		v = new(big.Int)
	}
	neg := v.Sign() < 0
	s := new(big.Int).Abs(v).String()
	if len(s) <= decimals {
		s = strings.Repeat("0", decimals-len(s)+1) + s
	}
	whole, frac := s[:len(s)-decimals], strings.TrimRight(s[len(s)-decimals:], "0")
	if frac == "" {
		frac = "0"
	}
	if neg {
		whole = "-" + whole
	}
	return whole + "." + frac
}

// ParseTokens is ParseUnits with the staked token's precision.
func ParseTokens(amount string) (*big.Int, error) {
	return ParseUnits(amount, pkgtypes.TokenDecimals)
}

// FormatTokens is FormatUnits with the staked token's precision.
func FormatTokens(v *big.Int) string {
	return FormatUnits(v, pkgtypes.TokenDecimals)
}

// isDigits allows the empty string so "5." and ".5" both parse.
func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
