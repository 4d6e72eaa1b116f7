/*
This file contains common utility functions for converting between human-readable token
amounts and the 18-decimal fixed-point base units every ledger stores.
*/

package utils

import (
	"errors"
	"fmt"
	"math"
	"strings"

	sdkmath "cosmossdk.io/math"

	"github.com/elys-network/ammcore/internal/types"
)

// Error definitions for zero-tolerance error handling
var (
	ErrAmountEmpty      = errors.New("amount is empty")
	ErrAmountNil        = errors.New("amount is nil")
	ErrAmountNegative   = errors.New("amount is negative")
	ErrAmountTooLarge   = errors.New("amount exceeds 256 bits in base units")
	ErrNotFinite        = errors.New("value is not finite")
	ErrConversionFailed = errors.New("conversion failed")
)

// OneToken is one whole token expressed in base units (10^18).
var OneToken = sdkmath.NewIntWithDecimal(1, types.Decimals)

// Tokens converts a whole token count to base units.
func Tokens(n int64) sdkmath.Int {
	return sdkmath.NewInt(n).Mul(OneToken)
}

// ParseAmount converts a decimal string such as "100" or "0.25" into base units.
// At most 18 fractional digits are accepted.
func ParseAmount(s string) (sdkmath.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return sdkmath.ZeroInt(), ErrAmountEmpty
	}
	dec, err := sdkmath.LegacyNewDecFromStr(s)
	if err != nil {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q: %w", ErrConversionFailed, s, err)
	}
	if dec.IsNegative() {
		return sdkmath.ZeroInt(), ErrAmountNegative
	}
	// LegacyDec keeps exactly 18 fractional digits, so its internal integer is the base-unit amount.
	units := dec.BigInt()
	if units.BitLen() > sdkmath.MaxBitLen {
		return sdkmath.ZeroInt(), fmt.Errorf("%w: %q", ErrAmountTooLarge, s)
	}
	return sdkmath.NewIntFromBigInt(units), nil
}

// MustParseAmount is ParseAmount for constants and tests.
func MustParseAmount(s string) sdkmath.Int {
	amount, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return amount
}

// FormatAmount renders base units as a decimal token string without trailing zeros.
func FormatAmount(amount sdkmath.Int) string {
	if amount.IsNil() {
		return "0"
	}
	s := sdkmath.LegacyNewDecFromBigIntWithPrec(amount.BigInt(), types.Decimals).String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	return s
}

// SDKIntToFloat64 converts base units to a float token amount. Only for logs and dashboards.
func SDKIntToFloat64(amount sdkmath.Int) (float64, error) {
	if amount.IsNil() {
		return 0, ErrAmountNil
	}

	result := sdkmath.LegacyNewDecFromBigIntWithPrec(amount.BigInt(), types.Decimals)
	resultFloat, err := result.Float64()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrConversionFailed, err)
	}

	if math.IsNaN(resultFloat) || math.IsInf(resultFloat, 0) {
		return 0, fmt.Errorf("%w: result is %f", ErrNotFinite, resultFloat)
	}

	return resultFloat, nil
}
