// Package units converts between base units (mojos) and the human readable
// denominations shown to users.
package units

import (
	"fmt"

	"github.com/berkeleycompute/chia-enclave-wallet-client-sub003/internal/core/domain"
	"github.com/shopspring/decimal"
)

const (
	// XCHDecimals is the number of decimal places of one XCH in mojos.
	XCHDecimals = 12
	// CATDecimals is the number of decimal places of one CAT token.
	CATDecimals = 3
)

// Format renders amount as a decimal string with the given number of
// decimals, trimming trailing zeros.
func Format(amount domain.Amount, decimals int32) string {
	return decimal.NewFromBigInt(amount.Big(), -decimals).String()
}

// Parse converts a decimal string into base units. It fails if the value is
// negative or more precise than decimals allows.
func Parse(s string, decimals int32) (domain.Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return domain.Amount{}, fmt.Errorf("invalid amount %q: %s", s, err)
	}
	if d.Sign() < 0 {
		return domain.Amount{}, fmt.Errorf("invalid amount %q: must not be negative", s)
	}
	scaled := d.Shift(decimals)
	if !scaled.IsInteger() {
		return domain.Amount{}, fmt.Errorf(
			"invalid amount %q: at most %d decimal places", s, decimals,
		)
	}
	return domain.AmountFromBig(scaled.BigInt())
}

func FormatXCH(mojos domain.Amount) string {
	return Format(mojos, XCHDecimals)
}

func ParseXCH(s string) (domain.Amount, error) {
	return Parse(s, XCHDecimals)
}
