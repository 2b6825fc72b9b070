package domain

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

const minorUnitExponent = 2

var hundred = decimal.NewFromInt(100)

// ToMinorUnits converts a provider decimal string ("10.00") to cents,
// rounding half away from zero.
func ToMinorUnits(major string) (int64, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(major))
	if err != nil {
		return 0, fmt.Errorf("parse amount %q: %w", major, err)
	}
	return MajorToMinor(d), nil
}

func MajorToMinor(d decimal.Decimal) int64 {
	return d.Shift(minorUnitExponent).Round(0).IntPart()
}

// FormatMajorUnits renders cents the way the provider expects amounts.
func FormatMajorUnits(minor int64) string {
	return decimal.New(minor, -minorUnitExponent).StringFixed(minorUnitExponent)
}

// PercentOf returns round(amount * percent / 100).
func PercentOf(amount int64, percent decimal.Decimal) int64 {
	return decimal.NewFromInt(amount).Mul(percent).Div(hundred).Round(0).IntPart()
}
