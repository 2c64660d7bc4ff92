// Package money holds currency-aware rounding helpers shared by the ledger, expenses and reports.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

var zeroDecimalCurrencies = map[string]struct{}{
	"JPY": {}, "KRW": {}, "VND": {}, "CLP": {}, "ISK": {},
}

var threeDecimalCurrencies = map[string]struct{}{
	"BHD": {}, "KWD": {}, "OMR": {}, "JOD": {}, "TND": {},
}

// MinorUnits returns the number of decimal places of the currency's minor unit.
func MinorUnits(currency string) int32 {
	code := strings.ToUpper(currency)
	if _, ok := zeroDecimalCurrencies[code]; ok {
		return 0
	}
	if _, ok := threeDecimalCurrencies[code]; ok {
		return 3
	}
	return 2
}

// Round rounds half away from zero to the currency's minor unit.
func Round(amount decimal.Decimal, currency string) decimal.Decimal {
	return amount.Round(MinorUnits(currency))
}

// Round2 rounds half away from zero to two decimal places.
func Round2(amount decimal.Decimal) decimal.Decimal {
	return amount.Round(2)
}

// IsCurrencyCode reports whether code looks like an ISO-4217 alphabetic code.
func IsCurrencyCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, r := range code {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

// Percentage returns round(part / whole * 100), or 0 when whole is zero.
func Percentage(part, whole decimal.Decimal) int64 {
	if whole.IsZero() {
		return 0
	}
	return part.Div(whole).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
