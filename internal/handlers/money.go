package handlers

import "github.com/shopspring/decimal"

// toMinorUnits converts a major-unit decimal amount (e.g. "49.99") to minor
// currency units. Amounts with more than two decimal places are rejected.
func toMinorUnits(amount decimal.Decimal) (int64, bool) {
	shifted := amount.Shift(2)
	if !shifted.IsInteger() {
		return 0, false
	}
	return shifted.IntPart(), true
}
