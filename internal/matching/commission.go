package matching

import (
	"github.com/shopspring/decimal"
)

// CommissionModel prices one fill.
type CommissionModel func(symbol string, price decimal.Decimal, size int64) decimal.Decimal

func NoCommission(string, decimal.Decimal, int64) decimal.Decimal {
	return decimal.Zero
}

// PerShare charges a flat rate per unit filled.
func PerShare(rate decimal.Decimal) CommissionModel {
	return func(_ string, _ decimal.Decimal, size int64) decimal.Decimal {
		return rate.Mul(decimal.NewFromInt(size))
	}
}

// PercentOfValue charges rate times the fill value, clamped to [min, max].
// A zero max means no cap.
func PercentOfValue(rate, min, max decimal.Decimal) CommissionModel {
	return func(_ string, price decimal.Decimal, size int64) decimal.Decimal {
		value := price.Mul(decimal.NewFromInt(size))
		if value.LessThanOrEqual(decimal.Zero) {
			return decimal.Zero
		}
		fee := value.Mul(rate)
		if fee.LessThan(min) {
			fee = min
		}
		if max.IsPositive() && fee.GreaterThan(max) {
			fee = max
		}
		return fee
	}
}

// IBKRFixed follows the IBKR "Fixed - SmartRouting" schedule for USD
// denominated Netherlands stocks: 0.05% of value, min 1.70, max 39.00.
func IBKRFixed() CommissionModel {
	return PercentOfValue(
		decimal.RequireFromString("0.0005"),
		decimal.RequireFromString("1.70"),
		decimal.RequireFromString("39"),
	)
}

// IBKRForexTier1 is 0.20 basis points of value with a 2.00 minimum.
func IBKRForexTier1() CommissionModel {
	return PercentOfValue(
		decimal.RequireFromString("0.00002"),
		decimal.RequireFromString("2.00"),
		decimal.Zero,
	)
}
