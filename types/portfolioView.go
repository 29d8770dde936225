package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// PortfolioView is a point-in-time copy of one account.
type PortfolioView struct {
	Account   string
	Cash      decimal.Decimal
	Positions map[string]PositionSnapshot
	Date      int
	Time      int
}

type PositionSnapshot struct {
	Symbol     string
	Account    string
	Size       int64
	AvgPrice   decimal.Decimal
	LastPrice  decimal.Decimal
	ClosedPnL  decimal.Decimal
	PointValue decimal.Decimal
}

// MarketValue is the signed value of the position at its last price.
func (p PositionSnapshot) MarketValue() decimal.Decimal {
	return p.LastPrice.Mul(decimal.NewFromInt(p.Size)).Mul(p.PointValue)
}

// UnrealizedPnL is the open profit of the position at its last price.
func (p PositionSnapshot) UnrealizedPnL() decimal.Decimal {
	if p.Size == 0 {
		return decimal.Zero
	}
	return p.LastPrice.Sub(p.AvgPrice).Mul(decimal.NewFromInt(p.Size)).Mul(p.PointValue)
}

// Equity is cash plus the market value of every position.
func (v PortfolioView) Equity() decimal.Decimal {
	value := v.Cash
	for _, pos := range v.Positions {
		value = value.Add(pos.MarketValue())
	}
	return value
}

func (v PortfolioView) Timestamp() time.Time {
	return ToTime(v.Date, v.Time)
}
