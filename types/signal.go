package types

import (
	"github.com/shopspring/decimal"
)

// Signal is a strategy's intent to trade a symbol at a reference price.
type Signal struct {
	Symbol string
	Side   Side
	Price  decimal.Decimal
	Reason string
	Date   int
	Time   int
}

func NewSignal(symbol string, side Side, price decimal.Decimal, reason string, date, ftime int) Signal {
	return Signal{
		Symbol: symbol,
		Side:   side,
		Price:  price,
		Reason: reason,
		Date:   date,
		Time:   ftime,
	}
}
