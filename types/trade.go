package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var ErrInvalidTrade = errors.New("invalid trade")

// Trade is an executed fill. It is never modified once created.
type Trade struct {
	ID         string
	OrderID    string
	Symbol     string
	Account    string
	Side       Side
	Price      decimal.Decimal
	Size       int64
	Date       int
	Time       int
	Exchange   string
	Commission decimal.Decimal
	Swap       decimal.Decimal
}

// NewFill builds a validated fill without commission.
func NewFill(symbol, account string, side Side, price decimal.Decimal, size int64, date, ftime int) (Trade, error) {
	t := Trade{
		Symbol:  symbol,
		Account: account,
		Side:    side,
		Price:   price,
		Size:    size,
		Date:    date,
		Time:    ftime,
	}
	if err := t.Validate(); err != nil {
		return Trade{}, err
	}
	return t, nil
}

func (t Trade) Validate() error {
	if t.Symbol == "" || !t.Side.Valid() || t.Size <= 0 || !t.Price.IsPositive() {
		return fmt.Errorf("%s %s %d@%s: %w", t.Symbol, t.Side, t.Size, t.Price, ErrInvalidTrade)
	}
	return nil
}

func (t Trade) SignedSize() int64 {
	return t.Side.Sign() * t.Size
}

// Notional is price times size.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Size))
}

func (t Trade) String() string {
	return fmt.Sprintf("%d %d %s %s %d@%s %s", t.Date, t.Time, t.Symbol, t.Side, t.Size, t.Price, t.Account)
}
