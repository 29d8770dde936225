package types

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	ErrEmptyOrder   = errors.New("empty order")
	ErrInvalidSide  = errors.New("invalid order side")
	ErrInvalidSize  = errors.New("order size must be positive")
	ErrInvalidPrice = errors.New("invalid order price")
)

// Order is a request to trade. Only the price fields that belong to Type may be
// set: limit orders carry LimitPrice, stop orders StopPrice, stop-limit both,
// market orders neither.
type Order struct {
	ID          string
	Symbol      string
	Account     string
	Side        Side
	Size        int64
	Type        OrderType
	LimitPrice  decimal.Decimal
	StopPrice   decimal.Decimal
	Instruction Instruction
	Exchange    string
	Status      OrderStatus
	Filled      int64
	Date        int
	Time        int
}

func NewMarketOrder(symbol string, side Side, size int64, account string) Order {
	return Order{
		Symbol:      symbol,
		Account:     account,
		Side:        side,
		Size:        size,
		Type:        TypeMarket,
		Instruction: InstructionDay,
		Status:      OrderNew,
	}
}

func NewLimitOrder(symbol string, side Side, size int64, limit decimal.Decimal, account string) Order {
	o := NewMarketOrder(symbol, side, size, account)
	o.Type = TypeLimit
	o.LimitPrice = limit
	return o
}

func NewStopOrder(symbol string, side Side, size int64, stop decimal.Decimal, account string) Order {
	o := NewMarketOrder(symbol, side, size, account)
	o.Type = TypeStop
	o.StopPrice = stop
	return o
}

func NewStopLimitOrder(symbol string, side Side, size int64, stop, limit decimal.Decimal, account string) Order {
	o := NewMarketOrder(symbol, side, size, account)
	o.Type = TypeStopLimit
	o.StopPrice = stop
	o.LimitPrice = limit
	return o
}

// Validate checks the order shape. It does not look at market state.
func (o Order) Validate() error {
	if o.Symbol == "" && o.Size == 0 {
		return ErrEmptyOrder
	}
	if o.Symbol == "" {
		return fmt.Errorf("missing symbol: %w", ErrEmptyOrder)
	}
	if !o.Side.Valid() {
		return fmt.Errorf("%q: %w", o.Side, ErrInvalidSide)
	}
	if o.Size <= 0 {
		return fmt.Errorf("%d: %w", o.Size, ErrInvalidSize)
	}
	hasLimit, hasStop := !o.LimitPrice.IsZero(), !o.StopPrice.IsZero()
	if o.LimitPrice.IsNegative() || o.StopPrice.IsNegative() {
		return fmt.Errorf("negative price: %w", ErrInvalidPrice)
	}
	switch o.Type {
	case TypeMarket:
		if hasLimit || hasStop {
			return fmt.Errorf("market order with price: %w", ErrInvalidPrice)
		}
	case TypeLimit:
		if !hasLimit || hasStop {
			return fmt.Errorf("limit order needs only a limit price: %w", ErrInvalidPrice)
		}
	case TypeStop:
		if !hasStop || hasLimit {
			return fmt.Errorf("stop order needs only a stop price: %w", ErrInvalidPrice)
		}
	case TypeStopLimit:
		if !hasStop || !hasLimit {
			return fmt.Errorf("stop-limit order needs stop and limit: %w", ErrInvalidPrice)
		}
	default:
		return fmt.Errorf("order type %q: %w", o.Type, ErrInvalidPrice)
	}
	return nil
}

// SignedSize is positive for buys and negative for sells.
func (o Order) SignedSize() int64 {
	return o.Side.Sign() * o.Size
}

func (o Order) Direction() Direction {
	return DirectionOf(o.SignedSize())
}

func (o Order) Remaining() int64 {
	return o.Size - o.Filled
}

func (o Order) IsBuy() bool {
	return o.Side == SideTypeBuy
}

// IsActive is true while the order can still trade.
func (o Order) IsActive() bool {
	return o.Status == OrderNew || o.Status == OrderPartiallyFilled
}

func (o Order) String() string {
	s := fmt.Sprintf("%s %s %d %s %s", o.ID, o.Side, o.Size, o.Symbol, o.Type)
	switch o.Type {
	case TypeLimit:
		s += " @" + o.LimitPrice.String()
	case TypeStop:
		s += " stop " + o.StopPrice.String()
	case TypeStopLimit:
		s += " stop " + o.StopPrice.String() + " limit " + o.LimitPrice.String()
	}
	return s + " " + string(o.Instruction)
}
