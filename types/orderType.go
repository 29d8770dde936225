package types

type Side string

type Direction string
type OrderType string

type OrderStatus string

type Instruction string

const (
	OrderNew             OrderStatus = "ORDER_NEW"
	OrderPartiallyFilled OrderStatus = "ORDER_PARTIALLY_FILLED"
	OrderFilled          OrderStatus = "ORDER_FILLED"
	OrderCanceled        OrderStatus = "ORDER_CANCELED"

	SideTypeBuy  Side = "BUY"
	SideTypeSell Side = "SELL"

	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
	DirectionFlat  Direction = "FLAT"

	TypeMarket    OrderType = "MARKET"
	TypeLimit     OrderType = "LIMIT"
	TypeStop      OrderType = "STOP"
	TypeStopLimit OrderType = "STOP_LIMIT"

	InstructionDay    Instruction = "DAY"
	InstructionGTC    Instruction = "GTC"
	InstructionMOC    Instruction = "MOC"
	InstructionOPG    Instruction = "OPG"
	InstructionIOC    Instruction = "IOC"
	InstructionHidden Instruction = "HIDDEN"
)

// Opposite returns the other side of the book.
func (s Side) Opposite() Side {
	if s == SideTypeBuy {
		return SideTypeSell
	}
	return SideTypeBuy
}

// Sign is +1 for buys and -1 for sells.
func (s Side) Sign() int64 {
	if s == SideTypeSell {
		return -1
	}
	return 1
}

func (s Side) Valid() bool {
	return s == SideTypeBuy || s == SideTypeSell
}

// SideOf maps a signed size to a side. Zero maps to buy.
func SideOf(signedSize int64) Side {
	if signedSize < 0 {
		return SideTypeSell
	}
	return SideTypeBuy
}

// DirectionOf maps a signed size to a direction.
func DirectionOf(signedSize int64) Direction {
	switch {
	case signedSize > 0:
		return DirectionLong
	case signedSize < 0:
		return DirectionShort
	default:
		return DirectionFlat
	}
}
