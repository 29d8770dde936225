package donchian

import (
	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

// Allocator turns a channel signal into market orders sized from a fixed
// share of available cash.
type Allocator struct {
	positionPercent decimal.Decimal
	allowShort      bool
}

// NewLongOnlyAllocator opens longs on buy breaks and only flattens on sell
// breaks.
func NewLongOnlyAllocator(positionPercent decimal.Decimal) *Allocator {
	return &Allocator{positionPercent: positionPercent}
}

// NewReversingAllocator also opens shorts, reversing the position on every
// opposite break.
func NewReversingAllocator(positionPercent decimal.Decimal) *Allocator {
	return &Allocator{positionPercent: positionPercent, allowShort: true}
}

func (a *Allocator) Allocate(sig types.Signal, pos types.PositionSnapshot, cash decimal.Decimal) []types.Order {
	entry := getQuantityForPrice(sig.Price, cash.Mul(a.positionPercent))

	switch {
	case pos.Size == 0:
		if sig.Side == types.SideTypeSell && !a.allowShort {
			return nil
		}
		return marketOrder(sig, entry)

	case pos.Size > 0:
		if sig.Side == types.SideTypeBuy {
			// no pyramiding
			return nil
		}
		size := pos.Size
		if a.allowShort {
			size += entry
		}
		return marketOrder(sig, size)

	default:
		if sig.Side == types.SideTypeSell {
			return nil
		}
		return marketOrder(sig, -pos.Size+entry)
	}
}

// Exit closes whatever is open in the signal's direction.
func (a *Allocator) Exit(sig types.Signal, pos types.PositionSnapshot) []types.Order {
	switch {
	case pos.Size > 0 && sig.Side == types.SideTypeSell:
		return marketOrder(sig, pos.Size)
	case pos.Size < 0 && sig.Side == types.SideTypeBuy:
		return marketOrder(sig, -pos.Size)
	}
	return nil
}

func marketOrder(sig types.Signal, size int64) []types.Order {
	if size <= 0 {
		return nil
	}
	return []types.Order{types.NewMarketOrder(sig.Symbol, sig.Side, size, "")}
}

func getQuantityForPrice(price, capital decimal.Decimal) int64 {
	if !price.IsPositive() || !capital.IsPositive() {
		return 0
	}
	return capital.Div(price).Floor().IntPart()
}
