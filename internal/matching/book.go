package matching

import (
	"slices"

	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

// entry is a resting order plus the matching state that is not part of the
// order itself.
type entry struct {
	order     types.Order
	seq       uint64
	triggered bool
}

// restingLimit reports the limit price the entry currently shows, if any.
// Stop-limit orders only show once their stop has been crossed.
func (e *entry) restingLimit() (decimal.Decimal, bool) {
	switch e.order.Type {
	case types.TypeLimit:
		return e.order.LimitPrice, true
	case types.TypeStopLimit:
		return e.order.LimitPrice, e.triggered
	default:
		return decimal.Zero, false
	}
}

// book holds the resting orders of one symbol in acceptance order.
type book struct {
	entries []*entry
}

func (b *book) add(e *entry) {
	b.entries = append(b.entries, e)
}

func (b *book) remove(id string) {
	b.entries = slices.DeleteFunc(b.entries, func(e *entry) bool {
		return e.order.ID == id
	})
}

// compact drops filled and cancelled entries.
func (b *book) compact() {
	b.entries = slices.DeleteFunc(b.entries, func(e *entry) bool {
		return !e.order.IsActive()
	})
}

// best aggregates the top of book for one side. Hidden orders are left out.
func (b *book) best(side types.Side) (decimal.Decimal, int64, bool) {
	var (
		price decimal.Decimal
		size  int64
		found bool
	)
	for _, e := range b.entries {
		if e.order.Side != side || !e.order.IsActive() || e.order.Instruction == types.InstructionHidden {
			continue
		}
		limit, ok := e.restingLimit()
		if !ok {
			continue
		}
		better := !found ||
			(side == types.SideTypeBuy && limit.GreaterThan(price)) ||
			(side == types.SideTypeSell && limit.LessThan(price))
		switch {
		case better:
			price, size, found = limit, e.order.Remaining(), true
		case limit.Equal(price):
			size += e.order.Remaining()
		}
	}
	return price, size, found
}
