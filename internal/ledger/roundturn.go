package ledger

import (
	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

// RoundTurn is one open-to-flat cycle of a position. A fill that flips the
// position closes one round turn and opens the next.
type RoundTurn struct {
	Account    string
	Symbol     string
	Direction  types.Direction
	EntryDate  int
	EntryTime  int
	ExitDate   int
	ExitTime   int
	EntryPrice decimal.Decimal
	ExitPrice  decimal.Decimal
	MaxSize    int64
	Fills      int
	GrossPnL   decimal.Decimal
	Commission decimal.Decimal
	// Cost is the largest entry value committed to the round turn.
	Cost decimal.Decimal
}

func (r RoundTurn) NetPnL() decimal.Decimal {
	return r.GrossPnL.Sub(r.Commission)
}

// Return is net PnL as a fraction of Cost.
func (r RoundTurn) Return() decimal.Decimal {
	if !r.Cost.IsPositive() {
		return decimal.Zero
	}
	return r.NetPnL().Div(r.Cost)
}

func (r RoundTurn) IsWin() bool {
	return r.NetPnL().IsPositive()
}

func (l *Ledger) trackRoundTurn(acct *account, pos *Position, before int64, t types.Trade, realized decimal.Decimal) {
	after := pos.Size()
	rt, ok := acct.open[pos.Symbol()]
	if !ok {
		if after == 0 {
			return
		}
		rt = l.openRoundTurn(pos, t)
		acct.open[pos.Symbol()] = rt
		rt.Commission = rt.Commission.Add(t.Commission)
		return
	}

	rt.Fills++
	rt.GrossPnL = rt.GrossPnL.Add(realized)
	rt.Commission = rt.Commission.Add(t.Commission)
	if abs(after) > rt.MaxSize && sameSide(before, after) {
		rt.MaxSize = abs(after)
		rt.Cost = pos.AvgPrice().Mul(decimal.NewFromInt(rt.MaxSize)).Mul(pos.PointValue())
	}
	if after != 0 && sameSide(before, after) {
		return
	}

	rt.ExitDate, rt.ExitTime = t.Date, t.Time
	rt.ExitPrice = t.Price
	l.roundTurns = append(l.roundTurns, *rt)
	delete(acct.open, pos.Symbol())

	if after != 0 {
		next := l.openRoundTurn(pos, t)
		acct.open[pos.Symbol()] = next
	}
}

func (l *Ledger) openRoundTurn(pos *Position, t types.Trade) *RoundTurn {
	size := abs(pos.Size())
	return &RoundTurn{
		Account:    pos.Account(),
		Symbol:     pos.Symbol(),
		Direction:  types.DirectionOf(pos.Size()),
		EntryDate:  t.Date,
		EntryTime:  t.Time,
		EntryPrice: pos.AvgPrice(),
		MaxSize:    size,
		Fills:      1,
		Cost:       pos.AvgPrice().Mul(decimal.NewFromInt(size)).Mul(pos.PointValue()),
	}
}
