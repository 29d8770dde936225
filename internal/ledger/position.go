package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

var (
	ErrAccountMismatch = errors.New("account mismatch")
	ErrSymbolMismatch  = errors.New("symbol mismatch")
	ErrInvalidTrade    = errors.New("invalid trade")
)

// Position is the open exposure of one account in one symbol. It only
// changes through Adjust and AdjustPosition.
type Position struct {
	account    string
	symbol     string
	size       int64
	avgPrice   decimal.Decimal
	closedPnL  decimal.Decimal
	pointValue decimal.Decimal
	date       int
	time       int
	trades     []types.Trade
}

func NewPosition(account, symbol string) *Position {
	return &Position{
		account:    account,
		symbol:     symbol,
		pointValue: decimal.NewFromInt(1),
	}
}

// newPositionWithPointValue scales realized PnL by pv, the money value of one
// price point per unit.
func newPositionWithPointValue(account, symbol string, pv decimal.Decimal) *Position {
	p := NewPosition(account, symbol)
	if pv.IsPositive() {
		p.pointValue = pv
	}
	return p
}

func (p *Position) Account() string             { return p.account }
func (p *Position) Symbol() string              { return p.symbol }
func (p *Position) Size() int64                 { return p.size }
func (p *Position) AvgPrice() decimal.Decimal   { return p.avgPrice }
func (p *Position) ClosedPnL() decimal.Decimal  { return p.closedPnL }
func (p *Position) PointValue() decimal.Decimal { return p.pointValue }
func (p *Position) IsFlat() bool                { return p.size == 0 }
func (p *Position) IsLong() bool                { return p.size > 0 }
func (p *Position) IsShort() bool               { return p.size < 0 }

// LastModified is the date and time of the last adjustment.
func (p *Position) LastModified() (int, int) {
	return p.date, p.time
}

// Trades returns the fills that make up the open exposure, oldest first.
// Partially closed fills carry their remaining size.
func (p *Position) Trades() []types.Trade {
	out := make([]types.Trade, len(p.trades))
	copy(out, p.trades)
	return out
}

func (p *Position) UnrealizedPnL(mark decimal.Decimal) decimal.Decimal {
	if p.size == 0 {
		return decimal.Zero
	}
	return mark.Sub(p.avgPrice).Mul(decimal.NewFromInt(p.size)).Mul(p.pointValue)
}

// Adjust applies a fill and returns the PnL it realized.
func (p *Position) Adjust(t types.Trade) (decimal.Decimal, error) {
	if err := t.Validate(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %w", ErrInvalidTrade, err)
	}
	if t.Account != p.account {
		return decimal.Zero, fmt.Errorf("trade for %q on position of %q: %w", t.Account, p.account, ErrAccountMismatch)
	}
	if t.Symbol != p.symbol {
		return decimal.Zero, fmt.Errorf("trade in %q on position in %q: %w", t.Symbol, p.symbol, ErrSymbolMismatch)
	}
	return p.apply(t), nil
}

// AdjustPosition applies another position's size and average price as if it
// were a single fill.
func (p *Position) AdjustPosition(delta *Position) (decimal.Decimal, error) {
	if delta == nil || delta.size == 0 {
		return decimal.Zero, nil
	}
	side := types.SideTypeBuy
	if delta.size < 0 {
		side = types.SideTypeSell
	}
	t := types.Trade{
		Symbol:  delta.symbol,
		Account: delta.account,
		Side:    side,
		Price:   delta.avgPrice,
		Size:    abs(delta.size),
		Date:    delta.date,
		Time:    delta.time,
	}
	return p.Adjust(t)
}

func (p *Position) apply(t types.Trade) decimal.Decimal {
	qty := t.SignedSize()
	old := p.size
	next := old + qty
	realized := decimal.Zero

	switch {
	case old == 0:
		p.avgPrice = t.Price
		p.trades = []types.Trade{t}
	case sameSide(old, qty):
		p.avgPrice = weightedAvg(p.avgPrice, abs(old), t.Price, abs(qty))
		p.trades = append(p.trades, t)
	default:
		closed := min(abs(qty), abs(old))
		realized = t.Price.Sub(p.avgPrice).
			Mul(decimal.NewFromInt(sign(old) * closed)).
			Mul(p.pointValue)
		switch {
		case next == 0:
			p.avgPrice = decimal.Zero
			p.trades = nil
		case sameSide(old, next):
			p.trades = consume(p.trades, closed)
		default:
			// flipped: the remainder opens at the trade price
			p.avgPrice = t.Price
			rest := t
			rest.Size = abs(next)
			p.trades = []types.Trade{rest}
		}
	}

	p.size = next
	p.closedPnL = p.closedPnL.Add(realized)
	p.date, p.time = t.Date, t.Time
	return realized
}

// Snapshot copies the position marked at last.
func (p *Position) Snapshot(last decimal.Decimal) types.PositionSnapshot {
	return types.PositionSnapshot{
		Symbol:     p.symbol,
		Account:    p.account,
		Size:       p.size,
		AvgPrice:   p.avgPrice,
		LastPrice:  last,
		ClosedPnL:  p.closedPnL,
		PointValue: p.pointValue,
	}
}

// consume removes n units from the front of trades.
func consume(trades []types.Trade, n int64) []types.Trade {
	for len(trades) > 0 && n > 0 {
		if trades[0].Size > n {
			trades[0].Size -= n
			break
		}
		n -= trades[0].Size
		trades = trades[1:]
	}
	return trades
}

func sameSide(a, b int64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}

func weightedAvg(existingAvgPrice decimal.Decimal, existingQty int64, newPrice decimal.Decimal, newQty int64) decimal.Decimal {
	if existingQty == 0 {
		return newPrice
	}
	eq, nq := decimal.NewFromInt(existingQty), decimal.NewFromInt(newQty)
	return existingAvgPrice.Mul(eq).
		Add(newPrice.Mul(nq)).
		Div(eq.Add(nq))
}

func abs(n int64) int64 {
	if n < 0 {
		return -n
	}
	return n
}

func sign(n int64) int64 {
	switch {
	case n > 0:
		return 1
	case n < 0:
		return -1
	}
	return 0
}
