package engine

import (
	"context"

	"github.com/shopspring/decimal"

	"tickbacktest/internal/bars"
	"tickbacktest/internal/matching"
	"tickbacktest/types"
)

type strategy interface {
	Init(api StrategyAPI) error
	OnTick(tick types.Tick)
	OnBar(symbol string, interval types.Interval)
}

// StrategyAPI is the view of the run a strategy works through. Orders sent
// during a tick rest until the next tick.
type StrategyAPI interface {
	Account() string
	Now() (date, ftime int)
	SendOrder(o *types.Order) matching.Status
	CancelOrder(id string) matching.Status
	UpdateOrder(o types.Order) matching.Status
	Orders() []types.Order
	AddInterval(symbol string, interval types.Interval) error
	Series(symbol string, interval types.Interval) (*bars.Series, bool)
	Position(symbol string) types.PositionSnapshot
	Cash() decimal.Decimal
	Equity() decimal.Decimal
	LastPrice(symbol string) (decimal.Decimal, bool)
	BestBid(symbol string) (decimal.Decimal, int64, bool)
	BestOffer(symbol string) (decimal.Decimal, int64, bool)
}

// eventSink receives fills and closed bars as they happen and is flushed
// once playback ends.
type eventSink interface {
	PublishFill(trade types.Trade, order types.Order)
	PublishBar(bar types.Bar)
	Flush(ctx context.Context) error
}
