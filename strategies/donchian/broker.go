package donchian

import (
	"go.uber.org/zap"

	"tickbacktest/internal/engine"
	"tickbacktest/internal/matching"
	"tickbacktest/types"
)

// broker sends orders through the strategy API. A new order for a symbol
// replaces any of its orders still working.
type broker struct {
	api      engine.StrategyAPI
	log      *zap.Logger
	rejected int
}

func newBroker(api engine.StrategyAPI, log *zap.Logger) *broker {
	return &broker{api: api, log: log}
}

func (b *broker) Submit(orders ...types.Order) {
	for i := range orders {
		o := orders[i]
		b.cancelWorking(o.Symbol)
		if status := b.api.SendOrder(&o); status != matching.OK {
			b.rejected++
			b.log.Warn("order rejected",
				zap.String("order", o.String()),
				zap.Stringer("status", status))
			continue
		}
		date, ftime := b.api.Now()
		b.log.Debug("order sent",
			zap.String("order", o.String()),
			zap.Int("date", date),
			zap.Int("time", ftime))
	}
}

func (b *broker) cancelWorking(symbol string) {
	for _, o := range b.api.Orders() {
		if o.Symbol == symbol && o.IsActive() {
			b.api.CancelOrder(o.ID)
		}
	}
}
