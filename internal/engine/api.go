package engine

import (
	"github.com/shopspring/decimal"

	"tickbacktest/internal/bars"
	"tickbacktest/internal/matching"
	"tickbacktest/types"
)

// strategyAPI binds a strategy to the portfolio account of the engine.
type strategyAPI struct {
	e *Engine
}

func (a *strategyAPI) Account() string {
	return a.e.portfolio.account
}

func (a *strategyAPI) Now() (int, int) {
	return a.e.date, a.e.ftime
}

// SendOrder fills in the account when it is empty. Orders for other accounts
// are rejected.
func (a *strategyAPI) SendOrder(o *types.Order) matching.Status {
	if o == nil {
		return matching.EmptyOrder
	}
	if o.Account == "" {
		o.Account = a.Account()
	}
	if o.Account != a.Account() {
		return matching.InvalidOrder
	}
	return a.e.sim.SendOrder(o)
}

func (a *strategyAPI) CancelOrder(id string) matching.Status {
	o, ok := a.e.sim.Order(id)
	if ok && o.Account != a.Account() {
		return matching.UnknownOrder
	}
	return a.e.sim.CancelOrder(id)
}

func (a *strategyAPI) UpdateOrder(o types.Order) matching.Status {
	if o.Account == "" {
		o.Account = a.Account()
	}
	return a.e.sim.UpdateOrder(o)
}

func (a *strategyAPI) Orders() []types.Order {
	return a.e.sim.Orders(a.Account())
}

func (a *strategyAPI) AddInterval(symbol string, interval types.Interval) error {
	return a.e.bars.AddInterval(symbol, interval)
}

func (a *strategyAPI) Series(symbol string, interval types.Interval) (*bars.Series, bool) {
	return a.e.bars.Series(symbol, interval)
}

func (a *strategyAPI) Position(symbol string) types.PositionSnapshot {
	return a.e.ledger.Position(a.Account(), symbol)
}

func (a *strategyAPI) Cash() decimal.Decimal {
	return a.e.ledger.Cash(a.Account())
}

func (a *strategyAPI) Equity() decimal.Decimal {
	return a.e.ledger.Equity(a.Account())
}

func (a *strategyAPI) LastPrice(symbol string) (decimal.Decimal, bool) {
	return a.e.ledger.LastPrice(symbol)
}

func (a *strategyAPI) BestBid(symbol string) (decimal.Decimal, int64, bool) {
	return a.e.sim.BestBid(symbol)
}

func (a *strategyAPI) BestOffer(symbol string) (decimal.Decimal, int64, bool) {
	return a.e.sim.BestOffer(symbol)
}
