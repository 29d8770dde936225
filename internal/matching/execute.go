package matching

import (
	"sort"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/types"
)

// dayBar is the open/high/low/close of one symbol for one date.
type dayBar struct {
	date                   int
	open, high, low, close decimal.Decimal
	set                    bool
}

func (d *dayBar) update(date int, price decimal.Decimal) {
	if !d.set || d.date != date {
		*d = dayBar{date: date, open: price, high: price, low: price, close: price, set: true}
		return
	}
	d.high = decimal.Max(d.high, price)
	d.low = decimal.Min(d.low, price)
	d.close = price
}

// quote is the price and size one side of the book can trade against on a
// tick.
type quote struct {
	price decimal.Decimal
	size  int64
	ok    bool
}

// Execute matches the book of tick's symbol against tick and returns the
// number of fills produced. Invalid ticks never fill.
func (s *Simulator) Execute(tick types.Tick) int {
	if !tick.IsValid() {
		return 0
	}
	s.nowDate, s.nowTime = tick.Date, tick.Time

	day, ok := s.days[tick.Symbol]
	if !ok {
		day = &dayBar{}
		s.days[tick.Symbol] = day
	}
	if tick.IsTrade() {
		day.update(tick.Date, tick.Trade)
	}
	exchange := tickExchange(tick)
	buys, sells := s.liquidity(tick)
	opening, anyOpening := s.markOpen(tick.Symbol, exchange, tick.Date, buys.ok || sells.ok)

	bk, ok := s.books[tick.Symbol]
	if !ok {
		return 0
	}

	fills := 0
	for _, e := range append([]*entry(nil), bk.entries...) {
		o := &e.order
		if !o.IsActive() {
			continue
		}
		if o.Date == 0 {
			o.Date, o.Time = tick.Date, tick.Time
		}
		if tick.Date > o.Date && expiresAtClose(o.Instruction) {
			s.log.Debug("order expired", zap.String("id", o.ID), zap.Int("date", tick.Date))
			s.cancel(e)
			continue
		}

		side := &sells
		if o.IsBuy() {
			side = &buys
		}
		if !side.ok {
			continue
		}

		if o.Instruction == types.InstructionOPG {
			if o.Exchange != "" && o.Exchange != exchange {
				continue
			}
			first := anyOpening
			if o.Exchange != "" {
				first = opening
			}
			if !first {
				s.cancel(e)
				continue
			}
		}
		if o.Instruction == types.InstructionMOC && tick.Time < s.closeTime {
			continue
		}

		price, size, matched := s.evaluate(e, *side, day, tick)
		if matched {
			if s.partial && !s.highLiquidity {
				size = min(size, side.size)
				side.size -= size
				if side.size <= 0 {
					side.ok = false
				}
			}
			if size > 0 && s.fill(e, price, size, tick.Date, tick.Time, exchange) {
				fills++
			}
		}
		if o.Instruction == types.InstructionIOC && o.IsActive() {
			s.cancel(e)
		}
	}

	fills += s.cross(bk, tick.Date, tick.Time)
	bk.compact()
	return fills
}

// evaluate applies the fill rule of e's order type to the tick. It returns the
// fill price and the largest size the order may take.
func (s *Simulator) evaluate(e *entry, q quote, day *dayBar, tick types.Tick) (decimal.Decimal, int64, bool) {
	o := &e.order
	remaining := o.Remaining()
	if s.highLiquidity && o.Type != types.TypeMarket {
		return s.evaluateRange(e, s.dayRange(tick.Symbol, tick.Date, day))
	}

	price := q.price
	switch o.Type {
	case types.TypeMarket:
		return price, remaining, true
	case types.TypeLimit:
		return price, remaining, limitCrossed(o.Side, price, o.LimitPrice)
	case types.TypeStop:
		return price, remaining, stopCrossed(o.Side, price, o.StopPrice)
	case types.TypeStopLimit:
		if !e.triggered && stopCrossed(o.Side, price, o.StopPrice) {
			e.triggered = true
		}
		return price, remaining, e.triggered && limitCrossed(o.Side, price, o.LimitPrice)
	}
	return decimal.Zero, 0, false
}

// evaluateRange fills limit and stop orders in full at their own price when
// the day's range reached it.
func (s *Simulator) evaluateRange(e *entry, d dayBar) (decimal.Decimal, int64, bool) {
	o := &e.order
	if !d.set {
		return decimal.Zero, 0, false
	}
	// a buy limit is reached by the low, a buy stop by the high
	reachLimit, reachStop := d.low, d.high
	if !o.IsBuy() {
		reachLimit, reachStop = d.high, d.low
	}
	switch o.Type {
	case types.TypeLimit:
		return o.LimitPrice, o.Remaining(), limitCrossed(o.Side, reachLimit, o.LimitPrice)
	case types.TypeStop:
		return o.StopPrice, o.Remaining(), stopCrossed(o.Side, reachStop, o.StopPrice)
	case types.TypeStopLimit:
		if !e.triggered && stopCrossed(o.Side, reachStop, o.StopPrice) {
			e.triggered = true
		}
		return o.LimitPrice, o.Remaining(), e.triggered && limitCrossed(o.Side, reachLimit, o.LimitPrice)
	}
	return decimal.Zero, 0, false
}

func (s *Simulator) dayRange(symbol string, date int, running *dayBar) dayBar {
	if bench, ok := s.benchmarks[symbol][date]; ok {
		return bench
	}
	if running.date != date {
		return dayBar{}
	}
	return *running
}

// cross fills resting limit orders of different accounts against each other
// at the price of the order that rested first.
func (s *Simulator) cross(bk *book, date, ftime int) int {
	fills := 0
	for {
		buy, sell := s.crossingPair(bk)
		if buy == nil {
			return fills
		}
		price := buy.order.LimitPrice
		if sell.seq < buy.seq {
			price = sell.order.LimitPrice
		}
		size := min(buy.order.Remaining(), sell.order.Remaining())
		bought := s.fill(buy, price, size, date, ftime, "")
		sold := s.fill(sell, price, size, date, ftime, "")
		if bought {
			fills++
		}
		if sold {
			fills++
		}
		if !bought || !sold {
			return fills
		}
	}
}

// crossingPair finds the highest priority buy and sell that cross and belong
// to different accounts.
func (s *Simulator) crossingPair(bk *book) (*entry, *entry) {
	var buys, sells []*entry
	for _, e := range bk.entries {
		if !e.order.IsActive() {
			continue
		}
		if _, ok := e.restingLimit(); !ok {
			continue
		}
		if e.order.IsBuy() {
			buys = append(buys, e)
		} else {
			sells = append(sells, e)
		}
	}
	sort.SliceStable(buys, func(i, j int) bool {
		return buys[i].order.LimitPrice.GreaterThan(buys[j].order.LimitPrice)
	})
	sort.SliceStable(sells, func(i, j int) bool {
		return sells[i].order.LimitPrice.LessThan(sells[j].order.LimitPrice)
	})
	for _, b := range buys {
		for _, a := range sells {
			if a.order.LimitPrice.GreaterThan(b.order.LimitPrice) {
				break
			}
			if a.order.Account != b.order.Account {
				return b, a
			}
		}
	}
	return nil, nil
}

// fill records an execution of size units of e at price.
func (s *Simulator) fill(e *entry, price decimal.Decimal, size int64, date, ftime int, exchange string) bool {
	o := &e.order
	t, err := types.NewFill(o.Symbol, o.Account, o.Side, price, size, date, ftime)
	if err != nil {
		s.log.Warn("fill rejected", zap.String("order", o.ID), zap.Error(err))
		return false
	}
	t.ID = s.nextID("trade")
	t.OrderID = o.ID
	t.Exchange = exchange
	t.Commission = s.commission(o.Symbol, price, size)

	o.Filled += size
	o.Status = types.OrderPartiallyFilled
	if o.Filled >= o.Size {
		o.Status = types.OrderFilled
		delete(s.active, o.ID)
	}
	s.statuses[o.ID] = o.Status
	s.fills = append(s.fills, t)

	for _, l := range s.fillListeners {
		l(t, *o)
	}
	return true
}

// liquidity returns what buys and sells can trade against on tick.
func (s *Simulator) liquidity(tick types.Tick) (buys, sells quote) {
	if s.mode == QuoteFill {
		if tick.HasAsk() {
			buys = quote{price: tick.Ask, size: tick.AskSize, ok: true}
		}
		if tick.HasBid() {
			sells = quote{price: tick.Bid, size: tick.BidSize, ok: true}
		}
		return buys, sells
	}
	if tick.IsTrade() {
		buys = quote{price: tick.Trade, size: tick.Size, ok: true}
		sells = buys
	}
	return buys, sells
}

// markOpen reports whether tick is the first of the day on its exchange and
// the first of the day on any exchange. Only ticks that can fill in the
// current mode open a session, so a quote does not open a trade-fill day.
func (s *Simulator) markOpen(symbol, exchange string, date int, tradable bool) (opening, anyOpening bool) {
	key := symbol + "|" + exchange
	anyKey := symbol + "|"
	opening = s.opened[key] != date
	anyOpening = s.opened[anyKey] != date
	if tradable {
		s.opened[key] = date
		s.opened[anyKey] = date
	}
	return opening, anyOpening
}

func tickExchange(tick types.Tick) string {
	switch {
	case tick.Exchange != "":
		return tick.Exchange
	case tick.AskExchange != "":
		return tick.AskExchange
	default:
		return tick.BidExchange
	}
}

func expiresAtClose(in types.Instruction) bool {
	switch in {
	case types.InstructionDay, types.InstructionMOC, types.InstructionIOC, types.InstructionHidden:
		return true
	}
	return false
}

// limitCrossed is true when price is at or better than limit for side.
func limitCrossed(side types.Side, price, limit decimal.Decimal) bool {
	if side == types.SideTypeBuy {
		return price.LessThanOrEqual(limit)
	}
	return price.GreaterThanOrEqual(limit)
}

// stopCrossed is true when price reached stop against side.
func stopCrossed(side types.Side, price, stop decimal.Decimal) bool {
	if side == types.SideTypeBuy {
		return price.GreaterThanOrEqual(stop)
	}
	return price.LessThanOrEqual(stop)
}
