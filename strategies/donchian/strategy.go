package donchian

import (
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/internal/engine"
	"tickbacktest/types"
)

const (
	defaultLookback = 20
	atrPeriod       = 20
)

type Option func(*Strategy)

// WithLookback sets how many closed bars form the channel.
func WithLookback(n int) Option {
	return func(s *Strategy) {
		if n > 0 {
			s.lookback = n
		}
	}
}

func WithInterval(interval types.Interval) Option {
	return func(s *Strategy) {
		s.interval = interval
	}
}

// WithAllocator replaces the default long-only allocator.
func WithAllocator(a *Allocator) Option {
	return func(s *Strategy) {
		s.allocator = a
	}
}

// WithATRStop exits a long when a trade prints below the entry bar's close
// minus multiple times ATR(20). Zero disables the stop.
func WithATRStop(multiple decimal.Decimal) Option {
	return func(s *Strategy) {
		s.atrMultiple = multiple
	}
}

// Strategy trades breakouts of the N-bar high/low channel.
type Strategy struct {
	log         *zap.Logger
	symbols     []string
	interval    types.Interval
	lookback    int
	atrMultiple decimal.Decimal

	api       engine.StrategyAPI
	allocator *Allocator
	broker    *broker
	stopLoss  map[string]decimal.Decimal
}

func NewStrategy(log *zap.Logger, symbols []string, opts ...Option) *Strategy {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Strategy{
		log:      log.Named("donchian"),
		symbols:  symbols,
		interval: types.OneDay,
		lookback: defaultLookback,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.allocator == nil {
		s.allocator = NewLongOnlyAllocator(decimal.RequireFromString("0.1"))
	}
	return s
}

func (s *Strategy) Init(api engine.StrategyAPI) error {
	s.api = api
	s.broker = newBroker(api, s.log)
	s.stopLoss = make(map[string]decimal.Decimal)
	for _, sym := range s.symbols {
		if err := api.AddInterval(sym, s.interval); err != nil {
			return err
		}
	}
	return nil
}

func (s *Strategy) OnTick(tick types.Tick) {
	if !tick.IsTrade() {
		return
	}
	stop, ok := s.stopLoss[tick.Symbol]
	if !ok || stop.IsZero() || !tick.Trade.LessThan(stop) {
		return
	}
	pos := s.api.Position(tick.Symbol)
	if pos.Size <= 0 {
		delete(s.stopLoss, tick.Symbol)
		return
	}
	sig := types.NewSignal(tick.Symbol, types.SideTypeSell, stop, "ATR stop-loss", tick.Date, tick.Time)
	s.broker.Submit(s.allocator.Exit(sig, pos)...)
	delete(s.stopLoss, tick.Symbol)
}

// OnBar runs when a new bar opens; the bar that just closed is Recent(1) and
// the channel is built from the lookback bars before it.
func (s *Strategy) OnBar(symbol string, interval types.Interval) {
	if interval != s.interval {
		return
	}
	series, ok := s.api.Series(symbol, interval)
	if !ok {
		return
	}
	closed := series.Closed()
	if len(closed) < s.lookback+1 {
		return
	}
	last := closed[len(closed)-1]
	highestHigh, lowestLow := donchianHighLow(closed[len(closed)-1-s.lookback : len(closed)-1])

	var signals []types.Signal
	if last.High.GreaterThan(highestHigh) {
		signals = append(signals, types.NewSignal(symbol, types.SideTypeBuy, highestHigh,
			"break of channel high", last.Date, last.Time))
		if s.atrMultiple.IsPositive() {
			if atr := calcATR(closed, atrPeriod); atr.IsPositive() {
				s.stopLoss[symbol] = last.Close.Sub(atr.Mul(s.atrMultiple))
			}
		}
	}
	if last.Low.LessThan(lowestLow) {
		signals = append(signals, types.NewSignal(symbol, types.SideTypeSell, lowestLow,
			"break of channel low", last.Date, last.Time))
		delete(s.stopLoss, symbol)
	}
	if len(signals) != 1 {
		// an outside bar breaking both sides is ambiguous
		return
	}

	orders := s.allocator.Allocate(signals[0], s.api.Position(symbol), s.api.Cash())
	s.broker.Submit(orders...)
}

func donchianHighLow(window []types.Bar) (decimal.Decimal, decimal.Decimal) {
	if len(window) == 0 {
		return decimal.Zero, decimal.Zero
	}
	highest := window[0].High
	lowest := window[0].Low
	for _, b := range window {
		if b.High.GreaterThan(highest) {
			highest = b.High
		}
		if b.Low.LessThan(lowest) {
			lowest = b.Low
		}
	}
	return highest, lowest
}

// calcATR is Wilder's average true range over period.
func calcATR(window []types.Bar, period int) decimal.Decimal {
	if len(window) < period+1 {
		return decimal.Zero
	}

	trueRanges := make([]decimal.Decimal, 0, len(window)-1)
	for i := 1; i < len(window); i++ {
		prevClose := window[i-1].Close
		trueRanges = append(trueRanges, decimal.Max(
			window[i].High.Sub(window[i].Low),
			window[i].High.Sub(prevClose).Abs(),
			window[i].Low.Sub(prevClose).Abs(),
		))
	}

	p := decimal.NewFromInt(int64(period))
	atr := decimal.Zero
	for _, tr := range trueRanges[:period] {
		atr = atr.Add(tr)
	}
	atr = atr.Div(p)
	for _, tr := range trueRanges[period:] {
		atr = atr.Mul(decimal.NewFromInt(int64(period - 1))).Add(tr).Div(p)
	}
	return atr
}
