package bars

import (
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tickbacktest/types"
)

// NewBarListener is told the symbol and interval of every bar that closes.
type NewBarListener func(symbol string, interval types.Interval)

type Option func(*Engine)

// WithIntervals sets the intervals every new symbol starts with.
func WithIntervals(intervals ...types.Interval) Option {
	return func(e *Engine) {
		e.defaults = slices.Clone(intervals)
	}
}

// WithMaxHistory bounds the closed bars kept per series.
func WithMaxHistory(n int) Option {
	return func(e *Engine) {
		e.maxHistory = n
	}
}

// Engine keeps one Series per (symbol, interval). Each series is an
// independent state machine fed the same points.
type Engine struct {
	log        *zap.Logger
	defaults   []types.Interval
	maxHistory int
	symbols    map[string]*symbolBars
	order      []string
	listeners  []NewBarListener
	late       int
}

type symbolBars struct {
	intervals []types.Interval
	series    map[types.Interval]*Series
}

func NewEngine(log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{
		log:     log,
		symbols: make(map[string]*symbolBars),
	}
	for _, opt := range opts {
		opt(e)
	}
	if len(e.defaults) == 0 {
		e.defaults = []types.Interval{types.DefaultInterval}
	}
	return e
}

// OnNewBar registers a listener. Listeners run in registration order before
// NewTick or NewPoint returns.
func (e *Engine) OnNewBar(l NewBarListener) {
	e.listeners = append(e.listeners, l)
}

// AddInterval starts tracking interval for symbol. The series starts empty and
// fills from the next point; earlier ticks are not replayed into it.
func (e *Engine) AddInterval(symbol string, interval types.Interval) error {
	if !interval.IsValid() {
		return fmt.Errorf("%s %v: %w", symbol, interval, types.ErrInvalidInterval)
	}
	st := e.ensure(symbol)
	if _, ok := st.series[interval]; ok {
		return nil
	}
	st.add(symbol, interval, e.maxHistory)
	return nil
}

// NewTick feeds the trade price of t to every interval of its symbol. Quote
// only ticks create the symbol state but do not move bars. It reports whether
// any interval started a new bar.
func (e *Engine) NewTick(t types.Tick) bool {
	if !t.IsTrade() {
		if t.Symbol != "" {
			e.ensure(t.Symbol)
		}
		return false
	}
	return e.NewPoint(t.Symbol, t.Trade, t.Time, t.Date, t.Size)
}

// NewPoint is NewTick for callers that already picked the price to chart.
func (e *Engine) NewPoint(symbol string, price decimal.Decimal, ftime, date int, size int64) bool {
	st := e.ensure(symbol)
	started := false
	for _, interval := range st.intervals {
		s := st.series[interval]
		hadBar := s.hasCurrent
		newBar, ok := s.update(price, size, date, ftime)
		if !ok {
			e.late++
			e.log.Debug("late point ignored",
				zap.String("symbol", symbol),
				zap.Stringer("interval", interval),
				zap.Int("date", date),
				zap.Int("time", ftime),
			)
			continue
		}
		if !newBar {
			continue
		}
		started = true
		if hadBar {
			for _, l := range e.listeners {
				l(symbol, interval)
			}
		}
	}
	return started
}

// Insert backfills a closed bar into its series, creating the series if needed.
func (e *Engine) Insert(b types.Bar) (int, error) {
	if err := e.AddInterval(b.Symbol, b.Interval); err != nil {
		return -1, err
	}
	return e.symbols[b.Symbol].series[b.Interval].Insert(b)
}

func (e *Engine) Series(symbol string, interval types.Interval) (*Series, bool) {
	st, ok := e.symbols[symbol]
	if !ok {
		return nil, false
	}
	s, ok := st.series[interval]
	return s, ok
}

// Symbols lists tracked symbols in the order they were first seen.
func (e *Engine) Symbols() []string {
	return slices.Clone(e.order)
}

func (e *Engine) Intervals(symbol string) []types.Interval {
	st, ok := e.symbols[symbol]
	if !ok {
		return nil
	}
	return slices.Clone(st.intervals)
}

// Late counts points dropped because they were older than the bar in progress.
func (e *Engine) Late() int {
	return e.late
}

// Reset drops all bars and symbols. Listeners and defaults are kept.
func (e *Engine) Reset() {
	e.symbols = make(map[string]*symbolBars)
	e.order = nil
	e.late = 0
}

func (e *Engine) ensure(symbol string) *symbolBars {
	if st, ok := e.symbols[symbol]; ok {
		return st
	}
	st := &symbolBars{series: make(map[types.Interval]*Series)}
	for _, interval := range e.defaults {
		if _, dup := st.series[interval]; !dup && interval.IsValid() {
			st.add(symbol, interval, e.maxHistory)
		}
	}
	e.symbols[symbol] = st
	e.order = append(e.order, symbol)
	return st
}

func (st *symbolBars) add(symbol string, interval types.Interval, maxHistory int) {
	st.intervals = append(st.intervals, interval)
	st.series[interval] = NewSeries(symbol, interval, maxHistory)
}
