package bars

import (
	"errors"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

var (
	ErrInvalidBar       = errors.New("invalid bar")
	ErrBarAfterCurrent  = errors.New("bar is not older than the bar in progress")
	ErrIntervalMismatch = errors.New("bar interval or symbol does not match series")
)

// Series holds the closed bars of one symbol and interval in boundary order,
// plus the bar still being built. Index 0 of At is the oldest bar.
type Series struct {
	symbol     string
	interval   types.Interval
	closed     []types.Bar
	current    types.Bar
	hasCurrent bool
	maxHistory int
}

// NewSeries creates an empty series. maxHistory <= 0 keeps every bar.
func NewSeries(symbol string, interval types.Interval, maxHistory int) *Series {
	return &Series{
		symbol:     symbol,
		interval:   interval,
		maxHistory: maxHistory,
	}
}

func (s *Series) Symbol() string {
	return s.symbol
}

func (s *Series) Interval() types.Interval {
	return s.interval
}

// Len counts closed bars and the bar in progress.
func (s *Series) Len() int {
	if s.hasCurrent {
		return len(s.closed) + 1
	}
	return len(s.closed)
}

// At returns bar i counting from the oldest.
func (s *Series) At(i int) (types.Bar, bool) {
	if i < 0 || i >= s.Len() {
		return types.Bar{}, false
	}
	if i == len(s.closed) {
		return s.current, true
	}
	return s.closed[i], true
}

// Recent returns bar n counting back from the newest; Recent(0) is the bar in
// progress, Recent(1) the last closed bar.
func (s *Series) Recent(n int) (types.Bar, bool) {
	return s.At(s.Len() - 1 - n)
}

func (s *Series) Last() (types.Bar, bool) {
	return s.Recent(0)
}

// Current is the bar in progress.
func (s *Series) Current() (types.Bar, bool) {
	return s.current, s.hasCurrent
}

// Closed returns a copy of the closed bars, oldest first.
func (s *Series) Closed() []types.Bar {
	return slices.Clone(s.closed)
}

// Bars returns a copy of every bar including the one in progress.
func (s *Series) Bars() []types.Bar {
	out := make([]types.Bar, 0, s.Len())
	out = append(out, s.closed...)
	if s.hasCurrent {
		out = append(out, s.current)
	}
	return out
}

func (s *Series) Opens() []decimal.Decimal {
	return s.column(func(b types.Bar) decimal.Decimal { return b.Open })
}

func (s *Series) Highs() []decimal.Decimal {
	return s.column(func(b types.Bar) decimal.Decimal { return b.High })
}

func (s *Series) Lows() []decimal.Decimal {
	return s.column(func(b types.Bar) decimal.Decimal { return b.Low })
}

func (s *Series) Closes() []decimal.Decimal {
	return s.column(func(b types.Bar) decimal.Decimal { return b.Close })
}

func (s *Series) Volumes() []int64 {
	out := make([]int64, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		b, _ := s.At(i)
		out = append(out, b.Volume)
	}
	return out
}

func (s *Series) column(field func(types.Bar) decimal.Decimal) []decimal.Decimal {
	out := make([]decimal.Decimal, 0, s.Len())
	for i := 0; i < s.Len(); i++ {
		b, _ := s.At(i)
		out = append(out, field(b))
	}
	return out
}

// Insert places a closed historical bar at its boundary position. Bars with
// an equal boundary keep arrival order. The search is binary, so the cost is
// the shift of the newer bars.
func (s *Series) Insert(b types.Bar) (int, error) {
	if !b.IsValid() {
		return -1, fmt.Errorf("%s %d %d: %w", b.Symbol, b.Bardate, b.Bartime, ErrInvalidBar)
	}
	if b.Symbol != s.symbol || b.Interval != s.interval {
		return -1, fmt.Errorf("%s %s into %s %s: %w", b.Symbol, b.Interval, s.symbol, s.interval, ErrIntervalMismatch)
	}
	if s.hasCurrent && b.Stamp() >= s.current.Stamp() {
		return -1, ErrBarAfterCurrent
	}
	b.IsNew = false
	stamp := b.Stamp()
	pos := sort.Search(len(s.closed), func(i int) bool {
		return s.closed[i].Stamp() > stamp
	})
	s.closed = slices.Insert(s.closed, pos, b)
	pos -= s.evict()
	if pos < 0 {
		// older than the retained history
		return -1, nil
	}
	return pos, nil
}

// update folds a point into the series. started reports that a new bar was
// opened; accepted is false for points older than the bar in progress.
func (s *Series) update(price decimal.Decimal, size int64, date, ftime int) (started, accepted bool) {
	if s.interval.IsTickBased() {
		if !s.hasCurrent || s.current.TradeCount >= s.interval.Length {
			s.open(price, size, date, ftime, date, ftime)
			return true, true
		}
		s.current.Update(price, size, date, ftime)
		return false, true
	}

	bardate, bartime := s.boundary(date, ftime)
	if !s.hasCurrent {
		s.open(price, size, bardate, bartime, date, ftime)
		return true, true
	}
	stamp, cur := types.Stamp(bardate, bartime), s.current.Stamp()
	switch {
	case stamp == cur:
		s.current.Update(price, size, date, ftime)
		return false, true
	case stamp > cur:
		s.open(price, size, bardate, bartime, date, ftime)
		return true, true
	default:
		return false, false
	}
}

// boundary floors a time of day to the interval length. Day bars start at
// midnight.
func (s *Series) boundary(date, ftime int) (int, int) {
	length := s.interval.Seconds()
	secs := types.FTimeToSeconds(ftime)
	return date, types.SecondsToFTime(secs / length * length)
}

func (s *Series) open(price decimal.Decimal, size int64, bardate, bartime, date, ftime int) {
	if s.hasCurrent {
		s.current.IsNew = false
		s.closed = append(s.closed, s.current)
		s.evict()
	}
	s.current = types.NewBar(s.symbol, s.interval, price, size, bardate, bartime, date, ftime)
	s.hasCurrent = true
}

// evict drops the oldest closed bars beyond maxHistory and returns how many
// were removed.
func (s *Series) evict() int {
	if s.maxHistory <= 0 || len(s.closed) <= s.maxHistory {
		return 0
	}
	excess := len(s.closed) - s.maxHistory
	s.closed = slices.Delete(s.closed, 0, excess)
	return excess
}
