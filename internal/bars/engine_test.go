package bars

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/types"
)

const (
	sym  = "TST"
	date = 20070517
	open = 93500000
)

func tick(t *testing.T, ftime int, price string) types.Tick {
	t.Helper()
	tk, err := types.NewTrade(sym, date, ftime, decimal.RequireFromString(price), 100, "")
	require.NoError(t, err)
	return tk
}

// nine trades from 9:35 to 9:45, crossing the 9:40 and 9:45 five minute boundaries
func scenarioTicks(t *testing.T) []types.Tick {
	return []types.Tick{
		tick(t, open, "10"),
		tick(t, open+100000, "11"),
		tick(t, open+200000, "12"),
		tick(t, open+300000, "9"),
		tick(t, open+400000, "10"),
		tick(t, open+500000, "13"),
		tick(t, open+600000, "14"),
		tick(t, open+700000, "12"),
		tick(t, open+1000000, "11"),
	}
}

func TestEngine_FiveAndOneMinuteBars(t *testing.T) {
	tests := []struct {
		name       string
		interval   types.Interval
		wantBars   int
		wantCloses int
	}{
		{"five minute", types.FiveMinute, 3, 2},
		{"one minute", types.OneMinute, 9, 8},
		{"one minute from seconds", types.SecondsInterval(60), 9, 8},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := NewEngine(nil, WithIntervals(tt.interval))
			closes := 0
			e.OnNewBar(func(symbol string, interval types.Interval) {
				assert.Equal(t, sym, symbol)
				assert.Equal(t, tt.interval, interval)
				closes++
			})
			for _, tk := range scenarioTicks(t) {
				e.NewTick(tk)
			}
			s, ok := e.Series(sym, tt.interval)
			require.True(t, ok)
			assert.Equal(t, tt.wantBars, s.Len())
			assert.Equal(t, tt.wantCloses, closes)
			for _, b := range s.Closed() {
				assert.True(t, b.IsValid(), "bar %d %d invalid", b.Bardate, b.Bartime)
				assert.False(t, b.IsNew)
			}
			last, _ := s.Last()
			assert.True(t, last.IsNew)
		})
	}
}

func TestEngine_FiveMinuteBarContents(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.FiveMinute))
	for _, tk := range scenarioTicks(t) {
		e.NewTick(tk)
	}
	s, _ := e.Series(sym, types.FiveMinute)

	first, _ := s.At(0)
	assert.Equal(t, open, first.Bartime)
	assert.Equal(t, "10", first.Open.String())
	assert.Equal(t, "12", first.High.String())
	assert.Equal(t, "9", first.Low.String())
	assert.Equal(t, "10", first.Close.String())
	assert.Equal(t, int64(500), first.Volume)
	assert.Equal(t, 5, first.TradeCount)
	assert.Equal(t, open+400000, first.Time)

	second, _ := s.At(1)
	assert.Equal(t, 94000000, second.Bartime)
	assert.Equal(t, 3, second.TradeCount)

	third, _ := s.Recent(0)
	assert.Equal(t, 94500000, third.Bartime)
}

func TestEngine_ReturnsWhetherABarStarted(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.FiveMinute))
	ticks := scenarioTicks(t)
	var started []bool
	for _, tk := range ticks {
		started = append(started, e.NewTick(tk))
	}
	assert.Equal(t, []bool{true, false, false, false, false, true, false, false, true}, started)
}

func TestEngine_TickCountBars(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.TickInterval(3)))
	for _, tk := range scenarioTicks(t)[:7] {
		e.NewTick(tk)
	}
	s, _ := e.Series(sym, types.TickInterval(3))
	require.Equal(t, 3, s.Len())
	first, _ := s.At(0)
	assert.Equal(t, 3, first.TradeCount)
	assert.Equal(t, open, first.Bartime)
	last, _ := s.Last()
	assert.Equal(t, 1, last.TradeCount)
}

func TestEngine_IntervalAddedWhileStreaming(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.FiveMinute))
	ticks := scenarioTicks(t)
	for _, tk := range ticks[:3] {
		e.NewTick(tk)
	}
	require.NoError(t, e.AddInterval(sym, types.OneMinute))
	for _, tk := range ticks[3:] {
		e.NewTick(tk)
	}

	one, ok := e.Series(sym, types.OneMinute)
	require.True(t, ok)
	assert.Equal(t, 6, one.Len())
	first, _ := one.At(0)
	assert.Equal(t, open+300000, first.Bartime)

	five, _ := e.Series(sym, types.FiveMinute)
	assert.Equal(t, 3, five.Len())
	assert.Equal(t, []types.Interval{types.FiveMinute, types.OneMinute}, e.Intervals(sym))
}

func TestEngine_AddIntervalRejectsInvalid(t *testing.T) {
	e := NewEngine(nil)
	assert.ErrorIs(t, e.AddInterval(sym, types.Interval{}), types.ErrInvalidInterval)
}

func TestEngine_UnknownSymbolGetsDefaults(t *testing.T) {
	e := NewEngine(nil)
	e.NewPoint("NEW", decimal.NewFromInt(5), open, date, 10)
	s, ok := e.Series("NEW", types.DefaultInterval)
	require.True(t, ok)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, []string{"NEW"}, e.Symbols())
}

func TestEngine_QuoteTicksDoNotMoveBars(t *testing.T) {
	e := NewEngine(nil)
	q, err := types.NewQuote(sym, date, open, decimal.NewFromInt(9), decimal.NewFromInt(10), 100, 100, "", "")
	require.NoError(t, err)
	assert.False(t, e.NewTick(q))
	s, ok := e.Series(sym, types.DefaultInterval)
	require.True(t, ok)
	assert.Equal(t, 0, s.Len())
}

func TestEngine_LatePointsAreIgnored(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.OneMinute))
	e.NewTick(tick(t, open+200000, "10"))
	e.NewTick(tick(t, open, "99"))
	s, _ := e.Series(sym, types.OneMinute)
	assert.Equal(t, 1, s.Len())
	last, _ := s.Last()
	assert.Equal(t, "10", last.High.String())
	assert.Equal(t, 1, e.Late())
}

func TestEngine_BarCountIndependentOfSameStampOrder(t *testing.T) {
	forward := []types.Tick{
		tick(t, open, "10"), tick(t, open, "11"),
		tick(t, open+500000, "12"), tick(t, open+500000, "13"),
		tick(t, open+1000000, "14"),
	}
	reversed := []types.Tick{
		forward[1], forward[0], forward[3], forward[2], forward[4],
	}
	count := func(ticks []types.Tick) int {
		e := NewEngine(nil, WithIntervals(types.FiveMinute))
		for _, tk := range ticks {
			e.NewTick(tk)
		}
		s, _ := e.Series(sym, types.FiveMinute)
		return s.Len()
	}
	assert.Equal(t, count(forward), count(reversed))
}

func TestEngine_MaxHistory(t *testing.T) {
	e := NewEngine(nil, WithIntervals(types.OneMinute), WithMaxHistory(3))
	for _, tk := range scenarioTicks(t) {
		e.NewTick(tk)
	}
	s, _ := e.Series(sym, types.OneMinute)
	assert.Len(t, s.Closed(), 3)
	assert.Equal(t, 4, s.Len())
	oldest, _ := s.At(0)
	assert.Equal(t, open+500000, oldest.Bartime)
}

func TestEngine_Reset(t *testing.T) {
	e := NewEngine(nil)
	for _, tk := range scenarioTicks(t) {
		e.NewTick(tk)
	}
	e.Reset()
	assert.Empty(t, e.Symbols())
	_, ok := e.Series(sym, types.DefaultInterval)
	assert.False(t, ok)
}
