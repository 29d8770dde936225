package bars

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/types"
)

func closedBar(bartime int, price int64) types.Bar {
	p := decimal.NewFromInt(price)
	return types.NewBar(sym, types.FiveMinute, p, 100, date, bartime, date, bartime)
}

func TestSeries_InsertKeepsBoundaryOrder(t *testing.T) {
	s := NewSeries(sym, types.FiveMinute, 0)
	for _, bt := range []int{93500000, 94500000, 95500000} {
		_, err := s.Insert(closedBar(bt, 10))
		require.NoError(t, err)
	}

	pos, err := s.Insert(closedBar(94000000, 11))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)

	pos, err = s.Insert(closedBar(93000000, 12))
	require.NoError(t, err)
	assert.Equal(t, 0, pos)

	pos, err = s.Insert(closedBar(100000000, 13))
	require.NoError(t, err)
	assert.Equal(t, 5, pos)

	var times []int
	for _, b := range s.Closed() {
		times = append(times, b.Bartime)
	}
	assert.Equal(t, []int{93000000, 93500000, 94000000, 94500000, 95500000, 100000000}, times)
}

func TestSeries_InsertEqualBoundaryGoesAfterExisting(t *testing.T) {
	s := NewSeries(sym, types.FiveMinute, 0)
	_, err := s.Insert(closedBar(93500000, 10))
	require.NoError(t, err)
	pos, err := s.Insert(closedBar(93500000, 20))
	require.NoError(t, err)
	assert.Equal(t, 1, pos)
	b, _ := s.At(1)
	assert.Equal(t, "20", b.Close.String())
}

func TestSeries_InsertRejects(t *testing.T) {
	s := NewSeries(sym, types.FiveMinute, 0)
	s.update(decimal.NewFromInt(10), 100, date, 94000000)

	_, err := s.Insert(types.Bar{Symbol: sym, Interval: types.FiveMinute})
	assert.ErrorIs(t, err, ErrInvalidBar)

	other := closedBar(93500000, 10)
	other.Interval = types.OneMinute
	_, err = s.Insert(other)
	assert.ErrorIs(t, err, ErrIntervalMismatch)

	_, err = s.Insert(closedBar(94000000, 10))
	assert.ErrorIs(t, err, ErrBarAfterCurrent)

	pos, err := s.Insert(closedBar(93500000, 10))
	require.NoError(t, err)
	assert.Equal(t, 0, pos)
	assert.Equal(t, 2, s.Len())
}

func TestSeries_RecentIndexing(t *testing.T) {
	s := NewSeries(sym, types.OneMinute, 0)
	for i, price := range []int64{1, 2, 3} {
		s.update(decimal.NewFromInt(price), 1, date, open+i*100000)
	}
	cur, ok := s.Recent(0)
	require.True(t, ok)
	assert.Equal(t, "3", cur.Close.String())
	prev, _ := s.Recent(1)
	assert.Equal(t, "2", prev.Close.String())
	_, ok = s.Recent(3)
	assert.False(t, ok)
	_, ok = s.At(-1)
	assert.False(t, ok)

	assert.Equal(t, []int64{1, 1, 1}, s.Volumes())
	assert.Len(t, s.Closes(), 3)
	assert.Len(t, s.Highs(), 3)
	assert.Len(t, s.Lows(), 3)
	assert.Len(t, s.Opens(), 3)
}

func TestSeries_DayBoundary(t *testing.T) {
	s := NewSeries(sym, types.OneDay, 0)
	started, _ := s.update(decimal.NewFromInt(1), 1, 20240102, 93000000)
	assert.True(t, started)
	started, _ = s.update(decimal.NewFromInt(2), 1, 20240102, 155900000)
	assert.False(t, started)
	started, _ = s.update(decimal.NewFromInt(3), 1, 20240103, 93000000)
	assert.True(t, started)

	first, _ := s.At(0)
	assert.Equal(t, 0, first.Bartime)
	assert.Equal(t, 20240102, first.Bardate)
}
