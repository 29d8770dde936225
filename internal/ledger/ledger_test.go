package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/types"
)

func at(tr types.Trade, date, ftime int) types.Trade {
	tr.Date, tr.Time = date, ftime
	return tr
}

func TestLedgerCashAndEquity(t *testing.T) {
	l := NewLedger(nil, WithInitialCash(d("10000")))

	buy := fill("a", types.SideTypeBuy, 100, "10")
	buy.Commission = d("1")
	_, err := l.Adjust(buy)
	require.NoError(t, err)

	assert.True(t, d("8999").Equal(l.Cash("a")))
	assert.True(t, d("9999").Equal(l.Equity("a")))

	tick, err := types.NewTrade("IBM", 20070517, 93600000, d("12"), 10, "N")
	require.NoError(t, err)
	l.Mark(tick)
	assert.True(t, d("10199").Equal(l.Equity("a")))

	pos := l.Position("a", "IBM")
	assert.Equal(t, int64(100), pos.Size)
	assert.True(t, d("200").Equal(pos.UnrealizedPnL()))

	assert.True(t, d("10000").Equal(l.Cash("nobody")))
	assert.True(t, d("1").Equal(l.Commissions("a")))
}

func TestLedgerMarksQuotesAtMid(t *testing.T) {
	l := NewLedger(nil)
	q, err := types.NewQuote("IBM", 20070517, 93600000, d("10"), d("10.2"), 1, 1, "N", "N")
	require.NoError(t, err)
	l.Mark(q)
	p, ok := l.LastPrice("IBM")
	require.True(t, ok)
	assert.True(t, d("10.1").Equal(p))
}

func TestLedgerKeepsAccountsApart(t *testing.T) {
	l := NewLedger(nil)
	_, err := l.Adjust(fill("a", types.SideTypeBuy, 100, "10"))
	require.NoError(t, err)
	_, err = l.Adjust(fill("b", types.SideTypeSell, 100, "10"))
	require.NoError(t, err)

	assert.Equal(t, int64(100), l.Position("a", "IBM").Size)
	assert.Equal(t, int64(-100), l.Position("b", "IBM").Size)
	assert.Equal(t, []string{"a", "b"}, l.Accounts())

	_, err = l.Adjust(fill("", types.SideTypeBuy, 100, "10"))
	assert.ErrorIs(t, err, ErrInvalidTrade)
	_, err = l.Adjust(fill("a", types.SideTypeBuy, -5, "10"))
	assert.ErrorIs(t, err, ErrInvalidTrade)
}

func TestLedgerListenerOrder(t *testing.T) {
	l := NewLedger(nil)
	var got []string
	l.OnAdjust(func(pos types.PositionSnapshot, tr types.Trade, realized decimal.Decimal) {
		got = append(got, "first "+realized.String())
	})
	l.OnAdjust(func(pos types.PositionSnapshot, tr types.Trade, realized decimal.Decimal) {
		got = append(got, "second")
		assert.Equal(t, int64(-200), pos.Size)
	})

	_, _ = l.Adjust(fill("a", types.SideTypeBuy, 200, "10"))
	got = nil
	_, err := l.Adjust(fill("a", types.SideTypeSell, 400, "11"))
	require.NoError(t, err)
	assert.Equal(t, []string{"first 200", "second"}, got)
}

func TestRoundTurns(t *testing.T) {
	l := NewLedger(nil)
	steps := []types.Trade{
		at(fill("a", types.SideTypeBuy, 100, "10"), 20070517, 93000000),
		at(fill("a", types.SideTypeBuy, 100, "12"), 20070517, 94000000),
		at(fill("a", types.SideTypeSell, 300, "13"), 20070517, 95000000), // closes long, opens short
		at(fill("a", types.SideTypeBuy, 100, "14"), 20070518, 93000000),
	}
	for _, s := range steps {
		_, err := l.Adjust(s)
		require.NoError(t, err)
	}

	turns := l.RoundTurns()
	require.Len(t, turns, 2)

	long := turns[0]
	assert.Equal(t, types.DirectionLong, long.Direction)
	assert.Equal(t, int64(200), long.MaxSize)
	assert.Equal(t, 3, long.Fills)
	assert.True(t, d("400").Equal(long.GrossPnL))
	assert.True(t, d("2200").Equal(long.Cost))
	assert.Equal(t, 93000000, long.EntryTime)
	assert.Equal(t, 95000000, long.ExitTime)

	short := turns[1]
	assert.Equal(t, types.DirectionShort, short.Direction)
	assert.True(t, d("13").Equal(short.EntryPrice))
	assert.True(t, d("-100").Equal(short.NetPnL()))
	assert.Equal(t, 20070518, short.ExitDate)
}

func TestSnapshots(t *testing.T) {
	l := NewLedger(nil, WithInitialCash(d("1000")))
	_, _ = l.Adjust(fill("a", types.SideTypeBuy, 10, "10"))
	views := l.Snapshot(20070517, 160000000)
	require.Len(t, views, 1)
	assert.True(t, d("900").Equal(views[0].Cash))
	assert.Contains(t, views[0].Positions, "IBM")
	assert.True(t, d("1000").Equal(views[0].Equity()))

	_, _ = l.Adjust(fill("a", types.SideTypeSell, 10, "10"))
	views = l.Snapshot(20070518, 160000000)
	assert.Empty(t, views[0].Positions, "flat positions are left out")
	assert.Len(t, l.Snapshots("a"), 2)

	l.Reset()
	assert.Empty(t, l.Snapshots("a"))
	assert.Empty(t, l.Accounts())
}
