package donchian

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/internal/engine"
	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

const (
	sym  = "TST"
	date = 20240102
)

// one trade per minute from 09:30
func minuteTicks(t *testing.T, prices ...string) []types.Tick {
	t.Helper()
	out := make([]types.Tick, len(prices))
	for i, p := range prices {
		tk, err := types.NewTrade(sym, date, types.SecondsToFTime(9*3600+30*60+i*60), decimal.RequireFromString(p), 1_000_000, "")
		require.NoError(t, err)
		out[i] = tk
	}
	return out
}

func runStrategy(t *testing.T, strat *Strategy, ticks []types.Tick) *engine.Engine {
	t.Helper()
	e := engine.NewEngine(nil, strat,
		engine.WithSources(replay.NewSliceSource(sym, ticks)),
		engine.WithPortfolio(engine.NewPortfolioConfig(decimal.NewFromInt(100000), "acct")),
	)
	require.NoError(t, e.Run(context.Background()))
	return e
}

func TestBreakoutEntersAndFlattens(t *testing.T) {
	strat := NewStrategy(nil, []string{sym},
		WithInterval(types.OneMinute),
		WithLookback(3),
		WithAllocator(NewLongOnlyAllocator(decimal.RequireFromString("0.1"))))

	e := runStrategy(t, strat, minuteTicks(t, "10", "10.5", "9.5", "10", "12", "12", "12", "7", "7", "7"))

	fills := e.Fills()
	require.Len(t, fills, 2)
	// 10000 / 10.5 breakout level
	assert.Equal(t, types.SideTypeBuy, fills[0].Side)
	assert.EqualValues(t, 952, fills[0].Size)
	assert.True(t, fills[0].Price.Equal(decimal.NewFromInt(12)))
	assert.Equal(t, types.SideTypeSell, fills[1].Side)
	assert.EqualValues(t, 952, fills[1].Size)
	assert.True(t, fills[1].Price.Equal(decimal.NewFromInt(7)))

	assert.EqualValues(t, 0, e.Ledger().Position("acct", sym).Size)
	assert.True(t, e.Ledger().ClosedPnL("acct").Equal(decimal.NewFromInt(-4760)))
}

func TestLongOnlyIgnoresDownsideBreakWhenFlat(t *testing.T) {
	strat := NewStrategy(nil, []string{sym}, WithInterval(types.OneMinute), WithLookback(3))
	e := runStrategy(t, strat, minuteTicks(t, "10", "10", "10", "10", "5", "5", "5"))
	assert.Empty(t, e.Fills())
}

func TestReversingAllocatorGoesShort(t *testing.T) {
	strat := NewStrategy(nil, []string{sym},
		WithInterval(types.OneMinute),
		WithLookback(3),
		WithAllocator(NewReversingAllocator(decimal.RequireFromString("0.1"))))
	e := runStrategy(t, strat, minuteTicks(t, "10", "10", "10", "10", "5", "5", "5"))

	fills := e.Fills()
	require.Len(t, fills, 1)
	assert.Equal(t, types.SideTypeSell, fills[0].Side)
	// 10000 / 10 channel low
	assert.EqualValues(t, 1000, fills[0].Size)
	assert.EqualValues(t, -1000, e.Ledger().Position("acct", sym).Size)
}

func TestAllocate(t *testing.T) {
	cash := decimal.NewFromInt(1000)
	buy := types.NewSignal(sym, types.SideTypeBuy, decimal.NewFromInt(10), "", date, 0)
	sell := types.NewSignal(sym, types.SideTypeSell, decimal.NewFromInt(10), "", date, 0)
	longOnly := NewLongOnlyAllocator(decimal.RequireFromString("0.5"))
	reversing := NewReversingAllocator(decimal.RequireFromString("0.5"))

	tests := []struct {
		name  string
		alloc *Allocator
		sig   types.Signal
		size  int64
		side  types.Side
		want  int64
	}{
		{"flat buy", longOnly, buy, 0, types.SideTypeBuy, 50},
		{"flat sell long only", longOnly, sell, 0, "", 0},
		{"flat sell reversing", reversing, sell, 0, types.SideTypeSell, 50},
		{"long buy no pyramid", longOnly, buy, 30, "", 0},
		{"long sell flattens", longOnly, sell, 30, types.SideTypeSell, 30},
		{"long sell reverses", reversing, sell, 30, types.SideTypeSell, 80},
		{"short buy covers and opens", longOnly, buy, -20, types.SideTypeBuy, 70},
		{"short sell ignored", reversing, sell, -20, "", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			orders := tt.alloc.Allocate(tt.sig, types.PositionSnapshot{Symbol: sym, Size: tt.size}, cash)
			if tt.want == 0 {
				assert.Empty(t, orders)
				return
			}
			require.Len(t, orders, 1)
			assert.Equal(t, tt.side, orders[0].Side)
			assert.Equal(t, tt.want, orders[0].Size)
			assert.Equal(t, types.TypeMarket, orders[0].Type)
		})
	}
}

func TestExit(t *testing.T) {
	a := NewLongOnlyAllocator(decimal.RequireFromString("0.1"))
	sell := types.NewSignal(sym, types.SideTypeSell, decimal.NewFromInt(10), "", date, 0)
	orders := a.Exit(sell, types.PositionSnapshot{Size: 40})
	require.Len(t, orders, 1)
	assert.EqualValues(t, 40, orders[0].Size)
	assert.Empty(t, a.Exit(sell, types.PositionSnapshot{Size: -40}))
}

func TestDonchianHighLowAndATR(t *testing.T) {
	mk := func(h, l, c string) types.Bar {
		return types.Bar{High: decimal.RequireFromString(h), Low: decimal.RequireFromString(l), Close: decimal.RequireFromString(c)}
	}
	window := []types.Bar{mk("11", "9", "10"), mk("12", "10", "11"), mk("13", "8", "9")}
	hi, lo := donchianHighLow(window)
	assert.True(t, hi.Equal(decimal.NewFromInt(13)))
	assert.True(t, lo.Equal(decimal.NewFromInt(8)))

	// true ranges 2 and 5, averaged over 2
	assert.True(t, calcATR(window, 2).Equal(decimal.RequireFromString("3.5")))
	assert.True(t, calcATR(window, 3).IsZero())
}
