package archive

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

func trade(t *testing.T, symbol string, date, ftime int, price string) types.Tick {
	t.Helper()
	tk, err := types.NewTrade(symbol, date, ftime, decimal.RequireFromString(price), 100, "NYSE")
	require.NoError(t, err)
	return tk
}

func quote(t *testing.T, symbol string, date, ftime int, bid, ask string) types.Tick {
	t.Helper()
	tk, err := types.NewQuote(symbol, date, ftime, decimal.RequireFromString(bid), decimal.RequireFromString(ask), 300, 400, "ARCA", "BATS")
	require.NoError(t, err)
	return tk
}

func TestFileNameRoundTrip(t *testing.T) {
	name := FileName("IBM", 20240102)
	assert.Equal(t, "IBM_20240102.parquet", name)

	sym, date, err := ParseFileName(filepath.Join("x", "BRK_B_20240103.parquet"))
	require.NoError(t, err)
	assert.Equal(t, "BRK_B", sym)
	assert.Equal(t, 20240103, date)

	for _, bad := range []string{"IBM.parquet", "IBM_2024.parquet", "IBM_2024010x.parquet", "IBM_20240102.csv", "_20240102.parquet"} {
		_, _, err := ParseFileName(bad)
		assert.ErrorIs(t, err, ErrBadFileName, bad)
	}
}

func TestWriteTicksAndFindFiles(t *testing.T) {
	dir := t.TempDir()
	ticks := []types.Tick{
		trade(t, "IBM", 20240102, 93000000, "101.25"),
		quote(t, "IBM", 20240102, 93000500, "101.2", "101.3"),
		trade(t, "IBM", 20240103, 93000000, "102.5"),
		trade(t, "MSFT", 20240102, 93000000, "370.1"),
		trade(t, "IBM", 20240104, 93000000, "103"),
		{Symbol: "IBM", Date: 20240105},
	}
	paths, err := WriteTicks(dir, ticks)
	require.NoError(t, err)
	assert.Len(t, paths, 4)

	found, err := FindFiles(dir, "IBM", 20240102, 20240103)
	require.NoError(t, err)
	assert.Equal(t, []string{
		filepath.Join(dir, "IBM_20240102.parquet"),
		filepath.Join(dir, "IBM_20240103.parquet"),
	}, found)

	found, err = FindFiles(dir, "IBM", 0, 0)
	require.NoError(t, err)
	assert.Len(t, found, 3)

	n, err := CountRows(filepath.Join(dir, "IBM_20240102.parquet"))
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)

	got, err := ReadTicks(filepath.Join(dir, "IBM_20240102.parquet"))
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.True(t, got[0].Trade.Equal(decimal.RequireFromString("101.25")))
	assert.Equal(t, "NYSE", got[0].Exchange)
	assert.True(t, got[1].IsFullQuote())
	assert.True(t, got[1].Bid.Equal(decimal.RequireFromString("101.2")))
	assert.EqualValues(t, 400, got[1].AskSize)
	assert.Equal(t, "BATS", got[1].AskExchange)
	assert.False(t, got[1].IsTrade())
}

func TestFindFilesMissingDir(t *testing.T) {
	_, err := FindFiles(filepath.Join(t.TempDir(), "nope"), "IBM", 0, 0)
	assert.Error(t, err)
}

func TestFileSourceConcatenatesDays(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteTicks(dir, []types.Tick{
		trade(t, "IBM", 20240102, 93000000, "1"),
		trade(t, "IBM", 20240102, 93001000, "2"),
		trade(t, "IBM", 20240103, 93000000, "3"),
	})
	require.NoError(t, err)

	src, err := OpenSymbol(nil, dir, "IBM", 0, 0)
	require.NoError(t, err)
	assert.Equal(t, "IBM", src.Name())
	assert.Equal(t, 3, src.Estimate())

	_, err = src.Next()
	assert.ErrorIs(t, err, replay.ErrSourceNotOpen)

	for round := 0; round < 2; round++ {
		require.NoError(t, src.Open())
		var prices []string
		for {
			tk, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			require.NoError(t, err)
			prices = append(prices, tk.Trade.String())
		}
		assert.Equal(t, []string{"1", "2", "3"}, prices, "round %d", round)
	}
	require.NoError(t, src.Close())
}

func TestFileSourceDrivesScheduler(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteTicks(dir, []types.Tick{
		trade(t, "IBM", 20240102, 93000000, "1"),
		trade(t, "MSFT", 20240102, 93000500, "2"),
		trade(t, "IBM", 20240102, 93001000, "3"),
	})
	require.NoError(t, err)

	sched := replay.NewScheduler(nil)
	for _, sym := range []string{"IBM", "MSFT"} {
		src, err := OpenSymbol(nil, dir, sym, 0, 0)
		require.NoError(t, err)
		sched.AddSource(src)
	}
	var seen []string
	sched.OnTick(func(tk types.Tick) { seen = append(seen, tk.Symbol) })

	n, err := sched.PlayAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []string{"IBM", "MSFT", "IBM"}, seen)
}

func TestOpenSymbolNoFiles(t *testing.T) {
	_, err := OpenSymbol(nil, t.TempDir(), "IBM", 0, 0)
	assert.ErrorIs(t, err, ErrNoFiles)
}

func TestFileSourceSkipsCorruptFile(t *testing.T) {
	dir := t.TempDir()
	paths, err := WriteTicks(dir, []types.Tick{
		trade(t, "IBM", 20240102, 93000000, "1"),
		trade(t, "IBM", 20240104, 93000000, "3"),
	})
	require.NoError(t, err)
	bad := filepath.Join(dir, FileName("IBM", 20240103))
	require.NoError(t, os.WriteFile(bad, []byte("not parquet"), 0o644))

	src := NewFileSource(nil, "IBM", paths[0], bad, paths[1])
	assert.Equal(t, 2, src.Estimate())
	require.NoError(t, src.Open())

	var prices []string
	for {
		tk, err := src.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		require.NoError(t, err)
		prices = append(prices, tk.Trade.String())
	}
	assert.Equal(t, []string{"1", "3"}, prices)
	assert.Equal(t, 1, src.Skipped())
}

func TestFileSourceOpenFailures(t *testing.T) {
	assert.ErrorIs(t, NewFileSource(nil, "IBM").Open(), ErrNoFiles)

	missing := filepath.Join(t.TempDir(), FileName("IBM", 20240102))
	assert.ErrorIs(t, NewFileSource(nil, "IBM", missing).Open(), os.ErrNotExist)
}

func TestMissingSymbolIsExcludedFromReplay(t *testing.T) {
	dir := t.TempDir()
	_, err := WriteTicks(dir, []types.Tick{
		trade(t, "IBM", 20240102, 93000000, "1"),
		trade(t, "IBM", 20240102, 93001000, "2"),
	})
	require.NoError(t, err)

	sources, err := OpenSymbols(nil, dir, []string{"IBM", "MISSING"}, 0, 0)
	require.NoError(t, err)
	require.Len(t, sources, 2)

	sched := replay.NewScheduler(nil)
	for _, src := range sources {
		sched.AddSource(src)
	}
	n, err := sched.PlayAll(t.Context())
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.Equal(t, []string{"MISSING"}, sched.Failed())
}

func TestBarsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bars", "IBM_1m.parquet")
	b1 := types.NewBar("IBM", types.SecondsInterval(60), decimal.RequireFromString("10.5"), 100, 20240102, 93000000, 20240102, 93000000)
	b1.Update(decimal.RequireFromString("11.25"), 50, 20240102, 93030000)
	b2 := types.NewBar("IBM", types.TickInterval(5), decimal.RequireFromString("9.75"), 10, 20240102, 93100000, 20240102, 93100000)

	require.NoError(t, WriteBars(path, []types.Bar{b1, b2}))
	got, err := ReadBars(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 60, got[0].Interval.Seconds())
	assert.True(t, got[0].High.Equal(decimal.RequireFromString("11.25")))
	assert.True(t, got[0].Open.Equal(decimal.RequireFromString("10.5")))
	assert.EqualValues(t, 150, got[0].Volume)
	assert.Equal(t, b1.TradeCount, got[0].TradeCount)
	assert.True(t, got[1].Interval.IsTickBased())
	assert.Equal(t, 5, got[1].Interval.Length)

	other := types.NewBar("MSFT", types.SecondsInterval(60), decimal.RequireFromString("1"), 1, 20240102, 93000000, 20240102, 93000000)
	assert.ErrorIs(t, WriteBars(path, []types.Bar{b1, other}), ErrMixedSymbols)
}
