// Package archive keeps ticks and bars in parquet files, one file per symbol
// and trading date, and replays tick files as a replay.Source.
package archive

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"github.com/parquet-go/parquet-go"

	"tickbacktest/types"
)

const extension = ".parquet"

var (
	ErrNoFiles      = errors.New("no archive files")
	ErrBadFileName  = errors.New("bad archive file name")
	ErrMixedSymbols = errors.New("bars span more than one symbol")
)

// FileName is the archive name for a symbol's ticks on one date,
// e.g. IBM_20240102.parquet.
func FileName(symbol string, date int) string {
	return fmt.Sprintf("%s_%08d%s", symbol, date, extension)
}

// ParseFileName splits an archive file name into symbol and date.
func ParseFileName(name string) (string, int, error) {
	base := filepath.Base(name)
	if !strings.HasSuffix(base, extension) {
		return "", 0, fmt.Errorf("%w: %s", ErrBadFileName, base)
	}
	base = strings.TrimSuffix(base, extension)
	i := strings.LastIndexByte(base, '_')
	if i <= 0 || len(base)-i-1 != 8 {
		return "", 0, fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	date, err := strconv.Atoi(base[i+1:])
	if err != nil {
		return "", 0, fmt.Errorf("%w: %s", ErrBadFileName, name)
	}
	return base[:i], date, nil
}

// FindFiles lists the archive files of symbol in dir with start <= date <=
// end, ordered by date. A zero end means no upper bound.
func FindFiles(dir, symbol string, start, end int) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read archive dir: %w", err)
	}

	type dated struct {
		path string
		date int
	}
	var found []dated
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		sym, date, err := ParseFileName(e.Name())
		if err != nil || sym != symbol {
			continue
		}
		if date < start || (end > 0 && date > end) {
			continue
		}
		found = append(found, dated{path: filepath.Join(dir, e.Name()), date: date})
	}
	slices.SortFunc(found, func(a, b dated) int { return a.date - b.date })

	paths := make([]string, len(found))
	for i, f := range found {
		paths[i] = f.path
	}
	return paths, nil
}

// WriteTicks writes ticks into dir, one file per symbol and date, and
// returns the written paths in name order. Invalid ticks are skipped and
// each file keeps the input order of its ticks.
func WriteTicks(dir string, ticks []types.Tick) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}

	groups := make(map[string][]tickRecord)
	for _, t := range ticks {
		if !t.IsValid() {
			continue
		}
		name := FileName(t.Symbol, t.Date)
		groups[name] = append(groups[name], toTickRecord(t))
	}

	names := make([]string, 0, len(groups))
	for name := range groups {
		names = append(names, name)
	}
	slices.Sort(names)

	paths := make([]string, 0, len(names))
	for _, name := range names {
		path := filepath.Join(dir, name)
		if err := parquet.WriteFile(path, groups[name]); err != nil {
			return paths, fmt.Errorf("write %s: %w", name, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// ReadTicks loads every tick of a single archive file.
func ReadTicks(path string) ([]types.Tick, error) {
	rows, err := parquet.ReadFile[tickRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	ticks := make([]types.Tick, len(rows))
	for i, r := range rows {
		ticks[i] = r.tick()
	}
	return ticks, nil
}

// CountRows reads the row count from the file footer only.
func CountRows(path string) (int64, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return 0, err
	}
	pf, err := parquet.OpenFile(f, info.Size())
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", path, err)
	}
	return pf.NumRows(), nil
}

// WriteBars exports bars of one symbol to path.
func WriteBars(path string, bars []types.Bar) error {
	rows := make([]barRecord, len(bars))
	for i, b := range bars {
		if i > 0 && b.Symbol != bars[0].Symbol {
			return fmt.Errorf("%w: %s and %s", ErrMixedSymbols, bars[0].Symbol, b.Symbol)
		}
		rows[i] = toBarRecord(b)
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create bar dir: %w", err)
		}
	}
	return parquet.WriteFile(path, rows)
}

// ReadBars loads bars written by WriteBars.
func ReadBars(path string) ([]types.Bar, error) {
	rows, err := parquet.ReadFile[barRecord](path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	bars := make([]types.Bar, 0, len(rows))
	for _, r := range rows {
		b, err := r.bar()
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		bars = append(bars, b)
	}
	return bars, nil
}
