package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

type mockTicksRepository struct {
	sqlError error
	rows     []tickRow
	count    int64
	inserted []tickRow
	lastArg  getTicksParams
}

func (m *mockTicksRepository) GetTicks(_ context.Context, arg getTicksParams) ([]tickRow, error) {
	m.lastArg = arg
	if m.sqlError != nil {
		return nil, m.sqlError
	}
	return m.rows, nil
}

func (m *mockTicksRepository) CountTicks(_ context.Context, arg getTicksParams) (int64, error) {
	m.lastArg = arg
	if m.sqlError != nil {
		return 0, m.sqlError
	}
	return m.count, nil
}

func (m *mockTicksRepository) InsertTicks(_ context.Context, rows []tickRow) (int64, error) {
	if m.sqlError != nil {
		return 0, m.sqlError
	}
	m.inserted = append(m.inserted, rows...)
	return int64(len(rows)), nil
}

func mockRows(n int) []tickRow {
	rows := make([]tickRow, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, tickRow{
			Symbol:   "IBM",
			Date:     20070517,
			Time:     int32(93000000 + i*1000),
			Price:    decimal.NewFromInt(int64(100 + i)),
			Size:     100,
			Exchange: "N",
		})
	}
	return rows
}

func TestDatabase_GetTicks(t *testing.T) {
	tests := []struct {
		name    string
		start   int
		end     int
		rows    []tickRow
		sqlErr  error
		want    int
		wantErr error
	}{
		{"should throw ErrNoTicks on empty result", 20070517, 20070517, nil, nil, 0, ErrNoTicks},
		{"should throw ErrNoTicks on no rows", 20070517, 20070517, nil, pgx.ErrNoRows, 0, ErrNoTicks},
		{"should throw ErrInvalidRange", 20070518, 20070517, nil, nil, 0, ErrInvalidRange},
		{"should return ticks", 20070517, 20070518, mockRows(3), nil, 3, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := &mockTicksRepository{rows: tt.rows, sqlError: tt.sqlErr}
			db := &Database{ticks: repo}

			got, err := db.GetTicks(context.Background(), "IBM", tt.start, tt.end)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("GetTicks() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("GetTicks() unexpected error %v", err)
			}
			if len(got) != tt.want {
				t.Fatalf("GetTicks() got %d ticks, want %d", len(got), tt.want)
			}
			if repo.lastArg.StartDate != int32(tt.start) || repo.lastArg.EndDate != int32(tt.end) {
				t.Errorf("GetTicks() queried %+v", repo.lastArg)
			}
			for i, tick := range got {
				if !tick.IsTrade() {
					t.Errorf("tick %d is not a trade: %v", i, tick)
				}
				if !tick.Trade.Equal(decimal.NewFromInt(int64(100 + i))) {
					t.Errorf("tick %d price got = %s", i, tick.Trade)
				}
			}
		})
	}
}

func TestDatabase_SaveTicksSkipsInvalid(t *testing.T) {
	repo := &mockTicksRepository{}
	db := &Database{ticks: repo}

	good, _ := types.NewTrade("IBM", 20070517, 93000000, decimal.NewFromInt(10), 5, "N")
	n, err := db.SaveTicks(context.Background(), []types.Tick{good, {Symbol: "IBM"}})
	if err != nil {
		t.Fatalf("SaveTicks() error %v", err)
	}
	if n != 1 || len(repo.inserted) != 1 {
		t.Fatalf("SaveTicks() wrote %d rows, want 1", n)
	}
	if repo.inserted[0].Time != 93000000 || repo.inserted[0].Exchange != "N" {
		t.Errorf("SaveTicks() row = %+v", repo.inserted[0])
	}
}

func TestTickSource(t *testing.T) {
	repo := &mockTicksRepository{rows: mockRows(2), count: 2}
	src := (&Database{ticks: repo}).NewTickSource(context.Background(), nil, "IBM", 20070517, 20070517)

	if _, err := src.Next(); !errors.Is(err, replay.ErrSourceNotOpen) {
		t.Fatalf("Next() before Open error = %v", err)
	}
	if got := src.Estimate(); got != 2 {
		t.Errorf("Estimate() before Open = %d, want 2", got)
	}

	for round := 0; round < 2; round++ {
		if err := src.Open(); err != nil {
			t.Fatalf("Open() error %v", err)
		}
		var got []types.Tick
		for {
			tick, err := src.Next()
			if errors.Is(err, io.EOF) {
				break
			}
			if err != nil {
				t.Fatalf("Next() error %v", err)
			}
			got = append(got, tick)
		}
		if len(got) != 2 {
			t.Fatalf("round %d: got %d ticks, want 2", round, len(got))
		}
		_ = src.Close()
	}
}

func TestTickSource_OpenFailure(t *testing.T) {
	repo := &mockTicksRepository{sqlError: errors.New("connection refused")}
	src := newTickSource(context.Background(), nil, &Database{ticks: repo}, "IBM", 20070517, 20070517)

	if err := src.Open(); err == nil {
		t.Fatal("Open() expected error")
	}
	if got := src.Estimate(); got != 0 {
		t.Errorf("Estimate() = %d, want 0", got)
	}
}
