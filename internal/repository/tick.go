package repository

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"tickbacktest/internal/replay"
	"tickbacktest/types"
)

var _ replay.Source = (*TickSource)(nil)

func rangeParams(symbol string, startDate, endDate int) (getTicksParams, error) {
	if startDate > endDate {
		return getTicksParams{}, fmt.Errorf("%d > %d: %w", startDate, endDate, ErrInvalidRange)
	}
	return getTicksParams{Symbol: symbol, StartDate: int32(startDate), EndDate: int32(endDate)}, nil
}

// GetTicks returns the ticks of symbol between two YYYYMMDD dates inclusive,
// in time order.
func (db *Database) GetTicks(ctx context.Context, symbol string, startDate, endDate int) ([]types.Tick, error) {
	args, err := rangeParams(symbol, startDate, endDate)
	if err != nil {
		return nil, err
	}
	rows, err := db.ticks.GetTicks(ctx, args)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoTicks
		}
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s %d-%d: %w", symbol, startDate, endDate, ErrNoTicks)
	}
	return convertTicks(rows), nil
}

func (db *Database) CountTicks(ctx context.Context, symbol string, startDate, endDate int) (int, error) {
	args, err := rangeParams(symbol, startDate, endDate)
	if err != nil {
		return 0, err
	}
	n, err := db.ticks.CountTicks(ctx, args)
	if err != nil {
		return 0, fmt.Errorf("count ticks: %w", err)
	}
	return int(n), nil
}

// SaveTicks bulk inserts ticks and returns how many rows were written.
func (db *Database) SaveTicks(ctx context.Context, ticks []types.Tick) (int, error) {
	rows := make([]tickRow, 0, len(ticks))
	for _, t := range ticks {
		if !t.IsValid() {
			continue
		}
		rows = append(rows, tickRow{
			Symbol:      t.Symbol,
			Date:        int32(t.Date),
			Time:        int32(t.Time),
			Price:       t.Trade,
			Size:        t.Size,
			Exchange:    t.Exchange,
			Bid:         t.Bid,
			Ask:         t.Ask,
			BidSize:     t.BidSize,
			AskSize:     t.AskSize,
			BidExchange: t.BidExchange,
			AskExchange: t.AskExchange,
			Depth:       int32(t.Depth),
		})
	}
	n, err := db.ticks.InsertTicks(ctx, rows)
	if err != nil {
		return 0, fmt.Errorf("insert ticks: %w", err)
	}
	return int(n), nil
}

func convertTicks(rows []tickRow) []types.Tick {
	ticks := make([]types.Tick, 0, len(rows))
	for _, r := range rows {
		ticks = append(ticks, types.Tick{
			Symbol:      r.Symbol,
			Trade:       r.Price,
			Size:        r.Size,
			Exchange:    r.Exchange,
			Bid:         r.Bid,
			Ask:         r.Ask,
			BidSize:     r.BidSize,
			AskSize:     r.AskSize,
			BidExchange: r.BidExchange,
			AskExchange: r.AskExchange,
			Date:        int(r.Date),
			Time:        int(r.Time),
			Depth:       int(r.Depth),
		})
	}
	return ticks
}

type tickStore interface {
	GetTicks(ctx context.Context, symbol string, startDate, endDate int) ([]types.Tick, error)
	CountTicks(ctx context.Context, symbol string, startDate, endDate int) (int, error)
}

// TickSource replays the ticks of one symbol from the database. Open reads
// the whole range into memory so playback never waits on the database.
type TickSource struct {
	ctx       context.Context
	log       *zap.Logger
	store     tickStore
	symbol    string
	startDate int
	endDate   int

	buf    []types.Tick
	pos    int
	opened bool
}

func (db *Database) NewTickSource(ctx context.Context, log *zap.Logger, symbol string, startDate, endDate int) *TickSource {
	return newTickSource(ctx, log, db, symbol, startDate, endDate)
}

func newTickSource(ctx context.Context, log *zap.Logger, store tickStore, symbol string, startDate, endDate int) *TickSource {
	if log == nil {
		log = zap.NewNop()
	}
	return &TickSource{
		ctx:       ctx,
		log:       log,
		store:     store,
		symbol:    symbol,
		startDate: startDate,
		endDate:   endDate,
	}
}

func (s *TickSource) Name() string {
	return fmt.Sprintf("db:%s:%d-%d", s.symbol, s.startDate, s.endDate)
}

func (s *TickSource) Open() error {
	ticks, err := s.store.GetTicks(s.ctx, s.symbol, s.startDate, s.endDate)
	if err != nil {
		return err
	}
	s.buf, s.pos, s.opened = ticks, 0, true
	return nil
}

func (s *TickSource) Next() (types.Tick, error) {
	if !s.opened {
		return types.Tick{}, fmt.Errorf("%s: %w", s.Name(), replay.ErrSourceNotOpen)
	}
	if s.pos >= len(s.buf) {
		return types.Tick{}, io.EOF
	}
	t := s.buf[s.pos]
	s.pos++
	return t, nil
}

// Estimate is the buffered count once open, otherwise a COUNT query.
func (s *TickSource) Estimate() int {
	if s.opened {
		return len(s.buf)
	}
	n, err := s.store.CountTicks(s.ctx, s.symbol, s.startDate, s.endDate)
	if err != nil {
		s.log.Warn("tick count failed", zap.String("source", s.Name()), zap.Error(err))
		return 0
	}
	return n
}

func (s *TickSource) Close() error {
	s.buf, s.pos, s.opened = nil, 0, false
	return nil
}
