package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

const schema = `
CREATE TABLE IF NOT EXISTS securities (
    symbol         TEXT PRIMARY KEY,
    name           TEXT    NOT NULL DEFAULT '',
    type           TEXT    NOT NULL DEFAULT 'STOCK',
    exchange       TEXT    NOT NULL DEFAULT '',
    lot_size       BIGINT  NOT NULL DEFAULT 1,
    pip_size       NUMERIC NOT NULL DEFAULT 0,
    pip_value      NUMERIC NOT NULL DEFAULT 0,
    tick_size      NUMERIC NOT NULL DEFAULT 0,
    min_order_size BIGINT  NOT NULL DEFAULT 0,
    max_order_size BIGINT  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS ticks (
    id           BIGSERIAL PRIMARY KEY,
    symbol       TEXT    NOT NULL,
    date         INTEGER NOT NULL,
    time         INTEGER NOT NULL,
    price        NUMERIC NOT NULL DEFAULT 0,
    size         BIGINT  NOT NULL DEFAULT 0,
    exchange     TEXT    NOT NULL DEFAULT '',
    bid          NUMERIC NOT NULL DEFAULT 0,
    ask          NUMERIC NOT NULL DEFAULT 0,
    bid_size     BIGINT  NOT NULL DEFAULT 0,
    ask_size     BIGINT  NOT NULL DEFAULT 0,
    bid_exchange TEXT    NOT NULL DEFAULT '',
    ask_exchange TEXT    NOT NULL DEFAULT '',
    depth        INTEGER NOT NULL DEFAULT 0
);

CREATE INDEX IF NOT EXISTS ticks_symbol_date_time ON ticks (symbol, date, time, id);
`

const getSecurities = `
SELECT symbol, name, type, exchange, lot_size, pip_size, pip_value, tick_size, min_order_size, max_order_size
FROM securities
WHERE symbol = ANY($1)
ORDER BY symbol`

const getTicks = `
SELECT symbol, date, time, price, size, exchange, bid, ask, bid_size, ask_size, bid_exchange, ask_exchange, depth
FROM ticks
WHERE symbol = $1 AND date BETWEEN $2 AND $3
ORDER BY date, time, id`

const countTicks = `
SELECT count(*)
FROM ticks
WHERE symbol = $1 AND date BETWEEN $2 AND $3`

type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	CopyFrom(ctx context.Context, table pgx.Identifier, columns []string, src pgx.CopyFromSource) (int64, error)
}

type queries struct {
	db dbtx
}

func newQueries(db dbtx) *queries {
	return &queries{db: db}
}

type securityRow struct {
	Symbol       string          `db:"symbol"`
	Name         string          `db:"name"`
	Type         string          `db:"type"`
	Exchange     string          `db:"exchange"`
	LotSize      int64           `db:"lot_size"`
	PipSize      decimal.Decimal `db:"pip_size"`
	PipValue     decimal.Decimal `db:"pip_value"`
	TickSize     decimal.Decimal `db:"tick_size"`
	MinOrderSize int64           `db:"min_order_size"`
	MaxOrderSize int64           `db:"max_order_size"`
}

type getTicksParams struct {
	Symbol    string
	StartDate int32
	EndDate   int32
}

type tickRow struct {
	Symbol      string          `db:"symbol"`
	Date        int32           `db:"date"`
	Time        int32           `db:"time"`
	Price       decimal.Decimal `db:"price"`
	Size        int64           `db:"size"`
	Exchange    string          `db:"exchange"`
	Bid         decimal.Decimal `db:"bid"`
	Ask         decimal.Decimal `db:"ask"`
	BidSize     int64           `db:"bid_size"`
	AskSize     int64           `db:"ask_size"`
	BidExchange string          `db:"bid_exchange"`
	AskExchange string          `db:"ask_exchange"`
	Depth       int32           `db:"depth"`
}

var tickColumns = []string{
	"symbol", "date", "time", "price", "size", "exchange",
	"bid", "ask", "bid_size", "ask_size", "bid_exchange", "ask_exchange", "depth",
}

func (q *queries) GetSecurities(ctx context.Context, symbols []string) ([]securityRow, error) {
	rows, err := q.db.Query(ctx, getSecurities, symbols)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[securityRow])
}

func (q *queries) GetTicks(ctx context.Context, arg getTicksParams) ([]tickRow, error) {
	rows, err := q.db.Query(ctx, getTicks, arg.Symbol, arg.StartDate, arg.EndDate)
	if err != nil {
		return nil, err
	}
	return pgx.CollectRows(rows, pgx.RowToStructByName[tickRow])
}

func (q *queries) CountTicks(ctx context.Context, arg getTicksParams) (int64, error) {
	var n int64
	err := q.db.QueryRow(ctx, countTicks, arg.Symbol, arg.StartDate, arg.EndDate).Scan(&n)
	return n, err
}

// InsertTicks bulk loads rows with COPY.
func (q *queries) InsertTicks(ctx context.Context, rows []tickRow) (int64, error) {
	return q.db.CopyFrom(ctx, pgx.Identifier{"ticks"}, tickColumns,
		pgx.CopyFromSlice(len(rows), func(i int) ([]any, error) {
			r := rows[i]
			return []any{
				r.Symbol, r.Date, r.Time, r.Price, r.Size, r.Exchange,
				r.Bid, r.Ask, r.BidSize, r.AskSize, r.BidExchange, r.AskExchange, r.Depth,
			}, nil
		}))
}
