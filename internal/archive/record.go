package archive

import (
	"github.com/shopspring/decimal"

	"tickbacktest/types"
)

// tickRecord is the parquet row layout of one tick. Prices are stored as
// float64 and read back through decimal.NewFromFloat, which restores the
// shortest decimal that round-trips.
type tickRecord struct {
	Symbol      string  `parquet:"symbol,dict"`
	Date        int32   `parquet:"date"`
	Time        int32   `parquet:"time"`
	Price       float64 `parquet:"price,optional"`
	Size        int64   `parquet:"size,optional"`
	Exchange    string  `parquet:"exchange,optional,dict"`
	Bid         float64 `parquet:"bid,optional"`
	Ask         float64 `parquet:"ask,optional"`
	BidSize     int64   `parquet:"bid_size,optional"`
	AskSize     int64   `parquet:"ask_size,optional"`
	BidExchange string  `parquet:"bid_exchange,optional,dict"`
	AskExchange string  `parquet:"ask_exchange,optional,dict"`
	Depth       int32   `parquet:"depth,optional"`
}

// barRecord is the parquet row layout of one bar. Interval holds the bar
// format code: seconds for time bars, -N for N-tick bars.
type barRecord struct {
	Symbol     string  `parquet:"symbol,dict"`
	Interval   int32   `parquet:"interval"`
	Date       int32   `parquet:"date"`
	Time       int32   `parquet:"time"`
	Open       float64 `parquet:"o"`
	High       float64 `parquet:"h"`
	Low        float64 `parquet:"l"`
	Close      float64 `parquet:"c"`
	Volume     int64   `parquet:"v"`
	TradeCount int64   `parquet:"n,optional"`
}

func toTickRecord(t types.Tick) tickRecord {
	return tickRecord{
		Symbol:      t.Symbol,
		Date:        int32(t.Date),
		Time:        int32(t.Time),
		Price:       t.Trade.InexactFloat64(),
		Size:        t.Size,
		Exchange:    t.Exchange,
		Bid:         t.Bid.InexactFloat64(),
		Ask:         t.Ask.InexactFloat64(),
		BidSize:     t.BidSize,
		AskSize:     t.AskSize,
		BidExchange: t.BidExchange,
		AskExchange: t.AskExchange,
		Depth:       int32(t.Depth),
	}
}

func (r tickRecord) tick() types.Tick {
	return types.Tick{
		Symbol:      r.Symbol,
		Trade:       decimal.NewFromFloat(r.Price),
		Size:        r.Size,
		Exchange:    r.Exchange,
		Bid:         decimal.NewFromFloat(r.Bid),
		Ask:         decimal.NewFromFloat(r.Ask),
		BidSize:     r.BidSize,
		AskSize:     r.AskSize,
		BidExchange: r.BidExchange,
		AskExchange: r.AskExchange,
		Date:        int(r.Date),
		Time:        int(r.Time),
		Depth:       int(r.Depth),
	}
}

func toBarRecord(b types.Bar) barRecord {
	return barRecord{
		Symbol:     b.Symbol,
		Interval:   int32(b.Interval.Code()),
		Date:       int32(b.Bardate),
		Time:       int32(b.Bartime),
		Open:       b.Open.InexactFloat64(),
		High:       b.High.InexactFloat64(),
		Low:        b.Low.InexactFloat64(),
		Close:      b.Close.InexactFloat64(),
		Volume:     b.Volume,
		TradeCount: int64(b.TradeCount),
	}
}

func (r barRecord) bar() (types.Bar, error) {
	interval, err := types.IntervalFromCode(int(r.Interval))
	if err != nil {
		return types.Bar{}, err
	}
	return types.Bar{
		Symbol:     r.Symbol,
		Interval:   interval,
		Open:       decimal.NewFromFloat(r.Open),
		High:       decimal.NewFromFloat(r.High),
		Low:        decimal.NewFromFloat(r.Low),
		Close:      decimal.NewFromFloat(r.Close),
		Volume:     r.Volume,
		TradeCount: int(r.TradeCount),
		Bardate:    int(r.Date),
		Bartime:    int(r.Time),
		Date:       int(r.Date),
		Time:       int(r.Time),
	}, nil
}
