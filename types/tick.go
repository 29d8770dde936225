package types

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var ErrInvalidTick = errors.New("invalid tick")

// Tick is one market data event. A tick may carry a trade, a quote, or both.
type Tick struct {
	Symbol   string          `json:"symbol"`
	Trade    decimal.Decimal `json:"trade"`
	Size     int64           `json:"size"`
	Exchange string          `json:"exchange,omitempty"`

	Bid         decimal.Decimal `json:"bid"`
	Ask         decimal.Decimal `json:"ask"`
	BidSize     int64           `json:"bidSize"`
	AskSize     int64           `json:"askSize"`
	BidExchange string          `json:"bidExchange,omitempty"`
	AskExchange string          `json:"askExchange,omitempty"`

	Date  int `json:"date"` // YYYYMMDD
	Time  int `json:"time"` // HHMMSSmmm
	Depth int `json:"depth"`
}

// NewTrade builds a trade tick and rejects empty symbols and zero price or size.
func NewTrade(symbol string, date, ftime int, price decimal.Decimal, size int64, exchange string) (Tick, error) {
	t := Tick{
		Symbol:   symbol,
		Trade:    price,
		Size:     size,
		Exchange: exchange,
		Date:     date,
		Time:     ftime,
	}
	if !t.IsTrade() || symbol == "" {
		return Tick{}, fmt.Errorf("trade %s %s@%d: %w", symbol, price, size, ErrInvalidTick)
	}
	return t, nil
}

// NewQuote builds a quote tick. Either side may be empty but not both.
func NewQuote(symbol string, date, ftime int, bid, ask decimal.Decimal, bidSize, askSize int64, bidExchange, askExchange string) (Tick, error) {
	t := Tick{
		Symbol:      symbol,
		Bid:         bid,
		Ask:         ask,
		BidSize:     bidSize,
		AskSize:     askSize,
		BidExchange: bidExchange,
		AskExchange: askExchange,
		Date:        date,
		Time:        ftime,
	}
	if !t.IsQuote() || symbol == "" {
		return Tick{}, fmt.Errorf("quote %s %s/%s: %w", symbol, bid, ask, ErrInvalidTick)
	}
	return t, nil
}

func (t Tick) IsTrade() bool {
	return t.Trade.IsPositive() && t.Size > 0
}

func (t Tick) HasBid() bool {
	return t.Bid.IsPositive() && t.BidSize > 0
}

func (t Tick) HasAsk() bool {
	return t.Ask.IsPositive() && t.AskSize > 0
}

func (t Tick) IsQuote() bool {
	return t.HasBid() || t.HasAsk()
}

// IsValid reports whether the tick has a symbol and at least one usable price/size pair.
func (t Tick) IsValid() bool {
	return t.Symbol != "" && (t.IsTrade() || t.IsQuote())
}

// IsFullQuote is true when both sides of the quote are present.
func (t Tick) IsFullQuote() bool {
	return t.HasBid() && t.HasAsk()
}

// Stamp is the ordering key used by the replay scheduler.
func (t Tick) Stamp() int64 {
	return Stamp(t.Date, t.Time)
}

func (t Tick) DateTime() time.Time {
	return ToTime(t.Date, t.Time)
}

func (t Tick) String() string {
	switch {
	case t.IsTrade() && t.IsQuote():
		return fmt.Sprintf("%s %d %d %s@%d %s/%s", t.Symbol, t.Date, t.Time, t.Trade, t.Size, t.Bid, t.Ask)
	case t.IsTrade():
		return fmt.Sprintf("%s %d %d %s@%d", t.Symbol, t.Date, t.Time, t.Trade, t.Size)
	default:
		return fmt.Sprintf("%s %d %d %s/%s %dx%d", t.Symbol, t.Date, t.Time, t.Bid, t.Ask, t.BidSize, t.AskSize)
	}
}
