package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var ErrMalformedBar = errors.New("malformed bar")

// Bar is an OHLCV aggregate. Bardate/Bartime hold the window boundary, Date/Time
// the last update that touched the bar.
type Bar struct {
	Symbol     string          `json:"symbol"`
	Interval   Interval        `json:"interval"`
	Open       decimal.Decimal `json:"open"`
	High       decimal.Decimal `json:"high"`
	Low        decimal.Decimal `json:"low"`
	Close      decimal.Decimal `json:"close"`
	Volume     int64           `json:"volume"`
	TradeCount int             `json:"tradeCount"`
	Bardate    int             `json:"bardate"`
	Bartime    int             `json:"bartime"`
	Date       int             `json:"date"`
	Time       int             `json:"time"`
	IsNew      bool            `json:"-"`
}

// NewBar seeds a bar with a single point.
func NewBar(symbol string, interval Interval, price decimal.Decimal, size int64, bardate, bartime, date, ftime int) Bar {
	return Bar{
		Symbol:     symbol,
		Interval:   interval,
		Open:       price,
		High:       price,
		Low:        price,
		Close:      price,
		Volume:     size,
		TradeCount: 1,
		Bardate:    bardate,
		Bartime:    bartime,
		Date:       date,
		Time:       ftime,
		IsNew:      true,
	}
}

// Update folds one more point into the bar.
func (b *Bar) Update(price decimal.Decimal, size int64, date, ftime int) {
	if price.GreaterThan(b.High) {
		b.High = price
	}
	if price.LessThan(b.Low) {
		b.Low = price
	}
	b.Close = price
	b.Volume += size
	b.TradeCount++
	b.Date = date
	b.Time = ftime
}

func (b Bar) IsValid() bool {
	if b.TradeCount <= 0 {
		return false
	}
	return b.High.GreaterThanOrEqual(decimal.Max(b.Open, b.Close)) &&
		b.Low.LessThanOrEqual(decimal.Min(b.Open, b.Close))
}

// Stamp orders bars by their boundary.
func (b Bar) Stamp() int64 {
	return Stamp(b.Bardate, b.Bartime)
}

// FormatBar renders open,high,low,close,volume,date,time,symbol,interval.
func FormatBar(b Bar) string {
	return strings.Join([]string{
		b.Open.String(),
		b.High.String(),
		b.Low.String(),
		b.Close.String(),
		strconv.FormatInt(b.Volume, 10),
		strconv.Itoa(b.Bardate),
		strconv.Itoa(b.Bartime),
		b.Symbol,
		strconv.Itoa(b.Interval.Code()),
	}, ",")
}

// ParseBar reads the FormatBar layout. The parsed bar counts as one trade and
// its update time equals its boundary.
func ParseBar(s string) (Bar, error) {
	fields := strings.Split(strings.TrimSpace(s), ",")
	if len(fields) != 9 {
		return Bar{}, fmt.Errorf("%d fields: %w", len(fields), ErrMalformedBar)
	}
	prices := make([]decimal.Decimal, 4)
	for i := range prices {
		p, err := decimal.NewFromString(fields[i])
		if err != nil {
			return Bar{}, fmt.Errorf("field %d %q: %w", i, fields[i], ErrMalformedBar)
		}
		prices[i] = p
	}
	volume, err := strconv.ParseInt(fields[4], 10, 64)
	if err != nil {
		return Bar{}, fmt.Errorf("volume %q: %w", fields[4], ErrMalformedBar)
	}
	date, err := strconv.Atoi(fields[5])
	if err != nil {
		return Bar{}, fmt.Errorf("date %q: %w", fields[5], ErrMalformedBar)
	}
	ftime, err := strconv.Atoi(fields[6])
	if err != nil {
		return Bar{}, fmt.Errorf("time %q: %w", fields[6], ErrMalformedBar)
	}
	if fields[7] == "" {
		return Bar{}, fmt.Errorf("empty symbol: %w", ErrMalformedBar)
	}
	code, err := strconv.Atoi(fields[8])
	if err != nil {
		return Bar{}, fmt.Errorf("interval %q: %w", fields[8], ErrMalformedBar)
	}
	interval, err := IntervalFromCode(code)
	if err != nil {
		return Bar{}, fmt.Errorf("%w: %w", ErrMalformedBar, err)
	}
	return Bar{
		Symbol:     fields[7],
		Interval:   interval,
		Open:       prices[0],
		High:       prices[1],
		Low:        prices[2],
		Close:      prices[3],
		Volume:     volume,
		TradeCount: 1,
		Bardate:    date,
		Bartime:    ftime,
		Date:       date,
		Time:       ftime,
	}, nil
}
