package types

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

var ErrInvalidInterval = errors.New("invalid interval")

type IntervalType int

const (
	CustomTicks IntervalType = iota
	CustomTime
	Minute
	FiveMinutes
	FifteenMinutes
	ThirtyMinutes
	Hour
	Day
)

// standard intervals in ascending length; SecondsInterval relies on the order.
var standardIntervals = []struct {
	typ     IntervalType
	seconds int
	name    string
}{
	{Minute, 60, "1m"},
	{FiveMinutes, 5 * 60, "5m"},
	{FifteenMinutes, 15 * 60, "15m"},
	{ThirtyMinutes, 30 * 60, "30m"},
	{Hour, 60 * 60, "1h"},
	{Day, 24 * 60 * 60, "1d"},
}

// Interval selects a bar window. Length is seconds for time based intervals
// and a tick count for CustomTicks.
type Interval struct {
	Type   IntervalType `json:"type"`
	Length int          `json:"length"`
}

var (
	OneMinute       = StandardInterval(Minute)
	FiveMinute      = StandardInterval(FiveMinutes)
	FifteenMinute   = StandardInterval(FifteenMinutes)
	ThirtyMinute    = StandardInterval(ThirtyMinutes)
	OneHour         = StandardInterval(Hour)
	OneDay          = StandardInterval(Day)
	DefaultInterval = FiveMinute
)

// ConvertInterval maps the short chart tags to intervals.
var ConvertInterval = map[string]Interval{
	"1":  OneMinute,
	"5":  FiveMinute,
	"15": FifteenMinute,
	"30": ThirtyMinute,
	"60": OneHour,
	"D":  OneDay,
}

// StandardInterval returns the interval for a standard tag. Custom tags have
// no implied length and yield an invalid interval.
func StandardInterval(t IntervalType) Interval {
	for _, s := range standardIntervals {
		if s.typ == t {
			return Interval{Type: t, Length: s.seconds}
		}
	}
	return Interval{Type: t}
}

// SecondsInterval normalizes a length in seconds, mapping standard lengths to
// their tag so every encoding of the same window compares equal.
func SecondsInterval(seconds int) Interval {
	for _, s := range standardIntervals {
		if s.seconds == seconds {
			return Interval{Type: s.typ, Length: seconds}
		}
	}
	return Interval{Type: CustomTime, Length: seconds}
}

func DurationInterval(d time.Duration) Interval {
	return SecondsInterval(int(d / time.Second))
}

func TickInterval(count int) Interval {
	return Interval{Type: CustomTicks, Length: count}
}

func (i Interval) IsTickBased() bool {
	return i.Type == CustomTicks
}

func (i Interval) IsValid() bool {
	return i.Length > 0
}

// Seconds is the window length for time intervals and zero for tick intervals.
func (i Interval) Seconds() int {
	if i.IsTickBased() {
		return 0
	}
	return i.Length
}

func (i Interval) Duration() time.Duration {
	return time.Duration(i.Seconds()) * time.Second
}

// Code is the integer used by the bar text format: seconds, or -count for
// tick intervals.
func (i Interval) Code() int {
	if i.IsTickBased() {
		return -i.Length
	}
	return i.Length
}

func IntervalFromCode(code int) (Interval, error) {
	switch {
	case code > 0:
		return SecondsInterval(code), nil
	case code < 0:
		return TickInterval(-code), nil
	default:
		return Interval{}, fmt.Errorf("code %d: %w", code, ErrInvalidInterval)
	}
}

func (i Interval) String() string {
	if i.IsTickBased() {
		return strconv.Itoa(i.Length) + "t"
	}
	for _, s := range standardIntervals {
		if s.typ == i.Type {
			return s.name
		}
	}
	return strconv.Itoa(i.Length) + "s"
}

// ParseInterval accepts chart tags ("5", "D"), tick counts ("100t"), seconds
// ("90s") and Go durations ("5m", "1h30m").
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if i, ok := ConvertInterval[s]; ok {
		return i, nil
	}
	if n, ok := strings.CutSuffix(s, "t"); ok {
		count, err := strconv.Atoi(n)
		if err != nil || count <= 0 {
			return Interval{}, fmt.Errorf("%q: %w", s, ErrInvalidInterval)
		}
		return TickInterval(count), nil
	}
	if s == "1d" {
		return OneDay, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil || d < time.Second {
		return Interval{}, fmt.Errorf("%q: %w", s, ErrInvalidInterval)
	}
	return DurationInterval(d), nil
}
