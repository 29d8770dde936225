package types

import (
	"time"
)

// Dates are carried as YYYYMMDD and times of day as HHMMSSmmm integers, the
// layout used by the tick archives. Stamp packs both into one sortable key.

const stampDateScale = 1_000_000_000

// Stamp combines a YYYYMMDD date and HHMMSSmmm time into a single ordered key.
func Stamp(date, ftime int) int64 {
	return int64(date)*stampDateScale + int64(ftime)
}

// SplitStamp is the inverse of Stamp.
func SplitStamp(stamp int64) (date, ftime int) {
	return int(stamp / stampDateScale), int(stamp % stampDateScale)
}

// FTimeToSeconds converts HHMMSSmmm to whole seconds since midnight.
func FTimeToSeconds(ftime int) int {
	hms := ftime / 1000
	return (hms/10000)*3600 + (hms/100%100)*60 + hms%100
}

// SecondsToFTime converts seconds since midnight to HHMMSSmmm.
func SecondsToFTime(seconds int) int {
	h := seconds / 3600
	m := seconds / 60 % 60
	s := seconds % 60
	return (h*10000 + m*100 + s) * 1000
}

// ToTime converts a date/time pair to a UTC time.Time.
func ToTime(date, ftime int) time.Time {
	ms := ftime % 1000
	hms := ftime / 1000
	return time.Date(date/10000, time.Month(date/100%100), date%100,
		hms/10000, hms/100%100, hms%100, ms*int(time.Millisecond), time.UTC)
}

// FromTime splits t (in its own location) into YYYYMMDD and HHMMSSmmm.
func FromTime(t time.Time) (date, ftime int) {
	date = t.Year()*10000 + int(t.Month())*100 + t.Day()
	ftime = (t.Hour()*10000+t.Minute()*100+t.Second())*1000 + t.Nanosecond()/int(time.Millisecond)
	return date, ftime
}
