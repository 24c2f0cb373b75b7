package refsync

import "time"

// Range is a named historical period requested from the provider's chart
// endpoint. RangeZero is internal: it means skip the fetch entirely and is
// never sent over the wire.
type Range string

const (
	RangeZero        Range = "zero"
	RangeFiveDays    Range = "5d"
	RangeOneMonth    Range = "1m"
	RangeThreeMonths Range = "3m"
	RangeOneYear     Range = "1y"
	RangeTwoYears    Range = "2y"
	RangeFiveYears   Range = "5y"
	RangeMax         Range = "max"
)

// SelectRange maps the most recent stored price date for a symbol to the
// range to request next. A symbol with no stored history gets full history.
//
// delta is computed as storedDate - today in whole days. With stored dates
// in the past delta is never positive, so every symbol that already has
// history lands in the zero bucket and only the initial load fetches bars.
// TODO: confirm the intended delta sign with the data provider team before
// changing it; the tiered buckets only activate for future-dated rows.
func SelectRange(lastDate *time.Time, now time.Time) Range {
	if lastDate == nil {
		return RangeMax
	}

	delta := dayNumber(*lastDate) - dayNumber(now)

	switch {
	case delta <= 0:
		return RangeZero
	case delta <= 5:
		return RangeFiveDays
	case delta <= 30:
		return RangeOneMonth
	case delta <= 180:
		return RangeThreeMonths
	case delta <= 365:
		return RangeOneYear
	case delta <= 730:
		return RangeTwoYears
	case delta <= 1825:
		return RangeFiveYears
	default:
		return RangeMax
	}
}

// dayNumber counts whole days since the Unix epoch, ignoring time of day.
func dayNumber(t time.Time) int {
	return int(t.Unix() / 86400)
}
