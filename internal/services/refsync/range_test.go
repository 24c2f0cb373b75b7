package refsync

import (
	"testing"
	"time"
)

func TestSelectRangeNoStoredPrice(t *testing.T) {
	if got := SelectRange(nil, time.Now()); got != RangeMax {
		t.Errorf("SelectRange(nil) = %s, want %s", got, RangeMax)
	}
}

func TestSelectRangeBuckets(t *testing.T) {
	now := time.Date(2025, 9, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name      string
		deltaDays int
		want      Range
	}{
		{"stored today", 0, RangeZero},
		{"stored in the past", -30, RangeZero},
		{"stored far in the past", -2000, RangeZero},
		{"one day ahead", 1, RangeFiveDays},
		{"five days ahead", 5, RangeFiveDays},
		{"six days ahead", 6, RangeOneMonth},
		{"thirty days ahead", 30, RangeOneMonth},
		{"thirty-one days ahead", 31, RangeThreeMonths},
		{"one-eighty days ahead", 180, RangeThreeMonths},
		{"one-eighty-one days ahead", 181, RangeOneYear},
		{"one year ahead", 365, RangeOneYear},
		{"just over one year", 366, RangeTwoYears},
		{"two years ahead", 730, RangeTwoYears},
		{"just over two years", 731, RangeFiveYears},
		{"five years ahead", 1825, RangeFiveYears},
		{"beyond five years", 1826, RangeMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stored := now.AddDate(0, 0, tt.deltaDays)
			if got := SelectRange(&stored, now); got != tt.want {
				t.Errorf("SelectRange(%+d days) = %s, want %s", tt.deltaDays, got, tt.want)
			}
		})
	}
}

func TestSelectRangeIgnoresTimeOfDay(t *testing.T) {
	now := time.Date(2025, 9, 1, 23, 30, 0, 0, time.UTC)
	stored := time.Date(2025, 9, 2, 1, 0, 0, 0, time.UTC)

	// Next calendar day, even though under 24 hours away
	if got := SelectRange(&stored, now); got != RangeFiveDays {
		t.Errorf("SelectRange(next day) = %s, want %s", got, RangeFiveDays)
	}
}
