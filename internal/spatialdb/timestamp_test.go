package spatialdb

import (
	"testing"
	"time"
)

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2023, 4, 7, 13, 5, 9, 0, time.UTC)
	got := FormatTimestamp(ts)
	want := "2023-04-07 13:05:09"
	if got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}

func TestFormatTimestampConvertsToUTC(t *testing.T) {
	loc := time.FixedZone("CET", 3600)
	ts := time.Date(2023, 4, 7, 14, 5, 9, 0, loc)
	got := FormatTimestamp(ts)
	want := "2023-04-07 13:05:09"
	if got != want {
		t.Errorf("FormatTimestamp() = %q, want %q", got, want)
	}
}
