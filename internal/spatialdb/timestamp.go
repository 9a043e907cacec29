package spatialdb

import "time"

// FormatTimestamp renders t as "YYYY-MM-DD HH:MM:SS", matching
// datastorage.hpp's get_timestamp: take the ISO-8601 representation,
// replace the 'T' separator at position 10 with a space, and drop the
// trailing 'Z'.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format("2006-01-02 15:04:05")
}
