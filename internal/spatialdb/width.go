package spatialdb

import (
	"strconv"
	"strings"
)

// ParseWidth converts a raw width tag value into meters. meters is -1 when
// the numeric portion could not be parsed at all (no digits consumed) or
// when the unit suffix is not recognized.
// invalid is true when the string used a comma decimal separator, or when
// the unit suffix could not be recognized, or when no digits were
// found — flagging all three failure modes rather than only the comma
// case.
//
// Accepted suffixes: "m" (identity), "km" (x1000), "mi" (x1609.344),
// "nmi" (x1852), "'" (feet, x12x0.0254), `"` (inches, x0.0254), and the
// combined FT'IN" form. A bare number with no suffix is accepted as
// meters.
func ParseWidth(raw string) (meters float64, invalid bool) {
	if raw == "" {
		return 0, false
	}
	s := raw
	if strings.Contains(s, ",") {
		s = strings.Replace(s, ",", ".", 1)
		invalid = true
	}

	numEnd := 0
	for numEnd < len(s) && isNumberByte(s, numEnd) {
		numEnd++
	}
	if numEnd == 0 {
		return -1, true
	}
	value, err := strconv.ParseFloat(s[:numEnd], 64)
	if err != nil {
		return -1, true
	}

	rest := strings.TrimSpace(s[numEnd:])
	if rest == "" {
		return value, invalid
	}

	switch strings.ToLower(rest) {
	case "m":
		return value, invalid
	case "km":
		return value * 1000, invalid
	case "mi":
		return value * 1609.344, invalid
	case "nmi":
		return value * 1852, invalid
	}
	switch rest {
	case "'":
		return value * 12.0 * 0.0254, invalid
	case `"`:
		return value * 0.0254, invalid
	}
	if strings.HasPrefix(rest, "'") {
		inchPart := rest[1:]
		if strings.HasSuffix(inchPart, `"`) {
			inchStr := strings.TrimSuffix(inchPart, `"`)
			inchEnd := 0
			for inchEnd < len(inchStr) && isNumberByte(inchStr, inchEnd) {
				inchEnd++
			}
			if inchEnd == len(inchStr) && inchEnd > 0 {
				inch, err := strconv.ParseFloat(inchStr, 64)
				if err == nil {
					return (value*12 + inch) * 0.0254, invalid
				}
			}
		}
	}
	return -1, true
}

// FormatWidth renders a parsed width in meters as the canonical
// ways.width string: rounded to one decimal place, or empty when meters
// is negative (ParseWidth's -1 for an unparsable number or an unrecognized
// suffix, or a negative parsed value).
func FormatWidth(meters float64) string {
	if meters < 0 {
		return ""
	}
	return strconv.FormatFloat(meters, 'f', 1, 64)
}

func isNumberByte(s string, i int) bool {
	c := s[i]
	if c >= '0' && c <= '9' {
		return true
	}
	if c == '.' || c == '-' || c == '+' {
		return true
	}
	return false
}
