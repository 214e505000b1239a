package coerce

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ============================================================================
// DATE-TIME COERCION
// ============================================================================

// iso8601 accepts YYYY[-]MM[-]DD[T]HH[:MM[:SS[.fff]]][Z|+-HH[:MM]].
// Groups: 1 year, 3 month, 5 day, 7 hour, 9 minute, 11 second, 12 fraction,
// 13 zone, 14 sign, 15 zone hours, 17 zone minutes.
var iso8601 = regexp.MustCompile(`(?i)(\d\d\d\d)(-)?(\d\d)(-)?(\d\d)(T)?(\d\d)(:)?(\d\d)?(:)?(\d\d)?([.,]\d+)?($|Z|([+-])(\d\d)(:)?(\d\d)?)`)

// fallbackLayouts are tried on the untouched input when the ISO pattern
// does not match. Zone-less layouts are read as UTC.
var fallbackLayouts = []string{
	"2006-01-02",
	"2006/01/02",
	"2006-01",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"January 2, 2006",
	"January 2 2006",
	"Jan 2, 2006",
	"Jan 2 2006",
	"2 Jan 2006",
	"2 January 2006",
	"Jan-2006",
	"January 2006",
	time.RFC1123,
	time.RFC1123Z,
	time.RFC850,
	time.RFC822,
	time.RFC822Z,
	time.ANSIC,
	time.UnixDate,
	"Mon Jan 02 2006 15:04:05 GMT-0700",
	"Mon Jan 02 2006",
}

// ToDateTime reads v as an instant in UTC.
//
// time.Time values pass through. Numbers are seconds since the epoch,
// kept to millisecond precision. Strings get "2021-01-01 10:00 UTC" style
// spacing folded into ISO shape and are matched against the broadened
// ISO-8601 pattern, then against a list of common layouts.
func ToDateTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), true
	case string:
		return parseDateString(t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return time.Time{}, false
		}
		return fromEpochSeconds(f)
	case nil, bool, *Map, []any:
		return time.Time{}, false
	}
	f := ToNumber(v)
	if math.IsNaN(f) {
		return time.Time{}, false
	}
	return fromEpochSeconds(f)
}

func fromEpochSeconds(sec float64) (time.Time, bool) {
	if math.IsNaN(sec) || math.IsInf(sec, 0) {
		return time.Time{}, false
	}
	ms := math.Trunc(sec * 1000)
	if math.Abs(ms) > 8.64e15 {
		return time.Time{}, false
	}
	return time.UnixMilli(int64(ms)).UTC(), true
}

func parseDateString(s string) (time.Time, bool) {
	normalized := strings.Replace(s, " ", "T", 1)
	normalized = strings.Replace(normalized, " ", "", 1)
	normalized = strings.Replace(normalized, "UTC", "Z", 1)

	if t, ok := parseISO8601(normalized); ok {
		return t, true
	}

	trimmed := strings.TrimSpace(s)
	for _, layout := range fallbackLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

func parseISO8601(s string) (time.Time, bool) {
	m := iso8601.FindStringSubmatch(s)
	if m == nil {
		return time.Time{}, false
	}
	year, _ := strconv.Atoi(m[1])
	month, _ := strconv.Atoi(m[3])
	day, _ := strconv.Atoi(m[5])
	hour, _ := strconv.Atoi(m[7])
	minute := atoiOr(m[9], 0)
	second := atoiOr(m[11], 0)

	var ms int
	if m[12] != "" {
		frac, err := strconv.ParseFloat("0."+m[12][1:], 64)
		if err == nil {
			ms = int(frac * 1000)
		}
	}

	// time.Date normalizes out-of-range fields the same way Date.UTC does
	t := time.Date(year, time.Month(month), day, hour, minute, second, ms*int(time.Millisecond), time.UTC)

	if m[13] != "" && m[14] != "" {
		offset := atoiOr(m[15], 0) * 60
		offset += atoiOr(m[17], 0)
		if m[14] == "-" {
			offset = -offset
		}
		t = t.Add(-time.Duration(offset) * time.Minute)
	}
	return t, true
}

func atoiOr(s string, def int) int {
	if s == "" {
		return def
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return def
	}
	return n
}
