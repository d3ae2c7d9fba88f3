package monitor

import "time"

// Report timestamps and registry dates travel as strings. The fixed-width
// layouts below are load-bearing: the store sorts and range-compares the
// raw strings, which only works because lexical order equals chronological
// order for zero-padded fields.
const (
	TimestampLayout = "2006-01-02 15:04:05"
	DateLayout      = "2006-01-02"
)

// ParseTimestamp parses a "YYYY-MM-DD HH:MM:SS" report timestamp in local
// time. The second result is false when the string does not conform.
func ParseTimestamp(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(TimestampLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseDate parses a "YYYY-MM-DD" date in local time. The second result is
// false when the string does not conform; callers that tolerate bad dates
// (the archive-overdue rule) simply skip instead of failing.
func ParseDate(s string) (time.Time, bool) {
	t, err := time.ParseInLocation(DateLayout, s, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// FormatTimestamp renders t in the report timestamp layout.
func FormatTimestamp(t time.Time) string { return t.Format(TimestampLayout) }

// FormatDate renders t in the date-only layout.
func FormatDate(t time.Time) string { return t.Format(DateLayout) }
