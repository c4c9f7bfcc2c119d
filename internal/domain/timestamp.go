package domain

import (
	"strings"
	"time"
)

// TimestampLayout is the canonical UTC representation written by this
// service. Fixed width keeps lexical and chronological order aligned.
const TimestampLayout = "2006-01-02T15:04:05.000000Z"

// FormatTimestamp renders t in the canonical layout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
}

var naiveLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

// ParseTimestamp reads an ISO-8601 timestamp. A trailing Z or explicit
// offset is honored; no offset means UTC. The result is always UTC.
func ParseTimestamp(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	if strings.HasSuffix(s, "z") {
		s = s[:len(s)-1] + "Z"
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// CanonicalTimestamp rewrites s in the canonical layout, or returns s
// unchanged when it cannot be parsed.
func CanonicalTimestamp(s string) string {
	if t, ok := ParseTimestamp(s); ok {
		return FormatTimestamp(t)
	}
	return s
}
