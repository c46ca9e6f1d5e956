// Package textparse holds the small text-munging helpers the Claude-CLI
// scraping strategy needs: ANSI stripping, label-anchored percentage and
// reset-time extraction out of a terminal paint, and a waterfall of
// timestamp formats the CLI has been observed to print. Keeping these
// heuristics in one place means the inevitable "upstream changed the usage
// panel" fix touches a single file.
package textparse

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
)

// StripANSI removes cursor-movement, color, and OSC escape sequences from
// terminal output captured off a PTY.
func StripANSI(s string) string {
	return ansi.Strip(s)
}

// Normalize strips ANSI and collapses all whitespace, the form the PTY
// session manager scans for needles and the label extractors below operate
// on.
func Normalize(s string) string {
	return strings.Join(strings.Fields(StripANSI(s)), " ")
}

var percentPattern = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*%\s*(left|used|remaining)?`)

// ExtractLabeledPercent finds the first percentage figure appearing after
// label within text, within a bounded lookahead window, and returns it
// normalized to "used" semantics. Some CLI panels report "42% left" rather
// than "58% used" for the same quota; the trailing word after the percent
// sign decides which convention applies, and "left"/"remaining" readings are
// inverted before being returned.
func ExtractLabeledPercent(text, label string) (float64, bool) {
	idx := strings.Index(text, label)
	if idx < 0 {
		return 0, false
	}
	window := text[idx+len(label):]
	if len(window) > 200 {
		window = window[:200]
	}

	m := percentPattern.FindStringSubmatch(window)
	if m == nil {
		return 0, false
	}
	pct, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}

	switch strings.ToLower(m[2]) {
	case "left", "remaining":
		pct = 100 - pct
	}

	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}

var resetLinePattern = regexp.MustCompile(`(?i)resets?\s+(?:in\s+)?(?:on\s+|at\s+)?([^\n]+?)(?:\.|$)`)

// ExtractReset finds a label-anchored reset time within text and parses it
// relative to ref, used to fill in the calendar date when the source string
// carries only a time of day.
func ExtractReset(text string, ref time.Time) (time.Time, bool) {
	m := resetLinePattern.FindStringSubmatch(text)
	if m == nil {
		return time.Time{}, false
	}
	return ParseLooseTime(strings.TrimSpace(m[1]), ref)
}

// dateTimeFormats carry their own month/day (but not necessarily year); only
// the year is borrowed from ref.
var dateTimeFormats = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"Jan 2, 2006 3:04 PM",
	"Jan 2, 3:04 PM",
	"January 2, 3:04 PM",
	"Monday, January 2",
}

// timeOnlyFormats carry no date component at all; ref's full calendar date
// is borrowed.
var timeOnlyFormats = []string{
	"Monday",
	"3:04 PM",
	"3:04pm",
	"15:04",
}

// ParseLooseTime parses s as RFC 3339 first, then falls back to a waterfall
// of formats the Claude CLI has been observed to print. A layout missing its
// date or year borrows the corresponding field from ref and rolls forward a
// day if the result would otherwise be in the past, since a "resets at"
// reading always describes an upcoming instant.
func ParseLooseTime(s string, ref time.Time) (time.Time, bool) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, ".")
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}

	for _, layout := range dateTimeFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		if t.Year() == 0 {
			t = time.Date(ref.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, ref.Location())
			if t.Before(ref) {
				t = t.AddDate(1, 0, 0)
			}
		}
		return t, true
	}

	for _, layout := range timeOnlyFormats {
		t, err := time.Parse(layout, s)
		if err != nil {
			continue
		}
		t = time.Date(ref.Year(), ref.Month(), ref.Day(), t.Hour(), t.Minute(), t.Second(), 0, ref.Location())
		if t.Before(ref) {
			t = t.AddDate(0, 0, 1)
		}
		return t, true
	}

	return time.Time{}, false
}
