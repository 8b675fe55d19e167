package overview

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	parenRe              = regexp.MustCompile(`\s*\([^)]*\)$`)
	threeDigitTimezoneRe = regexp.MustCompile(`\s([+-])(\d{3})\s*$`)
	yearRegex            = regexp.MustCompile(`\b(19[7-9]\d|20[0-9]\d)\b`)
	monthRegex           = regexp.MustCompile(`\b(jan|january|feb|february|mar|march|apr|april|may|jun|june|jul|july|aug|august|sep|sept|september|oct|october|nov|november|dec|december)\b`)
	dayRegex             = regexp.MustCompile(`\b([1-9]|[12]\d|3[01])\b`)
	timeRegex            = regexp.MustCompile(`\b(\d{1,2}):(\d{1,2})(?::(\d{1,2}))?\b`)
	twoDigitYearRegex    = regexp.MustCompile(`\b([0-9]\d)\b`)
	numericRegex         = regexp.MustCompile(`\b(\d{1,4})[\/\-\.](\d{1,2})[\/\-\.](\d{1,4})\b`)
)

// DateLayouts lists the date formats observed in decades of Usenet overview
// data, tried in order. Keep the broken ones: they match real articles.
var DateLayouts = []string{
	// Just date
	"2006/01/02",

	// Standard Go time formats
	time.RFC1123Z,
	time.RFC1123,
	time.RFC822Z,
	time.RFC822,
	time.RFC850,

	// ISO 8601 variants
	"2006-01-02T15:04:05.000-07:00",
	"2006-01-02T15:04:05-07:00",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02T15:04:05Z",
	"2006-01-02 15:04:05 -0700",
	"2006-01-02 15:04:05 MST",
	"2006-01-02 15:04:05",

	// US/European date formats
	"01/02/2006 15:04:05 -0700",
	"01/02/2006 15:04:05 MST",
	"01/02/2006 15:04:05",
	"02/01/2006 15:04:05 -0700",
	"02/01/2006 15:04:05 MST",
	"02/01/2006 15:04:05",
	"01/02/06 15:04:05 MST",
	"01/02/06 15:04:05",
	"02.01.2006 15:04:05 MST",
	"02.01.2006 15:04:05",
	// RFC variants
	"Monday, 02-Jan-2006 15:04:05 MST",
	"Monday, 2-Jan-2006 15:04:05 MST",
	"Monday, 02-Jan-06 15:04:05 MST",
	"Monday, 2-Jan-06 15:04:05 MST",
	"Monday, _2-Jan-06 15:04:05 MST",
	"Mon, _2-Jan-2006 15:04:05 -0700",
	"Mon, _2-Jan-06 15:04:05 MST",
	"Mon, 02-Jan-2006 15:04:05 MST",
	"Mon, 2-Jan-2006 15:04:05 MST",
	"Mon, 02-Jan-06 15:04:05 MST",
	"Mon, 2-Jan-06 15:04:05 MST",

	// Longest formats first
	"Monday, _2 January 2006 15:04:05 -0700 (MST)",
	"Monday, _2 January 06 15:04:05 -0700 (MST)",
	"Mon, _2 January 2006 15:04:05 -0700 (MST)",
	"Mon, 02 Jan 2006 15:04:05 -0700 (MST)",
	"Monday, _2 Jan 2006 15:04:05 -0700 (MST)",
	"Mon, _2 Jan 2006 15:04:05 -0700 (MST)",
	"Monday, _2 Jan 06 15:04:05 -0700 (MST)",
	"Mon, 02 Jan 06 15:04:05 -0700 (MST)",
	"Mon, _2 Jan 06 15:04:05 -0700 (MST)",
	"January _2, 2006 15:04:05 -0700 (MST)",
	"January _2, 06 15:04:05 -0700 (MST)",
	"Jan _2, 2006 15:04:05 -0700 (MST)",
	"Jan _2, 06 15:04:05 -0700 (MST)",
	"_2 January 2006 15:04:05 -0700 (MST)",
	"_2 January 06 15:04:05 -0700 (MST)",
	"2 Jan 2006 15:04:05 -0700 (MST)",
	"_2 Jan 2006 15:04:05 -0700 (MST)",
	"_2 Jan 06 15:04:05 -0700 (MST)",
	"02 Jan 06 15:04:05 -0700 (MST)",
	"_2 Jan 2006 15:04 -0700 (MST)",
	"Mon, 02 Jan 06 15:04 -0700 (MST)",
	"Mon, _2 Jan 06 15:04 -0700 (MST)",
	"02 Jan 06 15:04 -0700 (MST)",

	"Monday, _2 January 2006 15:04:05 --0700",
	"Monday, _2 January 06 15:04:05 --0700",
	"Mon, _2 January 2006 15:04:05 --0700",
	"Monday, _2 Jan 2006 15:04:05 --0700",
	"Monday, _2 Jan 06 15:04:05 --0700",
	"Mon, _2 Jan 2006 15:04:05 --0700",
	"Mon, _2 Jan 06 15:04:05 --0700",
	"_2 January 2006 15:04:05 --0700",
	"_2 January 06 15:04:05 --0700",
	"_2 Jan 2006 15:04:05 --0700",
	"_2 Jan 06 15:04:05 --0700",
	"January _2, 2006 15:04:05 --0700",
	"January _2, 06 15:04:05 --0700",
	"Jan _2, 2006 15:04:05 --0700",
	"Jan _2, 06 15:04:05 --0700",

	"Mon, 2 Jan 2006 15:04:05 -0700 MST",
	"Mon, 02 Jan 2006 15:04:05 -0700 MST",
	"Mon, 2 Jan 06 15:04:05 -0700 MST",
	"Mon, 02 Jan 06 15:04:05 -0700 MST",
	"Mon, _2 Jan 2006 15:04:05 -0700 MST",
	"Mon, _2 Jan 06 15:04:05 -0700 MST",
	"Mon, 02 Jan 2006 15:04 -0700 MST",
	"Mon, 2 Jan 2006 15:04 -0700 MST",
	"Mon, _2 Jan 2006 15:04 -0700 MST",
	"Mon, _2 Jan 06 15:04 -0700 MST",
	"2 Jan 2006 15:04:05 -0700 MST",
	"_2 Jan 2006 15:04:05 -0700 MST",

	"Monday, _2 January 2006 15:04:05 -0700",
	"Monday, _2 January 06 15:04:05 -0700",
	"Mon, _2 January 2006 15:04:05 -0700",
	"Mon, _2 January 06 15:04:05 -0700",
	"Monday, _2 Jan 2006 15:04:05 -0700",
	"Monday, _2 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05 -0700",
	"Mon, _2 Jan 2006 15:04:05 -0700",
	"Mon, 2 Jan 06 15:04:05 -0700",
	"Mon, 02 Jan 06 15:04:05 -0700",
	"Mon, _2 Jan 06 15:04:05 -0700",
	"January _2, 2006 15:04:05 -0700",
	"January _2, 06 15:04:05 -0700",
	"Jan _2, 2006 15:04:05 -0700",
	"Jan _2, 06 15:04:05 -0700",
	"_2 January 2006 15:04:05 -0700",
	"_2 January 06 15:04:05 -0700",
	"_2 Jan 2006 15:04:05 -0700",
	"_2 Jan 06 15:04:05 -0700",
	"2 Jan 2006 15:04:05 -0700",
	"02 Jan 2006 15:04:05 -0700",
	"02 Jan 06 15:04:05 -0700",
	"2 Jan 06 15:04:05 -0700",
	"Mon, 2 Jan 2006 15:04 -0700",
	"Mon, _2 Jan 2006 15:04 -0700",
	"Mon, _2 January 2006 15:04 -0700",
	"02 Jan 06 15:04 -0700",
	"Mon, 02 Jan 06 15:04 -0700",
	"Mon, _2 Jan 06 15:04 -0700",

	"Monday, _2 January 2006 15:04:05 MST",
	"Monday, _2 January 06 15:04:05 MST",
	"Mon, _2 January 2006 15:04:05 MST",
	"Mon, _2 January 06 15:04:05 MST",
	"Monday, _2 Jan 2006 15:04:05 MST",
	"Monday, _2 Jan 06 15:04:05 MST",
	"Mon, 2 Jan 2006 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04:05 MST",
	"Mon, _2 Jan 2006 15:04:05 MST",
	"Mon, 2 Jan 06 15:04:05 MST",
	"Mon, 02 Jan 06 15:04:05 MST",
	"Mon, _2 Jan 06 15:04:05 MST",
	"January _2, 2006 15:04:05 MST",
	"January _2, 06 15:04:05 MST",
	"Jan _2, 2006 15:04:05 MST",
	"Jan _2, 06 15:04:05 MST",
	"_2 January 2006 15:04:05 MST",
	"_2 January 06 15:04:05 MST",
	"_2 Jan 2006 15:04:05 MST",
	"_2 Jan 06 15:04:05 MST",
	"2 Jan 2006 15:04:05 MST",
	"02 Jan 2006 15:04:05 MST",
	"02 Jan 06 15:04:05 MST",
	"2 Jan 06 15:04:05 MST",
	"Mon, 02 Jan 2006 15:04 MST",
	"Mon, 02 Jan 06 15:04 MST",
	"Mon, _2 Jan 2006 15:04 MST",
	"Mon, _2 Jan 06 15:04 MST",
	"_2 January 2006 15:04 MST",
	"_2 Jan 2006 15:04 MST",

	"Mon, 02 Jan 2006 15:04:05 (MST)",
	"Mon, 02 Jan 06 15:04:05 (MST)",
	"Mon, _2 Jan 2006 15:04:05 (MST)",
	"Mon, _2 Jan 06 15:04:05 (MST)",
	"Mon, 02 Jan 2006 15:04 (MST)",
	"Mon, 02 Jan 06 15:04 (MST)",
	"Mon, _2 Jan 2006 15:04 (MST)",
	"Mon, _2 Jan 06 15:04 (MST)",

	"Monday, _2 January 2006 15:04:05",
	"Monday, _2 January 06 15:04:05",
	"Mon, _2 January 2006 15:04:05",
	"Mon, _2 January 06 15:04:05",
	"Monday, _2 Jan 2006 15:04:05",
	"Monday, _2 Jan 06 15:04:05",
	"Mon, 02 Jan 2006 15:04:05",
	"Mon, 2 Jan 2006 15:04:05",
	"Mon, _2 Jan 2006 15:04:05",
	"Mon, 02 Jan 06 15:04:05",
	"Mon, 2 Jan 06 15:04:05",
	"Mon, _2 Jan 06 15:04:05",
	"January _2, 2006 15:04:05",
	"January _2, 06 15:04:05",
	"Jan _2, 2006 15:04:05",
	"Jan _2, 06 15:04:05",
	"_2 January 2006 15:04:05",
	"_2 January 06 15:04:05",
	"_2 Jan 2006 15:04:05",
	"_2 Jan 06 15:04:05",
	"2 Jan 2006 15:04:05",
	"02 Jan 2006 15:04:05",
	"02 Jan 06 15:04:05",
	"2 Jan 06 15:04:05",

	"Monday, _2 January 2006 15:04",
	"Monday, _2 January 06 15:04",
	"Mon, _2 January 2006 15:04",
	"Mon, _2 January 06 15:04",
	"Monday, _2 Jan 2006 15:04",
	"Monday, _2 Jan 06 15:04",
	"Mon, 02 Jan 2006 15:04",
	"Mon, 2 Jan 2006 15:04",
	"Mon, _2 Jan 2006 15:04",
	"Mon, 02 Jan 06 15:04",
	"Mon, 2 Jan 06 15:04",
	"Mon, _2 Jan 06 15:04",
	"January _2, 2006 15:04",
	"January _2, 06 15:04",
	"Jan _2, 2006 15:04",
	"Jan _2, 06 15:04",
	"_2 January 2006 15:04",
	"_2 January 06 15:04",
	"_2 Jan 2006 15:04",
	"_2 Jan 06 15:04",
	"02 Jan 06 15:04",

	"Monday, _2 January 2006",
	"Monday, _2 January 06",
	"Mon, _2 January 2006",
	"Mon, _2 January 06",
	"Monday, _2 Jan 2006",
	"Monday, _2 Jan 06",
	"Mon, 2 Jan 2006",
	"Mon, _2 Jan 2006",
	"Mon, 2 Jan 06",
	"Mon, _2 Jan 06",
	"January _2, 2006",
	"January _2, 06",
	"Jan _2, 2006",
	"Jan _2, 06",
	"_2 January 2006",
	"_2 January 06",
	"_2 Jan 2006",
	"_2 Jan 06",
	"2 Jan 2006",
	"2 Jan 06",

	// Special formats with malformed time
	"Mon, 2 Jan 2006 15:4:05 -0700",
	"Mon, 2 Jan 2006 15:4:5 -0700",
	"Mon, _2 Jan 2006 15:4:05 -0700",
	"Mon, _2 Jan 2006 15:4:5 -0700",
	"Mon, _2 Jan 2006 15: 4:05 MST",
	"Mon, _2 Jan 2006 15:4:05 MST",
	"Mon, _2 Jan 2006 15:4:5 MST",
	"Mon, _2 Jan 06 15:4:05 MST",
	"Mon, _2 Jan 06 15:4:5 MST",
	"Mon, _2 Jan 2006 15:4:05",
	"Mon, _2 Jan 2006 15:4:5",
	"Mon, _2 Jan 06 15:4:05",
	"Mon, _2 Jan 06 15:4:5",
	"2 Jan 2006 15:4:05 -0700",
	"2 Jan 2006 15:4:5 -0700",
	"_2 Jan 2006 15:4:5",
	"_2 Jan 06 15:4:05 MST",
	"_2 Jan 06 15:4:5 MST",

	// Weird date formats
	"Mon, _2 Jan 2006 15:04:05 UNDEFINED",
	"Mon, _2 Jan 06 15:04:05 UNDEFINED",
	"Mon, _2 Jan 2006 15:04:05 LOCAL",
	"Mon, _2 Jan 06 15:04:05 LOCAL",
	"January _2, 2006 15:04:05 PM MST",
	"Jan _2, 2006 15:04:05 PM MST",
	"Monday,_2 Jan 2006 15:04:05 PM MST",
	"Mon _2 Jan 2006 15:04:05 PM MST",

	// Timezone variations
	"Mon,_2 Jan 2006 15:04:05 MST -0700",
	"Mon, _2 January 2006 15:04:05 -0700",
	"Monday, _2 January 2006 15:04:05 MST",
	"Mon, Jan _2 2006 15:04:05 MST-0700",
	"Mon, _2 Jan 2006 15 04 05 MST -0700",
	"Mon, _2 Jan 2006 15 04 05 -0700",
	"_2-Jan-2006 15:04:05 MST -0700",
	"_2-Jan-2006 15:04:05 -0700",
	"_2-Jan-2006 15:04:05 MST",
	"_2 Jan 2006 15:04:05 -0700",

	// No comma variations
	"Mon,02 Jan 2006 15:04:05 -0700",
	"Mon ,02 Jan 2006 15:04:05 -0700",
	"Mon, 02Jan2006 15:04:05 -0700",
	"Mon, 02 Jan2006 15:04:05 -0700",
	"Mon,_2 Jan 2006 15:04:05-0700",
	"Mon,_2 Jan 2006 15:04:05 MST",
	"Mon,_2 Jan 06 15:04:05 -0700",
	"Mon,_2 Jan 06 15:04:05 MST",
	"Mon,_2 Jan 2006 15:04:05",
	"Mon,28 Sep 94 16:11:41 GMT",
	"Fri,28 Sep 94 16:11:41 GMT",

	// Special separators and formats
	"Mon, 02 Jan 2006  15:04:05 -0700",
	"Mon, 02 Jan 2006 15:04:05  -0700",
	"Mon, 02 Jan 2006 15:04:05+0000",
	"Mon, 02 Jan 2006 15:04:05 +0000",
	"Mon, 02 Jan 2006 15:04:05 GMT",
	"Mon, 02 Jan 2006 15:04:05 UTC",
	"Mon, 02 Jan 2006 15:04:05 UT",
	"Mon, 02 Jan 2006 15:04:05 Z",
	"Mon _2 Jan 2006 15:04:05 -0700",
	"Fri 31 Aug 2012 22:45:37 -0400",
	"Wen, 17 May 2006 10:11:41 -0100",
	"Mo, _2 Jan 2006 15:04:05 -0700",
	"Fr, 20 Feb 2004 16:11:20 +0100",

	// Date without weekday variations
	"02-Jan-2006 15:04:05 -0700",
	"02-Jan-2006 15:04:05 MST",
	"02-Jan-2006 15:04:05",
	"2-Jan-2006 15:04:05 -0700",
	"2-Jan-2006 15:04:05 MST",
	"2-Jan-2006 15:04:05",
	"_2Jan 2006 15:04:05 -0700",
	"29Aug 2006 21:11:48 -0600",

	// Very short formats
	"Mon Jan _2 15:04:05 2006",
	"Fri Apr 8 00:49:21 1983",
	", _2 Jan 2006 15:04:5 -0700",
	", _2 Jan 2006 15:4:5 -0700",
	"_2 Jan. 2006 15:04:05",
	"_2-Jan-06 15:04 MST",
	"18-Feb-90 20:52 CST",

	// European timezone variants (MESZ, MEZ, CET, CEST, etc.)
	"Mon, _2 Jan 2006 15:04:05 MESZ",
	"Mon, _2 Jan 06 15:04:05 MESZ",
	"Mon, 2 Jan 2006 15:04:05 MESZ",
	"Mon, 2 Jan 06 15:04:05 MESZ",
	"Mon, 02 Jan 2006 15:04:05 MESZ",
	"Mon, 02 Jan 06 15:04:05 MESZ",
	"Mon, _2 Jan 2006 15:04:05 MEZ",
	"Mon, _2 Jan 06 15:04:05 MEZ",
	"Mon, _2 Jan 2006 15:04:05 CET",
	"Mon, _2 Jan 06 15:04:05 CET",
	"Mon, _2 Jan 2006 15:04:05 CEST",
	"Mon, _2 Jan 06 15:04:05 CEST",

	// Special prefix
	"Date: Tue, _2 Jun 2006 15:04:05 MST",
	"Wes, 23 Jun 2010 11:24:30 -0500",

	// Malformed timezone formats from early 90s
	"_2 Jan 06 15:04:05 +-0700",
	"02 Jan 06 15:04:05 +-0700",
	"_2 Jan 2006 15:04:05 +-0700",
	"02 Jan 2006 15:04:05 +-0700",
	"Mon, _2 Jan 06 15:04:05 +-0700",
	"Mon, 02 Jan 06 15:04:05 +-0700",
	"Mon, _2 Jan 2006 15:04:05 +-0700",
	"Mon, 02 Jan 2006 15:04:05 +-0700",

	// 3-digit timezone formats (missing leading zero) - Go time patterns
	"_2 Jan 06 15:04:05 -700",
	"02 Jan 06 15:04:05 -700",
	"_2 Jan 2006 15:04:05 -700",
	"02 Jan 2006 15:04:05 -700",
	"Mon, _2 Jan 06 15:04:05 -700",
	"Mon, 02 Jan 06 15:04:05 -700",
	"Mon, _2 Jan 2006 15:04:05 -700",
	"Mon, 02 Jan 2006 15:04:05 -700",

	// Single-digit timezone and GMT variants with 2-digit years
	"Mon, _2 Jan 06 15:04:05 -7",
	"Mon, 02 Jan 06 15:04:05 -7",
	"Wed, 24 Nov 06 19:45:40 -1",
	"Fri, 3 Jan 06 12:00:00 GMT",
	"Mon, _2 Jan 06 15:04:05 GMT",
	"Tue, 02 Jan 06 15:04:05 GMT",

	// AM/PM formats with 2-digit years
	"_2 Jan 06 3:04:05 PM",
	"02 Jan 06 3:04:05 PM",
	"_2 January 06 3:04:05 PM",
	"02 January 06 3:04:05 PM",
	"Mon, _2 Jan 06 3:04:05 PM",
	"Mon, 02 Jan 06 3:04:05 PM",
}

// ParseDate parses an overview Date: value to time.Time, handling common
// NNTP quirks. Returns the zero time when nothing usable can be extracted;
// the raw string is still stored, only date_unix stays NULL.
func ParseDate(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}
	// Remove trailing parenthesized timezone, e.g., " (NZDT)"
	dateStr = parenRe.ReplaceAllString(dateStr, "")
	dateStr = strings.TrimSpace(dateStr)

	// Fix 3-digit timezone formats like +200 -> +0200
	if match := threeDigitTimezoneRe.FindStringSubmatch(dateStr); len(match) == 3 {
		sign := match[1]
		digits := match[2]
		normalizedTz := fmt.Sprintf("%s0%s", sign, digits)
		dateStr = threeDigitTimezoneRe.ReplaceAllString(dateStr, " "+normalizedTz)
	}

	for _, layout := range DateLayouts {
		t, err := time.Parse(layout, dateStr)
		if err == nil {
			return t
		}
	}

	// If standard parsing failed, try bruteforce extraction
	if t := bruteForceDateParse(dateStr); !t.IsZero() {
		return t
	}
	return time.Time{}
}

// bruteForceDateParse attempts to extract date components from malformed date
// strings that no layout matches.
func bruteForceDateParse(dateStr string) time.Time {
	if dateStr == "" {
		return time.Time{}
	}

	dateStr = strings.TrimSpace(dateStr)
	dateStr = strings.ReplaceAll(dateStr, "  ", " ")
	dateStr = strings.TrimPrefix(dateStr, "Date:")
	dateStr = strings.TrimSpace(dateStr)

	monthMap := map[string]time.Month{
		"jan": time.January, "january": time.January,
		"feb": time.February, "february": time.February,
		"mar": time.March, "march": time.March,
		"apr": time.April, "april": time.April,
		"may": time.May,
		"jun": time.June, "june": time.June,
		"jul": time.July, "july": time.July,
		"aug": time.August, "august": time.August,
		"sep": time.September, "sept": time.September, "september": time.September,
		"oct": time.October, "october": time.October,
		"nov": time.November, "november": time.November,
		"dec": time.December, "december": time.December,
	}

	var year, month, day int
	var hour, min, sec int = 12, 0, 0 // Default to noon if no time found

	if yearMatch := yearRegex.FindString(dateStr); yearMatch != "" {
		if y, err := strconv.Atoi(yearMatch); err == nil {
			year = y
		}
	}

	if monthMatch := monthRegex.FindString(strings.ToLower(dateStr)); monthMatch != "" {
		if m, exists := monthMap[monthMatch]; exists {
			month = int(m)
		}
	}

	dayMatches := dayRegex.FindAllString(dateStr, -1)
	for _, dayMatch := range dayMatches {
		if d, err := strconv.Atoi(dayMatch); err == nil && d >= 1 && d <= 31 {
			// Make sure this isn't the year or month we already found
			if d != year && d != month {
				day = d
				break
			}
		}
	}

	if timeMatch := timeRegex.FindStringSubmatch(dateStr); len(timeMatch) >= 3 {
		if h, err := strconv.Atoi(timeMatch[1]); err == nil && h >= 0 && h <= 23 {
			hour = h
		}
		if m, err := strconv.Atoi(timeMatch[2]); err == nil && m >= 0 && m <= 59 {
			min = m
		}
		if len(timeMatch) > 3 && timeMatch[3] != "" {
			if s, err := strconv.Atoi(timeMatch[3]); err == nil && s >= 0 && s <= 59 {
				sec = s
			}
		}
	}

	// No 4-digit year found: try 2-digit years and guess the century
	if year == 0 {
		allMatches := twoDigitYearRegex.FindAllString(dateStr, -1)

		// First pass: numbers >= 60 are clearly years from the 1960s-1990s
		for _, match := range allMatches {
			if y, err := strconv.Atoi(match); err == nil {
				if y >= 60 {
					if y >= 69 {
						year = 1900 + y
					} else {
						year = 2000 + y
					}
					break
				}
			}
		}

		// Second pass: 32-59 can only be 2000s years
		if year == 0 {
			for _, match := range allMatches {
				if y, err := strconv.Atoi(match); err == nil {
					if y >= 32 && y <= 59 {
						year = 2000 + y
						break
					}
				}
			}
		}

		// Third pass: ambiguous 00-31, skip values already claimed
		if year == 0 && len(allMatches) > 0 {
			for _, match := range allMatches {
				if y, err := strconv.Atoi(match); err == nil {
					if (y == day && day > 0) || (y == month && month > 0) {
						continue
					}
					if y <= 23 && strings.Contains(dateStr, fmt.Sprintf(":%02d", y)) {
						continue
					}
					if y <= 59 && (strings.Contains(dateStr, fmt.Sprintf(":%02d:", y)) || strings.Contains(dateStr, fmt.Sprintf(":%02d ", y))) {
						continue
					}
					if y >= 69 {
						year = 1900 + y
					} else {
						year = 2000 + y
					}
					break
				}
			}
		}
	}

	// Numeric date patterns like DD/MM/YY or MM/DD/YY or YYYY/MM/DD
	if year == 0 || month == 0 || day == 0 {
		if numMatch := numericRegex.FindStringSubmatch(dateStr); len(numMatch) == 4 {
			part1, _ := strconv.Atoi(numMatch[1])
			part2, _ := strconv.Atoi(numMatch[2])
			part3, _ := strconv.Atoi(numMatch[3])

			if part1 > 1900 { // YYYY/MM/DD
				year, month, day = part1, part2, part3
			} else if part3 > 1900 { // DD/MM/YYYY or MM/DD/YYYY
				year = part3
				if part1 > 12 {
					day, month = part1, part2
				} else if part2 > 12 {
					month, day = part1, part2
				} else {
					// Ambiguous, default to MM/DD format
					month, day = part1, part2
				}
			} else { // Two-digit year
				if part3 >= 69 {
					year = 1900 + part3
				} else {
					year = 2000 + part3
				}
				if part1 > 12 {
					day, month = part1, part2
				} else {
					month, day = part1, part2
				}
			}
		}
	}

	// Nothing date-like extracted at all: give up so the row keeps a NULL
	// date instead of a fabricated one.
	if year == 0 && month == 0 && day == 0 {
		return time.Time{}
	}

	// Final validation and fallbacks
	if year < 1970 || year > 2099 {
		year = 1990
	}
	if month < 1 || month > 12 {
		month = 1
	}
	if day < 1 || day > 31 {
		day = 1
	}
	if month == 2 && day > 29 {
		day = 28
	} else if (month == 4 || month == 6 || month == 9 || month == 11) && day > 30 {
		day = 30
	}

	if year >= 1970 && month >= 1 && month <= 12 {
		parsedDate := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.UTC)

		// A parsed date more than 25 hours in the future is a parsing error
		now := time.Now().UTC()
		maxFutureTime := now.Add(25 * time.Hour)
		if parsedDate.After(maxFutureTime) {
			return time.Time{}
		}
		return parsedDate
	}

	return time.Time{}
}
