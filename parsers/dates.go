package parsers

import (
	"regexp"
	"time"
)

// Notice headers spell dates like "Mon 16 Mar 20 22:01:09 UT"; newer
// feeds use RFC 3339. All are taken as UTC.
var noticeDateLayouts = []string{
	"Mon 02 Jan 06 15:04:05 UT",
	"Mon 2 Jan 06 15:04:05 UT",
	"Mon 02 Jan 2006 15:04:05 UT",
	"Mon 2 Jan 2006 15:04:05 UT",
	time.RFC3339,
	"2006-01-02T15:04:05.999Z",
	"2006-01-02 15:04:05",
}

// ParseNoticeDate parses a NOTICE_DATE style timestamp.
func ParseNoticeDate(raw string) (time.Time, bool) {
	for _, layout := range noticeDateLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}

var (
	obsDateRe = regexp.MustCompile(`\d{2}/\d{2}/\d{2}`)
	obsTimeRe = regexp.MustCompile(`\d{2}:\d{2}:\d{2}\.\d{2}`)
)

// ParseObsTimestamp combines OBS_DATE and OBS_TIME header values into
// one UTC timestamp. The date is buried in a "TJD; DOY; yy/mm/dd"
// triple and the time in a "SOD {hh:mm:ss.ss} UT" wrapper, so both are
// fished out by pattern.
func ParseObsTimestamp(rawDate, rawTime string) (time.Time, bool) {
	dm := obsDateRe.FindString(rawDate)
	tm := obsTimeRe.FindString(rawTime)
	if dm == "" || tm == "" {
		return time.Time{}, false
	}
	d, err := time.ParseInLocation("06/01/02", dm, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation("15:04:05.00", tm, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return time.Date(d.Year(), d.Month(), d.Day(),
		t.Hour(), t.Minute(), t.Second(), t.Nanosecond(), time.UTC), true
}
