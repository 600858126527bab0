// Package tns converts canonical messages into the Transient Name
// Server's AT report schema, backed by a cached copy of the registry's
// controlled vocabularies.
package tns

import (
	"fmt"
	"strconv"
	"time"
)

// Modified Julian Date epoch, 1858-11-17 00:00 UTC.
var mjdEpoch = time.Date(1858, time.November, 17, 0, 0, 0, 0, time.UTC)

// Numeric observation dates are only accepted inside these windows.
// Anything else numeric is more likely a typo than a date in either
// system, so it is rejected instead of guessed at.
const (
	jdMin  = 2_400_000.0
	jdMax  = 2_600_000.0
	mjdMin = 1_000.0
	mjdMax = 150_000.0
)

var calendarLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseObsDate parses an observation date given as a Julian Date, a
// Modified Julian Date or a calendar date string. The result is UTC.
func ParseObsDate(raw string) (time.Time, error) {
	if f, err := strconv.ParseFloat(raw, 64); err == nil {
		switch {
		case f > jdMin && f < jdMax:
			return mjdToTime(f - 2_400_000.5), nil
		case f >= mjdMin && f <= mjdMax:
			return mjdToTime(f), nil
		default:
			return time.Time{}, fmt.Errorf(
				"numeric date %s is outside the accepted JD (2400000-2600000) and MJD (1000-150000) ranges", raw)
		}
	}
	for _, layout := range calendarLayouts {
		if ts, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return ts, nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q does not parse", raw)
}

func mjdToTime(mjd float64) time.Time {
	seconds := mjd * 86400
	return mjdEpoch.Add(time.Duration(seconds * float64(time.Second))).UTC()
}
