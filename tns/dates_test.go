package tns

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseObsDateJulianDate(t *testing.T) {
	ts, err := ParseObsDate("2440532.241")
	require.NoError(t, err)
	assert.Equal(t, 1969, ts.Year())
}

func TestParseObsDateModifiedJulianDate(t *testing.T) {
	ts, err := ParseObsDate("50000.0")
	require.NoError(t, err)
	assert.Equal(t, time.Date(1995, 10, 10, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseObsDateCalendar(t *testing.T) {
	ts, err := ParseObsDate("2023-08-23T08:26:14Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 8, 23, 8, 26, 14, 0, time.UTC), ts)

	ts, err = ParseObsDate("2023-08-23")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2023, 8, 23, 0, 0, 0, 0, time.UTC), ts)
}

func TestParseObsDateOutOfRangeNumeric(t *testing.T) {
	_, err := ParseObsDate("24453250.241")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JD")
	assert.Contains(t, err.Error(), "MJD")
}

func TestParseObsDateUnparseable(t *testing.T) {
	_, err := ParseObsDate("not a date")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not parse")
}
