package tns

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseRA parses a right ascension into decimal degrees. Plain
// numbers are taken as degrees and wrapped into [0, 360); sexagesimal
// strings are taken as hour angles. Non-finite values are rejected
// outright.
func ParseRA(raw string) (float64, error) {
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		if !isFinite(f) {
			return 0, fmt.Errorf("right ascension %q is not finite", raw)
		}
		return wrapDegrees(f), nil
	}
	hours, err := parseSexagesimal(raw)
	if err != nil {
		return 0, fmt.Errorf("right ascension %q does not parse: %w", raw, err)
	}
	return wrapDegrees(hours * 15), nil
}

// ParseDec parses a declination into decimal degrees. Values outside
// [-90, 90] are rejected rather than wrapped.
func ParseDec(raw string) (float64, error) {
	deg, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		deg, err = parseSexagesimal(raw)
		if err != nil {
			return 0, fmt.Errorf("declination %q does not parse: %w", raw, err)
		}
	}
	if !isFinite(deg) {
		return 0, fmt.Errorf("declination %q is not finite", raw)
	}
	if deg < -90 || deg > 90 {
		return 0, fmt.Errorf("declination %v is outside [-90, 90]", deg)
	}
	return deg, nil
}

// parseSexagesimal parses "hh:mm:ss.s" style values, with colons or
// spaces as separators and an optional leading sign.
func parseSexagesimal(raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	sign := 1.0
	if strings.HasPrefix(s, "-") {
		sign = -1
		s = s[1:]
	} else if strings.HasPrefix(s, "+") {
		s = s[1:]
	}
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == ':' || r == ' ' })
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("expected 2 or 3 sexagesimal components, got %d", len(parts))
	}
	var value, scale float64
	scale = 1
	for _, part := range parts {
		f, err := strconv.ParseFloat(part, 64)
		if err != nil {
			return 0, fmt.Errorf("component %q is not numeric", part)
		}
		if !isFinite(f) {
			return 0, fmt.Errorf("component %q is not finite", part)
		}
		value += f / scale
		scale *= 60
	}
	return sign * value, nil
}

func wrapDegrees(deg float64) float64 {
	wrapped := math.Mod(deg, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
