// Package timestamp provides standardized Unix timestamp handling.
//
// The canonical wire format is int64 nanoseconds since the Unix epoch (UTC),
// carried as a decimal string in record timestamp fields. A value of 0 means
// "not set"; callers stamp the current time in that case.
package timestamp

import (
	"strconv"
	"time"
)

// Now returns the current time as Unix nanoseconds.
func Now() int64 {
	return time.Now().UnixNano()
}

// FromTime converts a time.Time to Unix nanoseconds.
func FromTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

// ToTime converts Unix nanoseconds to time.Time.
// Returns the zero time if the timestamp is 0.
func ToTime(ns int64) time.Time {
	if ns == 0 {
		return time.Time{}
	}
	return time.Unix(0, ns)
}

// String renders a timestamp in its wire form, a decimal nanosecond count.
func String(ns int64) string {
	return strconv.FormatInt(ns, 10)
}

// Format converts Unix nanoseconds to an RFC3339 string for display.
// Returns an empty string if the timestamp is 0.
func Format(ns int64) string {
	if ns == 0 {
		return ""
	}
	return time.Unix(0, ns).UTC().Format(time.RFC3339Nano)
}

// Parse converts various timestamp representations to Unix nanoseconds.
// Supports:
//   - int64/int/int32/float64 epoch counts; the magnitude decides the unit
//     (>=1e17 nanoseconds, >=1e14 microseconds, >=1e11 milliseconds,
//     otherwise seconds)
//   - string (RFC3339 or a decimal epoch count with the same magnitude rule)
//   - time.Time
//
// Returns 0 for nil, zero values, or anything unparseable.
func Parse(input any) int64 {
	if input == nil {
		return 0
	}

	switch v := input.(type) {
	case int64:
		return fromEpoch(v)

	case int:
		return fromEpoch(int64(v))

	case int32:
		return fromEpoch(int64(v))

	case float64:
		return fromEpoch(int64(v))

	case string:
		if v == "" {
			return 0
		}
		if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
			return FromTime(t)
		}
		if t, err := time.Parse(time.RFC3339, v); err == nil {
			return FromTime(t)
		}
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return fromEpoch(n)
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return fromEpoch(int64(f))
		}
		return 0

	case time.Time:
		return FromTime(v)

	case *time.Time:
		if v == nil {
			return 0
		}
		return FromTime(*v)

	default:
		return 0
	}
}

// fromEpoch normalizes an epoch count of unknown unit to nanoseconds.
func fromEpoch(v int64) int64 {
	switch {
	case v <= 0:
		return 0
	case v >= 1e17: // nanoseconds
		return v
	case v >= 1e14: // microseconds
		return v * int64(time.Microsecond)
	case v >= 1e11: // milliseconds
		return v * int64(time.Millisecond)
	default: // seconds
		return v * int64(time.Second)
	}
}

// DateParts returns the zero-padded UTC year, month and day of a timestamp,
// used for date-partitioned directory layouts. The current time is used
// when the timestamp is 0.
func DateParts(ns int64) (year, month, day string) {
	t := time.Unix(0, ns).UTC()
	if ns == 0 {
		t = time.Now().UTC()
	}
	y, m, d := t.Date()
	return strconv.Itoa(y), pad2(int(m)), pad2(d)
}

func pad2(v int) string {
	if v < 10 {
		return "0" + strconv.Itoa(v)
	}
	return strconv.Itoa(v)
}
