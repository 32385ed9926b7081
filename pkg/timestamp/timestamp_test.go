package timestamp

import (
	"testing"
	"time"
)

// Test constants
var (
	testTime       = time.Date(2023, 1, 15, 12, 30, 45, 123000000, time.UTC)
	testTimeNs     = int64(1673785845123000000)
	testTimeString = "2023-01-15T12:30:45.123Z"
)

func TestNow(t *testing.T) {
	before := time.Now().UnixNano()
	ts := Now()
	after := time.Now().UnixNano()

	if ts < before || ts > after {
		t.Errorf("Now() = %d, expected between %d and %d", ts, before, after)
	}
}

func TestFromTime(t *testing.T) {
	tests := []struct {
		name     string
		input    time.Time
		expected int64
	}{
		{
			name:     "normal time",
			input:    testTime,
			expected: testTimeNs,
		},
		{
			name:     "zero time",
			input:    time.Time{},
			expected: 0,
		},
		{
			name:     "unix epoch",
			input:    time.Unix(0, 0),
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := FromTime(tt.input)
			if result != tt.expected {
				t.Errorf("FromTime(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestToTime(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected time.Time
	}{
		{
			name:     "normal timestamp",
			input:    testTimeNs,
			expected: time.Unix(0, testTimeNs),
		},
		{
			name:     "zero timestamp",
			input:    0,
			expected: time.Time{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := ToTime(tt.input)
			if !result.Equal(tt.expected) {
				t.Errorf("ToTime(%d) = %v, expected %v", tt.input, result, tt.expected)
			}
		})
	}
}

func TestString(t *testing.T) {
	if got := String(testTimeNs); got != "1673785845123000000" {
		t.Errorf("String(%d) = %q, expected %q", testTimeNs, got, "1673785845123000000")
	}
	if got := String(0); got != "0" {
		t.Errorf("String(0) = %q, expected %q", got, "0")
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		name     string
		input    int64
		expected string
	}{
		{
			name:     "normal timestamp",
			input:    testTimeNs,
			expected: testTimeString,
		},
		{
			name:     "whole second",
			input:    1673785845000000000,
			expected: "2023-01-15T12:30:45Z",
		},
		{
			name:     "zero timestamp",
			input:    0,
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Format(tt.input)
			if result != tt.expected {
				t.Errorf("Format(%d) = %q, expected %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name     string
		input    any
		expected int64
	}{
		// int64 epoch counts at every magnitude
		{
			name:     "int64 nanoseconds",
			input:    int64(1673785845123000000),
			expected: 1673785845123000000,
		},
		{
			name:     "int64 microseconds",
			input:    int64(1673785845123000),
			expected: 1673785845123000000,
		},
		{
			name:     "int64 milliseconds",
			input:    int64(1673785845123),
			expected: 1673785845123000000,
		},
		{
			name:     "int64 seconds",
			input:    int64(1673784645),
			expected: 1673784645000000000,
		},
		{
			name:     "int64 zero",
			input:    int64(0),
			expected: 0,
		},
		{
			name:     "int64 negative",
			input:    int64(-5),
			expected: 0,
		},

		// other numeric kinds
		{
			name:     "float64 seconds",
			input:    float64(1673784645),
			expected: 1673784645000000000,
		},
		{
			name:     "int seconds",
			input:    int(1673784645),
			expected: 1673784645000000000,
		},
		{
			name:     "int32 seconds",
			input:    int32(1673784645),
			expected: 1673784645000000000,
		},

		// string tests
		{
			name:     "RFC3339 string",
			input:    "2023-01-15T12:30:45Z",
			expected: 1673785845000000000,
		},
		{
			name:     "RFC3339 with milliseconds",
			input:    "2023-01-15T12:30:45.123Z",
			expected: 1673785845123000000,
		},
		{
			name:     "epoch string seconds",
			input:    "1673784645",
			expected: 1673784645000000000,
		},
		{
			name:     "epoch string nanoseconds",
			input:    "1673785845123000000",
			expected: 1673785845123000000,
		},
		{
			name:     "float string seconds",
			input:    "1673784645.5",
			expected: 1673784645000000000,
		},
		{
			name:     "empty string",
			input:    "",
			expected: 0,
		},
		{
			name:     "invalid string",
			input:    "invalid",
			expected: 0,
		},

		// time.Time tests
		{
			name:     "time.Time",
			input:    testTime,
			expected: testTimeNs,
		},
		{
			name:     "zero time.Time",
			input:    time.Time{},
			expected: 0,
		},

		// *time.Time tests
		{
			name:     "*time.Time",
			input:    &testTime,
			expected: testTimeNs,
		},
		{
			name:     "nil *time.Time",
			input:    (*time.Time)(nil),
			expected: 0,
		},

		// nil and unsupported types
		{
			name:     "nil",
			input:    nil,
			expected: 0,
		},
		{
			name:     "unsupported type",
			input:    []int{1, 2, 3},
			expected: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if result != tt.expected {
				t.Errorf("Parse(%v) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestParseMagnitudeBoundaries(t *testing.T) {
	// The "just under" products overflow int64; using variable multipliers
	// makes them wrap at runtime exactly as fromEpoch's arithmetic does
	// (the equivalent constant expressions would not compile).
	nsPerSec := int64(time.Second)
	nsPerMs := int64(time.Millisecond)
	nsPerUs := int64(time.Microsecond)

	tests := []struct {
		name     string
		input    int64
		expected int64
	}{
		{
			name:     "just under millisecond boundary is seconds",
			input:    1e11 - 1,
			expected: (1e11 - 1) * nsPerSec,
		},
		{
			name:     "millisecond boundary",
			input:    1e11,
			expected: 1e11 * int64(time.Millisecond),
		},
		{
			name:     "just under microsecond boundary is milliseconds",
			input:    1e14 - 1,
			expected: (1e14 - 1) * nsPerMs,
		},
		{
			name:     "microsecond boundary",
			input:    1e14,
			expected: 1e14 * int64(time.Microsecond),
		},
		{
			name:     "just under nanosecond boundary is microseconds",
			input:    1e17 - 1,
			expected: (1e17 - 1) * nsPerUs,
		},
		{
			name:     "nanosecond boundary",
			input:    1e17,
			expected: 1e17,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Parse(tt.input)
			if result != tt.expected {
				t.Errorf("Parse(%d) = %d, expected %d", tt.input, result, tt.expected)
			}
		})
	}
}

func TestStringParseRoundTrip(t *testing.T) {
	original := testTimeNs
	parsed := Parse(String(original))
	if parsed != original {
		t.Errorf("String/Parse round trip: original=%d, parsed=%d", original, parsed)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	original := testTimeNs
	parsed := Parse(Format(original))
	if parsed != original {
		t.Errorf("Format/Parse round trip: original=%d, parsed=%d", original, parsed)
	}
}

func TestDateParts(t *testing.T) {
	tests := []struct {
		name  string
		input int64
		year  string
		month string
		day   string
	}{
		{
			name:  "normal timestamp",
			input: testTimeNs,
			year:  "2023",
			month: "01",
			day:   "15",
		},
		{
			name:  "single digit month and day padded",
			input: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC).UnixNano(),
			year:  "2024",
			month: "03",
			day:   "05",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			y, m, d := DateParts(tt.input)
			if y != tt.year || m != tt.month || d != tt.day {
				t.Errorf("DateParts(%d) = (%s, %s, %s), expected (%s, %s, %s)",
					tt.input, y, m, d, tt.year, tt.month, tt.day)
			}
		})
	}
}

func TestDatePartsZero(t *testing.T) {
	// A zero timestamp falls back to the current date.
	y, m, d := DateParts(0)
	now := time.Now().UTC()
	if y == "1970" {
		t.Errorf("DateParts(0) = (%s, %s, %s), expected current date near %v", y, m, d, now)
	}
	if len(m) != 2 || len(d) != 2 {
		t.Errorf("DateParts(0) month/day not zero padded: (%s, %s)", m, d)
	}
}

// Benchmark tests
func BenchmarkNow(b *testing.B) {
	for i := 0; i < b.N; i++ {
		Now()
	}
}

func BenchmarkParseString(b *testing.B) {
	s := testTimeString
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parse(s)
	}
}

func BenchmarkParseInt64(b *testing.B) {
	ts := testTimeNs
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		Parse(ts)
	}
}
