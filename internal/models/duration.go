package models

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Duration is stored as nanoseconds and rendered on the wire as zero-padded
// HH:MM:SS with an unbounded hour component (the format the mobile client
// and the planning exports use).
type Duration time.Duration

func (d Duration) Std() time.Duration { return time.Duration(d) }

func (d Duration) String() string { return FormatHMS(time.Duration(d)) }

func (d Duration) MarshalJSON() ([]byte, error) {
	return []byte(strconv.Quote(d.String())), nil
}

func (d *Duration) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("duration must be a %q string", "HH:MM:SS")
	}
	v, err := ParseHMS(s)
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// FormatHMS renders d as HH:MM:SS. Hours are not wrapped at 24.
func FormatHMS(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int64(d / time.Second)
	h := total / 3600
	m := (total % 3600) / 60
	s := total % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// ParseHMS parses a strict HH:MM:SS string. Hours are unbounded, minutes and
// seconds must be two digits below 60. Anything else is an error; values are
// never silently coerced.
func ParseHMS(s string) (time.Duration, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 3 {
		return 0, fmt.Errorf("invalid duration %q: want HH:MM:SS", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || parts[0] == "" {
		return 0, fmt.Errorf("invalid duration %q: bad hours", s)
	}
	m, err := parseTwoDigit(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: bad minutes", s)
	}
	sec, err := parseTwoDigit(parts[2])
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q: bad seconds", s)
	}
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(sec)*time.Second, nil
}

func parseTwoDigit(s string) (int, error) {
	if len(s) != 2 {
		return 0, fmt.Errorf("want two digits, got %q", s)
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 || v > 59 {
		return 0, fmt.Errorf("out of range: %q", s)
	}
	return v, nil
}
