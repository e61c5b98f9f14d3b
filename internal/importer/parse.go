package importer

import (
	"strconv"
	"strings"
	"time"

	"ordenes-backend/internal/models"
)

// dateFormats is the fixed priority list the planning exports have been seen
// to use. Order matters: the first layout that parses wins.
var dateFormats = []string{
	"02.01.2006 15:04:05",
	"02.01.2006",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
}

// parseDate tries every known format and returns nil on total failure.
// Date parsing never raises and never fails the row; an unparseable date is
// simply stored empty.
func parseDate(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	for _, layout := range dateFormats {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// parsePriority reads the first character of the free-text priority field
// ("1-Muy alta", "2-Alta", ...). Anything else — blank, unrecognized —
// defaults to the lowest priority.
func parsePriority(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return models.PriorityLowest
	}
	switch s[0] {
	case '1':
		return 1
	case '2':
		return 2
	case '3':
		return 3
	case '4':
		return 4
	default:
		return models.PriorityLowest
	}
}

// parseOpCode normalizes an explicit operation code ("0010" → 10). Zero
// means the row carries none and the order counter assigns one.
func parseOpCode(s string) int {
	s = strings.TrimLeft(strings.TrimSpace(s), "0")
	if s == "" {
		return 0
	}
	v, err := strconv.Atoi(s)
	if err != nil || v < 0 {
		return 0
	}
	return v
}
