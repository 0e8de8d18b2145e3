package extract

import (
	"strconv"
	"strings"
	"time"
)

var monthsByName = map[string]time.Month{
	"JAN": time.January, "FEB": time.February, "MAR": time.March,
	"APR": time.April, "MAY": time.May, "JUN": time.June,
	"JUL": time.July, "AUG": time.August, "SEP": time.September,
	"OCT": time.October, "NOV": time.November, "DEC": time.December,
}

// ParseStatementDate understands the DDMMMYYYY form the model is prompted to
// return, plus a few common numeric layouts. Unparseable dates come back as
// 1900-01-01 so they sort before everything real.
func ParseStatementDate(s string) time.Time {
	s = strings.TrimSpace(s)

	if len(s) >= 7 && isAlpha(s[2:5]) {
		day, dayErr := strconv.Atoi(s[:2])
		year, yearErr := strconv.Atoi(s[5:])
		month, ok := monthsByName[strings.ToUpper(s[2:5])]
		if dayErr == nil && yearErr == nil && ok {
			return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		}
	}

	for _, layout := range []string{"02/01/2006", "02-01-2006", "2006-01-02", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t
		}
	}
	return time.Date(1900, time.January, 1, 0, 0, 0, 0, time.UTC)
}

func isAlpha(s string) bool {
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !('a' <= c && c <= 'z' || 'A' <= c && c <= 'Z') {
			return false
		}
	}
	return true
}
