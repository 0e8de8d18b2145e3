package extract

import (
	"regexp"
	"strings"
)

var (
	dateLineRe   = regexp.MustCompile(`\b\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4}\b`)
	amountLineRe = regexp.MustCompile(`[\d,]+\.\d{2}`)
)

// noiseKeywords mark header/footer lines that carry no transaction data.
var noiseKeywords = []string{
	"page", "statement", "bank", "address", "phone", "email",
	"terms", "conditions", "notice", "continued", "total pages",
}

// CleanStatementText filters raw statement text down to lines likely to carry
// transaction data. A line survives if it looks like it contains a date or an
// amount, or if it matches none of the noise keywords. Pure function.
func CleanStatementText(text string) string {
	if text == "" {
		return ""
	}

	lines := strings.Split(text, "\n")
	kept := make([]string, 0, len(lines))

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		if dateLineRe.MatchString(line) || amountLineRe.MatchString(line) || !isNoiseLine(line) {
			kept = append(kept, line)
		}
	}

	return strings.Join(kept, "\n")
}

func isNoiseLine(line string) bool {
	lower := strings.ToLower(line)
	for _, kw := range noiseKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
