package optimizer

import (
	"regexp"
	"strings"
)

var bulletMarkerRegex = regexp.MustCompile(`^\s*(?:[-*•·●▪◦‣–]\s*|\d+[.)]\s+)`)

// SplitBullets turns pasted resume text into bullet lines: one bullet per
// non-blank line with any leading bullet marker or number removed
func SplitBullets(text string) []string {
	out := []string{}
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		line = strings.TrimSpace(bulletMarkerRegex.ReplaceAllString(line, ""))
		if line != "" {
			out = append(out, line)
		}
	}
	return out
}
