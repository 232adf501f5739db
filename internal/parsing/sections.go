package parsing

import (
	"regexp"
	"strings"
)

const (
	minRequirementLen   = 10
	maxRequirementLen   = 200
	maxRequirementItems = 10
	maxHeaderLen        = 60
)

type section int

const (
	sectionNone section = iota
	sectionMust
	sectionNice
)

var (
	listItemRegex = regexp.MustCompile(`^\s*(?:[-*•·●▪◦‣–]|\d+[.)])\s+(.*)$`)

	niceHeaderRegex  = regexp.MustCompile(`(?i)\b(?:nice[- ]to[- ]haves?|preferred|bonus|pluses|good\s+to\s+have|desired)\b`)
	mustHeaderRegex  = regexp.MustCompile(`(?i)\b(?:requirements?|required|must[- ]haves?|qualifications|what\s+you.?ll\s+need|what\s+we.?re\s+looking\s+for|who\s+you\s+are)\b`)
	otherHeaderRegex = regexp.MustCompile(`(?i)^(?:about|responsibilities|what\s+you.?ll\s+do|your\s+role|the\s+role|benefits|perks|compensation|salary|pay|why\s+join|our\s+team|how\s+to\s+apply|equal\s+opportunity|location)\b`)
)

// extractRequirements walks the text line by line. Header lines switch the
// active section; list items inside a section are collected.
func extractRequirements(text string) (must, nice []string) {
	must = []string{}
	nice = []string{}
	current := sectionNone

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		m := listItemRegex.FindStringSubmatch(line)
		if m == nil {
			if next, ok := headerSection(line); ok {
				current = next
			}
			continue
		}

		item := strings.TrimSpace(m[1])
		n := len([]rune(item))
		if n < minRequirementLen || n > maxRequirementLen {
			continue
		}

		switch current {
		case sectionMust:
			if len(must) < maxRequirementItems {
				must = append(must, item)
			}
		case sectionNice:
			if len(nice) < maxRequirementItems {
				nice = append(nice, item)
			}
		}
	}

	return must, nice
}

// headerSection classifies a non-list line. ok is false for body text,
// which leaves the current section unchanged.
func headerSection(line string) (section, bool) {
	header := cleanTitleLine(line)
	header = strings.TrimRight(header, ":")
	if header == "" || len([]rune(header)) > maxHeaderLen {
		return sectionNone, false
	}

	switch {
	case niceHeaderRegex.MatchString(header):
		return sectionNice, true
	case mustHeaderRegex.MatchString(header):
		return sectionMust, true
	case otherHeaderRegex.MatchString(header):
		return sectionNone, true
	}
	return sectionNone, false
}
