// Package parsing extracts structured fields from free-text job descriptions.
package parsing

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

const (
	// DefaultJobTitle is used when no line qualifies as a title
	DefaultJobTitle = "Position"

	minTitleLen = 5
	maxTitleLen = 80
)

var (
	titleQualifierRegex  = regexp.MustCompile(`(?i)\s*[-–—|,]\s*(?:fully\s+)?(?:remote|hybrid|on-?site|in[- ]office)\b.*$`)
	parentheticalRegex   = regexp.MustCompile(`\s*\([^)]*\)`)
	titleLabelRegex      = regexp.MustCompile(`(?im)^\s*(?:job\s+)?(?:position|role|title)\s*:\s*(.+)$`)
	markdownPrefixRegex  = regexp.MustCompile(`^[#*_\s]+`)
	markdownSuffixRegex  = regexp.MustCompile(`[*_\s]+$`)
	yearsExperienceRegex = regexp.MustCompile(`(?i)\b(\d{1,2})\s*(\+)?\s*(?:-\s*\d{1,2}\s*)?(?:years?|yrs?)\b`)
)

// Seniority checks run in this order and the first hit wins
var seniorityRules = []struct {
	level types.Seniority
	re    *regexp.Regexp
}{
	{types.SenioritySenior, regexp.MustCompile(`(?i)\b(?:senior|sr\.?|staff|principal|architect)\b`)},
	{types.SeniorityLead, regexp.MustCompile(`(?i)\b(?:lead|director|head\s+of|chief|vp|vice\s+president)\b`)},
	{types.SeniorityEntry, regexp.MustCompile(`(?i)\b(?:junior|jr\.?|entry[- ]level|entry|intern|internship|new\s+grad|graduate)\b`)},
	{types.SeniorityMid, regexp.MustCompile(`(?i)\b(?:mid[- ]level|mid|intermediate)\b`)},
}

// Parse extracts a ParsedJD from raw job description text. It is
// deterministic and never fails; unrecognized input yields defaults.
func Parse(text string) types.ParsedJD {
	must, nice := extractRequirements(text)
	return types.ParsedJD{
		JobTitle:    extractTitle(text),
		Seniority:   detectSeniority(text),
		HardSkills:  matchDictionary(text, hardSkillPatterns),
		Tools:       matchDictionary(text, toolPatterns),
		SoftSkills:  matchDictionary(text, softSkillPatterns),
		MustHaves:   must,
		NiceToHaves: nice,
	}
}

// WithoutSkill returns a copy of parsed with skill removed from every skill
// list. The input's arrays are left untouched.
func WithoutSkill(parsed types.ParsedJD, skill string) types.ParsedJD {
	out := parsed.Clone()
	out.HardSkills = removeFold(out.HardSkills, skill)
	out.Tools = removeFold(out.Tools, skill)
	out.SoftSkills = removeFold(out.SoftSkills, skill)
	return out
}

func removeFold(values []string, target string) []string {
	if values == nil {
		return nil
	}
	out := values[:0]
	for _, v := range values {
		if !strings.EqualFold(v, target) {
			out = append(out, v)
		}
	}
	return out
}

func extractTitle(text string) string {
	for _, line := range strings.Split(text, "\n") {
		candidate := cleanTitleLine(line)
		if candidate == "" {
			continue
		}
		n := len([]rune(candidate))
		if n >= minTitleLen && n <= maxTitleLen {
			return candidate
		}
	}

	if m := titleLabelRegex.FindStringSubmatch(text); m != nil {
		if label := cleanTitleLine(m[1]); label != "" {
			return label
		}
	}

	return DefaultJobTitle
}

func cleanTitleLine(line string) string {
	line = strings.TrimSpace(line)
	line = markdownPrefixRegex.ReplaceAllString(line, "")
	line = markdownSuffixRegex.ReplaceAllString(line, "")
	line = titleQualifierRegex.ReplaceAllString(line, "")
	line = parentheticalRegex.ReplaceAllString(line, "")
	return strings.TrimSpace(line)
}

func detectSeniority(text string) types.Seniority {
	for _, rule := range seniorityRules {
		if rule.re.MatchString(text) {
			return rule.level
		}
	}

	m := yearsExperienceRegex.FindStringSubmatch(text)
	if m == nil {
		return types.SeniorityUnknown
	}
	years, err := strconv.Atoi(m[1])
	if err != nil {
		return types.SeniorityUnknown
	}
	// "N+ years" means more than N
	if m[2] == "+" {
		years++
	}

	switch {
	case years <= 2:
		return types.SeniorityEntry
	case years <= 5:
		return types.SeniorityMid
	default:
		return types.SenioritySenior
	}
}
