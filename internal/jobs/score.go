package jobs

import (
	"math"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	keywordWeight = 0.6
	lengthWeight  = 0.4

	// keywordTarget hits give full keyword credit
	keywordTarget = 3
)

// Score rates a variant in [0, 1] from keyword overlap with the job
// description and how well it fills maxLen. With no keywords only the
// length fit counts.
func Score(variant string, keywords []string, maxLen int) float64 {
	fit := lengthFit(utf8.RuneCountInString(variant), maxLen)
	if len(keywords) == 0 {
		return round2(fit)
	}

	lower := strings.ToLower(variant)
	hits := 0
	for _, kw := range keywords {
		if containsWord(lower, strings.ToLower(kw)) {
			hits++
		}
	}
	target := min(keywordTarget, len(keywords))
	coverage := math.Min(1, float64(hits)/float64(target))

	return round2(keywordWeight*coverage + lengthWeight*fit)
}

// lengthFit is 1 between half of maxLen and maxLen, ramps up below that and
// is 0 when over
func lengthFit(n, maxLen int) float64 {
	if n == 0 || maxLen <= 0 || n > maxLen {
		return 0
	}
	half := float64(maxLen) / 2
	if float64(n) >= half {
		return 1
	}
	return float64(n) / half
}

// rankVariants orders variants by score, best first, keeping the rewriter's
// order for ties, and returns the best score
func rankVariants(variants []string, keywords []string, maxLen int) ([]string, float64) {
	scores := make(map[string]float64, len(variants))
	for _, v := range variants {
		scores[v] = Score(v, keywords, maxLen)
	}
	sort.SliceStable(variants, func(i, j int) bool {
		return scores[variants[i]] > scores[variants[j]]
	})
	if len(variants) == 0 {
		return variants, 0
	}
	return variants, scores[variants[0]]
}

// containsWord reports whether word occurs in s without letters or digits
// on either side
func containsWord(s, word string) bool {
	if word == "" {
		return false
	}
	for offset := 0; ; {
		idx := strings.Index(s[offset:], word)
		if idx < 0 {
			return false
		}
		start := offset + idx
		end := start + len(word)
		if !isWordRune(lastRune(s[:start])) && !isWordRune(firstRune(s[end:])) {
			return true
		}
		offset = start + 1
	}
}

func isWordRune(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

func round2(f float64) float64 {
	return math.Round(f*100) / 100
}
