package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/llm"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/parsing"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/prompts"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/schemas"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// maxPromptJDRunes caps how much of the job description goes into a prompt
const maxPromptJDRunes = 6000

// RewriteRequest is one bullet to rewrite plus the job context
type RewriteRequest struct {
	Bullet         string
	JobDescription string
	JobTitle       string
	Keywords       []string
	Tone           string
	MaxLen         int
	Variants       int
}

// Rewriter produces alternative phrasings of a resume bullet
type Rewriter interface {
	Rewrite(ctx context.Context, req RewriteRequest) ([]string, error)
}

// LLMRewriter asks a generative model for rewrites and validates the answer
// against the embedded rewrite schema
type LLMRewriter struct {
	client llm.Client
}

// NewLLMRewriter returns a rewriter backed by client
func NewLLMRewriter(client llm.Client) *LLMRewriter {
	return &LLMRewriter{client: client}
}

type rewriteOutput struct {
	Variants []string `json:"variants"`
}

// Rewrite implements Rewriter
func (r *LLMRewriter) Rewrite(ctx context.Context, req RewriteRequest) ([]string, error) {
	prompt, err := prompts.Render(prompts.RewriteBullet, map[string]string{
		"JobTitle":       req.JobTitle,
		"Keywords":       strings.Join(req.Keywords, ", "),
		"JobDescription": truncateRunes(req.JobDescription, maxPromptJDRunes),
		"Bullet":         req.Bullet,
		"Variants":       strconv.Itoa(req.Variants),
		"MaxLen":         strconv.Itoa(req.MaxLen),
		"Tone":           prompts.ToneDescription(req.Tone),
	})
	if err != nil {
		return nil, err
	}

	raw, err := r.client.GenerateJSON(ctx, prompt)
	if err != nil {
		return nil, err
	}
	if err := schemas.Validate(schemas.Rewrite, raw); err != nil {
		return nil, err
	}

	var out rewriteOutput
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, fmt.Errorf("failed to decode rewrite output: %w", err)
	}
	return out.Variants, nil
}

var (
	weakOpenerRegex = regexp.MustCompile(`(?i)^(?:was\s+)?(?:responsible\s+for|in\s+charge\s+of|tasked\s+with|worked\s+on|helped(?:\s+to)?|assisted\s+(?:with|in)|involved\s+in|duties\s+included)\s+`)
	fillerWordRegex = regexp.MustCompile(`(?i)\b(?:successfully|effectively|various|numerous|really|very|basically)\s+`)
	spaceRunRegex   = regexp.MustCompile(`\s+`)
	wordRegex       = regexp.MustCompile(`[A-Za-z][A-Za-z0-9+#]*`)
)

// TrimRewriter rewrites bullets without a model. It strips weak openers and
// filler words and fixes keyword casing; it never adds facts.
type TrimRewriter struct{}

// Rewrite implements Rewriter
func (TrimRewriter) Rewrite(_ context.Context, req RewriteRequest) ([]string, error) {
	base := tidyBullet(weakOpenerRegex.ReplaceAllString(tidyBullet(req.Bullet), ""))
	concise := tidyBullet(fillerWordRegex.ReplaceAllString(base, ""))
	cased := canonicalizeKeywords(concise, req.Keywords)

	order := []string{base, concise, cased}
	if req.Tone == types.ToneConcise {
		order = []string{concise, cased, base}
	}
	return order, nil
}

func tidyBullet(s string) string {
	s = spaceRunRegex.ReplaceAllString(strings.TrimSpace(s), " ")
	s = strings.TrimRight(s, ".;")
	return upperFirst(s)
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// canonicalizeKeywords rewrites words that name a job keyword in the
// keyword's canonical form, e.g. "golang" to "Go". Two-letter words are only
// replaced when they are a different spelling, so the verb "go" stays.
func canonicalizeKeywords(s string, keywords []string) string {
	if len(keywords) == 0 {
		return s
	}
	return wordRegex.ReplaceAllStringFunc(s, func(word string) string {
		canon := parsing.CanonicalSkill(word)
		if canon == word || !containsFold(keywords, canon) {
			return word
		}
		if strings.EqualFold(canon, word) && utf8.RuneCountInString(word) < 3 {
			return word
		}
		return canon
	})
}

func containsFold(values []string, target string) bool {
	for _, v := range values {
		if strings.EqualFold(v, target) {
			return true
		}
	}
	return false
}

// truncateRunes cuts s to at most n runes
func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// truncateWords cuts s to at most n runes, backing up to a word boundary
// when one exists
func truncateWords(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	cut := string([]rune(s)[:n])
	if idx := strings.LastIndexAny(cut, " \t"); idx > 0 {
		cut = cut[:idx]
	}
	return strings.TrimRight(cut, " ,;:-")
}
