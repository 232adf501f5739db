package fetch

import (
	"context"
	"log"
	"unicode/utf8"
)

// MinJDText is the shortest extracted text accepted as a job description
const MinJDText = 50

// JDFetcher loads a job posting and returns its description text. Pages
// whose static HTML has too little text are re-rendered with Renderer when
// one is set.
type JDFetcher struct {
	Options  *Options
	Renderer Renderer
}

// NewJDFetcher returns a fetcher without browser fallback
func NewJDFetcher(opts *Options) *JDFetcher {
	if opts == nil {
		opts = DefaultOptions()
	}
	return &JDFetcher{Options: opts}
}

// FetchText fetches rawURL and extracts the posting text
func (f *JDFetcher) FetchText(ctx context.Context, rawURL string) (string, error) {
	if _, err := ValidateURL(rawURL); err != nil {
		return "", err
	}
	platform := DetectPlatform(rawURL)
	selectors := ContentSelectors(platform)
	noise := NoiseSelectors(platform)

	var text string
	result, fetchErr := URL(ctx, rawURL, f.Options)
	if fetchErr == nil {
		extracted, err := ExtractMainText(result.HTML, selectors, noise...)
		if err != nil {
			return "", &Error{URL: rawURL, Message: "failed to extract text", Cause: err}
		}
		text = extracted
	}

	if f.Renderer != nil && ShouldUseBrowser(text) {
		if rendered, err := f.render(ctx, rawURL, selectors, noise); err != nil {
			log.Printf("[fetch] browser fallback failed for %s: %v", rawURL, err)
		} else if utf8.RuneCountInString(rendered) > utf8.RuneCountInString(text) {
			text = rendered
		}
	}

	if utf8.RuneCountInString(text) < MinJDText {
		if fetchErr != nil {
			return "", fetchErr
		}
		return "", &Error{URL: rawURL, Message: "no job description text found"}
	}
	return text, nil
}

func (f *JDFetcher) render(ctx context.Context, rawURL string, selectors, noise []string) (string, error) {
	page, err := f.Renderer.Render(ctx, rawURL)
	if err != nil {
		return "", err
	}
	return ExtractMainText(page, selectors, noise...)
}
