package fetch

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log"
	"time"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
)

// DefaultCacheTTL is how long fetched posting text is reused
const DefaultCacheTTL = 24 * time.Hour

// TextFetcher returns the text of a posting
type TextFetcher interface {
	FetchText(ctx context.Context, url string) (string, error)
}

// Cached wraps a TextFetcher with a store backend. Only successful fetches
// are cached; cache errors fall through to the wrapped fetcher.
type Cached struct {
	next    TextFetcher
	backend store.Backend
	ttl     time.Duration
	now     func() time.Time
}

type cachedPage struct {
	Text      string    `json:"text"`
	FetchedAt time.Time `json:"fetched_at"`
}

// NewCached returns a caching fetcher. A zero ttl uses DefaultCacheTTL.
func NewCached(next TextFetcher, backend store.Backend, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{next: next, backend: backend, ttl: ttl, now: time.Now}
}

// FetchText implements TextFetcher
func (c *Cached) FetchText(ctx context.Context, rawURL string) (string, error) {
	key := cacheKey(rawURL)

	if raw, ok, err := c.backend.Get(ctx, key); err != nil {
		log.Printf("[fetch] cache read failed for %s: %v", rawURL, err)
	} else if ok {
		var page cachedPage
		if err := json.Unmarshal(raw, &page); err == nil && c.now().Sub(page.FetchedAt) < c.ttl {
			return page.Text, nil
		}
	}

	text, err := c.next.FetchText(ctx, rawURL)
	if err != nil {
		return "", err
	}

	raw, err := json.Marshal(cachedPage{Text: text, FetchedAt: c.now()})
	if err == nil {
		err = c.backend.Put(ctx, key, raw)
	}
	if err != nil {
		log.Printf("[fetch] cache write failed for %s: %v", rawURL, err)
	}
	return text, nil
}

func cacheKey(rawURL string) string {
	sum := sha256.Sum256([]byte(rawURL))
	return "jdcache:" + hex.EncodeToString(sum[:])
}
