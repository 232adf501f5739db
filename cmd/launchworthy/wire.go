package main

import (
	"context"
	"fmt"
	"log"

	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/booking"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/checkout"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/config"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/db"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/fetch"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/formrelay"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/jobclient"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/jobs"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/llm"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/metrics"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/optimizer"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/store"
	"github.com/ChandlerShores/LaunchWorthy-v2-sub000/internal/types"
)

// app holds the collaborators built from configuration. Close releases
// them in reverse order of creation.
type app struct {
	cfg      *config.Config
	backend  store.Backend
	database *db.DB
	metrics  *metrics.Collector
	closers  []func()
}

// loadConfig reads the config file named by --config plus the environment
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return cfg, nil
}

// openApp connects the database, when configured, and the state backend
func openApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg, metrics: metrics.NewCollector()}

	if cfg.DatabaseURL != "" {
		database, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.onClose(database.Close)
		if err := database.EnsureSchema(ctx); err != nil {
			a.Close()
			return nil, err
		}
		a.database = database
	}

	backend, err := a.openBackend()
	if err != nil {
		a.Close()
		return nil, err
	}
	a.backend = backend
	return a, nil
}

func (a *app) onClose(fn func()) {
	a.closers = append(a.closers, fn)
}

// Close releases everything opened by the app
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}

func (a *app) openBackend() (store.Backend, error) {
	sc := a.cfg.Store
	switch sc.Backend {
	case config.StoreMemory:
		return store.NewMemory(), nil
	case config.StoreFile:
		return store.NewFile(sc.Dir)
	case config.StoreRedis:
		r := store.NewRedis(store.NewRedisClient(sc.RedisAddr, sc.RedisPassword, sc.RedisTLS), sc.TTL)
		a.onClose(func() { logClose("redis", r.Close()) })
		return r, nil
	case config.StoreValkey:
		client, err := store.NewValkeyClient(sc.ValkeyURI)
		if err != nil {
			return nil, err
		}
		v := store.NewValkey(client, sc.TTL)
		a.onClose(func() { logClose("valkey", v.Close()) })
		return v, nil
	case config.StorePostgres:
		if a.database == nil {
			return nil, fmt.Errorf("postgres store requires DATABASE_URL")
		}
		return store.NewPostgres(a.database), nil
	default:
		return nil, fmt.Errorf("unknown store backend %q", sc.Backend)
	}
}

func logClose(name string, err error) {
	if err != nil {
		log.Printf("[launchworthy] closing %s: %v", name, err)
	}
}

// jobClient returns the remote job service when one is configured,
// otherwise an in-process service. Rewrites use Gemini when a key is set.
func (a *app) jobClient(ctx context.Context) (optimizer.JobClient, error) {
	if a.cfg.Jobs.ServiceURL != "" {
		log.Printf("[launchworthy] using job service at %s", a.cfg.Jobs.ServiceURL)
		return jobclient.New(a.cfg.Jobs.ServiceURL, a.cfg.Jobs.APIKey, 0), nil
	}

	var rewriter jobs.Rewriter = jobs.TrimRewriter{}
	if a.cfg.GeminiKey != "" {
		client, err := llm.NewClient(ctx, llm.ConfigFor(a.cfg.GeminiModel), a.cfg.GeminiKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create LLM client: %w", err)
		}
		a.onClose(func() { logClose("llm client", client.Close()) })
		rewriter = jobs.NewLLMRewriter(client)
	} else {
		log.Printf("[launchworthy] GEMINI_API_KEY not set, rewriting bullets without a model")
	}

	var repo jobs.Repository = jobs.NewMemoryRepository()
	if a.database != nil {
		repo = a.database
	}

	svc := jobs.NewService(repo, rewriter,
		jobs.WithConcurrency(a.cfg.Jobs.Concurrency),
		jobs.WithJobTimeout(a.cfg.Jobs.Timeout),
		jobs.WithObserver(a.metrics),
	)
	a.onClose(svc.Close)
	return svc, nil
}

// records returns where completed bookings are kept
func (a *app) records() booking.RecordLister {
	if a.database != nil {
		return a.database
	}
	log.Printf("[launchworthy] DATABASE_URL not set, completed bookings are kept in memory")
	return booking.NewMemoryRecords()
}

// checkoutProvider returns nil when no provider key is configured
func (a *app) checkoutProvider() booking.CheckoutProvider {
	c := a.cfg.Checkout
	if c.SecretKey == "" {
		log.Printf("[launchworthy] CHECKOUT_SECRET_KEY not set, checkout is disabled")
		return nil
	}
	return checkout.New(checkout.Config{
		BaseURL:    c.BaseURL,
		SecretKey:  c.SecretKey,
		SuccessURL: c.SuccessURL,
		CancelURL:  c.CancelURL,
		Currency:   c.Currency,
	})
}

func (a *app) relay() booking.FormRelay {
	if a.cfg.FormRelay == "" {
		return nil
	}
	return formrelay.New(a.cfg.FormRelay, 0)
}

func (a *app) scheduler() booking.Scheduler {
	events := make(map[types.ServiceID]string, len(a.cfg.Scheduling.Events))
	for id, path := range a.cfg.Scheduling.Events {
		events[types.ServiceID(id)] = path
	}
	return booking.CalendarLink{BaseURL: a.cfg.Scheduling.BaseURL, Events: events}
}

// fetcher loads postings over HTTP, falling back to headless Chrome when
// enabled, and caches the text in the state backend
func (a *app) fetcher() optimizer.JDFetcher {
	opts := fetch.DefaultOptions()
	opts.Timeout = a.cfg.Fetch.Timeout

	jd := fetch.NewJDFetcher(opts)
	if a.cfg.Fetch.UseBrowser {
		jd.Renderer = fetch.NewChromeRenderer()
	}
	return fetch.NewCached(jd, a.backend, a.cfg.Fetch.CacheTTL)
}

func (a *app) pollConfig() optimizer.PollConfig {
	poll := optimizer.DefaultPollConfig()
	poll.Interval = a.cfg.Poll.Interval
	poll.MaxAttempts = a.cfg.Poll.MaxAttempts
	return poll
}
