// Package pocketscience serves a blog from a content.Store. It renders the
// post index, post pages and tag pages, publishes RSS and a sitemap, and
// exposes the same reads as a small JSON API for static-site builders.
//
// Pages are templ components supplied through ViewFuncs; any field left nil
// falls back to the components in the views package.
package pocketscience

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/a-h/templ"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience/content"
	"github.com/eringen/pocketscience/views"
)

// ViewFuncs holds the templ components the handlers render.
type ViewFuncs struct {
	Home        func(site views.Site, posts []content.Post, activeTag string, tags []string) templ.Component
	BlogSection func(posts []content.Post, activeTag string, tags []string) templ.Component
	Post        func(site views.Site, post content.Post, related []content.Post) templ.Component
	PostPartial func(post content.Post, related []content.Post) templ.Component
	Tag         func(site views.Site, tag string, posts []content.Post) templ.Component
	NotFound    func(site views.Site) templ.Component
	ServerError func(site views.Site) templ.Component
}

func (v *ViewFuncs) setDefaults() {
	if v.Home == nil {
		v.Home = views.Home
	}
	if v.BlogSection == nil {
		v.BlogSection = views.BlogSection
	}
	if v.Post == nil {
		v.Post = views.Post
	}
	if v.PostPartial == nil {
		v.PostPartial = views.PostBody
	}
	if v.Tag == nil {
		v.Tag = views.Tag
	}
	if v.NotFound == nil {
		v.NotFound = views.NotFound
	}
	if v.ServerError == nil {
		v.ServerError = views.ServerError
	}
}

// App is the central application. It wires together the store, cache,
// handlers, middleware, and templates.
type App struct {
	Config SiteConfig
	Echo   *echo.Echo
	Store  content.Store // what handlers read: base store, instrumented, optionally cached
	Cache  *PostCache    // nil when PostCacheTTL is 0
	Views  ViewFuncs
	Logger *zap.Logger

	base         content.Store
	apiLimiter   *RateLimiter
	watcher      *content.Watcher
	customRoutes []func(*App)
	staticDir    string
	initialized  bool
}

// New creates an App with the given configuration and view functions.
func New(cfg SiteConfig, views ViewFuncs, opts ...Option) *App {
	cfg.setDefaults()
	views.setDefaults()

	a := &App{
		Config:    cfg,
		Echo:      echo.New(),
		Views:     views,
		staticDir: "public",
	}
	a.Echo.HideBanner = true
	a.Echo.HidePort = true

	for _, opt := range opts {
		opt(a)
	}
	if a.Logger == nil {
		a.Logger = zap.NewNop()
	}
	return a
}

// Init opens the store and sets up the cache, watcher, middleware and routes.
// Start calls it; tests call it directly and drive a.Echo with httptest.
func (a *App) Init(ctx context.Context) error {
	if a.initialized {
		return nil
	}

	if a.base == nil {
		s, err := OpenStore(ctx, a.Config, a.Logger)
		if err != nil {
			return fmt.Errorf("pocketscience: open store: %w", err)
		}
		a.base = s
	}
	a.Store = NewInstrumentedStore(a.base, a.Config.Backend)

	if a.Config.PostCacheTTL > 0 {
		a.Cache = NewPostCache(a.Store, a.Config.PostCacheTTL)
		a.Store = a.Cache
		if a.Config.WatchContent && a.Config.Backend == content.BackendFS {
			if err := a.startWatcher(ctx); err != nil {
				return err
			}
		}
	}

	a.apiLimiter = NewRateLimiter(a.Config.APIRateLimit, time.Minute)

	a.setupMiddleware()
	a.setupRoutes()
	for _, fn := range a.customRoutes {
		fn(a)
	}

	a.initialized = true
	a.Logger.Info("app initialized",
		zap.String("backend", a.Config.Backend),
		zap.Duration("post_cache_ttl", a.Config.PostCacheTTL),
		zap.Bool("watch_content", a.watcher != nil),
	)
	return nil
}

func (a *App) startWatcher(ctx context.Context) error {
	w, err := content.NewWatcher(a.Config.ContentDir, func() {
		a.Logger.Info("content changed, invalidating post cache")
		a.Cache.Invalidate()
	}, a.Logger)
	if err != nil {
		return fmt.Errorf("pocketscience: watch content: %w", err)
	}
	if err := w.Start(ctx); err != nil {
		w.Stop()
		return fmt.Errorf("pocketscience: watch content: %w", err)
	}
	a.watcher = w
	return nil
}

// Start initializes the app and serves until ctx is canceled, then shuts the
// server down gracefully.
func (a *App) Start(ctx context.Context) error {
	if err := a.Init(ctx); err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("listening", zap.String("addr", a.Config.Addr))
		if err := a.Echo.Start(a.Config.Addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Echo.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("pocketscience: shutdown: %w", err)
	}
	return <-errCh
}

func (a *App) setupRoutes() {
	e := a.Echo

	e.Static("/public", a.staticDir)
	e.GET("/favicon.svg", a.handleFavicon)
	e.GET("/robots.txt", a.handleRobots)
	e.GET("/healthz", handleHealthz)
	e.GET("/metrics", metricsHandler())

	e.GET("/sitemap.xml", a.handleSitemap)
	e.GET("/feed.xml", a.handleFeed)
	e.GET("/blog", handleBlogRedirect)
	e.GET("/", a.handleHome)
	e.GET("/blog/:slug/", a.handlePost)
	e.GET("/tags/:tag/", a.handleTag)

	a.registerAPI(e.Group("/api", a.rateLimitMiddleware))
}

// Close stops background work and releases the store.
func (a *App) Close() error {
	if a.watcher != nil {
		a.watcher.Stop()
	}
	if a.apiLimiter != nil {
		a.apiLimiter.Stop()
	}
	if c, ok := a.base.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
