package pocketscience

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience/content"
	"github.com/eringen/pocketscience/views"
)

// SiteConfig holds all configuration for a pocketscience site.
type SiteConfig struct {
	Name        string // Site name (default "Blog")
	URL         string // Canonical URL (default "http://localhost:3000")
	Description string // Site description for RSS and meta tags
	Author      string // Fallback author for JSON-LD

	Addr string // Listen address (default ":3000")

	Backend      string // "fs", "sqlite" or "postgres" (default "fs")
	ContentDir   string // Post directory for the fs backend (default "content/posts")
	DatabasePath string // SQLite path (default "data/blog.db")
	DatabaseURL  string // Postgres DSN

	PostCacheTTL time.Duration // 0 disables the post cache
	WatchContent bool          // Invalidate the cache when ContentDir changes
	APIRateLimit int           // JSON API requests per minute per IP (default 120)
}

func (c *SiteConfig) setDefaults() {
	if c.Name == "" {
		c.Name = "Blog"
	}
	if c.URL == "" {
		c.URL = "http://localhost:3000"
	}
	if c.Addr == "" {
		c.Addr = ":3000"
	}
	if c.Backend == "" {
		c.Backend = content.BackendFS
	}
	if c.ContentDir == "" {
		c.ContentDir = "content/posts"
	}
	if c.DatabasePath == "" {
		c.DatabasePath = "data/blog.db"
	}
	if c.APIRateLimit <= 0 {
		c.APIRateLimit = 120
	}
}

// Site returns the subset of the config that pages render.
func (c SiteConfig) Site() views.Site {
	return views.Site{
		Name:        c.Name,
		URL:         c.URL,
		Description: c.Description,
		Author:      c.Author,
	}
}

// ConfigFromEnv reads SiteConfig from the environment, loading a .env file in
// the working directory first if one exists.
func ConfigFromEnv() (SiteConfig, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return SiteConfig{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := SiteConfig{
		Name:         EnvOr("SITE_NAME", "Blog"),
		URL:          EnvOr("SITE_URL", "http://localhost:3000"),
		Description:  os.Getenv("SITE_DESCRIPTION"),
		Author:       os.Getenv("SITE_AUTHOR"),
		Addr:         EnvOr("ADDR", ":3000"),
		Backend:      EnvOr("CONTENT_BACKEND", content.BackendFS),
		ContentDir:   EnvOr("CONTENT_DIR", "content/posts"),
		DatabasePath: EnvOr("DATABASE_PATH", "data/blog.db"),
		DatabaseURL:  os.Getenv("DATABASE_URL"),
	}

	if v := os.Getenv("POST_CACHE_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("POST_CACHE_TTL: %w", err)
		}
		cfg.PostCacheTTL = ttl
	}
	if v := os.Getenv("WATCH_CONTENT"); v != "" {
		watch, err := strconv.ParseBool(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("WATCH_CONTENT: %w", err)
		}
		cfg.WatchContent = watch
	}
	if v := os.Getenv("API_RATE_LIMIT"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return SiteConfig{}, fmt.Errorf("API_RATE_LIMIT: %w", err)
		}
		cfg.APIRateLimit = n
	}

	cfg.setDefaults()
	return cfg, nil
}

// OpenStore builds the content store selected by cfg.Backend. Table stores
// must be closed by the caller; they implement io.Closer.
func OpenStore(ctx context.Context, cfg SiteConfig, logger *zap.Logger) (content.Store, error) {
	cfg.setDefaults()
	switch cfg.Backend {
	case content.BackendFS:
		return content.NewFileStore(cfg.ContentDir, logger), nil
	case content.BackendSQLite:
		s, err := content.NewSQLStore(cfg.DatabasePath, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	case content.BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, errors.New("postgres backend requires DATABASE_URL")
		}
		s, err := content.NewPGStore(ctx, cfg.DatabaseURL, logger)
		if err != nil {
			return nil, err
		}
		if err := s.EnsureSchema(ctx); err != nil {
			s.Close()
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown content backend %q", cfg.Backend)
	}
}

// Option configures additional App behavior.
type Option func(*App)

// WithStore uses s instead of opening the configured backend.
func WithStore(s content.Store) Option {
	return func(a *App) {
		a.base = s
	}
}

// WithLogger sets the application logger (default zap.NewNop).
func WithLogger(logger *zap.Logger) Option {
	return func(a *App) {
		a.Logger = logger
	}
}

// WithCustomRoutes registers additional routes on the Echo instance.
// The callback receives the App after the built-in routes are set up.
func WithCustomRoutes(fn func(*App)) Option {
	return func(a *App) {
		a.customRoutes = append(a.customRoutes, fn)
	}
}

// WithStaticDir sets the directory for user-owned static assets (default "public").
func WithStaticDir(dir string) Option {
	return func(a *App) {
		a.staticDir = dir
	}
}

// EnvOr returns the value of the environment variable key, or fallback if empty.
func EnvOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
