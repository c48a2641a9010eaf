package pocketscience

import (
	"context"
	"time"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/eringen/pocketscience/content"
)

// httpMetrics counts requests per route template and times them. Its collectors
// live on the default registry, so it is built once and shared by every App.
var httpMetrics = echoprometheus.NewMiddleware("pocketscience")

var (
	// StoreOpsTotal counts store operations by backend, operation and status.
	StoreOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pocketscience",
			Name:      "store_operations_total",
			Help:      "Total number of content store operations",
		},
		[]string{"backend", "op", "status"},
	)

	// StoreOpDuration measures store operation duration.
	StoreOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "pocketscience",
			Name:      "store_operation_duration_seconds",
			Help:      "Duration of content store operations in seconds",
			Buckets:   []float64{.0005, .001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"backend", "op"},
	)

	// CacheEventsTotal counts post cache hits, reloads and invalidations.
	CacheEventsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "pocketscience",
			Name:      "post_cache_events_total",
			Help:      "Total number of post cache events",
		},
		[]string{"event"},
	)

	// RateLimitedTotal counts API requests rejected by the rate limiter.
	RateLimitedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "pocketscience",
			Name:      "api_rate_limited_total",
			Help:      "Total number of API requests rejected by the rate limiter",
		},
	)
)

// RecordStoreOp records one content store call.
func RecordStoreOp(backend, op string, err error, duration time.Duration) {
	status := "ok"
	if err != nil {
		status = "error"
	}
	StoreOpsTotal.WithLabelValues(backend, op, status).Inc()
	StoreOpDuration.WithLabelValues(backend, op).Observe(duration.Seconds())
}

// RecordCacheEvent records a cache hit, reload or invalidation.
func RecordCacheEvent(event string) {
	CacheEventsTotal.WithLabelValues(event).Inc()
}

func metricsHandler() echo.HandlerFunc {
	return echoprometheus.NewHandler()
}

// InstrumentedStore records timing and outcome of every call on the wrapped
// store.
type InstrumentedStore struct {
	next    content.Store
	backend string
}

// NewInstrumentedStore wraps s, labelling its metrics with backend.
func NewInstrumentedStore(s content.Store, backend string) *InstrumentedStore {
	return &InstrumentedStore{next: s, backend: backend}
}

func (s *InstrumentedStore) ListPosts(ctx context.Context) ([]content.Post, error) {
	start := time.Now()
	posts, err := s.next.ListPosts(ctx)
	RecordStoreOp(s.backend, "list_posts", err, time.Since(start))
	return posts, err
}

func (s *InstrumentedStore) GetPost(ctx context.Context, slug string) (*content.Post, error) {
	start := time.Now()
	p, err := s.next.GetPost(ctx, slug)
	RecordStoreOp(s.backend, "get_post", err, time.Since(start))
	return p, err
}

func (s *InstrumentedStore) ListSlugs(ctx context.Context) ([]string, error) {
	start := time.Now()
	slugs, err := s.next.ListSlugs(ctx)
	RecordStoreOp(s.backend, "list_slugs", err, time.Since(start))
	return slugs, err
}

func (s *InstrumentedStore) ListPostsByTag(ctx context.Context, tag string) ([]content.Post, error) {
	start := time.Now()
	posts, err := s.next.ListPostsByTag(ctx, tag)
	RecordStoreOp(s.backend, "list_posts_by_tag", err, time.Since(start))
	return posts, err
}
