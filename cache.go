package pocketscience

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/eringen/pocketscience/content"
)

// PostCache is an in-memory TTL cache in front of a content.Store. It holds
// the full post list and answers every read from it. A slug missing from the
// cached list falls through to the store, so malformed records still surface
// as errors rather than as absences.
type PostCache struct {
	mu      sync.RWMutex
	posts   []content.Post
	fetched time.Time
	ttl     time.Duration
	store   content.Store
}

// NewPostCache creates a PostCache backed by the given Store.
func NewPostCache(s content.Store, ttl time.Duration) *PostCache {
	return &PostCache{store: s, ttl: ttl}
}

func (c *PostCache) valid() bool {
	return c.posts != nil && time.Since(c.fetched) < c.ttl
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *PostCache) Invalidate() {
	c.mu.Lock()
	c.posts = nil
	c.mu.Unlock()
	RecordCacheEvent("invalidate")
}

// ensureLoaded returns cached posts after ensuring the cache is fresh.
// It tries a read lock first; only takes a write lock if a reload is needed.
func (c *PostCache) ensureLoaded(ctx context.Context) ([]content.Post, error) {
	c.mu.RLock()
	if c.valid() {
		posts := c.posts
		c.mu.RUnlock()
		RecordCacheEvent("hit")
		return posts, nil
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.valid() {
		return c.posts, nil
	}
	posts, err := c.store.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	if posts == nil {
		posts = []content.Post{}
	}
	c.posts = posts
	c.fetched = time.Now()
	RecordCacheEvent("reload")
	return posts, nil
}

// ListPosts returns a copy of the cached posts, newest first.
func (c *PostCache) ListPosts(ctx context.Context) ([]content.Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return clonePosts(posts), nil
}

// GetPost returns the cached post for slug, asking the store on a miss.
func (c *PostCache) GetPost(ctx context.Context, slug string) (*content.Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	for _, p := range posts {
		if p.Slug == slug {
			p.Tags = slices.Clone(p.Tags)
			return &p, nil
		}
	}
	return c.store.GetPost(ctx, slug)
}

// ListSlugs returns the slugs of the cached posts.
func (c *PostCache) ListSlugs(ctx context.Context) ([]string, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs, nil
}

// ListPostsByTag filters the cached posts by tag, ignoring case.
func (c *PostCache) ListPostsByTag(ctx context.Context, tag string) ([]content.Post, error) {
	posts, err := c.ensureLoaded(ctx)
	if err != nil {
		return nil, err
	}
	return clonePosts(content.FilterByTag(posts, tag)), nil
}

// clonePosts copies posts deep enough that callers cannot reach the cache's
// tag slices.
func clonePosts(posts []content.Post) []content.Post {
	out := slices.Clone(posts)
	for i := range out {
		out[i].Tags = slices.Clone(out[i].Tags)
	}
	return out
}
