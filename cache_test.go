package pocketscience

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience/content"
)

// countingStore counts calls on the wrapped store.
type countingStore struct {
	content.Store
	lists atomic.Int32
	gets  atomic.Int32
	fail  atomic.Bool
}

func (s *countingStore) ListPosts(ctx context.Context) ([]content.Post, error) {
	s.lists.Add(1)
	if s.fail.Load() {
		return nil, errBackendDown
	}
	return s.Store.ListPosts(ctx)
}

func (s *countingStore) GetPost(ctx context.Context, slug string) (*content.Post, error) {
	s.gets.Add(1)
	return s.Store.GetPost(ctx, slug)
}

func newCountingStore() *countingStore {
	return &countingStore{Store: content.NewFileStoreFS(testFiles(), "test", zap.NewNop())}
}

func TestPostCacheServesFromMemory(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	cache := NewPostCache(backing, time.Minute)

	for i := 0; i < 3; i++ {
		posts, err := cache.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
	}
	slugs, err := cache.ListSlugs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"second", "first"}, slugs)

	tagged, err := cache.ListPostsByTag(ctx, "GO")
	require.NoError(t, err)
	assert.Len(t, tagged, 2)

	p, err := cache.GetPost(ctx, "first")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "First", p.Title)

	assert.EqualValues(t, 1, backing.lists.Load())
	assert.EqualValues(t, 0, backing.gets.Load())
}

func TestPostCacheInvalidate(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	cache := NewPostCache(backing, time.Minute)

	_, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	cache.Invalidate()
	_, err = cache.ListPosts(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, backing.lists.Load())
}

func TestPostCacheExpires(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	cache := NewPostCache(backing, 10*time.Millisecond)

	_, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)
	_, err = cache.ListPosts(ctx)
	require.NoError(t, err)

	assert.EqualValues(t, 2, backing.lists.Load())
}

func TestPostCacheMissFallsThrough(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	cache := NewPostCache(backing, time.Minute)

	p, err := cache.GetPost(ctx, "missing")
	require.NoError(t, err)
	assert.Nil(t, p)

	_, err = cache.GetPost(ctx, "broken")
	require.Error(t, err)
	assert.True(t, content.IsStoreError(err), "malformed post must not look absent")

	assert.EqualValues(t, 2, backing.gets.Load())
}

func TestPostCacheReturnsCopies(t *testing.T) {
	ctx := context.Background()
	cache := NewPostCache(newCountingStore(), time.Minute)

	posts, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	posts[0].Title = "changed"

	p, err := cache.GetPost(ctx, posts[0].Slug)
	require.NoError(t, err)
	p.Tags[0] = "changed"

	again, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Second", again[0].Title)
	assert.Equal(t, "Go", again[0].Tags[0])
}

func TestPostCacheListsDoNotShareTags(t *testing.T) {
	ctx := context.Background()
	cache := NewPostCache(newCountingStore(), time.Minute)

	posts, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	posts[0].Tags[0] = "listed"

	tagged, err := cache.ListPostsByTag(ctx, "web")
	require.NoError(t, err)
	require.Len(t, tagged, 1)
	assert.Equal(t, "Go", tagged[0].Tags[0])
	tagged[0].Tags[1] = "filtered"

	again, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Go", "web"}, again[0].Tags)
}

func TestPostCacheDoesNotCacheErrors(t *testing.T) {
	ctx := context.Background()
	backing := newCountingStore()
	backing.fail.Store(true)
	cache := NewPostCache(backing, time.Minute)

	_, err := cache.ListPosts(ctx)
	require.ErrorIs(t, err, errBackendDown)

	backing.fail.Store(false)
	posts, err := cache.ListPosts(ctx)
	require.NoError(t, err)
	assert.Len(t, posts, 2)
}

func TestWatchedCacheSeesNewPosts(t *testing.T) {
	dir := t.TempDir()
	write := func(name, title string) {
		data := "---\ntitle: " + title + "\npublishDate: 2024-01-01\n---\nbody\n"
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644))
	}
	write("one.md", "One")

	cfg := testConfig()
	cfg.ContentDir = dir
	cfg.PostCacheTTL = time.Hour
	cfg.WatchContent = true
	app := newTestApp(t, cfg, content.NewFileStore(dir, zap.NewNop()))
	require.NotNil(t, app.Cache)
	require.NotNil(t, app.watcher)

	require.Contains(t, get(app, "/").Body.String(), "One")
	write("two.md", "Two")

	require.Eventually(t, func() bool {
		return strings.Contains(get(app, "/").Body.String(), `href="/blog/two/"`)
	}, 3*time.Second, 50*time.Millisecond)
}
