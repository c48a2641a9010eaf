package pocketscience

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eringen/pocketscience/content"
)

func decode[T any](t *testing.T, body []byte) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(body, &v))
	return v
}

func TestAPIListPosts(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := get(app, "/api/posts")
	require.Equal(t, http.StatusOK, rec.Code)
	posts := decode[[]map[string]any](t, rec.Body.Bytes())
	require.Len(t, posts, 2)
	assert.Equal(t, "second", posts[0]["slug"])
	assert.Equal(t, "first", posts[1]["slug"])
	assert.Equal(t, "2024-02-01", posts[0]["publishDate"])
	assert.NotContains(t, posts[0], "content")
}

func TestAPIListPostsByTag(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	posts := decode[[]postSummary](t, get(app, "/api/posts?tag=go").Body.Bytes())
	require.Len(t, posts, 2)

	posts = decode[[]postSummary](t, get(app, "/api/posts?tag=WEB").Body.Bytes())
	require.Len(t, posts, 1)
	assert.Equal(t, "second", posts[0].Slug)

	rec := get(app, "/api/posts?tag=nothing")
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestAPIGetPost(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := get(app, "/api/posts/first")
	require.Equal(t, http.StatusOK, rec.Code)
	post := decode[content.Post](t, rec.Body.Bytes())
	assert.Equal(t, "First", post.Title)
	assert.Equal(t, "Ada", post.Author)
	assert.Equal(t, []string{"go", "machine learning"}, post.Tags)
	assert.Contains(t, post.Content, "Body of First.")
}

func TestAPIGetPostNotFound(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	rec := get(app, "/api/posts/missing")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"post not found"}`, rec.Body.String())
}

func TestAPISlugsRoundTrip(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	slugs := decode[[]string](t, get(app, "/api/slugs").Body.Bytes())
	assert.ElementsMatch(t, []string{"first", "second"}, slugs)
	for _, slug := range slugs {
		assert.Equal(t, http.StatusOK, get(app, "/api/posts/"+slug).Code, slug)
	}
}

func TestAPITags(t *testing.T) {
	app := newTestApp(t, testConfig(), nil)

	tags := decode[[]string](t, get(app, "/api/tags").Body.Bytes())
	assert.Equal(t, []string{"Go", "go", "machine learning", "web"}, tags)
}

func TestAPIStoreFailure(t *testing.T) {
	app := newTestApp(t, testConfig(), failingStore{})

	rec := get(app, "/api/posts")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal Server Error"}`, rec.Body.String())
}

func TestAPIRateLimit(t *testing.T) {
	cfg := testConfig()
	cfg.APIRateLimit = 2
	app := newTestApp(t, cfg, nil)

	first := get(app, "/api/slugs")
	assert.Equal(t, http.StatusOK, first.Code)
	assert.Equal(t, "1", first.Header().Get("X-RateLimit-Remaining"))
	assert.Equal(t, http.StatusOK, get(app, "/api/slugs").Code)

	rec := get(app, "/api/slugs")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "30", rec.Header().Get("Retry-After"))
	assert.JSONEq(t, `{"error":"rate limit exceeded"}`, rec.Body.String())

	req := httptest.NewRequest(http.MethodGet, "/api/slugs", nil)
	req.RemoteAddr = "198.51.100.7:4321"
	other := httptest.NewRecorder()
	app.Echo.ServeHTTP(other, req)
	assert.Equal(t, http.StatusOK, other.Code, "limit is per client IP")

	assert.Equal(t, http.StatusOK, get(app, "/").Code, "pages are not rate limited")
}
