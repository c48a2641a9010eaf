package pocketscience

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/eringen/pocketscience/content"
)

func mdFile(title, date string, tags ...string) *fstest.MapFile {
	quoted := make([]string, len(tags))
	for i, t := range tags {
		quoted[i] = fmt.Sprintf("%q", t)
	}
	body := fmt.Sprintf("---\ntitle: %s\ndescription: about %s\npublishDate: %s\nauthor: Ada\ntags: [%s]\n---\n## Heading\n\nBody of %s.\n",
		title, title, date, strings.Join(quoted, ", "), title)
	return &fstest.MapFile{Data: []byte(body)}
}

func testFiles() fstest.MapFS {
	return fstest.MapFS{
		"first.md":   mdFile("First", "2024-01-01", "go", "machine learning"),
		"second.mdx": mdFile("Second", "2024-02-01", "Go", "web"),
		"broken.md":  {Data: []byte("---\ntitle: Broken\n---\n")},
	}
}

func testConfig() SiteConfig {
	return SiteConfig{
		Name:         "Test Blog",
		URL:          "https://example.com",
		Description:  "A blog for tests",
		Author:       "Site Author",
		APIRateLimit: 1000,
	}
}

func newTestApp(t *testing.T, cfg SiteConfig, store content.Store) *App {
	t.Helper()
	logger := zaptest.NewLogger(t)
	if store == nil {
		store = content.NewFileStoreFS(testFiles(), "test", logger)
	}
	app := New(cfg, ViewFuncs{},
		WithStore(store),
		WithLogger(logger),
		WithStaticDir(t.TempDir()),
	)
	require.NoError(t, app.Init(context.Background()))
	t.Cleanup(func() { app.Close() })
	return app
}

func get(app *App, target string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	app.Echo.ServeHTTP(rec, req)
	return rec
}

// failingStore fails every call, standing in for an unreachable backend.
type failingStore struct{}

var errBackendDown = errors.New("backend down")

func (failingStore) ListPosts(context.Context) ([]content.Post, error) { return nil, errBackendDown }
func (failingStore) GetPost(context.Context, string) (*content.Post, error) {
	return nil, errBackendDown
}
func (failingStore) ListSlugs(context.Context) ([]string, error) { return nil, errBackendDown }
func (failingStore) ListPostsByTag(context.Context, string) ([]content.Post, error) {
	return nil, errBackendDown
}
