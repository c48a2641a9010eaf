package content

import "context"

// Store is the read-only contract every content backend implements.
//
// ListPosts returns posts newest first; ties keep the backend's natural order.
// GetPost returns (nil, nil) when no post has the slug. ListSlugs returns only
// slugs that GetPost resolves. ListPostsByTag is ListPosts narrowed to posts
// carrying tag, compared case-insensitively.
type Store interface {
	ListPosts(ctx context.Context) ([]Post, error)
	GetPost(ctx context.Context, slug string) (*Post, error)
	ListSlugs(ctx context.Context) ([]string, error)
	ListPostsByTag(ctx context.Context, tag string) ([]Post, error)
}

// Backend names accepted by configuration.
const (
	BackendFS       = "fs"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
)
