package content

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// PgxIface is the subset of *pgxpool.Pool PGStore needs. pgxmock pools
// satisfy it in tests.
type PgxIface interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// PGStore serves posts from a `posts` table in a hosted PostgreSQL database.
type PGStore struct {
	pool   PgxIface
	close  func()
	logger *zap.Logger
}

const pgPostColumns = `slug, title, COALESCE(description, ''), publish_date::text, COALESCE(author, ''), COALESCE(tags, '{}'), COALESCE(image, ''), COALESCE(content, '')`

const (
	pgListPostsQuery = `SELECT ` + pgPostColumns + ` FROM posts ORDER BY publish_date DESC`
	pgGetPostQuery   = `SELECT ` + pgPostColumns + ` FROM posts WHERE slug = $1`
	pgSavePostQuery  = `INSERT INTO posts (slug, title, description, publish_date, author, tags, image, content)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
ON CONFLICT (slug) DO UPDATE SET
    title = EXCLUDED.title,
    description = EXCLUDED.description,
    publish_date = EXCLUDED.publish_date,
    author = EXCLUDED.author,
    tags = EXCLUDED.tags,
    image = EXCLUDED.image,
    content = EXCLUDED.content`
	pgSchema = `CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    publish_date TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    tags TEXT[] NOT NULL DEFAULT '{}',
    image TEXT,
    content TEXT
)`
)

// NewPGStore connects to the database at dsn and pings it.
func NewPGStore(ctx context.Context, dsn string, logger *zap.Logger) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, storeErr(BackendPostgres, "open", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, storeErr(BackendPostgres, "open", err)
	}
	s := NewPGStoreWithPool(pool, logger)
	s.close = pool.Close
	return s, nil
}

// NewPGStoreWithPool wraps an existing pool. The caller keeps ownership of it.
func NewPGStoreWithPool(pool PgxIface, logger *zap.Logger) *PGStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PGStore{pool: pool, logger: logger.With(zap.String("store", BackendPostgres))}
}

// Close releases the pool if the store opened it.
func (s *PGStore) Close() error {
	if s.close != nil {
		s.close()
	}
	return nil
}

// EnsureSchema creates the posts table if it does not exist.
func (s *PGStore) EnsureSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, pgSchema)
	return storeErr(BackendPostgres, "schema", err)
}

func scanPGPost(r pgx.Row) (Post, error) {
	var p Post
	err := r.Scan(&p.Slug, &p.Title, &p.Description, &p.PublishDate, &p.Author, &p.Tags, &p.Image, &p.Content)
	if p.Tags == nil {
		p.Tags = []string{}
	}
	return p, err
}

// ListPosts returns every well-formed post ordered by publish date descending.
func (s *PGStore) ListPosts(ctx context.Context) ([]Post, error) {
	if s.pool == nil {
		return nil, storeErr(BackendPostgres, "list", errors.New("database connection not available"))
	}
	rows, err := s.pool.Query(ctx, pgListPostsQuery)
	if err != nil {
		return nil, storeErr(BackendPostgres, "list", err)
	}
	defer rows.Close()

	posts := []Post{}
	for rows.Next() {
		p, err := scanPGPost(rows)
		if err != nil {
			return nil, storeErr(BackendPostgres, "list", err)
		}
		if err := p.validate(); err != nil {
			s.logger.Warn("skipping malformed row", zap.String("slug", p.Slug), zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(BackendPostgres, "list", err)
	}
	return SortByDate(posts), nil
}

// GetPost returns the post with slug, or nil if there is none.
func (s *PGStore) GetPost(ctx context.Context, slug string) (*Post, error) {
	if s.pool == nil {
		return nil, storeErr(BackendPostgres, "get", errors.New("database connection not available"))
	}
	p, err := scanPGPost(s.pool.QueryRow(ctx, pgGetPostQuery, slug))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(BackendPostgres, "get", err)
	}
	if err := p.validate(); err != nil {
		return nil, storeErr(BackendPostgres, "get", err)
	}
	return &p, nil
}

// ListSlugs returns the slugs of every well-formed post, newest first.
func (s *PGStore) ListSlugs(ctx context.Context) ([]string, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return slugsOf(posts), nil
}

// ListPostsByTag returns posts carrying tag, newest first.
func (s *PGStore) ListPostsByTag(ctx context.Context, tag string) ([]Post, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByTag(posts, tag), nil
}

// SavePost upserts a post. Used by the import command.
func (s *PGStore) SavePost(ctx context.Context, p Post) error {
	if err := p.validate(); err != nil {
		return storeErr(BackendPostgres, "save", err)
	}
	tags := p.Tags
	if tags == nil {
		tags = []string{}
	}
	_, err := s.pool.Exec(ctx, pgSavePostQuery,
		p.Slug, p.Title, p.Description, p.PublishDate, p.Author, tags, p.Image, p.Content)
	return storeErr(BackendPostgres, "save", err)
}
