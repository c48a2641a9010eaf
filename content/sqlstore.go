package content

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// SQLStore serves posts from a `posts` table in a local SQLite database.
type SQLStore struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewSQLStore opens (or creates) the SQLite database at path, ensures the data
// directory exists, and creates the posts table if needed.
func NewSQLStore(path string, logger *zap.Logger) (*SQLStore, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, storeErr(BackendSQLite, "open", err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, storeErr(BackendSQLite, "open", err)
	}
	// WAL lets readers proceed while an import writes; busy_timeout makes
	// writers wait instead of failing with SQLITE_BUSY.
	if _, err := db.Exec(`
		PRAGMA journal_mode=WAL;
		PRAGMA busy_timeout=5000;
		PRAGMA synchronous=NORMAL;
		PRAGMA cache_size=-8000;
	`); err != nil {
		db.Close()
		return nil, storeErr(BackendSQLite, "open", err)
	}
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)
	s := &SQLStore{db: db, logger: logger.With(zap.String("store", BackendSQLite))}
	if err := s.ensureSchema(); err != nil {
		db.Close()
		return nil, storeErr(BackendSQLite, "open", err)
	}
	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

func (s *SQLStore) ensureSchema() error {
	_, err := s.db.Exec(`
CREATE TABLE IF NOT EXISTS posts (
    slug TEXT PRIMARY KEY,
    title TEXT NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    publish_date TEXT NOT NULL,
    author TEXT NOT NULL DEFAULT '',
    tags TEXT NOT NULL DEFAULT ',',
    image TEXT NOT NULL DEFAULT '',
    content TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_posts_publish_date ON posts(publish_date);
`)
	return err
}

const sqlitePostColumns = `slug, title, description, publish_date, author, tags, image, content`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSQLitePost(r rowScanner) (Post, error) {
	var p Post
	var tags string
	if err := r.Scan(&p.Slug, &p.Title, &p.Description, &p.PublishDate, &p.Author, &tags, &p.Image, &p.Content); err != nil {
		return Post{}, err
	}
	p.Tags = splitTags(tags)
	return p, nil
}

// ListPosts returns every well-formed post ordered by publish date descending.
// Rows with equal dates keep insertion order.
func (s *SQLStore) ListPosts(ctx context.Context) ([]Post, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+sqlitePostColumns+` FROM posts ORDER BY publish_date DESC, rowid ASC`)
	if err != nil {
		return nil, storeErr(BackendSQLite, "list", err)
	}
	defer rows.Close()

	var posts []Post
	for rows.Next() {
		p, err := scanSQLitePost(rows)
		if err != nil {
			return nil, storeErr(BackendSQLite, "list", err)
		}
		if err := p.validate(); err != nil {
			s.logger.Warn("skipping malformed row", zap.String("slug", p.Slug), zap.Error(err))
			continue
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, storeErr(BackendSQLite, "list", err)
	}
	if posts == nil {
		posts = []Post{}
	}
	return SortByDate(posts), nil
}

// GetPost returns the post with slug, or nil if there is none.
func (s *SQLStore) GetPost(ctx context.Context, slug string) (*Post, error) {
	p, err := scanSQLitePost(s.db.QueryRowContext(ctx, `SELECT `+sqlitePostColumns+` FROM posts WHERE slug = ?`, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeErr(BackendSQLite, "get", err)
	}
	if err := p.validate(); err != nil {
		return nil, storeErr(BackendSQLite, "get", err)
	}
	return &p, nil
}

// ListSlugs returns the slugs of every well-formed post, newest first.
func (s *SQLStore) ListSlugs(ctx context.Context) ([]string, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return slugsOf(posts), nil
}

// ListPostsByTag returns posts carrying tag, newest first. Matching happens
// after the query so case folding is the same as every other store.
func (s *SQLStore) ListPostsByTag(ctx context.Context, tag string) ([]Post, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByTag(posts, tag), nil
}

// SavePost upserts a post. It is used by the import command; the Store
// contract itself is read-only.
func (s *SQLStore) SavePost(ctx context.Context, p Post) error {
	if err := p.validate(); err != nil {
		return storeErr(BackendSQLite, "save", err)
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO posts (`+sqlitePostColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(slug) DO UPDATE SET
    title = excluded.title,
    description = excluded.description,
    publish_date = excluded.publish_date,
    author = excluded.author,
    tags = excluded.tags,
    image = excluded.image,
    content = excluded.content`,
		p.Slug, p.Title, p.Description, p.PublishDate, p.Author, joinTags(p.Tags), p.Image, p.Content)
	return storeErr(BackendSQLite, "save", err)
}

// joinTags encodes tags as ",a,b," so a tag can be matched with instr().
// Commas inside a tag are dropped.
func joinTags(tags []string) string {
	cleaned := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(strings.ReplaceAll(t, ",", ""))
		if t != "" {
			cleaned = append(cleaned, t)
		}
	}
	return "," + strings.Join(cleaned, ",") + ","
}

// splitTags decodes a ",a,b," tag column into a slice.
func splitTags(tagString string) []string {
	tagString = strings.Trim(tagString, ",")
	if tagString == "" {
		return []string{}
	}
	parts := strings.Split(tagString, ",")
	out := parts[:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
