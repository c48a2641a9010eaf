package content

import (
	"context"
	"io/fs"
	"os"
	"path"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ContentExts are the file extensions FileStore treats as posts.
var ContentExts = []string{".md", ".mdx"}

const defaultLoadConcurrency = 8

// FileStore serves posts from a directory of markdown files with YAML front
// matter. The file name minus extension is the slug.
//
// Files that cannot be read or parsed are skipped by list operations with a
// warning. A missing or unreadable directory fails the whole call.
type FileStore struct {
	fsys   fs.FS
	dir    string
	logger *zap.Logger
	limit  int
}

// NewFileStore returns a FileStore rooted at dir.
func NewFileStore(dir string, logger *zap.Logger) *FileStore {
	return NewFileStoreFS(os.DirFS(dir), dir, logger)
}

// NewFileStoreFS returns a FileStore reading from fsys. name is only used in
// log messages.
func NewFileStoreFS(fsys fs.FS, name string, logger *zap.Logger) *FileStore {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileStore{
		fsys:   fsys,
		dir:    name,
		logger: logger.With(zap.String("store", BackendFS), zap.String("dir", name)),
		limit:  defaultLoadConcurrency,
	}
}

// Dir returns the directory the store was opened on.
func (s *FileStore) Dir() string {
	return s.dir
}

type fileEntry struct {
	slug string
	name string
}

// entries enumerates the content files in directory order. This is the closed
// set of slugs GetPost is allowed to open. A slug may appear more than once
// (post.md and post.mdx); the first file that parses wins.
func (s *FileStore) entries() ([]fileEntry, error) {
	des, err := fs.ReadDir(s.fsys, ".")
	if err != nil {
		return nil, err
	}
	out := make([]fileEntry, 0, len(des))
	for _, de := range des {
		if de.IsDir() {
			continue
		}
		name := de.Name()
		ext := path.Ext(name)
		if !isContentExt(ext) {
			continue
		}
		slug := strings.TrimSuffix(name, ext)
		if !ValidSlug(slug) {
			s.logger.Warn("skipping content file with invalid slug", zap.String("file", name))
			continue
		}
		out = append(out, fileEntry{slug: slug, name: name})
	}
	return out, nil
}

func isContentExt(ext string) bool {
	for _, e := range ContentExts {
		if strings.EqualFold(e, ext) {
			return true
		}
	}
	return false
}

func (s *FileStore) load(e fileEntry) (Post, error) {
	data, err := fs.ReadFile(s.fsys, e.name)
	if err != nil {
		return Post{}, err
	}
	return ParseDocument(e.slug, data)
}

// ListPosts loads every well-formed post, newest first.
func (s *FileStore) ListPosts(ctx context.Context) ([]Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(BackendFS, "list", err)
	}
	entries, err := s.entries()
	if err != nil {
		return nil, storeErr(BackendFS, "list", err)
	}

	loaded := make([]*Post, len(entries))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.limit)
	for i, e := range entries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := s.load(e)
			if err != nil {
				s.logger.Warn("skipping unreadable post", zap.String("slug", e.slug), zap.Error(err))
				return nil
			}
			loaded[i] = &p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, storeErr(BackendFS, "list", err)
	}

	seen := make(map[string]string, len(loaded))
	posts := make([]Post, 0, len(loaded))
	for i, p := range loaded {
		if p == nil {
			continue
		}
		if kept, dup := seen[p.Slug]; dup {
			s.logger.Warn("skipping duplicate slug",
				zap.String("slug", p.Slug), zap.String("file", entries[i].name), zap.String("kept", kept))
			continue
		}
		seen[p.Slug] = entries[i].name
		posts = append(posts, *p)
	}
	return SortByDate(posts), nil
}

// GetPost loads the post with the given slug. Slugs outside the enumerated
// directory listing are reported absent without touching the filesystem.
func (s *FileStore) GetPost(ctx context.Context, slug string) (*Post, error) {
	if err := ctx.Err(); err != nil {
		return nil, storeErr(BackendFS, "get", err)
	}
	if !ValidSlug(slug) {
		return nil, nil
	}
	entries, err := s.entries()
	if err != nil {
		return nil, storeErr(BackendFS, "get", err)
	}
	var loadErr error
	for _, e := range entries {
		if e.slug != slug {
			continue
		}
		p, err := s.load(e)
		if err != nil {
			s.logger.Warn("failed to load post", zap.String("slug", slug), zap.String("file", e.name), zap.Error(err))
			if loadErr == nil {
				loadErr = err
			}
			continue
		}
		return &p, nil
	}
	if loadErr != nil {
		return nil, storeErr(BackendFS, "get", loadErr)
	}
	return nil, nil
}

// ListSlugs returns the slugs of every loadable post, newest first.
func (s *FileStore) ListSlugs(ctx context.Context) ([]string, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return slugsOf(posts), nil
}

// ListPostsByTag returns posts carrying tag, newest first.
func (s *FileStore) ListPostsByTag(ctx context.Context, tag string) ([]Post, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return FilterByTag(posts, tag), nil
}
