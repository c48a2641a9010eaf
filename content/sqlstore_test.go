package content

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func setupTestSQLStore(t *testing.T) *SQLStore {
	t.Helper()
	path := filepath.Join(t.TempDir(), "data", "test_blog.db")

	s, err := NewSQLStore(path, nil)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func savePosts(t *testing.T, s *SQLStore, posts ...Post) {
	t.Helper()
	for _, p := range posts {
		if err := s.SavePost(context.Background(), p); err != nil {
			t.Fatalf("SavePost(%s) failed: %v", p.Slug, err)
		}
	}
}

func TestNewSQLStore(t *testing.T) {
	s := setupTestSQLStore(t)
	if s.db == nil {
		t.Fatal("db should not be nil")
	}
}

func TestSQLStoreSaveAndGetPost(t *testing.T) {
	s := setupTestSQLStore(t)
	post := Post{
		Slug:        "test-post",
		Title:       "Test Post",
		Description: "A test post summary",
		PublishDate: "2024-01-15",
		Author:      "Ada",
		Tags:        []string{"Go", "testing"},
		Image:       "/img/test.jpg",
		Content:     "# Test Content\n\nThis is test content.",
	}
	savePosts(t, s, post)

	got, err := s.GetPost(context.Background(), "test-post")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got == nil {
		t.Fatal("GetPost returned nil for saved post")
	}
	if got.Title != post.Title {
		t.Errorf("Title = %q, want %q", got.Title, post.Title)
	}
	if got.Description != post.Description {
		t.Errorf("Description = %q, want %q", got.Description, post.Description)
	}
	if got.PublishDate != post.PublishDate {
		t.Errorf("PublishDate = %q, want %q", got.PublishDate, post.PublishDate)
	}
	if got.Author != post.Author {
		t.Errorf("Author = %q, want %q", got.Author, post.Author)
	}
	if got.Image != post.Image {
		t.Errorf("Image = %q, want %q", got.Image, post.Image)
	}
	if got.Content != post.Content {
		t.Errorf("Content = %q, want %q", got.Content, post.Content)
	}
	if len(got.Tags) != 2 || got.Tags[0] != "Go" || got.Tags[1] != "testing" {
		t.Errorf("Tags = %v, want [Go testing]", got.Tags)
	}
}

func TestSQLStoreSavePostUpdate(t *testing.T) {
	s := setupTestSQLStore(t)
	post := Post{Slug: "update-test", Title: "Original Title", PublishDate: "2024-01-01", Tags: []string{"original"}}
	savePosts(t, s, post)

	post.Title = "Updated Title"
	post.Tags = []string{"updated", "modified"}
	savePosts(t, s, post)

	got, err := s.GetPost(context.Background(), "update-test")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if got.Title != "Updated Title" {
		t.Errorf("Title = %q, want %q", got.Title, "Updated Title")
	}
	if len(got.Tags) != 2 {
		t.Errorf("Tags count = %d, want 2", len(got.Tags))
	}
}

func TestSQLStoreSavePostRejectsMalformed(t *testing.T) {
	s := setupTestSQLStore(t)
	err := s.SavePost(context.Background(), Post{Slug: "x", Title: "X", PublishDate: "soon"})
	if !errors.Is(err, ErrMalformed) {
		t.Errorf("SavePost with bad date: got %v, want ErrMalformed", err)
	}
}

func TestSQLStoreGetPostNotFound(t *testing.T) {
	s := setupTestSQLStore(t)
	got, err := s.GetPost(context.Background(), "nonexistent")
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if got != nil {
		t.Errorf("expected nil post, got %+v", got)
	}
}

func TestSQLStoreListPosts(t *testing.T) {
	s := setupTestSQLStore(t)
	savePosts(t, s,
		Post{Slug: "post-1", Title: "Post 1", PublishDate: "2024-01-01", Tags: []string{"go"}},
		Post{Slug: "post-2", Title: "Post 2", PublishDate: "2024-01-03", Tags: []string{"go", "web"}},
		Post{Slug: "post-3", Title: "Post 3", PublishDate: "2024-01-02", Tags: []string{"rust"}},
		Post{Slug: "post-4", Title: "Post 4", PublishDate: "2024-01-02", Tags: []string{"rust"}},
	)

	got, err := s.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	want := []string{"post-2", "post-3", "post-4", "post-1"}
	gotSlugs := slugsOf(got)
	if len(gotSlugs) != len(want) {
		t.Fatalf("ListPosts = %v, want %v", gotSlugs, want)
	}
	for i := range want {
		if gotSlugs[i] != want[i] {
			t.Errorf("ListPosts[%d] = %q, want %q", i, gotSlugs[i], want[i])
		}
	}
}

func TestSQLStoreSkipsMalformedRows(t *testing.T) {
	s := setupTestSQLStore(t)
	savePosts(t, s, Post{Slug: "good", Title: "Good", PublishDate: "2024-01-01"})
	if _, err := s.db.Exec(`INSERT INTO posts (slug, title, publish_date) VALUES ('bad', 'Bad', 'not a date')`); err != nil {
		t.Fatalf("insert malformed row: %v", err)
	}

	got, err := s.ListPosts(context.Background())
	if err != nil {
		t.Fatalf("ListPosts failed: %v", err)
	}
	if len(got) != 1 || got[0].Slug != "good" {
		t.Errorf("ListPosts = %v, want [good]", slugsOf(got))
	}

	_, err = s.GetPost(context.Background(), "bad")
	if !IsStoreError(err) || !errors.Is(err, ErrMalformed) {
		t.Errorf("GetPost(bad) = %v, want StoreError wrapping ErrMalformed", err)
	}
}

func TestSQLStoreListPostsByTag(t *testing.T) {
	s := setupTestSQLStore(t)
	savePosts(t, s,
		Post{Slug: "a", Title: "A", PublishDate: "2024-01-01", Tags: []string{"x", "Y"}},
		Post{Slug: "b", Title: "B", PublishDate: "2024-03-01", Tags: []string{"y"}},
		Post{Slug: "c", Title: "C", PublishDate: "2024-02-01", Tags: []string{"yy"}},
	)

	tests := []struct {
		tag  string
		want []string
	}{
		{"Y", []string{"b", "a"}},
		{"x", []string{"a"}},
		{"YY", []string{"c"}},
		{"nonexistent", nil},
		{"", nil},
	}
	for _, tt := range tests {
		got, err := s.ListPostsByTag(context.Background(), tt.tag)
		if err != nil {
			t.Fatalf("ListPostsByTag(%q) failed: %v", tt.tag, err)
		}
		if got == nil {
			t.Errorf("ListPostsByTag(%q) returned nil slice", tt.tag)
		}
		gotSlugs := slugsOf(got)
		if len(gotSlugs) != len(tt.want) {
			t.Errorf("ListPostsByTag(%q) = %v, want %v", tt.tag, gotSlugs, tt.want)
			continue
		}
		for i := range tt.want {
			if gotSlugs[i] != tt.want[i] {
				t.Errorf("ListPostsByTag(%q)[%d] = %q, want %q", tt.tag, i, gotSlugs[i], tt.want[i])
			}
		}
	}
}

func TestSQLStoreListSlugsRoundTrip(t *testing.T) {
	s := setupTestSQLStore(t)
	savePosts(t, s,
		Post{Slug: "one", Title: "One", PublishDate: "2024-01-01"},
		Post{Slug: "two", Title: "Two", PublishDate: "2024-02-01"},
	)
	slugList, err := s.ListSlugs(context.Background())
	if err != nil {
		t.Fatalf("ListSlugs failed: %v", err)
	}
	if len(slugList) != 2 {
		t.Fatalf("ListSlugs = %v, want 2 slugs", slugList)
	}
	for _, slug := range slugList {
		p, err := s.GetPost(context.Background(), slug)
		if err != nil || p == nil {
			t.Errorf("GetPost(%q) = %v, %v; want post", slug, p, err)
		}
	}
}

func TestSQLStoreEmptyTags(t *testing.T) {
	s := setupTestSQLStore(t)
	savePosts(t, s, Post{Slug: "no-tags", Title: "No Tags", PublishDate: "2024-01-01", Tags: []string{}})

	got, err := s.GetPost(context.Background(), "no-tags")
	if err != nil {
		t.Fatalf("GetPost failed: %v", err)
	}
	if len(got.Tags) != 0 {
		t.Errorf("Tags should be empty, got %v", got.Tags)
	}
}

func TestSplitAndJoinTags(t *testing.T) {
	tests := []struct {
		input string
		want  []string
	}{
		{"", nil},
		{",", nil},
		{",go,", []string{"go"}},
		{",go,Web,", []string{"go", "Web"}},
		{",go, web ,rust,", []string{"go", "web", "rust"}},
	}
	for _, tt := range tests {
		got := splitTags(tt.input)
		if len(got) != len(tt.want) {
			t.Errorf("splitTags(%q) = %v, want %v", tt.input, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitTags(%q)[%d] = %q, want %q", tt.input, i, got[i], tt.want[i])
			}
		}
	}

	if got := joinTags([]string{" a ", "b,c", ""}); got != ",a,bc," {
		t.Errorf("joinTags = %q, want %q", got, ",a,bc,")
	}
}
