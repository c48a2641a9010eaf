package content

import (
	"context"
	"errors"
	"regexp"
	"testing"

	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pgColumns = []string{"slug", "title", "description", "publish_date", "author", "tags", "image", "content"}

func newMockPGStore(t *testing.T) (*PGStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPGStoreWithPool(mock, nil), mock
}

func TestPGStoreListPosts(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgListPostsQuery)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow("b", "B", "bee", "2024-03-01", "Ada", []string{"y"}, "", "").
			AddRow("a", "A", "ay", "2024-01-01", "Ada", []string{"x", "Y"}, "/a.png", "body"))

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, slugsOf(posts))
	assert.Equal(t, "/a.png", posts[1].Image)
	assert.Equal(t, []string{"x", "Y"}, posts[1].Tags)

	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListPostsSkipsMalformed(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgListPostsQuery)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow("good", "Good", "", "2024-01-01 00:00:00+00", "", []string{}, "", "").
			AddRow("bad", "", "", "2024-01-02", "", []string{}, "", ""))

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"good"}, slugsOf(posts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListPostsNonHourOffset(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgListPostsQuery)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow("india", "India", "", "2024-01-02 09:00:00+05:30", "", []string{}, "", "").
			AddRow("newfoundland", "Newfoundland", "", "2024-01-01 20:00:00.25-03:30", "", []string{}, "", ""))

	posts, err := s.ListPosts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"india", "newfoundland"}, slugsOf(posts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListPostsQueryError(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgListPostsQuery)).
		WillReturnError(errors.New("connection refused"))

	_, err := s.ListPosts(context.Background())
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	assert.Contains(t, err.Error(), "connection refused")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreListPostsByTag(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgListPostsQuery)).
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow("b", "B", "", "2024-03-01", "", []string{"y"}, "", "").
			AddRow("c", "C", "", "2024-02-01", "", []string{"z"}, "", "").
			AddRow("a", "A", "", "2024-01-01", "", []string{"x", "Y"}, "", ""))

	posts, err := s.ListPostsByTag(context.Background(), "Y")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "a"}, slugsOf(posts))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetPost(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgGetPostQuery)).
		WithArgs("hello").
		WillReturnRows(pgxmock.NewRows(pgColumns).
			AddRow("hello", "Hello", "desc", "2024-01-01", "Ada", []string{"go"}, "", "# Hi"))

	p, err := s.GetPost(context.Background(), "hello")
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "Hello", p.Title)
	assert.Equal(t, "# Hi", p.Content)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetPostNotFound(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgGetPostQuery)).
		WithArgs("missing").
		WillReturnRows(pgxmock.NewRows(pgColumns))

	p, err := s.GetPost(context.Background(), "missing")
	require.NoError(t, err)
	assert.Nil(t, p)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreGetPostQueryError(t *testing.T) {
	s, mock := newMockPGStore(t)

	mock.ExpectQuery(regexp.QuoteMeta(pgGetPostQuery)).
		WithArgs("hello").
		WillReturnError(errors.New("timeout"))

	_, err := s.GetPost(context.Background(), "hello")
	require.Error(t, err)
	assert.True(t, IsStoreError(err))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreSavePost(t *testing.T) {
	s, mock := newMockPGStore(t)
	p := Post{Slug: "hello", Title: "Hello", PublishDate: "2024-01-01", Tags: []string{"go"}}

	mock.ExpectExec(regexp.QuoteMeta(pgSavePostQuery)).
		WithArgs("hello", "Hello", "", "2024-01-01", "", []string{"go"}, "", "").
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, s.SavePost(context.Background(), p))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestPGStoreNilPool(t *testing.T) {
	s := NewPGStoreWithPool(nil, nil)
	_, err := s.ListPosts(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "database connection not available")
}
