package content

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func slugs(posts []Post) []string {
	return slugsOf(posts)
}

func TestSortByDate(t *testing.T) {
	posts := []Post{
		{Slug: "old", PublishDate: "2023-05-01"},
		{Slug: "tie-a", PublishDate: "2024-02-01"},
		{Slug: "new", PublishDate: "2024-03-01T09:30:00Z"},
		{Slug: "tie-b", PublishDate: "2024-02-01"},
		{Slug: "tie-c", PublishDate: "2024-02-01T00:00:00Z"},
	}
	got := slugs(SortByDate(posts))
	want := []string{"new", "tie-a", "tie-b", "tie-c", "old"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("SortByDate mismatch (-want +got):\n%s", diff)
	}
}

func TestSortByDateEmpty(t *testing.T) {
	if got := SortByDate(nil); len(got) != 0 {
		t.Errorf("SortByDate(nil) = %v, want empty", got)
	}
}

func TestFilterByTag(t *testing.T) {
	posts := []Post{
		{Slug: "b", Tags: []string{"y"}},
		{Slug: "a", Tags: []string{"x", "Y"}},
		{Slug: "c", Tags: []string{"golang"}},
		{Slug: "d"},
	}
	tests := []struct {
		tag  string
		want []string
	}{
		{"Y", []string{"b", "a"}},
		{"y", []string{"b", "a"}},
		{"X", []string{"a"}},
		{" golang ", []string{"c"}},
		{"go", []string{}},
		{"", []string{}},
		{"missing", []string{}},
	}
	for _, tt := range tests {
		got := slugs(FilterByTag(posts, tt.tag))
		if diff := cmp.Diff(tt.want, got); diff != "" {
			t.Errorf("FilterByTag(%q) mismatch (-want +got):\n%s", tt.tag, diff)
		}
	}
}

func TestFilterByTagUnicodeFold(t *testing.T) {
	posts := []Post{{Slug: "s", Tags: []string{"Straße"}}}
	if got := FilterByTag(posts, "STRASSE"); len(got) != 1 {
		t.Errorf("FilterByTag(STRASSE) = %v, want one match", slugs(got))
	}
}

func TestDistinctTags(t *testing.T) {
	posts := []Post{
		{Tags: []string{"x", "Y"}},
		{Tags: []string{"y", "x"}},
		{Tags: []string{"go", " ", "api"}},
		{},
	}
	got := DistinctTags(posts)
	want := []string{"Y", "api", "go", "x", "y"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("DistinctTags mismatch (-want +got):\n%s", diff)
	}
}

func TestDistinctTagsEmpty(t *testing.T) {
	got := DistinctTags(nil)
	if got == nil || len(got) != 0 {
		t.Errorf("DistinctTags(nil) = %#v, want empty non-nil slice", got)
	}
}

func TestRelatedPosts(t *testing.T) {
	current := Post{Slug: "cur", Tags: []string{"Go"}}
	posts := []Post{
		{Slug: "cur", Tags: []string{"go"}},
		{Slug: "one", Tags: []string{"rust", "GO"}},
		{Slug: "two", Tags: []string{"rust"}},
		{Slug: "three", Tags: []string{"go"}},
	}
	got := slugs(RelatedPosts(current, posts))
	want := []string{"one", "three"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("RelatedPosts mismatch (-want +got):\n%s", diff)
	}
}

func TestParseDate(t *testing.T) {
	valid := []string{
		"2024-01-01",
		"2024-01-01T10:00:00Z",
		"2024-01-01T10:00:00+02:00",
		"2024-01-01 10:00:00+00",
		"2024-01-01 10:00:00+05:30",
		"2024-01-01 10:00:00.5+05:30",
		"2024-01-01 10:00:00.123456-03:30",
		" 2024-01-01 ",
	}
	for _, s := range valid {
		if _, err := ParseDate(s); err != nil {
			t.Errorf("ParseDate(%q) unexpected error: %v", s, err)
		}
	}
	invalid := []string{"", "yesterday", "01/02/2024", "2024-13-01"}
	for _, s := range invalid {
		if _, err := ParseDate(s); err == nil {
			t.Errorf("ParseDate(%q) expected error", s)
		}
	}
}

func TestParseDateHalfHourOffset(t *testing.T) {
	got, err := ParseDate("2024-01-01 10:00:00+05:30")
	if err != nil {
		t.Fatalf("ParseDate: %v", err)
	}
	want := time.Date(2024, 1, 1, 4, 30, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDate = %v, want %v", got.UTC(), want)
	}
}

func TestValidSlug(t *testing.T) {
	tests := []struct {
		slug string
		want bool
	}{
		{"hello-world", true},
		{"Post_2", true},
		{"2024-recap", true},
		{"", false},
		{"../etc/passwd", false},
		{"a/b", false},
		{"dot.md", false},
		{"-leading", false},
		{"with space", false},
	}
	for _, tt := range tests {
		if got := ValidSlug(tt.slug); got != tt.want {
			t.Errorf("ValidSlug(%q) = %v, want %v", tt.slug, got, tt.want)
		}
	}
}
