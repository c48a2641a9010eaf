// Package content loads blog posts from a backing store and provides the
// sorting, tag filtering and tag aggregation the site renders from.
//
// Three stores implement the same Store contract: FileStore reads markdown
// files with YAML front matter, SQLStore reads a local SQLite table and
// PGStore reads a hosted PostgreSQL table. Callers pick one at startup.
package content

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Post is a single piece of content. It is read-only once loaded.
type Post struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PublishDate string   `json:"publishDate"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image,omitempty"`
	Content     string   `json:"content,omitempty"`
}

// Link returns the site-relative URL of the post.
func (p Post) Link() string {
	return "/blog/" + p.Slug + "/"
}

// Date returns the parsed publish date, or the zero time if it does not parse.
func (p Post) Date() time.Time {
	t, _ := ParseDate(p.PublishDate)
	return t
}

// HasTag reports whether any of the post's tags equals tag, ignoring case.
func (p Post) HasTag(tag string) bool {
	want := normalizeTag(tag)
	if want == "" {
		return false
	}
	for _, t := range p.Tags {
		if normalizeTag(t) == want {
			return true
		}
	}
	return false
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05-07",
	"2006-01-02 15:04:05.999999-07",
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02 15:04:05.999999Z07:00",
}

// ParseDate parses an ISO publish date. Plain dates, RFC 3339 timestamps and
// PostgreSQL's text rendering of timestamptz are accepted.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unparseable publish date %q", ErrMalformed, s)
}

var slugPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_-]*$`)

// ValidSlug reports whether s is shaped like a slug. It never contains path
// separators, dots or whitespace.
func ValidSlug(s string) bool {
	return len(s) <= 200 && slugPattern.MatchString(s)
}

// validate checks the fields every post must carry.
func (p Post) validate() error {
	if !ValidSlug(p.Slug) {
		return fmt.Errorf("%w: invalid slug %q", ErrMalformed, p.Slug)
	}
	if strings.TrimSpace(p.Title) == "" {
		return fmt.Errorf("%w: %s: missing title", ErrMalformed, p.Slug)
	}
	if _, err := ParseDate(p.PublishDate); err != nil {
		return fmt.Errorf("%s: %w", p.Slug, err)
	}
	return nil
}
