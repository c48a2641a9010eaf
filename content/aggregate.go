package content

import (
	"context"
	"slices"
	"sort"
	"strings"

	"golang.org/x/text/cases"
)

// normalizeTag folds case so "Go", "GO" and "go" compare equal. A Caser
// keeps state, so each call gets its own.
func normalizeTag(t string) string {
	return cases.Fold().String(strings.TrimSpace(t))
}

// SortByDate orders posts newest first. Posts with equal dates keep their
// relative input order. The input slice is sorted in place and returned.
func SortByDate(posts []Post) []Post {
	dates := make(map[string]int64, len(posts))
	for _, p := range posts {
		if _, ok := dates[p.PublishDate]; !ok {
			dates[p.PublishDate] = p.Date().UnixNano()
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		return dates[posts[i].PublishDate] > dates[posts[j].PublishDate]
	})
	return posts
}

// FilterByTag returns the posts carrying tag, compared case-insensitively and
// exactly. Order is preserved. An empty tag matches nothing.
func FilterByTag(posts []Post, tag string) []Post {
	filtered := []Post{}
	if normalizeTag(tag) == "" {
		return filtered
	}
	for _, p := range posts {
		if p.HasTag(tag) {
			filtered = append(filtered, p)
		}
	}
	return filtered
}

// DistinctTags returns the union of all post tags sorted ascending. Tags that
// differ only in case are kept apart.
func DistinctTags(posts []Post) []string {
	set := make(map[string]struct{})
	for _, p := range posts {
		for _, t := range p.Tags {
			t = strings.TrimSpace(t)
			if t != "" {
				set[t] = struct{}{}
			}
		}
	}
	tags := make([]string, 0, len(set))
	for t := range set {
		tags = append(tags, t)
	}
	slices.Sort(tags)
	return tags
}

// ListTags loads every post from s and returns their distinct tags.
func ListTags(ctx context.Context, s Store) ([]string, error) {
	posts, err := s.ListPosts(ctx)
	if err != nil {
		return nil, err
	}
	return DistinctTags(posts), nil
}

// RelatedPosts returns posts sharing at least one tag with current, in input
// order, excluding current itself.
func RelatedPosts(current Post, posts []Post) []Post {
	tagSet := make(map[string]struct{})
	for _, t := range current.Tags {
		if tag := normalizeTag(t); tag != "" {
			tagSet[tag] = struct{}{}
		}
	}
	var related []Post
	for _, p := range posts {
		if p.Slug == current.Slug {
			continue
		}
		for _, t := range p.Tags {
			if _, ok := tagSet[normalizeTag(t)]; ok {
				related = append(related, p)
				break
			}
		}
	}
	return related
}

func slugsOf(posts []Post) []string {
	slugs := make([]string, 0, len(posts))
	for _, p := range posts {
		slugs = append(slugs, p.Slug)
	}
	return slugs
}
