package content

import (
	"bytes"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// frontMatter is the YAML block at the top of a content file.
type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	PublishDate string   `yaml:"publishDate"`
	Author      string   `yaml:"author"`
	Tags        []string `yaml:"tags"`
	Image       string   `yaml:"image"`
}

var fmDelim = []byte("---")

// ParseDocument splits a content file into its front matter and body and
// returns the resulting Post. The slug is supplied by the caller since it
// comes from the file name.
func ParseDocument(slug string, data []byte) (Post, error) {
	data = bytes.TrimPrefix(data, []byte("\ufeff"))
	data = bytes.ReplaceAll(data, []byte("\r\n"), []byte("\n"))
	if !bytes.HasPrefix(data, fmDelim) {
		return Post{}, fmt.Errorf("%w: %s: missing front matter", ErrMalformed, slug)
	}
	rest := data[len(fmDelim):]
	nl := bytes.IndexByte(rest, '\n')
	if nl < 0 || len(bytes.TrimSpace(rest[:nl])) != 0 {
		return Post{}, fmt.Errorf("%w: %s: missing front matter", ErrMalformed, slug)
	}
	rest = rest[nl+1:]

	var header, body []byte
	switch {
	case bytes.HasPrefix(rest, fmDelim):
		body = rest[len(fmDelim):]
	default:
		end := bytes.Index(rest, []byte("\n---"))
		if end < 0 {
			return Post{}, fmt.Errorf("%w: %s: unterminated front matter", ErrMalformed, slug)
		}
		header = rest[:end]
		body = rest[end+len("\n---"):]
	}
	if i := bytes.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	} else {
		body = nil
	}

	var fm frontMatter
	if err := yaml.Unmarshal(header, &fm); err != nil {
		return Post{}, fmt.Errorf("%w: %s: front matter: %v", ErrMalformed, slug, err)
	}

	p := Post{
		Slug:        slug,
		Title:       strings.TrimSpace(fm.Title),
		Description: strings.TrimSpace(fm.Description),
		PublishDate: strings.TrimSpace(fm.PublishDate),
		Author:      strings.TrimSpace(fm.Author),
		Tags:        cleanTags(fm.Tags),
		Image:       strings.TrimSpace(fm.Image),
		Content:     strings.TrimLeft(string(body), "\n"),
	}
	if err := p.validate(); err != nil {
		return Post{}, err
	}
	return p, nil
}

// cleanTags trims tags and drops empty ones, keeping display order.
func cleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}
