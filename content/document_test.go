package content

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDoc = `---
title: "Hello, World"
description: First post
publishDate: 2024-01-01
author: Ada
tags: [x, Y]
image: /images/hello.jpg
---

# Heading

Body text.
`

func TestParseDocument(t *testing.T) {
	p, err := ParseDocument("hello-world", []byte(sampleDoc))
	require.NoError(t, err)

	assert.Equal(t, "hello-world", p.Slug)
	assert.Equal(t, "Hello, World", p.Title)
	assert.Equal(t, "First post", p.Description)
	assert.Equal(t, "2024-01-01", p.PublishDate)
	assert.Equal(t, "Ada", p.Author)
	assert.Equal(t, []string{"x", "Y"}, p.Tags)
	assert.Equal(t, "/images/hello.jpg", p.Image)
	assert.Equal(t, "# Heading\n\nBody text.\n", p.Content)
	assert.Equal(t, "/blog/hello-world/", p.Link())
}

func TestParseDocumentCRLFAndNoImage(t *testing.T) {
	doc := "---\r\ntitle: T\r\npublishDate: 2024-03-01\r\ntags:\r\n  - go\r\n---\r\nbody\r\n"
	p, err := ParseDocument("crlf", []byte(doc))
	require.NoError(t, err)
	assert.Equal(t, "T", p.Title)
	assert.Equal(t, []string{"go"}, p.Tags)
	assert.Empty(t, p.Image)
	assert.Equal(t, "body\n", p.Content)
}

func TestParseDocumentEmptyBody(t *testing.T) {
	p, err := ParseDocument("empty", []byte("---\ntitle: T\npublishDate: 2024-03-01\n---"))
	require.NoError(t, err)
	assert.Empty(t, p.Content)
	assert.Equal(t, []string{}, p.Tags)
}

func TestParseDocumentMalformed(t *testing.T) {
	tests := map[string]string{
		"no front matter":    "# just markdown\n",
		"unterminated":       "---\ntitle: T\npublishDate: 2024-01-01\n",
		"bad yaml":           "---\ntitle: [unclosed\n---\n",
		"missing title":      "---\npublishDate: 2024-01-01\n---\n",
		"bad date":           "---\ntitle: T\npublishDate: someday\n---\n",
		"missing date":       "---\ntitle: T\n---\n",
		"empty front matter": "---\n---\nbody\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseDocument("slug", []byte(doc))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrMalformed), "want ErrMalformed, got %v", err)
		})
	}
}
