package views

import (
	"encoding/json"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"github.com/eringen/pocketscience/content"
)

// BuildURL joins path segments onto a base URL, ensuring a trailing slash.
func BuildURL(base string, pathSegments ...string) string {
	u, err := url.Parse(base)
	if err != nil {
		return base
	}
	u.Path = path.Join(u.Path, path.Join(pathSegments...))
	if len(pathSegments) > 0 && !strings.HasSuffix(u.Path, "/") {
		u.Path += "/"
	}
	return u.String()
}

// TagSegment escapes tag as a single path segment. Slashes are encoded, and
// so are the dots of "." and ".." so they cannot step out of /tags/.
func TagSegment(tag string) string {
	seg := url.PathEscape(tag)
	if strings.Trim(seg, ".") == "" {
		seg = strings.ReplaceAll(seg, ".", "%2E")
	}
	return seg
}

// TagURL is the site-relative link for a tag page.
func TagURL(tag string) string {
	return "/tags/" + TagSegment(tag) + "/"
}

// TagPageURL is the absolute link for a tag page under base.
func TagPageURL(base, tag string) string {
	return strings.TrimSuffix(BuildURL(base), "/") + TagURL(tag)
}

// ImageSrc returns src if its scheme is safe to load, or templ's failed
// sanitization URL otherwise.
func ImageSrc(src string) string {
	return string(templ.URL(src))
}

// TagClass returns CSS classes for a tag pill, with active variant.
func TagClass(active bool) string {
	base := "tag-pill"
	if active {
		base += " tag-pill-active"
	}
	return base
}

// FormatDate renders a publish date as "January 2, 2006". Unparseable dates
// are returned unchanged.
func FormatDate(date string) string {
	t, err := content.ParseDate(date)
	if err != nil {
		return date
	}
	return t.Format("January 2, 2006")
}

// JoinTags formats a tag slice as a comma-separated string.
func JoinTags(tags []string) string {
	return strings.Join(tags, ", ")
}

// PostCount renders "N post(s) found".
func PostCount(n int) string {
	if n == 1 {
		return "1 post found"
	}
	return strconv.Itoa(n) + " posts found"
}

func person(name string) map[string]string {
	return map[string]string{"@type": "Person", "name": name}
}

func marshalJSONLD(data map[string]any) string {
	b, err := json.Marshal(data)
	if err != nil {
		return "{}"
	}
	return string(b)
}

// WebsiteJsonLD produces a Schema.org WebSite JSON-LD block.
func WebsiteJsonLD(site Site) string {
	data := map[string]any{
		"@context": "https://schema.org",
		"@type":    "WebSite",
		"name":     site.Name,
		"url":      BuildURL(site.URL),
	}
	if site.Description != "" {
		data["description"] = site.Description
	}
	if site.Author != "" {
		data["author"] = person(site.Author)
	}
	return marshalJSONLD(data)
}

// BlogPostingJsonLD produces a Schema.org BlogPosting JSON-LD block. The
// post's own author wins over the site author.
func BlogPostingJsonLD(site Site, post content.Post) string {
	postURL := BuildURL(site.URL, "blog", post.Slug)
	data := map[string]any{
		"@context":      "https://schema.org",
		"@type":         "BlogPosting",
		"headline":      post.Title,
		"description":   post.Description,
		"datePublished": post.PublishDate,
		"url":           postURL,
		"mainEntityOfPage": map[string]string{
			"@type": "WebPage",
			"@id":   postURL,
		},
	}
	if site.Name != "" {
		data["publisher"] = map[string]string{"@type": "Organization", "name": site.Name}
	}
	switch {
	case post.Author != "":
		data["author"] = person(post.Author)
	case site.Author != "":
		data["author"] = person(site.Author)
	}
	if post.Image != "" {
		data["image"] = post.Image
	}
	if len(post.Tags) > 0 {
		data["keywords"] = JoinTags(post.Tags)
	}
	return marshalJSONLD(data)
}

// withDefaults fills the parts of meta a page left empty from the site.
func withDefaults(site Site, meta PageMeta) PageMeta {
	if meta.Title == "" || meta.Title == site.Name {
		meta.Title = site.Name
	} else {
		meta.Title += " | " + site.Name
	}
	if meta.Description == "" {
		meta.Description = site.Description
	}
	if meta.OGType == "" {
		meta.OGType = "website"
	}
	if meta.JSONLD == "" {
		meta.JSONLD = WebsiteJsonLD(site)
	}
	return meta
}

func homeMeta(site Site) PageMeta {
	return PageMeta{
		Title:       site.Name,
		Description: site.Description,
		URL:         BuildURL(site.URL),
		OGType:      "website",
	}
}

func postMeta(site Site, post content.Post) PageMeta {
	return PageMeta{
		Title:       post.Title,
		Description: post.Description,
		URL:         BuildURL(site.URL, "blog", post.Slug),
		OGType:      "article",
		Image:       post.Image,
		JSONLD:      BlogPostingJsonLD(site, post),
	}
}

func tagMeta(site Site, tag string, count int) PageMeta {
	return PageMeta{
		Title:       "Posts tagged " + tag,
		Description: PostCount(count) + " tagged " + tag + ".",
		URL:         TagPageURL(site.URL, tag),
	}
}

// jsonLDScript renders a JSON-LD block. data must already be valid JSON.
func jsonLDScript(data string) templ.Component {
	return templ.JSONScript("", json.RawMessage(data)).WithType("application/ld+json")
}
