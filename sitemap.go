package pocketscience

import (
	"encoding/xml"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pocketscience/content"
	"github.com/eringen/pocketscience/views"
)

type sitemapURLSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

// buildSitemap lists the home page, every post, and every tag page. A tag
// page's lastmod is the date of its newest post.
func (a *App) buildSitemap(posts []content.Post) sitemapURLSet {
	base := a.Config.URL
	urls := []sitemapURL{{Loc: views.BuildURL(base)}}
	if len(posts) > 0 {
		urls[0].LastMod = lastMod(posts[0])
	}
	for _, p := range posts {
		urls = append(urls, sitemapURL{
			Loc:     views.BuildURL(base, "blog", p.Slug),
			LastMod: lastMod(p),
		})
	}
	for _, tag := range content.DistinctTags(posts) {
		u := sitemapURL{Loc: views.TagPageURL(base, tag)}
		if tagged := content.FilterByTag(posts, tag); len(tagged) > 0 {
			u.LastMod = lastMod(tagged[0])
		}
		urls = append(urls, u)
	}
	return sitemapURLSet{
		XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9",
		URLs:  urls,
	}
}

func lastMod(p content.Post) string {
	if t := p.Date(); !t.IsZero() {
		return t.Format("2006-01-02")
	}
	return ""
}

func (a *App) renderSitemap(c echo.Context, posts []content.Post) error {
	c.Response().Header().Set(echo.HeaderContentType, "application/xml; charset=utf-8")
	c.Response().WriteHeader(http.StatusOK)
	if _, err := c.Response().Write([]byte(xml.Header)); err != nil {
		return err
	}
	return xml.NewEncoder(c.Response()).Encode(a.buildSitemap(posts))
}
