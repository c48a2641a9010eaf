package pocketscience

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/eringen/pocketscience/content"
)

type apiError struct {
	Error string `json:"error"`
}

// postSummary is a post without its body, as listed by /api/posts.
type postSummary struct {
	Slug        string   `json:"slug"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	PublishDate string   `json:"publishDate"`
	Author      string   `json:"author"`
	Tags        []string `json:"tags"`
	Image       string   `json:"image,omitempty"`
}

func summarize(posts []content.Post) []postSummary {
	out := make([]postSummary, 0, len(posts))
	for _, p := range posts {
		out = append(out, postSummary{
			Slug:        p.Slug,
			Title:       p.Title,
			Description: p.Description,
			PublishDate: p.PublishDate,
			Author:      p.Author,
			Tags:        p.Tags,
			Image:       p.Image,
		})
	}
	return out
}

func (a *App) registerAPI(g *echo.Group) {
	g.GET("/posts", a.apiListPosts)
	g.GET("/posts/:slug", a.apiGetPost)
	g.GET("/slugs", a.apiListSlugs)
	g.GET("/tags", a.apiListTags)
}

func (a *App) apiListPosts(c echo.Context) error {
	ctx := c.Request().Context()
	var (
		posts []content.Post
		err   error
	)
	if tag := strings.TrimSpace(c.QueryParam("tag")); tag != "" {
		posts, err = a.Store.ListPostsByTag(ctx, tag)
	} else {
		posts, err = a.Store.ListPosts(ctx)
	}
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, summarize(posts))
}

func (a *App) apiGetPost(c echo.Context) error {
	post, err := a.Store.GetPost(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}
	if post == nil {
		return c.JSON(http.StatusNotFound, apiError{Error: "post not found"})
	}
	return c.JSON(http.StatusOK, post)
}

func (a *App) apiListSlugs(c echo.Context) error {
	slugs, err := a.Store.ListSlugs(c.Request().Context())
	if err != nil {
		return err
	}
	if slugs == nil {
		slugs = []string{}
	}
	return c.JSON(http.StatusOK, slugs)
}

func (a *App) apiListTags(c echo.Context) error {
	tags, err := content.ListTags(c.Request().Context(), a.Store)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, tags)
}

func (a *App) rateLimitMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		ip := c.RealIP()
		if !a.apiLimiter.Allow(ip) {
			RateLimitedTotal.Inc()
			c.Response().Header().Set("Retry-After", strconv.Itoa(a.apiLimiter.RetryAfter()))
			return c.JSON(http.StatusTooManyRequests, apiError{Error: "rate limit exceeded"})
		}
		c.Response().Header().Set("X-RateLimit-Remaining", strconv.Itoa(a.apiLimiter.Remaining(ip)))
		return next(c)
	}
}
