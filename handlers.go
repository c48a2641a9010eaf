package pocketscience

import (
	"errors"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/eringen/pocketscience/content"
	"github.com/eringen/pocketscience/views"
)

func isHTMX(c echo.Context) bool {
	return c.Request().Header.Get("HX-Request") == "true"
}

func (a *App) handleHome(c echo.Context) error {
	ctx := c.Request().Context()
	tag := strings.TrimSpace(c.QueryParam("tag"))

	all, err := a.Store.ListPosts(ctx)
	if err != nil {
		return err
	}
	posts := all
	if tag != "" {
		posts = content.FilterByTag(all, tag)
	}
	tags := content.DistinctTags(all)

	if isHTMX(c) && c.QueryParam("partial") == "blog" {
		return Render(c, a.Views.BlogSection(posts, tag, tags))
	}
	return Render(c, a.Views.Home(a.Config.Site(), posts, tag, tags))
}

func (a *App) handlePost(c echo.Context) error {
	ctx := c.Request().Context()
	post, err := a.Store.GetPost(ctx, c.Param("slug"))
	if err != nil {
		return err
	}
	if post == nil {
		return RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.Site()))
	}

	posts, err := a.Store.ListPosts(ctx)
	if err != nil {
		return err
	}
	related := content.RelatedPosts(*post, posts)

	if isHTMX(c) && c.QueryParam("partial") == "post" {
		return Render(c, a.Views.PostPartial(*post, related))
	}
	return Render(c, a.Views.Post(a.Config.Site(), *post, related))
}

// tagParam returns the decoded :tag path parameter.
func tagParam(c echo.Context) string {
	raw := c.Param("tag")
	if tag, err := url.PathUnescape(raw); err == nil {
		return tag
	}
	return raw
}

func (a *App) handleTag(c echo.Context) error {
	tag := tagParam(c)
	posts, err := a.Store.ListPostsByTag(c.Request().Context(), tag)
	if err != nil {
		return err
	}
	return Render(c, a.Views.Tag(a.Config.Site(), tag, posts))
}

func (a *App) handleSitemap(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderSitemap(c, posts)
}

func (a *App) handleFeed(c echo.Context) error {
	posts, err := a.Store.ListPosts(c.Request().Context())
	if err != nil {
		return err
	}
	return a.renderRSS(c, posts)
}

func handleBlogRedirect(c echo.Context) error {
	return c.Redirect(http.StatusMovedPermanently, "/")
}

func handleHealthz(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

func (a *App) handleFavicon(c echo.Context) error {
	return c.File(filepath.Join(a.staticDir, "favicon.svg"))
}

// handleRobots serves robots.txt from the static dir, or a permissive default
// pointing at the sitemap.
func (a *App) handleRobots(c echo.Context) error {
	path := filepath.Join(a.staticDir, "robots.txt")
	if _, err := os.Stat(path); err == nil {
		return c.File(path)
	}
	sitemap := strings.TrimSuffix(views.BuildURL(a.Config.URL), "/") + "/sitemap.xml"
	return c.String(http.StatusOK, "User-agent: *\nAllow: /\n\nSitemap: "+sitemap+"\n")
}

func isAPIRequest(c echo.Context) bool {
	return strings.HasPrefix(c.Request().URL.Path, "/api/")
}

func (a *App) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	code := http.StatusInternalServerError
	message := http.StatusText(code)
	var he *echo.HTTPError
	if errors.As(err, &he) {
		code = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		} else {
			message = http.StatusText(code)
		}
	}

	if code >= 500 {
		a.Logger.Error("server error",
			zap.String("method", c.Request().Method),
			zap.String("uri", c.Request().RequestURI),
			zap.Error(err),
		)
	}

	if isAPIRequest(c) {
		_ = c.JSON(code, apiError{Error: message})
		return
	}
	switch {
	case code == http.StatusNotFound:
		_ = RenderStatus(c, http.StatusNotFound, a.Views.NotFound(a.Config.Site()))
	case code >= 500:
		_ = RenderStatus(c, code, a.Views.ServerError(a.Config.Site()))
	default:
		a.Echo.DefaultHTTPErrorHandler(err, c)
	}
}
