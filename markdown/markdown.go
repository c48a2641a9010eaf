// Package markdown renders post bodies to HTML. It understands the subset of
// markdown the blog content uses: headings, paragraphs, lists, block quotes,
// fenced code, tables, rules, and inline emphasis, code, links and images.
// Output is passed through a bluemonday policy before it reaches a page.
package markdown

import (
	"bytes"
	"context"
	"html"
	"io"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/a-h/templ"
	"github.com/microcosm-cc/bluemonday"
)

var (
	reBold             = regexp.MustCompile(`\*\*(.+?)\*\*`)
	reBoldUnderscore   = regexp.MustCompile(`__(.+?)__`)
	reItalic           = regexp.MustCompile(`\*([^*]+)\*`)
	reItalicUnderscore = regexp.MustCompile(`\b_([^_]+)_\b`)
	reInlineCode       = regexp.MustCompile("`([^`]+)`")
	reImage            = regexp.MustCompile(`!\[(.*?)\]\((.*?)\)`)
	reLink             = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	reOrderedItem      = regexp.MustCompile(`^\d+\.\s`)
	reHeading          = regexp.MustCompile(`^(#{1,4})\s+(.*)$`)
	reAnchorStrip      = regexp.MustCompile(`[^a-z0-9]+`)
)

var policy = newPolicy()

func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("class").Matching(regexp.MustCompile(`^[a-zA-Z0-9 _-]+$`)).OnElements("code", "pre", "div", "span")
	p.AllowAttrs("id").Matching(regexp.MustCompile(`^[a-z0-9-]+$`)).OnElements("h1", "h2", "h3", "h4")
	p.AllowAttrs("loading", "decoding", "fetchpriority").OnElements("img")
	p.RequireNoFollowOnLinks(false)
	p.AddTargetBlankToFullyQualifiedLinks(true)
	return p
}

// Render converts md to sanitized HTML.
func Render(md string) string {
	var buf bytes.Buffer
	RenderTo(&buf, md)
	return policy.Sanitize(buf.String())
}

// Component returns a templ.Component that writes the sanitized HTML of md.
func Component(md string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		_, err := io.WriteString(w, Render(md))
		return err
	})
}

// RenderTo writes the unsanitized HTML for md to buf.
func RenderTo(buf *bytes.Buffer, md string) {
	r := &renderer{buf: buf, anchors: make(map[string]int)}
	for _, raw := range strings.Split(md, "\n") {
		r.line(strings.TrimRight(raw, "\r"))
	}
	r.closeAll()
	r.closeCode()
}

type block int

const (
	blockNone block = iota
	blockPara
	blockList
	blockOrderedList
	blockQuote
	blockTable
)

// renderer holds the open-block state while lines are consumed.
type renderer struct {
	buf        *bytes.Buffer
	open       block
	inCode     bool
	codeLang   bool
	tableBody  bool
	imageCount int
	anchors    map[string]int
}

func (r *renderer) closeAll() {
	switch r.open {
	case blockPara:
		r.buf.WriteString("</p>")
	case blockList:
		r.buf.WriteString("</ul>")
	case blockOrderedList:
		r.buf.WriteString("</ol>")
	case blockQuote:
		r.buf.WriteString("</blockquote>")
	case blockTable:
		if r.tableBody {
			r.buf.WriteString("</tbody>")
		}
		r.buf.WriteString("</table>")
		r.tableBody = false
	}
	r.open = blockNone
}

func (r *renderer) closeCode() {
	if !r.inCode {
		return
	}
	r.buf.WriteString("</code></pre>")
	if r.codeLang {
		r.buf.WriteString("</div>")
	}
	r.inCode = false
	r.codeLang = false
}

// enter closes whatever block is open unless it is already b.
func (r *renderer) enter(b block) bool {
	if r.open == b {
		return false
	}
	r.closeAll()
	r.open = b
	return true
}

func (r *renderer) line(line string) {
	if strings.HasPrefix(line, "```") {
		if r.inCode {
			r.closeCode()
			return
		}
		r.closeAll()
		r.openCode(strings.TrimSpace(line[3:]))
		return
	}
	if r.inCode {
		r.buf.WriteString(html.EscapeString(line))
		r.buf.WriteByte('\n')
		return
	}

	trimmed := strings.TrimSpace(line)
	switch {
	case trimmed == "":
		r.closeAll()
	case strings.HasPrefix(line, "---") || strings.HasPrefix(line, "***"):
		r.closeAll()
		r.buf.WriteString("<hr/>")
	case reHeading.MatchString(line):
		r.closeAll()
		m := reHeading.FindStringSubmatch(line)
		r.heading(len(m[1]), strings.TrimSpace(m[2]))
	case strings.HasPrefix(line, "|"):
		r.tableRow(line)
	case strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* "):
		if r.enter(blockList) {
			r.buf.WriteString("<ul>")
		}
		r.listItem(strings.TrimSpace(line[2:]))
	case reOrderedItem.MatchString(line):
		if r.enter(blockOrderedList) {
			r.buf.WriteString("<ol>")
		}
		r.listItem(strings.TrimSpace(reOrderedItem.ReplaceAllString(line, "")))
	case strings.HasPrefix(line, ">"):
		if r.enter(blockQuote) {
			r.buf.WriteString("<blockquote>")
		} else {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(r.inline(strings.TrimSpace(strings.TrimPrefix(line, ">"))))
	default:
		if r.enter(blockPara) {
			r.buf.WriteString("<p>")
		} else {
			r.buf.WriteByte(' ')
		}
		r.buf.WriteString(r.inline(trimmed))
	}
}

func (r *renderer) openCode(lang string) {
	r.inCode = true
	if lang == "" {
		r.buf.WriteString(`<pre class="code-block"><code>`)
		return
	}
	r.codeLang = true
	escaped := html.EscapeString(lang)
	r.buf.WriteString(`<div class="code-block-wrapper"><span class="code-lang">` + escaped + `</span>`)
	r.buf.WriteString(`<pre class="code-block"><code class="language-` + escaped + `">`)
}

func (r *renderer) heading(level int, text string) {
	tag := "h" + strconv.Itoa(level)
	r.buf.WriteString("<" + tag + ` id="` + r.anchor(text) + `">`)
	r.buf.WriteString(r.inline(text))
	r.buf.WriteString("</" + tag + ">")
}

// anchor derives a unique id for a heading, suffixing repeats with -1, -2...
func (r *renderer) anchor(text string) string {
	id := strings.Trim(reAnchorStrip.ReplaceAllString(strings.ToLower(text), "-"), "-")
	if id == "" {
		id = "section"
	}
	n := r.anchors[id]
	r.anchors[id] = n + 1
	if n > 0 {
		id += "-" + strconv.Itoa(n)
	}
	return id
}

func (r *renderer) listItem(text string) {
	r.buf.WriteString("<li>")
	r.buf.WriteString(r.inline(text))
	r.buf.WriteString("</li>")
}

func (r *renderer) tableRow(line string) {
	if r.enter(blockTable) {
		r.buf.WriteString("<table><thead><tr>")
		for _, cell := range tableCells(line) {
			r.buf.WriteString("<th>" + r.inline(cell) + "</th>")
		}
		r.buf.WriteString("</tr></thead>")
		return
	}
	if !r.tableBody {
		r.buf.WriteString("<tbody>")
		r.tableBody = true
	}
	if isTableSeparator(line) {
		return
	}
	r.buf.WriteString("<tr>")
	for _, cell := range tableCells(line) {
		r.buf.WriteString("<td>" + r.inline(cell) + "</td>")
	}
	r.buf.WriteString("</tr>")
}

func tableCells(line string) []string {
	line = strings.Trim(strings.TrimSpace(line), "|")
	parts := strings.Split(line, "|")
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}

func isTableSeparator(line string) bool {
	for _, cell := range tableCells(line) {
		if strings.Trim(cell, "-:") != "" {
			return false
		}
	}
	return true
}

func (r *renderer) inline(s string) string {
	return FormatInline(s, &r.imageCount)
}

// FormatInline applies inline formatting to a single line of text. The first
// image gets fetchpriority="high"; later ones are lazy-loaded. imageCount
// carries the count across calls.
func FormatInline(s string, imageCount *int) string {
	escaped := html.EscapeString(s)

	// Code spans are swapped for placeholders so nothing below touches them.
	var spans []string
	escaped = reInlineCode.ReplaceAllStringFunc(escaped, func(m string) string {
		inner := reInlineCode.FindStringSubmatch(m)[1]
		spans = append(spans, "<code>"+inner+"</code>")
		return "\x00" + strconv.Itoa(len(spans)-1) + "\x00"
	})

	escaped = reImage.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reImage.FindStringSubmatch(m)
		src := SafeURL(match[2])
		if src == "" {
			return match[1]
		}
		*imageCount++
		load := `loading="lazy"`
		if *imageCount == 1 {
			load = `fetchpriority="high"`
		}
		return `<img ` + load + ` alt="` + match[1] + `" src="` + src + `" decoding="async"/>`
	})
	escaped = reLink.ReplaceAllStringFunc(escaped, func(m string) string {
		match := reLink.FindStringSubmatch(m)
		href := SafeURL(match[2])
		if href == "" {
			return match[1]
		}
		return `<a href="` + href + `">` + match[1] + `</a>`
	})

	escaped = outsideTags(escaped, func(seg string) string {
		seg = reBold.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reBoldUnderscore.ReplaceAllString(seg, "<strong>$1</strong>")
		seg = reItalic.ReplaceAllString(seg, "<em>$1</em>")
		seg = reItalicUnderscore.ReplaceAllString(seg, "<em>$1</em>")
		return seg
	})

	for i, span := range spans {
		escaped = strings.Replace(escaped, "\x00"+strconv.Itoa(i)+"\x00", span, 1)
	}
	return escaped
}

// outsideTags applies fn only to text between HTML tags, so emphasis never
// rewrites an href or src.
func outsideTags(s string, fn func(string) string) string {
	var b strings.Builder
	for len(s) > 0 {
		lt := strings.IndexByte(s, '<')
		if lt < 0 {
			b.WriteString(fn(s))
			break
		}
		b.WriteString(fn(s[:lt]))
		gt := strings.IndexByte(s[lt:], '>')
		if gt < 0 {
			b.WriteString(s[lt:])
			break
		}
		b.WriteString(s[lt : lt+gt+1])
		s = s[lt+gt+1:]
	}
	return b.String()
}

// SafeURL returns raw escaped for an attribute, or "" if its scheme is not
// http, https, mailto or tel. Relative paths and fragments are allowed.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
