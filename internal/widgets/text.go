package widgets

import (
	"fmt"
	"regexp"

	"github.com/microcosm-cc/bluemonday"

	"github.com/marcuslam20/thingsboard-server-sub000/internal/registry"
	"github.com/marcuslam20/thingsboard-server-sub000/pkg/models"
)

// LabelView is the payload of the static text widget.
type LabelView struct {
	Text       string `json:"text"`
	HTML       string `json:"html,omitempty"`
	FontSize   int    `json:"fontSize"`
	FontWeight int    `json:"fontWeight"`
	TextAlign  string `json:"textAlign"`
}

var htmlSanitizer = bluemonday.UGCPolicy()

type labelRenderer struct{}

func (labelRenderer) Render(w *models.Widget, _ *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	text := settings.str("labelText", "")
	if text == "" {
		text = w.Title
	}
	if text == "" {
		text = "Label"
	}
	view := &LabelView{
		Text:       text,
		FontSize:   settings.integer("fontSize", 16),
		FontWeight: settings.integer("fontWeight", 400),
		TextAlign:  settings.str("textAlign", "center"),
	}
	if settings.boolean("useHtml", false) {
		view.HTML = htmlSanitizer.Sanitize(text)
	}
	return &registry.RenderResult{Kind: "label", Payload: view}, nil
}

// MarkdownView carries the sanitized HTML produced from the widget's
// markdown (or raw HTML) text.
type MarkdownView struct {
	HTML string `json:"html"`
}

type markdownRenderer struct{}

func (markdownRenderer) Render(w *models.Widget, _ *models.Snapshot) (*registry.RenderResult, error) {
	settings := bagOf(w)
	text := settings.str("markdownText", "")
	if text == "" {
		text = settings.str("labelText", "")
	}
	raw := text
	if !settings.boolean("useRawHtml", false) {
		raw = markdownToHTML(text)
	}
	return &registry.RenderResult{
		Kind:    "markdown",
		Payload: &MarkdownView{HTML: htmlSanitizer.Sanitize(raw)},
	}, nil
}

var (
	mdH3         = regexp.MustCompile(`(?m)^### (.+)$`)
	mdH2         = regexp.MustCompile(`(?m)^## (.+)$`)
	mdH1         = regexp.MustCompile(`(?m)^# (.+)$`)
	mdBoldItalic = regexp.MustCompile(`\*\*\*(.+?)\*\*\*`)
	mdBold       = regexp.MustCompile(`\*\*(.+?)\*\*`)
	mdItalic     = regexp.MustCompile(`\*(.+?)\*`)
	mdCode       = regexp.MustCompile("`(.+?)`")
	mdLink       = regexp.MustCompile(`\[(.+?)\]\((.+?)\)`)
	mdListItem   = regexp.MustCompile(`(?m)^\- (.+)$`)
	mdListBlock  = regexp.MustCompile(`(<li>.*</li>\n?)+`)
	mdParagraph  = regexp.MustCompile(`\n\n`)
	mdLineBreak  = regexp.MustCompile(`\n`)
)

// markdownToHTML converts a small markdown subset (headers, emphasis,
// inline code, links, flat lists) to HTML. Headers are processed longest
// prefix first so "###" is not eaten by the "#" rule.
func markdownToHTML(md string) string {
	html := md
	html = mdH3.ReplaceAllString(html, "<h3>$1</h3>")
	html = mdH2.ReplaceAllString(html, "<h2>$1</h2>")
	html = mdH1.ReplaceAllString(html, "<h1>$1</h1>")
	html = mdBoldItalic.ReplaceAllString(html, "<strong><em>$1</em></strong>")
	html = mdBold.ReplaceAllString(html, "<strong>$1</strong>")
	html = mdItalic.ReplaceAllString(html, "<em>$1</em>")
	html = mdCode.ReplaceAllString(html, "<code>$1</code>")
	html = mdLink.ReplaceAllString(html, `<a href="$2" target="_blank" rel="noopener noreferrer">$1</a>`)
	html = mdListItem.ReplaceAllString(html, "<li>$1</li>")
	html = mdListBlock.ReplaceAllString(html, "<ul>$0</ul>")
	html = mdParagraph.ReplaceAllString(html, "</p><p>")
	html = mdLineBreak.ReplaceAllString(html, "<br/>")
	return fmt.Sprintf("<p>%s</p>", html)
}
