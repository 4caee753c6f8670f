package loader

import (
	"bytes"
	"context"
	"io"
	"os"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/gomarkdown/markdown"
	mdhtml "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/microcosm-cc/bluemonday"
	"github.com/tmc/langchaingo/schema"
	"golang.org/x/net/html"
)

// blockElements start a new paragraph. Text outside them still belongs to
// the paragraph it sits in.
var blockElements = map[string]bool{
	"address": true, "article": true, "aside": true, "blockquote": true, "body": true,
	"br": true, "dd": true, "details": true, "div": true, "dl": true, "dt": true,
	"figcaption": true, "figure": true, "footer": true, "form": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"header": true, "hr": true, "li": true, "main": true, "nav": true, "ol": true,
	"p": true, "pre": true, "section": true, "summary": true, "table": true,
	"td": true, "th": true, "tr": true, "ul": true,
}

// loadHTML extracts the text of sanitized HTML, one paragraph per block.
func loadHTML(_ context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	text, err := htmlText(raw)
	if err != nil {
		return nil, err
	}
	return []schema.Document{{PageContent: text, Metadata: map[string]any{}}}, nil
}

// loadMarkdown renders markdown to HTML and extracts its text like loadHTML.
func loadMarkdown(_ context.Context, f *os.File, _ int64) ([]schema.Document, error) {
	raw, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}

	p := parser.NewWithExtensions(parser.CommonExtensions | parser.AutoHeadingIDs)
	renderer := mdhtml.NewRenderer(mdhtml.RendererOptions{Flags: mdhtml.CommonFlags})
	rendered := markdown.Render(p.Parse(raw), renderer)

	text, err := htmlText(rendered)
	if err != nil {
		return nil, err
	}
	return []schema.Document{{PageContent: text, Metadata: map[string]any{}}}, nil
}

func htmlText(raw []byte) (string, error) {
	clean := bluemonday.UGCPolicy().SanitizeBytes(raw)
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(clean))
	if err != nil {
		return "", err
	}

	var (
		paragraphs []string
		current    strings.Builder
	)
	flush := func() {
		if text := strings.TrimSpace(current.String()); text != "" {
			paragraphs = append(paragraphs, text)
		}
		current.Reset()
	}
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		block := n.Type == html.ElementNode && blockElements[n.Data]
		if block {
			flush()
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			flush()
		}
	}
	for _, n := range doc.Nodes {
		walk(n)
	}
	flush()
	return strings.Join(paragraphs, "\n\n"), nil
}
