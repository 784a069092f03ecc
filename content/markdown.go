package content

import (
	"bytes"
	"context"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"

	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("markdown", func() Pipeline { return NewMarkdownPipeline() })
}

var frontMatterTitleRe = regexp.MustCompile(`(?m)^title:\s*["']?(.+?)["']?\s*$`)

// MarkdownPipeline decodes, parses via goldmark, extracts a title from H1 or
// front-matter, and walks link targets, returning the source text unchanged
// (§4.2).
type MarkdownPipeline struct{}

func NewMarkdownPipeline() *MarkdownPipeline { return &MarkdownPipeline{} }

func (p *MarkdownPipeline) Name() string { return "markdown" }

func (p *MarkdownPipeline) CanProcess(raw *fetch.RawContent) bool {
	return strings.Contains(raw.MimeType, "markdown") || strings.HasSuffix(raw.Source, ".md") ||
		strings.HasSuffix(raw.Source, ".mdx")
}

func (p *MarkdownPipeline) Process(_ context.Context, raw *fetch.RawContent, opts Options) (*ProcessedContent, error) {
	charsetName := ResolveCharset(raw.Content, raw.MimeType, raw.Charset)
	decoded := DecodeText(raw.Content, charsetName)

	result := &ProcessedContent{
		TextContent: decoded,
		Metadata:    Metadata{},
	}

	body, frontMatterTitle := stripFrontMatter(decoded)

	md := goldmark.New()

	doc := md.Parser().Parse(text.NewReader([]byte(body)))

	var title string

	var links []string

	err := ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && title == "" {
				title = extractText(node, []byte(body))
			}
		case *ast.Link:
			if target := string(node.Destination); target != "" {
				if resolved, resolveErr := resolveURL(opts.BaseURL, target); resolveErr == nil {
					links = append(links, resolved)
				} else {
					result.Errors = append(result.Errors, Issue{Message: resolveErr.Error()})
				}
			}
		case *ast.Image:
			if target := string(node.Destination); target != "" {
				if resolved, resolveErr := resolveURL(opts.BaseURL, target); resolveErr == nil {
					links = append(links, resolved)
				}
			}
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		result.Errors = append(result.Errors, Issue{Message: err.Error()})
	}

	if title == "" {
		title = frontMatterTitle
	}

	if title != "" {
		result.Metadata["title"] = title
	}

	result.Links = links

	return result, nil
}

func (p *MarkdownPipeline) Close() error { return nil }

// stripFrontMatter removes a leading `---`-delimited YAML block and returns
// the remaining body plus any `title:` field found within it.
func stripFrontMatter(src string) (body string, title string) {
	if !strings.HasPrefix(src, "---\n") && !strings.HasPrefix(src, "---\r\n") {
		return src, ""
	}

	rest := strings.TrimPrefix(src, "---\n")
	rest = strings.TrimPrefix(rest, "---\r\n")

	end := strings.Index(rest, "\n---")
	if end == -1 {
		return src, ""
	}

	frontMatter := rest[:end]
	remaining := rest[end+4:]
	remaining = strings.TrimPrefix(remaining, "\n")
	remaining = strings.TrimPrefix(remaining, "\r\n")

	match := frontMatterTitleRe.FindStringSubmatch(frontMatter)
	if match != nil {
		title = strings.TrimSpace(match[1])
	}

	return remaining, title
}

func extractText(n ast.Node, source []byte) string {
	var buf bytes.Buffer

	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if textNode, ok := c.(*ast.Text); ok {
			buf.Write(textNode.Segment.Value(source))
		}
	}

	return strings.TrimSpace(buf.String())
}
