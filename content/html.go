package content

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/JohannesKaufmann/html-to-markdown/plugin"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"

	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("html", func() Pipeline { return NewHTMLPipeline() })
}

// HTMLPipeline decodes, parses, optionally renders through a headless
// browser, extracts title/links, and converts the DOM body to Markdown
// (§4.2).
type HTMLPipeline struct {
	browser *rod.Browser
}

func NewHTMLPipeline() *HTMLPipeline {
	return &HTMLPipeline{}
}

func (p *HTMLPipeline) Name() string { return "html" }

func (p *HTMLPipeline) CanProcess(raw *fetch.RawContent) bool {
	return strings.Contains(raw.MimeType, "html") || strings.Contains(raw.MimeType, "xhtml")
}

func (p *HTMLPipeline) Process(ctx context.Context, raw *fetch.RawContent, opts Options) (*ProcessedContent, error) {
	charsetName := ResolveCharset(raw.Content, raw.MimeType, raw.Charset)
	decoded := DecodeText(raw.Content, charsetName)

	html := decoded

	mode := opts.ScrapeMode
	if mode == "" || mode == "auto" {
		mode = "playwright"
	}

	result := &ProcessedContent{Metadata: Metadata{}}

	if mode == "playwright" {
		rendered, err := p.render(ctx, raw.Source, html)
		if err != nil {
			result.Errors = append(result.Errors, Issue{Message: fmt.Sprintf("headless render failed, falling back to raw HTML: %s", err)})
		} else {
			html = rendered
		}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, &fetch.ScraperError{Retryable: false, Cause: err, Message: "could not parse html"}
	}

	title := strings.TrimSpace(doc.Find("title").First().Text())
	if title != "" {
		result.Metadata["title"] = title
	}

	if description, exists := doc.Find(`meta[name="description"]`).First().Attr("content"); exists {
		result.Metadata["description"] = strings.TrimSpace(description)
	}

	baseURL := opts.BaseURL
	if href, exists := doc.Find("base").First().Attr("href"); exists && href != "" {
		if resolved, err := resolveURL(baseURL, href); err == nil {
			baseURL = resolved
		}
	}

	links := map[string]bool{}
	doc.Find("a[href], img[src], link[href]").Each(func(_ int, sel *goquery.Selection) {
		attr := "href"
		if sel.Is("img") {
			attr = "src"
		}

		target, exists := sel.Attr(attr)
		if !exists || target == "" || strings.HasPrefix(target, "#") || strings.HasPrefix(target, "javascript:") {
			return
		}

		resolved, err := resolveURL(baseURL, target)
		if err != nil {
			result.Errors = append(result.Errors, Issue{Message: fmt.Sprintf("could not resolve link %q: %s", target, err)})

			return
		}

		links[resolved] = true
	})

	for link := range links {
		result.Links = append(result.Links, link)
	}

	body, err := doc.Find("body").Html()
	if err != nil || strings.TrimSpace(body) == "" {
		body = html
	}

	markdown, err := convertToMarkdown(body)
	if err != nil {
		result.Errors = append(result.Errors, Issue{Message: fmt.Sprintf("markdown conversion failed: %s", err)})
		markdown = doc.Find("body").Text()
	}

	result.TextContent = markdown

	return result, nil
}

func (p *HTMLPipeline) render(ctx context.Context, sourceURL, html string) (string, error) {
	if p.browser == nil {
		p.browser = rod.New()
		if err := p.browser.Connect(); err != nil {
			return "", fmt.Errorf("connect browser: %w", err)
		}
	}

	page, err := p.browser.Context(ctx).Page(proto.TargetCreateTarget{})
	if err != nil {
		return "", fmt.Errorf("open page: %w", err)
	}
	defer func() { _ = page.Close() }()

	if err := page.SetDocumentContent(html); err != nil {
		return "", fmt.Errorf("set content: %w", err)
	}

	if err := page.WaitLoad(); err != nil {
		return "", fmt.Errorf("wait load: %w", err)
	}

	rendered, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("extract rendered html: %w", err)
	}

	return rendered, nil
}

func (p *HTMLPipeline) Close() error {
	if p.browser != nil {
		return p.browser.Close()
	}

	return nil
}

func convertToMarkdown(html string) (string, error) {
	conv := md.NewConverter("", true, nil)
	conv.Use(plugin.GitHubFlavored())

	out, err := conv.ConvertString(html)
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(out), nil
}

func resolveURL(base, ref string) (string, error) {
	refURL, err := url.Parse(ref)
	if err != nil {
		return "", err
	}

	if refURL.IsAbs() {
		return refURL.String(), nil
	}

	if base == "" {
		return "", fmt.Errorf("no base url to resolve %q against", ref)
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return "", err
	}

	return baseURL.ResolveReference(refURL).String(), nil
}
