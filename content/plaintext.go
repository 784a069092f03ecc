package content

import (
	"context"
	"path"
	"strings"

	"github.com/mentycs/docbrew/fetch"
)

func init() {
	Register("plaintext", func() Pipeline { return NewPlainTextPipeline() })
}

// PlainTextPipeline is the catch-all specialization for source code and
// other text/* content that neither the HTML nor Markdown pipeline claims
// (§4.2). It extracts no links and derives its title from the basename.
type PlainTextPipeline struct{}

func NewPlainTextPipeline() *PlainTextPipeline { return &PlainTextPipeline{} }

func (p *PlainTextPipeline) Name() string { return "plaintext" }

func (p *PlainTextPipeline) CanProcess(raw *fetch.RawContent) bool {
	return strings.HasPrefix(raw.MimeType, "text/") || raw.MimeType == "application/json" ||
		raw.MimeType == "application/xml" || raw.MimeType == "application/octet-stream"
}

func (p *PlainTextPipeline) Process(_ context.Context, raw *fetch.RawContent, _ Options) (*ProcessedContent, error) {
	charsetName := ResolveCharset(raw.Content, raw.MimeType, raw.Charset)
	decoded := DecodeText(raw.Content, charsetName)

	base := path.Base(raw.Source)

	return &ProcessedContent{
		TextContent: decoded,
		Metadata:    Metadata{"title": base},
	}, nil
}

func (p *PlainTextPipeline) Close() error { return nil }
