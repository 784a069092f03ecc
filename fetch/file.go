package fetch

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"os"
	"strings"
)

// FileFetcher reads local files addressed by a file:// URL. It never sets
// charset; the content pipeline resolves it from the bytes themselves.
type FileFetcher struct{}

func NewFileFetcher() *FileFetcher { return &FileFetcher{} }

func (f *FileFetcher) Name() string { return "file" }

func (f *FileFetcher) CanHandle(source string) bool {
	return strings.HasPrefix(source, "file://")
}

func (f *FileFetcher) Fetch(ctx context.Context, source string, _ Options) (*RawContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, &CancellationError{Cause: err}
	}

	parsed, err := url.Parse(source)
	if err != nil {
		return nil, &ScraperError{Retryable: false, Cause: err, Message: "invalid file url"}
	}

	path, err := url.PathUnescape(parsed.Path)
	if err != nil {
		return nil, &ScraperError{Retryable: false, Cause: err, Message: "invalid file path encoding"}
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, &ScraperError{Retryable: false, Cause: err, Message: fmt.Sprintf("could not read %s", path)}
	}

	mimeType := MimeForExtension(path)
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}

	if bytes.ContainsRune(content, 0) {
		mimeType = "application/octet-stream"
	}

	return &RawContent{
		Content:  content,
		MimeType: mimeType,
		Source:   source,
	}, nil
}
