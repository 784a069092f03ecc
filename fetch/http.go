package fetch

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"strings"
	"time"

	"github.com/andybalholm/brotli"
	"github.com/go-resty/resty/v2"
	"github.com/klauspost/compress/flate"
	"github.com/klauspost/compress/gzip"
)

const (
	defaultMaxRetries = 6
	defaultBaseDelay  = 500 * time.Millisecond
	defaultTimeout    = 30 * time.Second
	maxRedirectHops   = 5
)

// HttpFetcher retrieves http/https URLs with retry, exponential backoff,
// redirect control, and transparent gzip/deflate/br decompression (§4.1).
// It never advertises zstd in Accept-Encoding since the client cannot
// transparently decode it.
type HttpFetcher struct {
	MaxRetries int
	BaseDelay  time.Duration
	Timeout    time.Duration
}

// NewHttpFetcher builds an HttpFetcher with the spec's default retry
// policy (max 6 retries, exponential backoff off a provider-configured
// base delay).
func NewHttpFetcher() *HttpFetcher {
	return &HttpFetcher{
		MaxRetries: defaultMaxRetries,
		BaseDelay:  defaultBaseDelay,
		Timeout:    defaultTimeout,
	}
}

func (f *HttpFetcher) Name() string { return "http" }

func (f *HttpFetcher) CanHandle(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}

func (f *HttpFetcher) Fetch(ctx context.Context, source string, opts Options) (*RawContent, error) {
	timeout := f.Timeout
	if opts.Timeout > 0 {
		timeout = time.Duration(opts.Timeout) * time.Millisecond
	}

	client := resty.New().SetTimeout(timeout)

	followRedirects := opts.FollowRedirects
	if followRedirects {
		client.SetRedirectPolicy(resty.FlexibleRedirectPolicy(maxRedirectHops))
	} else {
		client.SetRedirectPolicy(resty.NoRedirectPolicy())
	}

	maxRetries := f.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}

	baseDelay := f.BaseDelay
	if baseDelay <= 0 {
		baseDelay = defaultBaseDelay
	}

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, &CancellationError{Cause: ctx.Err()}
		}

		if attempt > 0 {
			delay := baseDelay * time.Duration(int64(1)<<uint(attempt-1))

			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()

				return nil, &CancellationError{Cause: ctx.Err()}
			case <-timer.C:
			}
		}

		content, err := f.attempt(ctx, client, source, opts, followRedirects)
		if err == nil {
			return content, nil
		}

		var cancelErr *CancellationError
		if errors.As(err, &cancelErr) {
			return nil, err
		}

		var redirectErr *RedirectError
		if errors.As(err, &redirectErr) {
			return nil, err
		}

		var scraperErr *ScraperError
		if errors.As(err, &scraperErr) && !scraperErr.Retryable {
			return nil, err
		}

		lastErr = err
	}

	return nil, lastErr
}

func (f *HttpFetcher) attempt(
	ctx context.Context,
	client *resty.Client,
	source string,
	opts Options,
	followRedirects bool,
) (*RawContent, error) {
	headers := map[string]string{
		"User-Agent":      "Mozilla/5.0 (compatible; docbrew/1.0; +https://github.com/mentycs/docbrew)",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
		"Accept-Encoding": "gzip, deflate, br",
	}

	for k, v := range opts.Headers {
		headers[k] = v
	}

	resp, err := client.R().SetContext(ctx).SetHeaders(headers).Get(source)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &CancellationError{Cause: ctx.Err()}
		}

		if !followRedirects && resp != nil && resp.StatusCode() >= 300 && resp.StatusCode() < 400 {
			return nil, &RedirectError{
				OriginalURL: source,
				RedirectURL: resp.Header().Get("Location"),
				StatusCode:  resp.StatusCode(),
			}
		}

		return nil, &ScraperError{Retryable: true, Cause: err, Message: "http request failed"}
	}

	status := resp.StatusCode()
	if status >= 400 {
		return nil, &ScraperError{
			Retryable: retryableStatus(status),
			Cause:     fmt.Errorf("unexpected status %d", status),
			Message:   "http request failed",
		}
	}

	body, encoding, err := decodeBody(resp.Body(), resp.Header().Get("Content-Encoding"))
	if err != nil {
		return nil, &ScraperError{Retryable: false, Cause: err, Message: "could not decompress response"}
	}

	mimeType, charset := parseContentType(resp.Header().Get("Content-Type"))

	finalURL := source
	if resp.RawResponse != nil && resp.RawResponse.Request != nil && resp.RawResponse.Request.URL != nil {
		finalURL = resp.RawResponse.Request.URL.String()
	}

	return &RawContent{
		Content:  body,
		MimeType: mimeType,
		Charset:  charset,
		Encoding: encoding,
		Source:   finalURL,
	}, nil
}

// decodeBody transparently reverses Content-Encoding so downstream content
// pipelines always see raw text bytes.
func decodeBody(raw []byte, encoding string) ([]byte, string, error) {
	switch strings.ToLower(strings.TrimSpace(encoding)) {
	case "", "identity":
		return raw, "", nil
	case "gzip":
		zr, err := gzip.NewReader(bytes.NewReader(raw))
		if err != nil {
			return nil, "", fmt.Errorf("gzip: %w", err)
		}
		defer func() { _ = zr.Close() }()

		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, "", fmt.Errorf("gzip read: %w", err)
		}

		return out, "gzip", nil
	case "deflate":
		zr := flate.NewReader(bytes.NewReader(raw))
		defer func() { _ = zr.Close() }()

		out, err := io.ReadAll(zr)
		if err != nil {
			return nil, "", fmt.Errorf("deflate read: %w", err)
		}

		return out, "deflate", nil
	case "br":
		out, err := io.ReadAll(brotli.NewReader(bytes.NewReader(raw)))
		if err != nil {
			return nil, "", fmt.Errorf("brotli read: %w", err)
		}

		return out, "br", nil
	default:
		// zstd and anything else is never advertised in Accept-Encoding,
		// so a server sending it anyway is passed through unmodified.
		return raw, encoding, nil
	}
}

// parseContentType splits a Content-Type header into (mimeType, charset).
// A missing header yields application/octet-stream per §4.1.
func parseContentType(header string) (mimeType, charset string) {
	if header == "" {
		return "application/octet-stream", ""
	}

	parsed, params, err := mime.ParseMediaType(header)
	if err != nil {
		return "application/octet-stream", ""
	}

	return parsed, params["charset"]
}
